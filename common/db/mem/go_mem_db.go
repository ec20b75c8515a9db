// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mem 基于 goleveldb memdb 的内存数据库, value 使用 snappy 压缩
package mem

import (
	comdb "github.com/33cn/functest/common/db"
	"github.com/33cn/functest/common/log"
	"github.com/golang/snappy"
	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/memdb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var mlog = log.New("module", "db.memdb")

//GoMemDB db
type GoMemDB struct {
	db *memdb.DB
}

//NewGoMemDB new
func NewGoMemDB() *GoMemDB {
	return &GoMemDB{
		db: memdb.New(comparer.DefaultComparer, 0),
	}
}

//Get get
func (db *GoMemDB) Get(key []byte) ([]byte, error) {
	v, err := db.db.Get(key)
	if err != nil {
		return nil, comdb.ErrNotFoundInDb
	}
	value, err := snappy.Decode(nil, v)
	if err != nil {
		mlog.Error("Get", "key", string(key), "error", err)
		return nil, err
	}
	return value, nil
}

//Set set
func (db *GoMemDB) Set(key []byte, value []byte) error {
	err := db.db.Put(key, snappy.Encode(nil, value))
	if err != nil {
		mlog.Error("Set", "error", err)
		return err
	}
	return nil
}

//Delete 删除
func (db *GoMemDB) Delete(key []byte) error {
	err := db.db.Delete(key)
	if err != nil && err != memdb.ErrNotFound {
		mlog.Error("Delete", "error", err)
		return err
	}
	return nil
}

//Len 记录数
func (db *GoMemDB) Len() int {
	return db.db.Len()
}

//Close 关闭
func (db *GoMemDB) Close() {
	db.db.Reset()
}

//Iterator 按前缀遍历, nil 前缀遍历全部
func (db *GoMemDB) Iterator(prefix []byte) comdb.Iterator {
	var r *util.Range
	if len(prefix) > 0 {
		r = &util.Range{Start: prefix, Limit: comdb.BytesPrefix(prefix)}
	}
	return &memIt{Iterator: db.db.NewIterator(r)}
}

type memIt struct {
	iterator.Iterator
	err error
}

func (it *memIt) Key() []byte {
	return comdb.CloneByte(it.Iterator.Key())
}

func (it *memIt) Value() []byte {
	value, err := snappy.Decode(nil, it.Iterator.Value())
	if err != nil {
		it.err = err
		return nil
	}
	return value
}

func (it *memIt) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.Iterator.Error()
}

func (it *memIt) Close() {
	it.Iterator.Release()
}

type kv struct{ k, v []byte }
type memBatch struct {
	db     *GoMemDB
	writes []kv
	len    int
}

//NewBatch new
func (db *GoMemDB) NewBatch() comdb.Batch {
	return &memBatch{db: db}
}

func (b *memBatch) Set(key, value []byte) {
	b.writes = append(b.writes, kv{comdb.CloneByte(key), comdb.CloneByte(value)})
	b.len++
}

func (b *memBatch) Delete(key []byte) {
	b.writes = append(b.writes, kv{comdb.CloneByte(key), nil})
	b.len++
}

func (b *memBatch) Write() error {
	for _, kv := range b.writes {
		var err error
		if kv.v == nil {
			err = b.db.Delete(kv.k)
		} else {
			err = b.db.Set(kv.k, kv.v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

//ValueLen  batch数量
func (b *memBatch) ValueLen() int {
	return b.len
}

func (b *memBatch) Reset() {
	//重置batch自己的buf，不能调用db reset，将直接清空db历史数据
	b.writes = b.writes[:0]
	b.len = 0
}
