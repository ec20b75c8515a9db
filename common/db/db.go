// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db 键值存储接口
package db

import (
	"errors"
)

// ErrNotFoundInDb 数据库中不存在
var ErrNotFoundInDb = errors.New("ErrNotFoundInDb")

//KV kv
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key []byte, value []byte) error
}

//KVDB kvdb
type KVDB interface {
	KV
	Delete(key []byte) error
	NewBatch() Batch
	Iterator(prefix []byte) Iterator
	Close()
}

//Batch 批量写
type Batch interface {
	Set(key, value []byte)
	Delete(key []byte)
	Write() error
	ValueLen() int
	Reset()
}

//Iterator 迭代器
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Close()
}

//CloneByte 复制
func CloneByte(v []byte) []byte {
	if v == nil {
		return nil
	}
	value := make([]byte, len(v))
	copy(value, v)
	return value
}

//BytesPrefix 返回前缀对应的上界
func BytesPrefix(prefix []byte) []byte {
	var limit []byte
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		if c < 0xff {
			limit = make([]byte, i+1)
			copy(limit, prefix)
			limit[i] = c + 1
			break
		}
	}
	return limit
}
