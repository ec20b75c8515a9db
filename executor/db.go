// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package executor

import (
	dbm "github.com/33cn/functest/common/db"
	"github.com/33cn/functest/types"
)

// StateDB 区块内的状态视图, 已执行交易的写集合缓存在 cache 中, 不落盘
type StateDB struct {
	cache map[string]*types.WriteOp
	db    dbm.KV
}

// NewStateDB new state db
func NewStateDB(db dbm.KV) *StateDB {
	return &StateDB{
		cache: make(map[string]*types.WriteOp),
		db:    db,
	}
}

// Get 先读缓存再读底层存储, 不存在时返回 nil, nil
func (s *StateDB) Get(ap *types.AccessPath) ([]byte, error) {
	if op, ok := s.cache[string(ap.Key())]; ok {
		if op.Deletion {
			return nil, nil
		}
		return op.Value, nil
	}
	value, err := s.db.Get(ap.Key())
	if err == dbm.ErrNotFoundInDb {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Apply 把写集合放入缓存
func (s *StateDB) Apply(ws *types.WriteSet) {
	if ws.IsEmpty() {
		return
	}
	for _, op := range ws.Ops {
		s.cache[string(op.AccessPath.Key())] = op
	}
}
