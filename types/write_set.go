// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// WriteOp 一次状态写入或删除
type WriteOp struct {
	AccessPath *AccessPath
	Value      []byte
	Deletion   bool
}

func (op *WriteOp) String() string {
	if op.Deletion {
		return fmt.Sprintf("Deletion(%s)", op.AccessPath)
	}
	return fmt.Sprintf("Value(%s, %s)", op.AccessPath, hexutil.Encode(op.Value))
}

// WriteSet 交易执行产生的写集合, 按写入顺序保存
type WriteSet struct {
	Ops []*WriteOp
}

// NewWriteSet new
func NewWriteSet(ops ...*WriteOp) *WriteSet {
	return &WriteSet{Ops: ops}
}

// Put 写入
func (ws *WriteSet) Put(ap *AccessPath, value []byte) {
	ws.Ops = append(ws.Ops, &WriteOp{AccessPath: ap, Value: value})
}

// Delete 删除
func (ws *WriteSet) Delete(ap *AccessPath) {
	ws.Ops = append(ws.Ops, &WriteOp{AccessPath: ap, Deletion: true})
}

// Merge 追加另一个写集合
func (ws *WriteSet) Merge(other *WriteSet) {
	if other == nil {
		return
	}
	ws.Ops = append(ws.Ops, other.Ops...)
}

// IsEmpty 写集合是否为空
func (ws *WriteSet) IsEmpty() bool {
	return ws == nil || len(ws.Ops) == 0
}

// Len 写入数量
func (ws *WriteSet) Len() int {
	if ws == nil {
		return 0
	}
	return len(ws.Ops)
}
