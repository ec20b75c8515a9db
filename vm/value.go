// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"bytes"
	"fmt"

	"github.com/33cn/functest/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ValueKind 值类型
type ValueKind uint8

// 值类型
const (
	KindU64 ValueKind = iota + 1
	KindBool
	KindAddress
	KindBytes
)

// Value 运行时的值
type Value struct {
	Kind  ValueKind
	U64   uint64               `cbor:",omitempty"`
	Bool  bool                 `cbor:",omitempty"`
	Addr  types.AccountAddress `cbor:",omitempty"`
	Bytes []byte               `cbor:",omitempty"`
}

// U64 u64 值
func U64(v uint64) Value { return Value{Kind: KindU64, U64: v} }

// Bool bool 值
func Bool(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// Address 地址值
func Address(addr types.AccountAddress) Value { return Value{Kind: KindAddress, Addr: addr} }

// ValueFromArgument 交易参数转换为运行时的值
func ValueFromArgument(arg types.TransactionArgument) (Value, bool) {
	switch arg.Kind {
	case types.ArgU64:
		return U64(arg.U64), true
	case types.ArgBool:
		return Bool(arg.Bool), true
	case types.ArgAddress:
		return Address(arg.Address), true
	case types.ArgU8Vector:
		return Value{Kind: KindBytes, Bytes: arg.Bytes}, true
	}
	return Value{}, false
}

// Equal 同类型的值比较
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindU64:
		return v.U64 == o.U64
	case KindBool:
		return v.Bool == o.Bool
	case KindAddress:
		return v.Addr == o.Addr
	}
	return bytes.Equal(v.Bytes, o.Bytes)
}

func (v Value) String() string {
	switch v.Kind {
	case KindU64:
		return fmt.Sprintf("%d", v.U64)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindAddress:
		return v.Addr.Hex()
	case KindBytes:
		return hexutil.Encode(v.Bytes)
	}
	return "invalid"
}

// Stack 操作数栈
type Stack struct {
	Items []Value
}

// NewStack new
func NewStack() *Stack {
	return &Stack{Items: make([]Value, 0, 64)}
}

// Push 入栈
func (st *Stack) Push(v Value) {
	st.Items = append(st.Items, v)
}

// Pop 出栈, 调用前需要 Require
func (st *Stack) Pop() (ret Value) {
	ret = st.Items[len(st.Items)-1]
	st.Items = st.Items[:len(st.Items)-1]
	return
}

// Len 栈高
func (st *Stack) Len() int {
	return len(st.Items)
}

// Require 栈上至少有 n 个值
func (st *Stack) Require(n int) error {
	if st.Len() < n {
		return fmt.Errorf("stack underflow (%d <=> %d)", len(st.Items), n)
	}
	return nil
}
