// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bytecode

import (
	"fmt"

	"github.com/33cn/functest/types"
	"google.golang.org/protobuf/encoding/protowire"
)

// 二进制格式: magic(4) + kind(1) + protobuf wire 编码的字段
var magic = []byte{0xa1, 0x1c, 0xeb, 0x0b}

const (
	kindScript byte = 1
	kindModule byte = 2
)

// 字段编号
const (
	fieldVersion            protowire.Number = 1
	fieldModuleHandle       protowire.Number = 2
	fieldFunctionHandle     protowire.Number = 3
	fieldIdentifier         protowire.Number = 4
	fieldAddressIdentifier  protowire.Number = 5
	fieldTypeParameters     protowire.Number = 6
	fieldParameters         protowire.Number = 7
	fieldLocals             protowire.Number = 8
	fieldCode               protowire.Number = 9
	fieldFunctionDefinition protowire.Number = 10
)

// 嵌套消息内的字段编号
const (
	subField1 protowire.Number = iota + 1
	subField2
	subField3
	subField4
)

// BinaryError 反序列化错误
type BinaryError struct {
	Code types.StatusCode
	Msg  string
}

func (e *BinaryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// VMStatus 对应的执行结果
func (e *BinaryError) VMStatus() types.VMStatus {
	return types.ErrorStatus(e.Code)
}

func malformed(format string, args ...interface{}) error {
	return &BinaryError{Code: types.StatusMalformed, Msg: fmt.Sprintf(format, args...)}
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendTables(b []byte, t *Tables) []byte {
	for _, h := range t.ModuleHandles {
		var sub []byte
		sub = appendVarintField(sub, subField1, uint64(h.Address))
		sub = appendVarintField(sub, subField2, uint64(h.Name))
		b = appendBytesField(b, fieldModuleHandle, sub)
	}
	for _, h := range t.FunctionHandles {
		var sub []byte
		sub = appendVarintField(sub, subField1, uint64(h.Module))
		sub = appendVarintField(sub, subField2, uint64(h.Name))
		sub = appendVarintField(sub, subField3, uint64(h.Parameters))
		sub = appendVarintField(sub, subField4, uint64(h.Returns))
		b = appendBytesField(b, fieldFunctionHandle, sub)
	}
	for _, id := range t.Identifiers {
		b = appendBytesField(b, fieldIdentifier, []byte(id))
	}
	for _, addr := range t.AddressIdentifiers {
		b = appendBytesField(b, fieldAddressIdentifier, addr[:])
	}
	return b
}

func appendCode(code []Instruction) []byte {
	var b []byte
	for _, ins := range code {
		b = protowire.AppendVarint(b, uint64(ins.Op))
		if ins.Op.HasOperand() {
			b = protowire.AppendVarint(b, ins.Arg)
		}
	}
	return b
}

func header(kind byte) []byte {
	b := make([]byte, 0, 64)
	b = append(b, magic...)
	return append(b, kind)
}

// Serialize 序列化脚本
func (s *CompiledScript) Serialize() ([]byte, error) {
	if err := checkCode(s.Code); err != nil {
		return nil, err
	}
	b := header(kindScript)
	b = appendVarintField(b, fieldVersion, uint64(s.Version))
	b = appendTables(b, &s.Tables)
	b = appendVarintField(b, fieldTypeParameters, uint64(s.TypeParameters))
	b = appendVarintField(b, fieldParameters, uint64(s.Parameters))
	b = appendVarintField(b, fieldLocals, uint64(s.Locals))
	b = appendBytesField(b, fieldCode, appendCode(s.Code))
	return b, nil
}

// Serialize 序列化模块
func (m *CompiledModule) Serialize() ([]byte, error) {
	b := header(kindModule)
	b = appendVarintField(b, fieldVersion, uint64(m.Version))
	b = appendTables(b, &m.Tables)
	for _, def := range m.FunctionDefs {
		if err := checkCode(def.Code); err != nil {
			return nil, err
		}
		var sub []byte
		sub = appendVarintField(sub, subField1, uint64(def.Function))
		sub = protowire.AppendTag(sub, subField2, protowire.VarintType)
		sub = protowire.AppendVarint(sub, protowire.EncodeBool(def.Public))
		sub = appendVarintField(sub, subField3, uint64(def.Locals))
		sub = appendBytesField(sub, subField4, appendCode(def.Code))
		b = appendBytesField(b, fieldFunctionDefinition, sub)
	}
	return b, nil
}

func checkCode(code []Instruction) error {
	for i, ins := range code {
		if !ins.Op.Valid() {
			return &BinaryError{Code: types.StatusUnknownOpcode, Msg: fmt.Sprintf("instruction %d: %s", i, ins.Op)}
		}
	}
	return nil
}
