// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bytecode

import (
	"bytes"
	"fmt"
	"math"

	"github.com/33cn/functest/types"
	"google.golang.org/protobuf/encoding/protowire"
)

type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func consumeFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed("tag: %v", protowire.ParseError(n))
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}

func consumeVarint(num protowire.Number, typ protowire.Type, b []byte, max uint64) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, malformed("field %d: wire type %d, want varint", num, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, malformed("field %d: %v", num, protowire.ParseError(n))
	}
	if v > max {
		return 0, 0, malformed("field %d: value %d out of range", num, v)
	}
	return v, n, nil
}

func consumeBytes(num protowire.Number, typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, malformed("field %d: wire type %d, want bytes", num, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, malformed("field %d: %v", num, protowire.ParseError(n))
	}
	return v, n, nil
}

func unknownField(num protowire.Number) error {
	return malformed("unknown field %d", num)
}

func checkHeader(b []byte, kind byte) ([]byte, error) {
	if len(b) < len(magic)+1 || !bytes.Equal(b[:len(magic)], magic) {
		return nil, &BinaryError{Code: types.StatusBadMagic, Msg: "bad magic"}
	}
	if b[len(magic)] != kind {
		return nil, malformed("unexpected unit kind %d", b[len(magic)])
	}
	return b[len(magic)+1:], nil
}

// decodeTable 解析两种单元共有的表字段, handled 为 false 表示字段不属于表
func decodeTable(t *Tables, num protowire.Number, typ protowire.Type, b []byte) (n int, handled bool, err error) {
	switch num {
	case fieldModuleHandle:
		sub, n, err := consumeBytes(num, typ, b)
		if err != nil {
			return 0, true, err
		}
		var h ModuleHandle
		err = consumeFields(sub, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			v, n, err := consumeVarint(num, typ, b, math.MaxUint16)
			switch num {
			case subField1:
				h.Address = uint16(v)
			case subField2:
				h.Name = uint16(v)
			default:
				return 0, unknownField(num)
			}
			return n, err
		})
		t.ModuleHandles = append(t.ModuleHandles, h)
		return n, true, err
	case fieldFunctionHandle:
		sub, n, err := consumeBytes(num, typ, b)
		if err != nil {
			return 0, true, err
		}
		var h FunctionHandle
		err = consumeFields(sub, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			switch num {
			case subField1, subField2:
				v, n, err := consumeVarint(num, typ, b, math.MaxUint16)
				if num == subField1 {
					h.Module = uint16(v)
				} else {
					h.Name = uint16(v)
				}
				return n, err
			case subField3, subField4:
				v, n, err := consumeVarint(num, typ, b, math.MaxUint8)
				if num == subField3 {
					h.Parameters = uint8(v)
				} else {
					h.Returns = uint8(v)
				}
				return n, err
			}
			return 0, unknownField(num)
		})
		t.FunctionHandles = append(t.FunctionHandles, h)
		return n, true, err
	case fieldIdentifier:
		v, n, err := consumeBytes(num, typ, b)
		if err != nil {
			return 0, true, err
		}
		t.Identifiers = append(t.Identifiers, string(v))
		return n, true, nil
	case fieldAddressIdentifier:
		v, n, err := consumeBytes(num, typ, b)
		if err != nil {
			return 0, true, err
		}
		if len(v) != types.AddressLength {
			return 0, true, malformed("address of length %d", len(v))
		}
		t.AddressIdentifiers = append(t.AddressIdentifiers, types.BytesToAddress(v))
		return n, true, nil
	}
	return 0, false, nil
}

func decodeCode(b []byte) ([]Instruction, error) {
	var code []Instruction
	for len(b) > 0 {
		op, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, malformed("code: %v", protowire.ParseError(n))
		}
		b = b[n:]
		if op > math.MaxUint8 || !Opcode(op).Valid() {
			return nil, &BinaryError{Code: types.StatusUnknownOpcode, Msg: fmt.Sprintf("opcode %d at %d", op, len(code))}
		}
		ins := Instruction{Op: Opcode(op)}
		if ins.Op.HasOperand() {
			arg, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, malformed("code operand: %v", protowire.ParseError(n))
			}
			b = b[n:]
			ins.Arg = arg
		}
		code = append(code, ins)
	}
	return code, nil
}

// DeserializeScript 反序列化脚本
func DeserializeScript(data []byte) (*CompiledScript, error) {
	b, err := checkHeader(data, kindScript)
	if err != nil {
		return nil, err
	}
	s := &CompiledScript{}
	err = consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		n, handled, err := decodeTable(&s.Tables, num, typ, b)
		if handled {
			return n, err
		}
		switch num {
		case fieldVersion:
			v, n, err := consumeVarint(num, typ, b, math.MaxUint32)
			s.Version = uint32(v)
			return n, err
		case fieldTypeParameters, fieldParameters, fieldLocals:
			v, n, err := consumeVarint(num, typ, b, math.MaxUint8)
			switch num {
			case fieldTypeParameters:
				s.TypeParameters = uint8(v)
			case fieldParameters:
				s.Parameters = uint8(v)
			default:
				s.Locals = uint8(v)
			}
			return n, err
		case fieldCode:
			v, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			s.Code, err = decodeCode(v)
			return n, err
		}
		return 0, unknownField(num)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DeserializeModule 反序列化模块
func DeserializeModule(data []byte) (*CompiledModule, error) {
	b, err := checkHeader(data, kindModule)
	if err != nil {
		return nil, err
	}
	m := &CompiledModule{}
	err = consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		n, handled, err := decodeTable(&m.Tables, num, typ, b)
		if handled {
			return n, err
		}
		switch num {
		case fieldVersion:
			v, n, err := consumeVarint(num, typ, b, math.MaxUint32)
			m.Version = uint32(v)
			return n, err
		case fieldFunctionDefinition:
			sub, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			def, err := decodeFunctionDefinition(sub)
			if err != nil {
				return 0, err
			}
			m.FunctionDefs = append(m.FunctionDefs, def)
			return n, nil
		}
		return 0, unknownField(num)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func decodeFunctionDefinition(b []byte) (FunctionDefinition, error) {
	var def FunctionDefinition
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case subField1:
			v, n, err := consumeVarint(num, typ, b, math.MaxUint16)
			def.Function = uint16(v)
			return n, err
		case subField2:
			v, n, err := consumeVarint(num, typ, b, 1)
			def.Public = protowire.DecodeBool(v)
			return n, err
		case subField3:
			v, n, err := consumeVarint(num, typ, b, math.MaxUint8)
			def.Locals = uint8(v)
			return n, err
		case subField4:
			v, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			def.Code, err = decodeCode(v)
			return n, err
		}
		return 0, unknownField(num)
	})
	return def, err
}
