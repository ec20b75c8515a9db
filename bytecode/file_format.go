// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bytecode 编译产物的内存表示, 二进制格式与结构比较
package bytecode

import (
	"github.com/33cn/functest/types"
)

// Version 当前二进制格式版本
const Version uint32 = 1

// SelfModuleHandleIndex 模块自身的句柄总是第一个
const SelfModuleHandleIndex = 0

// 表大小上限
const (
	MaxTableSize = 1 << 16
	MaxLocals    = 255
)

// ModuleHandle 模块引用: 地址表下标 + 标识符表下标
type ModuleHandle struct {
	Address uint16
	Name    uint16
}

// FunctionHandle 函数引用
type FunctionHandle struct {
	Module     uint16
	Name       uint16
	Parameters uint8
	Returns    uint8
}

// FunctionDefinition 模块内定义的函数
type FunctionDefinition struct {
	Function uint16
	Public   bool
	Locals   uint8
	Code     []Instruction
}

// Unit 脚本或模块
type Unit interface {
	ModuleIDs() []types.ModuleID
	Serialize() ([]byte, error)
	DebugString() string
}

// Tables 脚本与模块共有的句柄表
type Tables struct {
	ModuleHandles      []ModuleHandle
	FunctionHandles    []FunctionHandle
	Identifiers        []string
	AddressIdentifiers []types.AccountAddress
}

func (t *Tables) moduleIDs() []types.ModuleID {
	ids := make([]types.ModuleID, 0, len(t.ModuleHandles))
	for _, h := range t.ModuleHandles {
		id, ok := t.ModuleID(h)
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// ModuleID 解析模块句柄, 下标越界时 ok 为 false
func (t *Tables) ModuleID(h ModuleHandle) (types.ModuleID, bool) {
	if int(h.Address) >= len(t.AddressIdentifiers) || int(h.Name) >= len(t.Identifiers) {
		return types.ModuleID{}, false
	}
	return types.NewModuleID(t.AddressIdentifiers[h.Address], t.Identifiers[h.Name]), true
}

// Identifier 标识符, 越界时返回空串
func (t *Tables) Identifier(idx uint64) string {
	if idx >= uint64(len(t.Identifiers)) {
		return ""
	}
	return t.Identifiers[idx]
}

// CompiledScript 编译后的脚本, 入口函数 main 的代码直接保存在脚本中
type CompiledScript struct {
	Version uint32
	Tables
	TypeParameters uint8
	Parameters     uint8
	Locals         uint8
	Code           []Instruction
}

// ModuleIDs 脚本引用的所有模块
func (s *CompiledScript) ModuleIDs() []types.ModuleID {
	return s.moduleIDs()
}

// CompiledModule 编译后的模块, 第一个模块句柄指向自身
type CompiledModule struct {
	Version uint32
	Tables
	FunctionDefs []FunctionDefinition
}

// ModuleIDs 模块引用的其他模块, 不含自身
func (m *CompiledModule) ModuleIDs() []types.ModuleID {
	if len(m.ModuleHandles) == 0 {
		return nil
	}
	self, ok := m.ModuleID(m.ModuleHandles[SelfModuleHandleIndex])
	var ids []types.ModuleID
	for _, id := range m.moduleIDs() {
		if ok && id == self {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Self 模块自身的标识
func (m *CompiledModule) Self() types.ModuleID {
	if len(m.ModuleHandles) == 0 {
		return types.ModuleID{}
	}
	id, _ := m.ModuleID(m.ModuleHandles[SelfModuleHandleIndex])
	return id
}

// FunctionName 函数定义的名字
func (m *CompiledModule) FunctionName(def *FunctionDefinition) string {
	if int(def.Function) >= len(m.FunctionHandles) {
		return ""
	}
	return m.Identifier(uint64(m.FunctionHandles[def.Function].Name))
}

// FindFunction 按名字查找函数定义
func (m *CompiledModule) FindFunction(name string) (*FunctionDefinition, int, bool) {
	for i := range m.FunctionDefs {
		if m.FunctionName(&m.FunctionDefs[i]) == name {
			return &m.FunctionDefs[i], i, true
		}
	}
	return nil, 0, false
}

// Clone 深拷贝
func (s *CompiledScript) Clone() *CompiledScript {
	c := *s
	c.Tables = s.Tables.clone()
	c.Code = cloneCode(s.Code)
	return &c
}

// Clone 深拷贝
func (m *CompiledModule) Clone() *CompiledModule {
	c := *m
	c.Tables = m.Tables.clone()
	if m.FunctionDefs != nil {
		c.FunctionDefs = make([]FunctionDefinition, len(m.FunctionDefs))
		for i, def := range m.FunctionDefs {
			def.Code = cloneCode(def.Code)
			c.FunctionDefs[i] = def
		}
	}
	return &c
}

func (t Tables) clone() Tables {
	return Tables{
		ModuleHandles:      cloneSlice(t.ModuleHandles),
		FunctionHandles:    cloneSlice(t.FunctionHandles),
		Identifiers:        cloneSlice(t.Identifiers),
		AddressIdentifiers: cloneSlice(t.AddressIdentifiers),
	}
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func cloneCode(code []Instruction) []Instruction {
	return cloneSlice(code)
}

// DebugString 确定性的结构化输出
func (s *CompiledScript) DebugString() string {
	return types.DebugString(s)
}

// DebugString 确定性的结构化输出
func (m *CompiledModule) DebugString() string {
	return types.DebugString(m)
}
