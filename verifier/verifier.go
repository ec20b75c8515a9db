// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package verifier 字节码安全校验: 表下标, 重复项, 控制流, 栈平衡与依赖链接
package verifier

import (
	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/common/log"
	"github.com/33cn/functest/types"
)

var vlog = log.New("module", "verifier")

// Default 默认校验器
type Default struct{}

// VerifyScript 校验脚本
func (Default) VerifyScript(s *bytecode.CompiledScript) error {
	return VerifyScript(s)
}

// VerifyModule 校验模块
func (Default) VerifyModule(m *bytecode.CompiledModule) error {
	return VerifyModule(m)
}

// VerifyScriptDependencies 校验脚本依赖
func (Default) VerifyScriptDependencies(s *bytecode.CompiledScript, deps []*bytecode.CompiledModule) error {
	return VerifyScriptDependencies(s, deps)
}

// VerifyModuleDependencies 校验模块依赖
func (Default) VerifyModuleDependencies(m *bytecode.CompiledModule, deps []*bytecode.CompiledModule) error {
	return VerifyModuleDependencies(m, deps)
}

// VerifyScript 校验脚本本身
func VerifyScript(s *bytecode.CompiledScript) error {
	loc := types.LocationScript
	if err := checkTables(&s.Tables, loc); err != nil {
		return err
	}
	fn := function{
		index:  0,
		params: int(s.Parameters),
		locals: int(s.Locals),
		code:   s.Code,
	}
	if err := checkFunction(&s.Tables, loc, fn); err != nil {
		vlog.Debug("VerifyScript", "err", err)
		return err
	}
	return nil
}

// VerifyModule 校验模块本身
func VerifyModule(m *bytecode.CompiledModule) error {
	if len(m.ModuleHandles) == 0 {
		return newError(types.StatusInvalidSelfModuleHandle, "Module", "module without self handle")
	}
	loc := "Module"
	if err := checkTables(&m.Tables, loc); err != nil {
		return err
	}
	loc = m.Self().String()

	defined := make(map[uint16]bool)
	for i, def := range m.FunctionDefs {
		if int(def.Function) >= len(m.FunctionHandles) {
			return newError(types.StatusIndexOutOfBounds, loc, "function definition %d: handle %d", i, def.Function)
		}
		fh := m.FunctionHandles[def.Function]
		if fh.Module != bytecode.SelfModuleHandleIndex {
			return newError(types.StatusInvalidSelfModuleHandle, loc, "function definition %d defines a foreign function", i)
		}
		if defined[def.Function] {
			return newError(types.StatusDuplicateElement, loc, "function %s defined twice", m.Identifier(uint64(fh.Name)))
		}
		defined[def.Function] = true
	}
	for i, fh := range m.FunctionHandles {
		if fh.Module == bytecode.SelfModuleHandleIndex && !defined[uint16(i)] {
			return newError(types.StatusLookupFailed, loc, "function %s is declared but not defined", m.Identifier(uint64(fh.Name)))
		}
	}
	for i, def := range m.FunctionDefs {
		fh := m.FunctionHandles[def.Function]
		fn := function{
			index:   i,
			params:  int(fh.Parameters),
			returns: int(fh.Returns),
			locals:  int(def.Locals),
			code:    def.Code,
		}
		if err := checkFunction(&m.Tables, loc, fn); err != nil {
			vlog.Debug("VerifyModule", "module", loc, "err", err)
			return err
		}
	}
	return nil
}

func checkTables(t *bytecode.Tables, loc string) error {
	if len(t.ModuleHandles) > bytecode.MaxTableSize || len(t.FunctionHandles) > bytecode.MaxTableSize ||
		len(t.Identifiers) > bytecode.MaxTableSize || len(t.AddressIdentifiers) > bytecode.MaxTableSize {
		return newError(types.StatusIndexOutOfBounds, loc, "table too large")
	}
	ids := make(map[string]bool, len(t.Identifiers))
	for _, id := range t.Identifiers {
		if ids[id] {
			return newError(types.StatusDuplicateElement, loc, "identifier %s", id)
		}
		ids[id] = true
	}
	addrs := make(map[types.AccountAddress]bool, len(t.AddressIdentifiers))
	for _, addr := range t.AddressIdentifiers {
		if addrs[addr] {
			return newError(types.StatusDuplicateElement, loc, "address %s", addr.Hex())
		}
		addrs[addr] = true
	}
	modules := make(map[bytecode.ModuleHandle]bool, len(t.ModuleHandles))
	for i, h := range t.ModuleHandles {
		if int(h.Address) >= len(t.AddressIdentifiers) || int(h.Name) >= len(t.Identifiers) {
			return newError(types.StatusIndexOutOfBounds, loc, "module handle %d", i)
		}
		if modules[h] {
			return newError(types.StatusDuplicateElement, loc, "module handle %d", i)
		}
		modules[h] = true
	}
	type fkey struct{ module, name uint16 }
	funcs := make(map[fkey]bool, len(t.FunctionHandles))
	for i, h := range t.FunctionHandles {
		if int(h.Module) >= len(t.ModuleHandles) || int(h.Name) >= len(t.Identifiers) {
			return newError(types.StatusIndexOutOfBounds, loc, "function handle %d", i)
		}
		k := fkey{h.Module, h.Name}
		if funcs[k] {
			return newError(types.StatusDuplicateElement, loc, "function handle %d", i)
		}
		funcs[k] = true
	}
	return nil
}
