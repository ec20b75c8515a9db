// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package verifier

import (
	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/types"
)

// VerifyScriptDependencies 脚本调用的每个外部函数都必须在依赖中存在, 公开且签名一致
func VerifyScriptDependencies(s *bytecode.CompiledScript, deps []*bytecode.CompiledModule) error {
	return checkLinks(&s.Tables, types.LocationScript, -1, deps)
}

// VerifyModuleDependencies 模块调用的外部函数校验, 不检查自身
func VerifyModuleDependencies(m *bytecode.CompiledModule, deps []*bytecode.CompiledModule) error {
	if len(m.ModuleHandles) == 0 {
		return newError(types.StatusInvalidSelfModuleHandle, "Module", "module without self handle")
	}
	return checkLinks(&m.Tables, m.Self().String(), bytecode.SelfModuleHandleIndex, deps)
}

// checkLinks 只检查被函数句柄实际引用的模块, 未使用的导入不要求存在
func checkLinks(t *bytecode.Tables, loc string, self int, deps []*bytecode.CompiledModule) error {
	byID := make(map[types.ModuleID]*bytecode.CompiledModule, len(deps))
	for _, dep := range deps {
		byID[dep.Self()] = dep
	}
	for i, fh := range t.FunctionHandles {
		if int(fh.Module) == self {
			continue
		}
		if int(fh.Module) >= len(t.ModuleHandles) {
			return newError(types.StatusIndexOutOfBounds, loc, "function handle %d", i)
		}
		id, ok := t.ModuleID(t.ModuleHandles[fh.Module])
		if !ok {
			return newError(types.StatusIndexOutOfBounds, loc, "module handle %d", fh.Module)
		}
		dep, ok := byID[id]
		if !ok {
			return newError(types.StatusMissingDependency, loc, "module %s", id)
		}
		name := t.Identifier(uint64(fh.Name))
		def, _, ok := dep.FindFunction(name)
		if !ok {
			return newError(types.StatusLookupFailed, loc, "function %s::%s", id, name)
		}
		if !def.Public {
			return newError(types.StatusVisibilityMismatch, loc, "function %s::%s is private", id, name)
		}
		target := dep.FunctionHandles[def.Function]
		if target.Parameters != fh.Parameters || target.Returns != fh.Returns {
			return newError(types.StatusTypeMismatch, loc, "function %s::%s signature (%d)->%d, imported as (%d)->%d",
				id, name, target.Parameters, target.Returns, fh.Parameters, fh.Returns)
		}
	}
	return nil
}
