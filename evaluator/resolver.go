// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaluator

import (
	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/types"
)

// ResolveDependencies 读取单元引用的模块. 不存在, 无法反序列化或校验失败的模块直接跳过,
// 真正缺失的依赖由之后的依赖校验报告
func ResolveDependencies(view types.StateView, v BytecodeVerifier, unit bytecode.Unit) []*bytecode.CompiledModule {
	ids := unit.ModuleIDs()
	deps := make([]*bytecode.CompiledModule, 0, len(ids))
	for _, id := range ids {
		m, ok := fetchDependency(view, v, id)
		if !ok {
			continue
		}
		deps = append(deps, m)
	}
	return deps
}

func fetchDependency(view types.StateView, v BytecodeVerifier, id types.ModuleID) (*bytecode.CompiledModule, bool) {
	blob, err := view.Get(types.CodeAccessPath(id))
	if err != nil || blob == nil {
		if err != nil {
			elog.Debug("fetchDependency", "module", id.String(), "err", err)
		}
		return nil, false
	}
	m, err := bytecode.DeserializeModule(blob)
	if err != nil {
		elog.Debug("fetchDependency deserialize", "module", id.String(), "err", err)
		return nil, false
	}
	if err := v.VerifyModule(m); err != nil {
		elog.Debug("fetchDependency verify", "module", id.String(), "err", err)
		return nil, false
	}
	return m, true
}
