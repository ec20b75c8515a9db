// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"sort"

	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/types"
	"github.com/pkg/errors"
)

// ErrModuleNotFound 模块不存在
var ErrModuleNotFound = errors.New("ErrModuleNotFound")

// Session 一笔交易的执行会话, 写入先缓存在会话中, 最后生成写集合
type Session struct {
	view    types.StateView
	writes  map[string]*types.WriteOp
	events  []*types.ContractEvent
	modules map[types.ModuleID]*bytecode.CompiledModule
}

// NewSession new
func NewSession(view types.StateView) *Session {
	return &Session{
		view:    view,
		writes:  make(map[string]*types.WriteOp),
		modules: make(map[types.ModuleID]*bytecode.CompiledModule),
	}
}

// Get 先读会话内的写入, 再读状态视图
func (s *Session) Get(ap *types.AccessPath) ([]byte, error) {
	if op, ok := s.writes[string(ap.Key())]; ok {
		if op.Deletion {
			return nil, nil
		}
		return op.Value, nil
	}
	return s.view.Get(ap)
}

// Set 写入
func (s *Session) Set(ap *types.AccessPath, value []byte) error {
	s.writes[string(ap.Key())] = &types.WriteOp{AccessPath: ap, Value: value}
	return nil
}

// Delete 删除
func (s *Session) Delete(ap *types.AccessPath) {
	s.writes[string(ap.Key())] = &types.WriteOp{AccessPath: ap, Deletion: true}
}

// Emit 记录事件
func (s *Session) Emit(ev *types.ContractEvent) {
	s.events = append(s.events, ev)
}

// Events 事件
func (s *Session) Events() []*types.ContractEvent {
	return s.events
}

// WriteSet 会话的写集合, 按 key 排序
func (s *Session) WriteSet() *types.WriteSet {
	keys := make([]string, 0, len(s.writes))
	for key := range s.writes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	ws := types.NewWriteSet()
	for _, key := range keys {
		ws.Ops = append(ws.Ops, s.writes[key])
	}
	return ws
}

// LoadModule 从状态中加载并反序列化模块, 结果缓存在会话中
func (s *Session) LoadModule(id types.ModuleID) (*bytecode.CompiledModule, error) {
	if m, ok := s.modules[id]; ok {
		return m, nil
	}
	code, err := s.Get(types.CodeAccessPath(id))
	if err != nil {
		return nil, err
	}
	if code == nil {
		return nil, errors.Wrapf(ErrModuleNotFound, "module %s", id)
	}
	m, err := bytecode.DeserializeModule(code)
	if err != nil {
		return nil, err
	}
	s.modules[id] = m
	return m, nil
}

// ModuleExists 模块是否已发布
func (s *Session) ModuleExists(id types.ModuleID) (bool, error) {
	code, err := s.Get(types.CodeAccessPath(id))
	return code != nil, err
}
