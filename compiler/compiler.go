// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compiler 汇编形式的合约源码编译器
package compiler

import (
	"fmt"

	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/common/log"
	"github.com/33cn/functest/types"
)

var clog = log.New("module", "compiler")

// ScriptOrModule 编译结果, 二选一
type ScriptOrModule struct {
	Script *bytecode.CompiledScript
	Module *bytecode.CompiledModule
}

// Unit 编译单元
func (u *ScriptOrModule) Unit() bytecode.Unit {
	if u.Script != nil {
		return u.Script
	}
	return u.Module
}

// Clone 深拷贝
func (u *ScriptOrModule) Clone() *ScriptOrModule {
	if u == nil {
		return nil
	}
	c := &ScriptOrModule{}
	if u.Script != nil {
		c.Script = u.Script.Clone()
	}
	if u.Module != nil {
		c.Module = u.Module.Clone()
	}
	return c
}

// Compiler 编译器, sink 接收编译过程中的日志(警告等)
type Compiler interface {
	Compile(sink func(string), sender types.AccountAddress, source string) (*ScriptOrModule, error)
}

// CompileError 编译错误, Line 从 1 开始, 0 表示与具体行无关
type CompileError struct {
	Line int
	Msg  string
}

func (e *CompileError) Error() string {
	if e.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func errorf(line int, format string, args ...interface{}) *CompileError {
	return &CompileError{Line: line, Msg: fmt.Sprintf(format, args...)}
}
