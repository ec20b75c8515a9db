// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package verifier

import (
	"testing"

	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var libAddr = types.BytesToAddress([]byte{0x42})

func ins(op bytecode.Opcode, arg ...uint64) bytecode.Instruction {
	i := bytecode.Instruction{Op: op}
	if len(arg) > 0 {
		i.Arg = arg[0]
	}
	return i
}

// libModule: Lib { public fun inc(x) -> 1; fun hidden() }
func libModule() *bytecode.CompiledModule {
	return &bytecode.CompiledModule{
		Version: bytecode.Version,
		Tables: bytecode.Tables{
			ModuleHandles: []bytecode.ModuleHandle{{Address: 0, Name: 0}},
			FunctionHandles: []bytecode.FunctionHandle{
				{Module: 0, Name: 1, Parameters: 1, Returns: 1},
				{Module: 0, Name: 2},
			},
			Identifiers:        []string{"Lib", "inc", "hidden"},
			AddressIdentifiers: []types.AccountAddress{libAddr},
		},
		FunctionDefs: []bytecode.FunctionDefinition{
			{Function: 0, Public: true, Code: []bytecode.Instruction{
				ins(bytecode.OpCopyLoc, 0), ins(bytecode.OpLdU64, 1), ins(bytecode.OpAdd), ins(bytecode.OpRet),
			}},
			{Function: 1, Code: []bytecode.Instruction{ins(bytecode.OpRet)}},
		},
	}
}

// callerScript 调用 Lib::<name>, 并导入一个未使用的 Missing 模块
func callerScript(name string, params, returns uint8) *bytecode.CompiledScript {
	code := []bytecode.Instruction{}
	for i := uint8(0); i < params; i++ {
		code = append(code, ins(bytecode.OpLdU64, 1))
	}
	code = append(code, ins(bytecode.OpCall, 0))
	for i := uint8(0); i < returns; i++ {
		code = append(code, ins(bytecode.OpPop))
	}
	code = append(code, ins(bytecode.OpRet))
	return &bytecode.CompiledScript{
		Version: bytecode.Version,
		Tables: bytecode.Tables{
			ModuleHandles: []bytecode.ModuleHandle{{Address: 0, Name: 0}, {Address: 0, Name: 2}},
			FunctionHandles: []bytecode.FunctionHandle{
				{Module: 0, Name: 1, Parameters: params, Returns: returns},
			},
			Identifiers:        []string{"Lib", name, "Missing"},
			AddressIdentifiers: []types.AccountAddress{libAddr},
		},
		Code: code,
	}
}

func code(t *testing.T, err error) types.StatusCode {
	require.Error(t, err)
	vmErr, ok := err.(*VMError)
	require.True(t, ok, "%T", err)
	return vmErr.Code
}

func TestVerifyValid(t *testing.T) {
	v := Default{}
	require.NoError(t, v.VerifyModule(libModule()))
	s := callerScript("inc", 1, 1)
	require.NoError(t, v.VerifyScript(s))
	require.NoError(t, v.VerifyScriptDependencies(s, []*bytecode.CompiledModule{libModule()}))
	require.NoError(t, v.VerifyModuleDependencies(libModule(), nil))
}

func TestVerifyScriptErrors(t *testing.T) {
	s := &bytecode.CompiledScript{}
	assert.Equal(t, types.StatusEmptyCodeUnit, code(t, VerifyScript(s)))

	s = &bytecode.CompiledScript{Code: []bytecode.Instruction{ins(bytecode.OpLdTrue), ins(bytecode.OpPop)}}
	assert.Equal(t, types.StatusInvalidFallThrough, code(t, VerifyScript(s)))

	s = &bytecode.CompiledScript{Code: []bytecode.Instruction{ins(bytecode.OpPop), ins(bytecode.OpRet)}}
	assert.Equal(t, types.StatusNegativeStackSizeWithinBlock, code(t, VerifyScript(s)))

	s = &bytecode.CompiledScript{Code: []bytecode.Instruction{ins(bytecode.OpLdTrue), ins(bytecode.OpRet)}}
	assert.Equal(t, types.StatusPositiveStackSizeAtBlockEnd, code(t, VerifyScript(s)))

	s = &bytecode.CompiledScript{Code: []bytecode.Instruction{ins(bytecode.OpCopyLoc, 0), ins(bytecode.OpPop), ins(bytecode.OpRet)}}
	assert.Equal(t, types.StatusIndexOutOfBounds, code(t, VerifyScript(s)))
	s.Parameters = 1
	require.NoError(t, VerifyScript(s))

	s = &bytecode.CompiledScript{Code: []bytecode.Instruction{ins(bytecode.OpBranch, 5)}}
	assert.Equal(t, types.StatusIndexOutOfBounds, code(t, VerifyScript(s)))

	s = &bytecode.CompiledScript{Parameters: 200, Locals: 100, Code: []bytecode.Instruction{ins(bytecode.OpRet)}}
	assert.Equal(t, types.StatusTooManyLocals, code(t, VerifyScript(s)))

	s = &bytecode.CompiledScript{
		Tables: bytecode.Tables{Identifiers: []string{"a", "a"}},
		Code:   []bytecode.Instruction{ins(bytecode.OpRet)},
	}
	assert.Equal(t, types.StatusDuplicateElement, code(t, VerifyScript(s)))

	s = &bytecode.CompiledScript{
		Tables: bytecode.Tables{ModuleHandles: []bytecode.ModuleHandle{{Address: 3, Name: 0}}},
		Code:   []bytecode.Instruction{ins(bytecode.OpRet)},
	}
	assert.Equal(t, types.StatusIndexOutOfBounds, code(t, VerifyScript(s)))
}

func TestVerifyLoop(t *testing.T) {
	// loop: if copy_loc 0 == 0 { ret } else { st_loc 0 (x-1); branch loop }
	s := &bytecode.CompiledScript{
		Parameters: 1,
		Code: []bytecode.Instruction{
			ins(bytecode.OpCopyLoc, 0),
			ins(bytecode.OpLdU64, 0),
			ins(bytecode.OpEq),
			ins(bytecode.OpBrFalse, 5),
			ins(bytecode.OpRet),
			ins(bytecode.OpCopyLoc, 0),
			ins(bytecode.OpLdU64, 1),
			ins(bytecode.OpSub),
			ins(bytecode.OpStLoc, 0),
			ins(bytecode.OpBranch, 0),
		},
	}
	require.NoError(t, VerifyScript(s))

	s.Code[3] = ins(bytecode.OpBranch, 5)
	s.Code = append([]bytecode.Instruction{}, s.Code...)
	assert.Equal(t, types.StatusPositiveStackSizeAtBlockEnd, code(t, VerifyScript(s)))
}

func TestVerifyModuleErrors(t *testing.T) {
	m := &bytecode.CompiledModule{}
	assert.Equal(t, types.StatusInvalidSelfModuleHandle, code(t, VerifyModule(m)))

	m = libModule()
	m.FunctionDefs = m.FunctionDefs[:1]
	assert.Equal(t, types.StatusLookupFailed, code(t, VerifyModule(m)))

	m = libModule()
	m.FunctionDefs[1].Function = 0
	assert.Equal(t, types.StatusDuplicateElement, code(t, VerifyModule(m)))

	m = libModule()
	m.FunctionDefs[0].Code = m.FunctionDefs[0].Code[1:]
	err := VerifyModule(m)
	assert.Equal(t, types.StatusNegativeStackSizeWithinBlock, code(t, err))
	assert.Equal(t, 0, err.(*VMError).Function)
	assert.Contains(t, err.Error(), "0x0000000000000000000000000000000000000042::Lib")
	assert.Equal(t, types.ErrorStatus(types.StatusNegativeStackSizeWithinBlock), err.(*VMError).VMStatus())
}

func TestVerifyDependencies(t *testing.T) {
	deps := []*bytecode.CompiledModule{libModule()}
	assert.Equal(t, types.StatusMissingDependency, code(t, VerifyScriptDependencies(callerScript("inc", 1, 1), nil)))
	assert.Equal(t, types.StatusLookupFailed, code(t, VerifyScriptDependencies(callerScript("dec", 1, 1), deps)))
	assert.Equal(t, types.StatusVisibilityMismatch, code(t, VerifyScriptDependencies(callerScript("hidden", 0, 0), deps)))
	assert.Equal(t, types.StatusTypeMismatch, code(t, VerifyScriptDependencies(callerScript("inc", 2, 1), deps)))
}

func TestVerifyModuleDependencies(t *testing.T) {
	user := &bytecode.CompiledModule{
		Version: bytecode.Version,
		Tables: bytecode.Tables{
			ModuleHandles: []bytecode.ModuleHandle{{Address: 1, Name: 0}, {Address: 0, Name: 1}},
			FunctionHandles: []bytecode.FunctionHandle{
				{Module: 0, Name: 2},
				{Module: 1, Name: 3, Parameters: 1, Returns: 1},
			},
			Identifiers:        []string{"User", "Lib", "run", "inc"},
			AddressIdentifiers: []types.AccountAddress{libAddr, types.BytesToAddress([]byte{0x43})},
		},
		FunctionDefs: []bytecode.FunctionDefinition{{Function: 0, Public: true, Code: []bytecode.Instruction{
			ins(bytecode.OpLdU64, 1), ins(bytecode.OpCall, 1), ins(bytecode.OpPop), ins(bytecode.OpRet),
		}}},
	}
	require.NoError(t, VerifyModule(user))
	assert.Equal(t, []types.ModuleID{types.NewModuleID(libAddr, "Lib")}, user.ModuleIDs())
	require.NoError(t, VerifyModuleDependencies(user, []*bytecode.CompiledModule{libModule()}))
	assert.Equal(t, types.StatusMissingDependency, code(t, VerifyModuleDependencies(user, nil)))
}
