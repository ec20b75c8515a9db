// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bytecode

import (
	"testing"

	"github.com/33cn/functest/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var counterAddr = types.BytesToAddress([]byte{0xca, 0xfe})

func sampleScript() *CompiledScript {
	return &CompiledScript{
		Version: Version,
		Tables: Tables{
			ModuleHandles:      []ModuleHandle{{Address: 0, Name: 0}},
			FunctionHandles:    []FunctionHandle{{Module: 0, Name: 1, Parameters: 1, Returns: 1}},
			Identifiers:        []string{"Counter", "incr"},
			AddressIdentifiers: []types.AccountAddress{counterAddr},
		},
		Parameters: 1,
		Locals:     1,
		Code: []Instruction{
			{Op: OpCopyLoc, Arg: 0},
			{Op: OpCall, Arg: 0},
			{Op: OpPop},
			{Op: OpRet},
		},
	}
}

func sampleModule() *CompiledModule {
	return &CompiledModule{
		Version: Version,
		Tables: Tables{
			ModuleHandles:      []ModuleHandle{{Address: 0, Name: 0}},
			FunctionHandles:    []FunctionHandle{{Module: 0, Name: 1, Parameters: 1, Returns: 1}},
			Identifiers:        []string{"Counter", "incr"},
			AddressIdentifiers: []types.AccountAddress{counterAddr},
		},
		FunctionDefs: []FunctionDefinition{{
			Function: 0,
			Public:   true,
			Code: []Instruction{
				{Op: OpCopyLoc, Arg: 0},
				{Op: OpLdU64, Arg: 1},
				{Op: OpAdd},
				{Op: OpRet},
			},
		}},
	}
}

func TestScriptRoundTrip(t *testing.T) {
	s := sampleScript()
	b, err := s.Serialize()
	require.NoError(t, err)
	back, err := DeserializeScript(b)
	require.NoError(t, err)
	assert.True(t, s.Equal(back))
	assert.Equal(t, s.DebugString(), back.DebugString())
	assert.Equal(t, []types.ModuleID{types.NewModuleID(counterAddr, "Counter")}, back.ModuleIDs())
}

func TestModuleRoundTrip(t *testing.T) {
	m := sampleModule()
	b, err := m.Serialize()
	require.NoError(t, err)
	back, err := DeserializeModule(b)
	require.NoError(t, err)
	assert.True(t, m.Equal(back))
	assert.Equal(t, types.NewModuleID(counterAddr, "Counter"), back.Self())
	assert.Empty(t, back.ModuleIDs())

	def, idx, ok := back.FindFunction("incr")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.True(t, def.Public)
	_, _, ok = back.FindFunction("decr")
	assert.False(t, ok)
}

func TestEmptyScriptRoundTrip(t *testing.T) {
	s := &CompiledScript{Version: Version, Code: []Instruction{{Op: OpRet}}}
	b, err := s.Serialize()
	require.NoError(t, err)
	back, err := DeserializeScript(b)
	require.NoError(t, err)
	assert.Nil(t, back.Identifiers)
	s.Identifiers = []string{}
	assert.True(t, s.Equal(back))
}

func TestDeserializeErrors(t *testing.T) {
	sb, err := sampleScript().Serialize()
	require.NoError(t, err)
	mb, err := sampleModule().Serialize()
	require.NoError(t, err)

	_, err = DeserializeModule(sb)
	require.Error(t, err)
	assert.Equal(t, types.StatusMalformed, err.(*BinaryError).Code)

	_, err = DeserializeScript(mb)
	require.Error(t, err)

	_, err = DeserializeScript([]byte{1, 2, 3})
	require.Error(t, err)
	assert.Equal(t, types.StatusBadMagic, err.(*BinaryError).Code)

	_, err = DeserializeScript(sb[:len(sb)-1])
	assert.Error(t, err)

	bad := append([]byte{}, sb...)
	bad = append(bad, 0xf8, 0x01, 0x00)
	_, err = DeserializeScript(bad)
	assert.Error(t, err)
}

func TestSerializeUnknownOpcode(t *testing.T) {
	s := sampleScript()
	s.Code = append(s.Code, Instruction{Op: Opcode(200)})
	_, err := s.Serialize()
	require.Error(t, err)
	assert.Equal(t, types.StatusUnknownOpcode, err.(*BinaryError).Code)
}

func TestEqual(t *testing.T) {
	a, b := sampleScript(), sampleScript()
	assert.True(t, a.Equal(b))
	b.Code[0].Arg = 1
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(nil))

	m1, m2 := sampleModule(), sampleModule()
	assert.True(t, m1.Equal(m2))
	m2.FunctionDefs[0].Public = false
	assert.False(t, m1.Equal(m2))
}

func TestClone(t *testing.T) {
	s := sampleScript()
	c := s.Clone()
	c.Code[0].Arg = 9
	c.Identifiers[0] = "Other"
	assert.Equal(t, uint64(0), s.Code[0].Arg)
	assert.Equal(t, "Counter", s.Identifiers[0])

	m := sampleModule()
	mc := m.Clone()
	mc.FunctionDefs[0].Code[0].Op = OpPop
	assert.Equal(t, OpCopyLoc, m.FunctionDefs[0].Code[0].Op)
}

func TestOpcode(t *testing.T) {
	assert.Equal(t, "CopyLoc(3)", Instruction{Op: OpCopyLoc, Arg: 3}.String())
	assert.Equal(t, "Add", Instruction{Op: OpAdd}.String())
	assert.Equal(t, "Opcode(0)", Opcode(0).String())
	pops, pushes, ok := OpAdd.StackEffect()
	assert.Equal(t, []int{2, 1}, []int{pops, pushes})
	assert.True(t, ok)
	_, _, ok = OpCall.StackEffect()
	assert.False(t, ok)
	assert.True(t, OpBranch.IsUnconditionalExit())
	assert.False(t, OpBrTrue.IsUnconditionalExit())
}

func TestDebugStringDeterministic(t *testing.T) {
	s := sampleScript()
	out := s.DebugString()
	assert.Equal(t, out, sampleScript().DebugString())
	assert.Contains(t, out, "CopyLoc(0)")
	assert.NotContains(t, out, "0xc0")
}
