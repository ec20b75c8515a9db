// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bytecode

// 结构比较, nil 与空切片视为相同

func sliceEqual[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (t *Tables) equal(o *Tables) bool {
	return sliceEqual(t.ModuleHandles, o.ModuleHandles) &&
		sliceEqual(t.FunctionHandles, o.FunctionHandles) &&
		sliceEqual(t.Identifiers, o.Identifiers) &&
		sliceEqual(t.AddressIdentifiers, o.AddressIdentifiers)
}

// Equal 两个脚本结构相同
func (s *CompiledScript) Equal(o *CompiledScript) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Version == o.Version &&
		s.Tables.equal(&o.Tables) &&
		s.TypeParameters == o.TypeParameters &&
		s.Parameters == o.Parameters &&
		s.Locals == o.Locals &&
		sliceEqual(s.Code, o.Code)
}

// Equal 两个模块结构相同
func (m *CompiledModule) Equal(o *CompiledModule) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Version != o.Version || !m.Tables.equal(&o.Tables) || len(m.FunctionDefs) != len(o.FunctionDefs) {
		return false
	}
	for i := range m.FunctionDefs {
		a, b := &m.FunctionDefs[i], &o.FunctionDefs[i]
		if a.Function != b.Function || a.Public != b.Public || a.Locals != b.Locals || !sliceEqual(a.Code, b.Code) {
			return false
		}
	}
	return true
}
