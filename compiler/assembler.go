// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/types"
)

// Assembler 汇编编译器
type Assembler struct{}

// Compile 编译脚本或模块, 模块发布在 sender 地址下
func (Assembler) Compile(sink func(string), sender types.AccountAddress, source string) (*ScriptOrModule, error) {
	unit, err := parseSource(source)
	if err != nil {
		return nil, err
	}
	b := newBuilder()
	var result *ScriptOrModule
	if unit.isModule {
		m, err := b.buildModule(unit, sender)
		if err != nil {
			return nil, err
		}
		result = &ScriptOrModule{Module: m}
	} else {
		s, err := b.buildScript(unit)
		if err != nil {
			return nil, err
		}
		result = &ScriptOrModule{Script: s}
	}
	for _, imp := range unit.imports {
		if !imp.used {
			msg := fmt.Sprintf("warning: unused import %s", imp.id)
			clog.Debug("Compile", "line", imp.line, "msg", msg)
			if sink != nil {
				sink(msg)
			}
		}
	}
	return result, nil
}

type builder struct {
	tables    bytecode.Tables
	idents    map[string]uint16
	addrs     map[types.AccountAddress]uint16
	modules   map[types.ModuleID]uint16
	functions map[string]uint16
	imports   map[string]*importDecl
	locals    map[string]*funcDecl
}

func newBuilder() *builder {
	return &builder{
		idents:    make(map[string]uint16),
		addrs:     make(map[types.AccountAddress]uint16),
		modules:   make(map[types.ModuleID]uint16),
		functions: make(map[string]uint16),
		imports:   make(map[string]*importDecl),
		locals:    make(map[string]*funcDecl),
	}
}

func (b *builder) ident(s string) uint16 {
	if idx, ok := b.idents[s]; ok {
		return idx
	}
	idx := uint16(len(b.tables.Identifiers))
	b.tables.Identifiers = append(b.tables.Identifiers, s)
	b.idents[s] = idx
	return idx
}

func (b *builder) address(addr types.AccountAddress) uint16 {
	if idx, ok := b.addrs[addr]; ok {
		return idx
	}
	idx := uint16(len(b.tables.AddressIdentifiers))
	b.tables.AddressIdentifiers = append(b.tables.AddressIdentifiers, addr)
	b.addrs[addr] = idx
	return idx
}

func (b *builder) moduleHandle(id types.ModuleID) uint16 {
	if idx, ok := b.modules[id]; ok {
		return idx
	}
	idx := uint16(len(b.tables.ModuleHandles))
	b.tables.ModuleHandles = append(b.tables.ModuleHandles, bytecode.ModuleHandle{Address: b.address(id.Address), Name: b.ident(id.Name)})
	b.modules[id] = idx
	return idx
}

func (b *builder) functionHandle(module uint16, name string, params, returns int) uint16 {
	key := fmt.Sprintf("%d::%s", module, name)
	if idx, ok := b.functions[key]; ok {
		return idx
	}
	idx := uint16(len(b.tables.FunctionHandles))
	b.tables.FunctionHandles = append(b.tables.FunctionHandles, bytecode.FunctionHandle{
		Module:     module,
		Name:       b.ident(name),
		Parameters: uint8(params),
		Returns:    uint8(returns),
	})
	b.functions[key] = idx
	return idx
}

func (b *builder) addImports(unit *sourceUnit) error {
	for _, imp := range unit.imports {
		if _, dup := b.imports[imp.id.Name]; dup {
			return errorf(imp.line, "duplicate import of %s", imp.id.Name)
		}
		if unit.isModule && imp.id.Name == unit.name {
			return errorf(imp.line, "import of %s shadows the module itself", imp.id.Name)
		}
		b.imports[imp.id.Name] = imp
		b.moduleHandle(imp.id)
	}
	return nil
}

func (b *builder) buildScript(unit *sourceUnit) (*bytecode.CompiledScript, error) {
	if len(unit.funcs) != 1 {
		return nil, errorf(0, "script must define exactly one function, found %d", len(unit.funcs))
	}
	main := unit.funcs[0]
	if main.name != "main" {
		return nil, errorf(main.line, "script function must be named main, found %s", main.name)
	}
	if main.returns != 0 {
		return nil, errorf(main.line, "script main cannot return values")
	}
	if err := b.addImports(unit); err != nil {
		return nil, err
	}
	code, err := b.assemble(main, false)
	if err != nil {
		return nil, err
	}
	return &bytecode.CompiledScript{
		Version:        bytecode.Version,
		Tables:         b.tables,
		TypeParameters: uint8(main.tparams),
		Parameters:     uint8(main.params),
		Locals:         uint8(main.locals),
		Code:           code,
	}, nil
}

func (b *builder) buildModule(unit *sourceUnit, sender types.AccountAddress) (*bytecode.CompiledModule, error) {
	self := b.moduleHandle(types.NewModuleID(sender, unit.name))
	if err := b.addImports(unit); err != nil {
		return nil, err
	}
	for _, fn := range unit.funcs {
		if _, dup := b.locals[fn.name]; dup {
			return nil, errorf(fn.line, "duplicate function %s", fn.name)
		}
		b.locals[fn.name] = fn
		b.functionHandle(self, fn.name, fn.params, fn.returns)
	}
	m := &bytecode.CompiledModule{Version: bytecode.Version}
	for _, fn := range unit.funcs {
		code, err := b.assemble(fn, true)
		if err != nil {
			return nil, err
		}
		m.FunctionDefs = append(m.FunctionDefs, bytecode.FunctionDefinition{
			Function: b.functionHandle(self, fn.name, fn.params, fn.returns),
			Public:   fn.public,
			Locals:   uint8(fn.locals),
			Code:     code,
		})
	}
	m.Tables = b.tables
	return m, nil
}

func (b *builder) assemble(fn *funcDecl, inModule bool) ([]bytecode.Instruction, error) {
	labels := make(map[string]int)
	offset := 0
	for _, sl := range fn.body {
		if sl.label != "" {
			if _, dup := labels[sl.label]; dup {
				return nil, errorf(sl.line, "duplicate label %s", sl.label)
			}
			labels[sl.label] = offset
		}
		if sl.op != "" {
			offset++
		}
	}
	code := make([]bytecode.Instruction, 0, offset)
	for _, sl := range fn.body {
		if sl.op == "" {
			continue
		}
		mn, ok := mnemonics[sl.op]
		if !ok {
			return nil, errorf(sl.line, "unknown instruction %q", sl.op)
		}
		ins := bytecode.Instruction{Op: mn.op}
		arg, err := b.operand(sl, mn.operand, labels, inModule)
		if err != nil {
			return nil, err
		}
		ins.Arg = arg
		code = append(code, ins)
	}
	return code, nil
}

func (b *builder) operand(sl *sourceLine, kind operandKind, labels map[string]int, inModule bool) (uint64, error) {
	want := 1
	switch kind {
	case operandNone:
		want = 0
	case operandFunction:
		if len(sl.fields) == 1 || len(sl.fields) == 3 {
			want = len(sl.fields)
		}
	}
	if len(sl.fields) != want {
		return 0, errorf(sl.line, "%s expects %d operand(s), found %d", sl.op, want, len(sl.fields))
	}
	switch kind {
	case operandNone:
		return 0, nil
	case operandLabel:
		target, ok := labels[sl.fields[0]]
		if !ok {
			return 0, errorf(sl.line, "unknown label %s", sl.fields[0])
		}
		return uint64(target), nil
	case operandU64:
		v, err := strconv.ParseUint(sl.fields[0], 10, 64)
		if err != nil {
			return 0, errorf(sl.line, "invalid u64 %q", sl.fields[0])
		}
		return v, nil
	case operandLocal:
		v, err := strconv.ParseUint(sl.fields[0], 10, 8)
		if err != nil {
			return 0, errorf(sl.line, "invalid local index %q", sl.fields[0])
		}
		return v, nil
	case operandAddress:
		addr, err := types.ParseAddress(sl.fields[0])
		if err != nil {
			return 0, errorf(sl.line, "invalid address %q", sl.fields[0])
		}
		return uint64(b.address(addr)), nil
	case operandIdent:
		if !identRegexp.MatchString(sl.fields[0]) {
			return 0, errorf(sl.line, "invalid name %q", sl.fields[0])
		}
		return uint64(b.ident(sl.fields[0])), nil
	}
	return b.callTarget(sl, inModule)
}

func (b *builder) callTarget(sl *sourceLine, inModule bool) (uint64, error) {
	target := sl.fields[0]
	params, returns := 0, 0
	if len(sl.fields) == 3 {
		p, err1 := strconv.ParseUint(sl.fields[1], 10, 8)
		r, err2 := strconv.ParseUint(sl.fields[2], 10, 8)
		if err1 != nil || err2 != nil {
			return 0, errorf(sl.line, "invalid call signature %s %s", sl.fields[1], sl.fields[2])
		}
		params, returns = int(p), int(r)
	}
	parts := strings.Split(target, "::")
	switch len(parts) {
	case 1:
		if !inModule {
			return 0, errorf(sl.line, "unknown function %s, scripts can only call imported functions", target)
		}
		fn, ok := b.locals[target]
		if !ok {
			return 0, errorf(sl.line, "unknown function %s", target)
		}
		return uint64(b.functionHandle(bytecode.SelfModuleHandleIndex, fn.name, fn.params, fn.returns)), nil
	case 2:
		imp, ok := b.imports[parts[0]]
		if !ok {
			return 0, errorf(sl.line, "unknown module %s", parts[0])
		}
		if !identRegexp.MatchString(parts[1]) {
			return 0, errorf(sl.line, "invalid function name %q", parts[1])
		}
		imp.used = true
		return uint64(b.functionHandle(b.modules[imp.id], parts[1], params, returns)), nil
	}
	return 0, errorf(sl.line, "invalid call target %q", target)
}
