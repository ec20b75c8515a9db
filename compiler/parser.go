// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compiler

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/types"
)

var identRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// 源码格式:
//
//	script | module <Name>
//	import <address>::<Module>
//	[public] fun <name> [params=N] [returns=N] [locals=N] [tparams=N]
//	    <label>:
//	    <mnemonic> [operand...]
//	end
//
// 以 # 或 // 开头的内容为注释
type sourceUnit struct {
	isModule bool
	name     string
	imports  []*importDecl
	funcs    []*funcDecl
}

type importDecl struct {
	line int
	id   types.ModuleID
	used bool
}

type funcDecl struct {
	line    int
	name    string
	public  bool
	params  int
	returns int
	locals  int
	tparams int
	body    []*sourceLine
}

type sourceLine struct {
	line   int
	label  string
	op     string
	fields []string
}

func stripComment(s string) string {
	if i := strings.Index(s, "//"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func parseSource(source string) (*sourceUnit, error) {
	unit := &sourceUnit{}
	var cur *funcDecl
	header := false
	for i, raw := range strings.Split(source, "\n") {
		line := i + 1
		text := stripComment(raw)
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if !header {
			switch {
			case fields[0] == "script" && len(fields) == 1:
			case fields[0] == "module" && len(fields) == 2:
				if !identRegexp.MatchString(fields[1]) {
					return nil, errorf(line, "invalid module name %q", fields[1])
				}
				unit.isModule = true
				unit.name = fields[1]
			default:
				return nil, errorf(line, "expected `script` or `module <Name>`, found %q", text)
			}
			header = true
			continue
		}
		if cur != nil {
			if text == "end" {
				unit.funcs = append(unit.funcs, cur)
				cur = nil
				continue
			}
			sl := &sourceLine{line: line}
			if strings.HasSuffix(fields[0], ":") {
				sl.label = strings.TrimSuffix(fields[0], ":")
				if !identRegexp.MatchString(sl.label) {
					return nil, errorf(line, "invalid label %q", sl.label)
				}
				fields = fields[1:]
			}
			if len(fields) > 0 {
				sl.op = fields[0]
				sl.fields = fields[1:]
			}
			cur.body = append(cur.body, sl)
			continue
		}
		switch fields[0] {
		case "import":
			if len(unit.funcs) > 0 {
				return nil, errorf(line, "import after function definition")
			}
			imp, err := parseImport(line, fields)
			if err != nil {
				return nil, err
			}
			unit.imports = append(unit.imports, imp)
		case "fun", "public":
			fn, err := parseFunHeader(line, fields)
			if err != nil {
				return nil, err
			}
			cur = fn
		default:
			return nil, errorf(line, "unexpected %q", fields[0])
		}
	}
	if !header {
		return nil, errorf(0, "empty source")
	}
	if cur != nil {
		return nil, errorf(cur.line, "function %s is missing `end`", cur.name)
	}
	return unit, nil
}

func parseImport(line int, fields []string) (*importDecl, error) {
	if len(fields) != 2 {
		return nil, errorf(line, "expected `import <address>::<Module>`")
	}
	parts := strings.Split(fields[1], "::")
	if len(parts) != 2 || !identRegexp.MatchString(parts[1]) {
		return nil, errorf(line, "invalid import %q", fields[1])
	}
	addr, err := types.ParseAddress(parts[0])
	if err != nil {
		return nil, errorf(line, "invalid import address %q", parts[0])
	}
	return &importDecl{line: line, id: types.NewModuleID(addr, parts[1])}, nil
}

func parseFunHeader(line int, fields []string) (*funcDecl, error) {
	fn := &funcDecl{line: line}
	if fields[0] == "public" {
		fn.public = true
		fields = fields[1:]
	}
	if len(fields) < 2 || fields[0] != "fun" {
		return nil, errorf(line, "expected `[public] fun <name> ...`")
	}
	if !identRegexp.MatchString(fields[1]) {
		return nil, errorf(line, "invalid function name %q", fields[1])
	}
	fn.name = fields[1]
	for _, kv := range fields[2:] {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, errorf(line, "expected key=value, found %q", kv)
		}
		v, err := strconv.ParseUint(parts[1], 10, 8)
		if err != nil {
			return nil, errorf(line, "invalid value for %s: %q", parts[0], parts[1])
		}
		switch parts[0] {
		case "params":
			fn.params = int(v)
		case "returns":
			fn.returns = int(v)
		case "locals":
			fn.locals = int(v)
		case "tparams":
			fn.tparams = int(v)
		default:
			return nil, errorf(line, "unknown function attribute %q", parts[0])
		}
	}
	return fn, nil
}

type operandKind int

const (
	operandNone operandKind = iota
	operandLabel
	operandU64
	operandLocal
	operandAddress
	operandFunction
	operandIdent
)

type mnemonic struct {
	op      bytecode.Opcode
	operand operandKind
}

var mnemonics = map[string]mnemonic{
	"pop":      {bytecode.OpPop, operandNone},
	"ret":      {bytecode.OpRet, operandNone},
	"br_true":  {bytecode.OpBrTrue, operandLabel},
	"br_false": {bytecode.OpBrFalse, operandLabel},
	"branch":   {bytecode.OpBranch, operandLabel},
	"ld_u64":   {bytecode.OpLdU64, operandU64},
	"ld_true":  {bytecode.OpLdTrue, operandNone},
	"ld_false": {bytecode.OpLdFalse, operandNone},
	"ld_addr":  {bytecode.OpLdAddr, operandAddress},
	"copy_loc": {bytecode.OpCopyLoc, operandLocal},
	"st_loc":   {bytecode.OpStLoc, operandLocal},
	"call":     {bytecode.OpCall, operandFunction},
	"add":      {bytecode.OpAdd, operandNone},
	"sub":      {bytecode.OpSub, operandNone},
	"mul":      {bytecode.OpMul, operandNone},
	"div":      {bytecode.OpDiv, operandNone},
	"mod":      {bytecode.OpMod, operandNone},
	"lt":       {bytecode.OpLt, operandNone},
	"gt":       {bytecode.OpGt, operandNone},
	"le":       {bytecode.OpLe, operandNone},
	"ge":       {bytecode.OpGe, operandNone},
	"eq":       {bytecode.OpEq, operandNone},
	"neq":      {bytecode.OpNeq, operandNone},
	"and":      {bytecode.OpAnd, operandNone},
	"or":       {bytecode.OpOr, operandNone},
	"not":      {bytecode.OpNot, operandNone},
	"abort":    {bytecode.OpAbort, operandNone},
	"sender":   {bytecode.OpGetTxnSender, operandNone},
	"emit":     {bytecode.OpEmit, operandIdent},
	"store":    {bytecode.OpStoreGlobal, operandIdent},
	"load":     {bytecode.OpLoadGlobal, operandIdent},
	"transfer": {bytecode.OpTransfer, operandNone},
}
