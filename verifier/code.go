// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package verifier

import (
	"sort"

	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/types"
)

type function struct {
	index   int
	params  int
	returns int
	locals  int
	code    []bytecode.Instruction
}

func checkFunction(t *bytecode.Tables, loc string, fn function) error {
	if len(fn.code) == 0 {
		return newError(types.StatusEmptyCodeUnit, loc, "empty code").at(fn.index, 0)
	}
	if fn.params+fn.locals > bytecode.MaxLocals {
		return newError(types.StatusTooManyLocals, loc, "%d locals", fn.params+fn.locals).at(fn.index, 0)
	}
	if err := checkOperands(t, loc, fn); err != nil {
		return err
	}
	last := fn.code[len(fn.code)-1]
	if !last.Op.IsUnconditionalExit() {
		return newError(types.StatusInvalidFallThrough, loc, "code falls through %s", last).at(fn.index, len(fn.code)-1)
	}
	return checkStackBalance(t, loc, fn)
}

func checkOperands(t *bytecode.Tables, loc string, fn function) error {
	for off, ins := range fn.code {
		if !ins.Op.Valid() {
			return newError(types.StatusUnknownOpcode, loc, "opcode %d", ins.Op).at(fn.index, off)
		}
		var bound int
		switch ins.Op {
		case bytecode.OpBrTrue, bytecode.OpBrFalse, bytecode.OpBranch:
			bound = len(fn.code)
		case bytecode.OpCopyLoc, bytecode.OpStLoc:
			bound = fn.params + fn.locals
		case bytecode.OpLdAddr:
			bound = len(t.AddressIdentifiers)
		case bytecode.OpCall:
			bound = len(t.FunctionHandles)
		case bytecode.OpEmit, bytecode.OpStoreGlobal, bytecode.OpLoadGlobal:
			bound = len(t.Identifiers)
		default:
			continue
		}
		if ins.Arg >= uint64(bound) {
			return newError(types.StatusIndexOutOfBounds, loc, "%s operand out of range %d", ins, bound).at(fn.index, off)
		}
	}
	return nil
}

// blockStarts 基本块起点: 入口, 跳转目标, 跳转与退出指令的下一条
func blockStarts(code []bytecode.Instruction) []int {
	starts := map[int]bool{0: true}
	for off, ins := range code {
		if ins.Op.IsBranch() {
			starts[int(ins.Arg)] = true
		}
		if (ins.Op.IsBranch() || ins.Op.IsUnconditionalExit()) && off+1 < len(code) {
			starts[off+1] = true
		}
	}
	list := make([]int, 0, len(starts))
	for off := range starts {
		list = append(list, off)
	}
	sort.Ints(list)
	return list
}

// checkStackBalance 每个基本块从空栈开始, 块内栈高不能为负, 块结束时栈必须为空
func checkStackBalance(t *bytecode.Tables, loc string, fn function) error {
	starts := blockStarts(fn.code)
	for i, start := range starts {
		end := len(fn.code)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		height := 0
		for off := start; off < end; off++ {
			ins := fn.code[off]
			pops, pushes, ok := ins.Op.StackEffect()
			if !ok {
				switch ins.Op {
				case bytecode.OpCall:
					fh := t.FunctionHandles[ins.Arg]
					pops, pushes = int(fh.Parameters), int(fh.Returns)
				case bytecode.OpRet:
					pops = fn.returns
				}
			}
			if height < pops {
				return newError(types.StatusNegativeStackSizeWithinBlock, loc, "%s needs %d values, stack has %d", ins, pops, height).at(fn.index, off)
			}
			height += pushes - pops
		}
		if height != 0 {
			return newError(types.StatusPositiveStackSizeAtBlockEnd, loc, "%d values left at block end", height).at(fn.index, end-1)
		}
	}
	return nil
}
