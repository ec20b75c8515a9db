// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bytecode

import "fmt"

// Opcode 指令码
type Opcode uint8

// 指令集. 带操作数的指令在注释中标明操作数含义
const (
	OpPop          Opcode = iota + 1
	OpRet                 // 返回, 栈上保留函数的返回值
	OpBrTrue              // 代码偏移
	OpBrFalse             // 代码偏移
	OpBranch              // 代码偏移
	OpLdU64               // 立即数
	OpLdTrue              //
	OpLdFalse             //
	OpLdAddr              // 地址表下标
	OpCopyLoc             // 局部变量下标
	OpStLoc               // 局部变量下标
	OpCall                // 函数句柄下标
	OpAdd                 //
	OpSub                 //
	OpMul                 //
	OpDiv                 //
	OpMod                 //
	OpLt                  //
	OpGt                  //
	OpLe                  //
	OpGe                  //
	OpEq                  //
	OpNeq                 //
	OpAnd                 //
	OpOr                  //
	OpNot                 //
	OpAbort               // 弹出 abort code
	OpGetTxnSender        //
	OpEmit                // 标识符表下标(事件名)
	OpStoreGlobal         // 标识符表下标(槽位名)
	OpLoadGlobal          // 标识符表下标(槽位名)
	OpTransfer            // 弹出金额与收款地址
	opMax
)

var opcodeNames = map[Opcode]string{
	OpPop:          "Pop",
	OpRet:          "Ret",
	OpBrTrue:       "BrTrue",
	OpBrFalse:      "BrFalse",
	OpBranch:       "Branch",
	OpLdU64:        "LdU64",
	OpLdTrue:       "LdTrue",
	OpLdFalse:      "LdFalse",
	OpLdAddr:       "LdAddr",
	OpCopyLoc:      "CopyLoc",
	OpStLoc:        "StLoc",
	OpCall:         "Call",
	OpAdd:          "Add",
	OpSub:          "Sub",
	OpMul:          "Mul",
	OpDiv:          "Div",
	OpMod:          "Mod",
	OpLt:           "Lt",
	OpGt:           "Gt",
	OpLe:           "Le",
	OpGe:           "Ge",
	OpEq:           "Eq",
	OpNeq:          "Neq",
	OpAnd:          "And",
	OpOr:           "Or",
	OpNot:          "Not",
	OpAbort:        "Abort",
	OpGetTxnSender: "GetTxnSender",
	OpEmit:         "Emit",
	OpStoreGlobal:  "StoreGlobal",
	OpLoadGlobal:   "LoadGlobal",
	OpTransfer:     "Transfer",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(%d)", uint8(op))
}

// Valid 是否为已知指令
func (op Opcode) Valid() bool {
	return op >= OpPop && op < opMax
}

// HasOperand 指令是否使用操作数
func (op Opcode) HasOperand() bool {
	switch op {
	case OpBrTrue, OpBrFalse, OpBranch, OpLdU64, OpLdAddr, OpCopyLoc, OpStLoc, OpCall,
		OpEmit, OpStoreGlobal, OpLoadGlobal:
		return true
	}
	return false
}

// IsBranch 是否为跳转指令
func (op Opcode) IsBranch() bool {
	return op == OpBrTrue || op == OpBrFalse || op == OpBranch
}

// IsUnconditionalExit 执行后不会落入下一条指令
func (op Opcode) IsUnconditionalExit() bool {
	return op == OpRet || op == OpAbort || op == OpBranch
}

// StackEffect 出栈与入栈数量, Call 与 Ret 取决于函数签名, 返回 ok=false
func (op Opcode) StackEffect() (pops, pushes int, ok bool) {
	switch op {
	case OpPop, OpBrTrue, OpBrFalse, OpStLoc, OpAbort, OpEmit, OpStoreGlobal:
		return 1, 0, true
	case OpBranch:
		return 0, 0, true
	case OpLdU64, OpLdTrue, OpLdFalse, OpLdAddr, OpCopyLoc, OpGetTxnSender, OpLoadGlobal:
		return 0, 1, true
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpLt, OpGt, OpLe, OpGe, OpEq, OpNeq, OpAnd, OpOr:
		return 2, 1, true
	case OpNot:
		return 1, 1, true
	case OpTransfer:
		return 2, 0, true
	}
	return 0, 0, false
}

// Instruction 一条指令
type Instruction struct {
	Op  Opcode
	Arg uint64
}

func (i Instruction) String() string {
	if i.Op.HasOperand() {
		return fmt.Sprintf("%s(%d)", i.Op, i.Arg)
	}
	return i.Op.String()
}
