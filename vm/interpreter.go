// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vm 字节码解释器
package vm

import (
	"github.com/33cn/functest/account"
	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/common/log"
	"github.com/33cn/functest/types"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

var vmlog = log.New("module", "vm")

// CallStackSizeLimit 调用深度上限
const CallStackSizeLimit = 256

// GlobalTagPrefix 全局槽位在发送者名下的资源前缀
const GlobalTagPrefix = "Global/"

// 转账失败时 Account 模块的 abort code
const (
	AbortAccountNotFound uint64 = 5
	AbortSendToSelf      uint64 = 6
	AbortNoBalance       uint64 = 10
)

// AccountModule 转账失败时报告的位置
var AccountModule = types.NewModuleID(types.CoreCodeAddress, "Account")

// statusError 携带执行结果的内部错误
type statusError struct {
	status types.VMStatus
}

func (e *statusError) Error() string {
	return e.status.String()
}

func fail(status types.VMStatus) error {
	return &statusError{status: status}
}

type frame struct {
	tables  *bytecode.Tables
	module  *bytecode.CompiledModule
	loc     string
	fn      uint16
	code    []bytecode.Instruction
	locals  []Value
	returns int
}

func (f *frame) failure(code types.StatusCode, pc int) error {
	return fail(types.ExecutionFailureStatus(code, f.loc, f.fn, uint16(pc)))
}

// Interpreter 解释器, 每笔交易一个实例
type Interpreter struct {
	session *Session
	gas     *GasMeter
	sender  types.AccountAddress
	reserve *uint256.Int
	stack   *Stack
	depth   int
}

// NewInterpreter new, reserve 为转账时发送者必须保留的余额(用于支付交易费)
func NewInterpreter(session *Session, gas *GasMeter, sender types.AccountAddress, reserve *uint256.Int) *Interpreter {
	if reserve == nil {
		reserve = new(uint256.Int)
	}
	return &Interpreter{
		session: session,
		gas:     gas,
		sender:  sender,
		reserve: reserve,
		stack:   NewStack(),
	}
}

// ExecuteScript 执行脚本的 main 函数
func (in *Interpreter) ExecuteScript(script *bytecode.CompiledScript, tyArgs []types.TypeTag, args []types.TransactionArgument) types.VMStatus {
	if len(tyArgs) != int(script.TypeParameters) {
		return types.ErrorStatus(types.StatusNumberOfTypeArgumentsMismatch)
	}
	if len(args) != int(script.Parameters) {
		return types.ErrorStatus(types.StatusNumberOfArgumentsMismatch)
	}
	locals := make([]Value, int(script.Parameters)+int(script.Locals))
	for i, arg := range args {
		v, ok := ValueFromArgument(arg)
		if !ok {
			return types.ErrorStatus(types.StatusTypeArgumentMismatch)
		}
		locals[i] = v
	}
	fr := &frame{
		tables: &script.Tables,
		loc:    types.LocationScript,
		code:   script.Code,
		locals: locals,
	}
	return in.finish(in.run(fr))
}

func (in *Interpreter) finish(err error) types.VMStatus {
	if err == nil {
		return types.ExecutedStatus()
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.status
	}
	vmlog.Error("execute", "sender", in.sender.Hex(), "err", err)
	return types.ErrorStatus(types.StatusStorageError)
}

func linkError(err error) error {
	if errors.Cause(err) == ErrModuleNotFound {
		return fail(types.ErrorStatus(types.StatusLinkerError))
	}
	var be *bytecode.BinaryError
	if errors.As(err, &be) {
		return fail(types.ErrorStatus(types.StatusLinkerError))
	}
	return err
}

// call 调用模块中第 idx 个函数定义, 参数已在栈上
func (in *Interpreter) call(m *bytecode.CompiledModule, idx int) error {
	if in.depth >= CallStackSizeLimit {
		return fail(types.ErrorStatus(types.StatusCallStackOverflow))
	}
	def := &m.FunctionDefs[idx]
	fh := m.FunctionHandles[def.Function]
	params := int(fh.Parameters)
	if err := in.stack.Require(params); err != nil {
		return fail(types.ErrorStatus(types.StatusEmptyValueStack))
	}
	locals := make([]Value, params+int(def.Locals))
	for i := params - 1; i >= 0; i-- {
		locals[i] = in.stack.Pop()
	}
	fr := &frame{
		tables:  &m.Tables,
		module:  m,
		loc:     m.Self().String(),
		fn:      uint16(idx),
		code:    def.Code,
		locals:  locals,
		returns: int(fh.Returns),
	}
	in.depth++
	defer func() { in.depth-- }()
	return in.run(fr)
}

// resolve 解析函数句柄对应的模块与函数定义
func (in *Interpreter) resolve(fr *frame, handle uint64) (*bytecode.CompiledModule, int, error) {
	fh := fr.tables.FunctionHandles[handle]
	name := fr.tables.Identifier(uint64(fh.Name))
	target := fr.module
	if fr.module == nil || fh.Module != bytecode.SelfModuleHandleIndex {
		if int(fh.Module) >= len(fr.tables.ModuleHandles) {
			return nil, 0, fail(types.ErrorStatus(types.StatusLinkerError))
		}
		id, ok := fr.tables.ModuleID(fr.tables.ModuleHandles[fh.Module])
		if !ok {
			return nil, 0, fail(types.ErrorStatus(types.StatusLinkerError))
		}
		m, err := in.session.LoadModule(id)
		if err != nil {
			return nil, 0, linkError(err)
		}
		target = m
	}
	def, idx, ok := target.FindFunction(name)
	if !ok || (target != fr.module && !def.Public) {
		return nil, 0, fail(types.ErrorStatus(types.StatusLinkerError))
	}
	callee := target.FunctionHandles[def.Function]
	if callee.Parameters != fh.Parameters || callee.Returns != fh.Returns {
		return nil, 0, fail(types.ErrorStatus(types.StatusLinkerError))
	}
	return target, idx, nil
}

func (in *Interpreter) run(fr *frame) error {
	pc := 0
	for pc < len(fr.code) {
		ins := fr.code[pc]
		if err := in.gas.Charge(InstructionCost(ins.Op)); err != nil {
			return fail(types.ErrorStatus(types.StatusOutOfGas))
		}
		pops, _, ok := ins.Op.StackEffect()
		if ok {
			if err := in.stack.Require(pops); err != nil {
				return fail(types.ErrorStatus(types.StatusEmptyValueStack))
			}
		}
		next := pc + 1
		switch ins.Op {
		case bytecode.OpPop:
			in.stack.Pop()
		case bytecode.OpRet:
			if err := in.stack.Require(fr.returns); err != nil {
				return fail(types.ErrorStatus(types.StatusEmptyValueStack))
			}
			return nil
		case bytecode.OpBrTrue, bytecode.OpBrFalse:
			cond := in.stack.Pop()
			if cond.Kind != KindBool {
				return fr.failure(types.StatusRuntimeTypeMismatch, pc)
			}
			if cond.Bool == (ins.Op == bytecode.OpBrTrue) {
				next = int(ins.Arg)
			}
		case bytecode.OpBranch:
			next = int(ins.Arg)
		case bytecode.OpLdU64:
			in.stack.Push(U64(ins.Arg))
		case bytecode.OpLdTrue:
			in.stack.Push(Bool(true))
		case bytecode.OpLdFalse:
			in.stack.Push(Bool(false))
		case bytecode.OpLdAddr:
			in.stack.Push(Address(fr.tables.AddressIdentifiers[ins.Arg]))
		case bytecode.OpCopyLoc:
			v := fr.locals[ins.Arg]
			if v.Kind == 0 {
				return fr.failure(types.StatusRuntimeTypeMismatch, pc)
			}
			in.stack.Push(v)
		case bytecode.OpStLoc:
			fr.locals[ins.Arg] = in.stack.Pop()
		case bytecode.OpCall:
			m, idx, err := in.resolve(fr, ins.Arg)
			if err != nil {
				return err
			}
			if err := in.call(m, idx); err != nil {
				return err
			}
		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
			if err := in.arith(fr, pc, ins.Op); err != nil {
				return err
			}
		case bytecode.OpLt, bytecode.OpGt, bytecode.OpLe, bytecode.OpGe:
			b, a := in.stack.Pop(), in.stack.Pop()
			if a.Kind != KindU64 || b.Kind != KindU64 {
				return fr.failure(types.StatusRuntimeTypeMismatch, pc)
			}
			in.stack.Push(Bool(compare(ins.Op, a.U64, b.U64)))
		case bytecode.OpEq, bytecode.OpNeq:
			b, a := in.stack.Pop(), in.stack.Pop()
			if a.Kind != b.Kind {
				return fr.failure(types.StatusRuntimeTypeMismatch, pc)
			}
			in.stack.Push(Bool(a.Equal(b) == (ins.Op == bytecode.OpEq)))
		case bytecode.OpAnd, bytecode.OpOr:
			b, a := in.stack.Pop(), in.stack.Pop()
			if a.Kind != KindBool || b.Kind != KindBool {
				return fr.failure(types.StatusRuntimeTypeMismatch, pc)
			}
			if ins.Op == bytecode.OpAnd {
				in.stack.Push(Bool(a.Bool && b.Bool))
			} else {
				in.stack.Push(Bool(a.Bool || b.Bool))
			}
		case bytecode.OpNot:
			a := in.stack.Pop()
			if a.Kind != KindBool {
				return fr.failure(types.StatusRuntimeTypeMismatch, pc)
			}
			in.stack.Push(Bool(!a.Bool))
		case bytecode.OpAbort:
			code := in.stack.Pop()
			if code.Kind != KindU64 {
				return fr.failure(types.StatusRuntimeTypeMismatch, pc)
			}
			return fail(types.AbortStatus(fr.loc, code.U64))
		case bytecode.OpGetTxnSender:
			in.stack.Push(Address(in.sender))
		case bytecode.OpEmit:
			v := in.stack.Pop()
			if v.Kind != KindU64 {
				return fr.failure(types.StatusRuntimeTypeMismatch, pc)
			}
			in.session.Emit(&types.ContractEvent{
				Sender:         in.sender,
				SequenceNumber: uint64(len(in.session.Events())),
				Tag:            fr.tables.Identifier(ins.Arg),
				Value:          v.U64,
			})
		case bytecode.OpStoreGlobal:
			if err := in.storeGlobal(fr.tables.Identifier(ins.Arg), in.stack.Pop()); err != nil {
				return err
			}
		case bytecode.OpLoadGlobal:
			v, found, err := in.loadGlobal(fr.tables.Identifier(ins.Arg))
			if err != nil {
				return err
			}
			if !found {
				return fr.failure(types.StatusResourceDoesNotExist, pc)
			}
			in.stack.Push(v)
		case bytecode.OpTransfer:
			amount, payee := in.stack.Pop(), in.stack.Pop()
			if amount.Kind != KindU64 || payee.Kind != KindAddress {
				return fr.failure(types.StatusRuntimeTypeMismatch, pc)
			}
			if err := in.transfer(payee.Addr, amount.U64); err != nil {
				return err
			}
		default:
			return fail(types.ErrorStatus(types.StatusUnknownOpcode))
		}
		pc = next
	}
	return fr.failure(types.StatusUnknownInvariantViolationError, pc)
}

func (in *Interpreter) arith(fr *frame, pc int, op bytecode.Opcode) error {
	b, a := in.stack.Pop(), in.stack.Pop()
	if a.Kind != KindU64 || b.Kind != KindU64 {
		return fr.failure(types.StatusRuntimeTypeMismatch, pc)
	}
	x, y := a.U64, b.U64
	var r uint64
	switch op {
	case bytecode.OpAdd:
		r = x + y
		if r < x {
			return fr.failure(types.StatusArithmeticError, pc)
		}
	case bytecode.OpSub:
		if x < y {
			return fr.failure(types.StatusArithmeticError, pc)
		}
		r = x - y
	case bytecode.OpMul:
		if x != 0 && y > ^uint64(0)/x {
			return fr.failure(types.StatusArithmeticError, pc)
		}
		r = x * y
	case bytecode.OpDiv, bytecode.OpMod:
		if y == 0 {
			return fr.failure(types.StatusArithmeticError, pc)
		}
		if op == bytecode.OpDiv {
			r = x / y
		} else {
			r = x % y
		}
	}
	in.stack.Push(U64(r))
	return nil
}

func compare(op bytecode.Opcode, a, b uint64) bool {
	switch op {
	case bytecode.OpLt:
		return a < b
	case bytecode.OpGt:
		return a > b
	case bytecode.OpLe:
		return a <= b
	}
	return a >= b
}

// GlobalPath 发送者名下全局槽位的路径
func GlobalPath(addr types.AccountAddress, name string) *types.AccessPath {
	return types.ResourceAccessPath(addr, GlobalTagPrefix+name)
}

func (in *Interpreter) storeGlobal(name string, v Value) error {
	data, err := types.Encode(&v)
	if err != nil {
		return err
	}
	return in.session.Set(GlobalPath(in.sender, name), data)
}

func (in *Interpreter) loadGlobal(name string) (Value, bool, error) {
	var v Value
	data, err := in.session.Get(GlobalPath(in.sender, name))
	if err != nil || data == nil {
		return v, false, err
	}
	if err := types.Decode(data, &v); err != nil {
		return v, false, err
	}
	return v, true, nil
}

func (in *Interpreter) transfer(payee types.AccountAddress, amount uint64) error {
	db := account.NewDB(in.session)
	err := db.Transfer(in.sender, payee, uint256.NewInt(amount), in.reserve)
	switch errors.Cause(err) {
	case nil:
		return nil
	case types.ErrNoBalance, types.ErrBalanceNotFound:
		return fail(types.AbortStatus(AccountModule.String(), AbortNoBalance))
	case types.ErrAccountNotFound:
		return fail(types.AbortStatus(AccountModule.String(), AbortAccountNotFound))
	case types.ErrSendSameToRecv:
		return fail(types.AbortStatus(AccountModule.String(), AbortSendToSelf))
	}
	return err
}
