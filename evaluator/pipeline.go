// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaluator

import (
	"fmt"
	"time"

	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/compiler"
	"github.com/33cn/functest/types"
	"github.com/pkg/errors"
)

// stageError 阶段失败: 记录到日志, 本条命令结束, 评估继续
type stageError struct {
	stage Stage
	err   error
}

func (r *runner) failStage(s Stage, err error) *stageError {
	r.metrics.stageFailed(s)
	return &stageError{stage: s, err: err}
}

// evalTransaction 依次执行 Compiler -> Verifier -> Serializer -> Runtime.
// 返回的 error 只表示致命错误; 阶段失败通过 *stageError 返回
func (r *runner) evalTransaction(cfg *TransactionConfig, input string) (*stageError, error) {
	plan := stagePlan{disabled: cfg.DisabledStages}
	sender := cfg.Sender.Address()
	r.logger.Debug("evalTransaction", "sender", cfg.Sender.Name, "signType", cfg.Sender.SignType(), "disabled", cfg.DisabledStages.List())

	// Compiler
	if plan.gate(Compiler) == gateStop {
		return nil, nil
	}
	r.log.Append(StageEntry(Compiler))
	start := time.Now()
	unit, err := r.compile(sender, input)
	r.metrics.observeStage(Compiler, start)
	if err != nil {
		return r.failStage(Compiler, compileError(err)), nil
	}
	if unit == nil || (unit.Script == nil) == (unit.Module == nil) {
		return nil, invariantViolation("compiler must produce exactly one of script or module")
	}
	if unit.Script != nil {
		r.log.Append(OutputEntry{Output: &OutputType{Kind: CompiledScriptOutput, Script: unit.Script}})
	} else {
		r.log.Append(OutputEntry{Output: &OutputType{Kind: CompiledModuleOutput, Module: unit.Module}})
	}

	// Verifier
	if plan.gate(Verifier) == gateStop {
		return nil, nil
	}
	r.log.Append(StageEntry(Verifier))
	start = time.Now()
	err = r.verify(unit)
	r.metrics.observeStage(Verifier, start)
	if err != nil {
		return r.failStage(Verifier, err), nil
	}

	// Serializer
	switch plan.gate(Serializer) {
	case gateStop:
		return nil, nil
	case gateRun:
		r.log.Append(StageEntry(Serializer))
		start = time.Now()
		err = roundTrip(unit)
		r.metrics.observeStage(Serializer, start)
		if err != nil {
			return r.failStage(Serializer, err), nil
		}
	}

	// Runtime
	if plan.gate(Runtime) == gateStop {
		return nil, nil
	}
	r.log.Append(StageEntry(Runtime))
	start = time.Now()
	failed, err := r.runTransaction(cfg, unit)
	r.metrics.observeStage(Runtime, start)
	if err != nil || failed == nil {
		return nil, err
	}
	return r.failStage(Runtime, failed), nil
}

// compile 预编译脚本直接使用, 其他输入交给编译器. 编译器输出的日志即时写入评估日志,
// 编译失败时也保留
func (r *runner) compile(sender types.AccountAddress, input string) (*compiler.ScriptOrModule, error) {
	if script, ok := PrecompiledScript(input); ok {
		return &compiler.ScriptOrModule{Script: script}, nil
	}
	return r.compiler.Compile(func(l string) {
		r.log.Append(OutputEntry{Output: &OutputType{Kind: CompilerLogOutput, Log: l}})
	}, sender, input)
}

// verify 先做单元自身的校验, 再解析依赖做链接校验
func (r *runner) verify(unit *compiler.ScriptOrModule) error {
	if unit.Script != nil {
		if err := r.verifier.VerifyScript(unit.Script); err != nil {
			return verificationError(vmStatusOf(err, types.StatusUnknownVerificationError), err)
		}
		deps := ResolveDependencies(r.env.StateView(), r.verifier, unit.Script)
		if err := r.verifier.VerifyScriptDependencies(unit.Script, deps); err != nil {
			return verificationError(vmStatusOf(err, types.StatusUnknownVerificationError), err)
		}
		return nil
	}
	if err := r.verifier.VerifyModule(unit.Module); err != nil {
		return verificationError(vmStatusOf(err, types.StatusUnknownVerificationError), err)
	}
	deps := ResolveDependencies(r.env.StateView(), r.verifier, unit.Module)
	if err := r.verifier.VerifyModuleDependencies(unit.Module, deps); err != nil {
		return verificationError(vmStatusOf(err, types.StatusUnknownVerificationError), err)
	}
	return nil
}

const deserializedMismatch = "deserialized %s different from original one"

// roundTrip 序列化后再反序列化, 结果必须与原单元结构相等
func roundTrip(unit *compiler.ScriptOrModule) error {
	blob, err := unit.Unit().Serialize()
	if err != nil {
		return otherError("serialize: %v", err)
	}
	if unit.Script != nil {
		got, err := bytecode.DeserializeScript(blob)
		if err != nil {
			return &Error{Kind: SerializationMismatch, Status: vmStatusOf(err, types.StatusUnknownBinaryError), Detail: err.Error(), cause: err}
		}
		if !got.Equal(unit.Script) {
			return &Error{Kind: SerializationMismatch, Detail: fmt.Sprintf(deserializedMismatch, "script")}
		}
		return nil
	}
	got, err := bytecode.DeserializeModule(blob)
	if err != nil {
		return &Error{Kind: SerializationMismatch, Status: vmStatusOf(err, types.StatusUnknownBinaryError), Detail: err.Error(), cause: err}
	}
	if !got.Equal(unit.Module) {
		return &Error{Kind: SerializationMismatch, Detail: fmt.Sprintf(deserializedMismatch, "module")}
	}
	return nil
}

// runTransaction 构造, 签名并在单独的区块中执行交易.
// 被保留的交易提交写集合; 未成功执行的交易返回 ExecutionFailure
func (r *runner) runTransaction(cfg *TransactionConfig, unit *compiler.ScriptOrModule) (*Error, error) {
	var (
		tx  *types.SignedUserTransaction
		err error
	)
	if unit.Script != nil {
		tx, err = makeScriptTransaction(r.env, r.cfg.Evaluator, cfg, unit.Script)
	} else {
		tx, err = makeModuleTransaction(r.env, r.cfg.Evaluator, cfg, unit.Module)
	}
	if err != nil {
		return nil, errors.Wrap(err, "build transaction")
	}
	results, err := r.env.ExecuteBlock([]*types.SignedUserTransaction{tx})
	if err != nil {
		return nil, errors.Wrap(err, "execute block")
	}
	if len(results) != 1 {
		return nil, invariantViolation("expected 1 transaction output, got %d", len(results))
	}
	res := results[0]
	out := res.Output
	if out.Status.IsDiscard() {
		if !out.WriteSet.IsEmpty() {
			return nil, invariantViolation("discarded transaction has a non-empty write set")
		}
		return discardedTransaction(out), nil
	}
	if err := r.env.ApplyWriteSet(out.WriteSet); err != nil {
		return nil, errors.Wrap(err, "apply write set")
	}
	r.metrics.gas(out.GasUsed)
	if !out.Status.IsExecuted() {
		return executionFailure(res.Status, out), nil
	}
	r.log.Append(OutputEntry{Output: &OutputType{Kind: TransactionOutputOutput, TxnOutput: out}})
	return nil, nil
}
