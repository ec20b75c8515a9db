// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaluator

import (
	"testing"

	"github.com/33cn/functest/account"
	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/common/crypto"
	"github.com/33cn/functest/compiler"
	"github.com/33cn/functest/executor"
	"github.com/33cn/functest/types"
	"github.com/33cn/functest/verifier"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testConfig = `
Title = "evaluator"

[evaluator]
genesisTimestamp = 100

[[account]]
name = "alice"
balance = "1000000"

[[account]]
name = "bob"
balance = "500"
sequenceNumber = 3
`

const emptyScript = `
script
fun main
    ret
end
`

// main 结束时栈上多出一个值, 编译通过但校验失败
const unbalancedScript = `
script
fun main
    ld_true
    ret
end
`

const abortScript = `
script
fun main
    ld_u64 9
    abort
end
`

const tokenModule = `
module Token
public fun double params=1 returns=1
    copy_loc 0
    ld_u64 2
    mul
    ret
end
`

func newGlobalConfig(t *testing.T) *GlobalConfig {
	cfg, err := types.InitCfgString(testConfig)
	require.NoError(t, err)
	g, err := NewGlobalConfig(cfg)
	require.NoError(t, err)
	return g
}

func newEnv(t *testing.T, g *GlobalConfig) *executor.FakeExecutor {
	exec, err := executor.NewFakeExecutor(g.Evaluator)
	require.NoError(t, err)
	return exec
}

func txn(t *testing.T, g *GlobalConfig, sender, input string, disabled ...Stage) *TransactionCommand {
	acc, err := g.Account(sender)
	require.NoError(t, err)
	cfg := NewTransactionConfig(acc)
	for _, s := range disabled {
		cfg.DisabledStages[s] = true
	}
	return &TransactionCommand{Config: cfg, Input: input}
}

func blockMeta(ts, number uint64) *BlockMetadataCommand {
	return &BlockMetadataCommand{Metadata: &types.BlockMetadata{Timestamp: ts, Number: number, ChainID: types.TestChainID}}
}

func markers(l *EvaluationLog) []string {
	var list []string
	for _, o := range l.Outputs {
		switch o.(type) {
		case TransactionEntry, StageEntry, StatusEntry:
			list = append(list, o.String())
		case OutputEntry:
			list = append(list, "Output")
		case ErrorEntry:
			list = append(list, "Error")
		}
	}
	return list
}

func errorAt(t *testing.T, l *EvaluationLog, n int) *Error {
	var found []*Error
	for _, o := range l.Outputs {
		if e, ok := o.(ErrorEntry); ok {
			ee, ok := e.Err.(*Error)
			require.True(t, ok, "%T", e.Err)
			found = append(found, ee)
		}
	}
	require.True(t, len(found) > n, "only %d errors in log", len(found))
	return found[n]
}

func TestEvalMixedCommands(t *testing.T) {
	g := newGlobalConfig(t)
	commands := []Command{
		txn(t, g, "alice", emptyScript),
		txn(t, g, "alice", unbalancedScript),
		blockMeta(1000, 1),
	}
	l, err := Eval(g, compiler.Assembler{}, commands)
	require.NoError(t, err)
	assert.Equal(t, []Status{Success, Failure, Success}, l.Statuses())
	assert.Equal(t, []FailedTransaction{{Index: 1, Stage: Verifier}}, l.FailedTransactions())
	assert.Equal(t, []string{
		"Transaction 0", "Stage: Compiler", "Output", "Stage: Verifier", "Stage: Serializer", "Stage: Runtime", "Output", "Status: Success",
		"Transaction 1", "Stage: Compiler", "Output", "Stage: Verifier", "Error", "Status: Failure",
		"Output", "Status: Success",
	}, markers(l))
	e := errorAt(t, l, 0)
	assert.Equal(t, VerificationError, e.Kind)
	assert.Equal(t, types.StatusPositiveStackSizeAtBlockEnd, e.Status.StatusCode)
}

func TestEvalOnlyCompiler(t *testing.T) {
	g := newGlobalConfig(t)
	l, err := Eval(g, compiler.Assembler{}, []Command{txn(t, g, "alice", emptyScript, Verifier, Serializer, Runtime)})
	require.NoError(t, err)
	require.Len(t, l.Outputs, 4)
	assert.Equal(t, TransactionEntry(0), l.Outputs[0])
	assert.Equal(t, StageEntry(Compiler), l.Outputs[1])
	out, ok := l.Outputs[2].(OutputEntry)
	require.True(t, ok)
	assert.Equal(t, CompiledScriptOutput, out.Output.Kind)
	assert.Equal(t, StatusEntry(Success), l.Outputs[3])
}

func TestEvalStageSkip(t *testing.T) {
	g := newGlobalConfig(t)
	commands := []Command{
		txn(t, g, "alice", emptyScript, Serializer),
		txn(t, g, "alice", emptyScript, Runtime),
		txn(t, g, "alice", emptyScript, Compiler),
		txn(t, g, "alice", emptyScript, Verifier),
	}
	l, err := Eval(g, compiler.Assembler{}, commands)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Transaction 0", "Stage: Compiler", "Output", "Stage: Verifier", "Stage: Runtime", "Output", "Status: Success",
		"Transaction 1", "Stage: Compiler", "Output", "Stage: Verifier", "Stage: Serializer", "Status: Success",
		"Transaction 2", "Status: Success",
		"Transaction 3", "Stage: Compiler", "Output", "Status: Success",
	}, markers(l))
	assert.Empty(t, l.FailedTransactions())
}

func TestStagePlan(t *testing.T) {
	p := stagePlan{disabled: NewStageSet()}
	for _, s := range []Stage{Compiler, Verifier, Serializer, Runtime} {
		assert.Equal(t, gateRun, p.gate(s))
	}
	p = stagePlan{disabled: NewStageSet(Serializer, Verifier)}
	assert.Equal(t, gateRun, p.gate(Compiler))
	assert.Equal(t, gateStop, p.gate(Verifier))
	assert.Equal(t, gateSkip, p.gate(Serializer))
	assert.Equal(t, []Stage{Verifier, Serializer}, p.disabled.List())

	s, err := ParseStage("runtime")
	require.NoError(t, err)
	assert.Equal(t, Runtime, s)
	_, err = ParseStage("Runtime")
	assert.Equal(t, types.ErrUnknownStage, errors.Cause(err))
}

func TestEvalDependencies(t *testing.T) {
	g := newGlobalConfig(t)
	alice, err := g.Account("alice")
	require.NoError(t, err)
	token := alice.Address().Hex() + "::Token"
	user := `
module User
import ` + token + `
import 0x1::Missing
public fun quad params=1 returns=1
    copy_loc 0
    call Token::double 1 1
    call Token::double 1 1
    ret
end
`
	broken := `
module Broken
import ` + token + `
import 0x1::Missing
public fun run
    call Missing::f
    ret
end
`
	env := newEnv(t, g)
	l, err := EvalWithExecutor(g, compiler.Assembler{}, env, []Command{
		txn(t, g, "alice", tokenModule),
		txn(t, g, "alice", user),
		txn(t, g, "alice", broken),
	})
	require.NoError(t, err)
	assert.Equal(t, []Status{Success, Success, Failure}, l.Statuses())
	assert.Equal(t, []FailedTransaction{{Index: 2, Stage: Verifier}}, l.FailedTransactions())
	assert.Equal(t, types.StatusMissingDependency, errorAt(t, l, 0).Status.StatusCode)

	unit, err := compiler.Assembler{}.Compile(nil, alice.Address(), user)
	require.NoError(t, err)
	deps := ResolveDependencies(env.StateView(), verifier.Default{}, unit.Module)
	require.Len(t, deps, 1)
	assert.Equal(t, types.NewModuleID(alice.Address(), "Token"), deps[0].Self())
}

func TestResolveDependenciesSkipsInvalid(t *testing.T) {
	g := newGlobalConfig(t)
	env := newEnv(t, g)
	alice, err := g.Account("alice")
	require.NoError(t, err)
	bad := types.NewModuleID(alice.Address(), "Bad")
	ws := types.NewWriteSet()
	ws.Put(types.CodeAccessPath(bad), []byte{1, 2, 3})
	require.NoError(t, env.ApplyWriteSet(ws))

	script := &bytecode.CompiledScript{
		Version: bytecode.Version,
		Tables: bytecode.Tables{
			ModuleHandles:      []bytecode.ModuleHandle{{Address: 0, Name: 0}, {Address: 0, Name: 1}},
			Identifiers:        []string{"Bad", "Absent"},
			AddressIdentifiers: []types.AccountAddress{alice.Address()},
		},
		Code: []bytecode.Instruction{{Op: bytecode.OpRet}},
	}
	assert.Empty(t, ResolveDependencies(env.StateView(), verifier.Default{}, script))
}

func TestEvalRuntimeOutcomes(t *testing.T) {
	g := newGlobalConfig(t)
	env := newEnv(t, g)
	tooNew := txn(t, g, "alice", emptyScript)
	seq := uint64(10)
	tooNew.Config.SequenceNumber = &seq
	l, err := EvalWithExecutor(g, compiler.Assembler{}, env, []Command{
		txn(t, g, "alice", abortScript),
		tooNew,
	})
	require.NoError(t, err)
	assert.Equal(t, []FailedTransaction{{Index: 0, Stage: Runtime}, {Index: 1, Stage: Runtime}}, l.FailedTransactions())

	e := errorAt(t, l, 0)
	assert.Equal(t, ExecutionFailure, e.Kind)
	assert.Equal(t, types.VMStatusMoveAbort, e.Status.Kind)
	assert.Equal(t, uint64(9), e.Status.AbortCode)
	assert.Contains(t, e.Error(), "ExecutionFailure(")

	e = errorAt(t, l, 1)
	assert.Equal(t, DiscardedTransaction, e.Kind)
	assert.Equal(t, types.StatusSequenceNumberTooNew, e.Status.StatusCode)

	// 执行失败的交易也提交了写集合
	alice, err := g.Account("alice")
	require.NoError(t, err)
	res, err := env.ReadAccountResource(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.SequenceNumber)
}

func TestEvalPrecompiled(t *testing.T) {
	assert.Equal(t, []string{"empty_script", "peer_to_peer"}, PrecompiledNames())
	s1, ok := PrecompiledScript(PrecompiledPrefix + "empty_script")
	require.True(t, ok)
	s2, _ := PrecompiledScript(PrecompiledPrefix + "empty_script")
	assert.NotSame(t, s1, s2)
	_, ok = PrecompiledScript("empty_script")
	assert.False(t, ok)

	g := newGlobalConfig(t)
	env := newEnv(t, g)
	bob, err := g.Account("bob")
	require.NoError(t, err)
	pay := txn(t, g, "alice", PrecompiledPrefix+"peer_to_peer")
	pay.Config.Args = []types.TransactionArgument{types.AddressArgument(bob.Address()), types.U64Argument(100)}
	l, err := EvalWithExecutor(g, compiler.Assembler{}, env, []Command{
		pay,
		txn(t, g, "alice", PrecompiledPrefix+"nope"),
	})
	require.NoError(t, err)
	assert.Equal(t, []Status{Success, Failure}, l.Statuses())
	assert.Equal(t, []FailedTransaction{{Index: 1, Stage: Compiler}}, l.FailedTransactions())
	assert.Equal(t, CompileError, errorAt(t, l, 0).Kind)

	bal, err := env.ReadBalanceResource(bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), bal.Balance().Uint64())
	res, err := env.ReadAccountResource(bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.SequenceNumber)
}

func TestEvalBlockMetadata(t *testing.T) {
	g := newGlobalConfig(t)
	env := newEnv(t, g)
	wrongChain := blockMeta(3000, 2)
	wrongChain.Metadata.ChainID = types.TestChainID + 1
	l, err := EvalWithExecutor(g, compiler.Assembler{}, env, []Command{
		blockMeta(1000, 1),
		blockMeta(2000, 5),
		blockMeta(500, 2),
		wrongChain,
	})
	require.NoError(t, err)
	assert.Equal(t, []Status{Success, Failure, Failure, Failure}, l.Statuses())
	assert.Equal(t, VerificationError, errorAt(t, l, 0).Kind)
	assert.Equal(t, types.StatusInvalidBlockNumber, errorAt(t, l, 0).Status.StatusCode)
	assert.Equal(t, types.StatusInvalidBlockTimestamp, errorAt(t, l, 1).Status.StatusCode)
	assert.Equal(t, Other, errorAt(t, l, 2).Kind)

	ts, err := env.ReadTimestamp()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), ts)

	// 元数据失败前没有 Stage, 无法定位失败阶段
	assert.Panics(t, func() { l.FailedTransactions() })
}

type mockEnv struct {
	*executor.FakeExecutor
	mock.Mock
}

func (m *mockEnv) ExecuteBlock(txs []*types.SignedUserTransaction) ([]*types.TransactionResult, error) {
	args := m.Called(txs)
	results, _ := args.Get(0).([]*types.TransactionResult)
	return results, args.Error(1)
}

func TestEvalInvariantViolation(t *testing.T) {
	g := newGlobalConfig(t)
	alice, err := g.Account("alice")
	require.NoError(t, err)
	ws := types.NewWriteSet()
	ws.Put(account.AccountResourcePath(alice.Address()), []byte{1})
	discarded := &types.TransactionResult{
		Status: types.ErrorStatus(types.StatusSequenceNumberTooOld),
		Output: types.NewTransactionOutput(ws, nil, 0, types.DiscardStatus(types.StatusSequenceNumberTooOld)),
	}

	cases := []struct {
		name    string
		results []*types.TransactionResult
	}{
		{"discard with writes", []*types.TransactionResult{discarded}},
		{"no output", []*types.TransactionResult{}},
		{"two outputs", []*types.TransactionResult{discarded, discarded}},
	}
	for _, c := range cases {
		env := &mockEnv{FakeExecutor: newEnv(t, g)}
		env.On("ExecuteBlock", mock.Anything).Return(c.results, nil).Once()
		l, err := EvalWithExecutor(g, compiler.Assembler{}, env, []Command{
			txn(t, g, "alice", emptyScript),
			txn(t, g, "alice", emptyScript),
		})
		require.Error(t, err, c.name)
		assert.Equal(t, types.ErrInvariantViolation, errors.Cause(err), c.name)
		assert.Empty(t, l.Statuses(), c.name)
		env.AssertExpectations(t)
	}

	env := &mockEnv{FakeExecutor: newEnv(t, g)}
	env.On("ExecuteBlock", mock.Anything).Return(nil, errors.New("boom")).Once()
	_, err = EvalWithExecutor(g, compiler.Assembler{}, env, []Command{txn(t, g, "alice", emptyScript)})
	assert.EqualError(t, err, "execute block: boom")
}

func TestTransactionParameters(t *testing.T) {
	g := newGlobalConfig(t)
	env := newEnv(t, g)
	l, err := EvalWithExecutor(g, compiler.Assembler{}, env, nil)
	require.NoError(t, err)
	assert.Zero(t, l.Len())

	alice, err := g.Account("alice")
	require.NoError(t, err)
	cfg := NewTransactionConfig(alice)
	p, err := transactionParameters(env, g.Evaluator, cfg)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultMaxGasUnits, p.MaxGasAmount)
	assert.Equal(t, uint64(100+types.DefaultExpirationOffset), p.ExpirationTimestampSecs)
	assert.Equal(t, uint64(0), p.SequenceNumber)

	price, expire, seq := uint64(10), uint64(60), uint64(7)
	cfg.GasPrice, cfg.ExpirationTime, cfg.SequenceNumber = &price, &expire, &seq
	p, err = transactionParameters(env, g.Evaluator, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(100000), p.MaxGasAmount)
	assert.Equal(t, uint64(160), p.ExpirationTimestampSecs)
	assert.Equal(t, uint64(7), p.SequenceNumber)

	// 未写入的账户
	_, err = transactionParameters(env, g.Evaluator, NewTransactionConfig(account.NewAccount("ghost")))
	assert.Equal(t, types.ErrAccountNotFound, errors.Cause(err))
}

func TestGenesisAccountSetup(t *testing.T) {
	g := newGlobalConfig(t)
	env := newEnv(t, g)
	root, err := g.Account(types.GenesisAccountName)
	require.NoError(t, err)
	_, err = EvalWithExecutor(g, compiler.Assembler{}, env, []Command{txn(t, g, types.GenesisAccountName, emptyScript)})
	require.NoError(t, err)
	res, err := env.ReadAccountResource(root)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.SequenceNumber)

	bob, err := g.Account("bob")
	require.NoError(t, err)
	res, err = env.ReadAccountResource(bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.SequenceNumber)
}

func TestGenesisAccountWithoutBalance(t *testing.T) {
	g := newGlobalConfig(t)
	env := newEnv(t, g)
	root, err := g.Account(types.GenesisAccountName)
	require.NoError(t, err)
	ws := types.NewWriteSet()
	ws.Delete(account.BalanceResourcePath(root.Address()))
	require.NoError(t, env.ApplyWriteSet(ws))

	_, err = EvalWithExecutor(g, compiler.Assembler{}, env, nil)
	require.NoError(t, err)
	bal, err := env.ReadBalanceResource(root)
	require.NoError(t, err)
	require.NotNil(t, bal)
	assert.True(t, bal.Balance().IsZero())
	res, err := env.ReadAccountResource(root)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), res.SequenceNumber)
}

func TestEvalSm2Account(t *testing.T) {
	cfg, err := types.InitCfgString(testConfig + `
[[account]]
name = "dave"
balance = "1000000"
signType = "sm2"
`)
	require.NoError(t, err)
	g, err := NewGlobalConfig(cfg)
	require.NoError(t, err)
	dave, err := g.Account("dave")
	require.NoError(t, err)
	assert.Equal(t, "sm2", dave.SignType())
	alice, err := g.Account("alice")
	require.NoError(t, err)
	assert.Equal(t, types.DefaultSignType, alice.SignType())

	env := newEnv(t, g)
	l, err := EvalWithExecutor(g, compiler.Assembler{}, env, []Command{txn(t, g, "dave", emptyScript)})
	require.NoError(t, err)
	assert.Equal(t, []Status{Success}, l.Statuses())
	res, err := env.ReadAccountResource(dave)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.SequenceNumber)

	cfg, err = types.InitCfgString("[[account]]\nname=\"erin\"\nsignType=\"ed25519\"\n")
	require.NoError(t, err)
	_, err = NewGlobalConfig(cfg)
	assert.Equal(t, crypto.ErrUnknownDriver, errors.Cause(err))
}

func TestEvaluationLogString(t *testing.T) {
	l := NewEvaluationLog()
	l.Append(TransactionEntry(0))
	l.Append(StageEntry(Serializer))
	l.Append(ErrorEntry{Err: &Error{Kind: SerializationMismatch, Detail: "deserialized script different from original one"}})
	l.Append(StatusEntry(Failure))
	assert.Equal(t, "[0] Transaction 0\n"+
		"[1] Stage: Serializer\n"+
		"[2] Error: SerializationMismatch(deserialized script different from original one)\n"+
		"[3] Status: Failure\n", l.String())
	assert.True(t, IsError(l.Outputs[2]))
	assert.Equal(t, []FailedTransaction{{Index: 0, Stage: Serializer}}, l.FailedTransactions())

	l = NewEvaluationLog()
	l.Append(TransactionEntry(0))
	l.Append(StatusEntry(Failure))
	assert.Panics(t, func() { l.FailedTransactions() })
}

func TestRoundTrip(t *testing.T) {
	unit, err := compiler.Assembler{}.Compile(nil, types.CoreCodeAddress, tokenModule)
	require.NoError(t, err)
	require.NoError(t, roundTrip(unit))

	// 无操作数的指令不序列化 Arg, 反序列化后结构不同
	changed := unit.Clone()
	changed.Module.FunctionDefs[0].Code[3].Arg = 7
	err = roundTrip(changed)
	require.Error(t, err)
	assert.Equal(t, SerializationMismatch, err.(*Error).Kind)
	assert.EqualError(t, err, "SerializationMismatch(deserialized module different from original one)")

	script, err := compiler.Assembler{}.Compile(nil, types.CoreCodeAddress, emptyScript)
	require.NoError(t, err)
	require.NoError(t, roundTrip(script))
	script.Script.Code[0].Arg = 1
	err = roundTrip(script)
	require.Error(t, err)
	assert.EqualError(t, err, "SerializationMismatch(deserialized script different from original one)")

	// 未知指令无法序列化
	unit.Module.FunctionDefs[0].Code[0].Op = bytecode.Opcode(200)
	err = roundTrip(unit)
	require.Error(t, err)
	assert.Equal(t, Other, err.(*Error).Kind)
}

type stubCompiler struct {
	lines []string
	unit  *compiler.ScriptOrModule
	err   error
}

func (c stubCompiler) Compile(sink func(string), _ types.AccountAddress, _ string) (*compiler.ScriptOrModule, error) {
	for _, l := range c.lines {
		sink(l)
	}
	return c.unit, c.err
}

func TestEvalCompilerLog(t *testing.T) {
	g := newGlobalConfig(t)
	c := stubCompiler{lines: []string{"warning: unused import 0x1::Token"}, err: errors.New("boom")}
	l, err := Eval(g, c, []Command{txn(t, g, "alice", "anything")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Transaction 0", "Stage: Compiler", "Output", "Error", "Status: Failure"}, markers(l))
	out := l.Outputs[2].(OutputEntry)
	assert.Equal(t, CompilerLogOutput, out.Output.Kind)
	assert.Equal(t, "warning: unused import 0x1::Token", out.Output.Log)
	assert.Equal(t, CompileError, errorAt(t, l, 0).Kind)
	assert.Equal(t, []FailedTransaction{{Index: 0, Stage: Compiler}}, l.FailedTransactions())

	// 编译成功时日志在编译产物之前
	src := "script\nimport 0x1::Token\nfun main\n    ret\nend\n"
	l, err = Eval(g, compiler.Assembler{}, []Command{txn(t, g, "alice", src, Verifier)})
	require.NoError(t, err)
	require.Len(t, l.Outputs, 5)
	assert.Equal(t, CompilerLogOutput, l.Outputs[2].(OutputEntry).Output.Kind)
	assert.Equal(t, CompiledScriptOutput, l.Outputs[3].(OutputEntry).Output.Kind)
}

func TestEvalEmptyCompileResult(t *testing.T) {
	g := newGlobalConfig(t)
	script, err := compiler.Assembler{}.Compile(nil, types.CoreCodeAddress, emptyScript)
	require.NoError(t, err)
	module, err := compiler.Assembler{}.Compile(nil, types.CoreCodeAddress, tokenModule)
	require.NoError(t, err)
	both := &compiler.ScriptOrModule{Script: script.Script, Module: module.Module}

	for _, unit := range []*compiler.ScriptOrModule{nil, {}, both} {
		l, err := Eval(g, stubCompiler{unit: unit}, []Command{txn(t, g, "alice", "anything")})
		require.Error(t, err)
		assert.Equal(t, types.ErrInvariantViolation, errors.Cause(err))
		assert.Equal(t, []string{"Transaction 0", "Stage: Compiler"}, markers(l))
	}
}

func TestParseCommands(t *testing.T) {
	g := newGlobalConfig(t)
	data := []byte(`[
	{"kind": "transaction", "input": "stdlib_script::peer_to_peer",
	 "config": {"sender": "alice", "args": ["{{bob}}", "10"], "max_gas": 5000, "disabled_stages": ["serializer"]}},
	{"kind": "transaction", "input": "script\nfun main\n    ret\nend\n"},
	{"kind": "block_metadata", "metadata": {"timestamp": 1000, "number": 1, "author": "bob", "parent_hash": "0x0102"}}
]`)
	commands, err := ParseCommands(data, g)
	require.NoError(t, err)
	require.Len(t, commands, 3)

	alice, _ := g.Account("alice")
	bob, _ := g.Account("bob")
	def, _ := g.Account(types.DefaultAccountName)
	tc := commands[0].(*TransactionCommand)
	assert.Equal(t, alice, tc.Config.Sender)
	assert.Equal(t, []types.TransactionArgument{types.AddressArgument(bob.Address()), types.U64Argument(10)}, tc.Config.Args)
	assert.Equal(t, uint64(5000), *tc.Config.MaxGas)
	assert.Nil(t, tc.Config.GasPrice)
	assert.True(t, tc.Config.IsStageDisabled(Serializer))
	assert.False(t, tc.Config.IsStageDisabled(Runtime))
	assert.Equal(t, def, commands[1].(*TransactionCommand).Config.Sender)

	meta := commands[2].(*BlockMetadataCommand).Metadata
	assert.Equal(t, bob.Address(), meta.Author)
	assert.Equal(t, []byte{1, 2}, meta.ParentHash)
	assert.Equal(t, types.TestChainID, meta.ChainID)

	l, err := Eval(g, compiler.Assembler{}, commands)
	require.NoError(t, err)
	assert.Equal(t, []Status{Success, Success, Success}, l.Statuses())

	bad := []string{
		`{}`,
		`[{"kind": "deploy"}]`,
		`[{"kind": "transaction", "config": {"sender": "carol"}}]`,
		`[{"kind": "transaction", "config": {"disabled_stages": ["linker"]}}]`,
		`[{"kind": "transaction", "input": "{{carol}}"}]`,
		`[{"kind": "block_metadata"}]`,
	}
	for _, s := range bad {
		_, err := ParseCommands([]byte(s), g)
		assert.Error(t, err, s)
	}
}

func TestEvalMetrics(t *testing.T) {
	g := newGlobalConfig(t)
	m := NewMetrics()
	_, err := Eval(g, compiler.Assembler{}, []Command{
		txn(t, g, "alice", emptyScript),
		txn(t, g, "alice", unbalancedScript),
		blockMeta(1000, 1),
	}, WithMetrics(m))
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Commands.WithLabelValues(KindTransaction, "Success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Commands.WithLabelValues(KindTransaction, "Failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Commands.WithLabelValues(KindBlockMetadata, "Success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StageFailures.WithLabelValues("Verifier")))
	assert.Equal(t, float64(601), testutil.ToFloat64(m.GasUsed))
	assert.Len(t, m.Metrics(), 4)
}
