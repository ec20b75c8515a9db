// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package evaluator 分阶段执行功能测试命令并记录评估日志
package evaluator

import (
	"github.com/33cn/functest/account"
	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/common/log"
	"github.com/33cn/functest/compiler"
	"github.com/33cn/functest/executor"
	"github.com/33cn/functest/types"
	"github.com/33cn/functest/verifier"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	log15 "github.com/inconshreveable/log15"
	"github.com/pkg/errors"
)

var elog = log.New("module", "evaluator")

// Environment 执行环境, 默认实现为 executor.FakeExecutor
type Environment interface {
	ExecuteBlock(txs []*types.SignedUserTransaction) ([]*types.TransactionResult, error)
	ExecuteTransactionBlock(txs []*types.Transaction) ([]*types.TransactionResult, error)
	ApplyWriteSet(ws *types.WriteSet) error
	AddAccountData(data *account.AccountData) error
	ReadAccountResource(acc *account.Account) (*account.AccountResource, error)
	ReadBalanceResource(acc *account.Account) (*account.BalanceResource, error)
	ReadTimestamp() (uint64, error)
	StateView() types.StateView
}

// BytecodeVerifier Verifier 阶段使用的字节码校验器
type BytecodeVerifier interface {
	VerifyScript(s *bytecode.CompiledScript) error
	VerifyModule(m *bytecode.CompiledModule) error
	VerifyScriptDependencies(s *bytecode.CompiledScript, deps []*bytecode.CompiledModule) error
	VerifyModuleDependencies(m *bytecode.CompiledModule, deps []*bytecode.CompiledModule) error
}

// Option 评估选项
type Option func(*runner)

// WithVerifier 替换 Verifier 阶段的校验器
func WithVerifier(v BytecodeVerifier) Option {
	return func(r *runner) {
		r.verifier = v
	}
}

// WithMetrics 记录评估统计
func WithMetrics(m *Metrics) Option {
	return func(r *runner) {
		r.metrics = m
	}
}

type runner struct {
	cfg      *GlobalConfig
	env      Environment
	compiler compiler.Compiler
	verifier BytecodeVerifier
	metrics  *Metrics
	log      *EvaluationLog
	logger   log15.Logger
}

// Eval 在新建的执行器上评估所有命令
func Eval(cfg *GlobalConfig, c compiler.Compiler, commands []Command, opts ...Option) (*EvaluationLog, error) {
	exec, err := executor.NewFakeExecutor(cfg.Evaluator)
	if err != nil {
		return nil, errors.Wrap(err, "create executor")
	}
	return EvalWithExecutor(cfg, c, exec, commands, opts...)
}

// EvalWithExecutor 在给定的执行环境上评估所有命令.
// 每条命令以 Status 结束, 交易还以 Transaction 开头; 区块元数据占用序号但不记录 Transaction.
// 返回 error 时日志截止到出错的命令
func EvalWithExecutor(cfg *GlobalConfig, c compiler.Compiler, env Environment, commands []Command, opts ...Option) (*EvaluationLog, error) {
	r := &runner{
		cfg:      cfg,
		env:      env,
		compiler: c,
		verifier: verifier.Default{},
		log:      NewEvaluationLog(),
		logger:   elog.New("run", uuid.New().String()),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.setup(); err != nil {
		return r.log, err
	}
	for idx, cmd := range commands {
		status, err := r.evalCommand(idx, cmd)
		if err != nil {
			r.logger.Error("EvalWithExecutor", "transaction", idx, "err", err)
			return r.log, err
		}
		r.log.Append(StatusEntry(status))
		r.metrics.command(cmd.Kind(), status)
		r.logger.Debug("EvalWithExecutor", "transaction", idx, "kind", cmd.Kind(), "status", status)
	}
	failed := 0
	for _, s := range r.log.Statuses() {
		if s == Failure {
			failed++
		}
	}
	r.logger.Info("EvalWithExecutor", "commands", len(commands), "failed", failed)
	return r.log, nil
}

// setup 写入测试账户, 然后按链上状态重新写入创世账户; 没有余额资源的创世账户余额为 0
func (r *runner) setup() error {
	for _, name := range r.cfg.AccountNames() {
		if err := r.env.AddAccountData(r.cfg.Accounts[name]); err != nil {
			return errors.Wrapf(err, "add account %s", name)
		}
	}
	for _, name := range r.cfg.GenesisNames() {
		acc := r.cfg.GenesisAccounts[name]
		res, err := r.env.ReadAccountResource(acc)
		if err != nil {
			return errors.Wrapf(err, "read genesis account %s", name)
		}
		bal, err := r.env.ReadBalanceResource(acc)
		if err != nil {
			return errors.Wrapf(err, "read genesis balance %s", name)
		}
		if res == nil {
			r.logger.Debug("setup", "genesis", name, "msg", "not on chain")
			continue
		}
		balance := new(uint256.Int)
		if bal != nil {
			balance = bal.Balance()
		}
		if err := r.env.AddAccountData(account.NewAccountData(acc, balance, res.SequenceNumber)); err != nil {
			return errors.Wrapf(err, "add genesis account %s", name)
		}
	}
	return nil
}

func (r *runner) evalCommand(idx int, cmd Command) (Status, error) {
	switch c := cmd.(type) {
	case *TransactionCommand:
		r.log.Append(TransactionEntry(idx))
		failed, err := r.evalTransaction(c.Config, c.Input)
		if err != nil {
			return Failure, err
		}
		if failed != nil {
			r.logger.Debug("evalCommand", "stage", failed.stage, "err", failed.err)
			r.log.Append(ErrorEntry{Err: failed.err})
			return Failure, nil
		}
		return Success, nil
	case *BlockMetadataCommand:
		return r.evalBlockMetadata(c.Metadata)
	}
	return Failure, errors.Wrapf(types.ErrInvalidCommand, "unknown command %T", cmd)
}
