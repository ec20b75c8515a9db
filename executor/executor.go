// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package executor 内存中的模拟执行环境: 创世状态, 交易校验, 执行与写集合提交
package executor

import (
	"github.com/33cn/functest/account"
	dbm "github.com/33cn/functest/common/db"
	"github.com/33cn/functest/common/db/mem"
	"github.com/33cn/functest/common/log"
	"github.com/33cn/functest/types"
	"github.com/33cn/functest/verifier"
	"github.com/pkg/errors"
)

var elog = log.New("module", "execs")

// 链上系统资源, 保存在 CoreCodeAddress 下
const (
	TimestampResourceTag = "Timestamp"
	BlockResourceTag     = "Block"
)

// TimestampResource 当前区块时间, 单位秒
type TimestampResource struct {
	Seconds uint64
}

// BlockResource 当前区块高度
type BlockResource struct {
	Height     uint64
	ParentHash []byte `cbor:",omitempty"`
	Author     types.AccountAddress
}

// TimestampPath 时间资源路径
func TimestampPath() *types.AccessPath {
	return types.ResourceAccessPath(types.CoreCodeAddress, TimestampResourceTag)
}

// BlockPath 区块资源路径
func BlockPath() *types.AccessPath {
	return types.ResourceAccessPath(types.CoreCodeAddress, BlockResourceTag)
}

// FakeExecutor 单进程内的模拟执行器, 状态保存在内存数据库中
type FakeExecutor struct {
	db       *mem.GoMemDB
	cfg      *types.Evaluator
	genesis  *account.AccountData
	verifier Verifier
	stat     *statistics
}

// NewFakeExecutor 创建执行器并写入创世状态
func NewFakeExecutor(cfg *types.Evaluator) (*FakeExecutor, error) {
	if cfg == nil {
		cfg = types.DefaultConfig().Evaluator
	}
	balance, err := account.ParseBalance(cfg.GenesisBalance)
	if err != nil {
		return nil, err
	}
	exec := &FakeExecutor{
		db:       mem.NewGoMemDB(),
		cfg:      cfg,
		genesis:  account.NewAccountData(account.NewAccount(types.GenesisAccountName), balance, 0),
		verifier: verifier.Default{},
		stat:     newStatistics(),
	}
	ws := types.NewWriteSet()
	ws.Put(TimestampPath(), types.MustEncode(&TimestampResource{Seconds: cfg.GenesisTimestamp}))
	ws.Put(BlockPath(), types.MustEncode(&BlockResource{Author: types.CoreCodeAddress}))
	ws.Merge(exec.genesis.ToWriteSet())
	if err := exec.ApplyWriteSet(ws); err != nil {
		return nil, err
	}
	elog.Debug("NewFakeExecutor", "chainID", cfg.ChainID, "genesis", exec.genesis.Address().Hex())
	return exec, nil
}

// SetVerifier 替换交易执行前的字节码校验器
func (exec *FakeExecutor) SetVerifier(v Verifier) {
	exec.verifier = v
}

// ChainID 链 ID
func (exec *FakeExecutor) ChainID() types.ChainID {
	return types.ChainID(exec.cfg.ChainID)
}

// Config 执行器配置
func (exec *FakeExecutor) Config() *types.Evaluator {
	return exec.cfg
}

// GenesisAccounts 创世账户
func (exec *FakeExecutor) GenesisAccounts() []*account.Account {
	return []*account.Account{exec.genesis.Account}
}

// Get 实现 types.StateView
func (exec *FakeExecutor) Get(ap *types.AccessPath) ([]byte, error) {
	value, err := exec.db.Get(ap.Key())
	if err == dbm.ErrNotFoundInDb {
		return nil, nil
	}
	return value, err
}

// StateView 已提交的状态
func (exec *FakeExecutor) StateView() types.StateView {
	return exec
}

// ApplyWriteSet 提交写集合
func (exec *FakeExecutor) ApplyWriteSet(ws *types.WriteSet) error {
	if ws.IsEmpty() {
		return nil
	}
	batch := exec.db.NewBatch()
	for _, op := range ws.Ops {
		if op.Deletion {
			batch.Delete(op.AccessPath.Key())
			continue
		}
		batch.Set(op.AccessPath.Key(), op.Value)
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "ApplyWriteSet")
	}
	exec.stat.writeOps.Inc(int64(ws.Len()))
	return nil
}

// AddAccountData 写入账户数据
func (exec *FakeExecutor) AddAccountData(data *account.AccountData) error {
	elog.Debug("AddAccountData", "account", data.Account.String(), "balance", data.Balance.Dec(), "seq", data.SequenceNumber)
	return exec.ApplyWriteSet(data.ToWriteSet())
}

// ReadAccountResource 账户资源, 不存在时返回 nil, nil
func (exec *FakeExecutor) ReadAccountResource(acc *account.Account) (*account.AccountResource, error) {
	return account.NewReadOnlyDB(exec).LoadAccount(acc.Address())
}

// ReadBalanceResource 余额资源, 不存在时返回 nil, nil
func (exec *FakeExecutor) ReadBalanceResource(acc *account.Account) (*account.BalanceResource, error) {
	return account.NewReadOnlyDB(exec).LoadBalance(acc.Address())
}

// ReadTimestamp 当前区块时间
func (exec *FakeExecutor) ReadTimestamp() (uint64, error) {
	return readTimestamp(exec)
}

func readTimestamp(view types.StateView) (uint64, error) {
	value, err := view.Get(TimestampPath())
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, errors.Wrap(types.ErrNotFound, "timestamp resource")
	}
	var res TimestampResource
	if err := types.Decode(value, &res); err != nil {
		return 0, err
	}
	return res.Seconds, nil
}

func readBlock(view types.StateView) (*BlockResource, error) {
	value, err := view.Get(BlockPath())
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, errors.Wrap(types.ErrNotFound, "block resource")
	}
	var res BlockResource
	if err := types.Decode(value, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ExecuteBlock 顺序执行一组用户交易, 后面的交易能看到前面交易的写集合. 结果不提交
func (exec *FakeExecutor) ExecuteBlock(txs []*types.SignedUserTransaction) ([]*types.TransactionResult, error) {
	list := make([]*types.Transaction, len(txs))
	for i, tx := range txs {
		list[i] = types.UserTransaction(tx)
	}
	return exec.ExecuteTransactionBlock(list)
}

// ExecuteTransactionBlock 顺序执行用户交易与区块元数据
func (exec *FakeExecutor) ExecuteTransactionBlock(txs []*types.Transaction) ([]*types.TransactionResult, error) {
	env := newExecEnv(exec)
	results := make([]*types.TransactionResult, 0, len(txs))
	for i, tx := range txs {
		var (
			result *types.TransactionResult
			err    error
		)
		timer := exec.stat.begin()
		switch {
		case tx.UserTransaction != nil:
			result, err = env.execUserTx(tx.UserTransaction)
		case tx.BlockMetadata != nil:
			result, err = env.execBlockMetadata(tx.BlockMetadata)
		default:
			err = errors.Wrapf(types.ErrUnexpectedTransaction, "index %d", i)
		}
		if err != nil {
			elog.Error("ExecuteTransactionBlock", "index", i, "err", err)
			return nil, err
		}
		exec.stat.end(timer, result.Output)
		elog.Debug("ExecuteTransactionBlock", "index", i, "status", result.Status.String(), "gas", result.Output.GasUsed)
		if !result.Output.Status.IsDiscard() {
			env.state.Apply(result.Output.WriteSet)
		}
		results = append(results, result)
	}
	return results, nil
}
