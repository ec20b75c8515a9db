// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package executor

import (
	"bytes"

	"github.com/33cn/functest/account"
	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/common/crypto"
	"github.com/33cn/functest/common/crypto/secp256k1"
	"github.com/33cn/functest/types"
	"github.com/33cn/functest/vm"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// NewBlockEventTag 区块元数据执行成功时的事件
const NewBlockEventTag = "NewBlock"

// Verifier 执行前对字节码的校验
type Verifier interface {
	VerifyScript(s *bytecode.CompiledScript) error
	VerifyModule(m *bytecode.CompiledModule) error
	VerifyScriptDependencies(s *bytecode.CompiledScript, deps []*bytecode.CompiledModule) error
	VerifyModuleDependencies(m *bytecode.CompiledModule, deps []*bytecode.CompiledModule) error
}

type statusError interface {
	VMStatus() types.VMStatus
}

// statusOf 把反序列化或校验错误转换为执行结果
func statusOf(err error, fallback types.StatusCode) types.VMStatus {
	var se statusError
	if errors.As(err, &se) {
		return se.VMStatus()
	}
	return types.ErrorStatus(fallback)
}

//执行器 -> 区块内执行环境
type execEnv struct {
	exec  *FakeExecutor
	state *StateDB
}

func newExecEnv(exec *FakeExecutor) *execEnv {
	return &execEnv{exec: exec, state: NewStateDB(exec.db)}
}

func discard(code types.StatusCode) *types.TransactionResult {
	return &types.TransactionResult{Status: types.ErrorStatus(code), Output: types.DiscardOutput(code)}
}

// validate 交易执行前的检查, 返回的状态码非零时交易被丢弃
func (e *execEnv) validate(tx *types.SignedUserTransaction) (types.StatusCode, error) {
	cfg := e.exec.cfg
	raw := tx.RawTxn
	if raw.ChainID != types.ChainID(cfg.ChainID) {
		return types.StatusBadChainID, nil
	}
	if !verifySignature(tx) {
		return types.StatusInvalidSignature, nil
	}
	if raw.MaxGasAmount > cfg.MaxGasUnits {
		return types.StatusMaxGasUnitsExceedsMaxGasUnitsBound, nil
	}
	if raw.MaxGasAmount < cfg.MinTransactionGasUnits {
		return types.StatusMaxGasUnitsBelowMinTransactionGasUnits, nil
	}
	db := account.NewReadOnlyDB(e.state)
	res, err := db.LoadAccount(raw.Sender)
	if err != nil {
		return 0, err
	}
	if res == nil {
		return types.StatusSendingAccountDoesNotExist, nil
	}
	if !bytes.Equal(res.AuthenticationKey, account.AuthKeyFromPubKey(tx.PublicKey)) {
		return types.StatusInvalidAuthKey, nil
	}
	if raw.SequenceNumber < res.SequenceNumber {
		return types.StatusSequenceNumberTooOld, nil
	}
	if raw.SequenceNumber > res.SequenceNumber {
		return types.StatusSequenceNumberTooNew, nil
	}
	bal, err := db.LoadBalance(raw.Sender)
	if err != nil {
		return 0, err
	}
	balance := new(uint256.Int)
	if bal != nil {
		balance = bal.Balance()
	}
	if balance.Lt(maxFee(raw)) {
		return types.StatusInsufficientBalanceForTransactionFee, nil
	}
	now, err := readTimestamp(e.state)
	if err != nil {
		return 0, err
	}
	if raw.ExpirationTimestampSecs <= now {
		return types.StatusTransactionExpired, nil
	}
	return 0, nil
}

// verifySignature 按交易声明的签名算法验签, 未注册的算法视为签名无效
func verifySignature(tx *types.SignedUserTransaction) bool {
	signType := tx.SignType
	if signType == "" {
		signType = secp256k1.Name
	}
	driver, err := crypto.New(signType)
	if err != nil {
		elog.Debug("verifySignature", "signType", signType, "err", err)
		return false
	}
	pub, err := driver.PubKeyFromBytes(tx.PublicKey)
	if err != nil {
		return false
	}
	sig, err := driver.SignatureFromBytes(tx.Signature)
	if err != nil {
		return false
	}
	msg, err := tx.RawTxn.SigningMessage()
	if err != nil {
		return false
	}
	return pub.VerifyBytes(msg, sig)
}

func maxFee(raw *types.RawUserTransaction) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(raw.MaxGasAmount), uint256.NewInt(raw.GasUnitPrice))
}

func (e *execEnv) execUserTx(tx *types.SignedUserTransaction) (*types.TransactionResult, error) {
	if tx == nil || tx.RawTxn == nil {
		return nil, errors.Wrap(types.ErrUnexpectedTransaction, "empty user transaction")
	}
	code, err := e.validate(tx)
	if err != nil {
		return nil, err
	}
	if code != 0 {
		elog.Debug("execUserTx discard", "sender", tx.Sender().Hex(), "status", code)
		return discard(code), nil
	}
	raw := tx.RawTxn
	session := vm.NewSession(e.state)
	meter := vm.NewGasMeter(raw.MaxGasAmount)
	status := e.run(session, meter, raw)
	ts := status.KeepOrDiscard()
	if ts.IsDiscard() {
		return &types.TransactionResult{Status: status, Output: types.DiscardOutput(ts.DiscardCode)}, nil
	}
	if !ts.IsExecuted() {
		session = vm.NewSession(e.state)
	}
	if err := epilogue(session, raw, meter.Used()); err != nil {
		return nil, err
	}
	output := types.NewTransactionOutput(session.WriteSet(), session.Events(), meter.Used(), ts)
	return &types.TransactionResult{Status: status, Output: output}, nil
}

// run 反序列化, 校验并执行交易载荷
func (e *execEnv) run(session *vm.Session, meter *vm.GasMeter, raw *types.RawUserTransaction) types.VMStatus {
	if err := meter.Charge(e.exec.cfg.MinTransactionGasUnits); err != nil {
		return types.ErrorStatus(types.StatusOutOfGas)
	}
	v := e.exec.verifier
	switch {
	case raw.Payload.Script != nil:
		payload := raw.Payload.Script
		script, err := bytecode.DeserializeScript(payload.Code)
		if err != nil {
			return statusOf(err, types.StatusCodeDeserializationError)
		}
		if err := v.VerifyScript(script); err != nil {
			return statusOf(err, types.StatusUnknownVerificationError)
		}
		if err := v.VerifyScriptDependencies(script, loadDependencies(session, script.ModuleIDs())); err != nil {
			return statusOf(err, types.StatusUnknownVerificationError)
		}
		return vm.NewInterpreter(session, meter, raw.Sender, maxFee(raw)).ExecuteScript(script, payload.TyArgs, payload.Args)
	case raw.Payload.Module != nil:
		code := raw.Payload.Module.Code
		module, err := bytecode.DeserializeModule(code)
		if err != nil {
			return statusOf(err, types.StatusCodeDeserializationError)
		}
		if err := v.VerifyModule(module); err != nil {
			return statusOf(err, types.StatusUnknownVerificationError)
		}
		if err := v.VerifyModuleDependencies(module, loadDependencies(session, module.ModuleIDs())); err != nil {
			return statusOf(err, types.StatusUnknownVerificationError)
		}
		return vm.PublishModule(session, meter, raw.Sender, code, module)
	}
	return types.ErrorStatus(types.StatusMalformed)
}

// loadDependencies 加载失败的模块直接跳过, 由依赖校验报告
func loadDependencies(session *vm.Session, ids []types.ModuleID) []*bytecode.CompiledModule {
	deps := make([]*bytecode.CompiledModule, 0, len(ids))
	for _, id := range ids {
		m, err := session.LoadModule(id)
		if err != nil {
			continue
		}
		deps = append(deps, m)
	}
	return deps
}

// epilogue 扣除交易费, 增加发送者的 sequence number
func epilogue(session *vm.Session, raw *types.RawUserTransaction, gasUsed uint64) error {
	db := account.NewDB(session)
	fee := new(uint256.Int).Mul(uint256.NewInt(gasUsed), uint256.NewInt(raw.GasUnitPrice))
	if err := db.Withdraw(raw.Sender, fee); err != nil {
		return errors.Wrapf(types.ErrInvariantViolation, "epilogue withdraw %s: %v", fee.Dec(), err)
	}
	res, err := db.LoadAccount(raw.Sender)
	if err != nil {
		return err
	}
	if res == nil {
		return errors.Wrapf(types.ErrInvariantViolation, "epilogue sender %s missing", raw.Sender.Hex())
	}
	res.SequenceNumber++
	return db.SaveAccount(raw.Sender, res)
}

func (e *execEnv) execBlockMetadata(meta *types.BlockMetadata) (*types.TransactionResult, error) {
	if meta.ChainID != e.exec.ChainID() {
		return nil, errors.Wrapf(types.ErrChainIDMismatch, "block metadata chain id %d, expect %d", meta.ChainID, e.exec.ChainID())
	}
	now, err := readTimestamp(e.state)
	if err != nil {
		return nil, err
	}
	block, err := readBlock(e.state)
	if err != nil {
		return nil, err
	}
	if meta.Timestamp <= now {
		return discard(types.StatusInvalidBlockTimestamp), nil
	}
	if meta.Number != block.Height+1 {
		return discard(types.StatusInvalidBlockNumber), nil
	}
	session := vm.NewSession(e.state)
	if err := session.Set(TimestampPath(), types.MustEncode(&TimestampResource{Seconds: meta.Timestamp})); err != nil {
		return nil, err
	}
	next := &BlockResource{Height: meta.Number, ParentHash: meta.ParentHash, Author: meta.Author}
	if err := session.Set(BlockPath(), types.MustEncode(next)); err != nil {
		return nil, err
	}
	session.Emit(&types.ContractEvent{
		Sender:         types.CoreCodeAddress,
		SequenceNumber: meta.Number,
		Tag:            NewBlockEventTag,
		Value:          meta.Timestamp,
	})
	ts := types.KeepStatus(types.KeptVMStatus{Kind: types.KeptExecuted})
	output := types.NewTransactionOutput(session.WriteSet(), session.Events(), 0, ts)
	return &types.TransactionResult{Status: types.ExecutedStatus(), Output: output}, nil
}
