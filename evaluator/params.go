// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaluator

import (
	"github.com/33cn/functest/account"
	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/types"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// TransactionParameters 构造交易需要的参数
type TransactionParameters struct {
	Sender                  types.AccountAddress
	Signer                  *account.Account
	SequenceNumber          uint64
	MaxGasAmount            uint64
	GasUnitPrice            uint64
	ExpirationTimestampSecs uint64
}

// transactionParameters 未设置的参数由链上状态推导:
// sequence number 取账户当前值; max gas 取上限, 设置了 gas price 时不超过 余额/gas price;
// 过期时间为当前区块时间加上偏移
func transactionParameters(env Environment, ev *types.Evaluator, cfg *TransactionConfig) (*TransactionParameters, error) {
	res, err := env.ReadAccountResource(cfg.Sender)
	if err != nil {
		return nil, errors.Wrapf(err, "read account resource of %s", cfg.Sender)
	}
	if res == nil {
		return nil, errors.Wrapf(types.ErrAccountNotFound, "read account resource of %s", cfg.Sender)
	}
	bal, err := env.ReadBalanceResource(cfg.Sender)
	if err != nil {
		return nil, errors.Wrapf(err, "read balance resource of %s", cfg.Sender)
	}
	if bal == nil {
		return nil, errors.Wrapf(types.ErrBalanceNotFound, "read balance resource of %s", cfg.Sender)
	}
	now, err := env.ReadTimestamp()
	if err != nil {
		return nil, errors.Wrap(err, "read timestamp")
	}

	params := &TransactionParameters{
		Sender:         cfg.Sender.Address(),
		Signer:         cfg.Sender,
		SequenceNumber: res.SequenceNumber,
		MaxGasAmount:   ev.MaxGasUnits,
	}
	if cfg.SequenceNumber != nil {
		params.SequenceNumber = *cfg.SequenceNumber
	}
	if cfg.GasPrice != nil {
		params.GasUnitPrice = *cfg.GasPrice
	}
	switch {
	case cfg.MaxGas != nil:
		params.MaxGasAmount = *cfg.MaxGas
	case params.GasUnitPrice != 0:
		affordable := new(uint256.Int).Div(bal.Balance(), uint256.NewInt(params.GasUnitPrice))
		if affordable.Lt(uint256.NewInt(ev.MaxGasUnits)) {
			params.MaxGasAmount = affordable.Uint64()
		}
	}
	offset := ev.ExpirationOffset
	if offset == 0 {
		offset = types.DefaultExpirationOffset
	}
	if cfg.ExpirationTime != nil {
		offset = *cfg.ExpirationTime
	}
	params.ExpirationTimestampSecs = now + offset
	return params, nil
}

func (p *TransactionParameters) sign(raw *types.RawUserTransaction) (*types.SignedUserTransaction, error) {
	return p.Signer.SignTransaction(raw)
}

// makeScriptTransaction 构造并签名脚本交易
func makeScriptTransaction(env Environment, ev *types.Evaluator, cfg *TransactionConfig, script *bytecode.CompiledScript) (*types.SignedUserTransaction, error) {
	code, err := script.Serialize()
	if err != nil {
		return nil, err
	}
	params, err := transactionParameters(env, ev, cfg)
	if err != nil {
		return nil, err
	}
	payload := &types.Script{Code: code, TyArgs: cfg.TyArgs, Args: cfg.Args}
	raw := types.NewScriptTransaction(params.Sender, params.SequenceNumber, payload, params.MaxGasAmount,
		params.GasUnitPrice, params.ExpirationTimestampSecs, types.ChainID(ev.ChainID))
	return params.sign(raw)
}

// makeModuleTransaction 构造并签名模块发布交易
func makeModuleTransaction(env Environment, ev *types.Evaluator, cfg *TransactionConfig, module *bytecode.CompiledModule) (*types.SignedUserTransaction, error) {
	code, err := module.Serialize()
	if err != nil {
		return nil, err
	}
	params, err := transactionParameters(env, ev, cfg)
	if err != nil {
		return nil, err
	}
	raw := types.NewModuleTransaction(params.Sender, params.SequenceNumber, &types.Module{Code: code}, params.MaxGasAmount,
		params.GasUnitPrice, params.ExpirationTimestampSecs, types.ChainID(ev.ChainID))
	return params.sign(raw)
}
