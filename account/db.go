// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package account

import (
	"github.com/33cn/functest/types"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

//KV 资源读写
type KV interface {
	Get(ap *types.AccessPath) ([]byte, error)
	Set(ap *types.AccessPath, value []byte) error
}

type readOnly struct {
	view types.StateView
}

func (r readOnly) Get(ap *types.AccessPath) ([]byte, error) {
	return r.view.Get(ap)
}

func (r readOnly) Set(ap *types.AccessPath, value []byte) error {
	return types.ErrReadOnly
}

// DB for account
type DB struct {
	db KV
}

//NewDB new
func NewDB(kv KV) *DB {
	return &DB{db: kv}
}

//NewReadOnlyDB 只读
func NewReadOnlyDB(view types.StateView) *DB {
	return &DB{db: readOnly{view: view}}
}

//LoadAccount 账户不存在时返回 nil, nil
func (acc *DB) LoadAccount(addr types.AccountAddress) (*AccountResource, error) {
	value, err := acc.db.Get(AccountResourcePath(addr))
	if err != nil || value == nil {
		return nil, err
	}
	var res AccountResource
	if err := types.Decode(value, &res); err != nil {
		alog.Error("LoadAccount", "addr", addr.Hex(), "err", err)
		return nil, err
	}
	return &res, nil
}

//LoadBalance 余额资源不存在时返回 nil, nil
func (acc *DB) LoadBalance(addr types.AccountAddress) (*BalanceResource, error) {
	value, err := acc.db.Get(BalanceResourcePath(addr))
	if err != nil || value == nil {
		return nil, err
	}
	var res BalanceResource
	if err := types.Decode(value, &res); err != nil {
		alog.Error("LoadBalance", "addr", addr.Hex(), "err", err)
		return nil, err
	}
	return &res, nil
}

//SaveAccount 保存账户资源
func (acc *DB) SaveAccount(addr types.AccountAddress, res *AccountResource) error {
	value, err := types.Encode(res)
	if err != nil {
		return err
	}
	return acc.db.Set(AccountResourcePath(addr), value)
}

//SaveBalance 保存余额
func (acc *DB) SaveBalance(addr types.AccountAddress, amount *uint256.Int) error {
	value, err := types.Encode(NewBalanceResource(amount))
	if err != nil {
		return err
	}
	return acc.db.Set(BalanceResourcePath(addr), value)
}

//Exists 账户资源是否存在
func (acc *DB) Exists(addr types.AccountAddress) (bool, error) {
	res, err := acc.LoadAccount(addr)
	return res != nil, err
}

func (acc *DB) balanceOf(addr types.AccountAddress) (*uint256.Int, error) {
	bal, err := acc.LoadBalance(addr)
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return nil, errors.Wrapf(types.ErrBalanceNotFound, "addr %s", addr.Hex())
	}
	return bal.Balance(), nil
}

//CheckTransfer 检查转账, reserve 为转出方必须保留的余额
func (acc *DB) CheckTransfer(from, to types.AccountAddress, amount, reserve *uint256.Int) error {
	if from == to {
		return types.ErrSendSameToRecv
	}
	ok, err := acc.Exists(to)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(types.ErrAccountNotFound, "addr %s", to.Hex())
	}
	fromBalance, err := acc.balanceOf(from)
	if err != nil {
		return err
	}
	need, overflow := new(uint256.Int).AddOverflow(amount, reserve)
	if overflow || fromBalance.Lt(need) {
		return types.ErrNoBalance
	}
	return nil
}

//Transfer 转账
func (acc *DB) Transfer(from, to types.AccountAddress, amount, reserve *uint256.Int) error {
	if err := acc.CheckTransfer(from, to, amount, reserve); err != nil {
		return err
	}
	fromBalance, err := acc.balanceOf(from)
	if err != nil {
		return err
	}
	toBalance, err := acc.balanceOf(to)
	if err != nil {
		return err
	}
	received, overflow := new(uint256.Int).AddOverflow(toBalance, amount)
	if overflow {
		return types.ErrAmount
	}
	if err := acc.SaveBalance(from, new(uint256.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return acc.SaveBalance(to, received)
}

//Withdraw 扣除余额, 余额不足时返回 ErrNoBalance
func (acc *DB) Withdraw(addr types.AccountAddress, amount *uint256.Int) error {
	balance, err := acc.balanceOf(addr)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return types.ErrNoBalance
	}
	return acc.SaveBalance(addr, new(uint256.Int).Sub(balance, amount))
}
