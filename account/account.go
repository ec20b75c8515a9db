// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package account 测试账户与账户资源

1. 由账户名与签名算法确定性生成私钥与地址
2. 账户资源(认证密钥, 交易序号)与余额资源的编解码
3. 在状态视图上读写资源, 转账
*/
package account

import (
	"fmt"

	"github.com/33cn/functest/common"
	"github.com/33cn/functest/common/crypto"
	"github.com/33cn/functest/common/crypto/secp256k1"
	_ "github.com/33cn/functest/common/crypto/sm2" //register sm2
	"github.com/33cn/functest/common/log"
	"github.com/33cn/functest/types"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var alog = log.New("module", "account")

// 资源名
const (
	AccountResourceTag = "Account"
	BalanceResourceTag = "Balance"
	seedPrefix         = "functest/account/"
	// TokenDecimals 展示余额时的小数位
	TokenDecimals = 8
)

//Account 测试账户
type Account struct {
	Name     string
	signType string
	addr     types.AccountAddress
	priv     crypto.PrivKey
}

//NewAccount 由账户名生成 secp256k1 账户, 同名账户的密钥总是相同
func NewAccount(name string) *Account {
	acc, err := NewAccountWithSignType(name, secp256k1.Name)
	if err != nil {
		panic(err)
	}
	return acc
}

//NewAccountWithSignType 由账户名和签名算法生成账户, signType 为空时使用 secp256k1
func NewAccountWithSignType(name, signType string) (*Account, error) {
	if signType == "" {
		signType = secp256k1.Name
	}
	driver, err := crypto.New(signType)
	if err != nil {
		return nil, errors.Wrapf(err, "account %s", name)
	}
	priv, err := driver.PrivKeyFromBytes(common.Sha3Hash([]byte(seedPrefix + name)))
	if err != nil {
		return nil, errors.Wrapf(err, "account %s", name)
	}
	alog.Debug("NewAccount", "name", name, "signType", signType)
	return &Account{
		Name:     name,
		signType: signType,
		addr:     AddressFromPubKey(priv.PubKey().Bytes()),
		priv:     priv,
	}, nil
}

//AddressFromPubKey 公钥 keccak 哈希的后 20 字节
func AddressFromPubKey(pub []byte) types.AccountAddress {
	return types.BytesToAddress(common.ShaKeccak256(pub))
}

//AuthKeyFromPubKey 认证密钥
func AuthKeyFromPubKey(pub []byte) []byte {
	return common.Sha3Hash(pub)
}

//Address 地址
func (acc *Account) Address() types.AccountAddress {
	return acc.addr
}

//SignType 签名算法名
func (acc *Account) SignType() string {
	return acc.signType
}

//PrivKey 私钥
func (acc *Account) PrivKey() crypto.PrivKey {
	return acc.priv
}

//PubKey 公钥
func (acc *Account) PubKey() crypto.PubKey {
	return acc.priv.PubKey()
}

//AuthKey 认证密钥
func (acc *Account) AuthKey() []byte {
	return AuthKeyFromPubKey(acc.PubKey().Bytes())
}

func (acc *Account) String() string {
	return fmt.Sprintf("%s(%s)", acc.Name, acc.addr.Hex())
}

//SignTransaction 签名交易
func (acc *Account) SignTransaction(raw *types.RawUserTransaction) (*types.SignedUserTransaction, error) {
	msg, err := raw.SigningMessage()
	if err != nil {
		return nil, err
	}
	return &types.SignedUserTransaction{
		RawTxn:    raw,
		SignType:  acc.signType,
		PublicKey: acc.priv.PubKey().Bytes(),
		Signature: acc.priv.Sign(msg).Bytes(),
	}, nil
}

//AccountResource 账户资源
type AccountResource struct {
	AuthenticationKey []byte
	SequenceNumber    uint64
	DepositEvents     uint64
	WithdrawEvents    uint64
}

//BalanceResource 余额资源, Token 为大端字节
type BalanceResource struct {
	Token []byte
}

//NewBalanceResource new
func NewBalanceResource(amount *uint256.Int) *BalanceResource {
	return &BalanceResource{Token: amount.Bytes()}
}

//Balance 余额
func (b *BalanceResource) Balance() *uint256.Int {
	return new(uint256.Int).SetBytes(b.Token)
}

//AccountData 写入创世状态或测试初始状态的账户数据
type AccountData struct {
	Account        *Account
	Balance        *uint256.Int
	SequenceNumber uint64
	DepositEvents  uint64
	WithdrawEvents uint64
}

//NewAccountData new
func NewAccountData(acc *Account, balance *uint256.Int, seq uint64) *AccountData {
	return &AccountData{Account: acc, Balance: balance, SequenceNumber: seq}
}

//Address 地址
func (d *AccountData) Address() types.AccountAddress {
	return d.Account.Address()
}

//Resource 账户资源
func (d *AccountData) Resource() *AccountResource {
	return &AccountResource{
		AuthenticationKey: d.Account.AuthKey(),
		SequenceNumber:    d.SequenceNumber,
		DepositEvents:     d.DepositEvents,
		WithdrawEvents:    d.WithdrawEvents,
	}
}

//ToWriteSet 账户数据对应的写集合
func (d *AccountData) ToWriteSet() *types.WriteSet {
	ws := types.NewWriteSet()
	ws.Put(AccountResourcePath(d.Address()), types.MustEncode(d.Resource()))
	ws.Put(BalanceResourcePath(d.Address()), types.MustEncode(NewBalanceResource(d.Balance)))
	return ws
}

//AccountResourcePath 账户资源路径
func AccountResourcePath(addr types.AccountAddress) *types.AccessPath {
	return types.ResourceAccessPath(addr, AccountResourceTag)
}

//BalanceResourcePath 余额资源路径
func BalanceResourcePath(addr types.AccountAddress) *types.AccessPath {
	return types.ResourceAccessPath(addr, BalanceResourceTag)
}

//ParseBalance 十进制整数余额
func ParseBalance(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, errors.Wrapf(types.ErrAmount, "balance %q: %v", s, err)
	}
	return v, nil
}

//FormatToken 以 TokenDecimals 位小数展示余额
func FormatToken(amount *uint256.Int) string {
	if amount == nil {
		return decimal.Zero.StringFixed(TokenDecimals)
	}
	return decimal.NewFromBigInt(amount.ToBig(), -TokenDecimals).StringFixed(TokenDecimals)
}
