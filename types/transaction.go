// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// ChainID 链标识
type ChainID uint8

// 默认的测试链
const (
	TestChainID ChainID = 4
)

var typeTagRegexp = regexp.MustCompile(`^(bool|u8|u64|u128|address|vector<.+>|0x[0-9a-fA-F]+::[A-Za-z_][A-Za-z0-9_]*::[A-Za-z_][A-Za-z0-9_]*)$`)

// TypeTag 类型参数
type TypeTag string

// ParseTypeTag 解析类型参数
func ParseTypeTag(s string) (TypeTag, error) {
	s = strings.TrimSpace(s)
	if !typeTagRegexp.MatchString(s) {
		return "", errors.Wrapf(ErrInvalidTypeTag, "type tag %q", s)
	}
	return TypeTag(s), nil
}

// ArgKind 交易参数类型
type ArgKind uint8

// 交易参数类型
const (
	ArgU64 ArgKind = iota + 1
	ArgBool
	ArgAddress
	ArgU8Vector
)

// TransactionArgument 脚本参数
type TransactionArgument struct {
	Kind    ArgKind
	U64     uint64         `cbor:",omitempty"`
	Bool    bool           `cbor:",omitempty"`
	Address AccountAddress `cbor:",omitempty"`
	Bytes   []byte         `cbor:",omitempty"`
}

// U64Argument u64
func U64Argument(v uint64) TransactionArgument {
	return TransactionArgument{Kind: ArgU64, U64: v}
}

// BoolArgument bool
func BoolArgument(v bool) TransactionArgument {
	return TransactionArgument{Kind: ArgBool, Bool: v}
}

// AddressArgument address
func AddressArgument(addr AccountAddress) TransactionArgument {
	return TransactionArgument{Kind: ArgAddress, Address: addr}
}

// BytesArgument vector<u8>
func BytesArgument(b []byte) TransactionArgument {
	return TransactionArgument{Kind: ArgU8Vector, Bytes: b}
}

// ParseTransactionArgument 解析参数字面量:
// true/false, 0x 开头的地址, x"..." 十六进制字节串, 十进制整数(可带 u8/u64 后缀)
func ParseTransactionArgument(s string) (TransactionArgument, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "true":
		return BoolArgument(true), nil
	case s == "false":
		return BoolArgument(false), nil
	case strings.HasPrefix(s, "0x"):
		addr, err := ParseAddress(s)
		if err != nil {
			return TransactionArgument{}, err
		}
		return AddressArgument(addr), nil
	case strings.HasPrefix(s, `x"`) && strings.HasSuffix(s, `"`) && len(s) >= 3:
		h := s[2 : len(s)-1]
		if len(h)%2 == 1 {
			h = "0" + h
		}
		b, err := hexutil.Decode("0x" + h)
		if err != nil && h != "" {
			return TransactionArgument{}, errors.Wrapf(ErrInvalidArgument, "argument %q: %v", s, err)
		}
		return BytesArgument(b), nil
	}
	num := strings.TrimSuffix(strings.TrimSuffix(s, "u64"), "u8")
	v, err := strconv.ParseUint(num, 10, 64)
	if err != nil {
		return TransactionArgument{}, errors.Wrapf(ErrInvalidArgument, "argument %q", s)
	}
	if strings.HasSuffix(s, "u8") && v > 0xff {
		return TransactionArgument{}, errors.Wrapf(ErrInvalidArgument, "argument %q overflows u8", s)
	}
	return U64Argument(v), nil
}

func (a TransactionArgument) String() string {
	switch a.Kind {
	case ArgU64:
		return fmt.Sprintf("{U64: %d}", a.U64)
	case ArgBool:
		return fmt.Sprintf("{BOOL: %t}", a.Bool)
	case ArgAddress:
		return fmt.Sprintf("{ADDRESS: %s}", a.Address.Hex())
	case ArgU8Vector:
		return fmt.Sprintf("{U8Vector: %s}", hexutil.Encode(a.Bytes))
	}
	return "{UNKNOWN}"
}

// Script 脚本载荷
type Script struct {
	Code   []byte
	TyArgs []TypeTag             `cbor:",omitempty"`
	Args   []TransactionArgument `cbor:",omitempty"`
}

// Module 模块发布载荷
type Module struct {
	Code []byte
}

// TransactionPayload 二选一
type TransactionPayload struct {
	Script *Script `cbor:",omitempty"`
	Module *Module `cbor:",omitempty"`
}

// RawUserTransaction 未签名的用户交易
type RawUserTransaction struct {
	Sender                  AccountAddress
	SequenceNumber          uint64
	Payload                 TransactionPayload
	MaxGasAmount            uint64
	GasUnitPrice            uint64
	ExpirationTimestampSecs uint64
	ChainID                 ChainID
}

// NewScriptTransaction 构造脚本交易
func NewScriptTransaction(sender AccountAddress, seq uint64, script *Script, maxGas, price, expiration uint64, chainID ChainID) *RawUserTransaction {
	return &RawUserTransaction{
		Sender:                  sender,
		SequenceNumber:          seq,
		Payload:                 TransactionPayload{Script: script},
		MaxGasAmount:            maxGas,
		GasUnitPrice:            price,
		ExpirationTimestampSecs: expiration,
		ChainID:                 chainID,
	}
}

// NewModuleTransaction 构造模块发布交易
func NewModuleTransaction(sender AccountAddress, seq uint64, module *Module, maxGas, price, expiration uint64, chainID ChainID) *RawUserTransaction {
	return &RawUserTransaction{
		Sender:                  sender,
		SequenceNumber:          seq,
		Payload:                 TransactionPayload{Module: module},
		MaxGasAmount:            maxGas,
		GasUnitPrice:            price,
		ExpirationTimestampSecs: expiration,
		ChainID:                 chainID,
	}
}

var signingSalt = sha3.Sum256([]byte("RawUserTransaction::"))

// SigningMessage 待签名的消息: 域分隔前缀 + 规范编码
func (tx *RawUserTransaction) SigningMessage() ([]byte, error) {
	b, err := Encode(tx)
	if err != nil {
		return nil, err
	}
	msg := make([]byte, 0, len(signingSalt)+len(b))
	msg = append(msg, signingSalt[:]...)
	return append(msg, b...), nil
}

// SignedUserTransaction 已签名的用户交易, SignType 为签名算法名, 为空时按 secp256k1 处理
type SignedUserTransaction struct {
	RawTxn    *RawUserTransaction
	SignType  string
	PublicKey []byte
	Signature []byte
}

// Hash 交易哈希
func (tx *SignedUserTransaction) Hash() []byte {
	h := sha3.Sum256(MustEncode(tx))
	return h[:]
}

// Sender 发送者
func (tx *SignedUserTransaction) Sender() AccountAddress {
	return tx.RawTxn.Sender
}

// BlockMetadata 区块元数据, 推进账本时间与高度
type BlockMetadata struct {
	ParentHash []byte
	Timestamp  uint64
	Author     AccountAddress
	Number     uint64
	ChainID    ChainID
}

// Transaction 用户交易或区块元数据, 二选一
type Transaction struct {
	UserTransaction *SignedUserTransaction
	BlockMetadata   *BlockMetadata
}

// UserTransaction 包装用户交易
func UserTransaction(tx *SignedUserTransaction) *Transaction {
	return &Transaction{UserTransaction: tx}
}

// BlockMetadataTransaction 包装区块元数据
func BlockMetadataTransaction(meta *BlockMetadata) *Transaction {
	return &Transaction{BlockMetadata: meta}
}

// TransactionOutput 交易执行输出
type TransactionOutput struct {
	WriteSet *WriteSet
	Events   []*ContractEvent
	GasUsed  uint64
	Status   TransactionStatus
}

// NewTransactionOutput new
func NewTransactionOutput(ws *WriteSet, events []*ContractEvent, gasUsed uint64, status TransactionStatus) *TransactionOutput {
	if ws == nil {
		ws = NewWriteSet()
	}
	return &TransactionOutput{WriteSet: ws, Events: events, GasUsed: gasUsed, Status: status}
}

// DiscardOutput 被丢弃交易的输出, 写集合为空
func DiscardOutput(code StatusCode) *TransactionOutput {
	return NewTransactionOutput(NewWriteSet(), nil, 0, DiscardStatus(code))
}

// TransactionResult 执行结果与输出
type TransactionResult struct {
	Status VMStatus
	Output *TransactionOutput
}
