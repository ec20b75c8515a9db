// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// AddressLength 地址长度
const AddressLength = common.AddressLength

// AccountAddress 账户地址, 20 字节
type AccountAddress = common.Address

// CoreCodeAddress 系统资源(时间戳, 区块信息)所在地址
var CoreCodeAddress = common.HexToAddress("0x1")

// ParseAddress 解析十六进制地址, 允许省略前导零, 例如 0x1
func ParseAddress(s string) (AccountAddress, error) {
	h := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(h) == 0 || len(h) > 2*AddressLength {
		return AccountAddress{}, errors.Wrapf(ErrInvalidAddress, "address %q", s)
	}
	if len(h)%2 == 1 {
		h = "0" + h
	}
	b, err := hexutil.Decode("0x" + h)
	if err != nil {
		return AccountAddress{}, errors.Wrapf(ErrInvalidAddress, "address %q: %v", s, err)
	}
	return common.BytesToAddress(b), nil
}

// BytesToAddress 取 b 的后 20 字节作为地址
func BytesToAddress(b []byte) AccountAddress {
	return common.BytesToAddress(b)
}
