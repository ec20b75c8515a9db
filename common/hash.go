// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package common 哈希与十六进制解码工具
package common

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"
)

//FromHex hex -> []byte, 允许省略 0x 前缀与奇数长度
func FromHex(s string) ([]byte, error) {
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
	}
	if len(s) == 0 {
		return []byte{}, nil
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hexutil.Decode("0x" + s)
}

// CopyBytes Returns an exact copy of the provided bytes
func CopyBytes(b []byte) (copiedBytes []byte) {
	if b == nil {
		return nil
	}
	copiedBytes = make([]byte, len(b))
	copy(copiedBytes, b)
	return
}

//Sha3Hash SHA3-256
func Sha3Hash(b []byte) []byte {
	data := sha3.Sum256(b)
	return data[:]
}

//ShaKeccak256 legacy keccak, 用于由公钥推导地址
func ShaKeccak256(b []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	return h.Sum(nil)
}
