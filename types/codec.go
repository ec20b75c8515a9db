// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

var (
	canonicalEncMode cbor.EncMode
	strictDecMode    cbor.DecMode
)

func init() {
	var err error
	canonicalEncMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	strictDecMode, err = cbor.DecOptions{ExtraReturnErrors: cbor.ExtraDecErrorUnknownField}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Encode 规范 CBOR 编码, 相同的值总是得到相同的字节
func Encode(v interface{}) ([]byte, error) {
	b, err := canonicalEncMode.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(ErrEncode, err.Error())
	}
	return b, nil
}

// MustEncode 编码失败时 panic, 只用于结构固定的内部类型
func MustEncode(v interface{}) []byte {
	b, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Decode CBOR 解码, 不允许未知字段
func Decode(data []byte, v interface{}) error {
	if err := strictDecMode.Unmarshal(data, v); err != nil {
		return errors.Wrap(ErrDecode, err.Error())
	}
	return nil
}
