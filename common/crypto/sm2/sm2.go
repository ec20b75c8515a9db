// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sm2 国密 sm2 签名算法, 签名为 sm3 摘要上的 DER 编码 (r, s)
package sm2

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/33cn/functest/common"
	"github.com/33cn/functest/common/crypto"
	"github.com/pkg/errors"
	"github.com/tjfoc/gmsm/sm2"
)

//const
const (
	Name          = "sm2"
	PrivKeyLength = 32
	PubKeyLength  = 65
)

//Driver 驱动
type Driver struct{}

//GenKey 生成私钥
func (d Driver) GenKey() (crypto.PrivKey, error) {
	b := make([]byte, PrivKeyLength)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return d.PrivKeyFromBytes(b)
}

//PrivKeyFromBytes 字节转为私钥, 超过曲线阶的值按模约简
func (d Driver) PrivKeyFromBytes(b []byte) (crypto.PrivKey, error) {
	if len(b) != PrivKeyLength {
		return nil, errors.New("invalid priv key byte")
	}
	priv, _, err := privKeyFromBytes(sm2.P256Sm2(), b)
	if err != nil {
		return nil, err
	}
	var privKey PrivKeySM2
	copy(privKey[:], serializePrivateKey(priv))
	return privKey, nil
}

//PubKeyFromBytes 字节转为公钥
func (d Driver) PubKeyFromBytes(b []byte) (crypto.PubKey, error) {
	if len(b) != PubKeyLength {
		return nil, errors.New("invalid pub key byte")
	}
	if _, err := parsePubKey(b, sm2.P256Sm2()); err != nil {
		return nil, errors.Wrap(err, "invalid pub key")
	}
	var pub PubKeySM2
	copy(pub[:], b)
	return pub, nil
}

//SignatureFromBytes 字节转为签名
func (d Driver) SignatureFromBytes(b []byte) (crypto.Signature, error) {
	return SignatureSM2(common.CopyBytes(b)), nil
}

//PrivKeySM2 私钥
type PrivKeySM2 [PrivKeyLength]byte

//Bytes 字节格式
func (privKey PrivKeySM2) Bytes() []byte {
	s := make([]byte, PrivKeyLength)
	copy(s, privKey[:])
	return s
}

//Sign 签名
func (privKey PrivKeySM2) Sign(msg []byte) crypto.Signature {
	priv, _, err := privKeyFromBytes(sm2.P256Sm2(), privKey[:])
	if err != nil {
		return SignatureSM2(nil)
	}
	r, s, err := sm2.Sign(priv, crypto.Sm3Hash(msg))
	if err != nil {
		return SignatureSM2(nil)
	}
	return SignatureSM2(serialize(r, s))
}

//PubKey 私钥生成公钥
func (privKey PrivKeySM2) PubKey() crypto.PubKey {
	var pubKey PubKeySM2
	_, pub, err := privKeyFromBytes(sm2.P256Sm2(), privKey[:])
	if err != nil {
		return pubKey
	}
	copy(pubKey[:], serializePublicKey(pub))
	return pubKey
}

//Equals 私钥是否相等
func (privKey PrivKeySM2) Equals(other crypto.PrivKey) bool {
	if otherSM2, ok := other.(PrivKeySM2); ok {
		return bytes.Equal(privKey[:], otherSM2[:])
	}
	return false
}

func (privKey PrivKeySM2) String() string {
	return "PrivKeySM2{*****}"
}

//PubKeySM2 未压缩公钥 0x04||X||Y
type PubKeySM2 [PubKeyLength]byte

//Bytes 字节格式
func (pubKey PubKeySM2) Bytes() []byte {
	s := make([]byte, PubKeyLength)
	copy(s, pubKey[:])
	return s
}

//VerifyBytes 验证字节
func (pubKey PubKeySM2) VerifyBytes(msg []byte, sig crypto.Signature) bool {
	sigSM2, ok := sig.(SignatureSM2)
	if !ok {
		return false
	}
	pub, err := parsePubKey(pubKey[:], sm2.P256Sm2())
	if err != nil {
		return false
	}
	r, s, err := deserialize(sigSM2)
	if err != nil {
		return false
	}
	// sm2 不做 LowS 检查
	return sm2.Verify(pub, crypto.Sm3Hash(msg), r, s)
}

func (pubKey PubKeySM2) String() string {
	return fmt.Sprintf("PubKeySM2{%X}", pubKey[:])
}

//KeyString Must return the full bytes in hex.
// Used for map keying, etc.
func (pubKey PubKeySM2) KeyString() string {
	return fmt.Sprintf("%X", pubKey[:])
}

//Equals 相等
func (pubKey PubKeySM2) Equals(other crypto.PubKey) bool {
	if otherSM2, ok := other.(PubKeySM2); ok {
		return bytes.Equal(pubKey[:], otherSM2[:])
	}
	return false
}

//SignatureSM2 DER 编码的签名
type SignatureSM2 []byte

//Bytes 字节格式
func (sig SignatureSM2) Bytes() []byte {
	return common.CopyBytes(sig)
}

//IsZero 是否为0
func (sig SignatureSM2) IsZero() bool { return len(sig) == 0 }

func (sig SignatureSM2) String() string {
	return fmt.Sprintf("/%X.../", []byte(sig))
}

//Equals 相等
func (sig SignatureSM2) Equals(other crypto.Signature) bool {
	if otherSig, ok := other.(SignatureSM2); ok {
		return bytes.Equal(sig, otherSig)
	}
	return false
}

func init() {
	crypto.Register(Name, &Driver{})
}
