// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package secp256k1 secp256k1 签名算法, 签名为 sha3-256 摘要上的 DER 编码 ecdsa 签名
package secp256k1

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/33cn/functest/common"
	"github.com/33cn/functest/common/crypto"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/pkg/errors"
)

//Driver 驱动
type Driver struct{}

//const
const (
	Name          = "secp256k1"
	PrivKeyLength = 32
	PubKeyLength  = 33
)

//GenKey 生成私钥
func (d Driver) GenKey() (crypto.PrivKey, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	var privKeyBytes PrivKeySecp256k1
	copy(privKeyBytes[:], priv.Serialize())
	return privKeyBytes, nil
}

//PrivKeyFromBytes 字节转为私钥
func (d Driver) PrivKeyFromBytes(b []byte) (crypto.PrivKey, error) {
	if len(b) != PrivKeyLength {
		return nil, errors.New("invalid priv key byte")
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	var privKeyBytes PrivKeySecp256k1
	copy(privKeyBytes[:], priv.Serialize())
	return privKeyBytes, nil
}

//PubKeyFromBytes 字节转为公钥
func (d Driver) PubKeyFromBytes(b []byte) (crypto.PubKey, error) {
	if len(b) != PubKeyLength {
		return nil, errors.New("invalid pub key byte")
	}
	if _, err := btcec.ParsePubKey(b); err != nil {
		return nil, errors.Wrap(err, "invalid pub key")
	}
	var pub PubKeySecp256k1
	copy(pub[:], b)
	return pub, nil
}

//SignatureFromBytes 字节转为签名
func (d Driver) SignatureFromBytes(b []byte) (crypto.Signature, error) {
	return SignatureSecp256k1(common.CopyBytes(b)), nil
}

//PrivKeySecp256k1 PrivKey
type PrivKeySecp256k1 [PrivKeyLength]byte

//Bytes 字节格式
func (privKey PrivKeySecp256k1) Bytes() []byte {
	s := make([]byte, PrivKeyLength)
	copy(s, privKey[:])
	return s
}

//Sign 签名
func (privKey PrivKeySecp256k1) Sign(msg []byte) crypto.Signature {
	priv, _ := btcec.PrivKeyFromBytes(privKey[:])
	sig := ecdsa.Sign(priv, common.Sha3Hash(msg))
	return SignatureSecp256k1(sig.Serialize())
}

//PubKey 私钥生成公钥
func (privKey PrivKeySecp256k1) PubKey() crypto.PubKey {
	_, pub := btcec.PrivKeyFromBytes(privKey[:])
	var pubKey PubKeySecp256k1
	copy(pubKey[:], pub.SerializeCompressed())
	return pubKey
}

//Equals 私钥是否相等
func (privKey PrivKeySecp256k1) Equals(other crypto.PrivKey) bool {
	if otherSecp, ok := other.(PrivKeySecp256k1); ok {
		return bytes.Equal(privKey[:], otherSecp[:])
	}
	return false
}

func (privKey PrivKeySecp256k1) String() string {
	return "PrivKeySecp256k1{*****}"
}

//PubKeySecp256k1 Compressed pubkey (just the x-cord),
// prefixed with 0x02 or 0x03, depending on the y-cord.
type PubKeySecp256k1 [PubKeyLength]byte

//Bytes 字节格式
func (pubKey PubKeySecp256k1) Bytes() []byte {
	s := make([]byte, PubKeyLength)
	copy(s, pubKey[:])
	return s
}

//VerifyBytes 验证字节
func (pubKey PubKeySecp256k1) VerifyBytes(msg []byte, sig crypto.Signature) bool {
	secpSig, ok := sig.(SignatureSecp256k1)
	if !ok {
		return false
	}
	pub, err := btcec.ParsePubKey(pubKey[:])
	if err != nil {
		return false
	}
	parsed, err := ecdsa.ParseDERSignature(secpSig)
	if err != nil {
		return false
	}
	return parsed.Verify(common.Sha3Hash(msg), pub)
}

func (pubKey PubKeySecp256k1) String() string {
	return fmt.Sprintf("PubKeySecp256k1{%X}", pubKey[:])
}

//KeyString Must return the full bytes in hex.
// Used for map keying, etc.
func (pubKey PubKeySecp256k1) KeyString() string {
	return fmt.Sprintf("%X", pubKey[:])
}

//Equals 公钥相等
func (pubKey PubKeySecp256k1) Equals(other crypto.PubKey) bool {
	if otherSecp, ok := other.(PubKeySecp256k1); ok {
		return bytes.Equal(pubKey[:], otherSecp[:])
	}
	return false
}

//SignatureSecp256k1 DER 编码的签名
type SignatureSecp256k1 []byte

//Bytes 字节格式
func (sig SignatureSecp256k1) Bytes() []byte {
	return common.CopyBytes(sig)
}

//IsZero 是否是0
func (sig SignatureSecp256k1) IsZero() bool { return len(sig) == 0 }

func (sig SignatureSecp256k1) String() string {
	return fmt.Sprintf("/%X.../", []byte(sig))
}

//Equals 相等
func (sig SignatureSecp256k1) Equals(other crypto.Signature) bool {
	if otherSig, ok := other.(SignatureSecp256k1); ok {
		return bytes.Equal(sig, otherSig)
	}
	return false
}

// RandBytes 随机字节, 用于测试
func RandBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

func init() {
	crypto.Register(Name, &Driver{})
}
