// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sm2

import (
	"crypto/elliptic"
	"encoding/asn1"
	"math/big"

	"github.com/pkg/errors"
	"github.com/tjfoc/gmsm/sm2"
)

type signature struct {
	R, S *big.Int
}

func serialize(r, s *big.Int) []byte {
	b, err := asn1.Marshal(signature{R: r, S: s})
	if err != nil {
		return nil
	}
	return b
}

func deserialize(b []byte) (*big.Int, *big.Int, error) {
	var sig signature
	rest, err := asn1.Unmarshal(b, &sig)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse der signature")
	}
	if len(rest) != 0 {
		return nil, nil, errors.New("trailing bytes after signature")
	}
	if sig.R.Sign() <= 0 || sig.S.Sign() <= 0 {
		return nil, nil, errors.New("signature r or s is not positive")
	}
	return sig.R, sig.S, nil
}

func privKeyFromBytes(curve elliptic.Curve, pk []byte) (*sm2.PrivateKey, *sm2.PublicKey, error) {
	d := new(big.Int).SetBytes(pk)
	d.Mod(d, curve.Params().N)
	if d.Sign() == 0 {
		return nil, nil, errors.New("invalid priv key: zero scalar")
	}
	x, y := curve.ScalarBaseMult(paddedAppend(PrivKeyLength, nil, d.Bytes()))
	priv := &sm2.PrivateKey{
		PublicKey: sm2.PublicKey{
			Curve: curve,
			X:     x,
			Y:     y,
		},
		D: d,
	}
	return priv, &priv.PublicKey, nil
}

func parsePubKey(b []byte, curve elliptic.Curve) (*sm2.PublicKey, error) {
	if len(b) != PubKeyLength || b[0] != 0x04 {
		return nil, errors.New("pubkey is not uncompressed")
	}
	pub := &sm2.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(b[1:33]),
		Y:     new(big.Int).SetBytes(b[33:]),
	}
	if pub.X.Cmp(curve.Params().P) >= 0 {
		return nil, errors.New("pubkey X parameter is >= to P")
	}
	if pub.Y.Cmp(curve.Params().P) >= 0 {
		return nil, errors.New("pubkey Y parameter is >= to P")
	}
	if !curve.IsOnCurve(pub.X, pub.Y) {
		return nil, errors.New("pubkey isn't on sm2 curve")
	}
	return pub, nil
}

func serializePublicKey(p *sm2.PublicKey) []byte {
	b := make([]byte, 0, PubKeyLength)
	b = append(b, 0x4)
	b = paddedAppend(32, b, p.X.Bytes())
	return paddedAppend(32, b, p.Y.Bytes())
}

func serializePrivateKey(p *sm2.PrivateKey) []byte {
	return paddedAppend(PrivKeyLength, make([]byte, 0, PrivKeyLength), p.D.Bytes())
}

func paddedAppend(size int, dst, src []byte) []byte {
	for i := 0; i < size-len(src); i++ {
		dst = append(dst, 0)
	}
	return append(dst, src...)
}
