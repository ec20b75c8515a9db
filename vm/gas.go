// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"errors"

	"github.com/33cn/functest/bytecode"
)

// ErrOutOfGas gas 不足
var ErrOutOfGas = errors.New("ErrOutOfGas")

// 指令的 gas 消耗, 未列出的指令消耗 GasDefault
const (
	GasDefault       uint64 = 1
	GasCall          uint64 = 10
	GasLoadGlobal    uint64 = 20
	GasStoreGlobal   uint64 = 50
	GasEmit          uint64 = 20
	GasTransfer      uint64 = 100
	GasPublishByte   uint64 = 1
	GasPublishModule uint64 = 100
)

var gasSchedule = map[bytecode.Opcode]uint64{
	bytecode.OpCall:        GasCall,
	bytecode.OpLoadGlobal:  GasLoadGlobal,
	bytecode.OpStoreGlobal: GasStoreGlobal,
	bytecode.OpEmit:        GasEmit,
	bytecode.OpTransfer:    GasTransfer,
}

// InstructionCost 指令的 gas 消耗
func InstructionCost(op bytecode.Opcode) uint64 {
	if cost, ok := gasSchedule[op]; ok {
		return cost
	}
	return GasDefault
}

// GasMeter gas 计量
type GasMeter struct {
	limit uint64
	used  uint64
}

// NewGasMeter new
func NewGasMeter(limit uint64) *GasMeter {
	return &GasMeter{limit: limit}
}

// Charge 扣除 gas, 不足时用尽剩余 gas 并返回 ErrOutOfGas
func (g *GasMeter) Charge(amount uint64) error {
	if amount > g.limit-g.used {
		g.used = g.limit
		return ErrOutOfGas
	}
	g.used += amount
	return nil
}

// Used 已使用
func (g *GasMeter) Used() uint64 {
	return g.used
}

// Remaining 剩余
func (g *GasMeter) Remaining() uint64 {
	return g.limit - g.used
}
