// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaluator

import (
	"encoding/json"

	"github.com/33cn/functest/common"
	"github.com/33cn/functest/types"
	"github.com/pkg/errors"
)

// 命令种类
const (
	KindTransaction   = "transaction"
	KindBlockMetadata = "block_metadata"
)

// Command 评估的一条命令: 用户交易或区块元数据
type Command interface {
	Kind() string
}

// TransactionCommand 用户交易
type TransactionCommand struct {
	Config *TransactionConfig
	Input  string
}

// Kind kind
func (c *TransactionCommand) Kind() string {
	return KindTransaction
}

// BlockMetadataCommand 区块元数据
type BlockMetadataCommand struct {
	Metadata *types.BlockMetadata
}

// Kind kind
func (c *BlockMetadataCommand) Kind() string {
	return KindBlockMetadata
}

type commandJSON struct {
	Kind     string         `json:"kind"`
	Config   *txConfigJSON  `json:"config"`
	Input    string         `json:"input"`
	Metadata *blockMetaJSON `json:"metadata"`
}

type txConfigJSON struct {
	Sender         string   `json:"sender"`
	SequenceNumber *uint64  `json:"sequence_number"`
	MaxGas         *uint64  `json:"max_gas"`
	GasPrice       *uint64  `json:"gas_price"`
	ExpirationTime *uint64  `json:"expiration_time"`
	TyArgs         []string `json:"ty_args"`
	Args           []string `json:"args"`
	DisabledStages []string `json:"disabled_stages"`
}

type blockMetaJSON struct {
	ParentHash string `json:"parent_hash"`
	Timestamp  uint64 `json:"timestamp"`
	Author     string `json:"author"`
	Number     uint64 `json:"number"`
	ChainID    *uint8 `json:"chain_id"`
}

// ParseCommands 解析 json 格式的命令列表, 输入与参数中的 {{name}} 替换为账户地址
func ParseCommands(data []byte, g *GlobalConfig) ([]Command, error) {
	var raw []*commandJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(types.ErrInvalidCommand, err.Error())
	}
	commands := make([]Command, 0, len(raw))
	for i, c := range raw {
		cmd, err := c.toCommand(g)
		if err != nil {
			return nil, errors.Wrapf(err, "command %d", i)
		}
		commands = append(commands, cmd)
	}
	return commands, nil
}

func (c *commandJSON) toCommand(g *GlobalConfig) (Command, error) {
	switch c.Kind {
	case KindTransaction:
		cfg, err := c.Config.toConfig(g)
		if err != nil {
			return nil, err
		}
		input, err := g.Substitute(c.Input)
		if err != nil {
			return nil, err
		}
		return &TransactionCommand{Config: cfg, Input: input}, nil
	case KindBlockMetadata:
		if c.Metadata == nil {
			return nil, errors.Wrap(types.ErrInvalidCommand, "block_metadata without metadata")
		}
		meta, err := c.Metadata.toMetadata(g)
		if err != nil {
			return nil, err
		}
		return &BlockMetadataCommand{Metadata: meta}, nil
	}
	return nil, errors.Wrapf(types.ErrInvalidCommand, "unknown kind %q", c.Kind)
}

func (c *txConfigJSON) toConfig(g *GlobalConfig) (*TransactionConfig, error) {
	if c == nil {
		c = &txConfigJSON{}
	}
	name := c.Sender
	if name == "" {
		name = types.DefaultAccountName
	}
	sender, err := g.Account(name)
	if err != nil {
		return nil, err
	}
	cfg := NewTransactionConfig(sender)
	cfg.SequenceNumber = c.SequenceNumber
	cfg.MaxGas = c.MaxGas
	cfg.GasPrice = c.GasPrice
	cfg.ExpirationTime = c.ExpirationTime
	for _, s := range c.TyArgs {
		tag, err := types.ParseTypeTag(s)
		if err != nil {
			return nil, err
		}
		cfg.TyArgs = append(cfg.TyArgs, tag)
	}
	for _, s := range c.Args {
		text, err := g.Substitute(s)
		if err != nil {
			return nil, err
		}
		arg, err := types.ParseTransactionArgument(text)
		if err != nil {
			return nil, err
		}
		cfg.Args = append(cfg.Args, arg)
	}
	for _, s := range c.DisabledStages {
		stage, err := ParseStage(s)
		if err != nil {
			return nil, err
		}
		cfg.DisabledStages[stage] = true
	}
	return cfg, nil
}

func (m *blockMetaJSON) toMetadata(g *GlobalConfig) (*types.BlockMetadata, error) {
	meta := &types.BlockMetadata{
		Timestamp: m.Timestamp,
		Number:    m.Number,
		ChainID:   types.ChainID(g.Evaluator.ChainID),
	}
	if m.ChainID != nil {
		meta.ChainID = types.ChainID(*m.ChainID)
	}
	if m.ParentHash != "" {
		hash, err := common.FromHex(m.ParentHash)
		if err != nil {
			return nil, errors.Wrapf(types.ErrInvalidCommand, "parent_hash %q: %v", m.ParentHash, err)
		}
		meta.ParentHash = hash
	}
	if m.Author != "" {
		author, err := g.Substitute(m.Author)
		if err != nil {
			return nil, err
		}
		if acc, err := g.Account(author); err == nil {
			author = acc.Address().Hex()
		}
		addr, err := types.ParseAddress(author)
		if err != nil {
			return nil, err
		}
		meta.Author = addr
	}
	return meta, nil
}
