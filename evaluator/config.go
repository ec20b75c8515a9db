// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaluator

import (
	"regexp"
	"sort"

	"github.com/33cn/functest/account"
	"github.com/33cn/functest/types"
	"github.com/pkg/errors"
)

var placeholderRegexp = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// GlobalConfig 一次评估共用的配置: 测试账户与创世账户
type GlobalConfig struct {
	Evaluator       *types.Evaluator
	Accounts        map[string]*account.AccountData
	GenesisAccounts map[string]*account.Account
}

// NewGlobalConfig 由配置文件生成
func NewGlobalConfig(cfg *types.Config) (*GlobalConfig, error) {
	if cfg == nil {
		cfg = types.DefaultConfig()
	}
	g := &GlobalConfig{
		Evaluator:       cfg.Evaluator,
		Accounts:        make(map[string]*account.AccountData),
		GenesisAccounts: map[string]*account.Account{types.GenesisAccountName: account.NewAccount(types.GenesisAccountName)},
	}
	for _, ac := range cfg.Accounts {
		balance, err := account.ParseBalance(ac.Balance)
		if err != nil {
			return nil, errors.Wrapf(err, "account %s", ac.Name)
		}
		acc, err := account.NewAccountWithSignType(ac.Name, ac.SignType)
		if err != nil {
			return nil, err
		}
		g.Accounts[ac.Name] = account.NewAccountData(acc, balance, ac.SequenceNumber)
	}
	return g, nil
}

// AccountNames 测试账户名, 字母序
func (g *GlobalConfig) AccountNames() []string {
	return sortedKeys(g.Accounts)
}

// GenesisNames 创世账户名, 字母序
func (g *GlobalConfig) GenesisNames() []string {
	return sortedKeys(g.GenesisAccounts)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Account 按名字查找测试账户或创世账户
func (g *GlobalConfig) Account(name string) (*account.Account, error) {
	if data, ok := g.Accounts[name]; ok {
		return data.Account, nil
	}
	if acc, ok := g.GenesisAccounts[name]; ok {
		return acc, nil
	}
	return nil, errors.Wrapf(types.ErrUnknownAccount, "account %q", name)
}

// Substitute 把 {{name}} 替换为账户地址
func (g *GlobalConfig) Substitute(s string) (string, error) {
	var err error
	out := placeholderRegexp.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholderRegexp.FindStringSubmatch(m)[1]
		acc, e := g.Account(name)
		if e != nil {
			if err == nil {
				err = e
			}
			return m
		}
		return acc.Address().Hex()
	})
	return out, err
}

// TransactionConfig 单笔交易的配置, 未设置的参数在执行时由链上状态推导
type TransactionConfig struct {
	Sender         *account.Account
	SequenceNumber *uint64
	MaxGas         *uint64
	GasPrice       *uint64
	ExpirationTime *uint64
	TyArgs         []types.TypeTag
	Args           []types.TransactionArgument
	DisabledStages StageSet
}

// NewTransactionConfig 默认配置
func NewTransactionConfig(sender *account.Account) *TransactionConfig {
	return &TransactionConfig{Sender: sender, DisabledStages: NewStageSet()}
}

// IsStageDisabled 阶段是否被禁用
func (c *TransactionConfig) IsStageDisabled(s Stage) bool {
	return c.DisabledStages.Has(s)
}
