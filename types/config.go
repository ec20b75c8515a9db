// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// 默认配置
const (
	DefaultMaxGasUnits            uint64 = 40000000
	DefaultMinTransactionGasUnits uint64 = 600
	DefaultExpirationOffset       uint64 = 3600
	DefaultCompilerCacheSize             = 128
	DefaultAccountName                   = "default"
	DefaultSignType                      = "secp256k1"
	GenesisAccountName                   = "root"
	DefaultAccountBalance                = "1000000000000000"
	DefaultGenesisBalance                = "100000000000000000"
)

// Config 配置文件的根
type Config struct {
	Title     string           `toml:"Title"`
	Log       *Log             `toml:"log"`
	Evaluator *Evaluator       `toml:"evaluator"`
	Accounts  []*AccountConfig `toml:"account"`
}

// Log 日志配置
type Log struct {
	// 日志级别, 支持 debug(dbug)/info/warn/error(eror)/crit
	Loglevel        string `toml:"loglevel"`
	LogConsoleLevel string `toml:"logConsoleLevel"`
	// 日志文件名, 可带目录, 所有生成的日志文件都放到此目录下
	LogFile string `toml:"logFile"`
	// 单个日志文件的最大值(单位: 兆)
	MaxFileSize uint32 `toml:"maxFileSize"`
	// 最多保存的历史日志文件个数
	MaxBackups uint32 `toml:"maxBackups"`
	// 最多保存的历史日志消息(单位: 天)
	MaxAge uint32 `toml:"maxAge"`
	// 日志文件名是否使用本地时间
	LocalTime bool `toml:"localTime"`
	// 历史日志文件是否压缩(压缩格式为gz)
	Compress bool `toml:"compress"`
	// 是否打印调用源文件和行号
	CallerFile bool `toml:"callerFile"`
	// 是否打印调用方法
	CallerFunction bool `toml:"callerFunction"`
}

// Evaluator 测试执行环境配置
type Evaluator struct {
	ChainID                uint8  `toml:"chainID"`
	MaxGasUnits            uint64 `toml:"maxGasUnits"`
	MinTransactionGasUnits uint64 `toml:"minTransactionGasUnits"`
	// 交易默认过期时间 = 当前区块时间 + ExpirationOffset (秒)
	ExpirationOffset  uint64 `toml:"expirationOffset"`
	CompilerCacheSize int    `toml:"compilerCacheSize"`
	GenesisTimestamp  uint64 `toml:"genesisTimestamp"`
	GenesisBalance    string `toml:"genesisBalance"`
}

// AccountConfig 测试账户, 私钥由账户名确定性生成
type AccountConfig struct {
	Name           string `toml:"name"`
	Balance        string `toml:"balance"`
	SequenceNumber uint64 `toml:"sequenceNumber"`
	// 签名算法, 支持 secp256k1/sm2
	SignType string `toml:"signType"`
}

// DefaultConfig 只包含 default 账户的配置
func DefaultConfig() *Config {
	cfg := &Config{Title: "functest"}
	fillDefault(cfg)
	return cfg
}

// InitCfg 从文件读取配置
func InitCfg(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(ErrConfigNotFound, "config file %s: %v", path, err)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "decode %s: %v", path, err)
	}
	fillDefault(cfg)
	return cfg, cfg.check()
}

// InitCfgString 从字符串读取配置
func InitCfgString(s string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.Decode(s, cfg); err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, err.Error())
	}
	fillDefault(cfg)
	return cfg, cfg.check()
}

func fillDefault(cfg *Config) {
	if cfg.Log == nil {
		cfg.Log = &Log{}
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = &Evaluator{}
	}
	ev := cfg.Evaluator
	if ev.ChainID == 0 {
		ev.ChainID = uint8(TestChainID)
	}
	if ev.MaxGasUnits == 0 {
		ev.MaxGasUnits = DefaultMaxGasUnits
	}
	if ev.MinTransactionGasUnits == 0 {
		ev.MinTransactionGasUnits = DefaultMinTransactionGasUnits
	}
	if ev.CompilerCacheSize <= 0 {
		ev.CompilerCacheSize = DefaultCompilerCacheSize
	}
	if ev.GenesisBalance == "" {
		ev.GenesisBalance = DefaultGenesisBalance
	}
	for _, acc := range cfg.Accounts {
		if acc.Balance == "" {
			acc.Balance = DefaultAccountBalance
		}
		if acc.SignType == "" {
			acc.SignType = DefaultSignType
		}
	}
	for _, acc := range cfg.Accounts {
		if acc.Name == DefaultAccountName {
			return
		}
	}
	cfg.Accounts = append(cfg.Accounts, &AccountConfig{Name: DefaultAccountName, Balance: DefaultAccountBalance, SignType: DefaultSignType})
}

func (cfg *Config) check() error {
	seen := make(map[string]bool)
	for _, acc := range cfg.Accounts {
		if acc.Name == "" {
			return errors.Wrap(ErrInvalidConfig, "account without name")
		}
		if acc.Name == GenesisAccountName {
			return errors.Wrapf(ErrInvalidConfig, "account name %s is reserved", acc.Name)
		}
		if seen[acc.Name] {
			return errors.Wrapf(ErrInvalidConfig, "duplicate account %s", acc.Name)
		}
		seen[acc.Name] = true
	}
	if cfg.Evaluator.MinTransactionGasUnits > cfg.Evaluator.MaxGasUnits {
		return errors.Wrap(ErrInvalidConfig, "minTransactionGasUnits above maxGasUnits")
	}
	return nil
}
