// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cli functest 命令行
package cli

import (
	"fmt"
	"os"

	"github.com/33cn/functest/common/log"
	"github.com/33cn/functest/types"
	"github.com/33cn/functest/util"
	"github.com/spf13/cobra"
)

// Version 由编译参数覆盖
var Version = "1.0.0"

// DefaultConfigFile 未指定 -f 时在当前目录查找的配置文件
const DefaultConfigFile = "functest.toml"

// NewRootCmd 根命令
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "functest",
		Short:         "functional test evaluator for contract bytecode",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("conf", "f", "", "config file, "+DefaultConfigFile+" in the working directory or built-in defaults when empty")
	rootCmd.PersistentFlags().String("log_level", "", "console log level, overrides the config file")
	rootCmd.AddCommand(
		RunCmd(),
		AccountsCmd(),
		StdlibCmd(),
		VersionCmd(),
	)
	return rootCmd
}

//Run :
func Run() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 读取配置并设置日志
func loadConfig(cmd *cobra.Command) (*types.Config, error) {
	path, _ := cmd.Flags().GetString("conf")
	if path == "" && util.CheckFileIsExist(DefaultConfigFile) {
		path = DefaultConfigFile
	}
	cfg := types.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = types.InitCfg(path)
		if err != nil {
			return nil, err
		}
	}
	level, _ := cmd.Flags().GetString("log_level")
	if level != "" {
		log.SetLogLevel(level)
	} else {
		log.SetFileLog(cfg.Log)
	}
	return cfg, nil
}

// VersionCmd version command
func VersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
	return cmd
}
