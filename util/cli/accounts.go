// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"fmt"
	"strconv"

	"github.com/33cn/functest/account"
	"github.com/33cn/functest/evaluator"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// AccountsCmd 列出配置中的测试账户与创世账户
func AccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List configured accounts and their addresses",
		RunE:  listAccounts,
	}
	return cmd
}

func listAccounts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	g, err := evaluator.NewGlobalConfig(cfg)
	if err != nil {
		return err
	}
	genesisBalance, err := account.ParseBalance(cfg.Evaluator.GenesisBalance)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Name", "Address", "Sign Type", "Balance", "Sequence", "Genesis"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, name := range g.AccountNames() {
		data := g.Accounts[name]
		table.Append([]string{name, data.Address().Hex(), data.Account.SignType(), account.FormatToken(data.Balance),
			strconv.FormatUint(data.SequenceNumber, 10), "no"})
	}
	for _, name := range g.GenesisNames() {
		acc := g.GenesisAccounts[name]
		table.Append([]string{name, acc.Address().Hex(), acc.SignType(), account.FormatToken(genesisBalance), "0", "yes"})
	}
	table.Render()
	return nil
}

// StdlibCmd 列出预编译脚本
func StdlibCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stdlib",
		Short: "List precompiled scripts usable as transaction input",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range evaluator.PrecompiledNames() {
				fmt.Fprintln(cmd.OutOrStdout(), evaluator.PrecompiledPrefix+name)
			}
		},
	}
	return cmd
}
