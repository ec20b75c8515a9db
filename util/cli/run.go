// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/33cn/functest/common/log"
	"github.com/33cn/functest/compiler"
	"github.com/33cn/functest/evaluator"
	"github.com/33cn/functest/metrics"
	"github.com/33cn/functest/util"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
)

var clilog = log.New("module", "cli")

// RunCmd 评估命令文件
func RunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [commands.json...]",
		Short: "Evaluate command files and print the evaluation log",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runEval,
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("out", "o", "", "also write the evaluation logs to this file")
	cmd.Flags().Bool("metrics", false, "print a metrics summary after the run")
	cmd.Flags().Bool("no_color", false, "disable colored output")
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	g, err := evaluator.NewGlobalConfig(cfg)
	if err != nil {
		return err
	}
	cacheReg := gometrics.NewRegistry()
	m := evaluator.NewMetrics()
	reg := metrics.NewRegistry(Version)
	if err := metrics.Register(reg, m); err != nil {
		return err
	}
	noColor, _ := cmd.Flags().GetBool("no_color")
	p := newPrinter(cmd.OutOrStdout(), noColor)

	var (
		rendered strings.Builder
		total    int
		failed   int
		entries  int
		cache    *compiler.Cached
	)
	for _, file := range args {
		data, err := util.ReadFile(file)
		if err != nil {
			return err
		}
		commands, err := evaluator.ParseCommands(data, g)
		if err != nil {
			return errors.Wrapf(err, "parse %s", file)
		}
		clilog.Info("runEval", "file", file, "commands", len(commands))
		// 每次评估使用独立的编译缓存, 命中计数在 cacheReg 中累计
		cache, err = compiler.NewCached(compiler.Assembler{}, cfg.Evaluator.CompilerCacheSize, cacheReg)
		if err != nil {
			return err
		}
		l, err := evaluator.Eval(g, cache, commands, evaluator.WithMetrics(m))
		entries += cache.Len()
		p.header(file)
		if l != nil {
			p.log(l)
			fmt.Fprintf(&rendered, "# %s\n%s", file, l.String())
			for _, s := range l.Statuses() {
				total++
				if s == evaluator.Failure {
					failed++
				}
			}
		}
		if err != nil {
			return errors.Wrapf(err, "evaluate %s", file)
		}
	}
	p.summary(total, failed)

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if _, err := util.WriteStringToFile(out, rendered.String()); err != nil {
			return err
		}
	}
	if show, _ := cmd.Flags().GetBool("metrics"); show {
		metrics.LogSummary(reg, metrics.Namespace)
		fmt.Fprintf(cmd.OutOrStdout(), "compiler cache: hits=%d misses=%d entries=%d\n", cache.Hits(), cache.Misses(), entries)
	}
	return nil
}

// printer 按结果着色输出评估日志
type printer struct {
	w       io.Writer
	success *color.Color
	failure *color.Color
	title   *color.Color
}

func newPrinter(w io.Writer, noColor bool) *printer {
	p := &printer{
		w:       w,
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed, color.Bold),
		title:   color.New(color.FgCyan),
	}
	if noColor {
		p.success.DisableColor()
		p.failure.DisableColor()
		p.title.DisableColor()
	}
	return p
}

func (p *printer) header(file string) {
	p.title.Fprintf(p.w, "==> %s\n", file)
}

func (p *printer) log(l *evaluator.EvaluationLog) {
	for i, o := range l.Outputs {
		line := fmt.Sprintf("[%d] %s\n", i, o)
		switch e := o.(type) {
		case evaluator.ErrorEntry:
			p.failure.Fprint(p.w, line)
		case evaluator.StatusEntry:
			if evaluator.Status(e) == evaluator.Failure {
				p.failure.Fprint(p.w, line)
			} else {
				p.success.Fprint(p.w, line)
			}
		default:
			fmt.Fprint(p.w, line)
		}
	}
}

func (p *printer) summary(total, failed int) {
	if failed == 0 {
		p.success.Fprintf(p.w, "%d commands, all passed\n", total)
		return
	}
	p.failure.Fprintf(p.w, "%d commands, %d failed\n", total, failed)
}
