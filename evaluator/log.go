// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaluator

import (
	"fmt"
	"strings"

	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/types"
)

// Status 每条命令的最终结果
type Status int

// 结果
const (
	Success Status = iota
	Failure
)

func (s Status) String() string {
	if s == Success {
		return "Success"
	}
	return "Failure"
}

// OutputKind 输出的种类
type OutputKind int

// 输出种类
const (
	CompiledScriptOutput OutputKind = iota
	CompiledModuleOutput
	CompilerLogOutput
	TransactionOutputOutput
)

// OutputType 各阶段的产物
type OutputType struct {
	Kind      OutputKind
	Script    *bytecode.CompiledScript
	Module    *bytecode.CompiledModule
	Log       string
	TxnOutput *types.TransactionOutput
}

func (o *OutputType) String() string {
	switch o.Kind {
	case CompiledScriptOutput:
		return o.Script.DebugString()
	case CompiledModuleOutput:
		return o.Module.DebugString()
	case CompilerLogOutput:
		return o.Log
	}
	return types.DebugString(o.TxnOutput)
}

// EvaluationOutput 日志中的一项
type EvaluationOutput interface {
	fmt.Stringer
	evaluationOutput()
}

// TransactionEntry 开始处理第 n 条命令
type TransactionEntry int

// StageEntry 进入某个阶段
type StageEntry Stage

// OutputEntry 阶段产物
type OutputEntry struct {
	Output *OutputType
}

// ErrorEntry 阶段错误
type ErrorEntry struct {
	Err error
}

// StatusEntry 命令的最终结果
type StatusEntry Status

func (TransactionEntry) evaluationOutput() {}
func (StageEntry) evaluationOutput()       {}
func (OutputEntry) evaluationOutput()      {}
func (ErrorEntry) evaluationOutput()       {}
func (StatusEntry) evaluationOutput()      {}

func (e TransactionEntry) String() string { return fmt.Sprintf("Transaction %d", int(e)) }
func (e StageEntry) String() string       { return "Stage: " + Stage(e).String() }
func (e OutputEntry) String() string      { return e.Output.String() }
func (e ErrorEntry) String() string       { return "Error: " + e.Err.Error() }
func (e StatusEntry) String() string      { return "Status: " + Status(e).String() }

// IsError 是否为错误项
func IsError(o EvaluationOutput) bool {
	_, ok := o.(ErrorEntry)
	return ok
}

// FailedTransaction 失败的命令及其失败时所处的阶段
type FailedTransaction struct {
	Index int
	Stage Stage
}

// EvaluationLog 只追加的评估日志
type EvaluationLog struct {
	Outputs []EvaluationOutput
}

// NewEvaluationLog new
func NewEvaluationLog() *EvaluationLog {
	return &EvaluationLog{}
}

// Append 追加
func (l *EvaluationLog) Append(o EvaluationOutput) {
	l.Outputs = append(l.Outputs, o)
}

// Len 日志项数
func (l *EvaluationLog) Len() int {
	return len(l.Outputs)
}

// Statuses 所有命令的最终结果, 与命令顺序一致
func (l *EvaluationLog) Statuses() []Status {
	var list []Status
	for _, o := range l.Outputs {
		if s, ok := o.(StatusEntry); ok {
			list = append(list, Status(s))
		}
	}
	return list
}

// FailedTransactions 扫描日志, 每个 Failure 取之前最近的 Transaction 与 Stage.
// Failure 之前没有这两项说明日志构造有误, 直接 panic
func (l *EvaluationLog) FailedTransactions() []FailedTransaction {
	var (
		res       []FailedTransaction
		lastTxn   = -1
		lastStage = Stage(-1)
	)
	for _, o := range l.Outputs {
		switch e := o.(type) {
		case TransactionEntry:
			lastTxn = int(e)
		case StageEntry:
			lastStage = Stage(e)
		case StatusEntry:
			if Status(e) != Failure {
				continue
			}
			if lastTxn < 0 || lastStage < 0 {
				panic("evaluation log: failure status without preceding transaction and stage")
			}
			res = append(res, FailedTransaction{Index: lastTxn, Stage: lastStage})
		}
	}
	return res
}

func (l *EvaluationLog) String() string {
	var b strings.Builder
	for i, o := range l.Outputs {
		fmt.Fprintf(&b, "[%d] %s\n", i, o)
	}
	return b.String()
}
