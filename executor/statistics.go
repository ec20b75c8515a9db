// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package executor

import (
	"time"

	"github.com/33cn/functest/types"
	gometrics "github.com/rcrowley/go-metrics"
)

// 执行统计的指标名
const (
	MetricKept     = "executor/tx/kept"
	MetricDiscard  = "executor/tx/discard"
	MetricExecuted = "executor/tx/executed"
	MetricGasUsed  = "executor/gas/used"
	MetricWriteOps = "executor/writeset/ops"
	MetricExecTime = "executor/tx/time"
)

type statistics struct {
	registry gometrics.Registry
	kept     gometrics.Meter
	discard  gometrics.Meter
	executed gometrics.Meter
	gasUsed  gometrics.Counter
	writeOps gometrics.Counter
	execTime gometrics.Timer
}

func newStatistics() *statistics {
	r := gometrics.NewRegistry()
	return &statistics{
		registry: r,
		kept:     gometrics.GetOrRegisterMeter(MetricKept, r),
		discard:  gometrics.GetOrRegisterMeter(MetricDiscard, r),
		executed: gometrics.GetOrRegisterMeter(MetricExecuted, r),
		gasUsed:  gometrics.GetOrRegisterCounter(MetricGasUsed, r),
		writeOps: gometrics.GetOrRegisterCounter(MetricWriteOps, r),
		execTime: gometrics.GetOrRegisterTimer(MetricExecTime, r),
	}
}

func (s *statistics) begin() time.Time {
	return time.Now()
}

func (s *statistics) end(start time.Time, output *types.TransactionOutput) {
	s.execTime.UpdateSince(start)
	if output.Status.IsDiscard() {
		s.discard.Mark(1)
		return
	}
	s.kept.Mark(1)
	if output.Status.IsExecuted() {
		s.executed.Mark(1)
	}
	s.gasUsed.Inc(int64(output.GasUsed))
}

// Metrics 执行统计, 每个执行器实例独立
func (exec *FakeExecutor) Metrics() gometrics.Registry {
	return exec.stat.registry
}
