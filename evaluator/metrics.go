// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaluator

import (
	"time"

	"github.com/33cn/functest/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 评估过程的统计
type Metrics struct {
	Commands      *prometheus.CounterVec
	StageFailures *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	GasUsed       prometheus.Counter
}

// NewMetrics new
func NewMetrics() *Metrics {
	return &Metrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "evaluator",
			Name:      "commands_total",
			Help:      "Number of evaluated commands by kind and final status.",
		}, []string{"kind", "status"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "evaluator",
			Name:      "stage_failures_total",
			Help:      "Number of transactions that failed at each stage.",
		}, []string{"stage"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "evaluator",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each stage.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"stage"}),
		GasUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "evaluator",
			Name:      "gas_used_total",
			Help:      "Gas used by kept transactions.",
		}),
	}
}

// Metrics 实现 metrics.Collector
func (m *Metrics) Metrics() []prometheus.Collector {
	return metrics.PrometheusCollectorsFromFields(m)
}

func (m *Metrics) command(kind string, status Status) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(kind, status.String()).Inc()
}

func (m *Metrics) stageFailed(s Stage) {
	if m == nil {
		return
	}
	m.StageFailures.WithLabelValues(s.String()).Inc()
}

func (m *Metrics) observeStage(s Stage, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(s.String()).Observe(time.Since(start).Seconds())
}

func (m *Metrics) gas(used uint64) {
	if m == nil {
		return
	}
	m.GasUsed.Add(float64(used))
}
