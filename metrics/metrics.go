// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics prometheus 指标的公共定义
package metrics

import (
	"reflect"
	"strings"

	"github.com/33cn/functest/common/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
)

var mlog = log.New("module", "metrics")

// Namespace 所有指标的前缀
var Namespace = "functest"

// Collector 对外暴露一组指标
type Collector interface {
	Metrics() []prometheus.Collector
}

// PrometheusCollectorsFromFields 结构体中所有导出的 prometheus.Collector 字段
func PrometheusCollectorsFromFields(i interface{}) (cs []prometheus.Collector) {
	v := reflect.Indirect(reflect.ValueOf(i))
	for i := 0; i < v.NumField(); i++ {
		if !v.Field(i).CanInterface() {
			continue
		}
		if u, ok := v.Field(i).Interface().(prometheus.Collector); ok {
			cs = append(cs, u)
		}
	}
	return cs
}

// NewRegistry 带进程与运行时标准指标的注册表
func NewRegistry(version string) *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
			Namespace: Namespace,
		}),
		collectors.NewGoCollector(),
		prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "info",
			Help:      "functest information.",
			ConstLabels: prometheus.Labels{
				"version": version,
			},
		}),
	)
	return r
}

// Register 注册 Collector 的所有指标
func Register(r prometheus.Registerer, c Collector) error {
	for _, m := range c.Metrics() {
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Gather 按名字前缀收集指标
func Gather(g prometheus.Gatherer, prefix string) ([]*dto.MetricFamily, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	var list []*dto.MetricFamily
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), prefix) {
			list = append(list, mf)
		}
	}
	return list, nil
}

// LogSummary 以日志输出指标, 计数器与仪表盘输出当前值, 直方图输出样本数与总和
func LogSummary(g prometheus.Gatherer, prefix string) {
	families, err := Gather(g, prefix)
	if err != nil {
		mlog.Error("LogSummary", "err", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			ctx := []interface{}{"name", mf.GetName()}
			for _, lp := range m.GetLabel() {
				ctx = append(ctx, lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				ctx = append(ctx, "value", m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				ctx = append(ctx, "value", m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				ctx = append(ctx, "count", m.GetHistogram().GetSampleCount(), "sum", m.GetHistogram().GetSampleSum())
			}
			mlog.Info("metric", ctx...)
		}
	}
}
