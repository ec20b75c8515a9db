// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaluator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/33cn/functest/types"
	"github.com/pkg/errors"
)

// Stage 交易经过的阶段, 按执行顺序排列
type Stage int

// 阶段
const (
	Compiler Stage = iota
	Verifier
	Serializer
	Runtime
)

var stageNames = []string{"Compiler", "Verifier", "Serializer", "Runtime"}

func (s Stage) String() string {
	if s < Compiler || s > Runtime {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// ParseStage 解析小写的阶段名
func ParseStage(s string) (Stage, error) {
	for i, name := range stageNames {
		if strings.ToLower(name) == s {
			return Stage(i), nil
		}
	}
	return 0, errors.Wrapf(types.ErrUnknownStage, "unrecognized stage %q", s)
}

// StageSet 阶段集合
type StageSet map[Stage]bool

// NewStageSet new
func NewStageSet(stages ...Stage) StageSet {
	set := make(StageSet, len(stages))
	for _, s := range stages {
		set[s] = true
	}
	return set
}

// Has 是否包含
func (set StageSet) Has(s Stage) bool {
	return set[s]
}

// List 按阶段顺序排列
func (set StageSet) List() []Stage {
	list := make([]Stage, 0, len(set))
	for s, ok := range set {
		if ok {
			list = append(list, s)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

type gateAction int

const (
	gateRun gateAction = iota
	gateSkip
	gateStop
)

func (a gateAction) String() string {
	switch a {
	case gateRun:
		return "run"
	case gateSkip:
		return "skip"
	}
	return "stop"
}

// stagePlan 阶段状态机: 被禁用的阶段终止后续所有阶段并返回成功,
// 只有 Serializer 被禁用时跳过本阶段继续执行 Runtime
type stagePlan struct {
	disabled StageSet
}

func (p stagePlan) gate(s Stage) gateAction {
	if !p.disabled.Has(s) {
		return gateRun
	}
	if s == Serializer {
		return gateSkip
	}
	return gateStop
}
