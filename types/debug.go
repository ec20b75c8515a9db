// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// 固定格式的调试输出, 不打印指针地址与容量, map 按 key 排序
var debugConfig = spew.ConfigState{
	Indent:                  "    ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// DebugString 确定性的结构化输出
func DebugString(v interface{}) string {
	return strings.TrimRight(debugConfig.Sdump(v), "\n")
}
