// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package verifier

import (
	"fmt"

	"github.com/33cn/functest/types"
)

// VMError 校验失败, Function 与 Offset 为 -1 时表示与具体代码位置无关
type VMError struct {
	Code     types.StatusCode
	Location string
	Function int
	Offset   int
	Message  string
}

func newError(code types.StatusCode, location string, format string, args ...interface{}) *VMError {
	return &VMError{Code: code, Location: location, Function: -1, Offset: -1, Message: fmt.Sprintf(format, args...)}
}

func (e *VMError) at(function, offset int) *VMError {
	e.Function = function
	e.Offset = offset
	return e
}

func (e *VMError) Error() string {
	if e.Function >= 0 {
		return fmt.Sprintf("%s at %s function %d offset %d: %s", e.Code, e.Location, e.Function, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Location, e.Message)
}

// VMStatus 对应的虚拟机状态
func (e *VMError) VMStatus() types.VMStatus {
	return types.ErrorStatus(e.Code)
}
