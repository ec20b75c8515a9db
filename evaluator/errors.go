// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaluator

import (
	"fmt"

	"github.com/33cn/functest/types"
	"github.com/pkg/errors"
)

// ErrorKind 错误种类
type ErrorKind int

// 错误种类. 前几种是预期的测试结果, 记录到日志后继续执行;
// InternalInvariantViolation 表示测试框架本身有问题, 终止整个运行
const (
	CompileError ErrorKind = iota
	VerificationError
	DiscardedTransaction
	ExecutionFailure
	SerializationMismatch
	InternalInvariantViolation
	Other
)

var errorKindNames = map[ErrorKind]string{
	CompileError:               "CompileError",
	VerificationError:          "VerificationError",
	DiscardedTransaction:       "DiscardedTransaction",
	ExecutionFailure:           "ExecutionFailure",
	SerializationMismatch:      "SerializationMismatch",
	InternalInvariantViolation: "InternalInvariantViolation",
	Other:                      "Other",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error 记录在日志中的错误
type Error struct {
	Kind   ErrorKind
	Status types.VMStatus
	Output *types.TransactionOutput
	Detail string
	cause  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case VerificationError:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Status)
	case DiscardedTransaction:
		return fmt.Sprintf("%s(%s)", e.Kind, types.DebugString(e.Output))
	case ExecutionFailure:
		return fmt.Sprintf("%s(%s, %s)", e.Kind, e.Status, types.DebugString(e.Output))
	}
	return fmt.Sprintf("%s(%s)", e.Kind, e.Detail)
}

// Cause 原始错误
func (e *Error) Cause() error {
	return e.cause
}

// Unwrap 原始错误
func (e *Error) Unwrap() error {
	return e.cause
}

func compileError(err error) *Error {
	return &Error{Kind: CompileError, Detail: err.Error(), cause: err}
}

func verificationError(status types.VMStatus, cause error) *Error {
	return &Error{Kind: VerificationError, Status: status, cause: cause}
}

func discardedTransaction(output *types.TransactionOutput) *Error {
	return &Error{Kind: DiscardedTransaction, Status: output.Status.VMStatus(), Output: output}
}

func executionFailure(status types.VMStatus, output *types.TransactionOutput) *Error {
	return &Error{Kind: ExecutionFailure, Status: status, Output: output}
}

func otherError(format string, args ...interface{}) *Error {
	return &Error{Kind: Other, Detail: fmt.Sprintf(format, args...)}
}

// invariantViolation 测试框架内部错误, 由 Eval 返回
func invariantViolation(format string, args ...interface{}) error {
	return errors.Wrapf(types.ErrInvariantViolation, format, args...)
}

type statusError interface {
	VMStatus() types.VMStatus
}

// vmStatusOf 从校验或反序列化错误中取出执行结果
func vmStatusOf(err error, fallback types.StatusCode) types.VMStatus {
	var se statusError
	if errors.As(err, &se) {
		return se.VMStatus()
	}
	return types.ErrorStatus(fallback)
}
