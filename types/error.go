// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import "errors"

// 公共错误定义
var (
	ErrInvalidAddress        = errors.New("ErrInvalidAddress")
	ErrInvalidAccessPath     = errors.New("ErrInvalidAccessPath")
	ErrInvalidTypeTag        = errors.New("ErrInvalidTypeTag")
	ErrInvalidArgument       = errors.New("ErrInvalidArgument")
	ErrEncode                = errors.New("ErrEncode")
	ErrDecode                = errors.New("ErrDecode")
	ErrNotFound              = errors.New("ErrNotFound")
	ErrAccountNotFound       = errors.New("ErrAccountNotFound")
	ErrBalanceNotFound       = errors.New("ErrBalanceNotFound")
	ErrChainIDMismatch       = errors.New("ErrChainIDMismatch")
	ErrInvariantViolation    = errors.New("ErrInvariantViolation")
	ErrUnknownStage          = errors.New("ErrUnknownStage")
	ErrUnknownAccount        = errors.New("ErrUnknownAccount")
	ErrInvalidCommand        = errors.New("ErrInvalidCommand")
	ErrConfigNotFound        = errors.New("ErrConfigNotFound")
	ErrInvalidConfig         = errors.New("ErrInvalidConfig")
	ErrEmptyBlock            = errors.New("ErrEmptyBlock")
	ErrUnexpectedTransaction = errors.New("ErrUnexpectedTransaction")
	ErrNoBalance             = errors.New("ErrNoBalance")
	ErrSendSameToRecv        = errors.New("ErrSendSameToRecv")
	ErrReadOnly              = errors.New("ErrReadOnly")
	ErrAmount                = errors.New("ErrAmount")
)
