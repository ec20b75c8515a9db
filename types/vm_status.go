// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import "fmt"

// StatusCode 虚拟机状态码
type StatusCode uint64

// 交易校验(prologue)状态码, 命中时交易被丢弃
const (
	StatusUnknownValidationStatus StatusCode = iota
	StatusInvalidSignature
	StatusInvalidAuthKey
	StatusSequenceNumberTooOld
	StatusSequenceNumberTooNew
	StatusInsufficientBalanceForTransactionFee
	StatusTransactionExpired
	StatusSendingAccountDoesNotExist
	StatusMaxGasUnitsExceedsMaxGasUnitsBound
	StatusMaxGasUnitsBelowMinTransactionGasUnits
	StatusGasUnitPriceAboveMaxBound
	StatusBadChainID
	StatusInvalidBlockTimestamp
	StatusInvalidBlockNumber
	StatusNumberOfTypeArgumentsMismatch
	StatusNumberOfArgumentsMismatch
	StatusTypeArgumentMismatch
)

// 字节码校验状态码
const (
	StatusUnknownVerificationError StatusCode = 1000 + iota
	StatusIndexOutOfBounds
	StatusDuplicateElement
	StatusEmptyCodeUnit
	StatusInvalidFallThrough
	StatusNegativeStackSizeWithinBlock
	StatusPositiveStackSizeAtBlockEnd
	StatusInvalidMainFunctionSignature
	StatusInvalidSelfModuleHandle
	StatusMissingDependency
	StatusLookupFailed
	StatusTypeMismatch
	StatusVisibilityMismatch
	StatusTooManyLocals
)

// 不变量违反
const (
	StatusUnknownInvariantViolationError StatusCode = 2000 + iota
	StatusStorageError
	StatusEmptyValueStack
)

// 反序列化
const (
	StatusUnknownBinaryError StatusCode = 3000 + iota
	StatusMalformed
	StatusBadMagic
	StatusUnknownOpcode
	StatusCodeDeserializationError
)

// 执行期
const (
	StatusUnknownRuntimeStatus StatusCode = 4000 + iota
	StatusExecuted
	StatusOutOfGas
	StatusAborted
	StatusArithmeticError
	StatusCallStackOverflow
	StatusLinkerError
	StatusRuntimeTypeMismatch
	StatusDuplicateModuleName
	StatusModuleAddressDoesNotMatchSender
	StatusResourceDoesNotExist
)

var statusCodeNames = map[StatusCode]string{
	StatusUnknownValidationStatus:                "UNKNOWN_VALIDATION_STATUS",
	StatusInvalidSignature:                       "INVALID_SIGNATURE",
	StatusInvalidAuthKey:                         "INVALID_AUTH_KEY",
	StatusSequenceNumberTooOld:                   "SEQUENCE_NUMBER_TOO_OLD",
	StatusSequenceNumberTooNew:                   "SEQUENCE_NUMBER_TOO_NEW",
	StatusInsufficientBalanceForTransactionFee:   "INSUFFICIENT_BALANCE_FOR_TRANSACTION_FEE",
	StatusTransactionExpired:                     "TRANSACTION_EXPIRED",
	StatusSendingAccountDoesNotExist:             "SENDING_ACCOUNT_DOES_NOT_EXIST",
	StatusMaxGasUnitsExceedsMaxGasUnitsBound:     "MAX_GAS_UNITS_EXCEEDS_MAX_GAS_UNITS_BOUND",
	StatusMaxGasUnitsBelowMinTransactionGasUnits: "MAX_GAS_UNITS_BELOW_MIN_TRANSACTION_GAS_UNITS",
	StatusGasUnitPriceAboveMaxBound:              "GAS_UNIT_PRICE_ABOVE_MAX_BOUND",
	StatusBadChainID:                             "BAD_CHAIN_ID",
	StatusInvalidBlockTimestamp:                  "INVALID_BLOCK_TIMESTAMP",
	StatusInvalidBlockNumber:                     "INVALID_BLOCK_NUMBER",
	StatusNumberOfTypeArgumentsMismatch:          "NUMBER_OF_TYPE_ARGUMENTS_MISMATCH",
	StatusNumberOfArgumentsMismatch:              "NUMBER_OF_ARGUMENTS_MISMATCH",
	StatusTypeArgumentMismatch:                   "TYPE_ARGUMENT_MISMATCH",

	StatusUnknownVerificationError:     "UNKNOWN_VERIFICATION_ERROR",
	StatusIndexOutOfBounds:             "INDEX_OUT_OF_BOUNDS",
	StatusDuplicateElement:             "DUPLICATE_ELEMENT",
	StatusEmptyCodeUnit:                "EMPTY_CODE_UNIT",
	StatusInvalidFallThrough:           "INVALID_FALL_THROUGH",
	StatusNegativeStackSizeWithinBlock: "NEGATIVE_STACK_SIZE_WITHIN_BLOCK",
	StatusPositiveStackSizeAtBlockEnd:  "POSITIVE_STACK_SIZE_AT_BLOCK_END",
	StatusInvalidMainFunctionSignature: "INVALID_MAIN_FUNCTION_SIGNATURE",
	StatusInvalidSelfModuleHandle:      "INVALID_SELF_MODULE_HANDLE",
	StatusMissingDependency:            "MISSING_DEPENDENCY",
	StatusLookupFailed:                 "LOOKUP_FAILED",
	StatusTypeMismatch:                 "TYPE_MISMATCH",
	StatusVisibilityMismatch:           "VISIBILITY_MISMATCH",
	StatusTooManyLocals:                "TOO_MANY_LOCALS",

	StatusUnknownInvariantViolationError: "UNKNOWN_INVARIANT_VIOLATION_ERROR",
	StatusStorageError:                   "STORAGE_ERROR",
	StatusEmptyValueStack:                "EMPTY_VALUE_STACK",

	StatusUnknownBinaryError:       "UNKNOWN_BINARY_ERROR",
	StatusMalformed:                "MALFORMED",
	StatusBadMagic:                 "BAD_MAGIC",
	StatusUnknownOpcode:            "UNKNOWN_OPCODE",
	StatusCodeDeserializationError: "CODE_DESERIALIZATION_ERROR",

	StatusUnknownRuntimeStatus:            "UNKNOWN_RUNTIME_STATUS",
	StatusExecuted:                        "EXECUTED",
	StatusOutOfGas:                        "OUT_OF_GAS",
	StatusAborted:                         "ABORTED",
	StatusArithmeticError:                 "ARITHMETIC_ERROR",
	StatusCallStackOverflow:               "CALL_STACK_OVERFLOW",
	StatusLinkerError:                     "LINKER_ERROR",
	StatusRuntimeTypeMismatch:             "RUNTIME_TYPE_MISMATCH",
	StatusDuplicateModuleName:             "DUPLICATE_MODULE_NAME",
	StatusModuleAddressDoesNotMatchSender: "MODULE_ADDRESS_DOES_NOT_MATCH_SENDER",
	StatusResourceDoesNotExist:            "RESOURCE_DOES_NOT_EXIST",
}

func (c StatusCode) String() string {
	if name, ok := statusCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_STATUS_CODE(%d)", uint64(c))
}

// StatusType 状态码分类
type StatusType int

// 状态码分类
const (
	StatusTypeValidation StatusType = iota
	StatusTypeVerification
	StatusTypeInvariantViolation
	StatusTypeDeserialization
	StatusTypeExecution
	StatusTypeUnknown
)

// Type 根据状态码区间返回分类
func (c StatusCode) Type() StatusType {
	switch {
	case c < 1000:
		return StatusTypeValidation
	case c < 2000:
		return StatusTypeVerification
	case c < 3000:
		return StatusTypeInvariantViolation
	case c < 4000:
		return StatusTypeDeserialization
	case c < 5000:
		return StatusTypeExecution
	}
	return StatusTypeUnknown
}

// LocationScript 脚本执行时的位置名
const LocationScript = "Script"

// VMStatusKind 虚拟机执行结果种类
type VMStatusKind int

// 执行结果种类
const (
	VMStatusExecuted VMStatusKind = iota
	VMStatusError
	VMStatusMoveAbort
	VMStatusExecutionFailure
)

// VMStatus 虚拟机执行结果
type VMStatus struct {
	Kind       VMStatusKind
	StatusCode StatusCode
	Location   string
	AbortCode  uint64
	Function   uint16
	CodeOffset uint16
}

// ExecutedStatus 执行成功
func ExecutedStatus() VMStatus {
	return VMStatus{Kind: VMStatusExecuted, StatusCode: StatusExecuted}
}

// ErrorStatus 以状态码表示的错误
func ErrorStatus(code StatusCode) VMStatus {
	return VMStatus{Kind: VMStatusError, StatusCode: code}
}

// AbortStatus 合约主动 abort
func AbortStatus(location string, code uint64) VMStatus {
	return VMStatus{Kind: VMStatusMoveAbort, StatusCode: StatusAborted, Location: location, AbortCode: code}
}

// ExecutionFailureStatus 执行期错误, 带出错位置
func ExecutionFailureStatus(code StatusCode, location string, function, offset uint16) VMStatus {
	return VMStatus{Kind: VMStatusExecutionFailure, StatusCode: code, Location: location, Function: function, CodeOffset: offset}
}

// IsExecuted 是否执行成功
func (s VMStatus) IsExecuted() bool {
	return s.Kind == VMStatusExecuted
}

func (s VMStatus) String() string {
	switch s.Kind {
	case VMStatusExecuted:
		return "Executed"
	case VMStatusMoveAbort:
		return fmt.Sprintf("MoveAbort(%s, %d)", s.Location, s.AbortCode)
	case VMStatusExecutionFailure:
		return fmt.Sprintf("ExecutionFailure { status_code: %s, location: %s, function: %d, code_offset: %d }",
			s.StatusCode, s.Location, s.Function, s.CodeOffset)
	}
	return fmt.Sprintf("Error(%s)", s.StatusCode)
}

// KeepOrDiscard 将执行结果转换为交易状态
func (s VMStatus) KeepOrDiscard() TransactionStatus {
	switch s.Kind {
	case VMStatusExecuted:
		return KeepStatus(KeptVMStatus{Kind: KeptExecuted})
	case VMStatusMoveAbort:
		return KeepStatus(KeptVMStatus{Kind: KeptMoveAbort, Location: s.Location, Code: s.AbortCode})
	case VMStatusExecutionFailure:
		return KeepStatus(KeptVMStatus{Kind: KeptExecutionFailure, Location: s.Location, Code: uint64(s.StatusCode),
			Function: s.Function, CodeOffset: s.CodeOffset})
	}
	if s.StatusCode == StatusOutOfGas {
		return KeepStatus(KeptVMStatus{Kind: KeptOutOfGas})
	}
	if s.StatusCode.Type() == StatusTypeExecution {
		return KeepStatus(KeptVMStatus{Kind: KeptMiscellaneousError, Code: uint64(s.StatusCode)})
	}
	return DiscardStatus(s.StatusCode)
}

// KeptKind 保留交易的结果种类
type KeptKind int

// 保留交易的结果种类
const (
	KeptExecuted KeptKind = iota
	KeptOutOfGas
	KeptMoveAbort
	KeptExecutionFailure
	KeptMiscellaneousError
)

// KeptVMStatus 写入账本的执行结果
type KeptVMStatus struct {
	Kind       KeptKind
	Location   string
	Code       uint64
	Function   uint16
	CodeOffset uint16
}

func (k KeptVMStatus) String() string {
	switch k.Kind {
	case KeptExecuted:
		return "Executed"
	case KeptOutOfGas:
		return "OutOfGas"
	case KeptMoveAbort:
		return fmt.Sprintf("MoveAbort(%s, %d)", k.Location, k.Code)
	case KeptExecutionFailure:
		return fmt.Sprintf("ExecutionFailure { status_code: %s, location: %s, function: %d, code_offset: %d }",
			StatusCode(k.Code), k.Location, k.Function, k.CodeOffset)
	}
	return fmt.Sprintf("MiscellaneousError(%s)", StatusCode(k.Code))
}

// TransactionStatus 交易状态: 保留(Keep) 或 丢弃(Discard)
type TransactionStatus struct {
	Discarded   bool
	DiscardCode StatusCode
	Kept        KeptVMStatus
}

// KeepStatus keep
func KeepStatus(k KeptVMStatus) TransactionStatus {
	return TransactionStatus{Kept: k}
}

// DiscardStatus discard
func DiscardStatus(code StatusCode) TransactionStatus {
	return TransactionStatus{Discarded: true, DiscardCode: code}
}

// IsDiscard 是否被丢弃
func (s TransactionStatus) IsDiscard() bool {
	return s.Discarded
}

// IsExecuted 保留且执行成功
func (s TransactionStatus) IsExecuted() bool {
	return !s.Discarded && s.Kept.Kind == KeptExecuted
}

// VMStatus 将交易状态还原为虚拟机执行结果, 用于错误报告
func (s TransactionStatus) VMStatus() VMStatus {
	if s.Discarded {
		return ErrorStatus(s.DiscardCode)
	}
	k := s.Kept
	switch k.Kind {
	case KeptExecuted:
		return ExecutedStatus()
	case KeptOutOfGas:
		return ErrorStatus(StatusOutOfGas)
	case KeptMoveAbort:
		return AbortStatus(k.Location, k.Code)
	case KeptExecutionFailure:
		return ExecutionFailureStatus(StatusCode(k.Code), k.Location, k.Function, k.CodeOffset)
	}
	return ErrorStatus(StatusCode(k.Code))
}

func (s TransactionStatus) String() string {
	if s.Discarded {
		return fmt.Sprintf("Discard(%s)", s.DiscardCode)
	}
	return fmt.Sprintf("Keep(%s)", s.Kept)
}
