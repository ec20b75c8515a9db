// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaluator

import (
	"github.com/33cn/functest/types"
	"github.com/pkg/errors"
)

// evalBlockMetadata 执行区块元数据交易. 执行环境返回的错误与被丢弃的元数据都记录为失败
func (r *runner) evalBlockMetadata(meta *types.BlockMetadata) (Status, error) {
	results, err := r.env.ExecuteTransactionBlock([]*types.Transaction{types.BlockMetadataTransaction(meta)})
	if err != nil {
		r.log.Append(ErrorEntry{Err: otherError("%s", err.Error())})
		return Failure, nil
	}
	if len(results) != 1 {
		return Failure, invariantViolation("expected 1 transaction output, got %d", len(results))
	}
	out := results[0].Output
	if out.Status.IsDiscard() {
		r.log.Append(ErrorEntry{Err: verificationError(types.ErrorStatus(out.Status.DiscardCode), nil)})
		return Failure, nil
	}
	if err := r.env.ApplyWriteSet(out.WriteSet); err != nil {
		return Failure, errors.Wrap(err, "apply block metadata write set")
	}
	r.log.Append(OutputEntry{Output: &OutputType{Kind: TransactionOutputOutput, TxnOutput: out}})
	return Success, nil
}
