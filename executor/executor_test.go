// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package executor

import (
	"testing"

	"github.com/33cn/functest/account"
	"github.com/33cn/functest/common/crypto/secp256k1"
	"github.com/33cn/functest/common/crypto/sm2"
	"github.com/33cn/functest/compiler"
	"github.com/33cn/functest/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = account.NewAccount("alice")

const emptyScript = `
script
fun main
    ret
end
`

func newTestExecutor(t *testing.T) *FakeExecutor {
	cfg := types.DefaultConfig().Evaluator
	cfg.GenesisTimestamp = 100
	exec, err := NewFakeExecutor(cfg)
	require.NoError(t, err)
	require.NoError(t, exec.AddAccountData(account.NewAccountData(alice, uint256.NewInt(1000000), 0)))
	return exec
}

func compile(t *testing.T, sender types.AccountAddress, src string) []byte {
	unit, err := compiler.Assembler{}.Compile(func(string) {}, sender, src)
	require.NoError(t, err)
	code, err := unit.Unit().Serialize()
	require.NoError(t, err)
	return code
}

type txOption func(raw *types.RawUserTransaction)

func scriptTx(t *testing.T, acc *account.Account, seq uint64, src string, opts ...txOption) *types.SignedUserTransaction {
	script := &types.Script{Code: compile(t, acc.Address(), src)}
	raw := types.NewScriptTransaction(acc.Address(), seq, script, 10000, 1, 1000, types.TestChainID)
	for _, opt := range opts {
		opt(raw)
	}
	tx, err := acc.SignTransaction(raw)
	require.NoError(t, err)
	return tx
}

func executeOne(t *testing.T, exec *FakeExecutor, tx *types.SignedUserTransaction) *types.TransactionOutput {
	results, err := exec.ExecuteBlock([]*types.SignedUserTransaction{tx})
	require.NoError(t, err)
	require.Len(t, results, 1)
	return results[0].Output
}

func TestGenesis(t *testing.T) {
	exec := newTestExecutor(t)
	ts, err := exec.ReadTimestamp()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), ts)
	block, err := readBlock(exec)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), block.Height)

	require.Len(t, exec.GenesisAccounts(), 1)
	root := exec.GenesisAccounts()[0]
	assert.Equal(t, types.GenesisAccountName, root.Name)
	bal, err := exec.ReadBalanceResource(root)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultGenesisBalance, bal.Balance().Dec())

	res, err := exec.ReadAccountResource(account.NewAccount("nobody"))
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestExecuteScript(t *testing.T) {
	exec := newTestExecutor(t)
	output := executeOne(t, exec, scriptTx(t, alice, 0, emptyScript))
	require.True(t, output.Status.IsExecuted(), output.Status.String())
	assert.Equal(t, uint64(601), output.GasUsed)

	// 未提交前状态不变
	res, err := exec.ReadAccountResource(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), res.SequenceNumber)

	require.NoError(t, exec.ApplyWriteSet(output.WriteSet))
	res, err = exec.ReadAccountResource(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.SequenceNumber)
	bal, err := exec.ReadBalanceResource(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000000-601), bal.Balance().Uint64())
	assert.Equal(t, types.StatusSequenceNumberTooOld, executeOne(t, exec, scriptTx(t, alice, 0, emptyScript)).Status.DiscardCode)

	snapshot := exec.Metrics().GetAll()
	assert.Equal(t, int64(1), snapshot[MetricExecuted]["count"])
	assert.Equal(t, int64(601), snapshot[MetricGasUsed]["count"])
}

func TestDiscard(t *testing.T) {
	exec := newTestExecutor(t)
	bob := account.NewAccount("bob")
	cases := []struct {
		name string
		tx   *types.SignedUserTransaction
		code types.StatusCode
	}{
		{"chain id", scriptTx(t, alice, 0, emptyScript, func(raw *types.RawUserTransaction) { raw.ChainID = 9 }), types.StatusBadChainID},
		{"too new", scriptTx(t, alice, 5, emptyScript), types.StatusSequenceNumberTooNew},
		{"no account", scriptTx(t, bob, 0, emptyScript), types.StatusSendingAccountDoesNotExist},
		{"max gas", scriptTx(t, alice, 0, emptyScript, func(raw *types.RawUserTransaction) { raw.MaxGasAmount = types.DefaultMaxGasUnits + 1 }), types.StatusMaxGasUnitsExceedsMaxGasUnitsBound},
		{"min gas", scriptTx(t, alice, 0, emptyScript, func(raw *types.RawUserTransaction) { raw.MaxGasAmount = 10 }), types.StatusMaxGasUnitsBelowMinTransactionGasUnits},
		{"balance", scriptTx(t, alice, 0, emptyScript, func(raw *types.RawUserTransaction) { raw.GasUnitPrice = 1000 }), types.StatusInsufficientBalanceForTransactionFee},
		{"expired", scriptTx(t, alice, 0, emptyScript, func(raw *types.RawUserTransaction) { raw.ExpirationTimestampSecs = 100 }), types.StatusTransactionExpired},
	}
	for _, c := range cases {
		output := executeOne(t, exec, c.tx)
		assert.True(t, output.Status.IsDiscard(), c.name)
		assert.Equal(t, c.code, output.Status.DiscardCode, c.name)
		assert.True(t, output.WriteSet.IsEmpty(), c.name)
	}

	tx := scriptTx(t, alice, 0, emptyScript)
	tx.Signature[len(tx.Signature)-1] ^= 0xff
	assert.Equal(t, types.StatusInvalidSignature, executeOne(t, exec, tx).Status.DiscardCode)

	// bob 的签名, alice 的账户
	raw := types.NewScriptTransaction(alice.Address(), 0, &types.Script{Code: compile(t, alice.Address(), emptyScript)}, 10000, 1, 1000, types.TestChainID)
	tx, err := bob.SignTransaction(raw)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInvalidAuthKey, executeOne(t, exec, tx).Status.DiscardCode)

	raw = types.NewScriptTransaction(alice.Address(), 0, &types.Script{Code: []byte{1, 2, 3}}, 10000, 1, 1000, types.TestChainID)
	tx, err = alice.SignTransaction(raw)
	require.NoError(t, err)
	assert.Equal(t, types.StatusBadMagic, executeOne(t, exec, tx).Status.DiscardCode)
}

func TestSignTypes(t *testing.T) {
	exec := newTestExecutor(t)
	dave, err := account.NewAccountWithSignType("dave", sm2.Name)
	require.NoError(t, err)
	require.NoError(t, exec.AddAccountData(account.NewAccountData(dave, uint256.NewInt(1000000), 0)))

	tx := scriptTx(t, dave, 0, emptyScript)
	assert.Equal(t, sm2.Name, tx.SignType)
	assert.Len(t, tx.PublicKey, sm2.PubKeyLength)

	// 声明的算法与签名不符
	forged := *tx
	forged.SignType = secp256k1.Name
	assert.Equal(t, types.StatusInvalidSignature, executeOne(t, exec, &forged).Status.DiscardCode)
	forged.SignType = "ed25519"
	assert.Equal(t, types.StatusInvalidSignature, executeOne(t, exec, &forged).Status.DiscardCode)

	output := executeOne(t, exec, tx)
	require.True(t, output.Status.IsExecuted(), output.Status.String())
	require.NoError(t, exec.ApplyWriteSet(output.WriteSet))
	res, err := exec.ReadAccountResource(dave)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.SequenceNumber)

	// 空算法名按 secp256k1 验签
	tx = scriptTx(t, alice, 0, emptyScript)
	tx.SignType = ""
	assert.True(t, executeOne(t, exec, tx).Status.IsExecuted())
}

func TestKeepFailure(t *testing.T) {
	exec := newTestExecutor(t)
	output := executeOne(t, exec, scriptTx(t, alice, 0, `
script
fun main
    ld_u64 3
    store slot
    ld_u64 9
    abort
end
`))
	require.False(t, output.Status.IsDiscard())
	assert.Equal(t, "Keep(MoveAbort(Script, 9))", output.Status.String())
	// 只保留扣费与 sequence number
	assert.Equal(t, 2, output.WriteSet.Len())
	require.NoError(t, exec.ApplyWriteSet(output.WriteSet))
	res, err := exec.ReadAccountResource(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.SequenceNumber)

	output = executeOne(t, exec, scriptTx(t, alice, 1, `
script
fun main
loop:
    branch loop
end
`))
	assert.Equal(t, types.KeptOutOfGas, output.Status.Kept.Kind)
	assert.Equal(t, uint64(10000), output.GasUsed)
}

const tokenModule = `
module Token
public fun double params=1 returns=1
    copy_loc 0
    ld_u64 2
    mul
    ret
end
`

func TestPublishModuleAndBlock(t *testing.T) {
	exec := newTestExecutor(t)
	code := compile(t, alice.Address(), tokenModule)
	raw := types.NewModuleTransaction(alice.Address(), 0, &types.Module{Code: code}, 10000, 1, 1000, types.TestChainID)
	publish, err := alice.SignTransaction(raw)
	require.NoError(t, err)
	call := scriptTx(t, alice, 1, `
script
import `+alice.Address().Hex()+`::Token
fun main
    ld_u64 21
    call Token::double 1 1
    emit Doubled
    ret
end
`)
	// 同一个区块内, 后面的交易能看到前面发布的模块
	results, err := exec.ExecuteBlock([]*types.SignedUserTransaction{publish, call})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.True(t, results[0].Output.Status.IsExecuted(), results[0].Output.Status.String())
	require.True(t, results[1].Output.Status.IsExecuted(), results[1].Output.Status.String())
	require.Len(t, results[1].Output.Events, 1)
	assert.Equal(t, uint64(42), results[1].Output.Events[0].Value)

	// 依赖缺失: 校验失败, 交易被丢弃
	missing := scriptTx(t, alice, 0, `
script
import 0x1::Nothing
fun main
    call Nothing::f 0 0
    ret
end
`)
	output := executeOne(t, exec, missing)
	assert.Equal(t, types.StatusMissingDependency, output.Status.DiscardCode)

	for _, r := range results {
		require.NoError(t, exec.ApplyWriteSet(r.Output.WriteSet))
	}
	output = executeOne(t, exec, publishAgain(t, code))
	assert.Equal(t, "Keep(MiscellaneousError(DUPLICATE_MODULE_NAME))", output.Status.String())
}

func publishAgain(t *testing.T, code []byte) *types.SignedUserTransaction {
	raw := types.NewModuleTransaction(alice.Address(), 2, &types.Module{Code: code}, 10000, 1, 1000, types.TestChainID)
	tx, err := alice.SignTransaction(raw)
	require.NoError(t, err)
	return tx
}

func TestBlockMetadata(t *testing.T) {
	exec := newTestExecutor(t)
	meta := &types.BlockMetadata{Timestamp: 200, Number: 1, ChainID: types.TestChainID, Author: alice.Address()}
	results, err := exec.ExecuteTransactionBlock([]*types.Transaction{types.BlockMetadataTransaction(meta)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	output := results[0].Output
	require.True(t, output.Status.IsExecuted())
	require.Len(t, output.Events, 1)
	assert.Equal(t, NewBlockEventTag, output.Events[0].Tag)
	require.NoError(t, exec.ApplyWriteSet(output.WriteSet))
	ts, err := exec.ReadTimestamp()
	require.NoError(t, err)
	assert.Equal(t, uint64(200), ts)

	// 时间不前进
	results, err = exec.ExecuteTransactionBlock([]*types.Transaction{types.BlockMetadataTransaction(&types.BlockMetadata{Timestamp: 200, Number: 2, ChainID: types.TestChainID})})
	require.NoError(t, err)
	assert.Equal(t, types.StatusInvalidBlockTimestamp, results[0].Output.Status.DiscardCode)
	assert.Equal(t, types.ErrorStatus(types.StatusInvalidBlockTimestamp), results[0].Status)

	// 高度不连续
	results, err = exec.ExecuteTransactionBlock([]*types.Transaction{types.BlockMetadataTransaction(&types.BlockMetadata{Timestamp: 300, Number: 3, ChainID: types.TestChainID})})
	require.NoError(t, err)
	assert.Equal(t, types.StatusInvalidBlockNumber, results[0].Output.Status.DiscardCode)

	_, err = exec.ExecuteTransactionBlock([]*types.Transaction{types.BlockMetadataTransaction(&types.BlockMetadata{Timestamp: 300, Number: 2, ChainID: 9})})
	assert.Error(t, err)

	// 过期时间以区块时间为准
	output = executeOne(t, exec, scriptTx(t, alice, 0, emptyScript, func(raw *types.RawUserTransaction) { raw.ExpirationTimestampSecs = 150 }))
	assert.Equal(t, types.StatusTransactionExpired, output.Status.DiscardCode)
}

func TestStateDB(t *testing.T) {
	exec := newTestExecutor(t)
	s := NewStateDB(exec.db)
	ap := types.ResourceAccessPath(alice.Address(), "x")
	v, err := s.Get(ap)
	require.NoError(t, err)
	assert.Nil(t, v)

	ws := types.NewWriteSet()
	ws.Put(ap, []byte("1"))
	s.Apply(ws)
	v, err = s.Get(ap)
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	del := types.NewWriteSet()
	del.Delete(account.AccountResourcePath(alice.Address()))
	s.Apply(del)
	v, err = s.Get(account.AccountResourcePath(alice.Address()))
	require.NoError(t, err)
	assert.Nil(t, v)
	// 底层存储不受影响
	res, err := exec.ReadAccountResource(alice)
	require.NoError(t, err)
	assert.NotNil(t, res)
}
