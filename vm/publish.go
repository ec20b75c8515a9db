// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/types"
)

// PublishModule 把模块写入发送者地址下, 地址必须与发送者一致且同名模块不能重复发布
func PublishModule(session *Session, gas *GasMeter, sender types.AccountAddress, code []byte, module *bytecode.CompiledModule) types.VMStatus {
	if err := gas.Charge(GasPublishModule + uint64(len(code))*GasPublishByte); err != nil {
		return types.ErrorStatus(types.StatusOutOfGas)
	}
	id := module.Self()
	if id.Address != sender {
		return types.ErrorStatus(types.StatusModuleAddressDoesNotMatchSender)
	}
	exists, err := session.ModuleExists(id)
	if err != nil {
		vmlog.Error("PublishModule", "module", id.String(), "err", err)
		return types.ErrorStatus(types.StatusStorageError)
	}
	if exists {
		return types.ErrorStatus(types.StatusDuplicateModuleName)
	}
	if err := session.Set(types.CodeAccessPath(id), code); err != nil {
		return types.ErrorStatus(types.StatusStorageError)
	}
	vmlog.Debug("PublishModule", "module", id.String(), "size", len(code))
	return types.ExecutedStatus()
}
