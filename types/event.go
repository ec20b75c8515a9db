// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import "fmt"

// ContractEvent 合约事件
type ContractEvent struct {
	Sender         AccountAddress
	SequenceNumber uint64
	Tag            string
	Value          uint64
}

func (e *ContractEvent) String() string {
	return fmt.Sprintf("%s#%d %s(%d)", e.Sender.Hex(), e.SequenceNumber, e.Tag, e.Value)
}
