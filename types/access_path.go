// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"fmt"
	"strings"
)

// 存储路径前缀
const (
	CodeTag     = "code"
	ResourceTag = "resource"
)

// ModuleID 模块标识: 发布地址 + 模块名
type ModuleID struct {
	Address AccountAddress
	Name    string
}

// NewModuleID new
func NewModuleID(addr AccountAddress, name string) ModuleID {
	return ModuleID{Address: addr, Name: name}
}

func (id ModuleID) String() string {
	return id.Address.Hex() + "::" + id.Name
}

// AccessPath 状态存储中的一个位置
type AccessPath struct {
	Address AccountAddress
	Path    string
}

// CodeAccessPath 模块代码的存储位置
func CodeAccessPath(id ModuleID) *AccessPath {
	return &AccessPath{Address: id.Address, Path: CodeTag + "/" + id.Name}
}

// ResourceAccessPath 账户资源的存储位置
func ResourceAccessPath(addr AccountAddress, tag string) *AccessPath {
	return &AccessPath{Address: addr, Path: ResourceTag + "/" + tag}
}

// Key 数据库 key
func (ap *AccessPath) Key() []byte {
	key := make([]byte, 0, AddressLength+1+len(ap.Path))
	key = append(key, ap.Address[:]...)
	key = append(key, '/')
	return append(key, ap.Path...)
}

// IsCode 是否为模块代码路径
func (ap *AccessPath) IsCode() bool {
	return strings.HasPrefix(ap.Path, CodeTag+"/")
}

func (ap *AccessPath) String() string {
	return fmt.Sprintf("%s/%s", ap.Address.Hex(), ap.Path)
}

// AccessPathFromKey 由数据库 key 还原路径
func AccessPathFromKey(key []byte) (*AccessPath, error) {
	if len(key) < AddressLength+1 || key[AddressLength] != '/' {
		return nil, ErrInvalidAccessPath
	}
	return &AccessPath{Address: BytesToAddress(key[:AddressLength]), Path: string(key[AddressLength+1:])}, nil
}

// StateView 只读状态视图, 不存在的路径返回 nil, nil
type StateView interface {
	Get(ap *AccessPath) ([]byte, error)
}
