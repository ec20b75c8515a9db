// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evaluator

import (
	"sort"
	"strings"
	"sync"

	"github.com/33cn/functest/bytecode"
	"github.com/33cn/functest/compiler"
	"github.com/33cn/functest/types"
)

// PrecompiledPrefix 以此为前缀的输入直接使用预编译脚本
const PrecompiledPrefix = "stdlib_script::"

var precompiledSources = map[string]string{
	"empty_script": `
script
fun main
    ret
end
`,
	"peer_to_peer": `
# 向 payee 转账 amount
script
fun main params=2
    copy_loc 0
    copy_loc 1
    transfer
    ret
end
`,
}

var (
	precompiledOnce    sync.Once
	precompiledScripts map[string]*bytecode.CompiledScript
)

func loadPrecompiled() {
	precompiledOnce.Do(func() {
		scripts := make(map[string]*bytecode.CompiledScript, len(precompiledSources))
		for name, src := range precompiledSources {
			unit, err := compiler.Assembler{}.Compile(func(string) {}, types.CoreCodeAddress, src)
			if err != nil || unit.Script == nil {
				panic("precompiled script " + name + " does not compile")
			}
			scripts[name] = unit.Script
		}
		precompiledScripts = scripts
	})
}

// PrecompiledScript 按输入查找预编译脚本, 返回副本
func PrecompiledScript(input string) (*bytecode.CompiledScript, bool) {
	if !strings.HasPrefix(input, PrecompiledPrefix) {
		return nil, false
	}
	loadPrecompiled()
	s, ok := precompiledScripts[strings.TrimPrefix(input, PrecompiledPrefix)]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// PrecompiledNames 所有预编译脚本名
func PrecompiledNames() []string {
	loadPrecompiled()
	names := make([]string, 0, len(precompiledScripts))
	for name := range precompiledScripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
