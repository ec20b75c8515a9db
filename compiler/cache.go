// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compiler

import (
	"github.com/33cn/functest/types"
	farm "github.com/dgryski/go-farm"
	lru "github.com/hashicorp/golang-lru"
	gometrics "github.com/rcrowley/go-metrics"
)

type cacheEntry struct {
	sender types.AccountAddress
	source string
	unit   *ScriptOrModule
	logs   []string
	err    error
}

// Cached 带 lru 缓存的编译器, 命中时重放编译日志
type Cached struct {
	inner  Compiler
	cache  *lru.Cache
	hits   gometrics.Counter
	misses gometrics.Counter
}

// NewCached new, registry 为 nil 时计数器不注册; 共用 registry 的多个缓存累计计数
func NewCached(inner Compiler, size int, registry gometrics.Registry) (*Cached, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	c := &Cached{
		inner:  inner,
		cache:  cache,
		hits:   gometrics.NewCounter(),
		misses: gometrics.NewCounter(),
	}
	if registry != nil {
		c.hits = gometrics.GetOrRegisterCounter("compiler/cache/hit", registry)
		c.misses = gometrics.GetOrRegisterCounter("compiler/cache/miss", registry)
	}
	return c, nil
}

func cacheKey(sender types.AccountAddress, source string) uint64 {
	buf := make([]byte, 0, len(sender)+len(source))
	buf = append(buf, sender[:]...)
	buf = append(buf, source...)
	return farm.Fingerprint64(buf)
}

// Compile 编译, 结果总是深拷贝, 调用方修改不会影响缓存
func (c *Cached) Compile(sink func(string), sender types.AccountAddress, source string) (*ScriptOrModule, error) {
	key := cacheKey(sender, source)
	if v, ok := c.cache.Get(key); ok {
		entry := v.(*cacheEntry)
		if entry.sender == sender && entry.source == source {
			c.hits.Inc(1)
			for _, line := range entry.logs {
				if sink != nil {
					sink(line)
				}
			}
			return entry.unit.Clone(), entry.err
		}
	}
	c.misses.Inc(1)
	entry := &cacheEntry{sender: sender, source: source}
	unit, err := c.inner.Compile(func(line string) {
		entry.logs = append(entry.logs, line)
		if sink != nil {
			sink(line)
		}
	}, sender, source)
	entry.unit = unit.Clone()
	entry.err = err
	c.cache.Add(key, entry)
	return unit, err
}

// Hits 命中次数
func (c *Cached) Hits() int64 {
	return c.hits.Count()
}

// Misses 未命中次数
func (c *Cached) Misses() int64 {
	return c.misses.Count()
}

// Len 缓存条目数
func (c *Cached) Len() int {
	return c.cache.Len()
}
