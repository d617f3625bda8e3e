package di

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// cacheKey 标识一种覆盖配置：目标类型身份加覆盖集合的结构值。
type cacheKey struct {
	typ       reflect.Type
	overrides string
}

func newCacheKey(typ reflect.Type, overrides MethodOverrides) cacheKey {
	return cacheKey{typ: typ, overrides: overrides.Key()}
}

// String 用于 singleflight 分组，必须在进程内唯一。
func (k cacheKey) String() string {
	return fmt.Sprintf("%p|%s", k.typ, k.overrides)
}

// artifactCache 保证每个键最多成功构建一次。
// 并发的首次请求在 singleflight 上汇合，发布后的值只读，无需加锁。
// 构建失败不缓存。
type artifactCache[V any] struct {
	entries sync.Map // cacheKey -> V
	group   singleflight.Group
	size    atomic.Int64
}

func (c *artifactCache[V]) get(key cacheKey, build func() (V, error)) (V, error) {
	if v, ok := c.entries.Load(key); ok {
		return v.(V), nil
	}

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		// 双重检查：上一轮 Do 可能刚刚发布
		if v, ok := c.entries.Load(key); ok {
			return v, nil
		}
		built, err := build()
		if err != nil {
			return nil, err
		}
		c.entries.Store(key, built)
		c.size.Add(1)
		return built, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

func (c *artifactCache[V]) len() int {
	return int(c.size.Load())
}
