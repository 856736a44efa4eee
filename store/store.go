// Package store 提供 core.Store 的实现。
//
// 注意：此包只包含实现，接口定义在 core 包。
//
// 示例：
//
//	var cache core.Store = store.NewMemoryStore()
//	redis, err := store.NewRedisStore("127.0.0.1:6379", 0)
//	shared := store.NewBreakerStore(redis, store.BreakerConfig{}, logger)
//	local, err := store.NewBadgerStore("/var/lib/movierec/cache")
package store

import "github.com/rushteam/movierec/core"

// ErrNotFound 与 core.ErrStoreNotFound 相同，便于包内引用
var ErrNotFound = core.ErrStoreNotFound
