package engine

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/metrics"
)

// contentCacheKey 内容推荐结果缓存 key
func contentCacheKey(itemID int64, count int) string {
	return fmt.Sprintf("rec:content:%d:%d", itemID, count)
}

// cachedContent 读取缓存的推荐结果（缓存的是电影 ID 列表）。
// 缓存异常只记录日志，按未命中处理。
func (e *Engine) cachedContent(ctx context.Context, snap *snapshot, itemID int64, count int) ([]core.Movie, bool) {
	if e.cache == nil {
		return nil, false
	}
	key := contentCacheKey(itemID, count)
	data, err := e.cache.Get(ctx, key)
	if err != nil {
		if !core.IsStoreNotFound(err) {
			e.logger.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		metrics.CacheMisses.Inc()
		return nil, false
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("cache entry corrupted")
		metrics.CacheMisses.Inc()
		return nil, false
	}
	out := make([]core.Movie, 0, len(ids))
	for _, id := range ids {
		pos, ok := snap.catalog.Position(id)
		if !ok {
			// 快照已变化（例如其他实例发布了新目录），按未命中处理
			metrics.CacheMisses.Inc()
			return nil, false
		}
		out = append(out, snap.catalog.MovieAt(pos))
	}
	metrics.CacheHits.Inc()
	return out, true
}

func (e *Engine) storeContent(ctx context.Context, itemID int64, count int, movies []core.Movie) {
	if e.cache == nil {
		return
	}
	ids := make([]int64, len(movies))
	for i, m := range movies {
		ids[i] = m.ID
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return
	}
	key := contentCacheKey(itemID, count)
	if err := e.cache.Set(ctx, key, data, int(e.cfg.CacheTTL.Seconds())); err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}
