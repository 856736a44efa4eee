package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/metrics"
)

// ContentBasedRecommend 返回与 itemID 最相似的 count 部电影（不含自身）。
// itemID 不存在、引擎未就绪或内部异常时返回空列表。
func (e *Engine) ContentBasedRecommend(ctx context.Context, itemID int64, count int) []core.Movie {
	count = e.normalizeCount(count)
	return e.guard(ctx, SceneContent, func(snap *snapshot) []core.Movie {
		if cached, ok := e.cachedContent(ctx, snap, itemID, count); ok {
			return cached
		}
		rctx := core.NewRecommendContext(SceneContent)
		rctx.SetParam(core.ParamItemID, itemID)
		rctx.SetParam(core.ParamCount, count)
		out, err := e.run(ctx, snap, rctx)
		if err != nil {
			reason := "error"
			if core.IsNotFound(err) {
				reason = "not_found"
			}
			metrics.RecordFallback(SceneContent, reason)
			return []core.Movie{}
		}
		e.storeContent(ctx, itemID, count, out)
		return out
	})
}

// HistoryBasedRecommend 基于用户浏览历史推荐：候选为未看过且评分不低于
// (已看电影平均评分 - RatingMargin) 的电影，按 (popularity, vote_average) 降序取前 count 个。
// 没有历史或历史中的电影都不在目录中时退化为 PopularityRecommend。
func (e *Engine) HistoryBasedRecommend(ctx context.Context, userID string, count int) []core.Movie {
	count = e.normalizeCount(count)
	viewedIDs := e.history.GetHistory(userID)
	if len(viewedIDs) == 0 {
		metrics.RecordFallback(SceneHistory, "no_history")
		return e.PopularityRecommend(ctx, count)
	}

	var fallback bool
	out := e.guard(ctx, SceneHistory, func(snap *snapshot) []core.Movie {
		viewed := make(map[int64]struct{}, len(viewedIDs))
		var sum float64
		var n int
		for _, id := range viewedIDs {
			viewed[id] = struct{}{}
			if pos, ok := snap.catalog.Position(id); ok {
				sum += snap.catalog.MovieAt(pos).VoteAverage
				n++
			}
		}
		if n == 0 {
			fallback = true
			return nil
		}

		rctx := core.NewRecommendContext(SceneHistory)
		rctx.UserID = userID
		rctx.SetParam(core.ParamCount, count)
		rctx.SetParam(core.ParamAvgRating, sum/float64(n))
		rctx.SetParam(core.ParamRatingMargin, e.cfg.RatingMargin)
		rctx.SetParam(core.ParamViewed, viewed)
		out, err := e.run(ctx, snap, rctx)
		if err != nil {
			metrics.RecordFallback(SceneHistory, "error")
			return []core.Movie{}
		}
		return out
	})
	if fallback {
		metrics.RecordFallback(SceneHistory, "unresolvable_history")
		return e.PopularityRecommend(ctx, count)
	}
	return out
}

// PopularityRecommend 返回按 (popularity desc, vote_average desc) 排序的前 count 部电影。
func (e *Engine) PopularityRecommend(ctx context.Context, count int) []core.Movie {
	count = e.normalizeCount(count)
	return e.guard(ctx, ScenePopular, func(snap *snapshot) []core.Movie {
		rctx := core.NewRecommendContext(ScenePopular)
		rctx.SetParam(core.ParamCount, count)
		out, err := e.run(ctx, snap, rctx)
		if err != nil {
			metrics.RecordFallback(ScenePopular, "error")
			return []core.Movie{}
		}
		return out
	})
}

func (e *Engine) normalizeCount(count int) int {
	if count <= 0 {
		return e.cfg.DefaultCount
	}
	return count
}

// guard 等待就绪、记录耗时，并把 panic 转换为空结果。fn 返回 nil 表示由调用方处理兜底。
func (e *Engine) guard(ctx context.Context, scene string, fn func(*snapshot) []core.Movie) (out []core.Movie) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("scene", scene).
				Str("panic", fmt.Sprint(r)).
				Msg("recommendation panicked, returning empty result")
			metrics.RecordFallback(scene, "panic")
			out = []core.Movie{}
		}
		metrics.RecommendDuration.WithLabelValues(scene).Observe(time.Since(start).Seconds())
	}()

	if err := e.WaitReady(ctx); err != nil {
		metrics.RecordFallback(scene, "not_ready")
		return []core.Movie{}
	}
	snap := e.snap.Load()
	if snap == nil {
		return []core.Movie{}
	}
	return fn(snap)
}

// run 执行场景对应的 Pipeline，并把结果映射为电影记录
func (e *Engine) run(ctx context.Context, snap *snapshot, rctx *core.RecommendContext) ([]core.Movie, error) {
	p, ok := snap.pipelines[rctx.Scene]
	if !ok {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInternalError, "engine: pipeline "+rctx.Scene+" not built")
	}
	items, err := p.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}
	for key, lbl := range rctx.Labels {
		if name, ok := strings.CutPrefix(key, "filter_error."); ok {
			e.logger.Warn().Str("scene", rctx.Scene).Str("filter", name).Str("count", lbl.Value).Msg("filter evaluation failed, items kept")
		}
	}
	out := make([]core.Movie, 0, len(items))
	for _, it := range items {
		out = append(out, snap.catalog.MovieAt(it.Pos))
	}
	return out, nil
}
