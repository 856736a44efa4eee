package filter

import (
	"context"
	"slices"

	"github.com/rushteam/movierec/core"
)

// ViewedFilter 过滤掉用户已经看过的物品。
//
// 优先使用请求参数 viewed（map[int64]struct{}，由调用方一次性准备），
// 否则从 History 读取用户历史。
type ViewedFilter struct {
	History core.HistoryReader
}

func NewViewedFilter(history core.HistoryReader) *ViewedFilter {
	return &ViewedFilter{History: history}
}

func (f *ViewedFilter) Name() string {
	return "filter.viewed"
}

func (f *ViewedFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil {
		return false, nil
	}
	if viewed, ok := rctx.Params[core.ParamViewed].(map[int64]struct{}); ok {
		_, seen := viewed[item.ID]
		return seen, nil
	}
	if f.History == nil || rctx.UserID == "" {
		return false, nil
	}
	return slices.Contains(f.History.GetHistory(rctx.UserID), item.ID), nil
}
