package recall

import (
	"context"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
)

// Hot 是热门召回源：按目录预先计算好的热度顺序
// (popularity desc, vote_average desc, 行号 asc) 返回物品。
// 每个物品携带 popularity / vote_average 特征，供后续过滤表达式使用。
// Hot 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Hot struct {
	Catalog core.Catalog

	// Limit 返回数量上限，<= 0 时读取 LimitParam 指定的请求参数
	Limit int

	// LimitParam 数量上限对应的请求参数，为空时返回全部
	LimitParam string
}

func (r *Hot) Name() string        { return "recall.hot" }
func (r *Hot) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Hot) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *Hot) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	order := r.Catalog.PopularOrder()
	if limit := limitFrom(rctx, r.Limit, r.LimitParam); limit > 0 && limit < len(order) {
		order = order[:limit]
	}

	out := make([]*core.Item, 0, len(order))
	for _, pos := range order {
		m := r.Catalog.MovieAt(pos)
		item := core.NewItem(m.ID, pos)
		item.Score = m.Popularity
		item.Features["popularity"] = m.Popularity
		item.Features["vote_average"] = m.VoteAverage
		out = append(out, item)
	}
	return out, nil
}

var (
	_ Source        = (*Hot)(nil)
	_ pipeline.Node = (*Hot)(nil)
)
