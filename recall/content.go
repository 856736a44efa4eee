package recall

import (
	"context"
	"sort"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
)

// ContentRecall 是基于内容的召回源：读取查询物品在相似度矩阵中的整行，
// 按相似度降序返回其他所有物品（不含查询物品本身），同分时行号小的在前。
//
// 查询物品 ID 从请求参数 item_id 读取，不在目录中时返回 NOT_FOUND。
type ContentRecall struct {
	Catalog core.Catalog
	Index   core.SimilarityIndex

	// TopK 返回数量上限，<= 0 时读取 LimitParam 指定的请求参数
	TopK int

	// LimitParam 数量上限对应的请求参数，默认不限制
	LimitParam string
}

func (r *ContentRecall) Name() string        { return "recall.content" }
func (r *ContentRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *ContentRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *ContentRecall) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	id, ok := rctx.ParamInt64(core.ParamItemID)
	if !ok {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "recall.content: item_id param required")
	}
	pos, ok := r.Catalog.Position(id)
	if !ok || pos >= r.Index.Len() {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeNotFound, "recall.content: item not found")
	}

	row := r.Index.Row(pos, nil)
	order := make([]int, 0, len(row)-1)
	for j := range row {
		if j != pos {
			order = append(order, j)
		}
	}
	// order 初始按行号升序，稳定排序保证同分时行号小的在前
	sort.SliceStable(order, func(a, b int) bool {
		return row[order[a]] > row[order[b]]
	})
	if limit := limitFrom(rctx, r.TopK, r.LimitParam); limit > 0 && limit < len(order) {
		order = order[:limit]
	}

	out := make([]*core.Item, 0, len(order))
	for _, j := range order {
		item := core.NewItem(r.Catalog.MovieAt(j).ID, j)
		item.Score = row[j]
		item.PutLabel("recall_source", core.Label{Value: "content", Source: "recall"})
		out = append(out, item)
	}
	return out, nil
}

var (
	_ Source        = (*ContentRecall)(nil)
	_ pipeline.Node = (*ContentRecall)(nil)
)
