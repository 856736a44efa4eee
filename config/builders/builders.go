// Package builders 注册内置 Node 的配置构建逻辑。
package builders

import (
	"fmt"

	"github.com/rushteam/movierec/config"
	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/filter"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/conv"
	"github.com/rushteam/movierec/recall"
	"github.com/rushteam/movierec/rerank"
)

func init() {
	config.Register("recall.content", BuildContentNode)
	config.Register("recall.hot", BuildHotNode)
	config.Register("filter", BuildFilterNode)
	config.Register("rerank.topn", BuildTopNNode)
}

func BuildContentNode(cfg map[string]any, res *pipeline.Resources) (pipeline.Node, error) {
	if res == nil || res.Catalog == nil || res.Index == nil {
		return nil, fmt.Errorf("recall.content requires catalog and similarity index")
	}
	return &recall.ContentRecall{
		Catalog:    res.Catalog,
		Index:      res.Index,
		TopK:       conv.ConfigGetInt(cfg, "top_k", 0),
		LimitParam: conv.ConfigGet(cfg, "limit_param", ""),
	}, nil
}

func BuildHotNode(cfg map[string]any, res *pipeline.Resources) (pipeline.Node, error) {
	if res == nil || res.Catalog == nil {
		return nil, fmt.Errorf("recall.hot requires catalog")
	}
	return &recall.Hot{
		Catalog:    res.Catalog,
		Limit:      conv.ConfigGetInt(cfg, "limit", 0),
		LimitParam: conv.ConfigGet(cfg, "limit_param", ""),
	}, nil
}

func BuildFilterNode(cfg map[string]any, res *pipeline.Resources) (pipeline.Node, error) {
	filtersConfig, ok := conv.ConfigGetMaps(cfg, "filters")
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, filterMap := range filtersConfig {
		filterType := conv.ConfigGet(filterMap, "type", "")
		switch filterType {
		case "viewed":
			var history core.HistoryReader
			if res != nil {
				history = res.History
			}
			filters = append(filters, filter.NewViewedFilter(history))
		case "expr":
			expr := conv.ConfigGet(filterMap, "expr", filter.DefaultCandidateExpr)
			f, err := filter.NewExprFilter(expr)
			if err != nil {
				return nil, fmt.Errorf("filter expr %q: %w", expr, err)
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters}, nil
}

func BuildTopNNode(cfg map[string]any, _ *pipeline.Resources) (pipeline.Node, error) {
	n := conv.ConfigGetInt(cfg, "n", 0)
	if n < 0 {
		return nil, fmt.Errorf("rerank.topn: n must be >= 0, got %d", n)
	}
	return &rerank.TopNNode{N: n}, nil
}
