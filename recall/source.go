// Package recall 提供召回节点：从目录中生成候选集。
package recall

import (
	"context"

	"github.com/rushteam/movierec/core"
)

// Source 表示一个可复用的召回源（内容相似/热门/...）。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// limitFrom 读取召回数量上限：limit > 0 直接使用，否则读取请求参数 param（为空或缺失时不限制）。
func limitFrom(rctx *core.RecommendContext, limit int, param string) int {
	if limit > 0 {
		return limit
	}
	if param == "" {
		return 0
	}
	if n, ok := rctx.ParamInt64(param); ok && n > 0 {
		return int(n)
	}
	return 0
}
