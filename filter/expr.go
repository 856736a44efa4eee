package filter

import (
	"context"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pkg/dsl"
)

// DefaultCandidateExpr 历史推荐的候选池条件：评分不低于平均评分减去容差。
const DefaultCandidateExpr = "item.features.vote_average >= rctx.params.avg_rating - rctx.params.rating_margin"

// ExprFilter 用 CEL 表达式筛选候选：表达式为 true 的物品保留，false 的被过滤。
// 表达式可引用 item（id/pos/score/features）、label 与 rctx（params/user_id/scene）。
type ExprFilter struct {
	Program *dsl.Program
}

// NewExprFilter 编译表达式并创建过滤器。
func NewExprFilter(expr string) (*ExprFilter, error) {
	prog, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{Program: prog}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || f.Program == nil {
		return false, nil
	}
	keep, err := f.Program.Evaluate(item, rctx)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
