// Package dsl 是候选过滤表达式的解释器，使用 CEL (Common Expression Language) 实现。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/movierec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译后的布尔表达式，可并发复用。
//
// 表达式语法（CEL 标准语法）：
//   - 特征：item.features.vote_average >= 7.0 / item.features.popularity > 50.0
//   - 请求参数：item.features.vote_average >= rctx.params.avg_rating - rctx.params.rating_margin
//   - 标签：label.recall_source == "hot"
//   - 逻辑：item.pos < 100 && item.features.vote_average > 6.0
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式。空表达式恒为 true。
func Compile(expr string) (*Program, error) {
	if expr == "" {
		return &Program{}, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if t := ast.OutputType(); t != cel.BoolType && t != cel.DynType {
		return nil, fmt.Errorf("expression must return bool, got %s", t)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式
func (p *Program) String() string { return p.expr }

// Evaluate 对单个物品求值。
// 访问不存在的 key 会返回错误，调用方应当使用 has() 或保证参数存在。
func (p *Program) Evaluate(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if p == nil || p.prg == nil {
		return true, nil
	}

	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(it *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any)
	features := make(map[string]any)
	item := map[string]any{
		"features": features,
	}
	if it != nil {
		for k, v := range it.Labels {
			labels[k] = v.Value
		}
		for k, v := range it.Features {
			features[k] = v
		}
		item["id"] = it.ID
		item["pos"] = int64(it.Pos)
		item["score"] = it.Score
	}

	params := make(map[string]any)
	reqCtx := map[string]any{
		"params": params,
	}
	if rctx != nil {
		for k, v := range rctx.Params {
			if nv, ok := normalize(v); ok {
				params[k] = nv
			}
		}
		reqCtx["user_id"] = rctx.UserID
		reqCtx["scene"] = rctx.Scene
	}

	return map[string]any{
		"item":  item,
		"label": labels,
		"rctx":  reqCtx,
	}
}

// normalize 把 Go 的 int 系列统一为 int64，CEL 只认 int64/uint64/double；
// 其余非标量参数（例如已看过的物品集合）不暴露给表达式
func normalize(v any) (any, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case float32:
		return float64(val), true
	case int64, uint64, float64, string, bool, []string, map[string]any:
		return v, true
	default:
		return nil, false
	}
}
