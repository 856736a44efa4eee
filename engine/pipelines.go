package engine

import (
	"time"

	"github.com/rushteam/movierec/config"
	_ "github.com/rushteam/movierec/config/builders"
	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/filter"
	"github.com/rushteam/movierec/metrics"
	"github.com/rushteam/movierec/pipeline"
)

// 场景名，同时也是 Pipeline 名称
const (
	SceneContent = "content"
	SceneHistory = "history"
	ScenePopular = "popular"
)

var scenes = []string{SceneContent, SceneHistory, ScenePopular}

// DefaultPipelines 返回三种推荐策略的默认 Pipeline 配置：
//
//	content: recall.content -> rerank.topn
//	history: recall.hot -> filter(viewed, expr) -> rerank.topn
//	popular: recall.hot -> rerank.topn
func DefaultPipelines(candidateExpr string) *pipeline.Config {
	if candidateExpr == "" {
		candidateExpr = filter.DefaultCandidateExpr
	}
	return &pipeline.Config{Pipelines: map[string]pipeline.Spec{
		SceneContent: {Nodes: []pipeline.NodeConfig{
			{Type: "recall.content", Config: map[string]any{"limit_param": core.ParamCount}},
			{Type: "rerank.topn"},
		}},
		SceneHistory: {Nodes: []pipeline.NodeConfig{
			{Type: "recall.hot"},
			{Type: "filter", Config: map[string]any{"filters": []any{
				map[string]any{"type": "viewed"},
				map[string]any{"type": "expr", "expr": candidateExpr},
			}}},
			{Type: "rerank.topn"},
		}},
		ScenePopular: {Nodes: []pipeline.NodeConfig{
			{Type: "recall.hot", Config: map[string]any{"limit_param": core.ParamCount}},
			{Type: "rerank.topn"},
		}},
	}}
}

func (e *Engine) buildPipelines(snap *snapshot) (map[string]*pipeline.Pipeline, error) {
	res := &pipeline.Resources{Catalog: snap.catalog, Index: snap.index, History: e.history}
	factory := config.DefaultFactory()

	expr := e.cfg.CandidateFilter
	if expr != "" {
		if _, err := filter.NewExprFilter(expr); err != nil {
			e.logger.Error().Err(err).Str("expr", expr).Msg("invalid candidate filter, using default")
			expr = ""
		}
	}
	defaults := DefaultPipelines(expr)

	out := make(map[string]*pipeline.Pipeline, len(scenes))
	for _, name := range scenes {
		if p := e.buildOverride(name, factory, res); p != nil {
			out[name] = p
			continue
		}
		p, err := defaults.BuildPipeline(name, factory, res)
		if err != nil {
			return nil, err
		}
		out[name] = p
	}
	for _, p := range out {
		p.Hook = e.observeNode
	}
	return out, nil
}

// buildOverride 构建配置中覆盖的 Pipeline；未配置或配置无效时返回 nil（使用默认）。
func (e *Engine) buildOverride(name string, factory *pipeline.NodeFactory, res *pipeline.Resources) *pipeline.Pipeline {
	if e.cfg.Pipelines == nil {
		return nil
	}
	spec, ok := e.cfg.Pipelines.Pipelines[name]
	if !ok {
		return nil
	}
	cfg := &pipeline.Config{Pipelines: map[string]pipeline.Spec{name: spec}}
	if err := config.ValidatePipelineConfig(cfg); err != nil {
		e.logger.Error().Err(err).Str("pipeline", name).Msg("pipeline override rejected, using default")
		return nil
	}
	p, err := cfg.BuildPipeline(name, factory, res)
	if err != nil {
		e.logger.Error().Err(err).Str("pipeline", name).Msg("pipeline override rejected, using default")
		return nil
	}
	e.logger.Info().Str("pipeline", name).Int("nodes", len(p.Nodes)).Msg("using pipeline override")
	return p
}

func (e *Engine) observeNode(name string, node pipeline.Node, in, out int, elapsed time.Duration, err error) {
	metrics.PipelineNodeDuration.WithLabelValues(name, node.Name()).Observe(elapsed.Seconds())
	ev := e.logger.Debug()
	if err != nil && !core.IsNotFound(err) {
		ev = e.logger.Warn().Err(err)
	}
	ev.Str("pipeline", name).
		Str("node", node.Name()).
		Int("in", in).
		Int("out", out).
		Dur("elapsed", elapsed).
		Msg("pipeline node")
}
