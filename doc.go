// Package movierec 是一个基于内容的电影推荐服务。
//
// 设计要点：
// - Snapshot-first: 目录、TF-IDF 向量空间与相似度矩阵在启动时一次性构建，之后只读
// - Pipeline-first: 三种推荐策略都是 Recall → Filter → ReRank 的 Node 链，可用 YAML 覆盖
// - Degrade, don't fail: 构建失败时以空目录提供服务，查询不向调用方返回错误
package movierec

import (
	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/engine"
	"github.com/rushteam/movierec/pipeline"
)

// 轻量 facade：便于用户直接 import "movierec" 使用核心抽象。
type (
	Movie    = core.Movie
	Engine   = engine.Engine
	Config   = engine.Config
	Pipeline = pipeline.Pipeline
	Node     = pipeline.Node
	Kind     = pipeline.Kind
)

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindReRank = pipeline.KindReRank
)

// New 创建推荐引擎，见 engine.New
var New = engine.New

// DefaultConfig 见 engine.DefaultConfig
var DefaultConfig = engine.DefaultConfig
