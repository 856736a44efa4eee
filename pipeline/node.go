package pipeline

import (
	"context"

	"github.com/rushteam/movierec/core"
)

// Kind 用于标记 Node 类型，方便观测/编排（例如按阶段打点）。
type Kind string

const (
	KindRecall Kind = "recall" // 召回阶段：生成候选集
	KindFilter Kind = "filter" // 过滤阶段：剔除不符合约束的候选
	KindReRank Kind = "rerank" // 重排阶段：截断或调整最终顺序
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 items -> 输出 items”的形态，方便 Recall 生成、Filter 截断、ReRank 重排等操作。
// Node 在多个请求之间共享，Process 不能修改 Node 自身状态。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// Resources 是构建 Node 时可用的只读依赖（目录、相似度矩阵、浏览历史）。
type Resources struct {
	Catalog core.Catalog
	Index   core.SimilarityIndex
	History core.HistoryReader
}

// NodeBuilder 根据配置与依赖构建 Node。
type NodeBuilder func(cfg map[string]any, res *Resources) (Node, error)
