package core

// Catalog 是目录快照的只读视图。
// 行号（position）与物品 ID 的双向映射在快照创建时一次性建立。
type Catalog interface {
	// Len 返回物品数量
	Len() int

	// Position 返回物品 ID 对应的行号
	Position(id int64) (int, bool)

	// MovieAt 返回行号对应的物品记录
	MovieAt(pos int) Movie

	// PopularOrder 返回按 (popularity desc, vote_average desc, 行号 asc) 排好的行号列表
	PopularOrder() []int
}

// SimilarityIndex 是物品两两相似度的只读视图，按行号寻址。
type SimilarityIndex interface {
	Len() int

	// Row 把第 pos 行的相似度写入 dst（复用容量）并返回
	Row(pos int, dst []float64) []float64
}

// HistoryReader 读取用户的浏览历史（最近的在最后）。
type HistoryReader interface {
	GetHistory(userID string) []int64
}
