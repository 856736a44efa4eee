package core

// Item 是推荐链路中的候选物品：目录行号、分数、特征与标签。
// Pos 是物品在目录快照中的行号，用于相似度索引寻址和稳定的并列排序。
type Item struct {
	ID       int64
	Pos      int
	Score    float64
	Features map[string]float64
	Labels   map[string]Label
}

func NewItem(id int64, pos int) *Item {
	return &Item{
		ID:       id,
		Pos:      pos,
		Features: make(map[string]float64),
		Labels:   make(map[string]Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按 MergeLabel 累积。
func (it *Item) PutLabel(key string, lbl Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}
