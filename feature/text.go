// Package feature 把目录中的电影投影到 TF-IDF 稀疏向量空间。
//
// 流程：组合文本 → 分词（去停用词）→ 选取 top-K 词表 → TF-IDF 加权 → L2 归一化。
// 词表与权重在全量目录上构建一次，查询期间不再重建。
package feature

import "github.com/rushteam/movierec/core"

// CompositeText 返回电影的组合特征文本：genre + " " + overview + " " + original_language。
// 缺失字段按空字符串处理。
func CompositeText(m core.Movie) string {
	return m.Genre + " " + m.Overview + " " + m.OriginalLanguage
}

// CompositeTexts 按目录顺序批量生成组合文本
func CompositeTexts(movies []core.Movie) []string {
	out := make([]string, len(movies))
	for i, m := range movies {
		out[i] = CompositeText(m)
	}
	return out
}
