package feature

import (
	"context"
	"math"
	"sort"

	"github.com/rushteam/movierec/core"
)

// DefaultMaxFeatures 默认词表大小
const DefaultMaxFeatures = 5000

// Options TF-IDF 构建参数
type Options struct {
	// MaxFeatures 词表上限（按语料总词频取前 K 个），<=0 时使用 DefaultMaxFeatures
	MaxFeatures int
	// StopWords 在英文停用词表之外追加的停用词
	StopWords []string
}

// Space 是构建完成的向量空间，构建后只读。
type Space struct {
	// Terms 词表，按字典序排列，下标即特征维度
	Terms []string
	// Vocabulary term -> 维度下标
	Vocabulary map[string]int
	// IDF 每个维度的逆文档频率
	IDF []float64
	// Vectors 每篇文档（按目录顺序）的 L2 归一化向量
	Vectors []Vector
}

// Dim 返回向量维度
func (s *Space) Dim() int { return len(s.Terms) }

// Len 返回文档数量
func (s *Space) Len() int { return len(s.Vectors) }

// Build 在文档集合上构建 TF-IDF 向量空间。
//
//   - 词表：去停用词后按语料总词频取前 MaxFeatures 个，频次相同按字典序；
//   - 权重：tf * idf，idf = ln((1+n)/(1+df)) + 1；
//   - 每个向量做 L2 归一化，全部 token 都是停用词的文档得到零向量。
//
// 空文档集合返回空的向量空间，不视为错误。
func Build(ctx context.Context, docs []string, opts Options) (*Space, error) {
	if opts.MaxFeatures < 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput, "feature: max_features must not be negative")
	}
	k := opts.MaxFeatures
	if k == 0 {
		k = DefaultMaxFeatures
	}
	tok := NewTokenizer(opts.StopWords...)

	counts := make([]map[string]int, len(docs))
	total := make(map[string]int)
	for i, doc := range docs {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		c := make(map[string]int)
		for _, t := range tok.Tokenize(doc) {
			c[t]++
		}
		for t, n := range c {
			total[t] += n
		}
		counts[i] = c
	}

	terms := topTerms(total, k)
	vocab := make(map[string]int, len(terms))
	for i, t := range terms {
		vocab[t] = i
	}

	df := make([]int, len(terms))
	for _, c := range counts {
		for t := range c {
			if idx, ok := vocab[t]; ok {
				df[idx]++
			}
		}
	}
	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for i, d := range df {
		idf[i] = math.Log((1+n)/(1+float64(d))) + 1
	}

	vectors := make([]Vector, len(docs))
	for i, c := range counts {
		v := Vector{}
		for t := range c {
			if idx, ok := vocab[t]; ok {
				v.Indices = append(v.Indices, idx)
			}
		}
		sort.Ints(v.Indices)
		v.Values = make([]float64, len(v.Indices))
		for j, idx := range v.Indices {
			v.Values[j] = float64(c[terms[idx]]) * idf[idx]
		}
		v.normalize()
		vectors[i] = v
	}

	return &Space{
		Terms:      terms,
		Vocabulary: vocab,
		IDF:        idf,
		Vectors:    vectors,
	}, nil
}

// topTerms 取总词频最高的 k 个词，频次相同按字典序，返回结果按字典序排列。
func topTerms(total map[string]int, k int) []string {
	terms := make([]string, 0, len(total))
	for t := range total {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	if len(terms) > k {
		sort.SliceStable(terms, func(i, j int) bool {
			return total[terms[i]] > total[terms[j]]
		})
		terms = terms[:k]
		sort.Strings(terms)
	}
	return terms
}
