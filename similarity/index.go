// Package similarity 计算并保存物品两两之间的余弦相似度。
//
// 矩阵是对称的，只保存包含对角线的上三角（float32 紧凑存储），按行号寻址。
package similarity

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/feature"
)

// Index 是构建完成的只读相似度矩阵，可并发读。
type Index struct {
	n    int
	data []float32
}

// Len 返回矩阵边长（物品数量）
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return x.n
}

// offset 返回 (i, j)（i <= j）在紧凑上三角中的下标
func (x *Index) offset(i, j int) int {
	return i*(2*x.n-i+1)/2 + (j - i)
}

// At 返回第 i 行第 j 列的相似度
func (x *Index) At(i, j int) float64 {
	if i > j {
		i, j = j, i
	}
	return float64(x.data[x.offset(i, j)])
}

// Row 把第 pos 行写入 dst 并返回；dst 容量不足时重新分配。
func (x *Index) Row(pos int, dst []float64) []float64 {
	if cap(dst) < x.n {
		dst = make([]float64, x.n)
	}
	dst = dst[:x.n]
	for j := 0; j < pos; j++ {
		dst[j] = float64(x.data[x.offset(j, pos)])
	}
	base := x.offset(pos, pos)
	for j := pos; j < x.n; j++ {
		dst[j] = float64(x.data[base+j-pos])
	}
	return dst
}

type posting struct {
	doc    int
	weight float64
}

// Build 计算所有向量两两的余弦相似度。
//
// 借助倒排表只累加共享词项的文档对，零向量与任何向量（包括自身）的相似度都是 0。
// workers <= 0 时单协程计算。
func Build(ctx context.Context, vectors []feature.Vector, workers int) (*Index, error) {
	n := len(vectors)
	x := &Index{n: n, data: make([]float32, n*(n+1)/2)}
	if n == 0 {
		return x, nil
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	norms := make([]float64, n)
	postings := make(map[int][]posting)
	for doc, v := range vectors {
		norms[doc] = v.Norm()
		for k, term := range v.Indices {
			postings[term] = append(postings[term], posting{doc: doc, weight: v.Values[k]})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			acc := make([]float64, n)
			seen := make([]bool, n)
			touched := make([]int, 0, 64)
			// 按步长分配行，使三角矩阵的工作量在各协程间大致均匀
			for i := w; i < n; i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				touched = x.fillRow(i, vectors[i], norms, postings, acc, seen, touched[:0])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, core.WrapDomainError(core.ModuleIndex, core.ErrorCodeBuildFailure, "similarity: build interrupted", err)
	}
	return x, nil
}

// fillRow 计算第 i 行中 j >= i 的部分
func (x *Index) fillRow(i int, v feature.Vector, norms []float64, postings map[int][]posting, acc []float64, seen []bool, touched []int) []int {
	base := x.offset(i, i)
	if norms[i] == 0 {
		return touched
	}
	x.data[base] = 1

	for k, term := range v.Indices {
		list := postings[term]
		start := sort.Search(len(list), func(p int) bool { return list[p].doc > i })
		for _, p := range list[start:] {
			if !seen[p.doc] {
				seen[p.doc] = true
				touched = append(touched, p.doc)
			}
			acc[p.doc] += v.Values[k] * p.weight
		}
	}
	for _, j := range touched {
		if norms[j] != 0 {
			s := acc[j] / (norms[i] * norms[j])
			x.data[base+j-i] = float32(math.Min(1, s))
		}
		acc[j] = 0
		seen[j] = false
	}
	return touched
}

var _ core.SimilarityIndex = (*Index)(nil)
