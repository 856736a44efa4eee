// Package catalog 保存电影目录的只读快照。
//
// 快照在启动时加载一次，之后只读，可并发访问。行号（position）即加载顺序，
// 相似度矩阵按行号寻址，物品 ID 与行号的双向映射在创建快照时建立。
package catalog

import (
	"sort"
	"strings"

	"github.com/rushteam/movierec/core"
)

// Catalog 是电影目录快照。
type Catalog struct {
	movies  []core.Movie
	byID    map[int64]int
	popular []int
	genres  []string
}

// New 基于 movies 创建目录快照（movies 会被复制）。
// ID 重复时，映射指向第一次出现的行。
func New(movies []core.Movie) *Catalog {
	c := &Catalog{
		movies: append([]core.Movie(nil), movies...),
		byID:   make(map[int64]int, len(movies)),
	}
	for pos, m := range c.movies {
		if _, ok := c.byID[m.ID]; !ok {
			c.byID[m.ID] = pos
		}
	}
	c.popular = popularOrder(c.movies)
	c.genres = collectGenres(c.movies)
	return c
}

// Empty 返回空目录，用于加载失败后的降级模式。
func Empty() *Catalog { return New(nil) }

func (c *Catalog) Len() int { return len(c.movies) }

func (c *Catalog) Position(id int64) (int, bool) {
	pos, ok := c.byID[id]
	return pos, ok
}

func (c *Catalog) MovieAt(pos int) core.Movie { return c.movies[pos] }

// PopularOrder 返回按 (popularity desc, vote_average desc) 排序的行号，同分时行号小的在前。
// 返回的切片只读。
func (c *Catalog) PopularOrder() []int { return c.popular }

// Movies 返回全部电影（按行号顺序，只读）
func (c *Catalog) Movies() []core.Movie { return c.movies }

// Get 按 ID 获取电影
func (c *Catalog) Get(id int64) (core.Movie, error) {
	pos, ok := c.byID[id]
	if !ok {
		return core.Movie{}, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeNotFound, "catalog: movie not found")
	}
	return c.movies[pos], nil
}

// Genres 返回去重并按字典序排列的类型列表
func (c *Catalog) Genres() []string { return c.genres }

func popularOrder(movies []core.Movie) []int {
	order := make([]int, len(movies))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ma, mb := movies[order[a]], movies[order[b]]
		if ma.Popularity != mb.Popularity {
			return ma.Popularity > mb.Popularity
		}
		return ma.VoteAverage > mb.VoteAverage
	})
	return order
}

func collectGenres(movies []core.Movie) []string {
	set := make(map[string]struct{})
	for _, m := range movies {
		for _, g := range strings.Split(m.Genre, ",") {
			if g = strings.TrimSpace(g); g != "" {
				set[g] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for g := range set {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

var _ core.Catalog = (*Catalog)(nil)
