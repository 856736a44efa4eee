package catalog

import (
	"strings"

	"github.com/rushteam/movierec/core"
)

// DefaultPerPage 默认每页数量
const DefaultPerPage = 20

// Query 列表查询条件
type Query struct {
	// Search 在标题和简介中做大小写不敏感的子串匹配
	Search string
	// Genre 在类型字段中做大小写不敏感的子串匹配
	Genre   string
	Page    int
	PerPage int
}

// Page 分页结果
type Page struct {
	Movies     []core.Movie `json:"movies"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	PerPage    int          `json:"per_page"`
	TotalPages int          `json:"total_pages"`
}

// Find 按条件过滤并分页，结果保持目录顺序。
func (c *Catalog) Find(q Query) Page {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = DefaultPerPage
	}
	search := strings.ToLower(q.Search)
	genre := strings.ToLower(q.Genre)

	matched := make([]core.Movie, 0)
	for _, m := range c.movies {
		if search != "" &&
			!strings.Contains(strings.ToLower(m.Title), search) &&
			!strings.Contains(strings.ToLower(m.Overview), search) {
			continue
		}
		if genre != "" && !strings.Contains(strings.ToLower(m.Genre), genre) {
			continue
		}
		matched = append(matched, m)
	}

	page := Page{
		Movies:     []core.Movie{},
		Total:      len(matched),
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: (len(matched) + q.PerPage - 1) / q.PerPage,
	}
	start := (q.Page - 1) * q.PerPage
	if start < len(matched) {
		end := min(start+q.PerPage, len(matched))
		page.Movies = matched[start:end]
	}
	return page
}
