package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rushteam/movierec/core"
)

// Source 是目录数据源。
type Source interface {
	// Name 返回数据源名称（用于日志/监控）
	Name() string

	// Load 加载全部电影，顺序即行号
	Load(ctx context.Context) ([]core.Movie, error)
}

// CSVSource 从带表头的 CSV 文件加载目录。
// 列按表头名匹配：id, title, genre, original_language, overview,
// popularity, release_date, vote_average, vote_count；缺失的列按空值处理。
type CSVSource struct {
	Path string
}

func (s *CSVSource) Name() string { return "csv" }

func (s *CSVSource) Load(ctx context.Context) ([]core.Movie, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleCatalog, core.ErrorCodeBuildFailure, "catalog: open csv", err)
	}
	defer f.Close()
	return ReadCSV(ctx, f)
}

// ReadCSV 解析 CSV 内容。id 无法解析的行会被跳过，数值列解析失败按 0 处理。
func ReadCSV(ctx context.Context, r io.Reader) ([]core.Movie, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleCatalog, core.ErrorCodeBuildFailure, "catalog: read csv header", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["id"]; !ok {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeBuildFailure, "catalog: csv missing id column")
	}

	var movies []core.Movie
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, core.WrapDomainError(core.ModuleCatalog, core.ErrorCodeBuildFailure, fmt.Sprintf("catalog: read csv line %d", line), err)
		}
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		field := func(name string) string {
			if i, ok := cols[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		id, err := parseID(field("id"))
		if err != nil {
			continue
		}
		movies = append(movies, core.Movie{
			ID:               id,
			Title:            field("title"),
			Genre:            field("genre"),
			OriginalLanguage: field("original_language"),
			Overview:         field("overview"),
			Popularity:       parseFloat(field("popularity")),
			ReleaseDate:      field("release_date"),
			VoteAverage:      parseFloat(field("vote_average")),
			VoteCount:        int64(parseFloat(field("vote_count"))),
		})
	}
	return movies, nil
}

// parseID 兼容 "123" 与 "123.0" 两种写法
func parseID(s string) (int64, error) {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("catalog: invalid id %q", s)
	}
	return int64(f), nil
}

// parseFloat 无法解析的值以及 NaN、±Inf 记为 0
func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// StoreSource 从 core.Store 中读取 JSON 编码的目录快照（由 SaveToStore 发布）。
type StoreSource struct {
	Store core.Store
	Key   string
}

func (s *StoreSource) Name() string { return "store:" + s.Store.Name() }

func (s *StoreSource) Load(ctx context.Context) ([]core.Movie, error) {
	data, err := s.Store.Get(ctx, s.Key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, core.WrapDomainError(core.ModuleCatalog, core.ErrorCodeBuildFailure, "catalog: snapshot "+s.Key+" not found", err)
		}
		return nil, core.WrapDomainError(core.ModuleCatalog, core.ErrorCodeBuildFailure, "catalog: read snapshot", err)
	}
	var movies []core.Movie
	if err := json.Unmarshal(data, &movies); err != nil {
		return nil, core.WrapDomainError(core.ModuleCatalog, core.ErrorCodeBuildFailure, "catalog: decode snapshot", err)
	}
	return movies, nil
}

// SaveToStore 把目录快照以 JSON 写入 store，供其他实例通过 StoreSource 加载。
func SaveToStore(ctx context.Context, store core.Store, key string, movies []core.Movie) error {
	data, err := json.Marshal(movies)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, data)
}
