package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/store"
)

type sliceSource struct {
	movies []core.Movie
	err    error
}

func (s *sliceSource) Name() string { return "slice" }

func (s *sliceSource) Load(context.Context) ([]core.Movie, error) {
	return s.movies, s.err
}

// A/B/C 三部电影：A 与 B 共享 action/hero
var (
	movieA = core.Movie{ID: 1, Title: "A", Genre: "Action", Overview: "hero fights", OriginalLanguage: "en", Popularity: 10, VoteAverage: 7}
	movieB = core.Movie{ID: 2, Title: "B", Genre: "Action", Overview: "hero battles villain", OriginalLanguage: "en", Popularity: 5, VoteAverage: 6}
	movieC = core.Movie{ID: 3, Title: "C", Genre: "Romance", Overview: "love story", OriginalLanguage: "en", Popularity: 1, VoteAverage: 8}
)

func newEngine(t *testing.T, cfg Config, movies []core.Movie, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	e := New(cfg, opts...)
	if err := e.Build(context.Background(), &sliceSource{movies: movies}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return e
}

func movieIDs(movies []core.Movie) []int64 {
	out := make([]int64, len(movies))
	for i, m := range movies {
		out[i] = m.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestContentBasedRecommend(t *testing.T) {
	e := newEngine(t, DefaultConfig(), []core.Movie{movieA, movieB, movieC})
	tests := []struct {
		name   string
		itemID int64
		count  int
		want   []int64
	}{
		{name: "more similar first", itemID: 1, count: 2, want: []int64{2, 3}},
		{name: "count truncates", itemID: 1, count: 1, want: []int64{2}},
		{name: "count above available", itemID: 3, count: 10, want: []int64{1, 2}},
		{name: "default count", itemID: 2, count: 0, want: []int64{1, 3}},
		{name: "unknown id", itemID: 404, count: 5, want: []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.ContentBasedRecommend(context.Background(), tt.itemID, tt.count)
			if got == nil {
				t.Fatalf("ContentBasedRecommend() = nil, want non-nil slice")
			}
			if ids := movieIDs(got); !equalIDs(ids, tt.want) {
				t.Errorf("ContentBasedRecommend(%d, %d) = %v, want %v", tt.itemID, tt.count, ids, tt.want)
			}
		})
	}
}

func TestContentBasedRecommend_Properties(t *testing.T) {
	movies := []core.Movie{
		movieA, movieB, movieC,
		{ID: 4, Genre: "Action, Drama", Overview: "a soldier returns home", Popularity: 3, VoteAverage: 7.5},
		{ID: 5, Genre: "", Overview: "", Popularity: 2, VoteAverage: 5},
		{ID: 6, Genre: "Romance", Overview: "hero in love", Popularity: 9, VoteAverage: 6.5},
	}
	e := newEngine(t, DefaultConfig(), movies)
	for _, m := range movies {
		for _, n := range []int{1, 3, 5, 10} {
			got := e.ContentBasedRecommend(context.Background(), m.ID, n)
			if len(got) > n {
				t.Errorf("ContentBasedRecommend(%d, %d) len = %d", m.ID, n, len(got))
			}
			for _, r := range got {
				if r.ID == m.ID {
					t.Errorf("ContentBasedRecommend(%d, %d) contains query item", m.ID, n)
				}
			}
		}
	}
}

func TestHistoryBasedRecommend(t *testing.T) {
	e := newEngine(t, DefaultConfig(), []core.Movie{movieA, movieB, movieC})
	e.RecordView("u1", movieC.ID)

	// 平均评分 8，门槛 7：A(7) 保留，B(6) 被过滤，C 已看过
	got := e.HistoryBasedRecommend(context.Background(), "u1", 2)
	if ids := movieIDs(got); !equalIDs(ids, []int64{1}) {
		t.Errorf("HistoryBasedRecommend() = %v, want [1]", ids)
	}
}

func TestHistoryBasedRecommend_RatingMargin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RatingMargin = 2
	e := newEngine(t, cfg, []core.Movie{movieA, movieB, movieC})
	e.RecordView("u1", movieC.ID)

	got := e.HistoryBasedRecommend(context.Background(), "u1", 5)
	if ids := movieIDs(got); !equalIDs(ids, []int64{1, 2}) {
		t.Errorf("HistoryBasedRecommend() = %v, want [1 2]", ids)
	}
}

func TestHistoryBasedRecommend_FallsBackToPopularity(t *testing.T) {
	e := newEngine(t, DefaultConfig(), []core.Movie{movieA, movieB, movieC})
	popular := movieIDs(e.PopularityRecommend(context.Background(), 2))

	if got := movieIDs(e.HistoryBasedRecommend(context.Background(), "nobody", 2)); !equalIDs(got, popular) {
		t.Errorf("no history = %v, want popularity %v", got, popular)
	}

	e.RecordView("ghost", 999)
	if got := movieIDs(e.HistoryBasedRecommend(context.Background(), "ghost", 2)); !equalIDs(got, popular) {
		t.Errorf("unresolvable history = %v, want popularity %v", got, popular)
	}
}

func TestPopularityRecommend_Sorted(t *testing.T) {
	movies := []core.Movie{
		{ID: 1, Popularity: 5, VoteAverage: 6},
		{ID: 2, Popularity: 9, VoteAverage: 5},
		{ID: 3, Popularity: 5, VoteAverage: 8},
		{ID: 4, Popularity: 1, VoteAverage: 9},
		{ID: 5, Popularity: 5, VoteAverage: 8},
	}
	e := newEngine(t, DefaultConfig(), movies)
	got := e.PopularityRecommend(context.Background(), 10)
	if ids := movieIDs(got); !equalIDs(ids, []int64{2, 3, 5, 1, 4}) {
		t.Errorf("PopularityRecommend() = %v", ids)
	}
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if cur.Popularity > prev.Popularity ||
			(cur.Popularity == prev.Popularity && cur.VoteAverage > prev.VoteAverage) {
			t.Errorf("not sorted at %d: %+v before %+v", i, prev, cur)
		}
	}
	if got := e.PopularityRecommend(context.Background(), 2); len(got) != 2 {
		t.Errorf("PopularityRecommend(2) len = %d", len(got))
	}
}

func TestEmptyCatalog(t *testing.T) {
	e := newEngine(t, DefaultConfig(), nil)
	e.RecordView("u1", 1)
	ctx := context.Background()
	if got := e.ContentBasedRecommend(ctx, 1, 5); len(got) != 0 {
		t.Errorf("ContentBasedRecommend() = %v, want empty", got)
	}
	if got := e.HistoryBasedRecommend(ctx, "u1", 5); len(got) != 0 {
		t.Errorf("HistoryBasedRecommend() = %v, want empty", got)
	}
	if got := e.PopularityRecommend(ctx, 5); len(got) != 0 {
		t.Errorf("PopularityRecommend() = %v, want empty", got)
	}
}

func TestBuild_FailureDegrades(t *testing.T) {
	e := New(DefaultConfig(), WithLogger(zerolog.Nop()))
	err := e.Build(context.Background(), &sliceSource{err: errors.New("disk gone")})
	if !core.IsBuildFailure(err) {
		t.Fatalf("Build() error = %v, want BUILD_FAILURE", err)
	}
	if !e.IsReady() || e.BuildErr() == nil {
		t.Errorf("IsReady() = %v, BuildErr() = %v", e.IsReady(), e.BuildErr())
	}
	if e.Catalog().Len() != 0 {
		t.Errorf("Catalog().Len() = %d, want 0", e.Catalog().Len())
	}
	if got := e.PopularityRecommend(context.Background(), 3); len(got) != 0 {
		t.Errorf("PopularityRecommend() = %v, want empty", got)
	}

	if err := e.Build(context.Background(), &sliceSource{}); !errors.Is(err, ErrAlreadyBuilt) {
		t.Errorf("second Build() error = %v, want ErrAlreadyBuilt", err)
	}
}

func TestQueriesWaitForReady(t *testing.T) {
	e := New(DefaultConfig(), WithLogger(zerolog.Nop()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if got := e.PopularityRecommend(ctx, 3); len(got) != 0 {
		t.Errorf("PopularityRecommend() before ready = %v, want empty", got)
	}

	done := make(chan []core.Movie, 1)
	go func() {
		done <- e.PopularityRecommend(context.Background(), 3)
	}()
	if err := e.Build(context.Background(), &sliceSource{movies: []core.Movie{movieA, movieB}}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	select {
	case got := <-done:
		if ids := movieIDs(got); !equalIDs(ids, []int64{1, 2}) {
			t.Errorf("waiting query = %v, want [1 2]", ids)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("query did not complete after Build")
	}
}

func TestContentCache(t *testing.T) {
	cache := store.NewMemoryStore()
	defer cache.Close()
	e := newEngine(t, DefaultConfig(), []core.Movie{movieA, movieB, movieC}, WithCache(cache))

	first := e.ContentBasedRecommend(context.Background(), 1, 2)
	data, err := cache.Get(context.Background(), contentCacheKey(1, 2))
	if err != nil {
		t.Fatalf("cache entry missing: %v", err)
	}
	if string(data) != "[2,3]" {
		t.Errorf("cache entry = %s, want [2,3]", data)
	}

	second := e.ContentBasedRecommend(context.Background(), 1, 2)
	if !equalIDs(movieIDs(first), movieIDs(second)) {
		t.Errorf("cached result %v != %v", movieIDs(second), movieIDs(first))
	}

	// 缓存中引用了不存在的 ID 时按未命中处理
	if err := cache.Set(context.Background(), contentCacheKey(3, 1), []byte("[999]")); err != nil {
		t.Fatal(err)
	}
	if got := movieIDs(e.ContentBasedRecommend(context.Background(), 3, 1)); !equalIDs(got, []int64{1}) {
		t.Errorf("stale cache result = %v, want [1]", got)
	}
}

func TestPipelineOverride(t *testing.T) {
	overrides, err := pipeline.ParseYAML([]byte(`
pipelines:
  popular:
    nodes:
      - type: recall.hot
      - type: rerank.topn
        config:
          n: 1
  history:
    nodes:
      - type: rank.unknown
`))
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	cfg := DefaultConfig()
	cfg.Pipelines = overrides
	e := newEngine(t, cfg, []core.Movie{movieA, movieB, movieC})

	if got := e.PopularityRecommend(context.Background(), 3); len(got) != 1 {
		t.Errorf("overridden popular len = %d, want 1", len(got))
	}
	// 无效的 history 覆盖被拒绝，仍使用默认 Pipeline
	e.RecordView("u1", movieC.ID)
	if got := movieIDs(e.HistoryBasedRecommend(context.Background(), "u1", 2)); !equalIDs(got, []int64{1}) {
		t.Errorf("history with rejected override = %v, want [1]", got)
	}
}

func TestCandidateFilter(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []int64
	}{
		{name: "custom expression", expr: "item.features.popularity >= 5.0", want: []int64{1, 2}},
		{name: "invalid expression uses default", expr: "item.features.popularity >=", want: []int64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.CandidateFilter = tt.expr
			e := newEngine(t, cfg, []core.Movie{movieA, movieB, movieC})
			e.RecordView("u1", movieC.ID)
			if got := movieIDs(e.HistoryBasedRecommend(context.Background(), "u1", 5)); !equalIDs(got, tt.want) {
				t.Errorf("HistoryBasedRecommend() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordView(t *testing.T) {
	e := New(Config{HistorySize: 2}, WithLogger(zerolog.Nop()))
	if !e.RecordView("u1", 1) || e.RecordView("u1", 1) {
		t.Errorf("RecordView() duplicate handling wrong")
	}
	e.RecordView("u1", 2)
	e.RecordView("u1", 3)
	if got := e.GetHistory("u1"); !equalIDs(got, []int64{2, 3}) {
		t.Errorf("GetHistory() = %v, want [2 3]", got)
	}
}
