package recall

import (
	"context"
	"testing"

	"github.com/rushteam/movierec/catalog"
	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/feature"
	"github.com/rushteam/movierec/similarity"
)

func fixture(t *testing.T) (*catalog.Catalog, *similarity.Index) {
	t.Helper()
	cat := catalog.New([]core.Movie{
		{ID: 10, Genre: "Action", Overview: "hero fights", Popularity: 10, VoteAverage: 7},
		{ID: 20, Genre: "Action", Overview: "hero battles villain", Popularity: 5, VoteAverage: 6},
		{ID: 30, Genre: "Romance", Overview: "love story", Popularity: 1, VoteAverage: 8},
		{ID: 40, Genre: "Drama", Overview: "quiet story", Popularity: 5, VoteAverage: 9},
	})
	space, err := feature.Build(context.Background(), feature.CompositeTexts(cat.Movies()), feature.Options{})
	if err != nil {
		t.Fatalf("feature.Build() error = %v", err)
	}
	idx, err := similarity.Build(context.Background(), space.Vectors, 2)
	if err != nil {
		t.Fatalf("similarity.Build() error = %v", err)
	}
	return cat, idx
}

func ids(items []*core.Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
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

func TestContentRecall(t *testing.T) {
	cat, idx := fixture(t)
	tests := []struct {
		name    string
		itemID  int64
		topK    int
		count   int
		want    []int64
		wantErr func(error) bool
	}{
		// 10 与 20 共享 action/hero；30 与 40 共享 story；其余为 0，按行号
		{name: "all others ranked", itemID: 10, want: []int64{20, 30, 40}},
		{name: "ties broken by position", itemID: 30, want: []int64{40, 10, 20}},
		{name: "static top k", itemID: 10, topK: 1, want: []int64{20}},
		{name: "limit from count param", itemID: 40, count: 2, want: []int64{30, 10}},
		{name: "unknown id", itemID: 99, wantErr: core.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ContentRecall{Catalog: cat, Index: idx, TopK: tt.topK, LimitParam: core.ParamCount}
			rctx := core.NewRecommendContext("content")
			rctx.SetParam(core.ParamItemID, tt.itemID)
			if tt.count > 0 {
				rctx.SetParam(core.ParamCount, tt.count)
			}
			items, err := r.Process(context.Background(), rctx, nil)
			if tt.wantErr != nil {
				if !tt.wantErr(err) {
					t.Fatalf("Process() error = %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if got := ids(items); !equalIDs(got, tt.want) {
				t.Errorf("Process() = %v, want %v", got, tt.want)
			}
			for i := 1; i < len(items); i++ {
				if items[i].Score > items[i-1].Score {
					t.Errorf("scores not descending at %d: %v > %v", i, items[i].Score, items[i-1].Score)
				}
			}
		})
	}
}

func TestContentRecall_MissingParam(t *testing.T) {
	cat, idx := fixture(t)
	r := &ContentRecall{Catalog: cat, Index: idx}
	if _, err := r.Recall(context.Background(), core.NewRecommendContext("content")); err == nil {
		t.Errorf("Recall() without item_id error = nil, want error")
	}
}

func TestHot(t *testing.T) {
	cat, _ := fixture(t)
	tests := []struct {
		name  string
		limit int
		count int
		want  []int64
	}{
		{name: "whole catalog in popularity order", want: []int64{10, 40, 20, 30}},
		{name: "static limit", limit: 2, want: []int64{10, 40}},
		{name: "limit from count param", count: 3, want: []int64{10, 40, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Hot{Catalog: cat, Limit: tt.limit, LimitParam: core.ParamCount}
			rctx := core.NewRecommendContext("popular")
			if tt.count > 0 {
				rctx.SetParam(core.ParamCount, tt.count)
			}
			items, err := r.Process(context.Background(), rctx, nil)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if got := ids(items); !equalIDs(got, tt.want) {
				t.Errorf("Process() = %v, want %v", got, tt.want)
			}
			if items[0].Features["vote_average"] != 7 || items[0].Features["popularity"] != 10 {
				t.Errorf("features = %v", items[0].Features)
			}
		})
	}
}

func TestHot_EmptyCatalog(t *testing.T) {
	items, err := (&Hot{Catalog: catalog.Empty()}).Recall(context.Background(), core.NewRecommendContext("popular"))
	if err != nil || len(items) != 0 {
		t.Errorf("Recall() = %v, %v, want empty", items, err)
	}
}
