package feature

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/rushteam/movierec/core"
)

const eps = 1e-9

func TestBuild_Vocabulary(t *testing.T) {
	docs := []string{
		"apple banana apple",
		"banana cherry",
		"cherry date",
	}
	tests := []struct {
		name        string
		maxFeatures int
		wantTerms   []string
	}{
		{name: "default keeps all terms", maxFeatures: 0, wantTerms: []string{"apple", "banana", "cherry", "date"}},
		{name: "top k with lexicographic tie break", maxFeatures: 2, wantTerms: []string{"apple", "banana"}},
		{name: "top k sorted alphabetically", maxFeatures: 3, wantTerms: []string{"apple", "banana", "cherry"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			space, err := Build(context.Background(), docs, Options{MaxFeatures: tt.maxFeatures})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if !reflect.DeepEqual(space.Terms, tt.wantTerms) {
				t.Errorf("Terms = %v, want %v", space.Terms, tt.wantTerms)
			}
			for i, term := range space.Terms {
				if space.Vocabulary[term] != i {
					t.Errorf("Vocabulary[%q] = %d, want %d", term, space.Vocabulary[term], i)
				}
			}
		})
	}
}

func TestBuild_Weights(t *testing.T) {
	docs := []string{"apple banana apple", "banana cherry", "the of and"}
	space, err := Build(context.Background(), docs, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// n=3: apple df=1, banana df=2, cherry df=1
	idfApple := math.Log(4.0/2.0) + 1
	idfBanana := math.Log(4.0/3.0) + 1
	if got := space.IDF[space.Vocabulary["apple"]]; math.Abs(got-idfApple) > eps {
		t.Errorf("idf(apple) = %v, want %v", got, idfApple)
	}
	if got := space.IDF[space.Vocabulary["banana"]]; math.Abs(got-idfBanana) > eps {
		t.Errorf("idf(banana) = %v, want %v", got, idfBanana)
	}

	v0 := space.Vectors[0]
	if v0.Len() != 2 {
		t.Fatalf("doc0 nnz = %d, want 2", v0.Len())
	}
	a, b := 2*idfApple, idfBanana
	norm := math.Sqrt(a*a + b*b)
	if math.Abs(v0.Values[0]-a/norm) > eps || math.Abs(v0.Values[1]-b/norm) > eps {
		t.Errorf("doc0 values = %v, want [%v %v]", v0.Values, a/norm, b/norm)
	}
	if math.Abs(v0.Norm()-1) > eps {
		t.Errorf("doc0 norm = %v, want 1", v0.Norm())
	}

	// 全是停用词的文档是零向量
	if v2 := space.Vectors[2]; v2.Len() != 0 || v2.Norm() != 0 {
		t.Errorf("stop-word doc = %+v, want zero vector", v2)
	}
}

func TestBuild_Empty(t *testing.T) {
	space, err := Build(context.Background(), nil, Options{})
	if err != nil {
		t.Fatalf("Build(nil) error = %v", err)
	}
	if space.Len() != 0 || space.Dim() != 0 {
		t.Errorf("Build(nil) = len %d dim %d, want empty", space.Len(), space.Dim())
	}
}

func TestBuild_Deterministic(t *testing.T) {
	docs := []string{"Action hero fights en", "Action hero battles villain en", "Romance love story en"}
	a, err := Build(context.Background(), docs, Options{MaxFeatures: 4})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	b, err := Build(context.Background(), docs, Options{MaxFeatures: 4})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Build() is not deterministic")
	}
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(context.Background(), []string{"x"}, Options{MaxFeatures: -1})
	if de := core.GetDomainError(err); de == nil || de.Code != core.ErrorCodeInvalidInput {
		t.Errorf("Build(max_features=-1) error = %v, want INVALID_INPUT", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Build(ctx, []string{"hero"}, Options{}); err == nil {
		t.Errorf("Build(cancelled) error = nil, want context error")
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b Vector
		want float64
	}{
		{
			name: "identical",
			a:    Vector{Indices: []int{0, 2}, Values: []float64{3, 4}},
			b:    Vector{Indices: []int{0, 2}, Values: []float64{3, 4}},
			want: 1,
		},
		{
			name: "disjoint",
			a:    Vector{Indices: []int{0}, Values: []float64{1}},
			b:    Vector{Indices: []int{1}, Values: []float64{1}},
			want: 0,
		},
		{
			name: "partial overlap",
			a:    Vector{Indices: []int{0, 1}, Values: []float64{1, 1}},
			b:    Vector{Indices: []int{1, 2}, Values: []float64{1, 1}},
			want: 0.5,
		},
		{
			name: "zero vector",
			a:    Vector{},
			b:    Vector{Indices: []int{1}, Values: []float64{1}},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > eps {
				t.Errorf("Cosine() = %v, want %v", got, tt.want)
			}
		})
	}
}
