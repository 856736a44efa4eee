// Package engine 是推荐引擎：启动时一次性构建 目录 -> TF-IDF 向量 -> 相似度矩阵 -> Pipeline，
// 之后提供内容推荐、历史推荐与热门推荐三种查询。
//
// 所有查询都不会向调用方返回错误：内部异常（含 panic）一律降级为空列表或热门兜底。
package engine

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/movierec/catalog"
	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/feature"
	"github.com/rushteam/movierec/history"
	"github.com/rushteam/movierec/logging"
	"github.com/rushteam/movierec/metrics"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/similarity"
)

// Config 引擎参数
type Config struct {
	DefaultCount      int
	HistorySize       int
	RatingMargin      float64
	MaxFeatures       int
	ExtraStopWords    []string
	SimilarityWorkers int           // 0 表示 GOMAXPROCS
	CandidateFilter   string        // 历史推荐候选池的 CEL 表达式，空表示默认条件
	Pipelines         *pipeline.Config // 覆盖默认 Pipeline（按名称）
	CacheTTL          time.Duration
}

// DefaultConfig 返回默认引擎参数
func DefaultConfig() Config {
	d := &core.DefaultRecommendConfig{}
	return Config{
		DefaultCount: d.DefaultCount(),
		HistorySize:  d.HistorySize(),
		RatingMargin: d.RatingMargin(),
		MaxFeatures:  d.MaxFeatures(),
		CacheTTL:     10 * time.Minute,
	}
}

// Option 引擎可选项
type Option func(*Engine)

// WithLogger 设置 logger
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l.With().Str("component", "engine").Logger() }
}

// WithCache 设置内容推荐结果缓存，nil 表示不缓存
func WithCache(s core.Store) Option {
	return func(e *Engine) { e.cache = s }
}

// WithHistory 使用外部创建的 Tracker
func WithHistory(t *history.Tracker) Option {
	return func(e *Engine) { e.history = t }
}

// snapshot 是一次构建的全部只读产物
type snapshot struct {
	catalog   *catalog.Catalog
	space     *feature.Space
	index     *similarity.Index
	pipelines map[string]*pipeline.Pipeline
}

// Engine 推荐引擎。
//
// Build 之前的查询会等待就绪（受调用方 ctx 约束）；构建失败时引擎以空目录进入降级模式，同样标记为就绪。
type Engine struct {
	cfg     Config
	logger  zerolog.Logger
	history *history.Tracker
	cache   core.Store

	building  atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once
	snap      atomic.Pointer[snapshot]
	buildErr  error
}

// New 创建引擎，需调用 Build 后才能提供推荐。
func New(cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = def.DefaultCount
	}
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = def.MaxFeatures
	}
	if cfg.SimilarityWorkers <= 0 {
		cfg.SimilarityWorkers = runtime.GOMAXPROCS(0)
	}
	e := &Engine{
		cfg:    cfg,
		logger: logging.WithComponent("engine"),
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.history == nil {
		e.history = history.NewTracker(cfg.HistorySize)
	}
	return e
}

// ErrAlreadyBuilt Build 被重复调用
var ErrAlreadyBuilt = errors.New("engine: already built")

// Build 从 src 加载目录并构建向量空间、相似度矩阵与 Pipeline。只能调用一次。
//
// 加载或构建失败时返回 BUILD_FAILURE，引擎以空目录进入降级模式并标记就绪。
func (e *Engine) Build(ctx context.Context, src catalog.Source) error {
	if !e.building.CompareAndSwap(false, true) {
		return ErrAlreadyBuilt
	}
	defer e.markReady()

	start := time.Now()
	snap, err := e.build(ctx, src)
	if err != nil {
		metrics.BuildFailures.Inc()
		e.buildErr = err
		e.logger.Error().Err(err).Str("source", src.Name()).Msg("build failed, serving empty catalog")
		snap, _ = e.build(ctx, emptySource{})
		if snap == nil {
			snap = &snapshot{catalog: catalog.Empty(), space: &feature.Space{}, index: &similarity.Index{}}
			snap.pipelines, _ = e.buildPipelines(snap)
		}
	}
	e.snap.Store(snap)
	metrics.CatalogItems.Set(float64(snap.catalog.Len()))
	metrics.VocabularySize.Set(float64(snap.space.Dim()))
	e.logger.Info().
		Int("items", snap.catalog.Len()).
		Int("vocabulary", snap.space.Dim()).
		Dur("elapsed", time.Since(start)).
		Msg("engine ready")
	return err
}

func (e *Engine) build(ctx context.Context, src catalog.Source) (*snapshot, error) {
	stage := time.Now()
	movies, err := src.Load(ctx)
	if err != nil {
		if core.IsBuildFailure(err) {
			return nil, err
		}
		return nil, core.WrapDomainError(core.ModuleCatalog, core.ErrorCodeBuildFailure, "engine: load catalog", err)
	}
	cat := catalog.New(movies)
	metrics.ObserveBuildStage("load", time.Since(stage))

	stage = time.Now()
	space, err := feature.Build(ctx, feature.CompositeTexts(cat.Movies()), feature.Options{
		MaxFeatures: e.cfg.MaxFeatures,
		StopWords:   e.cfg.ExtraStopWords,
	})
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleFeature, core.ErrorCodeBuildFailure, "engine: build features", err)
	}
	metrics.ObserveBuildStage("features", time.Since(stage))

	stage = time.Now()
	idx, err := similarity.Build(ctx, space.Vectors, e.cfg.SimilarityWorkers)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleIndex, core.ErrorCodeBuildFailure, "engine: build similarity", err)
	}
	metrics.ObserveBuildStage("similarity", time.Since(stage))

	stage = time.Now()
	snap := &snapshot{catalog: cat, space: space, index: idx}
	snap.pipelines, err = e.buildPipelines(snap)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleEngine, core.ErrorCodeBuildFailure, "engine: build pipelines", err)
	}
	metrics.ObserveBuildStage("pipelines", time.Since(stage))
	return snap, nil
}

func (e *Engine) markReady() {
	e.readyOnce.Do(func() { close(e.ready) })
}

// Ready 返回构建完成（含降级）后关闭的 channel
func (e *Engine) Ready() <-chan struct{} { return e.ready }

// IsReady 是否已构建完成
func (e *Engine) IsReady() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

// WaitReady 等待构建完成或 ctx 结束
func (e *Engine) WaitReady(ctx context.Context) error {
	select {
	case <-e.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BuildErr 返回构建失败的原因（降级模式），正常构建返回 nil。就绪前调用结果无意义。
func (e *Engine) BuildErr() error {
	if !e.IsReady() {
		return nil
	}
	return e.buildErr
}

// Catalog 返回当前目录快照；就绪前返回空目录。
func (e *Engine) Catalog() *catalog.Catalog {
	if s := e.snap.Load(); s != nil {
		return s.catalog
	}
	return catalog.Empty()
}

// VocabularySize 返回 TF-IDF 词表大小
func (e *Engine) VocabularySize() int {
	if s := e.snap.Load(); s != nil {
		return s.space.Dim()
	}
	return 0
}

// RecordView 记录用户浏览，返回是否新增（已存在时返回 false）。
func (e *Engine) RecordView(userID string, movieID int64) bool {
	added := e.history.RecordView(userID, movieID)
	metrics.RecordTrackedView(added)
	return added
}

// GetHistory 返回用户浏览历史（最近的在最后）
func (e *Engine) GetHistory(userID string) []int64 {
	return e.history.GetHistory(userID)
}

type emptySource struct{}

func (emptySource) Name() string { return "empty" }

func (emptySource) Load(context.Context) ([]core.Movie, error) { return nil, nil }
