// Package metrics 定义 Prometheus 指标，通过 /metrics 暴露。
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 启动构建
	BuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movierec_build_duration_seconds",
			Help:    "Duration of the startup build stages in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"}, // load / features / similarity / pipelines
	)

	BuildFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movierec_build_failures_total",
			Help: "Total number of failed startup builds",
		},
	)

	CatalogItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movierec_catalog_items",
			Help: "Number of movies in the loaded catalog",
		},
	)

	VocabularySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movierec_vocabulary_size",
			Help: "Number of terms in the TF-IDF vocabulary",
		},
	)

	// 推荐请求
	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movierec_recommend_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scene"},
	)

	RecommendFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierec_recommend_fallbacks_total",
			Help: "Total number of recommendations degraded to a fallback or empty result",
		},
		[]string{"scene", "reason"},
	)

	PipelineNodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movierec_pipeline_node_duration_seconds",
			Help:    "Duration of pipeline node execution in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pipeline", "node"},
	)

	FilterErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierec_filter_errors_total",
			Help: "Total number of filter evaluations that failed and kept the item",
		},
		[]string{"filter"},
	)

	// 结果缓存
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movierec_cache_hits_total",
			Help: "Total number of result cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movierec_cache_misses_total",
			Help: "Total number of result cache misses",
		},
	)

	// 浏览历史
	TrackedViews = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierec_tracked_views_total",
			Help: "Total number of tracked views",
		},
		[]string{"result"}, // added / duplicate
	)

	// 浏览事件外发
	FeedbackEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierec_feedback_events_total",
			Help: "Total number of view events sent to the feedback sink",
		},
		[]string{"result"}, // published / failed / dropped
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierec_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movierec_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordAPIRequest 记录一次 API 请求
func RecordAPIRequest(method, route string, status int, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveBuildStage 记录构建阶段耗时
func ObserveBuildStage(stage string, d time.Duration) {
	BuildDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordFallback 记录一次降级
func RecordFallback(scene, reason string) {
	RecommendFallbacks.WithLabelValues(scene, reason).Inc()
}

// RecordTrackedView 记录一次浏览上报
func RecordTrackedView(added bool) {
	result := "duplicate"
	if added {
		result = "added"
	}
	TrackedViews.WithLabelValues(result).Inc()
}
