// Package api 提供 HTTP/JSON 接口：电影列表与详情、三种推荐、浏览上报、类型列表与健康检查。
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rushteam/movierec/engine"
	"github.com/rushteam/movierec/feedback"
)

// Options 路由选项
type Options struct {
	CORSOrigins []string
	RateLimit   int // 每 IP 每分钟请求数，0 表示不限流
}

// Handler 持有接口依赖
type Handler struct {
	engine   *engine.Engine
	logger   zerolog.Logger
	validate *validator.Validate
	feedback feedback.Collector
}

// HandlerOption Handler 可选项
type HandlerOption func(*Handler)

// WithFeedback 浏览上报成功后把事件交给 c
func WithFeedback(c feedback.Collector) HandlerOption {
	return func(h *Handler) {
		if c != nil {
			h.feedback = c
		}
	}
}

func NewHandler(eng *engine.Engine, logger zerolog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		engine:   eng,
		logger:   logger.With().Str("component", "api").Logger(),
		validate: validator.New(),
		feedback: feedback.NopCollector{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter 创建 chi 路由
func NewRouter(h *Handler, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(accessLog(h.logger))
	r.Use(corsHandler(opts.CORSOrigins))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health/live", h.Live)
		r.Get("/health/ready", h.Ready)

		r.Group(func(r chi.Router) {
			r.Use(rateLimit(opts.RateLimit))

			r.Get("/movies", h.ListMovies)
			r.Get("/movie/{id}", h.GetMovie)
			r.Get("/genres", h.Genres)

			r.Get("/recommendations/content/{id}", h.ContentRecommendations)
			r.Get("/recommendations/user/{userID}", h.UserRecommendations)
			r.Get("/recommendations/popular", h.PopularRecommendations)

			r.Post("/track", h.Track)
			r.Get("/users/{userID}/history", h.History)
		})
	})
	return r
}
