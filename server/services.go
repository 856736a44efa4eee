package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/rushteam/movierec/catalog"
	"github.com/rushteam/movierec/engine"
)

// HTTPServer 是 *http.Server 的生命周期子集，便于测试替换
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService 把 http.Server 包装为 suture.Service
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPService shutdownTimeout <= 0 时使用 10s
func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve 运行直到 ctx 取消或服务器出错，取消时优雅关闭
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPService) String() string { return "http-server" }

// BuildService 在后台执行一次引擎构建，完成后不再重启
type BuildService struct {
	engine *engine.Engine
	source catalog.Source
	logger zerolog.Logger
}

// NewBuildService 创建构建任务
func NewBuildService(eng *engine.Engine, src catalog.Source, logger zerolog.Logger) *BuildService {
	return &BuildService{engine: eng, source: src, logger: logger}
}

// Serve 构建失败时引擎已进入降级模式，同样不重启
func (b *BuildService) Serve(ctx context.Context) error {
	err := b.engine.Build(ctx, b.source)
	switch {
	case errors.Is(err, engine.ErrAlreadyBuilt):
	case err != nil:
		b.logger.Error().Err(err).Str("source", b.source.Name()).Msg("catalog build failed, serving degraded")
	}
	return suture.ErrDoNotRestart
}

func (b *BuildService) String() string { return "engine-build" }
