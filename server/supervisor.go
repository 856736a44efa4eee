// Package server 用 suture 监督树托管进程内的长期任务：索引构建与 HTTP 服务。
package server

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

// Config 监督树参数，零值使用默认值
type Config struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultConfig 与 suture 内置默认值一致
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.FailureDecay <= 0 {
		c.FailureDecay = d.FailureDecay
	}
	if c.FailureBackoff <= 0 {
		c.FailureBackoff = d.FailureBackoff
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

// Supervisor 根监督者，下挂 build 与 api 两层
type Supervisor struct {
	root  *suture.Supervisor
	build *suture.Supervisor
	api   *suture.Supervisor
}

// New 创建监督树
func New(logger zerolog.Logger, cfg Config) *Supervisor {
	cfg = cfg.withDefaults()
	spec := suture.Spec{
		EventHook:        EventHook(logger),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	child := spec
	child.EventHook = nil

	s := &Supervisor{
		root:  suture.New("movierec", spec),
		build: suture.New("build-layer", child),
		api:   suture.New("api-layer", child),
	}
	s.root.Add(s.build)
	s.root.Add(s.api)
	return s
}

// AddBuild 添加构建类任务
func (s *Supervisor) AddBuild(svc suture.Service) suture.ServiceToken { return s.build.Add(svc) }

// AddAPI 添加对外服务
func (s *Supervisor) AddAPI(svc suture.Service) suture.ServiceToken { return s.api.Add(svc) }

// Serve 阻塞直到 ctx 取消
func (s *Supervisor) Serve(ctx context.Context) error { return s.root.Serve(ctx) }

// ServeBackground 后台运行，返回结束时的错误
func (s *Supervisor) ServeBackground(ctx context.Context) <-chan error {
	return s.root.ServeBackground(ctx)
}

// EventHook 把 suture 事件写入 zerolog
func EventHook(logger zerolog.Logger) suture.EventHook {
	l := logger.With().Str("component", "supervisor").Logger()
	return func(ev suture.Event) {
		var e *zerolog.Event
		switch ev.Type() {
		case suture.EventTypeServicePanic, suture.EventTypeServiceTerminate:
			e = l.Error()
		case suture.EventTypeBackoff, suture.EventTypeStopTimeout:
			e = l.Warn()
		default:
			e = l.Info()
		}
		e.Fields(ev.Map()).Msg(ev.String())
	}
}
