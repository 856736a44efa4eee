package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/movierec/core"
)

// BreakerConfig 熔断参数，零值使用默认值
type BreakerConfig struct {
	FailureThreshold uint32        // 连续失败多少次后熔断，默认 5
	Timeout          time.Duration // 熔断后多久进入半开，默认 30s
	MaxRequests      uint32        // 半开状态允许的试探请求数，默认 1
}

// BreakerStore 为远程 Store 加熔断：后端连续失败时直接返回错误，不再等待超时。
// key 不存在不计为失败。
type BreakerStore struct {
	inner core.Store
	cb    *gobreaker.CircuitBreaker[[]byte]
}

// NewBreakerStore 包装 inner
func NewBreakerStore(inner core.Store, cfg BreakerConfig, logger zerolog.Logger) *BreakerStore {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	l := logger.With().Str("component", "store").Str("backend", inner.Name()).Logger()
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "store:" + inner.Name(),
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || core.IsStoreNotFound(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("store breaker state changed")
		},
	})
	return &BreakerStore{inner: inner, cb: cb}
}

func (s *BreakerStore) Name() string { return s.inner.Name() }

func (s *BreakerStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.cb.Execute(func() ([]byte, error) {
		return s.inner.Get(ctx, key)
	})
}

func (s *BreakerStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	_, err := s.cb.Execute(func() ([]byte, error) {
		return nil, s.inner.Set(ctx, key, value, ttl...)
	})
	return err
}

func (s *BreakerStore) Close() error { return s.inner.Close() }

// State 返回熔断器状态：closed / half-open / open
func (s *BreakerStore) State() string { return s.cb.State().String() }

var _ core.Store = (*BreakerStore)(nil)
