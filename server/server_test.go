package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/rushteam/movierec/catalog"
	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/engine"
)

type mockHTTPServer struct {
	listenErr error
	shutdowns atomic.Int32
	started   chan struct{}
	stopCh    chan struct{}
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{started: make(chan struct{}, 1), stopCh: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	select {
	case m.started <- struct{}{}:
	default:
	}
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdowns.Add(1)
	close(m.stopCh)
	return nil
}

type sliceSource []core.Movie

func (s sliceSource) Name() string { return "slice" }

func (s sliceSource) Load(context.Context) ([]core.Movie, error) { return s, nil }

type failingSource struct{}

func (failingSource) Name() string { return "failing" }

func (failingSource) Load(context.Context) ([]core.Movie, error) {
	return nil, errors.New("disk gone")
}

func TestServicesImplementSuture(t *testing.T) {
	var _ suture.Service = (*HTTPService)(nil)
	var _ suture.Service = (*BuildService)(nil)
}

func TestNewHTTPService_DefaultTimeout(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		if svc := NewHTTPService(newMockHTTPServer(), d); svc.shutdownTimeout != 10*time.Second {
			t.Errorf("NewHTTPService(%v) timeout = %v", d, svc.shutdownTimeout)
		}
	}
}

func TestHTTPService_GracefulShutdown(t *testing.T) {
	srv := newMockHTTPServer()
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	if srv.shutdowns.Load() != 1 {
		t.Errorf("Shutdown calls = %d, want 1", srv.shutdowns.Load())
	}
}

func TestHTTPService_ListenError(t *testing.T) {
	srv := newMockHTTPServer()
	srv.listenErr = errors.New("address in use")
	err := NewHTTPService(srv, time.Second).Serve(context.Background())
	if err == nil || !strings.Contains(err.Error(), "address in use") {
		t.Errorf("Serve() error = %v", err)
	}
}

func TestBuildService(t *testing.T) {
	tests := []struct {
		name         string
		source       catalog.Source
		wantDegraded bool
		wantLog      string
	}{
		{name: "success", source: sliceSource{{ID: 1, Title: "Matrix", Overview: "virtual reality"}}},
		{name: "failure degrades", source: failingSource{}, wantDegraded: true, wantLog: "serving degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			eng := engine.New(engine.DefaultConfig(), engine.WithLogger(zerolog.Nop()))
			svc := NewBuildService(eng, tt.source, zerolog.New(&buf))

			if err := svc.Serve(context.Background()); !errors.Is(err, suture.ErrDoNotRestart) {
				t.Fatalf("Serve() error = %v, want ErrDoNotRestart", err)
			}
			if !eng.IsReady() {
				t.Fatal("engine not ready after build service")
			}
			if got := eng.BuildErr() != nil; got != tt.wantDegraded {
				t.Errorf("degraded = %v, want %v", got, tt.wantDegraded)
			}
			if tt.wantLog != "" && !strings.Contains(buf.String(), tt.wantLog) {
				t.Errorf("log = %q, want %q", buf.String(), tt.wantLog)
			}

			// 二次运行不会重新构建，也不记错误日志
			buf.Reset()
			if err := svc.Serve(context.Background()); !errors.Is(err, suture.ErrDoNotRestart) {
				t.Errorf("second Serve() error = %v", err)
			}
			if buf.Len() != 0 {
				t.Errorf("second Serve() logged %q", buf.String())
			}
		})
	}
}

func TestSupervisor_RunsServices(t *testing.T) {
	srv := newMockHTTPServer()
	eng := engine.New(engine.DefaultConfig(), engine.WithLogger(zerolog.Nop()))

	sup := New(zerolog.Nop(), Config{ShutdownTimeout: time.Second})
	sup.AddBuild(NewBuildService(eng, sliceSource{{ID: 1, Title: "Matrix", Overview: "virtual reality"}}, zerolog.Nop()))
	sup.AddAPI(NewHTTPService(srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	if err := eng.WaitReady(waitCtx); err != nil {
		t.Fatalf("engine never became ready: %v", err)
	}
	select {
	case <-srv.started:
	case <-time.After(2 * time.Second):
		t.Fatal("http service never started")
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor did not stop")
	}
	if srv.shutdowns.Load() != 1 {
		t.Errorf("Shutdown calls = %d, want 1", srv.shutdowns.Load())
	}
}

func TestConfigDefaults(t *testing.T) {
	got := Config{}.withDefaults()
	if got != DefaultConfig() {
		t.Errorf("withDefaults() = %+v, want %+v", got, DefaultConfig())
	}
	custom := Config{FailureThreshold: 2, ShutdownTimeout: time.Second}.withDefaults()
	if custom.FailureThreshold != 2 || custom.ShutdownTimeout != time.Second || custom.FailureDecay != 30 {
		t.Errorf("withDefaults() = %+v", custom)
	}
}
