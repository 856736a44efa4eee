package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadSettings_Defaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	s, err := LoadSettings("")
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Server.Addr != ":5000" || s.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("server = %+v", s.Server)
	}
	if s.Recommend.DefaultCount != 10 || s.Recommend.HistorySize != 50 || s.Recommend.RatingMargin != 1.0 {
		t.Errorf("recommend = %+v", s.Recommend)
	}
	if s.Feature.MaxFeatures != 5000 || s.Cache.Backend != "memory" || s.Cache.TTL != 10*time.Minute {
		t.Errorf("feature/cache = %+v %+v", s.Feature, s.Cache)
	}
	if s.Feedback.Enabled() {
		t.Errorf("feedback enabled by default: %+v", s.Feedback)
	}
}

func TestLoadSettings_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movierec.yaml")
	data := []byte(`
server:
  addr: ":8080"
catalog:
  path: /data/movies.csv
recommend:
  default_count: 20
  rating_margin: 0.5
cache:
  ttl: 30s
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MOVIEREC_RECOMMEND__DEFAULT_COUNT", "15")
	t.Setenv("MOVIEREC_SERVER__CORS_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("MOVIEREC_LOG__LEVEL", "debug")
	t.Setenv("MOVIEREC_FEEDBACK__BROKERS", "k1:9092,k2:9092")

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	tests := []struct {
		name string
		got  any
		want any
	}{
		{name: "file overrides default", got: s.Server.Addr, want: ":8080"},
		{name: "file path", got: s.Catalog.Path, want: "/data/movies.csv"},
		{name: "env overrides file", got: s.Recommend.DefaultCount, want: 15},
		{name: "file float", got: s.Recommend.RatingMargin, want: 0.5},
		{name: "file duration", got: s.Cache.TTL, want: 30 * time.Second},
		{name: "env slice", got: s.Server.CORSOrigins, want: []string{"http://a.example", "http://b.example"}},
		{name: "env string", got: s.Log.Level, want: "debug"},
		{name: "default kept", got: s.Recommend.HistorySize, want: 50},
		{name: "feedback brokers", got: s.Feedback.Brokers, want: []string{"k1:9092", "k2:9092"}},
		{name: "feedback enabled", got: s.Feedback.Enabled(), want: true},
		{name: "feedback topic default", got: s.Feedback.Topic, want: "movierec.views"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown cache backend", env: map[string]string{"MOVIEREC_CACHE__BACKEND": "memcached"}},
		{name: "negative breaker timeout", env: map[string]string{"MOVIEREC_CACHE__BREAKER_TIMEOUT": "-1s"}},
		{name: "zero default count", env: map[string]string{"MOVIEREC_RECOMMEND__DEFAULT_COUNT": "0"}},
		{name: "unknown catalog source", env: map[string]string{"MOVIEREC_CATALOG__SOURCE": "s3"}},
		{name: "unknown compression", env: map[string]string{"MOVIEREC_FEEDBACK__COMPRESSION": "brotli"}},
		{name: "redis without addr", env: map[string]string{"MOVIEREC_CACHE__BACKEND": "redis", "MOVIEREC_REDIS__ADDR": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConfigPathEnvVar, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadSettings(""); err == nil {
				t.Errorf("LoadSettings() error = nil, want validation error")
			}
		})
	}
}

func TestLoadSettings_MissingFile(t *testing.T) {
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Errorf("LoadSettings(absent) error = nil, want error")
	}
}
