// Package config 提供服务配置加载与 Pipeline Node 注册表。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix 环境变量前缀，层级用双下划线分隔：MOVIEREC_SERVER__ADDR -> server.addr
const EnvPrefix = "MOVIEREC_"

// ConfigPathEnvVar 指定配置文件路径的环境变量
const ConfigPathEnvVar = "MOVIEREC_CONFIG"

// Settings 是服务的全部配置项。
// 优先级：环境变量 > 配置文件 > 默认值。
type Settings struct {
	Server    ServerSettings    `koanf:"server"`
	Catalog   CatalogSettings   `koanf:"catalog"`
	Feature   FeatureSettings   `koanf:"feature"`
	Recommend RecommendSettings `koanf:"recommend"`
	Cache     CacheSettings     `koanf:"cache"`
	Redis     RedisSettings     `koanf:"redis"`
	Feedback  FeedbackSettings  `koanf:"feedback"`
	Log       LogSettings       `koanf:"log"`
}

type ServerSettings struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	RateLimit       int           `koanf:"rate_limit" validate:"gte=0"` // 每 IP 每分钟请求数，0 表示不限流
	CORSOrigins     []string      `koanf:"cors_origins"`
}

type CatalogSettings struct {
	Source   string `koanf:"source" validate:"oneof=csv store"`
	Path     string `koanf:"path" validate:"required_if=Source csv"`
	StoreKey string `koanf:"store_key" validate:"required_if=Source store"`
}

type FeatureSettings struct {
	MaxFeatures    int      `koanf:"max_features" validate:"gt=0"`
	ExtraStopWords []string `koanf:"extra_stop_words"`
}

type RecommendSettings struct {
	DefaultCount      int     `koanf:"default_count" validate:"gt=0"`
	HistorySize       int     `koanf:"history_size" validate:"gt=0"`
	RatingMargin      float64 `koanf:"rating_margin" validate:"gte=0"`
	CandidateFilter   string  `koanf:"candidate_filter"`
	SimilarityWorkers int     `koanf:"similarity_workers" validate:"gte=0"` // 0 表示 GOMAXPROCS
	PipelinesPath     string  `koanf:"pipelines_path"`
}

type CacheSettings struct {
	Backend    string        `koanf:"backend" validate:"oneof=memory redis badger none"`
	TTL        time.Duration `koanf:"ttl" validate:"gte=0"`
	BadgerPath string        `koanf:"badger_path"` // 为空时 badger 使用纯内存模式
	// Redis 连续失败 BreakerFailures 次后熔断 BreakerTimeout
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"gte=0"`
}

type RedisSettings struct {
	Addr string `koanf:"addr"`
	DB   int    `koanf:"db" validate:"gte=0"`
}

// FeedbackSettings 浏览事件外发，Brokers 为空时不启用
type FeedbackSettings struct {
	Brokers       []string      `koanf:"brokers"`
	Topic         string        `koanf:"topic" validate:"required_with=Brokers"`
	BatchSize     int           `koanf:"batch_size" validate:"gte=0"`
	FlushInterval time.Duration `koanf:"flush_interval" validate:"gte=0"`
	Compression   string        `koanf:"compression" validate:"omitempty,oneof=gzip snappy lz4 zstd"`
}

// Enabled 是否配置了 Kafka
func (f FeedbackSettings) Enabled() bool { return len(f.Brokers) > 0 }

type LogSettings struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// DefaultSettings 返回默认配置
func DefaultSettings() *Settings {
	return &Settings{
		Server: ServerSettings{
			Addr:            ":5000",
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Catalog: CatalogSettings{
			Source:   "csv",
			Path:     "dataset.csv",
			StoreKey: "catalog:movies",
		},
		Feature: FeatureSettings{
			MaxFeatures: 5000,
		},
		Recommend: RecommendSettings{
			DefaultCount: 10,
			HistorySize:  50,
			RatingMargin: 1.0,
		},
		Cache: CacheSettings{
			Backend:         "memory",
			TTL:             10 * time.Minute,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Redis: RedisSettings{
			Addr: "127.0.0.1:6379",
		},
		Feedback: FeedbackSettings{
			Topic:         "movierec.views",
			BatchSize:     100,
			FlushInterval: time.Second,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "json",
		},
	}
}

// 从环境变量读取时按逗号拆分的列表项
var sliceKeys = []string{
	"server.cors_origins",
	"feature.extra_stop_words",
	"feedback.brokers",
}

// LoadSettings 按 默认值 -> 配置文件 -> 环境变量 的顺序加载配置并校验。
// path 为空时读取 MOVIEREC_CONFIG 指定的文件，都没有时跳过文件层。
func LoadSettings(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultSettings(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := splitSliceKeys(k); err != nil {
		return nil, err
	}

	s := &Settings{}
	if err := k.Unmarshal("", s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// envKey 把 MOVIEREC_RECOMMEND__DEFAULT_COUNT 转换为 recommend.default_count
func envKey(key string) string {
	if key == ConfigPathEnvVar {
		return ""
	}
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

func splitSliceKeys(k *koanf.Koanf) error {
	for _, path := range sliceKeys {
		raw, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := make([]string, 0)
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

var validate = validator.New()

// Validate 校验配置项
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if s.Cache.Backend == "redis" || s.Catalog.Source == "store" {
		if s.Redis.Addr == "" {
			return fmt.Errorf("invalid settings: redis.addr required for cache.backend=%s catalog.source=%s", s.Cache.Backend, s.Catalog.Source)
		}
	}
	return nil
}
