// Command movierec 启动电影推荐 HTTP 服务。
//
// 配置按 默认值 -> 配置文件(-config 或 MOVIEREC_CONFIG) -> MOVIEREC_* 环境变量 的顺序叠加。
//
//	movierec -config config.yaml
//	movierec -publish-catalog dataset.csv   # 把 CSV 目录写入 Redis 后退出
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rushteam/movierec/api"
	"github.com/rushteam/movierec/catalog"
	"github.com/rushteam/movierec/config"
	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/engine"
	"github.com/rushteam/movierec/feedback"
	"github.com/rushteam/movierec/history"
	"github.com/rushteam/movierec/logging"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/server"
	"github.com/rushteam/movierec/store"
)

func main() {
	configPath := flag.String("config", "", "config file path (yaml)")
	publish := flag.String("publish-catalog", "", "load a CSV catalog, write it to redis under catalog.store_key and exit")
	flag.Parse()

	settings, err := config.LoadSettings(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "movierec: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: settings.Log.Level, Format: settings.Log.Format})
	logger := logging.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *publish != "" {
		err = publishCatalog(ctx, settings, *publish)
	} else {
		err = run(ctx, settings, logger)
	}
	if err != nil {
		logger.Error().Err(err).Msg("exit")
		os.Exit(1)
	}
}

func run(ctx context.Context, s *config.Settings, logger zerolog.Logger) error {
	cache, err := openCache(s)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	src, closeSrc := openSource(s)
	defer closeSrc()

	cfg, err := engineConfig(s)
	if err != nil {
		return err
	}
	eng := engine.New(cfg,
		engine.WithLogger(logging.WithComponent("engine")),
		engine.WithCache(cache),
		engine.WithHistory(history.NewTracker(s.Recommend.HistorySize)),
	)

	collector, err := openFeedback(s)
	if err != nil {
		return err
	}
	defer collector.Close()

	router := api.NewRouter(api.NewHandler(eng, logging.WithComponent("api"), api.WithFeedback(collector)), api.Options{
		CORSOrigins: s.Server.CORSOrigins,
		RateLimit:   s.Server.RateLimit,
	})
	httpServer := &http.Server{
		Addr:              s.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sup := server.New(logging.WithComponent("supervisor"), server.Config{ShutdownTimeout: s.Server.ShutdownTimeout})
	sup.AddBuild(server.NewBuildService(eng, src, logging.WithComponent("build")))
	sup.AddAPI(server.NewHTTPService(httpServer, s.Server.ShutdownTimeout))

	logger.Info().
		Str("addr", s.Server.Addr).
		Str("catalog", src.Name()).
		Str("cache", s.Cache.Backend).
		Msg("movierec starting")

	if err := sup.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info().Msg("movierec stopped")
	return nil
}

func engineConfig(s *config.Settings) (engine.Config, error) {
	cfg := engine.DefaultConfig()
	cfg.DefaultCount = s.Recommend.DefaultCount
	cfg.HistorySize = s.Recommend.HistorySize
	cfg.RatingMargin = s.Recommend.RatingMargin
	cfg.MaxFeatures = s.Feature.MaxFeatures
	cfg.ExtraStopWords = s.Feature.ExtraStopWords
	cfg.SimilarityWorkers = s.Recommend.SimilarityWorkers
	cfg.CandidateFilter = s.Recommend.CandidateFilter
	cfg.CacheTTL = s.Cache.TTL

	if s.Recommend.PipelinesPath != "" {
		p, err := pipeline.LoadFromYAML(s.Recommend.PipelinesPath)
		if err != nil {
			return cfg, fmt.Errorf("load pipelines: %w", err)
		}
		cfg.Pipelines = p
	}
	return cfg, nil
}

// openCache 返回 nil 表示不缓存
func openCache(s *config.Settings) (core.Store, error) {
	switch s.Cache.Backend {
	case "redis":
		// 不做启动 ping，Redis 故障由熔断器和缓存未命中路径吸收
		return store.NewBreakerStore(redisStore(s), store.BreakerConfig{
			FailureThreshold: s.Cache.BreakerFailures,
			Timeout:          s.Cache.BreakerTimeout,
		}, logging.Logger()), nil
	case "badger":
		b, err := store.NewBadgerStore(s.Cache.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("open badger cache: %w", err)
		}
		return b, nil
	case "none":
		return nil, nil
	default:
		return store.NewMemoryStore(), nil
	}
}

func openFeedback(s *config.Settings) (feedback.Collector, error) {
	if !s.Feedback.Enabled() {
		return feedback.NopCollector{}, nil
	}
	return feedback.NewKafkaCollector(feedback.KafkaConfig{
		Brokers:       s.Feedback.Brokers,
		Topic:         s.Feedback.Topic,
		BatchSize:     s.Feedback.BatchSize,
		FlushInterval: s.Feedback.FlushInterval,
		Compression:   s.Feedback.Compression,
	}, logging.Logger())
}

func openSource(s *config.Settings) (catalog.Source, func()) {
	if s.Catalog.Source != "store" {
		return &catalog.CSVSource{Path: s.Catalog.Path}, func() {}
	}
	// 连接失败在 Build 加载目录时暴露，引擎以空目录降级启动
	r := redisStore(s)
	return &catalog.StoreSource{Store: r, Key: s.Catalog.StoreKey}, func() { _ = r.Close() }
}

// redisStore 创建不做连通性检查的 RedisStore
func redisStore(s *config.Settings) *store.RedisStore {
	return store.NewRedisStoreWithClient(redis.NewClient(&redis.Options{
		Addr:        s.Redis.Addr,
		DB:          s.Redis.DB,
		DialTimeout: 2 * time.Second,
	}))
}

func publishCatalog(ctx context.Context, s *config.Settings, path string) error {
	movies, err := (&catalog.CSVSource{Path: path}).Load(ctx)
	if err != nil {
		return err
	}
	r, err := store.NewRedisStore(s.Redis.Addr, s.Redis.DB)
	if err != nil {
		return fmt.Errorf("open redis: %w", err)
	}
	defer r.Close()
	if err := catalog.SaveToStore(ctx, r, s.Catalog.StoreKey, movies); err != nil {
		return err
	}
	logging.Info().Int("movies", len(movies)).Str("key", s.Catalog.StoreKey).Msg("catalog published")
	return nil
}
