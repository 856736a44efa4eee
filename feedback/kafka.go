package feedback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/rushteam/movierec/metrics"
)

// KafkaConfig Kafka 收集器配置
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	BatchSize     int           // 缓冲达到该数量时立即发送，默认 100
	FlushInterval time.Duration // 定时发送间隔，默认 1s
	MaxBuffer     int           // 缓冲上限，超出时丢弃新事件，默认 BatchSize*100
	SendTimeout   time.Duration // 单批发送超时，默认 FlushInterval*10
	ClientID      string
	Compression   string // gzip / snappy / lz4 / zstd，空表示不压缩
}

func (c KafkaConfig) withDefaults() KafkaConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = time.Second
	}
	if c.MaxBuffer <= 0 {
		c.MaxBuffer = c.BatchSize * 100
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = c.FlushInterval * 10
	}
	if c.ClientID == "" {
		c.ClientID = "movierec"
	}
	return c
}

// produceFunc 同步发送一批记录，生产环境为 kgo.Client.ProduceSync
type produceFunc func(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults

// KafkaCollector 批量缓冲事件并按用户 ID 分区发送到 Kafka
type KafkaCollector struct {
	topic         string
	batchSize     int
	maxBuffer     int
	flushInterval time.Duration
	sendTimeout   time.Duration
	produce       produceFunc
	closeClient   func()
	logger        zerolog.Logger

	mu        sync.Mutex
	buffer    []*Event
	closed    bool
	closeOnce sync.Once
	wg        sync.WaitGroup
	flushCh   chan struct{} // 缓冲满时通知 flushLoop，容量 1
	stopCh    chan struct{}
}

// NewKafkaCollector 创建 Kafka 收集器并启动定时发送
func NewKafkaCollector(cfg KafkaConfig, logger zerolog.Logger) (*KafkaCollector, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("feedback: no kafka brokers")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("feedback: empty kafka topic")
	}
	cfg = cfg.withDefaults()

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.LeaderAck()),
		kgo.DisableIdempotentWrite(),
		kgo.RecordDeliveryTimeout(cfg.SendTimeout),
	}
	switch cfg.Compression {
	case "gzip":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.GzipCompression()))
	case "snappy":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.SnappyCompression()))
	case "lz4":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.Lz4Compression()))
	case "zstd":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.ZstdCompression()))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("feedback: kafka client: %w", err)
	}
	return newKafkaCollector(cfg, client.ProduceSync, client.Close, logger), nil
}

func newKafkaCollector(cfg KafkaConfig, produce produceFunc, closeClient func(), logger zerolog.Logger) *KafkaCollector {
	cfg = cfg.withDefaults()
	c := &KafkaCollector{
		topic:         cfg.Topic,
		batchSize:     cfg.BatchSize,
		maxBuffer:     cfg.MaxBuffer,
		flushInterval: cfg.FlushInterval,
		sendTimeout:   cfg.SendTimeout,
		produce:       produce,
		closeClient:   closeClient,
		logger:        logger.With().Str("component", "feedback").Str("topic", cfg.Topic).Logger(),
		buffer:        make([]*Event, 0, cfg.BatchSize),
		flushCh:       make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
	}
	c.wg.Add(1)
	go c.flushLoop()
	return c
}

// RecordView 写入缓冲，关闭后调用被忽略
func (c *KafkaCollector) RecordView(_ context.Context, userID string, movieID int64, added bool) error {
	ev := newViewEvent(userID, movieID, added, time.Now())

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if len(c.buffer) >= c.maxBuffer {
		c.mu.Unlock()
		metrics.FeedbackEvents.WithLabelValues("dropped").Inc()
		return nil
	}
	c.buffer = append(c.buffer, ev)
	full := len(c.buffer) >= c.batchSize
	c.mu.Unlock()

	if full {
		// 已有待处理的通知时不再重复发送
		select {
		case c.flushCh <- struct{}{}:
		default:
		}
	}
	return nil
}

func (c *KafkaCollector) flushLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.flushCh:
			c.flush()
		case <-c.stopCh:
			return
		}
	}
}

// flush 取出当前缓冲并同步发送，超过 sendTimeout 或发送失败的事件不重试。
// 只在 flushLoop 和 Close 中调用，二者不会并发。
func (c *KafkaCollector) flush() {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	events := c.buffer
	c.buffer = make([]*Event, 0, c.batchSize)
	c.mu.Unlock()

	records := make([]*kgo.Record, 0, len(events))
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			metrics.FeedbackEvents.WithLabelValues("failed").Inc()
			continue
		}
		// 同一用户的事件落在同一分区，保持顺序
		records = append(records, &kgo.Record{Topic: c.topic, Key: []byte(ev.UserID), Value: data})
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.sendTimeout)
	defer cancel()

	failed := 0
	var firstErr error
	for _, r := range c.produce(ctx, records...) {
		if r.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.Err
			}
		}
	}
	metrics.FeedbackEvents.WithLabelValues("published").Add(float64(len(records) - failed))
	if failed > 0 {
		metrics.FeedbackEvents.WithLabelValues("failed").Add(float64(failed))
		c.logger.Warn().Err(firstErr).Int("failed", failed).Int("batch", len(records)).Msg("feedback publish failed")
	}
}

// Close 停止定时发送，发送剩余缓冲后关闭客户端
func (c *KafkaCollector) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.stopCh)
		c.wg.Wait()
		c.flush()
		if c.closeClient != nil {
			c.closeClient()
		}
	})
	return nil
}
