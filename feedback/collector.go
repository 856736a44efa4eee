// Package feedback 把浏览事件异步投递到外部系统（Kafka），供离线训练与分析使用。
package feedback

import (
	"context"
	"time"
)

// EventType 事件类型
type EventType string

const (
	EventTypeView EventType = "view" // 浏览
)

// Event 浏览事件
type Event struct {
	UserID    string    `json:"user_id"`
	MovieID   int64     `json:"movie_id"`
	Type      EventType `json:"type"`
	Added     bool      `json:"added"`     // 是否为新的历史记录
	Timestamp int64     `json:"timestamp"` // Unix 秒
}

// Collector 事件收集器（异步非阻塞）
type Collector interface {
	// RecordView 记录一次浏览，不等待投递完成
	RecordView(ctx context.Context, userID string, movieID int64, added bool) error

	// Close 投递剩余事件后关闭
	Close() error
}

// NopCollector 丢弃所有事件
type NopCollector struct{}

func (NopCollector) RecordView(context.Context, string, int64, bool) error { return nil }

func (NopCollector) Close() error { return nil }

func newViewEvent(userID string, movieID int64, added bool, now time.Time) *Event {
	return &Event{
		UserID:    userID,
		MovieID:   movieID,
		Type:      EventTypeView,
		Added:     added,
		Timestamp: now.Unix(),
	}
}
