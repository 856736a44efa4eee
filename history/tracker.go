// Package history 维护每个用户最近浏览的电影列表（仅内存，进程重启后丢失）。
package history

import (
	"hash/fnv"
	"slices"
	"sync"

	"github.com/rushteam/movierec/core"
)

// DefaultLimit 每个用户保留的历史条数
const DefaultLimit = 50

const shardCount = 32

type shard struct {
	mu    sync.RWMutex
	users map[string][]int64
}

// Tracker 记录用户浏览历史。
//
// 同一用户的写入在分片锁内串行执行，不同分片的用户互不阻塞。
// 已存在的 ID 不会重复追加，也不会移动位置；超过上限时丢弃最早的记录。
type Tracker struct {
	limit  int
	shards [shardCount]*shard
}

// NewTracker 创建 Tracker，limit <= 0 时使用 DefaultLimit。
func NewTracker(limit int) *Tracker {
	if limit <= 0 {
		limit = DefaultLimit
	}
	t := &Tracker{limit: limit}
	for i := range t.shards {
		t.shards[i] = &shard{users: make(map[string][]int64)}
	}
	return t
}

func (t *Tracker) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return t.shards[h.Sum32()%shardCount]
}

// RecordView 记录一次浏览，不校验 movieID 是否存在于目录中。
// 返回 false 表示该 ID 已在历史中（未做任何修改）。
func (t *Tracker) RecordView(userID string, movieID int64) bool {
	s := t.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.users[userID]
	if slices.Contains(h, movieID) {
		return false
	}
	h = append(h, movieID)
	if len(h) > t.limit {
		// 复制到新切片，释放被丢弃部分的底层数组
		h = append([]int64(nil), h[len(h)-t.limit:]...)
	}
	s.users[userID] = h
	return true
}

// GetHistory 返回用户历史的副本（最近的在最后），未知用户返回空切片。
func (t *Tracker) GetHistory(userID string) []int64 {
	s := t.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int64{}, s.users[userID]...)
}

// Users 返回当前有历史记录的用户数
func (t *Tracker) Users() int {
	n := 0
	for _, s := range t.shards {
		s.mu.RLock()
		n += len(s.users)
		s.mu.RUnlock()
	}
	return n
}

var _ core.HistoryReader = (*Tracker)(nil)
