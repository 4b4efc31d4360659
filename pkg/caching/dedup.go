package caching

import (
	"context"
	"sync"
	"time"
)

// DedupStore 支持并发 insert-if-absent 的去重存储
type DedupStore interface {
	// TryAdd 插入 key，已存在时返回 false
	TryAdd(ctx context.Context, key string) (bool, error)
}

// DefaultDedupTTL 默认去重时长
const DefaultDedupTTL = 20 * time.Minute

// TTLCache 带过期时间的内存去重缓存
type TTLCache struct {
	entries map[string]time.Time
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewTTLCache 创建去重缓存并启动清理协程，使用完毕后调用 Close
func NewTTLCache(ttl time.Duration) *TTLCache {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	c := &TTLCache{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.cleanupLoop(cleanupInterval(ttl))
	return c
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl < time.Minute {
		return ttl
	}
	return time.Minute
}

// TryAdd 实现 DedupStore
func (c *TTLCache) TryAdd(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if expiresAt, ok := c.entries[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	c.entries[key] = now.Add(c.ttl)
	return true, nil
}

// Size 当前条目数 (含未清理的过期条目)
func (c *TTLCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close 停止清理协程
func (c *TTLCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *TTLCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *TTLCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, expiresAt := range c.entries {
		if !now.Before(expiresAt) {
			delete(c.entries, key)
		}
	}
}
