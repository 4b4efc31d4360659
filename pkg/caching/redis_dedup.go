package caching

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"uof-sdk/pkg/common"
)

// RedisDedupStore 基于 Redis SETNX 的去重存储，可在多个进程间共享
type RedisDedupStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDedupStore 解析 URL 并检查连接
func NewRedisDedupStore(ctx context.Context, logger common.Logger, url, prefix string, ttl time.Duration) (*RedisDedupStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	logger.Info("[Dedup] Connected to redis %s", opts.Addr)
	return NewRedisDedupStoreWithClient(client, prefix, ttl), nil
}

// NewRedisDedupStoreWithClient 使用已有客户端
func NewRedisDedupStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisDedupStore {
	return &RedisDedupStore{client: client, prefix: prefix, ttl: ttl}
}

// TryAdd 实现 DedupStore
func (r *RedisDedupStore) TryAdd(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+key, 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: setnx %s: %w", key, err)
	}
	return ok, nil
}

// Close 关闭客户端
func (r *RedisDedupStore) Close() error {
	return r.client.Close()
}
