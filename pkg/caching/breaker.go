package caching

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"uof-sdk/pkg/common"
)

// BreakerProvider 为市场描述查询加熔断，未找到不计为失败
type BreakerProvider struct {
	next    MarketDescriptionProvider
	breaker *gobreaker.CircuitBreaker[*MarketDescription]
}

// NewBreakerProvider 包装市场描述提供者
func NewBreakerProvider(logger common.Logger, name string, next MarketDescriptionProvider) *BreakerProvider {
	cb := gobreaker.NewCircuitBreaker[*MarketDescription](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsNotFound(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[MarketDesc] Circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return &BreakerProvider{next: next, breaker: cb}
}

// GetMarketDescription 熔断打开时直接返回 gobreaker.ErrOpenState
func (b *BreakerProvider) GetMarketDescription(ctx context.Context, marketID int, specifiers map[string]string, cultures []string, useCache bool) (*MarketDescription, error) {
	return b.breaker.Execute(func() (*MarketDescription, error) {
		return b.next.GetMarketDescription(ctx, marketID, specifiers, cultures, useCache)
	})
}

// State 当前熔断状态
func (b *BreakerProvider) State() gobreaker.State {
	return b.breaker.State()
}
