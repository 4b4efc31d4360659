package caching

import (
	"strconv"
	"sync"
)

// NamedValueCache 可扩展的枚举值集合
type NamedValueCache struct {
	name   string
	values map[int]string
	mu     sync.RWMutex
}

// NewNamedValueCache 创建枚举集合
func NewNamedValueCache(name string, values map[int]string) *NamedValueCache {
	c := &NamedValueCache{name: name, values: make(map[int]string, len(values))}
	for k, v := range values {
		c.values[k] = v
	}
	return c
}

// IsValueDefined 值是否已知
func (c *NamedValueCache) IsValueDefined(id int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.values[id]
	return ok
}

// Description 值的描述
func (c *NamedValueCache) Description(id int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.values[id]
	return d, ok
}

// Add 添加或覆盖一个值
func (c *NamedValueCache) Add(id int, description string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[id] = description
}

// Name 集合名称
func (c *NamedValueCache) Name() string {
	return c.name
}

// NamedValuesProvider 校验所需的枚举集合
type NamedValuesProvider struct {
	VoidReasons       *NamedValueCache
	BetStopReasons    *NamedValueCache
	BettingStatuses   *NamedValueCache
	OddsChangeReasons *NamedValueCache
}

// DefaultNamedValues 内置的枚举集合
func DefaultNamedValues() *NamedValuesProvider {
	return &NamedValuesProvider{
		VoidReasons:       NewNamedValueCache("void_reasons", numbered(0, 24, "void reason")),
		BetStopReasons:    NewNamedValueCache("betstop_reasons", numbered(0, 87, "betstop reason")),
		BettingStatuses:   NewNamedValueCache("betting_statuses", numbered(0, 4, "betting status")),
		OddsChangeReasons: NewNamedValueCache("odds_change_reasons", map[int]string{0: "normal", 1: "risk adjustment"}),
	}
}

func numbered(from, to int, prefix string) map[int]string {
	out := make(map[int]string, to-from+1)
	for i := from; i <= to; i++ {
		out[i] = prefix + " " + strconv.Itoa(i)
	}
	return out
}
