package processing

import (
	"context"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/panics"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/entities"
	"uof-sdk/pkg/metrics"
	"uof-sdk/pkg/models"
	"uof-sdk/pkg/urn"
)

// Dispatcher 按注册顺序同步调用订阅者
// 单个订阅者返回错误或 panic 只记录日志，不影响后续订阅者
type Dispatcher struct {
	logger      common.Logger
	subscribers []Subscriber
	mu          sync.RWMutex
}

// Subscriber 订阅者
type Subscriber struct {
	ID      string
	Filter  SubscriptionFilter
	Handler MessageHandler
}

// SubscriptionFilter 订阅过滤器，空字段不过滤
type SubscriptionFilter struct {
	Kinds    []models.MessageKind
	SportIDs []urn.URN
	EventIDs []urn.URN
}

// MessageHandler 消息处理函数
type MessageHandler func(ctx context.Context, msg entities.Message) error

// NewDispatcher 创建分发器
func NewDispatcher(logger common.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Subscribe 添加订阅者，ID 不可重复
func (d *Dispatcher) Subscribe(sub Subscriber) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range d.subscribers {
		if s.ID == sub.ID {
			return fmt.Errorf("subscriber %s already exists: %w", sub.ID, common.ErrInvalidInput)
		}
	}
	d.subscribers = append(d.subscribers, sub)
	d.logger.Info("[Dispatcher] Subscriber added: %s (total: %d)", sub.ID, len(d.subscribers))
	return nil
}

// Unsubscribe 移除订阅者
func (d *Dispatcher) Unsubscribe(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, s := range d.subscribers {
		if s.ID == id {
			d.subscribers = append(d.subscribers[:i:i], d.subscribers[i+1:]...)
			d.logger.Info("[Dispatcher] Subscriber removed: %s (total: %d)", id, len(d.subscribers))
			return nil
		}
	}
	return fmt.Errorf("subscriber %s: %w", id, common.ErrNotFound)
}

// Dispatch 分发消息，返回调用的订阅者数量
func (d *Dispatcher) Dispatch(ctx context.Context, msg entities.Message) int {
	d.mu.RLock()
	subs := append([]Subscriber(nil), d.subscribers...)
	d.mu.RUnlock()

	dispatched := 0
	for _, sub := range subs {
		if !sub.Filter.matches(msg) {
			continue
		}
		dispatched++

		var pc panics.Catcher
		var err error
		pc.Try(func() { err = sub.Handler(ctx, msg) })
		if rec := pc.Recovered(); rec != nil {
			d.logger.Error("[Dispatcher] Subscriber %s panicked on %s: %v", sub.ID, msg.Kind(), rec.Value)
			continue
		}
		if err != nil {
			d.logger.Error("[Dispatcher] Subscriber %s failed on %s: %v", sub.ID, msg.Kind(), err)
		}
	}
	if dispatched > 0 {
		metrics.MessagesDispatched.WithLabelValues(string(msg.Kind())).Inc()
	}
	return dispatched
}

// SubscriberCount 订阅者数量
func (d *Dispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

func (f SubscriptionFilter) matches(msg entities.Message) bool {
	if len(f.Kinds) > 0 && !containsKind(f.Kinds, msg.Kind()) {
		return false
	}
	if len(f.SportIDs) == 0 && len(f.EventIDs) == 0 {
		return true
	}

	event, ok := entities.EventOf(msg)
	if !ok {
		return false
	}
	if len(f.EventIDs) > 0 && !containsURN(f.EventIDs, event.ID) {
		return false
	}
	if len(f.SportIDs) > 0 && (event.SportID == nil || !containsURN(f.SportIDs, *event.SportID)) {
		return false
	}
	return true
}

func containsKind(kinds []models.MessageKind, k models.MessageKind) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}

func containsURN(ids []urn.URN, id urn.URN) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
