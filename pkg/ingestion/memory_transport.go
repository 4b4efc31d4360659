package ingestion

import (
	"sync"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/routing"
)

// MemoryExchange 进程内的 topic exchange，按 AMQP 规则路由，用于测试和回放
type MemoryExchange struct {
	logger     common.Logger
	transports []*MemoryTransport
	mu         sync.RWMutex
}

// NewMemoryExchange 创建内存 exchange
func NewMemoryExchange(logger common.Logger) *MemoryExchange {
	return &MemoryExchange{logger: logger}
}

// NewTransport 创建连接到该 exchange 的传输层
func (e *MemoryExchange) NewTransport() *MemoryTransport {
	t := &MemoryTransport{exchange: e}
	e.mu.Lock()
	e.transports = append(e.transports, t)
	e.mu.Unlock()
	return t
}

// Publish 将消息同步投递给所有匹配的已打开传输层，返回投递次数
func (e *MemoryExchange) Publish(routingKey string, body []byte, headers map[string]interface{}) int {
	e.mu.RLock()
	targets := make([]*MemoryTransport, 0, len(e.transports))
	for _, t := range e.transports {
		if t.matches(routingKey) {
			targets = append(targets, t)
		}
	}
	e.mu.RUnlock()

	if len(targets) == 0 {
		e.logger.Debug("[MemoryExchange] No bindings for %s, message dropped", routingKey)
		return 0
	}

	delivered := 0
	for _, t := range targets {
		if t.deliver(Delivery{Body: body, RoutingKey: routingKey, Headers: headers}) {
			delivered++
		}
	}
	return delivered
}

// MemoryTransport 内存传输层
type MemoryTransport struct {
	exchange *MemoryExchange

	mu      sync.RWMutex
	keys    []string
	handler DeliveryHandler
	opened  bool

	// 同一传输层上的投递串行执行
	deliverMu sync.Mutex
}

// Open 实现 MessageTransport
func (t *MemoryTransport) Open(routingKeys []string, handler DeliveryHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.opened {
		return common.ErrAlreadyConnected
	}
	t.keys = append([]string(nil), routingKeys...)
	t.handler = handler
	t.opened = true
	return nil
}

// Close 实现 MessageTransport
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.opened = false
	t.keys = nil
	t.handler = nil
	return nil
}

// IsOpened 实现 MessageTransport
func (t *MemoryTransport) IsOpened() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.opened
}

// RoutingKeys 当前绑定的 routing key
func (t *MemoryTransport) RoutingKeys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.keys...)
}

func (t *MemoryTransport) matches(routingKey string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.opened && routing.MatchesAny(t.keys, routingKey)
}

func (t *MemoryTransport) deliver(d Delivery) bool {
	t.mu.RLock()
	handler := t.handler
	t.mu.RUnlock()
	if handler == nil {
		return false
	}

	t.deliverMu.Lock()
	defer t.deliverMu.Unlock()
	handler(d)
	return true
}
