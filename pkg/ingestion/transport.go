package ingestion

import (
	"strconv"
)

// HeaderTimestamp 消息发送时间头 (epoch ms)
const HeaderTimestamp = "timestamp_in_ms"

// Delivery 传输层投递的一条原始消息
type Delivery struct {
	Body       []byte
	RoutingKey string
	Headers    map[string]interface{}
}

// DeliveryHandler 投递回调，同一通道上的投递按顺序串行调用
type DeliveryHandler func(Delivery)

// MessageTransport 消息传输层
type MessageTransport interface {
	// Open 绑定 routing key 并开始投递，已打开时返回 common.ErrAlreadyConnected
	Open(routingKeys []string, handler DeliveryHandler) error
	// Close 解绑并释放通道
	Close() error
	IsOpened() bool
}

// HeaderInt64 读取整数类型的消息头
func (d Delivery) HeaderInt64(name string) (int64, bool) {
	v, ok := d.Headers[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		return parsed, err == nil
	case []byte:
		parsed, err := strconv.ParseInt(string(n), 10, 64)
		return parsed, err == nil
	}
	return 0, false
}
