package ingestion

import (
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/metrics"
	"uof-sdk/pkg/models"
	"uof-sdk/pkg/producer"
	"uof-sdk/pkg/routing"
)

// Listener 接收器事件的观察者
// 同一接收器的观察者按注册顺序依次调用，单个观察者 panic 不影响其他观察者
type Listener interface {
	OnMessageReceived(msg models.FeedMessage, raw []byte)
	OnRawMessageReceived(routingKey string, msg models.FeedMessage, sessionName string)
	OnDeserializationFailed(raw []byte, err error)
}

// ListenerFuncs 函数适配器，未设置的回调忽略
type ListenerFuncs struct {
	MessageReceived       func(msg models.FeedMessage, raw []byte)
	RawMessageReceived    func(routingKey string, msg models.FeedMessage, sessionName string)
	DeserializationFailed func(raw []byte, err error)
}

func (f ListenerFuncs) OnMessageReceived(msg models.FeedMessage, raw []byte) {
	if f.MessageReceived != nil {
		f.MessageReceived(msg, raw)
	}
}

func (f ListenerFuncs) OnRawMessageReceived(routingKey string, msg models.FeedMessage, sessionName string) {
	if f.RawMessageReceived != nil {
		f.RawMessageReceived(routingKey, msg, sessionName)
	}
}

func (f ListenerFuncs) OnDeserializationFailed(raw []byte, err error) {
	if f.DeserializationFailed != nil {
		f.DeserializationFailed(raw, err)
	}
}

// Receiver 封装传输层：反序列化、打时间戳、解析 sport id、按生产者过滤
type Receiver struct {
	name      string
	transport MessageTransport
	producers producer.Manager
	replay    bool
	logger    common.Logger
	now       func() time.Time

	mu        sync.RWMutex
	opened    bool
	interest  routing.MessageInterest
	listeners []Listener
}

// NewReceiver 创建接收器，replay 模式下不检查生产者可用状态
func NewReceiver(name string, transport MessageTransport, producers producer.Manager, replay bool, logger common.Logger) *Receiver {
	return &Receiver{
		name:      name,
		transport: transport,
		producers: producers,
		replay:    replay,
		logger:    logger,
		now:       time.Now,
	}
}

// Name 会话名称
func (r *Receiver) Name() string { return r.name }

// AddListener 注册观察者
func (r *Receiver) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Open 绑定 routing key 并开始接收
func (r *Receiver) Open(interest routing.MessageInterest, routingKeys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opened {
		return fmt.Errorf("receiver %s: %w", r.name, common.ErrAlreadyConnected)
	}
	if err := r.transport.Open(routingKeys, r.handleDelivery); err != nil {
		return fmt.Errorf("receiver %s: open transport: %w", r.name, err)
	}
	r.opened = true
	r.interest = interest
	r.logger.Info("[Receiver] Session %s opened (interest=%s, %d routing keys)", r.name, interest, len(routingKeys))
	return nil
}

// Close 关闭传输层
func (r *Receiver) Close() error {
	r.mu.Lock()
	if !r.opened {
		r.mu.Unlock()
		return nil
	}
	r.opened = false
	r.mu.Unlock()

	if err := r.transport.Close(); err != nil {
		return fmt.Errorf("receiver %s: close transport: %w", r.name, err)
	}
	r.logger.Info("[Receiver] Session %s closed", r.name)
	return nil
}

// IsOpened 是否已打开
func (r *Receiver) IsOpened() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.opened
}

// Interest 会话订阅范围
func (r *Receiver) Interest() routing.MessageInterest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.interest
}

// handleDelivery 传输层回调，任何情况下都不向外抛出 panic
func (r *Receiver) handleDelivery(d Delivery) {
	var pc panics.Catcher
	pc.Try(func() { r.process(d) })
	if rec := pc.Recovered(); rec != nil {
		r.logger.Error("[Receiver] Session %s: panic while handling %s: %v", r.name, d.RoutingKey, rec.Value)
	}
}

func (r *Receiver) process(d Delivery) {
	if len(d.Body) == 0 {
		r.logger.Warn("[Receiver] Session %s: empty message body on %s, dropped", r.name, d.RoutingKey)
		metrics.MessagesDropped.WithLabelValues(metrics.DropEmptyBody).Inc()
		return
	}

	msg, err := models.Deserialize(d.Body)
	if err != nil {
		r.logger.Warn("[Receiver] Session %s: failed to deserialize message on %s: %v", r.name, d.RoutingKey, err)
		metrics.DeserializationFailures.Inc()
		r.notify(func(l Listener) { l.OnDeserializationFailed(d.Body, err) })
		return
	}

	base := msg.Base()
	base.ReceivedAt = r.now().UnixMilli()
	if sent, ok := d.HeaderInt64(HeaderTimestamp); ok {
		base.SentAt = sent
	} else {
		base.SentAt = base.GeneratedAt()
	}
	metrics.MessagesReceived.WithLabelValues(string(msg.Kind())).Inc()

	r.notify(func(l Listener) { l.OnRawMessageReceived(d.RoutingKey, msg, r.name) })

	p, ok := r.producers.Get(base.Product)
	if !ok {
		metrics.MessagesDropped.WithLabelValues(metrics.DropUnknownProducer).Inc()
		return
	}
	if !r.replay && (!p.IsAvailable || p.IsDisabled) {
		r.logger.Debug("[Receiver] Session %s: producer %d unavailable or disabled, %s dropped", r.name, p.ID, msg.Kind())
		metrics.MessagesDropped.WithLabelValues(metrics.DropProducerUnavailable).Inc()
		return
	}

	if msg.IsEventRelated() {
		sport, err := routing.GetSportID(d.RoutingKey, string(msg.Kind()))
		if err != nil {
			r.logger.Warn("[Receiver] Session %s: %v", r.name, err)
		} else {
			base.SportID = &sport
		}
	}

	r.notify(func(l Listener) { l.OnMessageReceived(msg, d.Body) })
}

// notify 依次调用观察者，每次调用单独捕获 panic
func (r *Receiver) notify(call func(Listener)) {
	r.mu.RLock()
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.RUnlock()

	for i, l := range listeners {
		var pc panics.Catcher
		pc.Try(func() { call(l) })
		if rec := pc.Recovered(); rec != nil {
			r.logger.Error("[Receiver] Session %s: listener %d panicked: %v", r.name, i, rec.Value)
		}
	}
}
