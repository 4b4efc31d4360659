package feed

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"

	"uof-sdk/pkg/models"
	"uof-sdk/pkg/producer"
)

// ProducerObserver 生产者状态变化通知
type ProducerObserver interface {
	OnProducerDown(p producer.Producer, reason string)
	OnProducerUp(p producer.Producer)
}

// producerStates 在可用状态变化时通知观察者
type producerStates struct {
	*producer.Registry

	mu        sync.RWMutex
	observers []ProducerObserver
}

func (s *producerStates) addObserver(o ProducerObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// SetAvailable 实现 ingestion.ProducerStateUpdater
func (s *producerStates) SetAvailable(id int, available bool) error {
	before, known := s.Get(id)
	if err := s.Registry.SetAvailable(id, available); err != nil {
		return err
	}
	if !known || before.IsAvailable == available {
		return nil
	}
	after, _ := s.Get(id)
	if available {
		s.up(after)
	} else {
		s.down(after, "recovery requested")
	}
	return nil
}

func (s *producerStates) each(call func(ProducerObserver)) {
	s.mu.RLock()
	observers := append([]ProducerObserver(nil), s.observers...)
	s.mu.RUnlock()
	for _, o := range observers {
		var pc panics.Catcher
		pc.Try(func() { call(o) })
	}
}

func (s *producerStates) up(p producer.Producer) {
	s.each(func(o ProducerObserver) { o.OnProducerUp(p) })
}

func (s *producerStates) down(p producer.Producer, reason string) {
	s.each(func(o ProducerObserver) { o.OnProducerDown(p, reason) })
}

// aliveListener 在生产者过滤之前处理 alive 消息
// 不可用的生产者收到 subscribed=1 的 alive 后发起恢复
type aliveListener struct {
	feed *Feed
}

func (l *aliveListener) OnRawMessageReceived(routingKey string, msg models.FeedMessage, sessionName string) {
	alive, ok := msg.(*models.Alive)
	if !ok {
		return
	}
	f := l.feed
	before, known := f.producers.Get(alive.Product)
	if !known || before.IsDisabled {
		return
	}

	after, _ := f.producers.MarkAlive(alive.Product, alive.GeneratedAt(), alive.Subscribed == 1)
	if alive.Subscribed != 1 {
		if before.IsAvailable {
			f.states.down(after, "subscribed=0")
		}
		return
	}
	if !after.IsAvailable {
		f.recover(after, before.LastAlive)
	}
}

func (l *aliveListener) OnMessageReceived(models.FeedMessage, []byte) {}

func (l *aliveListener) OnDeserializationFailed([]byte, error) {}

// recover 未启用自动恢复时直接恢复可用
func (f *Feed) recover(p producer.Producer, since time.Time) {
	if f.recovery == nil {
		if err := f.states.SetAvailable(p.ID, true); err != nil {
			f.logger.Warn("[Feed] Failed to mark producer %d available: %v", p.ID, err)
		}
		return
	}
	f.workers.Go(func() {
		ctx, cancel := context.WithTimeout(f.ctx, 30*time.Second)
		defer cancel()
		if _, err := f.recovery.RequestRecovery(ctx, p.ID, since); err != nil {
			f.logger.Warn("[Feed] Recovery request for producer %d failed: %v", p.ID, err)
		}
	})
}

// monitorProducers 定期将超时未收到 alive 的生产者标记为不可用
func (f *Feed) monitorProducers(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range f.producers.CheckInactive(f.cfg.MaxInactivity) {
				if p, ok := f.producers.Get(id); ok {
					f.states.down(p, "alive timeout")
				}
			}
		}
	}
}
