package producer

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"uof-sdk/pkg/common"
)

// DefaultMaxInactivity 超过该时间未收到 alive 视为下线
const DefaultMaxInactivity = 20 * time.Second

// Registry 线程安全的生产者注册表
type Registry struct {
	logger    common.Logger
	producers map[int]*Producer
	mu        sync.RWMutex
	now       func() time.Time
}

// NewRegistry 创建注册表，初始生产者默认可用
func NewRegistry(logger common.Logger, producers []Producer) *Registry {
	r := &Registry{
		logger:    logger,
		producers: make(map[int]*Producer, len(producers)),
		now:       time.Now,
	}
	for _, p := range producers {
		p := p
		p.IsAvailable = true
		r.producers[p.ID] = &p
	}
	return r
}

// Exists 是否已注册
func (r *Registry) Exists(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.producers[id]
	return ok
}

// Get 返回生产者副本
func (r *Registry) Get(id int) (Producer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.producers[id]
	if !ok {
		return Producer{}, false
	}
	return p.clone(), true
}

// All 按 id 排序的全部生产者
func (r *Registry) All() []Producer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Producer, 0, len(r.producers))
	for _, p := range r.producers {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Disable 禁用生产者
func (r *Registry) Disable(ids ...int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		p, ok := r.producers[id]
		if !ok {
			return fmt.Errorf("producer %d: %w", id, common.ErrNotFound)
		}
		p.IsDisabled = true
		r.logger.Info("[Producer] Disabled producer %d (%s)", id, p.Name)
	}
	return nil
}

// SetAvailable 设置可用状态
func (r *Registry) SetAvailable(id int, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.producers[id]
	if !ok {
		return fmt.Errorf("producer %d: %w", id, common.ErrNotFound)
	}
	if p.IsAvailable != available {
		r.logger.Info("[Producer] Producer %d (%s) available=%v", id, p.Name, available)
	}
	p.IsAvailable = available
	return nil
}

// MarkAlive 记录 alive 消息，subscribed=false 表示生产者已下线
// 恢复可用由调用方决定 (SetAvailable)，返回更新后的生产者
func (r *Registry) MarkAlive(id int, generatedAt int64, subscribed bool) (Producer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.producers[id]
	if !ok {
		return Producer{}, false
	}
	p.LastAlive = time.UnixMilli(generatedAt)
	p.Subscribed = subscribed
	if !subscribed && p.IsAvailable {
		p.IsAvailable = false
		r.logger.Warn("[Producer] Producer %d (%s) reported subscribed=0", id, p.Name)
	}
	return p.clone(), true
}

// CheckInactive 将超过 maxInactivity 未收到 alive 的生产者标记为不可用，返回被标记的 id
// 从未收到过 alive 的生产者不参与检查
func (r *Registry) CheckInactive(maxInactivity time.Duration) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var down []int
	for id, p := range r.producers {
		if p.LastAlive.IsZero() || !p.IsAvailable {
			continue
		}
		if since := now.Sub(p.LastAlive); since > maxInactivity {
			p.IsAvailable = false
			down = append(down, id)
			r.logger.Warn("[Producer] Producer %d (%s) is DOWN (last alive: %v ago)", id, p.Name, since.Round(time.Second))
		}
	}
	sort.Ints(down)
	return down
}

func (p *Producer) clone() Producer {
	c := *p
	c.Scopes = append([]string(nil), p.Scopes...)
	return c
}
