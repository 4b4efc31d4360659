package ingestion

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/routing"
)

// SessionStatus 会话状态快照
type SessionStatus struct {
	Name        string   `json:"name"`
	Interest    string   `json:"interest"`
	Opened      bool     `json:"opened"`
	RoutingKeys []string `json:"routing_keys"`
}

// ConnectionManager 管理一个 Feed 下的全部接收器
type ConnectionManager struct {
	logger   common.Logger
	sessions map[string]*managedSession
	order    []string
	mu       sync.RWMutex
	interval time.Duration
}

type managedSession struct {
	receiver *Receiver
	interest routing.MessageInterest
	keys     []string
}

// NewConnectionManager 创建连接管理器
func NewConnectionManager(logger common.Logger) *ConnectionManager {
	return &ConnectionManager{
		logger:   logger,
		sessions: make(map[string]*managedSession),
		interval: 30 * time.Second,
	}
}

// Register 注册接收器及其 routing key
func (cm *ConnectionManager) Register(receiver *Receiver, interest routing.MessageInterest, routingKeys []string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	name := receiver.Name()
	if _, exists := cm.sessions[name]; exists {
		return fmt.Errorf("session %s already registered: %w", name, common.ErrInvalidInput)
	}
	cm.sessions[name] = &managedSession{receiver: receiver, interest: interest, keys: routingKeys}
	cm.order = append(cm.order, name)
	cm.logger.Debug("[ConnectionManager] Registered session %s", name)
	return nil
}

// OpenAll 按注册顺序打开全部会话，任一失败时关闭已打开的会话
func (cm *ConnectionManager) OpenAll() error {
	cm.mu.RLock()
	sessions := cm.ordered()
	cm.mu.RUnlock()

	var opened []*Receiver
	for _, s := range sessions {
		if err := s.receiver.Open(s.interest, s.keys); err != nil {
			for _, r := range opened {
				_ = r.Close()
			}
			return err
		}
		opened = append(opened, s.receiver)
	}
	cm.logger.Info("[ConnectionManager] Opened %d sessions", len(opened))
	return nil
}

// CloseAll 关闭全部会话，汇总所有错误
func (cm *ConnectionManager) CloseAll() error {
	cm.mu.RLock()
	sessions := cm.ordered()
	cm.mu.RUnlock()

	var err error
	for _, s := range sessions {
		err = multierr.Append(err, s.receiver.Close())
	}
	return err
}

// Status 返回按名称排序的会话状态
func (cm *ConnectionManager) Status() []SessionStatus {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	out := make([]SessionStatus, 0, len(cm.sessions))
	for name, s := range cm.sessions {
		out = append(out, SessionStatus{
			Name:        name,
			Interest:    s.interest.String(),
			Opened:      s.receiver.IsOpened(),
			RoutingKeys: append([]string(nil), s.keys...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len 已注册会话数
func (cm *ConnectionManager) Len() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.sessions)
}

// HealthCheck 定期检查会话状态，直到 ctx 取消
func (cm *ConnectionManager) HealthCheck(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cm.logger.Debug("[ConnectionManager] Health check stopped")
			return
		case <-ticker.C:
			for _, s := range cm.Status() {
				if !s.Opened {
					cm.logger.Warn("[ConnectionManager] Session %s is closed", s.Name)
				}
			}
		}
	}
}

func (cm *ConnectionManager) ordered() []*managedSession {
	out := make([]*managedSession, 0, len(cm.order))
	for _, name := range cm.order {
		out = append(out, cm.sessions[name])
	}
	return out
}
