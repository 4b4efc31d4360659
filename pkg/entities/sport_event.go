package entities

import (
	"uof-sdk/pkg/urn"
)

// SportEvent 消息引用的赛事
type SportEvent struct {
	ID       urn.URN  `json:"id"`
	SportID  *urn.URN `json:"sport_id,omitempty"`
	Cultures []string `json:"cultures"`
}

// IsMatch 是否为比赛类型的赛事
func (e SportEvent) IsMatch() bool {
	return e.ID.TypeGroup() == urn.TypeGroupMatch
}

// EventRegistry 记录被引用的赛事，缓存层实现
type EventRegistry interface {
	TouchEvent(id urn.URN, cultures ...string)
}

// SportEventFactory 按 (id, sport id, cultures) 构建赛事
type SportEventFactory struct {
	registry EventRegistry
}

// NewSportEventFactory registry 可为 nil
func NewSportEventFactory(registry EventRegistry) *SportEventFactory {
	return &SportEventFactory{registry: registry}
}

// Build 构建赛事并登记到缓存
func (f *SportEventFactory) Build(id urn.URN, sportID *urn.URN, cultures []string) SportEvent {
	if f.registry != nil {
		f.registry.TouchEvent(id, cultures...)
	}
	var sport *urn.URN
	if sportID != nil {
		s := *sportID
		sport = &s
	}
	return SportEvent{
		ID:       id,
		SportID:  sport,
		Cultures: append([]string(nil), cultures...),
	}
}
