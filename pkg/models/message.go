package models

import (
	"uof-sdk/pkg/urn"
)

// MessageKind 消息类型，与 XML 根元素名一致
type MessageKind string

const (
	KindAlive                 MessageKind = "alive"
	KindSnapshotComplete      MessageKind = "snapshot_complete"
	KindFixtureChange         MessageKind = "fixture_change"
	KindBetStop               MessageKind = "bet_stop"
	KindBetSettlement         MessageKind = "bet_settlement"
	KindBetCancel             MessageKind = "bet_cancel"
	KindRollbackBetSettlement MessageKind = "rollback_bet_settlement"
	KindRollbackBetCancel     MessageKind = "rollback_bet_cancel"
	KindOddsChange            MessageKind = "odds_change"
)

// AllKinds 所有已知消息类型
var AllKinds = []MessageKind{
	KindAlive,
	KindSnapshotComplete,
	KindFixtureChange,
	KindBetStop,
	KindBetSettlement,
	KindBetCancel,
	KindRollbackBetSettlement,
	KindRollbackBetCancel,
	KindOddsChange,
}

// FeedMessage 反序列化后的消息
// 只有本包中的类型可以实现该接口
type FeedMessage interface {
	Kind() MessageKind
	Base() *MessageBase
	IsEventRelated() bool
	feedMessage()
}

// MarketMessage 携带市场列表的消息
type MarketMessage interface {
	FeedMessage
	MarketList() []*Market
}

// MessageBase 所有消息共有的属性
// SentAt / ReceivedAt / SportID / EventURN 在接收和校验阶段回填
type MessageBase struct {
	Product   int    `xml:"product,attr"`
	EventID   string `xml:"event_id,attr,omitempty"`
	Timestamp int64  `xml:"timestamp,attr"`
	RequestID *int64 `xml:"request_id,attr,omitempty"`

	SentAt     int64    `xml:"-"`
	ReceivedAt int64    `xml:"-"`
	SportID    *urn.URN `xml:"-"`
	EventURN   *urn.URN `xml:"-"`
}

// Base 返回公共属性
func (b *MessageBase) Base() *MessageBase { return b }

// IsEventRelated 默认为赛事相关消息
func (b *MessageBase) IsEventRelated() bool { return true }

// GeneratedAt 生成时间 (epoch ms)
func (b *MessageBase) GeneratedAt() int64 { return b.Timestamp }

func (b *MessageBase) feedMessage() {}

// Market 市场公共属性
type Market struct {
	ID                 int    `xml:"id,attr"`
	Specifiers         string `xml:"specifiers,attr,omitempty"`
	ExtendedSpecifiers string `xml:"extended_specifiers,attr,omitempty"`

	// ValidationFailed 说明符无法解析，映射时跳过该市场
	ValidationFailed bool `xml:"-"`

	parsed map[string]string
}

// SetSpecifierMap 保存解析后的说明符
func (m *Market) SetSpecifierMap(specs map[string]string) {
	m.parsed = specs
}

// SpecifierMap 解析后的说明符，未解析时为 nil
func (m *Market) SpecifierMap() map[string]string {
	return m.parsed
}
