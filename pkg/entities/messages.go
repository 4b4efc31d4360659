package entities

import (
	"strings"
	"time"

	"uof-sdk/pkg/models"
	"uof-sdk/pkg/urn"
)

// Message 分发给订阅者的消息
type Message interface {
	Kind() models.MessageKind
	ProducerID() int
	Timestamps() MessageTimestamp
}

// MessageTimestamp 消息各阶段时间 (epoch ms)
type MessageTimestamp struct {
	Created    int64 `json:"created"`
	Sent       int64 `json:"sent"`
	Received   int64 `json:"received"`
	Dispatched int64 `json:"dispatched"`
}

// Header 所有消息共有的部分
type Header struct {
	Producer  int              `json:"producer"`
	Timestamp MessageTimestamp `json:"timestamp"`
	RequestID *int64           `json:"request_id,omitempty"`
}

// ProducerID 实现 Message
func (h Header) ProducerID() int { return h.Producer }

// Timestamps 实现 Message
func (h Header) Timestamps() MessageTimestamp { return h.Timestamp }

// EventMessage 赛事相关消息
type EventMessage struct {
	Header
	Event      SportEvent `json:"event"`
	RawMessage []byte     `json:"-"`
}

// OddsChange 赔率变化
type OddsChange struct {
	EventMessage
	ChangeReason  *int              `json:"change_reason,omitempty"`
	BetstopReason *NamedValue       `json:"betstop_reason,omitempty"`
	BettingStatus *NamedValue       `json:"betting_status,omitempty"`
	Generation    *OddsGeneration   `json:"odds_generation,omitempty"`
	Markets       []MarketWithOdds  `json:"markets"`
	Status        *SportEventStatus `json:"status,omitempty"`
}

func (OddsChange) Kind() models.MessageKind { return models.KindOddsChange }

// OddsGeneration 赔率生成参数
type OddsGeneration struct {
	ExpectedTotals    *float64 `json:"expected_totals,omitempty"`
	ExpectedSupremacy *float64 `json:"expected_supremacy,omitempty"`
}

// SportEventStatus odds_change 中携带的赛事状态
type SportEventStatus struct {
	Status      int      `json:"status"`
	MatchStatus *int     `json:"match_status,omitempty"`
	HomeScore   *float64 `json:"home_score,omitempty"`
	AwayScore   *float64 `json:"away_score,omitempty"`
	MatchTime   string   `json:"match_time,omitempty"`
}

// NamedValue 带描述的枚举值
type NamedValue struct {
	ID          int    `json:"id"`
	Description string `json:"description,omitempty"`
}

// BetStop 停止投注
type BetStop struct {
	EventMessage
	Groups       []string            `json:"groups"`
	MarketStatus models.MarketStatus `json:"market_status"`
}

func (BetStop) Kind() models.MessageKind { return models.KindBetStop }

// BetSettlement 结算
type BetSettlement struct {
	EventMessage
	Certainty *int                   `json:"certainty,omitempty"`
	Markets   []MarketWithSettlement `json:"markets"`
}

func (BetSettlement) Kind() models.MessageKind { return models.KindBetSettlement }

// BetCancel 取消投注
type BetCancel struct {
	EventMessage
	StartTime    *time.Time     `json:"start_time,omitempty"`
	EndTime      *time.Time     `json:"end_time,omitempty"`
	SupercededBy *urn.URN       `json:"superceded_by,omitempty"`
	Markets      []MarketCancel `json:"markets"`
}

func (BetCancel) Kind() models.MessageKind { return models.KindBetCancel }

// RollbackBetSettlement 撤销结算
type RollbackBetSettlement struct {
	EventMessage
	Markets []Market `json:"markets"`
}

func (RollbackBetSettlement) Kind() models.MessageKind { return models.KindRollbackBetSettlement }

// RollbackBetCancel 撤销取消
type RollbackBetCancel struct {
	EventMessage
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Markets   []Market   `json:"markets"`
}

func (RollbackBetCancel) Kind() models.MessageKind { return models.KindRollbackBetCancel }

// FixtureChange 赛程变化
type FixtureChange struct {
	EventMessage
	ChangeType   *models.FixtureChangeType `json:"change_type,omitempty"`
	StartTime    *time.Time                `json:"start_time,omitempty"`
	NextLiveTime *time.Time                `json:"next_live_time,omitempty"`
}

func (FixtureChange) Kind() models.MessageKind { return models.KindFixtureChange }

// Alive 生产者心跳
type Alive struct {
	Header
	Subscribed bool `json:"subscribed"`
}

func (Alive) Kind() models.MessageKind { return models.KindAlive }

// SnapshotCompleted 恢复完成
type SnapshotCompleted struct {
	Header
}

func (SnapshotCompleted) Kind() models.MessageKind { return models.KindSnapshotComplete }

// SplitGroups 解析 bet_stop 的 groups 属性
func SplitGroups(groups string) []string {
	var out []string
	for _, g := range strings.Split(groups, "|") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

// EventOf 取出赛事相关消息的赛事，系统消息返回 false
func EventOf(msg Message) (SportEvent, bool) {
	switch m := msg.(type) {
	case OddsChange:
		return m.Event, true
	case BetStop:
		return m.Event, true
	case BetSettlement:
		return m.Event, true
	case BetCancel:
		return m.Event, true
	case RollbackBetSettlement:
		return m.Event, true
	case RollbackBetCancel:
		return m.Event, true
	case FixtureChange:
		return m.Event, true
	}
	return SportEvent{}, false
}
