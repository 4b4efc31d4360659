package routing

import (
	"fmt"
	"strings"

	"uof-sdk/pkg/urn"
)

// InterestKind 订阅范围类型
type InterestKind int

const (
	AllMessages InterestKind = iota + 1
	LiveMessagesOnly
	PrematchMessagesOnly
	HiPriorityMessages
	LowPriorityMessages
	VirtualSports
	SpecificEvents
)

var interestNames = map[InterestKind]string{
	AllMessages:          "all",
	LiveMessagesOnly:     "live",
	PrematchMessagesOnly: "prematch",
	HiPriorityMessages:   "hi",
	LowPriorityMessages:  "low",
	VirtualSports:        "virtual",
	SpecificEvents:       "events",
}

func (k InterestKind) String() string {
	if name, ok := interestNames[k]; ok {
		return name
	}
	return fmt.Sprintf("interest(%d)", int(k))
}

// MessageInterest 会话订阅范围，不可变值
type MessageInterest struct {
	kind   InterestKind
	events []urn.URN
}

// NewInterest 创建非事件类订阅
func NewInterest(kind InterestKind) MessageInterest {
	return MessageInterest{kind: kind}
}

// AllMessagesInterest 全部消息
func AllMessagesInterest() MessageInterest { return NewInterest(AllMessages) }

// LiveOnlyInterest 仅滚球消息
func LiveOnlyInterest() MessageInterest { return NewInterest(LiveMessagesOnly) }

// PrematchOnlyInterest 仅赛前消息
func PrematchOnlyInterest() MessageInterest { return NewInterest(PrematchMessagesOnly) }

// HighPriorityInterest 高优先级消息
func HighPriorityInterest() MessageInterest { return NewInterest(HiPriorityMessages) }

// LowPriorityInterest 低优先级消息
func LowPriorityInterest() MessageInterest { return NewInterest(LowPriorityMessages) }

// VirtualSportsInterest 虚拟体育消息
func VirtualSportsInterest() MessageInterest { return NewInterest(VirtualSports) }

// SpecificEventsInterest 指定赛事的消息，事件列表会被复制
func SpecificEventsInterest(events ...urn.URN) MessageInterest {
	cp := make([]urn.URN, len(events))
	copy(cp, events)
	return MessageInterest{kind: SpecificEvents, events: cp}
}

// Kind 订阅类型
func (i MessageInterest) Kind() InterestKind {
	return i.kind
}

// Events 指定赛事列表的副本
func (i MessageInterest) Events() []urn.URN {
	cp := make([]urn.URN, len(i.events))
	copy(cp, i.events)
	return cp
}

func (i MessageInterest) String() string {
	if i.kind != SpecificEvents {
		return i.kind.String()
	}
	ids := make([]string, 0, len(i.events))
	for _, e := range i.events {
		ids = append(ids, e.String())
	}
	return fmt.Sprintf("events[%s]", strings.Join(ids, ","))
}

// interestAliases 路由键前缀形式的别名
var interestAliases = map[string]InterestKind{
	"lo": LowPriorityMessages,
}

// ParseInterest 从配置名称解析订阅范围 (all, live, prematch, hi, low 或 lo, virtual)
// 指定赛事使用 "events:sr:match:1;sr:match:2"
func ParseInterest(s string) (MessageInterest, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if rest, ok := strings.CutPrefix(s, "events:"); ok {
		var events []urn.URN
		for _, part := range strings.Split(rest, ";") {
			if part == "" {
				continue
			}
			u, err := urn.Parse(part)
			if err != nil {
				return MessageInterest{}, fmt.Errorf("%w: %v", ErrInvalidInterests, err)
			}
			events = append(events, u)
		}
		if len(events) == 0 {
			return MessageInterest{}, fmt.Errorf("%w: no events in %q", ErrInvalidInterests, s)
		}
		return SpecificEventsInterest(events...), nil
	}
	if kind, ok := interestAliases[s]; ok {
		return NewInterest(kind), nil
	}
	for kind, name := range interestNames {
		if kind != SpecificEvents && name == s {
			return NewInterest(kind), nil
		}
	}
	return MessageInterest{}, fmt.Errorf("%w: unknown interest %q", ErrInvalidInterests, s)
}
