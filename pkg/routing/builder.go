package routing

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrInvalidInterests 订阅组合不合法
	ErrInvalidInterests = errors.New("invalid message interests")

	// ErrInterestOutOfRange 订阅类型无法生成 routing key
	ErrInterestOutOfRange = errors.New("message interest out of range")
)

// MaxSessionInterests 单个连接可组合的会话数上限
const MaxSessionInterests = 3

var (
	standardKeys = []string{"-.-.-.product_down.#", "-.-.-.snapshot_complete.#"}
	liveKeys     = []string{"-.-.-.alive.#"}
)

var baseTemplates = map[InterestKind][]string{
	AllMessages:          {"*.*.*.*.*.*.*"},
	LiveMessagesOnly:     {"*.*.live.*.*.*.*"},
	PrematchMessagesOnly: {"*.pre.*.*.*.*.*"},
	HiPriorityMessages:   {"hi.*.*.*.*.*.*"},
	LowPriorityMessages:  {"lo.*.*.*.*.*.*"},
	VirtualSports:        {"*.virt.*.*.*.*.*"},
}

// ValidateInterests 校验会话订阅组合
func ValidateInterests(interests []MessageInterest) error {
	if len(interests) == 0 {
		return fmt.Errorf("%w: at least one interest is required", ErrInvalidInterests)
	}
	if len(interests) > MaxSessionInterests {
		return fmt.Errorf("%w: at most %d interests can be combined, got %d",
			ErrInvalidInterests, MaxSessionInterests, len(interests))
	}

	seen := make(map[InterestKind]bool, len(interests))
	for _, i := range interests {
		if seen[i.Kind()] {
			return fmt.Errorf("%w: duplicate interest %s", ErrInvalidInterests, i.Kind())
		}
		seen[i.Kind()] = true
	}

	if len(interests) > 1 && seen[HiPriorityMessages] != seen[LowPriorityMessages] {
		return fmt.Errorf("%w: hi and low priority interests must be combined together", ErrInvalidInterests)
	}
	return nil
}

// GenerateKeys 为每个订阅生成需要绑定的 routing key，顺序与输入一致
// nodeID 为 0 时只生成不带节点的 key
func GenerateKeys(interests []MessageInterest, nodeID int) ([][]string, error) {
	if err := ValidateInterests(interests); err != nil {
		return nil, err
	}

	bothPriorities := hasKind(interests, HiPriorityMessages) && hasKind(interests, LowPriorityMessages)

	result := make([][]string, 0, len(interests))
	for _, interest := range interests {
		keys, err := interestKeys(interest, nodeID)
		if err != nil {
			return nil, err
		}
		if bothPriorities && interest.Kind() == LowPriorityMessages {
			keys = append(keys, liveKeys...)
		} else {
			keys = append(keys, standardKeys...)
			keys = append(keys, liveKeys...)
		}
		result = append(result, dedup(keys))
	}
	return result, nil
}

func interestKeys(interest MessageInterest, nodeID int) ([]string, error) {
	var keys []string
	if interest.Kind() == SpecificEvents {
		for _, e := range interest.events {
			keys = append(keys, fmt.Sprintf("#.%s:%s.%d", e.Prefix, e.Type, e.ID))
		}
	} else {
		for _, t := range baseTemplates[interest.Kind()] {
			keys = append(keys, t+".-.#")
			if nodeID != 0 {
				keys = append(keys, t+"."+strconv.Itoa(nodeID)+".#")
			}
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInterestOutOfRange, interest)
	}
	return keys, nil
}

func hasKind(interests []MessageInterest, kind InterestKind) bool {
	for _, i := range interests {
		if i.Kind() == kind {
			return true
		}
	}
	return false
}

func dedup(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
