package routing

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"uof-sdk/pkg/urn"
)

// ErrRoutingKeyFormat routing key 不符合格式
var ErrRoutingKeyFormat = errors.New("routing key format error")

var sportPatterns sync.Map // message type -> *regexp.Regexp

func sportPattern(messageType string) *regexp.Regexp {
	if re, ok := sportPatterns.Load(messageType); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`\.` + regexp.QuoteMeta(messageType) + `\.(\d+)\.`)
	actual, _ := sportPatterns.LoadOrStore(messageType, re)
	return actual.(*regexp.Regexp)
}

// GetSportID 从 routing key 中解析 sport id
// 例如 hi.-.live.odds_change.5.sr:match.12345.- -> sr:sport:5
func GetSportID(routingKey, messageType string) (urn.URN, error) {
	m := sportPattern(messageType).FindStringSubmatch(routingKey)
	if m == nil {
		return urn.URN{}, fmt.Errorf("%w: %q does not contain sport for %s", ErrRoutingKeyFormat, routingKey, messageType)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return urn.URN{}, fmt.Errorf("%w: %v", ErrRoutingKeyFormat, err)
	}
	return urn.NewSportURN(id), nil
}

// TryGetSportID 解析失败时返回 false
func TryGetSportID(routingKey, messageType string) (urn.URN, bool) {
	u, err := GetSportID(routingKey, messageType)
	return u, err == nil
}
