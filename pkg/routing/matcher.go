package routing

import "strings"

// Matches 按 AMQP topic 规则匹配 routing key
// "*" 匹配一个段，"#" 匹配零个或多个段
func Matches(pattern, routingKey string) bool {
	return matchSegments(strings.Split(pattern, "."), strings.Split(routingKey, "."))
}

func matchSegments(pattern, key []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case "#":
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(key); i++ {
				if matchSegments(pattern[1:], key[i:]) {
					return true
				}
			}
			return false
		case "*":
			if len(key) == 0 {
				return false
			}
		default:
			if len(key) == 0 || key[0] != pattern[0] {
				return false
			}
		}
		pattern = pattern[1:]
		key = key[1:]
	}
	return len(key) == 0
}

// MatchesAny 是否匹配任一 pattern
func MatchesAny(patterns []string, routingKey string) bool {
	for _, p := range patterns {
		if Matches(p, routingKey) {
			return true
		}
	}
	return false
}
