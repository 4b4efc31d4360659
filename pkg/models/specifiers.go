package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidSpecifiers 说明符格式错误
var ErrInvalidSpecifiers = errors.New("invalid specifiers")

// ParseSpecifiers 解析说明符，例如 "total=2.5|hcp=1:0"
// 分隔符为 '|' 或 '&'
func ParseSpecifiers(s string) (map[string]string, error) {
	result := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return result, nil
	}

	pairs := strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == '&' })
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSpecifiers, s)
	}
	if strings.Count(s, "|")+strings.Count(s, "&")+1 != len(pairs) {
		return nil, fmt.Errorf("%w: empty pair in %q", ErrInvalidSpecifiers, s)
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: missing '=' in %q", ErrInvalidSpecifiers, pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%w: empty key in %q", ErrInvalidSpecifiers, pair)
		}
		if _, dup := result[key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidSpecifiers, key)
		}
		result[key] = strings.TrimSpace(value)
	}
	return result, nil
}

// SerializeSpecifiers 按 key 排序后以 '|' 拼接
func SerializeSpecifiers(specs map[string]string) string {
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+specs[k])
	}
	return strings.Join(parts, "|")
}
