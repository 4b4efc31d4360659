package mapping

import (
	"regexp"
	"strconv"
	"strings"
)

// ReplacementContext 名称模板中的赛事上下文
type ReplacementContext struct {
	Competitor1 string
	Competitor2 string
}

var placeholderPattern = regexp.MustCompile(`\{([+\-!$]?)([A-Za-z_0-9]+)\}`)

// ResolveName 替换名称模板中的占位符
// "{!periodnr} period - {$competitor1} total {total}" + periodnr=1,total=2.5 -> "1st period - Home total 2.5"
// 无法替换的占位符保持原样
func ResolveName(template string, specifiers map[string]string, rc *ReplacementContext) string {
	if !strings.Contains(template, "{") {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		parts := placeholderPattern.FindStringSubmatch(match)
		op, key := parts[1], parts[2]

		if op == "$" {
			if rc == nil {
				return match
			}
			switch key {
			case "competitor1":
				return rc.Competitor1
			case "competitor2":
				return rc.Competitor2
			}
			return match
		}

		value, ok := specifiers[key]
		if !ok {
			return match
		}
		switch op {
		case "+":
			return signed(value)
		case "-":
			return signed(negate(value))
		case "!":
			return toOrdinal(value)
		}
		return value
	})
}

// signed 正数加上 '+' 号
func signed(value string) string {
	if strings.HasPrefix(value, "-") || strings.HasPrefix(value, "+") {
		return value
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && f == 0 {
		return value
	}
	return "+" + value
}

func negate(value string) string {
	switch {
	case strings.HasPrefix(value, "-"):
		return value[1:]
	case strings.HasPrefix(value, "+"):
		return "-" + value[1:]
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && f == 0 {
		return value
	}
	return "-" + value
}

// toOrdinal "1" -> "1st", "12" -> "12th", "23" -> "23rd"
func toOrdinal(num string) string {
	n, err := strconv.Atoi(num)
	if err != nil || n < 0 {
		return num
	}
	if n%100 >= 11 && n%100 <= 13 {
		return num + "th"
	}
	switch n % 10 {
	case 1:
		return num + "st"
	case 2:
		return num + "nd"
	case 3:
		return num + "rd"
	}
	return num + "th"
}
