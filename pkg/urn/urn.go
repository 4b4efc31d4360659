package urn

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidURN URN 格式错误
var ErrInvalidURN = errors.New("invalid urn")

// TypeGroup 资源类型分组
type TypeGroup string

const (
	TypeGroupMatch      TypeGroup = "match"
	TypeGroupStage      TypeGroup = "stage"
	TypeGroupTournament TypeGroup = "tournament"
	TypeGroupDraw       TypeGroup = "draw"
	TypeGroupLottery    TypeGroup = "lottery"
	TypeGroupSport      TypeGroup = "sport"
	TypeGroupCategory   TypeGroup = "category"
	TypeGroupCompetitor TypeGroup = "competitor"
	TypeGroupOther      TypeGroup = "other"
)

var typeGroups = map[string]TypeGroup{
	"match":             TypeGroupMatch,
	"stage":             TypeGroupStage,
	"race_event":        TypeGroupStage,
	"tournament":        TypeGroupTournament,
	"simple_tournament": TypeGroupTournament,
	"season":            TypeGroupTournament,
	"draw":              TypeGroupDraw,
	"lottery":           TypeGroupLottery,
	"sport":             TypeGroupSport,
	"category":          TypeGroupCategory,
	"competitor":        TypeGroupCompetitor,
	"player":            TypeGroupCompetitor,
	"venue":             TypeGroupOther,
}

var urnPattern = regexp.MustCompile(`^([a-zA-Z0-9]+):([a-zA-Z_0-9]+):(-?\d+)$`)

// URN 全局资源标识，格式 prefix:type:id (例如 sr:match:123)
type URN struct {
	Prefix string
	Type   string
	ID     int64
}

// Parse 解析 URN 字符串
func Parse(s string) (URN, error) {
	m := urnPattern.FindStringSubmatch(s)
	if m == nil {
		return URN{}, fmt.Errorf("%w: %q", ErrInvalidURN, s)
	}
	id, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return URN{}, fmt.Errorf("%w: %q: %v", ErrInvalidURN, s, err)
	}
	return URN{Prefix: m[1], Type: m[2], ID: id}, nil
}

// TryParse 不返回错误的解析
func TryParse(s string) (URN, bool) {
	u, err := Parse(s)
	return u, err == nil
}

// MustParse 解析失败时 panic，仅用于常量和测试
func MustParse(s string) URN {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// NewSportURN 根据 sport id 构造 sr:sport:{id}
func NewSportURN(id int64) URN {
	return URN{Prefix: "sr", Type: "sport", ID: id}
}

func (u URN) String() string {
	return fmt.Sprintf("%s:%s:%d", u.Prefix, u.Type, u.ID)
}

// MarshalText 实现 encoding.TextMarshaler，JSON 中以字符串出现
func (u URN) MarshalText() ([]byte, error) {
	if u.IsZero() {
		return []byte{}, nil
	}
	return []byte(u.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (u *URN) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*u = URN{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// IsZero 是否为空值
func (u URN) IsZero() bool {
	return u.Prefix == "" && u.Type == "" && u.ID == 0
}

// TypeGroup 返回类型分组，未知类型归入 other
func (u URN) TypeGroup() TypeGroup {
	if g, ok := typeGroups[u.Type]; ok {
		return g
	}
	return TypeGroupOther
}

// IsTournamentLevel 是否为赛事级别资源 (tournament / simple_tournament / season)
func (u URN) IsTournamentLevel() bool {
	return u.TypeGroup() == TypeGroupTournament
}
