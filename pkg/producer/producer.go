package producer

import (
	"strings"
	"time"
)

// 生产者范围
const (
	ScopeLive     = "live"
	ScopePrematch = "prematch"
	ScopeVirtual  = "virtual"
)

// Producer 数据源生产者
type Producer struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	APIPath     string    `json:"api_path"`
	Description string    `json:"description"`
	IsAvailable bool      `json:"is_available"`
	IsDisabled  bool      `json:"is_disabled"`
	Scopes      []string  `json:"scopes"`
	LastAlive   time.Time `json:"last_alive,omitempty"`
	Subscribed  bool      `json:"subscribed"`
}

// HasScope 是否属于指定范围
func (p Producer) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if strings.EqualFold(s, scope) {
			return true
		}
	}
	return false
}

// Manager 生产者注册表的只读视图
type Manager interface {
	Exists(id int) bool
	Get(id int) (Producer, bool)
}

// DefaultProducers 标准生产者列表
func DefaultProducers() []Producer {
	return []Producer{
		{ID: 1, Name: "LO", APIPath: "liveodds", Description: "Live Odds", Scopes: []string{ScopeLive}},
		{ID: 3, Name: "Ctrl", APIPath: "pre", Description: "Betradar Ctrl", Scopes: []string{ScopePrematch}},
		{ID: 4, Name: "BetPal", APIPath: "betpal", Description: "BetPal", Scopes: []string{ScopeLive}},
		{ID: 5, Name: "PremiumCricket", APIPath: "premium_cricket", Description: "Premium Cricket", Scopes: []string{ScopeLive, ScopePrematch}},
		{ID: 6, Name: "VF", APIPath: "vf", Description: "Virtual football", Scopes: []string{ScopeVirtual}},
		{ID: 7, Name: "WNS", APIPath: "wns", Description: "World Number Service", Scopes: []string{ScopePrematch}},
		{ID: 8, Name: "VBL", APIPath: "vbl", Description: "Virtual Basketball League", Scopes: []string{ScopeVirtual}},
		{ID: 9, Name: "VTO", APIPath: "vto", Description: "Virtual Tennis Open", Scopes: []string{ScopeVirtual}},
		{ID: 10, Name: "VDR", APIPath: "vdr", Description: "Virtual Dog Racing", Scopes: []string{ScopeVirtual}},
		{ID: 11, Name: "VHC", APIPath: "vhc", Description: "Virtual Horse Classics", Scopes: []string{ScopeVirtual}},
		{ID: 12, Name: "VTI", APIPath: "vti", Description: "Virtual Tennis In-Play", Scopes: []string{ScopeVirtual}},
		{ID: 14, Name: "C-Odds", APIPath: "codds", Description: "Competition Odds", Scopes: []string{ScopeLive}},
		{ID: 15, Name: "VBI", APIPath: "vbi", Description: "Virtual Baseball In-Play", Scopes: []string{ScopeVirtual}},
	}
}
