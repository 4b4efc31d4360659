package models

// MarketStatus 市场状态
type MarketStatus int

const (
	MarketStatusActive     MarketStatus = 1
	MarketStatusInactive   MarketStatus = 0
	MarketStatusSuspended  MarketStatus = -1
	MarketStatusHandedOver MarketStatus = -2
	MarketStatusSettled    MarketStatus = -3
	MarketStatusCancelled  MarketStatus = -4
)

// IsValid 是否为已知状态
func (s MarketStatus) IsValid() bool {
	return s >= MarketStatusCancelled && s <= MarketStatusActive
}

func (s MarketStatus) String() string {
	switch s {
	case MarketStatusActive:
		return "active"
	case MarketStatusInactive:
		return "inactive"
	case MarketStatusSuspended:
		return "suspended"
	case MarketStatusHandedOver:
		return "handed_over"
	case MarketStatusSettled:
		return "settled"
	case MarketStatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// FixtureChangeType 赛程变化类型
type FixtureChangeType int

const (
	FixtureChangeNew       FixtureChangeType = 1
	FixtureChangeDateTime  FixtureChangeType = 2
	FixtureChangeCancelled FixtureChangeType = 3
	FixtureChangeFormat    FixtureChangeType = 4
	FixtureChangeCoverage  FixtureChangeType = 5
	FixtureChangePitcher   FixtureChangeType = 6
	FixtureChangeStreamURL FixtureChangeType = 9
)

// IsValid 是否为已知类型
func (t FixtureChangeType) IsValid() bool {
	switch t {
	case FixtureChangeNew, FixtureChangeDateTime, FixtureChangeCancelled, FixtureChangeFormat,
		FixtureChangeCoverage, FixtureChangePitcher, FixtureChangeStreamURL:
		return true
	}
	return false
}

// Certainty 结算确定性
type Certainty int

const (
	CertaintyLiveScouted Certainty = 1
	CertaintyConfirmed   Certainty = 2
)

// IsValid 是否为已知值
func (c Certainty) IsValid() bool {
	return c == CertaintyLiveScouted || c == CertaintyConfirmed
}
