package models

// BetStop 停止投注
type BetStop struct {
	MessageBase
	Groups       string `xml:"groups,attr"`
	MarketStatus *int   `xml:"market_status,attr"`
}

func (m *BetStop) Kind() MessageKind { return KindBetStop }

// BetSettlement 结算
type BetSettlement struct {
	MessageBase
	Certainty *int                  `xml:"certainty,attr"`
	Markets   []BetSettlementMarket `xml:"outcomes>market"`
}

// BetSettlementMarket 结算市场
type BetSettlementMarket struct {
	Market
	VoidReason *int                   `xml:"void_reason,attr"`
	Result     *string                `xml:"result,attr"`
	Outcomes   []BetSettlementOutcome `xml:"outcome"`
}

// BetSettlementOutcome 结算结果
type BetSettlementOutcome struct {
	ID             string   `xml:"id,attr"`
	Result         int      `xml:"result,attr"`
	VoidFactor     *float64 `xml:"void_factor,attr"`
	DeadHeatFactor *float64 `xml:"dead_heat_factor,attr"`
}

func (m *BetSettlement) Kind() MessageKind { return KindBetSettlement }

// MarketList 市场指针列表
func (m *BetSettlement) MarketList() []*Market {
	out := make([]*Market, 0, len(m.Markets))
	for i := range m.Markets {
		out = append(out, &m.Markets[i].Market)
	}
	return out
}

// BetCancel 取消投注
type BetCancel struct {
	MessageBase
	StartTime    *int64            `xml:"start_time,attr"`
	EndTime      *int64            `xml:"end_time,attr"`
	SupercededBy *string           `xml:"superceded_by,attr"`
	Markets      []BetCancelMarket `xml:"market"`
}

// BetCancelMarket 取消的市场
type BetCancelMarket struct {
	Market
	VoidReason *int `xml:"void_reason,attr"`
}

func (m *BetCancel) Kind() MessageKind { return KindBetCancel }

// MarketList 市场指针列表
func (m *BetCancel) MarketList() []*Market {
	out := make([]*Market, 0, len(m.Markets))
	for i := range m.Markets {
		out = append(out, &m.Markets[i].Market)
	}
	return out
}

// RollbackBetSettlement 撤销结算
type RollbackBetSettlement struct {
	MessageBase
	Markets []Market `xml:"market"`
}

func (m *RollbackBetSettlement) Kind() MessageKind { return KindRollbackBetSettlement }

// MarketList 市场指针列表
func (m *RollbackBetSettlement) MarketList() []*Market {
	return marketPointers(m.Markets)
}

// RollbackBetCancel 撤销取消
type RollbackBetCancel struct {
	MessageBase
	StartTime *int64   `xml:"start_time,attr"`
	EndTime   *int64   `xml:"end_time,attr"`
	Markets   []Market `xml:"market"`
}

func (m *RollbackBetCancel) Kind() MessageKind { return KindRollbackBetCancel }

// MarketList 市场指针列表
func (m *RollbackBetCancel) MarketList() []*Market {
	return marketPointers(m.Markets)
}

func marketPointers(markets []Market) []*Market {
	out := make([]*Market, 0, len(markets))
	for i := range markets {
		out = append(out, &markets[i])
	}
	return out
}
