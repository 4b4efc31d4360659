package models

// OddsChange 赔率变化
type OddsChange struct {
	MessageBase
	OddsChangeReason *int                      `xml:"odds_change_reason,attr"`
	Status           *SportEventStatus         `xml:"sport_event_status"`
	Generation       *OddsGenerationProperties `xml:"odds_generation_properties"`
	Odds             *OddsChangeOdds           `xml:"odds"`
}

// OddsGenerationProperties 赔率生成参数
type OddsGenerationProperties struct {
	ExpectedTotals    *float64 `xml:"expected_totals,attr"`
	ExpectedSupremacy *float64 `xml:"expected_supremacy,attr"`
}

// OddsChangeOdds odds 元素
type OddsChangeOdds struct {
	BetstopReason *int               `xml:"betstop_reason,attr"`
	BettingStatus *int               `xml:"betting_status,attr"`
	Markets       []OddsChangeMarket `xml:"market"`
}

// OddsChangeMarket 带赔率的市场
type OddsChangeMarket struct {
	Market
	Status        *int                `xml:"status,attr"`
	CashoutStatus *int                `xml:"cashout_status,attr"`
	Favourite     *int                `xml:"favourite,attr"`
	Outcomes      []OddsChangeOutcome `xml:"outcome"`
}

// OddsChangeOutcome 结果赔率
// 概率类字段出现与否即为 specified 标记
type OddsChangeOutcome struct {
	ID                    string   `xml:"id,attr"`
	Odds                  *float64 `xml:"odds,attr"`
	Probabilities         *float64 `xml:"probabilities,attr"`
	Active                *int     `xml:"active,attr"`
	Team                  *int     `xml:"team,attr"`
	WinProbabilities      *float64 `xml:"win_probabilities,attr"`
	LoseProbabilities     *float64 `xml:"lose_probabilities,attr"`
	HalfWinProbabilities  *float64 `xml:"half_win_probabilities,attr"`
	HalfLoseProbabilities *float64 `xml:"half_lose_probabilities,attr"`
	RefundProbabilities   *float64 `xml:"refund_probabilities,attr"`
}

func (m *OddsChange) Kind() MessageKind { return KindOddsChange }

// MarketList 市场指针列表
func (m *OddsChange) MarketList() []*Market {
	if m.Odds == nil {
		return nil
	}
	out := make([]*Market, 0, len(m.Odds.Markets))
	for i := range m.Odds.Markets {
		out = append(out, &m.Odds.Markets[i].Market)
	}
	return out
}
