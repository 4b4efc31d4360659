package entities

import (
	"uof-sdk/pkg/models"
)

// Market 市场公共部分，名称按语言解析
type Market struct {
	ID             int               `json:"id"`
	Specifiers     map[string]string `json:"specifiers,omitempty"`
	AdditionalInfo map[string]string `json:"additional_info,omitempty"`
	Names          map[string]string `json:"names"`
}

// Name 返回指定语言的名称
func (m Market) Name(culture string) string {
	return m.Names[culture]
}

// MarketWithOdds odds_change 中的市场
type MarketWithOdds struct {
	Market
	Status        models.MarketStatus `json:"status"`
	CashoutStatus *int                `json:"cashout_status,omitempty"`
	IsFavourite   bool                `json:"is_favourite"`
	Outcomes      []OddsOutcome       `json:"outcomes"`
}

// OddsOutcome OutcomeOdds 或 PlayerOutcomeOdds
type OddsOutcome interface {
	Outcome() *OutcomeOdds
}

// OutcomeOdds 结果赔率
type OutcomeOdds struct {
	ID            string                   `json:"id"`
	Names         map[string]string        `json:"names"`
	Active        *bool                    `json:"active,omitempty"`
	Odds          *float64                 `json:"odds,omitempty"`
	Probabilities *float64                 `json:"probabilities,omitempty"`
	Additional    *AdditionalProbabilities `json:"additional_probabilities,omitempty"`
}

// Outcome 实现 OddsOutcome
func (o *OutcomeOdds) Outcome() *OutcomeOdds { return o }

// Name 返回指定语言的名称
func (o *OutcomeOdds) Name(culture string) string {
	return o.Names[culture]
}

// PlayerOutcomeOdds 球员结果，只出现在比赛类赛事上
type PlayerOutcomeOdds struct {
	OutcomeOdds
	Team int `json:"team"`
}

// IsHomeTeam 球员是否属于主队
func (o *PlayerOutcomeOdds) IsHomeTeam() bool { return o.Team == 1 }

// AdditionalProbabilities 附加概率，五项全部缺失时为 nil
type AdditionalProbabilities struct {
	Win      *float64 `json:"win,omitempty"`
	Lose     *float64 `json:"lose,omitempty"`
	HalfWin  *float64 `json:"half_win,omitempty"`
	HalfLose *float64 `json:"half_lose,omitempty"`
	Refund   *float64 `json:"refund,omitempty"`
}

// MarketWithSettlement 结算市场
type MarketWithSettlement struct {
	Market
	VoidReason *int                `json:"void_reason,omitempty"`
	Result     *string             `json:"result,omitempty"`
	Outcomes   []OutcomeSettlement `json:"outcomes"`
}

// OutcomeSettlement 结算结果
type OutcomeSettlement struct {
	ID             string            `json:"id"`
	Names          map[string]string `json:"names"`
	Result         OutcomeResult     `json:"result"`
	VoidFactor     *float64          `json:"void_factor,omitempty"`
	DeadHeatFactor *float64          `json:"dead_heat_factor,omitempty"`
}

// OutcomeResult 结算结论
type OutcomeResult int

const (
	OutcomeLost      OutcomeResult = 0
	OutcomeWon       OutcomeResult = 1
	OutcomeUndecided OutcomeResult = -1
)

// MarketCancel 取消的市场
type MarketCancel struct {
	Market
	VoidReason            *int   `json:"void_reason,omitempty"`
	VoidReasonDescription string `json:"void_reason_description,omitempty"`
}
