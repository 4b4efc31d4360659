package mapping

import (
	"context"
	"fmt"

	"uof-sdk/pkg/caching"
	"uof-sdk/pkg/common"
	"uof-sdk/pkg/entities"
	"uof-sdk/pkg/models"
	"uof-sdk/pkg/urn"
)

// CompetitorProvider 提供 {$competitor1}/{$competitor2} 的名称
type CompetitorProvider interface {
	Competitors(ctx context.Context, eventID urn.URN, culture string) (home, away string, ok bool)
}

// MarketFactory 根据市场描述构建市场和结果
type MarketFactory struct {
	logger       common.Logger
	descriptions caching.MarketDescriptionProvider
	competitors  CompetitorProvider
	namedValues  *caching.NamedValuesProvider
}

// NewMarketFactory descriptions 和 competitors 可为 nil
func NewMarketFactory(logger common.Logger, descriptions caching.MarketDescriptionProvider, competitors CompetitorProvider, namedValues *caching.NamedValuesProvider) *MarketFactory {
	if namedValues == nil {
		namedValues = caching.DefaultNamedValues()
	}
	return &MarketFactory{
		logger:       logger,
		descriptions: descriptions,
		competitors:  competitors,
		namedValues:  namedValues,
	}
}

// marketContext 单个市场在各语言下的描述和替换上下文
type marketContext struct {
	specs    map[string]string
	descs    map[string]*caching.MarketDescription
	replace  map[string]*ReplacementContext
	cultures []string
}

func (f *MarketFactory) newContext(ctx context.Context, event entities.SportEvent, m *models.Market) *marketContext {
	mc := &marketContext{
		specs:    m.SpecifierMap(),
		descs:    make(map[string]*caching.MarketDescription, len(event.Cultures)),
		replace:  make(map[string]*ReplacementContext, len(event.Cultures)),
		cultures: event.Cultures,
	}
	if mc.specs == nil {
		if specs, err := models.ParseSpecifiers(m.Specifiers); err == nil {
			mc.specs = specs
		}
	}

	for _, c := range event.Cultures {
		if f.descriptions != nil {
			desc, err := f.descriptions.GetMarketDescription(ctx, m.ID, mc.specs, []string{c}, true)
			if err != nil {
				f.logger.Debug("[MarketFactory] No %s description for market %d: %v", c, m.ID, err)
			} else {
				mc.descs[c] = desc
			}
		}
		if f.competitors != nil {
			if home, away, ok := f.competitors.Competitors(ctx, event.ID, c); ok {
				mc.replace[c] = &ReplacementContext{Competitor1: home, Competitor2: away}
			}
		}
	}
	return mc
}

func (mc *marketContext) marketNames(id int) map[string]string {
	names := make(map[string]string, len(mc.cultures))
	for _, c := range mc.cultures {
		desc, ok := mc.descs[c]
		if !ok {
			names[c] = fmt.Sprintf("Market %d", id)
			continue
		}
		tmpl, ok := desc.GetName(c)
		if !ok {
			names[c] = fmt.Sprintf("Market %d", id)
			continue
		}
		names[c] = ResolveName(tmpl, mc.specs, mc.replace[c])
	}
	return names
}

// outcomeNames 找不到描述时使用 outcome id
func (mc *marketContext) outcomeNames(outcomeID string) map[string]string {
	names := make(map[string]string, len(mc.cultures))
	for _, c := range mc.cultures {
		names[c] = outcomeID
		desc, ok := mc.descs[c]
		if !ok {
			continue
		}
		od, ok := desc.Outcome(outcomeID)
		if !ok {
			continue
		}
		tmpl, ok := od.GetName(c)
		if !ok {
			tmpl = od.Name
		}
		if tmpl != "" {
			names[c] = ResolveName(tmpl, mc.specs, mc.replace[c])
		}
	}
	return names
}

func (f *MarketFactory) baseMarket(mc *marketContext, m *models.Market) entities.Market {
	market := entities.Market{
		ID:         m.ID,
		Specifiers: copySpecs(mc.specs),
		Names:      mc.marketNames(m.ID),
	}
	if m.ExtendedSpecifiers != "" {
		if info, err := models.ParseSpecifiers(m.ExtendedSpecifiers); err == nil {
			market.AdditionalInfo = info
		}
	}
	return market
}

// BuildMarket 只含公共部分的市场 (rollback 消息)
func (f *MarketFactory) BuildMarket(ctx context.Context, event entities.SportEvent, m *models.Market) entities.Market {
	return f.baseMarket(f.newContext(ctx, event, m), m)
}

// BuildMarketWithOdds 带赔率的市场
// team 限定的结果只在比赛类赛事上构建为 PlayerOutcomeOdds
func (f *MarketFactory) BuildMarketWithOdds(ctx context.Context, event entities.SportEvent, m *models.OddsChangeMarket) entities.MarketWithOdds {
	mc := f.newContext(ctx, event, &m.Market)
	out := entities.MarketWithOdds{
		Market:        f.baseMarket(mc, &m.Market),
		Status:        models.MarketStatusActive,
		CashoutStatus: m.CashoutStatus,
		IsFavourite:   m.Favourite != nil && *m.Favourite == 1,
		Outcomes:      make([]entities.OddsOutcome, 0, len(m.Outcomes)),
	}
	if m.Status != nil {
		out.Status = models.MarketStatus(*m.Status)
	}

	for _, o := range m.Outcomes {
		odds := entities.OutcomeOdds{
			ID:            o.ID,
			Names:         mc.outcomeNames(o.ID),
			Odds:          o.Odds,
			Probabilities: o.Probabilities,
			Additional:    additionalProbabilities(o),
		}
		if o.Active != nil {
			active := *o.Active == 1
			odds.Active = &active
		}
		if o.Team != nil && event.IsMatch() {
			out.Outcomes = append(out.Outcomes, &entities.PlayerOutcomeOdds{OutcomeOdds: odds, Team: *o.Team})
			continue
		}
		out.Outcomes = append(out.Outcomes, &odds)
	}
	return out
}

// BuildMarketWithSettlement 结算市场
func (f *MarketFactory) BuildMarketWithSettlement(ctx context.Context, event entities.SportEvent, m *models.BetSettlementMarket) entities.MarketWithSettlement {
	mc := f.newContext(ctx, event, &m.Market)
	out := entities.MarketWithSettlement{
		Market:     f.baseMarket(mc, &m.Market),
		VoidReason: m.VoidReason,
		Result:     m.Result,
		Outcomes:   make([]entities.OutcomeSettlement, 0, len(m.Outcomes)),
	}
	for _, o := range m.Outcomes {
		out.Outcomes = append(out.Outcomes, entities.OutcomeSettlement{
			ID:             o.ID,
			Names:          mc.outcomeNames(o.ID),
			Result:         entities.OutcomeResult(o.Result),
			VoidFactor:     o.VoidFactor,
			DeadHeatFactor: o.DeadHeatFactor,
		})
	}
	return out
}

// BuildMarketCancel 取消的市场
func (f *MarketFactory) BuildMarketCancel(ctx context.Context, event entities.SportEvent, m *models.BetCancelMarket) entities.MarketCancel {
	out := entities.MarketCancel{
		Market:     f.BuildMarket(ctx, event, &m.Market),
		VoidReason: m.VoidReason,
	}
	if m.VoidReason != nil {
		out.VoidReasonDescription, _ = f.namedValues.VoidReasons.Description(*m.VoidReason)
	}
	return out
}

// additionalProbabilities 五项都未出现时返回 nil
func additionalProbabilities(o models.OddsChangeOutcome) *entities.AdditionalProbabilities {
	if o.WinProbabilities == nil && o.LoseProbabilities == nil && o.HalfWinProbabilities == nil &&
		o.HalfLoseProbabilities == nil && o.RefundProbabilities == nil {
		return nil
	}
	return &entities.AdditionalProbabilities{
		Win:      o.WinProbabilities,
		Lose:     o.LoseProbabilities,
		HalfWin:  o.HalfWinProbabilities,
		HalfLose: o.HalfLoseProbabilities,
		Refund:   o.RefundProbabilities,
	}
}

func copySpecs(specs map[string]string) map[string]string {
	if len(specs) == 0 {
		return nil
	}
	out := make(map[string]string, len(specs))
	for k, v := range specs {
		out[k] = v
	}
	return out
}
