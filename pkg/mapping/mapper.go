package mapping

import (
	"context"
	"fmt"
	"time"

	"uof-sdk/pkg/caching"
	"uof-sdk/pkg/common"
	"uof-sdk/pkg/entities"
	"uof-sdk/pkg/models"
	"uof-sdk/pkg/urn"
)

// Mapper 将校验后的消息映射为不可变的领域对象
type Mapper struct {
	events      *entities.SportEventFactory
	markets     *MarketFactory
	namedValues *caching.NamedValuesProvider
	cultures    []string
	now         func() time.Time
}

// NewMapper 创建映射器
func NewMapper(events *entities.SportEventFactory, markets *MarketFactory, namedValues *caching.NamedValuesProvider, cultures []string) *Mapper {
	if namedValues == nil {
		namedValues = caching.DefaultNamedValues()
	}
	return &Mapper{
		events:      events,
		markets:     markets,
		namedValues: namedValues,
		cultures:    append([]string(nil), cultures...),
		now:         time.Now,
	}
}

// Map 按消息类型映射，ValidationFailed 的市场被跳过
func (mp *Mapper) Map(ctx context.Context, msg models.FeedMessage, raw []byte) (entities.Message, error) {
	switch m := msg.(type) {
	case *models.OddsChange:
		return mp.mapOddsChange(ctx, m, raw)
	case *models.BetStop:
		return mp.mapBetStop(m, raw)
	case *models.BetSettlement:
		return mp.mapBetSettlement(ctx, m, raw)
	case *models.BetCancel:
		return mp.mapBetCancel(ctx, m, raw)
	case *models.RollbackBetSettlement:
		em, err := mp.eventMessage(&m.MessageBase, raw)
		if err != nil {
			return nil, err
		}
		return entities.RollbackBetSettlement{EventMessage: em, Markets: mp.plainMarkets(ctx, em.Event, m.Markets)}, nil
	case *models.RollbackBetCancel:
		em, err := mp.eventMessage(&m.MessageBase, raw)
		if err != nil {
			return nil, err
		}
		return entities.RollbackBetCancel{
			EventMessage: em,
			StartTime:    msTime(m.StartTime),
			EndTime:      msTime(m.EndTime),
			Markets:      mp.plainMarkets(ctx, em.Event, m.Markets),
		}, nil
	case *models.FixtureChange:
		em, err := mp.eventMessage(&m.MessageBase, raw)
		if err != nil {
			return nil, err
		}
		fc := entities.FixtureChange{
			EventMessage: em,
			StartTime:    msTime(m.StartTime),
			NextLiveTime: msTime(m.NextLiveTime),
		}
		if m.ChangeType != nil {
			ct := models.FixtureChangeType(*m.ChangeType)
			fc.ChangeType = &ct
		}
		return fc, nil
	case *models.Alive:
		return entities.Alive{Header: mp.header(&m.MessageBase), Subscribed: m.Subscribed == 1}, nil
	case *models.SnapshotComplete:
		return entities.SnapshotCompleted{Header: mp.header(&m.MessageBase)}, nil
	default:
		return nil, fmt.Errorf("%w: %T", common.ErrUnsupportedMessage, msg)
	}
}

func (mp *Mapper) mapOddsChange(ctx context.Context, m *models.OddsChange, raw []byte) (entities.Message, error) {
	em, err := mp.eventMessage(&m.MessageBase, raw)
	if err != nil {
		return nil, err
	}
	oc := entities.OddsChange{
		EventMessage: em,
		ChangeReason: m.OddsChangeReason,
		Markets:      []entities.MarketWithOdds{},
	}
	if m.Generation != nil {
		oc.Generation = &entities.OddsGeneration{
			ExpectedTotals:    m.Generation.ExpectedTotals,
			ExpectedSupremacy: m.Generation.ExpectedSupremacy,
		}
	}
	if m.Status != nil {
		oc.Status = &entities.SportEventStatus{
			Status:      m.Status.Status,
			MatchStatus: m.Status.MatchStatus,
			HomeScore:   m.Status.HomeScore,
			AwayScore:   m.Status.AwayScore,
		}
		if m.Status.Clock != nil {
			oc.Status.MatchTime = m.Status.Clock.MatchTime
		}
	}
	if m.Odds == nil {
		return oc, nil
	}

	oc.BetstopReason = namedValue(mp.namedValues.BetStopReasons, m.Odds.BetstopReason)
	oc.BettingStatus = namedValue(mp.namedValues.BettingStatuses, m.Odds.BettingStatus)
	for i := range m.Odds.Markets {
		market := &m.Odds.Markets[i]
		if market.ValidationFailed {
			continue
		}
		oc.Markets = append(oc.Markets, mp.markets.BuildMarketWithOdds(ctx, em.Event, market))
	}
	return oc, nil
}

func (mp *Mapper) mapBetStop(m *models.BetStop, raw []byte) (entities.Message, error) {
	em, err := mp.eventMessage(&m.MessageBase, raw)
	if err != nil {
		return nil, err
	}
	bs := entities.BetStop{
		EventMessage: em,
		Groups:       entities.SplitGroups(m.Groups),
		MarketStatus: models.MarketStatusSuspended,
	}
	if m.MarketStatus != nil {
		bs.MarketStatus = models.MarketStatus(*m.MarketStatus)
	}
	return bs, nil
}

func (mp *Mapper) mapBetSettlement(ctx context.Context, m *models.BetSettlement, raw []byte) (entities.Message, error) {
	em, err := mp.eventMessage(&m.MessageBase, raw)
	if err != nil {
		return nil, err
	}
	bs := entities.BetSettlement{
		EventMessage: em,
		Certainty:    m.Certainty,
		Markets:      make([]entities.MarketWithSettlement, 0, len(m.Markets)),
	}
	for i := range m.Markets {
		if m.Markets[i].ValidationFailed {
			continue
		}
		bs.Markets = append(bs.Markets, mp.markets.BuildMarketWithSettlement(ctx, em.Event, &m.Markets[i]))
	}
	return bs, nil
}

func (mp *Mapper) mapBetCancel(ctx context.Context, m *models.BetCancel, raw []byte) (entities.Message, error) {
	em, err := mp.eventMessage(&m.MessageBase, raw)
	if err != nil {
		return nil, err
	}
	bc := entities.BetCancel{
		EventMessage: em,
		StartTime:    msTime(m.StartTime),
		EndTime:      msTime(m.EndTime),
		Markets:      make([]entities.MarketCancel, 0, len(m.Markets)),
	}
	if m.SupercededBy != nil {
		if id, ok := urn.TryParse(*m.SupercededBy); ok {
			bc.SupercededBy = &id
		}
	}
	for i := range m.Markets {
		if m.Markets[i].ValidationFailed {
			continue
		}
		bc.Markets = append(bc.Markets, mp.markets.BuildMarketCancel(ctx, em.Event, &m.Markets[i]))
	}
	return bc, nil
}

func (mp *Mapper) plainMarkets(ctx context.Context, event entities.SportEvent, markets []models.Market) []entities.Market {
	out := make([]entities.Market, 0, len(markets))
	for i := range markets {
		if markets[i].ValidationFailed {
			continue
		}
		out = append(out, mp.markets.BuildMarket(ctx, event, &markets[i]))
	}
	return out
}

func (mp *Mapper) header(base *models.MessageBase) entities.Header {
	return entities.Header{
		Producer: base.Product,
		Timestamp: entities.MessageTimestamp{
			Created:    base.GeneratedAt(),
			Sent:       base.SentAt,
			Received:   base.ReceivedAt,
			Dispatched: mp.now().UnixMilli(),
		},
		RequestID: base.RequestID,
	}
}

func (mp *Mapper) eventMessage(base *models.MessageBase, raw []byte) (entities.EventMessage, error) {
	id := base.EventURN
	if id == nil {
		parsed, err := urn.Parse(base.EventID)
		if err != nil {
			return entities.EventMessage{}, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
		}
		id = &parsed
	}
	return entities.EventMessage{
		Header:     mp.header(base),
		Event:      mp.events.Build(*id, base.SportID, mp.cultures),
		RawMessage: raw,
	}, nil
}

func namedValue(cache *caching.NamedValueCache, id *int) *entities.NamedValue {
	if id == nil {
		return nil
	}
	desc, _ := cache.Description(*id)
	return &entities.NamedValue{ID: *id, Description: desc}
}

func msTime(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}
