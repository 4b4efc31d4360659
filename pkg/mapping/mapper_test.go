package mapping

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uof-sdk/pkg/caching"
	"uof-sdk/pkg/common"
	"uof-sdk/pkg/entities"
	"uof-sdk/pkg/models"
	"uof-sdk/pkg/urn"
)

const testDescriptions = `<market_descriptions response_code="OK">
  <market id="18" name="Total {total}">
    <outcomes>
      <outcome id="12" name="over {total}"/>
      <outcome id="13" name="under {total}"/>
    </outcomes>
    <specifiers><specifier name="total" type="decimal"/></specifiers>
  </market>
  <market id="1" name="1x2">
    <outcomes>
      <outcome id="1" name="{$competitor1}"/>
      <outcome id="2" name="draw"/>
      <outcome id="3" name="{$competitor2}"/>
    </outcomes>
  </market>
</market_descriptions>`

type staticCompetitors struct{}

func (staticCompetitors) Competitors(ctx context.Context, eventID urn.URN, culture string) (string, string, bool) {
	return "Home FC", "Away FC", true
}

type touchRecorder struct {
	touched []urn.URN
}

func (r *touchRecorder) TouchEvent(id urn.URN, cultures ...string) {
	r.touched = append(r.touched, id)
}

func newTestMapper(t *testing.T, registry entities.EventRegistry) *Mapper {
	t.Helper()
	descs := caching.NewMemoryMarketDescriptions()
	_, err := descs.LoadXML("en", strings.NewReader(testDescriptions))
	require.NoError(t, err)

	markets := NewMarketFactory(common.NewNopLogger(), descs, staticCompetitors{}, nil)
	m := NewMapper(entities.NewSportEventFactory(registry), markets, nil, []string{"en"})
	m.now = func() time.Time { return time.UnixMilli(5000) }
	return m
}

func deserialize(t *testing.T, body string) models.FeedMessage {
	t.Helper()
	msg, err := models.Deserialize([]byte(body))
	require.NoError(t, err)
	if msg.IsEventRelated() {
		sport := urn.NewSportURN(1)
		msg.Base().SportID = &sport
	}
	return msg
}

func TestMapper_OddsChange(t *testing.T) {
	registry := &touchRecorder{}
	m := newTestMapper(t, registry)
	raw := `<odds_change product="1" event_id="sr:match:1" timestamp="1000" odds_change_reason="1">
		<odds betstop_reason="2" betting_status="1">
			<market id="18" specifiers="total=2.5" favourite="1">
				<outcome id="12" odds="1.85" probabilities="0.52" active="1"/>
				<outcome id="13" odds="1.95" active="0" win_probabilities="0.4"/>
			</market>
			<market id="1" status="0">
				<outcome id="1" odds="2.1"/>
				<outcome id="9" odds="3.3" team="2"/>
			</market>
		</odds>
	</odds_change>`
	msg := deserialize(t, raw)
	msg.Base().SentAt = 2000
	msg.Base().ReceivedAt = 3000

	out, err := m.Map(context.Background(), msg, []byte(raw))
	require.NoError(t, err)
	oc, ok := out.(entities.OddsChange)
	require.True(t, ok)

	assert.Equal(t, entities.MessageTimestamp{Created: 1000, Sent: 2000, Received: 3000, Dispatched: 5000}, oc.Timestamps())
	assert.Equal(t, 1, oc.ProducerID())
	assert.Equal(t, urn.MustParse("sr:match:1"), oc.Event.ID)
	assert.Equal(t, []urn.URN{urn.MustParse("sr:match:1")}, registry.touched)
	require.NotNil(t, oc.BetstopReason)
	assert.Equal(t, "betstop reason 2", oc.BetstopReason.Description)
	require.NotNil(t, oc.BettingStatus)
	assert.Equal(t, 1, oc.BettingStatus.ID)

	require.Len(t, oc.Markets, 2)
	total := oc.Markets[0]
	assert.Equal(t, "Total 2.5", total.Name("en"))
	assert.Equal(t, models.MarketStatusActive, total.Status)
	assert.True(t, total.IsFavourite)
	require.Len(t, total.Outcomes, 2)

	over := total.Outcomes[0].Outcome()
	assert.Equal(t, "over 2.5", over.Name("en"))
	require.NotNil(t, over.Active)
	assert.True(t, *over.Active)
	assert.Nil(t, over.Additional)

	under := total.Outcomes[1].Outcome()
	assert.False(t, *under.Active)
	require.NotNil(t, under.Additional)
	assert.Equal(t, 0.4, *under.Additional.Win)
	assert.Nil(t, under.Additional.Refund)

	winner := oc.Markets[1]
	assert.Equal(t, models.MarketStatusInactive, winner.Status)
	assert.Equal(t, "Home FC", winner.Outcomes[0].Outcome().Name("en"))
	player, ok := winner.Outcomes[1].(*entities.PlayerOutcomeOdds)
	require.True(t, ok)
	assert.False(t, player.IsHomeTeam())
	assert.Equal(t, "9", player.Name("en"))
}

func TestMapper_PlayerOutcomeOnlyOnMatch(t *testing.T) {
	m := newTestMapper(t, nil)
	msg := deserialize(t, `<odds_change product="1" event_id="sr:stage:3" timestamp="1">
		<odds><market id="40"><outcome id="1" odds="2.0" team="1"/></market></odds>
	</odds_change>`)

	out, err := m.Map(context.Background(), msg, nil)
	require.NoError(t, err)
	oc := out.(entities.OddsChange)
	require.Len(t, oc.Markets, 1)
	_, isPlayer := oc.Markets[0].Outcomes[0].(*entities.PlayerOutcomeOdds)
	assert.False(t, isPlayer)
	assert.Equal(t, "Market 40", oc.Markets[0].Name("en"))
}

func TestMapper_SkipsFailedMarkets(t *testing.T) {
	m := newTestMapper(t, nil)
	msg := deserialize(t, `<bet_settlement product="1" event_id="sr:match:1" timestamp="1" certainty="2">
		<outcomes>
			<market id="18" specifiers="total=2.5"><outcome id="12" result="1" dead_heat_factor="0.5"/></market>
			<market id="18" specifiers="total=3.5"><outcome id="13" result="0"/></market>
		</outcomes>
	</bet_settlement>`)
	bs := msg.(*models.BetSettlement)
	bs.Markets[1].ValidationFailed = true

	out, err := m.Map(context.Background(), msg, nil)
	require.NoError(t, err)
	settlement := out.(entities.BetSettlement)
	require.Len(t, settlement.Markets, 1)
	o := settlement.Markets[0].Outcomes[0]
	assert.Equal(t, entities.OutcomeWon, o.Result)
	assert.Equal(t, "over 2.5", o.Names["en"])
	require.NotNil(t, o.DeadHeatFactor)
	assert.Equal(t, 0.5, *o.DeadHeatFactor)
}

func TestMapper_BetStopDefaultsToSuspended(t *testing.T) {
	m := newTestMapper(t, nil)

	out, err := m.Map(context.Background(), deserialize(t, `<bet_stop product="1" event_id="sr:match:1" timestamp="1" groups="all|score"/>`), nil)
	require.NoError(t, err)
	bs := out.(entities.BetStop)
	assert.Equal(t, models.MarketStatusSuspended, bs.MarketStatus)
	assert.Equal(t, []string{"all", "score"}, bs.Groups)

	out, err = m.Map(context.Background(), deserialize(t, `<bet_stop product="1" event_id="sr:match:1" timestamp="1" groups="all" market_status="0"/>`), nil)
	require.NoError(t, err)
	assert.Equal(t, models.MarketStatusInactive, out.(entities.BetStop).MarketStatus)
}

func TestMapper_BetCancel(t *testing.T) {
	m := newTestMapper(t, nil)
	msg := deserialize(t, `<bet_cancel product="3" event_id="sr:match:1" timestamp="1" start_time="1700000000000" superceded_by="sr:match:2">
		<market id="18" specifiers="total=2.5" void_reason="12"/>
	</bet_cancel>`)

	out, err := m.Map(context.Background(), msg, nil)
	require.NoError(t, err)
	bc := out.(entities.BetCancel)
	require.NotNil(t, bc.StartTime)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), *bc.StartTime)
	assert.Nil(t, bc.EndTime)
	require.NotNil(t, bc.SupercededBy)
	assert.Equal(t, urn.MustParse("sr:match:2"), *bc.SupercededBy)
	require.Len(t, bc.Markets, 1)
	assert.Equal(t, "void reason 12", bc.Markets[0].VoidReasonDescription)
}

func TestMapper_SystemMessages(t *testing.T) {
	m := newTestMapper(t, nil)

	out, err := m.Map(context.Background(), deserialize(t, `<snapshot_complete product="3" timestamp="1" request_id="42"/>`), nil)
	require.NoError(t, err)
	sc := out.(entities.SnapshotCompleted)
	require.NotNil(t, sc.RequestID)
	assert.Equal(t, int64(42), *sc.RequestID)

	out, err = m.Map(context.Background(), deserialize(t, `<alive product="1" timestamp="1" subscribed="0"/>`), nil)
	require.NoError(t, err)
	assert.False(t, out.(entities.Alive).Subscribed)
}

type unsupported struct {
	models.MessageBase
}

func (unsupported) Kind() models.MessageKind { return "unsupported" }

func TestMapper_Errors(t *testing.T) {
	m := newTestMapper(t, nil)

	_, err := m.Map(context.Background(), &unsupported{}, nil)
	assert.ErrorIs(t, err, common.ErrUnsupportedMessage)

	_, err = m.Map(context.Background(), deserialize(t, `<bet_stop product="1" event_id="bogus" timestamp="1"/>`), nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
