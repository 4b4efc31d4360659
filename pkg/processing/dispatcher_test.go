package processing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/entities"
	"uof-sdk/pkg/models"
	"uof-sdk/pkg/urn"
)

func eventMessage(id string, sport int64) entities.EventMessage {
	s := urn.NewSportURN(sport)
	return entities.EventMessage{
		Header: entities.Header{Producer: 1},
		Event:  entities.SportEvent{ID: urn.MustParse(id), SportID: &s},
	}
}

func TestDispatcher_OrderAndIsolation(t *testing.T) {
	d := NewDispatcher(common.NewNopLogger())
	var calls []string

	record := func(id string, err error, panicking bool) Subscriber {
		return Subscriber{ID: id, Handler: func(ctx context.Context, msg entities.Message) error {
			calls = append(calls, id)
			if panicking {
				panic("handler exploded")
			}
			return err
		}}
	}
	require.NoError(t, d.Subscribe(record("first", nil, false)))
	require.NoError(t, d.Subscribe(record("failing", errors.New("boom"), false)))
	require.NoError(t, d.Subscribe(record("panicking", nil, true)))
	require.NoError(t, d.Subscribe(record("last", nil, false)))

	n := d.Dispatch(context.Background(), entities.BetStop{EventMessage: eventMessage("sr:match:1", 1)})
	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"first", "failing", "panicking", "last"}, calls)
}

func TestDispatcher_SubscribeUnsubscribe(t *testing.T) {
	d := NewDispatcher(common.NewNopLogger())
	noop := func(context.Context, entities.Message) error { return nil }

	require.NoError(t, d.Subscribe(Subscriber{ID: "a", Handler: noop}))
	assert.ErrorIs(t, d.Subscribe(Subscriber{ID: "a", Handler: noop}), common.ErrInvalidInput)
	assert.Equal(t, 1, d.SubscriberCount())

	require.NoError(t, d.Unsubscribe("a"))
	assert.ErrorIs(t, d.Unsubscribe("a"), common.ErrNotFound)
	assert.Equal(t, 0, d.Dispatch(context.Background(), entities.Alive{}))
}

func TestDispatcher_Filters(t *testing.T) {
	soccer := urn.NewSportURN(1)
	tests := []struct {
		name   string
		filter SubscriptionFilter
		msg    entities.Message
		want   bool
	}{
		{"empty filter matches all", SubscriptionFilter{}, entities.Alive{}, true},
		{"kind match", SubscriptionFilter{Kinds: []models.MessageKind{models.KindOddsChange}}, entities.OddsChange{EventMessage: eventMessage("sr:match:1", 1)}, true},
		{"kind mismatch", SubscriptionFilter{Kinds: []models.MessageKind{models.KindOddsChange}}, entities.BetStop{EventMessage: eventMessage("sr:match:1", 1)}, false},
		{"sport match", SubscriptionFilter{SportIDs: []urn.URN{soccer}}, entities.BetSettlement{EventMessage: eventMessage("sr:match:1", 1)}, true},
		{"sport mismatch", SubscriptionFilter{SportIDs: []urn.URN{soccer}}, entities.BetSettlement{EventMessage: eventMessage("sr:match:1", 2)}, false},
		{"event match", SubscriptionFilter{EventIDs: []urn.URN{urn.MustParse("sr:match:7")}}, entities.FixtureChange{EventMessage: eventMessage("sr:match:7", 1)}, true},
		{"event mismatch", SubscriptionFilter{EventIDs: []urn.URN{urn.MustParse("sr:match:7")}}, entities.BetCancel{EventMessage: eventMessage("sr:match:8", 1)}, false},
		{"system message excluded by sport filter", SubscriptionFilter{SportIDs: []urn.URN{soccer}}, entities.SnapshotCompleted{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(common.NewNopLogger())
			called := false
			require.NoError(t, d.Subscribe(Subscriber{ID: "s", Filter: tt.filter, Handler: func(context.Context, entities.Message) error {
				called = true
				return nil
			}}))
			n := d.Dispatch(context.Background(), tt.msg)
			assert.Equal(t, tt.want, called)
			assert.Equal(t, tt.want, n == 1)
		})
	}
}
