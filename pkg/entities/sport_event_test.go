package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uof-sdk/pkg/urn"
)

type recordingRegistry struct {
	ids      []urn.URN
	cultures [][]string
}

func (r *recordingRegistry) TouchEvent(id urn.URN, cultures ...string) {
	r.ids = append(r.ids, id)
	r.cultures = append(r.cultures, cultures)
}

func TestSportEventFactory_Build(t *testing.T) {
	registry := &recordingRegistry{}
	f := NewSportEventFactory(registry)
	sport := urn.NewSportURN(1)
	cultures := []string{"en", "de"}

	event := f.Build(urn.MustParse("sr:match:9"), &sport, cultures)
	require.Len(t, registry.ids, 1)
	assert.Equal(t, urn.MustParse("sr:match:9"), registry.ids[0])
	assert.Equal(t, cultures, registry.cultures[0])
	assert.True(t, event.IsMatch())

	cultures[0] = "fr"
	sport.ID = 2
	assert.Equal(t, []string{"en", "de"}, event.Cultures)
	assert.Equal(t, int64(1), event.SportID.ID)
}

func TestSportEventFactory_NilRegistry(t *testing.T) {
	event := NewSportEventFactory(nil).Build(urn.MustParse("sr:stage:4"), nil, nil)
	assert.False(t, event.IsMatch())
	assert.Nil(t, event.SportID)
}

func TestSplitGroups(t *testing.T) {
	assert.Equal(t, []string{"all", "score"}, SplitGroups("all| score|"))
	assert.Nil(t, SplitGroups(""))
}

func TestEventOf(t *testing.T) {
	id := urn.MustParse("sr:match:1")
	event, ok := EventOf(OddsChange{EventMessage: EventMessage{Event: SportEvent{ID: id}}})
	assert.True(t, ok)
	assert.Equal(t, id, event.ID)

	_, ok = EventOf(Alive{})
	assert.False(t, ok)
}
