package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSportID(t *testing.T) {
	got, err := GetSportID("hi.-.live.odds_change.5.sr:match.12345.-", "odds_change")
	require.NoError(t, err)
	assert.Equal(t, "sr:sport:5", got.String())

	got, err = GetSportID("lo.pre.-.bet_settlement.21.sr:match.9.4", "bet_settlement")
	require.NoError(t, err)
	assert.Equal(t, int64(21), got.ID)
}

func TestTryGetSportID_Malformed(t *testing.T) {
	tests := []struct {
		name string
		key  string
		kind string
	}{
		{name: "missing sport segment", key: "hi.-.live.odds_change", kind: "odds_change"},
		{name: "non numeric sport", key: "hi.-.live.odds_change.-.sr:match.1.-", kind: "odds_change"},
		{name: "other message type", key: "hi.-.live.bet_stop.5.sr:match.1.-", kind: "odds_change"},
		{name: "empty", key: "", kind: "alive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := TryGetSportID(tt.key, tt.kind)
			assert.False(t, ok)

			_, err := GetSportID(tt.key, tt.kind)
			assert.ErrorIs(t, err, ErrRoutingKeyFormat)
		})
	}
}
