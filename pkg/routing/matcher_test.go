package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"*.*.*.*.*.*.*.-.#", "hi.-.live.odds_change.5.sr:match.12345.-", true},
		{"*.*.*.*.*.*.*.7.#", "hi.-.live.odds_change.5.sr:match.12345.-", false},
		{"*.*.*.*.*.*.*.7.#", "hi.-.live.odds_change.5.sr:match.12345.7", true},
		{"*.*.live.*.*.*.*.-.#", "lo.pre.-.fixture_change.1.sr:match.1.-", false},
		{"*.pre.*.*.*.*.*.-.#", "lo.pre.-.fixture_change.1.sr:match.1.-", true},
		{"#.sr:match.12345", "hi.-.live.odds_change.5.sr:match.12345", true},
		{"#.sr:match.12345", "hi.-.live.odds_change.5.sr:match.12346", false},
		{"-.-.-.alive.#", "-.-.-.alive.-.-.-.-", true},
		{"-.-.-.alive.#", "-.-.-.alive", true},
		{"-.-.-.product_down.#", "-.-.-.alive.-.-.-.-", false},
		{"hi.*", "hi", false},
		{"#", "", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Matches(tt.pattern, tt.key), "%s ~ %s", tt.pattern, tt.key)
	}
}

func TestMatchesAny_GeneratedKeys(t *testing.T) {
	keys, err := GenerateKeys([]MessageInterest{LiveOnlyInterest()}, 0)
	assert.NoError(t, err)

	assert.True(t, MatchesAny(keys[0], "hi.-.live.odds_change.5.sr:match.1.-"))
	assert.True(t, MatchesAny(keys[0], "-.-.-.alive.-.-.-.-"))
	assert.True(t, MatchesAny(keys[0], "-.-.-.snapshot_complete.-.-.-.-"))
	assert.False(t, MatchesAny(keys[0], "lo.pre.-.odds_change.5.sr:match.1.-"))
}
