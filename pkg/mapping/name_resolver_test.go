package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveName(t *testing.T) {
	specs := map[string]string{"total": "2.5", "hcp": "1.5", "neg": "-1", "periodnr": "2", "goalnr": "11", "zero": "0"}
	rc := &ReplacementContext{Competitor1: "Home FC", Competitor2: "Away FC"}

	tests := []struct {
		template string
		rc       *ReplacementContext
		want     string
	}{
		{"1x2", nil, "1x2"},
		{"Total {total}", nil, "Total 2.5"},
		{"Handicap {+hcp}", nil, "Handicap +1.5"},
		{"Handicap {-hcp}", nil, "Handicap -1.5"},
		{"Handicap {-neg}", nil, "Handicap +1"},
		{"Handicap {+zero}", nil, "Handicap 0"},
		{"{!periodnr} period", nil, "2nd period"},
		{"{!goalnr} goal", nil, "11th goal"},
		{"{$competitor1} vs {$competitor2}", rc, "Home FC vs Away FC"},
		{"{$competitor1} total", nil, "{$competitor1} total"},
		{"{$venue}", rc, "{$venue}"},
		{"Missing {unknown}", nil, "Missing {unknown}"},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveName(tt.template, specs, tt.rc))
		})
	}
}

func TestToOrdinal(t *testing.T) {
	cases := map[string]string{
		"1": "1st", "2": "2nd", "3": "3rd", "4": "4th",
		"11": "11th", "12": "12th", "13": "13th",
		"21": "21st", "22": "22nd", "111": "111th", "x": "x",
	}
	for in, want := range cases {
		assert.Equal(t, want, toOrdinal(in), in)
	}
}
