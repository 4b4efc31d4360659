package caching

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/urn"
)

const scheduleXML = `<tournament_schedule>
  <tournament id="sr:tournament:17" name="Premier League"/>
  <sport_events>
    <sport_event id="sr:match:100" scheduled="2024-01-01T15:00:00+00:00"/>
    <sport_event id="bogus"/>
    <sport_event id="sr:match:101" scheduled="2024-01-01T17:30:00+00:00"/>
  </sport_events>
</tournament_schedule>`

const summaryXML = `<match_summary>
  <sport_event id="sr:match:100">
    <competitors>
      <competitor qualifier="home" id="sr:competitor:1" name="Arsenal"/>
      <competitor qualifier="away" id="sr:competitor:2" name="Chelsea"/>
    </competitors>
  </sport_event>
</match_summary>`

func newSportEventsServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("x-access-token") != "token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/v1/sports/en/tournaments/sr:tournament:17/schedule.xml":
			w.Write([]byte(scheduleXML))
		case "/v1/sports/en/sport_events/sr:match:100/summary.xml":
			w.Write([]byte(summaryXML))
		case "/v1/sports/en/sport_events/sr:match:101/summary.xml":
			w.Write([]byte(`<match_summary><sport_event id="sr:match:101"/></match_summary>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAPISportEvents_FetchSchedule(t *testing.T) {
	var hits atomic.Int32
	srv := newSportEventsServer(t, &hits)
	api := NewAPISportEvents(common.NewNopLogger(), srv.URL+"/v1/", "token")

	ids, err := api.FetchSchedule(context.Background(), urn.MustParse("sr:tournament:17"), []string{"en"})
	require.NoError(t, err)
	assert.Equal(t, []urn.URN{urn.MustParse("sr:match:100"), urn.MustParse("sr:match:101")}, ids)

	_, err = api.FetchSchedule(context.Background(), urn.MustParse("sr:tournament:99"), nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAPISportEvents_Competitors(t *testing.T) {
	var hits atomic.Int32
	srv := newSportEventsServer(t, &hits)
	api := NewAPISportEvents(common.NewNopLogger(), srv.URL+"/v1", "token")
	event := urn.MustParse("sr:match:100")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			home, away, ok := api.Competitors(context.Background(), event, "en")
			assert.True(t, ok)
			assert.Equal(t, "Arsenal", home)
			assert.Equal(t, "Chelsea", away)
		}()
	}
	wg.Wait()
	cached := hits.Load()
	assert.LessOrEqual(t, cached, int32(5))

	_, _, ok := api.Competitors(context.Background(), event, "en")
	assert.True(t, ok)
	assert.Equal(t, cached, hits.Load(), "second lookup served from cache")

	api.Forget(event)
	_, _, ok = api.Competitors(context.Background(), event, "en")
	assert.True(t, ok)
	assert.Equal(t, cached+1, hits.Load())

	_, _, ok = api.Competitors(context.Background(), urn.MustParse("sr:match:101"), "en")
	assert.False(t, ok, "summary without competitors")

	_, _, ok = api.Competitors(context.Background(), urn.MustParse("sr:match:404"), "en")
	assert.False(t, ok)
}
