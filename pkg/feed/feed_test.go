package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/entities"
	"uof-sdk/pkg/ingestion"
	"uof-sdk/pkg/models"
	"uof-sdk/pkg/producer"
	"uof-sdk/pkg/routing"
	"uof-sdk/pkg/urn"
)

const (
	aliveKey    = "-.-.-.alive.-.-.-.-"
	snapshotKey = "-.-.-.snapshot_complete.-.-.-.-"
)

type collector struct {
	mu       sync.Mutex
	messages []entities.Message
}

func (c *collector) handle(ctx context.Context, msg entities.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	return nil
}

func (c *collector) kinds() []models.MessageKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.MessageKind, 0, len(c.messages))
	for _, m := range c.messages {
		out = append(out, m.Kind())
	}
	return out
}

type observer struct {
	mu   sync.Mutex
	down []string
	up   []int
}

func (o *observer) OnProducerDown(p producer.Producer, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.down = append(o.down, reason)
}

func (o *observer) OnProducerUp(p producer.Producer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.up = append(o.up, p.ID)
}

func (o *observer) counts() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.down), len(o.up)
}

type testFeed struct {
	*Feed
	exchange   *ingestion.MemoryExchange
	transports *atomic.Int32
}

func newTestFeed(t *testing.T, cfg Config) *testFeed {
	t.Helper()
	logger := common.NewNopLogger()
	exchange := ingestion.NewMemoryExchange(logger)
	created := &atomic.Int32{}
	if len(cfg.Cultures) == 0 {
		cfg.Cultures = []string{"en"}
	}

	f, err := New(logger, cfg, Dependencies{
		Transports: func(string) ingestion.MessageTransport {
			created.Add(1)
			return exchange.NewTransport()
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return &testFeed{Feed: f, exchange: exchange, transports: created}
}

func (tf *testFeed) publish(key, body string) int {
	return tf.exchange.Publish(key, []byte(body), nil)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(common.NewNopLogger(), Config{Cultures: []string{"en"}}, Dependencies{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = New(common.NewNopLogger(), Config{}, Dependencies{Transports: func(string) ingestion.MessageTransport { return nil }})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestFeed_OpenRejectsInvalidInterestsBeforeOpeningTransports(t *testing.T) {
	f := newTestFeed(t, Config{})
	_, err := f.CreateSession("lo", routing.LowPriorityInterest(), nil)
	require.NoError(t, err)
	_, err = f.CreateSession("live", routing.LiveOnlyInterest(), nil)
	require.NoError(t, err)

	err = f.Open(context.Background())
	assert.ErrorIs(t, err, routing.ErrInvalidInterests)
	assert.Equal(t, int32(0), f.transports.Load())
	assert.ErrorIs(t, f.Open(context.Background()), common.ErrInvalidInput)
}

func TestFeed_SessionLifecycle(t *testing.T) {
	f := newTestFeed(t, Config{})
	assert.ErrorIs(t, f.Open(context.Background()), common.ErrInvalidInput, "no sessions")

	s, err := f.CreateSession("", routing.AllMessagesInterest(), nil)
	require.NoError(t, err)
	assert.Contains(t, s.Name(), "session-")
	_, err = f.CreateSession(s.Name(), routing.LiveOnlyInterest(), nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	require.NoError(t, f.Open(context.Background()))
	assert.ErrorIs(t, f.Open(context.Background()), common.ErrAlreadyConnected)
	_, err = f.CreateSession("late", routing.LiveOnlyInterest(), nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	status := f.Sessions()
	require.Len(t, status, 1)
	assert.True(t, status[0].Opened)
	assert.Contains(t, status[0].RoutingKeys, "*.*.*.*.*.*.*.-.#")

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.False(t, f.Sessions()[0].Opened)
}

func TestFeed_RoutesBySessionInterest(t *testing.T) {
	f := newTestFeed(t, Config{})
	live, pre := &collector{}, &collector{}
	_, err := f.CreateSession("live", routing.LiveOnlyInterest(), live.handle)
	require.NoError(t, err)
	_, err = f.CreateSession("pre", routing.PrematchOnlyInterest(), pre.handle)
	require.NoError(t, err)
	require.NoError(t, f.Open(context.Background()))

	f.publish("hi.-.live.odds_change.1.sr:match.1.-", `<odds_change product="1" event_id="sr:match:1" timestamp="1000"/>`)
	f.publish("lo.pre.-.bet_settlement.1.sr:match.2.-", `<bet_settlement product="3" event_id="sr:match:2" timestamp="1000" certainty="2"/>`)
	f.publish(aliveKey, `<alive product="3" timestamp="1000" subscribed="1"/>`)

	assert.Equal(t, []models.MessageKind{models.KindOddsChange, models.KindAlive}, live.kinds())
	assert.Equal(t, []models.MessageKind{models.KindBetSettlement, models.KindAlive}, pre.kinds())

	oc := live.messages[0].(entities.OddsChange)
	require.NotNil(t, oc.Event.SportID)
	assert.Equal(t, urn.NewSportURN(1), *oc.Event.SportID)
}

func TestFeed_FixtureChangeDispatchedOnceAcrossSessions(t *testing.T) {
	f := newTestFeed(t, Config{})
	all := &collector{}
	_, err := f.CreateSession("live", routing.LiveOnlyInterest(), all.handle)
	require.NoError(t, err)
	_, err = f.CreateSession("pre", routing.PrematchOnlyInterest(), all.handle)
	require.NoError(t, err)
	require.NoError(t, f.Open(context.Background()))

	delivered := f.publish("hi.pre.live.fixture_change.1.sr:match.9.-", `<fixture_change product="3" event_id="sr:match:9" timestamp="77"/>`)
	assert.Equal(t, 2, delivered)
	assert.Equal(t, []models.MessageKind{models.KindFixtureChange}, all.kinds())
}

func TestFeed_ProducerDownAndUpWithoutRecovery(t *testing.T) {
	f := newTestFeed(t, Config{})
	got := &collector{}
	obs := &observer{}
	f.AddProducerObserver(obs)
	_, err := f.CreateSession("all", routing.AllMessagesInterest(), got.handle)
	require.NoError(t, err)
	require.NoError(t, f.Open(context.Background()))

	f.publish(aliveKey, `<alive product="1" timestamp="1000" subscribed="0"/>`)
	f.publish("hi.-.live.odds_change.1.sr:match.1.-", `<odds_change product="1" event_id="sr:match:1" timestamp="1001"/>`)
	assert.Empty(t, got.kinds(), "messages from an unavailable producer are dropped")

	f.publish(aliveKey, `<alive product="1" timestamp="2000" subscribed="1"/>`)
	f.publish("hi.-.live.odds_change.1.sr:match.1.-", `<odds_change product="1" event_id="sr:match:1" timestamp="2001"/>`)
	assert.Equal(t, []models.MessageKind{models.KindAlive, models.KindOddsChange}, got.kinds())

	down, up := obs.counts()
	assert.Equal(t, 1, down)
	assert.Equal(t, 1, up)
	assert.Equal(t, []string{"subscribed=0"}, obs.down)
}

func TestFeed_RecoveryOnProducerReturn(t *testing.T) {
	var requestID atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID.Store(r.URL.Query().Get("request_id"))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	f := newTestFeed(t, Config{AutoRecovery: true, APIBaseURL: srv.URL, AccessToken: "token"})
	obs := &observer{}
	f.AddProducerObserver(obs)
	_, err := f.CreateSession("all", routing.AllMessagesInterest(), nil)
	require.NoError(t, err)
	require.NoError(t, f.Open(context.Background()))
	require.NotNil(t, f.Recovery())

	f.publish(aliveKey, `<alive product="3" timestamp="1000" subscribed="0"/>`)
	f.publish(aliveKey, `<alive product="3" timestamp="2000" subscribed="1"/>`)
	require.Eventually(t, func() bool { return requestID.Load() != nil }, 2*time.Second, 10*time.Millisecond)

	p, _ := f.producers.Get(3)
	assert.False(t, p.IsAvailable, "producer stays unavailable until the snapshot completes")

	f.publish(snapshotKey, `<snapshot_complete product="3" timestamp="3000" request_id="`+requestID.Load().(string)+`"/>`)
	p, _ = f.producers.Get(3)
	assert.True(t, p.IsAvailable)
	assert.Equal(t, 0, f.Recovery().Pending())

	down, up := obs.counts()
	assert.Equal(t, 1, down)
	assert.Equal(t, 1, up)
}

func TestFeed_ExtraListenersSeeRawMessages(t *testing.T) {
	f := newTestFeed(t, Config{})
	var raw atomic.Int32
	f.AddListener(ingestion.ListenerFuncs{
		RawMessageReceived: func(string, models.FeedMessage, string) { raw.Add(1) },
	})
	_, err := f.CreateSession("all", routing.AllMessagesInterest(), nil)
	require.NoError(t, err)
	require.NoError(t, f.Open(context.Background()))

	f.publish(aliveKey, `<alive product="999" timestamp="1" subscribed="1"/>`)
	assert.Equal(t, int32(1), raw.Load())
}
