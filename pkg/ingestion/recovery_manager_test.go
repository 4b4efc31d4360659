package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/models"
	"uof-sdk/pkg/producer"
)

type recoveryServer struct {
	mu       sync.Mutex
	requests []*http.Request
	status   int
}

func (s *recoveryServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r)
	status := s.status
	s.mu.Unlock()
	if status == 0 {
		status = http.StatusAccepted
	}
	w.WriteHeader(status)
}

func newTestRecovery(t *testing.T) (*RecoveryManager, *producer.Registry, *recoveryServer) {
	t.Helper()
	logger := common.NewNopLogger()
	srv := &recoveryServer{}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	registry := producer.NewRegistry(logger, producer.DefaultProducers())
	return NewRecoveryManager(logger, ts.URL+"/", "secret", 7, registry), registry, srv
}

func TestRecoveryManager_RequestAndComplete(t *testing.T) {
	m, registry, srv := newTestRecovery(t)

	after := time.Now().Add(-time.Hour)
	requestID, err := m.RequestRecovery(context.Background(), 3, after)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Pending())

	require.Len(t, srv.requests, 1)
	req := srv.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/pre/recovery/initiate_request", req.URL.Path)
	assert.Equal(t, "secret", req.Header.Get("x-access-token"))
	assert.Equal(t, "7", req.URL.Query().Get("node_id"))
	assert.NotEmpty(t, req.URL.Query().Get("after"))

	p, _ := registry.Get(3)
	assert.False(t, p.IsAvailable)

	// 同一生产者重复请求复用 request_id
	again, err := m.RequestRecovery(context.Background(), 3, after)
	require.NoError(t, err)
	assert.Equal(t, requestID, again)
	assert.Len(t, srv.requests, 1)

	// 其他 request_id 的 snapshot_complete 忽略
	other := requestID + 100
	m.OnRawMessageReceived("-.-.-.snapshot_complete.-.-.-.-", &models.SnapshotComplete{MessageBase: models.MessageBase{Product: 3, RequestID: &other}}, "s")
	p, _ = registry.Get(3)
	assert.False(t, p.IsAvailable)

	m.OnRawMessageReceived("-.-.-.snapshot_complete.-.-.-.-", &models.SnapshotComplete{MessageBase: models.MessageBase{Product: 3, RequestID: &requestID}}, "s")
	p, _ = registry.Get(3)
	assert.True(t, p.IsAvailable)
	assert.Equal(t, 0, m.Pending())
}

func TestRecoveryManager_LiveOddsOmitsAfter(t *testing.T) {
	m, _, srv := newTestRecovery(t)

	_, err := m.RequestRecovery(context.Background(), 1, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, srv.requests, 1)
	assert.Equal(t, "/liveodds/recovery/initiate_request", srv.requests[0].URL.Path)
	assert.Empty(t, srv.requests[0].URL.Query().Get("after"))
}

func TestRecoveryManager_AfterIsClamped(t *testing.T) {
	m, _, srv := newTestRecovery(t)

	before := time.Now()
	_, err := m.RequestRecovery(context.Background(), 3, before.Add(-48*time.Hour))
	require.NoError(t, err)

	var after int64
	_, err = fmt.Sscan(srv.requests[0].URL.Query().Get("after"), &after)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, after, before.Add(-MaxRecoveryWindow).UnixMilli())
}

func TestRecoveryManager_Errors(t *testing.T) {
	m, registry, srv := newTestRecovery(t)

	_, err := m.RequestRecovery(context.Background(), 999, time.Time{})
	assert.ErrorIs(t, err, common.ErrNotFound)

	srv.mu.Lock()
	srv.status = http.StatusForbidden
	srv.mu.Unlock()
	_, err = m.RequestRecovery(context.Background(), 3, time.Time{})
	require.Error(t, err)
	assert.Equal(t, 0, m.Pending())

	p, _ := registry.Get(3)
	assert.False(t, p.IsAvailable, "failed request leaves producer unavailable")
}

func TestRecoveryManager_EventRecovery(t *testing.T) {
	m, _, srv := newTestRecovery(t)

	require.NoError(t, m.RequestEventRecovery(context.Background(), 1, "sr:match:42"))
	require.Len(t, srv.requests, 1)
	assert.Equal(t, "/liveodds/odds/events/sr:match:42/initiate_request", srv.requests[0].URL.Path)
}
