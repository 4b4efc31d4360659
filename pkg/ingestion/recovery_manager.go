package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/models"
	"uof-sdk/pkg/producer"
)

// MaxRecoveryWindow 恢复请求 after 参数允许的最大时间窗口
const MaxRecoveryWindow = 10 * time.Hour

// ProducerStateUpdater 恢复完成后更新生产者状态
type ProducerStateUpdater interface {
	producer.Manager
	SetAvailable(id int, available bool) error
}

// RecoveryManager 发起生产者恢复请求，并在收到对应 snapshot_complete 后恢复生产者可用状态
type RecoveryManager struct {
	logger     common.Logger
	apiBaseURL string
	token      string
	nodeID     int
	client     *http.Client
	producers  ProducerStateUpdater

	mu            sync.Mutex
	nextRequestID int64
	pending       map[int64]int // request_id -> producer id
}

// NewRecoveryManager 创建恢复管理器
func NewRecoveryManager(logger common.Logger, apiBaseURL, token string, nodeID int, producers ProducerStateUpdater) *RecoveryManager {
	return &RecoveryManager{
		logger:        logger,
		apiBaseURL:    strings.TrimSuffix(apiBaseURL, "/"),
		token:         token,
		nodeID:        nodeID,
		client:        &http.Client{Timeout: 30 * time.Second},
		producers:     producers,
		nextRequestID: time.Now().Unix(),
		pending:       make(map[int64]int),
	}
}

// RequestRecovery 请求生产者恢复，after 为零值时由服务端决定范围
// 请求期间生产者标记为不可用，请求失败时保持不可用
func (m *RecoveryManager) RequestRecovery(ctx context.Context, producerID int, after time.Time) (int64, error) {
	p, ok := m.producers.Get(producerID)
	if !ok {
		return 0, fmt.Errorf("producer %d: %w", producerID, common.ErrNotFound)
	}
	if p.APIPath == "" {
		return 0, fmt.Errorf("producer %d has no recovery path: %w", producerID, common.ErrInvalidInput)
	}

	m.mu.Lock()
	for id, pid := range m.pending {
		if pid == producerID {
			m.mu.Unlock()
			m.logger.Debug("[Recovery] Recovery for producer %d already pending (request_id=%d)", producerID, id)
			return id, nil
		}
	}
	m.nextRequestID++
	requestID := m.nextRequestID
	m.pending[requestID] = producerID
	m.mu.Unlock()

	q := url.Values{}
	q.Set("request_id", fmt.Sprint(requestID))
	if m.nodeID != 0 {
		q.Set("node_id", fmt.Sprint(m.nodeID))
	}
	// liveodds 对 after 参数敏感，不传
	if !after.IsZero() && p.APIPath != "liveodds" {
		if min := time.Now().Add(-MaxRecoveryWindow); after.Before(min) {
			m.logger.Warn("[Recovery] after=%s exceeds the recovery window, using %s", after.Format(time.RFC3339), min.Format(time.RFC3339))
			after = min
		}
		q.Set("after", fmt.Sprint(after.UnixMilli()))
	}
	endpoint := fmt.Sprintf("%s/%s/recovery/initiate_request?%s", m.apiBaseURL, p.APIPath, q.Encode())

	// 先标记不可用，避免 snapshot_complete 先于请求返回
	_ = m.producers.SetAvailable(producerID, false)
	if err := m.post(ctx, endpoint); err != nil {
		m.mu.Lock()
		delete(m.pending, requestID)
		m.mu.Unlock()
		return 0, fmt.Errorf("recovery for producer %d: %w", producerID, err)
	}

	m.logger.Info("[Recovery] Requested recovery for producer %d (%s) request_id=%d", producerID, p.Name, requestID)
	return requestID, nil
}

// RequestEventRecovery 请求单个赛事的赔率恢复
func (m *RecoveryManager) RequestEventRecovery(ctx context.Context, producerID int, eventID string) error {
	p, ok := m.producers.Get(producerID)
	if !ok {
		return fmt.Errorf("producer %d: %w", producerID, common.ErrNotFound)
	}
	endpoint := fmt.Sprintf("%s/%s/odds/events/%s/initiate_request", m.apiBaseURL, p.APIPath, eventID)
	if err := m.post(ctx, endpoint); err != nil {
		return fmt.Errorf("event recovery for %s: %w", eventID, err)
	}
	m.logger.Info("[Recovery] Requested event recovery for %s on producer %d", eventID, producerID)
	return nil
}

// Pending 未完成的恢复请求数量
func (m *RecoveryManager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *RecoveryManager) post(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-access-token", m.token)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// OnRawMessageReceived 监听 snapshot_complete，在生产者过滤之前调用
func (m *RecoveryManager) OnRawMessageReceived(routingKey string, msg models.FeedMessage, sessionName string) {
	sc, ok := msg.(*models.SnapshotComplete)
	if !ok || sc.RequestID == nil {
		return
	}

	m.mu.Lock()
	producerID, found := m.pending[*sc.RequestID]
	if found && producerID == sc.Product {
		delete(m.pending, *sc.RequestID)
	}
	m.mu.Unlock()

	if !found || producerID != sc.Product {
		return
	}
	if err := m.producers.SetAvailable(producerID, true); err != nil {
		m.logger.Warn("[Recovery] Failed to mark producer %d available: %v", producerID, err)
		return
	}
	m.logger.Info("[Recovery] Producer %d recovered (request_id=%d, session=%s)", producerID, *sc.RequestID, sessionName)
}

// OnMessageReceived 实现 Listener
func (m *RecoveryManager) OnMessageReceived(models.FeedMessage, []byte) {}

// OnDeserializationFailed 实现 Listener
func (m *RecoveryManager) OnDeserializationFailed([]byte, error) {}
