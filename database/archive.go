package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/models"
	"uof-sdk/pkg/producer"
	"uof-sdk/pkg/routing"
)

// 归档内容编码
const (
	EncodingXML  = "xml"
	EncodingZstd = "zstd"
)

const (
	writeTimeout   = 5 * time.Second
	pendingLimit   = 1024
	pendingMaxAge  = 30 * time.Second
	insertMessage  = `INSERT INTO uof_messages (message_type, event_id, product_id, sport_id, routing_key, encoding, payload, timestamp, received_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	upsertProducer = `
		INSERT INTO producer_status (product_id, status, reason, last_alive, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id)
		DO UPDATE SET
			status = $2,
			reason = $3,
			last_alive = $4,
			updated_at = $5
	`
)

type pendingKey struct {
	routingKey string
	at         time.Time
}

// MessageArchive 把通过接收检查的原始消息写入 uof_messages
// 作为会话观察者注册：OnRawMessageReceived 记下 routing key，OnMessageReceived 写入
type MessageArchive struct {
	db      Execer
	logger  common.Logger
	encoder *zstd.Encoder
	now     func() time.Time

	mu      sync.Mutex
	pending map[*models.MessageBase]pendingKey
}

// NewMessageArchive 创建归档器，compress 为 true 时 payload 使用 zstd 压缩
func NewMessageArchive(db Execer, logger common.Logger, compress bool) (*MessageArchive, error) {
	a := &MessageArchive{
		db:      db,
		logger:  logger,
		now:     time.Now,
		pending: make(map[*models.MessageBase]pendingKey),
	}
	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		a.encoder = enc
	}
	return a, nil
}

// OnRawMessageReceived 实现 ingestion.Listener
func (a *MessageArchive) OnRawMessageReceived(routingKey string, msg models.FeedMessage, sessionName string) {
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.pending) >= pendingLimit {
		for k, v := range a.pending {
			if now.Sub(v.at) > pendingMaxAge {
				delete(a.pending, k)
			}
		}
	}
	a.pending[msg.Base()] = pendingKey{routingKey: routingKey, at: now}
}

// OnMessageReceived 实现 ingestion.Listener
func (a *MessageArchive) OnMessageReceived(msg models.FeedMessage, raw []byte) {
	base := msg.Base()

	a.mu.Lock()
	key, ok := a.pending[base]
	delete(a.pending, base)
	a.mu.Unlock()
	if !ok {
		a.logger.Warn("[Archive] No routing key recorded for %s from producer %d", msg.Kind(), base.Product)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := a.Save(ctx, key.routingKey, msg, raw); err != nil {
		a.logger.Error("[Archive] Failed to archive %s: %v", msg.Kind(), err)
	}
}

// OnDeserializationFailed 实现 ingestion.Listener
func (a *MessageArchive) OnDeserializationFailed([]byte, error) {}

// Save 写入一条消息
func (a *MessageArchive) Save(ctx context.Context, routingKey string, msg models.FeedMessage, raw []byte) error {
	base := msg.Base()

	encoding, payload := EncodingXML, raw
	if a.encoder != nil {
		encoding, payload = EncodingZstd, a.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2))
	}

	var eventID, sportID *string
	if base.EventID != "" {
		eventID = &base.EventID
	}
	if base.SportID != nil {
		s := base.SportID.String()
		sportID = &s
	} else if sport, ok := routing.TryGetSportID(routingKey, string(msg.Kind())); ok {
		s := sport.String()
		sportID = &s
	}

	receivedAt := a.now()
	if base.ReceivedAt > 0 {
		receivedAt = time.UnixMilli(base.ReceivedAt)
	}

	_, err := a.db.ExecContext(ctx, insertMessage,
		string(msg.Kind()), eventID, base.Product, sportID, routingKey, encoding, payload, base.Timestamp, receivedAt)
	return err
}

// Pending 尚未写入的 routing key 数量
func (a *MessageArchive) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Close 释放压缩器
func (a *MessageArchive) Close() error {
	if a.encoder != nil {
		return a.encoder.Close()
	}
	return nil
}

// ProducerStatusWriter 把生产者上下线写入 producer_status
type ProducerStatusWriter struct {
	db     Execer
	logger common.Logger
	now    func() time.Time
}

// NewProducerStatusWriter 创建状态写入器
func NewProducerStatusWriter(db Execer, logger common.Logger) *ProducerStatusWriter {
	return &ProducerStatusWriter{db: db, logger: logger, now: time.Now}
}

// OnProducerDown 实现 feed.ProducerObserver
func (w *ProducerStatusWriter) OnProducerDown(p producer.Producer, reason string) {
	w.write(p, "down", reason)
}

// OnProducerUp 实现 feed.ProducerObserver
func (w *ProducerStatusWriter) OnProducerUp(p producer.Producer) {
	w.write(p, "up", "")
}

func (w *ProducerStatusWriter) write(p producer.Producer, status, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var lastAlive int64
	if !p.LastAlive.IsZero() {
		lastAlive = p.LastAlive.UnixMilli()
	}
	if _, err := w.db.ExecContext(ctx, upsertProducer, p.ID, status, reason, lastAlive, w.now()); err != nil {
		w.logger.Error("[Archive] Failed to store status of producer %d: %v", p.ID, err)
	}
}
