package processing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/metrics"
	"uof-sdk/pkg/models"
)

// ErrDropped 消息被管道丢弃 (校验失败或重复)
var ErrDropped = errors.New("message dropped")

// Pipeline 单个会话的处理管道: Validate -> CacheProcess -> Map -> Dispatch
// 作为接收器的观察者运行在投递 goroutine 上，保持通道内顺序
type Pipeline struct {
	session    string
	logger     common.Logger
	validator  MessageValidator
	cache      CacheProcessor
	mapper     MessageMapper
	dispatcher MessageDispatcher
}

// NewPipeline 创建处理管道
func NewPipeline(session string, logger common.Logger, validator MessageValidator, cache CacheProcessor, mapper MessageMapper, dispatcher MessageDispatcher) *Pipeline {
	return &Pipeline{
		session:    session,
		logger:     logger,
		validator:  validator,
		cache:      cache,
		mapper:     mapper,
		dispatcher: dispatcher,
	}
}

// Process 处理一条消息，被丢弃时返回 ErrDropped
func (p *Pipeline) Process(ctx context.Context, msg models.FeedMessage, raw []byte) error {
	start := time.Now()
	kind := string(msg.Kind())

	result, err := p.validator.Validate(ctx, msg)
	if err != nil {
		return fmt.Errorf("validate %s: %w", kind, err)
	}
	metrics.ValidationResults.WithLabelValues(kind, result.String()).Inc()
	switch result {
	case ValidationFailure:
		p.logger.Warn("[Pipeline] Session %s: %s %s failed validation, dropped", p.session, kind, msg.Base().EventID)
		metrics.MessagesDropped.WithLabelValues(metrics.DropValidationFailure).Inc()
		return fmt.Errorf("%w: %s failed validation", ErrDropped, kind)
	case ValidationProblemsDetected:
		p.logger.Info("[Pipeline] Session %s: problems detected in %s %s", p.session, kind, msg.Base().EventID)
	}

	outcome, err := p.cache.Process(ctx, msg)
	if err != nil {
		return fmt.Errorf("cache %s: %w", kind, err)
	}
	if outcome.DuplicateFixtureChange {
		p.logger.Debug("[Pipeline] Session %s: duplicate fixture_change for %s", p.session, msg.Base().EventID)
		metrics.MessagesDropped.WithLabelValues(metrics.DropDuplicate).Inc()
		return fmt.Errorf("%w: duplicate fixture_change", ErrDropped)
	}

	mapped, err := p.mapper.Map(ctx, msg, raw)
	if err != nil {
		return fmt.Errorf("map %s: %w", kind, err)
	}
	p.dispatcher.Dispatch(ctx, mapped)
	metrics.ProcessingLatency.Observe(time.Since(start).Seconds())
	return nil
}

// OnMessageReceived 实现 ingestion.Listener，处理错误记录后丢弃
func (p *Pipeline) OnMessageReceived(msg models.FeedMessage, raw []byte) {
	err := p.Process(context.Background(), msg, raw)
	if err == nil || errors.Is(err, ErrDropped) {
		return
	}
	metrics.MessagesDropped.WithLabelValues(metrics.DropProcessingError).Inc()
	p.logger.Error("[Pipeline] Session %s: %v", p.session, err)
}

// OnRawMessageReceived 实现 ingestion.Listener
func (p *Pipeline) OnRawMessageReceived(string, models.FeedMessage, string) {}

// OnDeserializationFailed 实现 ingestion.Listener
func (p *Pipeline) OnDeserializationFailed(raw []byte, err error) {
	p.logger.Debug("[Pipeline] Session %s: skipped %d undecodable bytes: %v", p.session, len(raw), err)
}
