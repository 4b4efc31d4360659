package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"

	"uof-sdk/pkg/caching"
	"uof-sdk/pkg/common"
	"uof-sdk/pkg/entities"
	"uof-sdk/pkg/ingestion"
	"uof-sdk/pkg/mapping"
	"uof-sdk/pkg/processing"
	"uof-sdk/pkg/producer"
	"uof-sdk/pkg/routing"
)

// TransportFactory 为每个会话创建独立的传输层
type TransportFactory func(session string) ingestion.MessageTransport

// Config Feed 参数
type Config struct {
	NodeID          int
	Cultures        []string
	Replay          bool
	APIBaseURL      string
	AccessToken     string
	AutoRecovery    bool
	MaxInactivity   time.Duration
	MonitorInterval time.Duration
}

// Dependencies 外部协作对象，除 Transports 外均可为 nil
type Dependencies struct {
	Transports   TransportFactory
	Producers    *producer.Registry
	Store        caching.Store
	Descriptions caching.MarketDescriptionProvider
	NamedValues  *caching.NamedValuesProvider
	Dedup        caching.DedupStore
	Competitors  mapping.CompetitorProvider
}

type state int

const (
	stateNew state = iota
	stateOpened
	stateClosed
)

// Feed 一组共享缓存的会话
// 会话必须在 Open 之前创建，Open 一次性为全部会话生成 routing key
type Feed struct {
	logger     common.Logger
	cfg        Config
	transports TransportFactory

	producers   *producer.Registry
	states      *producerStates
	validator   *processing.Validator
	cache       *processing.CacheMessageProcessor
	mapper      *mapping.Mapper
	connections *ingestion.ConnectionManager
	recovery    *ingestion.RecoveryManager

	mu        sync.Mutex
	state     state
	sessions  []*Session
	listeners []ingestion.Listener
	closers   []func() error
	ctx       context.Context
	cancel    context.CancelFunc
	workers   conc.WaitGroup
}

// New 创建 Feed
func New(logger common.Logger, cfg Config, deps Dependencies) (*Feed, error) {
	if deps.Transports == nil {
		return nil, fmt.Errorf("transport factory is required: %w", common.ErrInvalidInput)
	}
	if len(cfg.Cultures) == 0 {
		return nil, fmt.Errorf("at least one culture is required: %w", common.ErrInvalidInput)
	}
	if cfg.MaxInactivity <= 0 {
		cfg.MaxInactivity = producer.DefaultMaxInactivity
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = 10 * time.Second
	}

	f := &Feed{
		logger:      logger,
		cfg:         cfg,
		transports:  deps.Transports,
		producers:   deps.Producers,
		connections: ingestion.NewConnectionManager(logger),
	}
	if f.producers == nil {
		f.producers = producer.NewRegistry(logger, producer.DefaultProducers())
	}
	f.states = &producerStates{Registry: f.producers}

	store := deps.Store
	if store == nil {
		store = caching.NewMemoryStore(logger, nil)
	}
	dedup := deps.Dedup
	if dedup == nil {
		ttl := caching.NewTTLCache(caching.DefaultDedupTTL)
		f.closers = append(f.closers, func() error { ttl.Close(); return nil })
		dedup = ttl
	}
	namedValues := deps.NamedValues
	if namedValues == nil {
		namedValues = caching.DefaultNamedValues()
	}
	var registry entities.EventRegistry
	if r, ok := store.(entities.EventRegistry); ok {
		registry = r
	}

	f.validator = processing.NewValidator(logger, f.producers, deps.Descriptions, namedValues, cfg.Cultures[0])
	f.cache = processing.NewCacheMessageProcessor(logger, store, dedup, f.producers, cfg.Cultures)
	f.mapper = mapping.NewMapper(
		entities.NewSportEventFactory(registry),
		mapping.NewMarketFactory(logger, deps.Descriptions, deps.Competitors, namedValues),
		namedValues,
		cfg.Cultures,
	)
	if cfg.AutoRecovery && cfg.APIBaseURL != "" {
		f.recovery = ingestion.NewRecoveryManager(logger, cfg.APIBaseURL, cfg.AccessToken, cfg.NodeID, f.states)
	}
	return f, nil
}

// CreateSession 创建会话，name 为空时自动生成，handler 可为 nil
func (f *Feed) CreateSession(name string, interest routing.MessageInterest, handler processing.MessageHandler) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != stateNew {
		return nil, fmt.Errorf("sessions must be created before the feed is opened: %w", common.ErrInvalidInput)
	}
	if name == "" {
		name = "session-" + uuid.NewString()[:8]
	}
	for _, s := range f.sessions {
		if s.name == name {
			return nil, fmt.Errorf("session %s already exists: %w", name, common.ErrInvalidInput)
		}
	}

	s := &Session{
		name:       name,
		interest:   interest,
		dispatcher: processing.NewDispatcher(f.logger),
	}
	if handler != nil {
		if err := s.Subscribe(processing.Subscriber{ID: "default", Handler: handler}); err != nil {
			return nil, err
		}
	}
	f.sessions = append(f.sessions, s)
	f.logger.Info("[Feed] Session %s created (interest=%s)", name, interest)
	return s, nil
}

// AddListener 为所有会话的接收器追加观察者，Open 之前调用
func (f *Feed) AddListener(l ingestion.Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, l)
}

// AddProducerObserver 订阅生产者上下线通知
func (f *Feed) AddProducerObserver(o ProducerObserver) {
	f.states.addObserver(o)
}

// Open 生成 routing key 并打开全部会话
// routing key 校验失败时不会打开任何传输层，Open 失败后 Feed 不可再用
func (f *Feed) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case stateOpened:
		return fmt.Errorf("feed: %w", common.ErrAlreadyConnected)
	case stateClosed:
		return fmt.Errorf("feed is closed: %w", common.ErrInvalidInput)
	}
	if len(f.sessions) == 0 {
		return fmt.Errorf("no sessions created: %w", common.ErrInvalidInput)
	}

	interests := make([]routing.MessageInterest, len(f.sessions))
	for i, s := range f.sessions {
		interests[i] = s.interest
	}
	keys, err := routing.GenerateKeys(interests, f.cfg.NodeID)
	if err != nil {
		return fmt.Errorf("generate routing keys: %w", err)
	}

	f.ctx, f.cancel = context.WithCancel(ctx)
	monitor := &aliveListener{feed: f}
	for i, s := range f.sessions {
		receiver := ingestion.NewReceiver(s.name, f.transports(s.name), f.producers, f.cfg.Replay, f.logger)
		receiver.AddListener(monitor)
		if f.recovery != nil {
			receiver.AddListener(f.recovery)
		}
		for _, l := range f.listeners {
			receiver.AddListener(l)
		}
		receiver.AddListener(processing.NewPipeline(s.name, f.logger, f.validator, f.cache, f.mapper, s.dispatcher))

		if err := f.connections.Register(receiver, s.interest, keys[i]); err != nil {
			f.fail()
			return err
		}
	}
	if err := f.connections.OpenAll(); err != nil {
		f.fail()
		return fmt.Errorf("open sessions: %w", err)
	}

	f.workers.Go(func() { f.connections.HealthCheck(f.ctx) })
	f.workers.Go(func() { f.monitorProducers(f.ctx) })
	f.state = stateOpened
	f.logger.Info("[Feed] Opened %d sessions (node_id=%d, replay=%v)", len(f.sessions), f.cfg.NodeID, f.cfg.Replay)
	return nil
}

func (f *Feed) fail() {
	f.cancel()
	f.state = stateClosed
}

// Close 关闭全部会话并等待后台任务退出
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.state == stateClosed {
		f.mu.Unlock()
		return nil
	}
	wasOpened := f.state == stateOpened
	f.state = stateClosed
	f.mu.Unlock()

	var err error
	if wasOpened {
		f.cancel()
		err = multierr.Append(err, f.connections.CloseAll())
		f.workers.Wait()
	}
	f.cache.Close()
	for _, c := range f.closers {
		err = multierr.Append(err, c())
	}
	f.logger.Info("[Feed] Closed")
	return err
}

// Wait 等待进行中的日程预取
func (f *Feed) Wait() {
	f.cache.Wait()
}

// Sessions 会话状态
func (f *Feed) Sessions() []ingestion.SessionStatus {
	return f.connections.Status()
}

// Producers 生产者状态
func (f *Feed) Producers() []producer.Producer {
	return f.producers.All()
}

// Recovery 恢复管理器，未启用自动恢复时为 nil
func (f *Feed) Recovery() *ingestion.RecoveryManager {
	return f.recovery
}

// Session Feed 中的一个会话
type Session struct {
	name       string
	interest   routing.MessageInterest
	dispatcher *processing.Dispatcher
}

// Name 会话名称
func (s *Session) Name() string { return s.name }

// Interest 订阅范围
func (s *Session) Interest() routing.MessageInterest { return s.interest }

// Subscribe 添加订阅者
func (s *Session) Subscribe(sub processing.Subscriber) error {
	return s.dispatcher.Subscribe(sub)
}

// Unsubscribe 移除订阅者
func (s *Session) Unsubscribe(id string) error {
	return s.dispatcher.Unsubscribe(id)
}
