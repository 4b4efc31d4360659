package processing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/singleflight"

	"uof-sdk/pkg/caching"
	"uof-sdk/pkg/common"
	"uof-sdk/pkg/models"
	"uof-sdk/pkg/producer"
	"uof-sdk/pkg/urn"
)

// CacheOutcome 缓存处理结果
type CacheOutcome struct {
	// DuplicateFixtureChange 已处理过的 fixture_change，不再分发给订阅者
	DuplicateFixtureChange bool
}

// CacheMessageProcessor 根据消息更新共享缓存，同一 Feed 的所有会话共用一个实例
type CacheMessageProcessor struct {
	ProcessorID string

	logger    common.Logger
	store     caching.Store
	dedup     caching.DedupStore
	producers producer.Manager
	culture   string
	cultures  []string

	prefetch singleflight.Group
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewCacheMessageProcessor 创建缓存处理器
func NewCacheMessageProcessor(logger common.Logger, store caching.Store, dedup caching.DedupStore, producers producer.Manager, cultures []string) *CacheMessageProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	culture := ""
	if len(cultures) > 0 {
		culture = cultures[0]
	}
	return &CacheMessageProcessor{
		ProcessorID: uuid.NewString()[:8],
		logger:      logger,
		store:       store,
		dedup:       dedup,
		producers:   producers,
		culture:     culture,
		cultures:    append([]string(nil), cultures...),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Process 处理一条已校验的消息
func (p *CacheMessageProcessor) Process(ctx context.Context, msg models.FeedMessage) (CacheOutcome, error) {
	if !msg.IsEventRelated() {
		return CacheOutcome{}, nil
	}

	base := msg.Base()
	eventID, err := eventURN(base)
	if err != nil {
		return CacheOutcome{}, err
	}
	p.store.AddEventIDForTimelineIgnore(eventID, base.Product, string(msg.Kind()))

	switch m := msg.(type) {
	case *models.OddsChange:
		if m.Status != nil {
			dto := statusDTO(eventID, m.Status)
			if err := p.store.SaveDto(ctx, eventID, dto, p.culture, caching.DtoSportEventStatus, p.ProcessorID); err != nil {
				return CacheOutcome{}, fmt.Errorf("save status for %s: %w", eventID, err)
			}
		}
	case *models.BetStop, *models.BetSettlement:
		p.removeStatus(eventID)
	case *models.FixtureChange:
		return p.processFixtureChange(ctx, m, eventID)
	}
	return CacheOutcome{}, nil
}

func (p *CacheMessageProcessor) removeStatus(eventID urn.URN) {
	if eventID.TypeGroup() == urn.TypeGroupDraw {
		p.store.RemoveCacheItem(eventID, caching.CacheItemAll, p.ProcessorID)
		return
	}
	p.store.RemoveCacheItem(eventID, caching.CacheItemSportEventStatus, p.ProcessorID)
}

// processFixtureChange 缓存删除总是执行，去重只决定是否预取和分发
func (p *CacheMessageProcessor) processFixtureChange(ctx context.Context, m *models.FixtureChange, eventID urn.URN) (CacheOutcome, error) {
	p.store.RemoveCacheItem(eventID, caching.CacheItemSportEventStatus, p.ProcessorID)
	p.store.RemoveCacheItem(eventID, caching.CacheItemSportEvent, p.ProcessorID)

	if pr, ok := p.producers.Get(m.Product); !ok || !pr.HasScope(producer.ScopeVirtual) {
		p.store.AddFixtureTimestamp(eventID)
	}

	key := fmt.Sprintf("%s_%d_%d", eventID, m.Product, m.GeneratedAt())
	added, err := p.dedup.TryAdd(ctx, key)
	if err != nil {
		return CacheOutcome{}, fmt.Errorf("fixture change dedup for %s: %w", eventID, err)
	}

	if added && eventID.IsTournamentLevel() {
		p.prefetchSchedule(key, eventID)
	}
	return CacheOutcome{DuplicateFixtureChange: !added}, nil
}

// prefetchSchedule 异步预取赛事日程，key 为 (event, producer, generated-at)，
// 错误和 panic 只记录 debug 日志
func (p *CacheMessageProcessor) prefetchSchedule(key string, tournamentID urn.URN) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		var pc panics.Catcher
		pc.Try(func() {
			_, err, shared := p.prefetch.Do(key, func() (interface{}, error) {
				ctx, cancel := context.WithTimeout(p.ctx, 30*time.Second)
				defer cancel()
				return p.store.GetEventIDs(ctx, tournamentID, p.cultures)
			})
			if err != nil {
				p.logger.Debug("[CacheProcessor] Schedule prefetch for %s failed: %v", tournamentID, err)
				return
			}
			if !shared {
				p.logger.Debug("[CacheProcessor] Prefetched schedule for %s", tournamentID)
			}
		})
		if rec := pc.Recovered(); rec != nil {
			p.logger.Debug("[CacheProcessor] Schedule prefetch for %s panicked: %v", tournamentID, rec.Value)
		}
	}()
}

// Wait 等待进行中的预取完成
func (p *CacheMessageProcessor) Wait() {
	p.wg.Wait()
}

// Close 取消进行中的预取并等待退出
func (p *CacheMessageProcessor) Close() {
	p.cancel()
	p.wg.Wait()
}

func eventURN(base *models.MessageBase) (urn.URN, error) {
	if base.EventURN != nil {
		return *base.EventURN, nil
	}
	id, err := urn.Parse(base.EventID)
	if err != nil {
		return urn.URN{}, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	return id, nil
}

func statusDTO(eventID urn.URN, s *models.SportEventStatus) *caching.SportEventStatusDTO {
	dto := &caching.SportEventStatusDTO{
		EventID:     eventID,
		Status:      s.Status,
		MatchStatus: s.MatchStatus,
		HomeScore:   s.HomeScore,
		AwayScore:   s.AwayScore,
		Reporting:   s.Reporting,
		UpdatedAt:   time.Now(),
	}
	if s.Clock != nil {
		dto.MatchTime = s.Clock.MatchTime
	}
	return dto
}
