package caching

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/urn"
)

// DtoType 推送到缓存的数据类型
type DtoType int

const (
	DtoSportEventStatus DtoType = iota + 1
	DtoMatch
	DtoFixture
)

func (t DtoType) String() string {
	switch t {
	case DtoSportEventStatus:
		return "sport_event_status"
	case DtoMatch:
		return "match"
	case DtoFixture:
		return "fixture"
	}
	return fmt.Sprintf("dto(%d)", int(t))
}

// CacheItemType 删除缓存时的范围
type CacheItemType int

const (
	CacheItemAll CacheItemType = iota + 1
	CacheItemSportEvent
	CacheItemSportEventStatus
)

func (t CacheItemType) String() string {
	switch t {
	case CacheItemAll:
		return "all"
	case CacheItemSportEvent:
		return "sport_event"
	case CacheItemSportEventStatus:
		return "sport_event_status"
	}
	return fmt.Sprintf("item(%d)", int(t))
}

// SportEventStatusDTO 赛事状态缓存数据
type SportEventStatusDTO struct {
	EventID     urn.URN   `json:"event_id"`
	Status      int       `json:"status"`
	MatchStatus *int      `json:"match_status,omitempty"`
	HomeScore   *float64  `json:"home_score,omitempty"`
	AwayScore   *float64  `json:"away_score,omitempty"`
	Reporting   *int      `json:"reporting,omitempty"`
	MatchTime   string    `json:"match_time,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store 实体缓存协作接口
// 删除不存在的条目是空操作
type Store interface {
	SaveDto(ctx context.Context, id urn.URN, item interface{}, culture string, dtoType DtoType, requester string) error
	RemoveCacheItem(id urn.URN, itemType CacheItemType, source string)
	AddEventIDForTimelineIgnore(id urn.URN, producerID int, messageKind string)
	AddFixtureTimestamp(id urn.URN)
	GetEventIDs(ctx context.Context, tournamentID urn.URN, cultures []string) ([]urn.URN, error)
}

// ScheduleFetcher 获取赛事下的比赛列表
type ScheduleFetcher interface {
	FetchSchedule(ctx context.Context, tournamentID urn.URN, cultures []string) ([]urn.URN, error)
}

// ScheduleFetcherFunc 函数适配器
type ScheduleFetcherFunc func(ctx context.Context, tournamentID urn.URN, cultures []string) ([]urn.URN, error)

// FetchSchedule 实现 ScheduleFetcher
func (f ScheduleFetcherFunc) FetchSchedule(ctx context.Context, tournamentID urn.URN, cultures []string) ([]urn.URN, error) {
	return f(ctx, tournamentID, cultures)
}

type eventEntry struct {
	cultures map[string]bool
	touched  time.Time
}

type timelineIgnore struct {
	producerID  int
	messageKind string
}

// MemoryStore 内存实现，所有操作并发安全，同一 key 后写覆盖
type MemoryStore struct {
	logger   common.Logger
	schedule ScheduleFetcher

	mu                sync.RWMutex
	events            map[urn.URN]*eventEntry
	statuses          map[urn.URN]*SportEventStatusDTO
	timelineIgnores   map[urn.URN]timelineIgnore
	fixtureTimestamps map[urn.URN]time.Time
	schedules         map[urn.URN][]urn.URN
}

// NewMemoryStore 创建内存缓存，schedule 可为 nil
func NewMemoryStore(logger common.Logger, schedule ScheduleFetcher) *MemoryStore {
	return &MemoryStore{
		logger:            logger,
		schedule:          schedule,
		events:            make(map[urn.URN]*eventEntry),
		statuses:          make(map[urn.URN]*SportEventStatusDTO),
		timelineIgnores:   make(map[urn.URN]timelineIgnore),
		fixtureTimestamps: make(map[urn.URN]time.Time),
		schedules:         make(map[urn.URN][]urn.URN),
	}
}

// SaveDto 推送数据到缓存
func (s *MemoryStore) SaveDto(ctx context.Context, id urn.URN, item interface{}, culture string, dtoType DtoType, requester string) error {
	switch dtoType {
	case DtoSportEventStatus:
		dto, ok := item.(*SportEventStatusDTO)
		if !ok {
			return fmt.Errorf("%w: %T is not a sport event status", common.ErrInvalidInput, item)
		}
		cp := *dto
		s.mu.Lock()
		s.statuses[id] = &cp
		s.mu.Unlock()
	case DtoMatch, DtoFixture:
		s.TouchEvent(id, culture)
	default:
		return fmt.Errorf("%w: unsupported dto type %s", common.ErrInvalidInput, dtoType)
	}
	s.logger.Debug("[Cache] Saved %s for %s (culture=%s, requester=%s)", dtoType, id, culture, requester)
	return nil
}

// RemoveCacheItem 删除缓存条目
func (s *MemoryStore) RemoveCacheItem(id urn.URN, itemType CacheItemType, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch itemType {
	case CacheItemSportEventStatus:
		delete(s.statuses, id)
	case CacheItemSportEvent:
		delete(s.events, id)
	case CacheItemAll:
		delete(s.statuses, id)
		delete(s.events, id)
	}
	s.logger.Debug("[Cache] Removed %s for %s (source=%s)", itemType, id, source)
}

// AddEventIDForTimelineIgnore 记录需要忽略 timeline 状态的赛事
func (s *MemoryStore) AddEventIDForTimelineIgnore(id urn.URN, producerID int, messageKind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timelineIgnores[id] = timelineIgnore{producerID: producerID, messageKind: messageKind}
}

// AddFixtureTimestamp 记录赛程变化时间
func (s *MemoryStore) AddFixtureTimestamp(id urn.URN) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixtureTimestamps[id] = time.Now()
}

// GetEventIDs 获取赛事下的比赛列表，首次获取时调用 ScheduleFetcher
func (s *MemoryStore) GetEventIDs(ctx context.Context, tournamentID urn.URN, cultures []string) ([]urn.URN, error) {
	s.mu.RLock()
	ids, ok := s.schedules[tournamentID]
	s.mu.RUnlock()
	if ok {
		return append([]urn.URN(nil), ids...), nil
	}
	if s.schedule == nil {
		return nil, fmt.Errorf("schedule for %s: %w", tournamentID, common.ErrNotFound)
	}

	ids, err := s.schedule.FetchSchedule(ctx, tournamentID, cultures)
	if err != nil {
		return nil, fmt.Errorf("fetch schedule for %s: %w", tournamentID, err)
	}

	s.mu.Lock()
	s.schedules[tournamentID] = ids
	for _, id := range ids {
		s.touchLocked(id, cultures...)
	}
	s.mu.Unlock()
	return append([]urn.URN(nil), ids...), nil
}

// TouchEvent 首次引用时创建赛事条目
func (s *MemoryStore) TouchEvent(id urn.URN, cultures ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked(id, cultures...)
}

func (s *MemoryStore) touchLocked(id urn.URN, cultures ...string) {
	e, ok := s.events[id]
	if !ok {
		e = &eventEntry{cultures: make(map[string]bool)}
		s.events[id] = e
	}
	for _, c := range cultures {
		if c != "" {
			e.cultures[c] = true
		}
	}
	e.touched = time.Now()
}

// HasEvent 赛事条目是否存在
func (s *MemoryStore) HasEvent(id urn.URN) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.events[id]
	return ok
}

// Status 返回缓存的赛事状态副本
func (s *MemoryStore) Status(id urn.URN) (SportEventStatusDTO, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[id]
	if !ok {
		return SportEventStatusDTO{}, false
	}
	return *st, true
}

// IsTimelineIgnored 是否已登记忽略 timeline
func (s *MemoryStore) IsTimelineIgnored(id urn.URN) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.timelineIgnores[id]
	return ok
}

// HasFixtureTimestamp 是否记录过赛程变化
func (s *MemoryStore) HasFixtureTimestamp(id urn.URN) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.fixtureTimestamps[id]
	return ok
}

// Snapshot 可观察状态的摘要，用于比较两次处理后的结果
type Snapshot struct {
	Events            []urn.URN
	Statuses          map[urn.URN]SportEventStatusDTO
	TimelineIgnores   []urn.URN
	FixtureTimestamps []urn.URN
}

// Snapshot 返回当前状态摘要 (不含时间戳)
func (s *MemoryStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Statuses: make(map[urn.URN]SportEventStatusDTO, len(s.statuses))}
	for id := range s.events {
		snap.Events = append(snap.Events, id)
	}
	for id, st := range s.statuses {
		cp := *st
		cp.UpdatedAt = time.Time{}
		snap.Statuses[id] = cp
	}
	for id := range s.timelineIgnores {
		snap.TimelineIgnores = append(snap.TimelineIgnores, id)
	}
	for id := range s.fixtureTimestamps {
		snap.FixtureTimestamps = append(snap.FixtureTimestamps, id)
	}
	sortURNs(snap.Events)
	sortURNs(snap.TimelineIgnores)
	sortURNs(snap.FixtureTimestamps)
	return snap
}

func sortURNs(ids []urn.URN) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
