package caching

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/urn"
)

type tournamentSchedule struct {
	SportEvents []struct {
		ID string `xml:"id,attr"`
	} `xml:"sport_events>sport_event"`
}

type eventSummary struct {
	Competitors []struct {
		Qualifier string `xml:"qualifier,attr"`
		Name      string `xml:"name,attr"`
	} `xml:"sport_event>competitors>competitor"`
}

type competitorNames struct {
	home, away string
}

// APISportEvents 通过 REST 接口获取赛程和参赛方名称
// 实现 ScheduleFetcher 与 mapping.CompetitorProvider
type APISportEvents struct {
	logger     common.Logger
	apiBaseURL string
	token      string
	client     *http.Client
	group      singleflight.Group

	mu          sync.RWMutex
	competitors map[string]competitorNames
}

// NewAPISportEvents 创建 REST 赛事数据提供者
func NewAPISportEvents(logger common.Logger, apiBaseURL, token string) *APISportEvents {
	return &APISportEvents{
		logger:      logger,
		apiBaseURL:  strings.TrimSuffix(apiBaseURL, "/"),
		token:       token,
		client:      &http.Client{Timeout: 30 * time.Second},
		competitors: make(map[string]competitorNames),
	}
}

// FetchSchedule 实现 ScheduleFetcher，使用第一个语言
func (a *APISportEvents) FetchSchedule(ctx context.Context, tournamentID urn.URN, cultures []string) ([]urn.URN, error) {
	culture := "en"
	if len(cultures) > 0 {
		culture = cultures[0]
	}
	url := fmt.Sprintf("%s/sports/%s/tournaments/%s/schedule.xml", a.apiBaseURL, culture, tournamentID)

	var schedule tournamentSchedule
	if err := a.get(ctx, url, &schedule); err != nil {
		return nil, err
	}

	ids := make([]urn.URN, 0, len(schedule.SportEvents))
	for _, e := range schedule.SportEvents {
		id, err := urn.Parse(e.ID)
		if err != nil {
			a.logger.Warn("[SportEvents] Skipping invalid event id %q in schedule of %s", e.ID, tournamentID)
			continue
		}
		ids = append(ids, id)
	}
	a.logger.Debug("[SportEvents] Schedule of %s has %d events", tournamentID, len(ids))
	return ids, nil
}

// Competitors 实现 mapping.CompetitorProvider，结果按赛事和语言缓存
func (a *APISportEvents) Competitors(ctx context.Context, eventID urn.URN, culture string) (string, string, bool) {
	key := eventID.String() + "|" + culture

	a.mu.RLock()
	names, ok := a.competitors[key]
	a.mu.RUnlock()
	if ok {
		return names.home, names.away, true
	}

	v, err, _ := a.group.Do(key, func() (interface{}, error) {
		url := fmt.Sprintf("%s/sports/%s/sport_events/%s/summary.xml", a.apiBaseURL, culture, eventID)
		var summary eventSummary
		if err := a.get(ctx, url, &summary); err != nil {
			return nil, err
		}

		var names competitorNames
		for _, c := range summary.Competitors {
			switch c.Qualifier {
			case "home":
				names.home = c.Name
			case "away":
				names.away = c.Name
			}
		}
		if names.home == "" || names.away == "" {
			return nil, fmt.Errorf("summary of %s: %w", eventID, common.ErrNotFound)
		}

		a.mu.Lock()
		a.competitors[key] = names
		a.mu.Unlock()
		return names, nil
	})
	if err != nil {
		a.logger.Debug("[SportEvents] No competitors for %s (%s): %v", eventID, culture, err)
		return "", "", false
	}
	names = v.(competitorNames)
	return names.home, names.away, true
}

// Forget 移除赛事的参赛方缓存
func (a *APISportEvents) Forget(eventID urn.URN) {
	prefix := eventID.String() + "|"
	a.mu.Lock()
	defer a.mu.Unlock()
	for k := range a.competitors {
		if strings.HasPrefix(k, prefix) {
			delete(a.competitors, k)
		}
	}
}

func (a *APISportEvents) get(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-access-token", a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", url, common.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return nil
}
