package caching

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"uof-sdk/pkg/common"
)

// APIMarketDescriptions 通过 REST 接口加载市场描述，结果保存在内存中
type APIMarketDescriptions struct {
	logger     common.Logger
	apiBaseURL string
	token      string
	client     *http.Client
	cache      *MemoryMarketDescriptions

	mu     sync.Mutex
	loaded map[string]bool
}

// NewAPIMarketDescriptions 创建 REST 市场描述提供者
func NewAPIMarketDescriptions(logger common.Logger, apiBaseURL, token string) *APIMarketDescriptions {
	return &APIMarketDescriptions{
		logger:     logger,
		apiBaseURL: strings.TrimSuffix(apiBaseURL, "/"),
		token:      token,
		client:     &http.Client{Timeout: 30 * time.Second},
		cache:      NewMemoryMarketDescriptions(),
		loaded:     make(map[string]bool),
	}
}

// Load 加载指定语言的全部市场描述
func (a *APIMarketDescriptions) Load(ctx context.Context, culture string) error {
	url := fmt.Sprintf("%s/descriptions/%s/markets.xml?include_mappings=true", a.apiBaseURL, culture)
	n, err := a.fetch(ctx, url, culture)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.loaded[culture] = true
	a.mu.Unlock()

	a.logger.Info("[MarketDesc] Loaded %d market descriptions (%s)", n, culture)
	return nil
}

// GetMarketDescription 查询市场描述，缺失语言或 variant 时按需加载
func (a *APIMarketDescriptions) GetMarketDescription(ctx context.Context, marketID int, specifiers map[string]string, cultures []string, useCache bool) (*MarketDescription, error) {
	for _, c := range cultures {
		a.mu.Lock()
		loaded := a.loaded[c]
		a.mu.Unlock()
		if !loaded || !useCache {
			if err := a.Load(ctx, c); err != nil {
				return nil, err
			}
		}
	}

	desc, err := a.cache.GetMarketDescription(ctx, marketID, specifiers, cultures, true)
	if err == nil || !IsNotFound(err) {
		return desc, err
	}

	variant := specifiers["variant"]
	if variant == "" {
		return nil, err
	}
	for _, c := range cultures {
		url := fmt.Sprintf("%s/descriptions/%s/markets/%d/variants/%s?include_mappings=true", a.apiBaseURL, c, marketID, variant)
		if _, ferr := a.fetch(ctx, url, c); ferr != nil {
			return nil, ferr
		}
	}
	return a.cache.GetMarketDescription(ctx, marketID, specifiers, cultures, true)
}

func (a *APIMarketDescriptions) fetch(ctx context.Context, url, culture string) (int, error) {
	a.logger.Debug("[MarketDesc] Fetching %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-access-token", a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("%s: %w", url, ErrMarketDescriptionNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	return a.cache.LoadXML(culture, resp.Body)
}
