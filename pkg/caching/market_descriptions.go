package caching

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"uof-sdk/pkg/common"
)

// ErrMarketDescriptionNotFound 市场描述不存在
var ErrMarketDescriptionNotFound = fmt.Errorf("market description %w", common.ErrNotFound)

// MarketDescription 市场描述
type MarketDescription struct {
	ID         int                    `xml:"id,attr"`
	Name       string                 `xml:"name,attr"`
	Groups     string                 `xml:"groups,attr"`
	Variant    string                 `xml:"variant,attr"`
	Outcomes   []OutcomeDescription   `xml:"outcomes>outcome"`
	Specifiers []SpecifierDescription `xml:"specifiers>specifier"`
	Mappings   []MarketMapping        `xml:"mappings>mapping"`

	// Names 按语言的市场名称模板
	Names map[string]string `xml:"-"`
}

// OutcomeDescription 结果描述
type OutcomeDescription struct {
	ID    string            `xml:"id,attr"`
	Name  string            `xml:"name,attr"`
	Names map[string]string `xml:"-"`
}

// SpecifierDescription 说明符描述
type SpecifierDescription struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

// MarketMapping 与生产者市场的映射
type MarketMapping struct {
	ProductID  int              `xml:"product_id,attr"`
	ProductIDs string           `xml:"product_ids,attr"`
	SportID    string           `xml:"sport_id,attr"`
	MarketID   string           `xml:"market_id,attr"`
	Outcomes   []MappingOutcome `xml:"mapping_outcome"`
}

// MappingOutcome 映射结果
type MappingOutcome struct {
	OutcomeID          string `xml:"outcome_id,attr"`
	ProductOutcomeID   string `xml:"product_outcome_id,attr"`
	ProductOutcomeName string `xml:"product_outcome_name,attr"`
}

// MarketDescriptionsResponse 描述接口响应
type MarketDescriptionsResponse struct {
	XMLName      xml.Name            `xml:"market_descriptions"`
	ResponseCode string              `xml:"response_code,attr"`
	Markets      []MarketDescription `xml:"market"`
}

// GetName 返回指定语言的名称模板
func (d *MarketDescription) GetName(culture string) (string, bool) {
	name, ok := d.Names[culture]
	return name, ok && name != ""
}

// Outcome 按 id 查找结果描述
func (d *MarketDescription) Outcome(id string) (*OutcomeDescription, bool) {
	for i := range d.Outcomes {
		if d.Outcomes[i].ID == id {
			return &d.Outcomes[i], true
		}
	}
	return nil, false
}

// GetName 返回指定语言的结果名称模板
func (o *OutcomeDescription) GetName(culture string) (string, bool) {
	name, ok := o.Names[culture]
	return name, ok && name != ""
}

// MarketDescriptionProvider 市场描述查询接口
type MarketDescriptionProvider interface {
	GetMarketDescription(ctx context.Context, marketID int, specifiers map[string]string, cultures []string, useCache bool) (*MarketDescription, error)
}

// MemoryMarketDescriptions 内存中的市场描述，支持多语言合并
type MemoryMarketDescriptions struct {
	markets map[string]*MarketDescription // marketID 或 marketID/variant
	mu      sync.RWMutex
}

// NewMemoryMarketDescriptions 创建内存市场描述
func NewMemoryMarketDescriptions() *MemoryMarketDescriptions {
	return &MemoryMarketDescriptions{
		markets: make(map[string]*MarketDescription),
	}
}

func descriptionKey(marketID int, variant string) string {
	key := strconv.Itoa(marketID)
	if variant != "" {
		key += "/" + variant
	}
	return key
}

// Add 合并一条市场描述 (culture 下的名称)
func (m *MemoryMarketDescriptions) Add(culture string, desc MarketDescription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := descriptionKey(desc.ID, desc.Variant)
	existing, ok := m.markets[key]
	if !ok {
		cp := desc
		cp.Names = map[string]string{culture: desc.Name}
		cp.Outcomes = make([]OutcomeDescription, len(desc.Outcomes))
		for i, o := range desc.Outcomes {
			o.Names = map[string]string{culture: o.Name}
			cp.Outcomes[i] = o
		}
		m.markets[key] = &cp
		return
	}

	existing.Names[culture] = desc.Name
	for _, o := range desc.Outcomes {
		if eo, found := existing.Outcome(o.ID); found {
			eo.Names[culture] = o.Name
			continue
		}
		o.Names = map[string]string{culture: o.Name}
		existing.Outcomes = append(existing.Outcomes, o)
	}
}

// LoadXML 加载 market_descriptions XML，返回加载数量
func (m *MemoryMarketDescriptions) LoadXML(culture string, r io.Reader) (int, error) {
	var response MarketDescriptionsResponse
	if err := xml.NewDecoder(r).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to parse market descriptions: %w", err)
	}
	for _, desc := range response.Markets {
		m.Add(culture, desc)
	}
	return len(response.Markets), nil
}

// Len 已加载数量
func (m *MemoryMarketDescriptions) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.markets)
}

// GetMarketDescription 按 id 和 variant 说明符查找，缺少任一语言视为未找到
func (m *MemoryMarketDescriptions) GetMarketDescription(ctx context.Context, marketID int, specifiers map[string]string, cultures []string, useCache bool) (*MarketDescription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	desc, ok := m.markets[descriptionKey(marketID, specifiers["variant"])]
	if !ok {
		desc, ok = m.markets[descriptionKey(marketID, "")]
	}
	if !ok {
		return nil, fmt.Errorf("market %d: %w", marketID, ErrMarketDescriptionNotFound)
	}
	for _, c := range cultures {
		if _, has := desc.Names[c]; !has {
			return nil, fmt.Errorf("market %d culture %s: %w", marketID, c, ErrMarketDescriptionNotFound)
		}
	}
	return desc.clone(), nil
}

func (d *MarketDescription) clone() *MarketDescription {
	cp := *d
	cp.Names = copyNames(d.Names)
	cp.Outcomes = make([]OutcomeDescription, len(d.Outcomes))
	for i, o := range d.Outcomes {
		o.Names = copyNames(o.Names)
		cp.Outcomes[i] = o
	}
	cp.Specifiers = append([]SpecifierDescription(nil), d.Specifiers...)
	return &cp
}

func copyNames(names map[string]string) map[string]string {
	out := make(map[string]string, len(names))
	for k, v := range names {
		out[k] = v
	}
	return out
}

// IsNotFound 是否为未找到错误
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
