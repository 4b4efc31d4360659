package processing

import (
	"context"
	"fmt"
	"strconv"

	"uof-sdk/pkg/caching"
	"uof-sdk/pkg/common"
	"uof-sdk/pkg/models"
	"uof-sdk/pkg/producer"
	"uof-sdk/pkg/urn"
)

// ValidationResult 校验结论，数值越大越严重
type ValidationResult int

const (
	ValidationSuccess ValidationResult = iota
	ValidationProblemsDetected
	ValidationFailure
)

func (r ValidationResult) String() string {
	switch r {
	case ValidationSuccess:
		return "success"
	case ValidationProblemsDetected:
		return "problems_detected"
	case ValidationFailure:
		return "failure"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// worst 合并两个结论
func worst(a, b ValidationResult) ValidationResult {
	if b > a {
		return b
	}
	return a
}

// Validator 按消息类型校验反序列化后的消息
// 会就地修改消息: 回填 EventURN、市场说明符、标记 ValidationFailed、清空非法 superceded_by
type Validator struct {
	logger       common.Logger
	producers    producer.Manager
	descriptions caching.MarketDescriptionProvider
	namedValues  *caching.NamedValuesProvider
	culture      string
}

// NewValidator 创建校验器，descriptions 可为 nil (跳过描述校验)
func NewValidator(logger common.Logger, producers producer.Manager, descriptions caching.MarketDescriptionProvider, namedValues *caching.NamedValuesProvider, culture string) *Validator {
	if namedValues == nil {
		namedValues = caching.DefaultNamedValues()
	}
	return &Validator{
		logger:       logger,
		producers:    producers,
		descriptions: descriptions,
		namedValues:  namedValues,
		culture:      culture,
	}
}

// Validate 校验消息，未知消息类型返回 common.ErrUnsupportedMessage
func (v *Validator) Validate(ctx context.Context, msg models.FeedMessage) (ValidationResult, error) {
	switch m := msg.(type) {
	case *models.OddsChange:
		return v.validateOddsChange(ctx, m), nil
	case *models.BetStop:
		return v.validateBetStop(m), nil
	case *models.BetSettlement:
		return v.validateBetSettlement(ctx, m), nil
	case *models.BetCancel:
		return v.validateBetCancel(ctx, m), nil
	case *models.RollbackBetSettlement:
		return v.validateMessageWithMarkets(ctx, m), nil
	case *models.RollbackBetCancel:
		return v.validateMessageWithMarkets(ctx, m), nil
	case *models.FixtureChange:
		return v.validateFixtureChange(m), nil
	case *models.SnapshotComplete:
		return v.validateSnapshotComplete(m), nil
	case *models.Alive:
		return v.validateAlive(m), nil
	default:
		return ValidationFailure, fmt.Errorf("%w: %T", common.ErrUnsupportedMessage, msg)
	}
}

func (v *Validator) validateOddsChange(ctx context.Context, m *models.OddsChange) ValidationResult {
	result := v.validateMessageWithMarkets(ctx, m)
	if result == ValidationFailure {
		return result
	}

	if m.OddsChangeReason != nil && !v.namedValues.OddsChangeReasons.IsValueDefined(*m.OddsChangeReason) {
		v.logger.Warn("[Validator] %s %s: unknown odds_change_reason %d", m.Kind(), m.EventID, *m.OddsChangeReason)
		result = worst(result, ValidationProblemsDetected)
	}
	if m.Odds == nil {
		return result
	}

	if m.Odds.BetstopReason != nil && !v.namedValues.BetStopReasons.IsValueDefined(*m.Odds.BetstopReason) {
		v.logger.Warn("[Validator] %s %s: unknown betstop_reason %d", m.Kind(), m.EventID, *m.Odds.BetstopReason)
		result = worst(result, ValidationProblemsDetected)
	}
	if m.Odds.BettingStatus != nil && !v.namedValues.BettingStatuses.IsValueDefined(*m.Odds.BettingStatus) {
		v.logger.Warn("[Validator] %s %s: unknown betting_status %d", m.Kind(), m.EventID, *m.Odds.BettingStatus)
		result = worst(result, ValidationProblemsDetected)
	}

	isMatch := m.EventURN != nil && m.EventURN.TypeGroup() == urn.TypeGroupMatch
	for _, market := range m.Odds.Markets {
		if market.Status != nil && !models.MarketStatus(*market.Status).IsValid() {
			v.logger.Warn("[Validator] %s %s: market %d has unknown status %d", m.Kind(), m.EventID, market.ID, *market.Status)
			return ValidationFailure
		}
		for _, o := range market.Outcomes {
			if o.Active != nil && *o.Active != 0 && *o.Active != 1 {
				v.logger.Warn("[Validator] %s %s: outcome %s of market %d has invalid active %d", m.Kind(), m.EventID, o.ID, market.ID, *o.Active)
				result = worst(result, ValidationProblemsDetected)
			}
			if o.Team == nil {
				continue
			}
			if !isMatch {
				v.logger.Warn("[Validator] %s %s: outcome %s has team on a non-match event", m.Kind(), m.EventID, o.ID)
				result = worst(result, ValidationProblemsDetected)
			} else if *o.Team != 1 && *o.Team != 2 {
				v.logger.Warn("[Validator] %s %s: outcome %s has invalid team %d", m.Kind(), m.EventID, o.ID, *o.Team)
				result = worst(result, ValidationProblemsDetected)
			}
		}
	}
	return result
}

func (v *Validator) validateBetStop(m *models.BetStop) ValidationResult {
	v.checkProducer(m)
	result := v.checkBase(m)
	if result == ValidationFailure {
		return result
	}
	if m.Groups == "" {
		v.logger.Warn("[Validator] %s %s: missing groups", m.Kind(), m.EventID)
		return ValidationFailure
	}
	if m.MarketStatus != nil && !models.MarketStatus(*m.MarketStatus).IsValid() {
		v.logger.Warn("[Validator] %s %s: unknown market_status %d", m.Kind(), m.EventID, *m.MarketStatus)
		return ValidationFailure
	}
	return result
}

func (v *Validator) validateBetSettlement(ctx context.Context, m *models.BetSettlement) ValidationResult {
	result := v.validateMessageWithMarkets(ctx, m)
	if result == ValidationFailure {
		return result
	}

	if m.Certainty != nil && !models.Certainty(*m.Certainty).IsValid() {
		v.logger.Warn("[Validator] %s %s: unknown certainty %d", m.Kind(), m.EventID, *m.Certainty)
		result = worst(result, ValidationProblemsDetected)
	}
	for _, market := range m.Markets {
		result = worst(result, v.checkVoidReason(m, market.ID, market.VoidReason))
		for _, o := range market.Outcomes {
			if o.VoidFactor != nil && (*o.VoidFactor < 0 || *o.VoidFactor > 1) {
				v.logger.Warn("[Validator] %s %s: outcome %s has void_factor %v out of range", m.Kind(), m.EventID, o.ID, *o.VoidFactor)
				result = worst(result, ValidationProblemsDetected)
			}
			if o.DeadHeatFactor != nil && (*o.DeadHeatFactor <= 0 || *o.DeadHeatFactor > 1) {
				v.logger.Warn("[Validator] %s %s: outcome %s has dead_heat_factor %v out of range", m.Kind(), m.EventID, o.ID, *o.DeadHeatFactor)
				result = worst(result, ValidationProblemsDetected)
			}
		}
	}
	return result
}

func (v *Validator) validateBetCancel(ctx context.Context, m *models.BetCancel) ValidationResult {
	result := v.validateMessageWithMarkets(ctx, m)
	if result == ValidationFailure {
		return result
	}

	if m.SupercededBy != nil {
		if _, err := urn.Parse(*m.SupercededBy); err != nil {
			v.logger.Warn("[Validator] %s %s: invalid superceded_by %q", m.Kind(), m.EventID, *m.SupercededBy)
			m.SupercededBy = nil
			result = worst(result, ValidationProblemsDetected)
		}
	}
	for _, market := range m.Markets {
		result = worst(result, v.checkVoidReason(m, market.ID, market.VoidReason))
	}
	return result
}

func (v *Validator) validateFixtureChange(m *models.FixtureChange) ValidationResult {
	v.checkProducer(m)
	result := v.checkBase(m)
	if result == ValidationFailure {
		return result
	}
	if m.ChangeType != nil && !models.FixtureChangeType(*m.ChangeType).IsValid() {
		v.logger.Warn("[Validator] %s %s: unknown change_type %d", m.Kind(), m.EventID, *m.ChangeType)
		result = worst(result, ValidationProblemsDetected)
	}
	return result
}

func (v *Validator) validateSnapshotComplete(m *models.SnapshotComplete) ValidationResult {
	v.checkProducer(m)
	if m.RequestID == nil {
		v.logger.Warn("[Validator] %s from producer %d without request_id", m.Kind(), m.Product)
		return ValidationProblemsDetected
	}
	return ValidationSuccess
}

func (v *Validator) validateAlive(m *models.Alive) ValidationResult {
	v.checkProducer(m)
	if m.Subscribed != 0 && m.Subscribed != 1 {
		v.logger.Warn("[Validator] %s from producer %d has invalid subscribed %d", m.Kind(), m.Product, m.Subscribed)
		return ValidationProblemsDetected
	}
	return ValidationSuccess
}

// validateMessageWithMarkets 生产者、基础属性、说明符及市场描述校验
func (v *Validator) validateMessageWithMarkets(ctx context.Context, m models.MarketMessage) ValidationResult {
	v.checkProducer(m)
	result := v.checkBase(m)
	if result == ValidationFailure {
		return result
	}

	base := m.Base()
	for _, market := range m.MarketList() {
		specs, err := models.ParseSpecifiers(market.Specifiers)
		if err != nil {
			v.logger.Warn("[Validator] %s %s: market %d: %v", m.Kind(), base.EventID, market.ID, err)
			market.ValidationFailed = true
			result = worst(result, ValidationProblemsDetected)
			continue
		}
		market.SetSpecifierMap(specs)
		result = worst(result, v.checkSpecifiersAgainstDescription(ctx, m, market.ID, specs))
	}
	return result
}

// checkSpecifiersAgainstDescription 名称集合必须与描述一致，取值按声明的类型检查；
// 查询失败时只记录，不阻断
func (v *Validator) checkSpecifiersAgainstDescription(ctx context.Context, m models.FeedMessage, marketID int, specs map[string]string) ValidationResult {
	if v.descriptions == nil {
		return ValidationSuccess
	}
	eventID := m.Base().EventID

	desc, err := v.descriptions.GetMarketDescription(ctx, marketID, specs, []string{v.culture}, true)
	if err != nil {
		if caching.IsNotFound(err) {
			v.logger.Debug("[Validator] %s %s: no description for market %d", m.Kind(), eventID, marketID)
		} else {
			v.logger.Warn("[Validator] %s %s: description lookup for market %d failed: %v", m.Kind(), eventID, marketID, err)
		}
		return ValidationProblemsDetected
	}
	if desc == nil {
		return ValidationProblemsDetected
	}
	if _, ok := desc.GetName(v.culture); !ok {
		v.logger.Debug("[Validator] %s %s: market %d has no %s name", m.Kind(), eventID, marketID, v.culture)
		return ValidationProblemsDetected
	}
	if desc.ID != marketID {
		v.logger.Warn("[Validator] %s %s: description id %d does not match market %d", m.Kind(), eventID, desc.ID, marketID)
		return ValidationProblemsDetected
	}
	if len(desc.Specifiers) != len(specs) {
		v.logger.Debug("[Validator] %s %s: market %d expects %d specifiers, got %d", m.Kind(), eventID, marketID, len(desc.Specifiers), len(specs))
		return ValidationProblemsDetected
	}
	for _, s := range desc.Specifiers {
		value, ok := specs[s.Name]
		if !ok {
			v.logger.Debug("[Validator] %s %s: market %d is missing specifier %s", m.Kind(), eventID, marketID, s.Name)
			return ValidationProblemsDetected
		}
		if !specifierValueMatches(s.Type, value) {
			v.logger.Debug("[Validator] %s %s: market %d specifier %s=%q is not a valid %s", m.Kind(), eventID, marketID, s.Name, value, s.Type)
			return ValidationProblemsDetected
		}
	}
	return ValidationSuccess
}

// specifierValueMatches 按描述中的类型检查单个取值，
// integer 和 decimal 之外的类型 (string, variable_text 等) 只要求存在
func specifierValueMatches(specType, value string) bool {
	switch specType {
	case "integer":
		_, err := strconv.Atoi(value)
		return err == nil
	case "decimal":
		_, err := strconv.ParseFloat(value, 64)
		return err == nil
	default:
		return true
	}
}

// checkProducer 只记录日志，不影响结论
func (v *Validator) checkProducer(m models.FeedMessage) {
	id := m.Base().Product
	p, ok := v.producers.Get(id)
	if !ok {
		v.logger.Warn("[Validator] %s from unknown producer %d", m.Kind(), id)
		return
	}
	if !p.IsAvailable || p.IsDisabled {
		v.logger.Debug("[Validator] %s from producer %d which is unavailable or disabled", m.Kind(), id)
	}
}

// checkBase 赛事相关消息必须有 sport id 和合法的 event id
func (v *Validator) checkBase(m models.FeedMessage) ValidationResult {
	if !m.IsEventRelated() {
		return ValidationSuccess
	}
	base := m.Base()
	if base.SportID == nil {
		v.logger.Warn("[Validator] %s %s: missing sport id", m.Kind(), base.EventID)
		return ValidationFailure
	}
	id, err := urn.Parse(base.EventID)
	if err != nil {
		v.logger.Warn("[Validator] %s: invalid event id: %v", m.Kind(), err)
		return ValidationFailure
	}
	base.EventURN = &id
	return ValidationSuccess
}

func (v *Validator) checkVoidReason(m models.FeedMessage, marketID int, reason *int) ValidationResult {
	if reason == nil || v.namedValues.VoidReasons.IsValueDefined(*reason) {
		return ValidationSuccess
	}
	v.logger.Warn("[Validator] %s %s: market %d has unknown void_reason %d", m.Kind(), m.Base().EventID, marketID, *reason)
	return ValidationProblemsDetected
}
