package categorizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/store"
)

// ErrInvalidRule is returned for rules on unusable merchant keys or unknown categories.
var ErrInvalidRule = errors.New("invalid rule")

// RuleState is the rule state of one merchant key.
type RuleState int

const (
	StateNoRule RuleState = iota
	StateSystemRule
	StateUserRule
)

func (s RuleState) String() string {
	switch s {
	case StateSystemRule:
		return "system-rule"
	case StateUserRule:
		return "user-rule"
	default:
		return "no-rule"
	}
}

// RuleAction is what a rule write does to storage.
type RuleAction int

const (
	// ActionInsert stores a new rule.
	ActionInsert RuleAction = iota
	// ActionOverwrite replaces category and confidence and bumps usage.
	ActionOverwrite
	// ActionTouch only bumps usage on the existing rule.
	ActionTouch
)

func (a RuleAction) String() string {
	switch a {
	case ActionOverwrite:
		return "overwrite"
	case ActionTouch:
		return "touch"
	default:
		return "insert"
	}
}

// Transition is one row of the rule transition table.
type Transition struct {
	From   RuleState
	Write  models.RuleSource
	Higher bool // the write carries strictly higher confidence than the current rule
	Action RuleAction
	To     RuleState
}

// transitions is the complete table. A user rule is never replaced by a system write.
var transitions = []Transition{
	{StateNoRule, models.RuleSourceSystem, false, ActionInsert, StateSystemRule},
	{StateNoRule, models.RuleSourceSystem, true, ActionInsert, StateSystemRule},
	{StateNoRule, models.RuleSourceUser, false, ActionInsert, StateUserRule},
	{StateNoRule, models.RuleSourceUser, true, ActionInsert, StateUserRule},
	{StateSystemRule, models.RuleSourceSystem, false, ActionTouch, StateSystemRule},
	{StateSystemRule, models.RuleSourceSystem, true, ActionOverwrite, StateSystemRule},
	{StateSystemRule, models.RuleSourceUser, false, ActionInsert, StateUserRule},
	{StateSystemRule, models.RuleSourceUser, true, ActionInsert, StateUserRule},
	{StateUserRule, models.RuleSourceSystem, false, ActionTouch, StateUserRule},
	{StateUserRule, models.RuleSourceSystem, true, ActionTouch, StateUserRule},
	{StateUserRule, models.RuleSourceUser, false, ActionOverwrite, StateUserRule},
	{StateUserRule, models.RuleSourceUser, true, ActionOverwrite, StateUserRule},
}

// Transitions returns a copy of the rule transition table.
func Transitions() []Transition {
	return append([]Transition(nil), transitions...)
}

// StateOf returns the state of a merchant key given its stored rules.
func StateOf(rules []models.CategoryRule) RuleState {
	state := StateNoRule
	for _, r := range rules {
		if r.IsUser() {
			return StateUserRule
		}
		state = StateSystemRule
	}
	return state
}

// NextRuleState looks up the transition for a write of source with confidence.
func NextRuleState(rules []models.CategoryRule, source models.RuleSource, confidence float64) Transition {
	from := StateOf(rules)
	higher := false
	if current, ok := store.PreferredRule(rules); ok {
		higher = confidence > current.Confidence
	}
	for _, t := range transitions {
		if t.From == from && t.Write == source && t.Higher == higher {
			return t
		}
	}
	// Unknown sources are treated as system writes.
	return NextRuleState(rules, models.RuleSourceSystem, confidence)
}

// CreateRule records that merchantKey belongs to root. User writes always win and
// carry confidence 1. A system write replaces a system rule only with strictly higher
// confidence. Every write that reaches an existing rule bumps its usage.
func (e *Engine) CreateRule(ctx context.Context, merchantKey string, root models.CategoryID, sub string, createdBy models.RuleSource, confidence float64) (models.CategoryRule, error) {
	if merchantKey == "" || merchantKey == models.MerchantKeyUnknown {
		return models.CategoryRule{}, fmt.Errorf("%w: merchant key %q cannot hold a rule", ErrInvalidRule, merchantKey)
	}
	if !models.IsValidCategory(root) {
		return models.CategoryRule{}, fmt.Errorf("%w: unknown category %q", ErrInvalidRule, root)
	}
	if createdBy == models.RuleSourceUser {
		confidence = models.UserRuleConfidence
	} else {
		createdBy = models.RuleSourceSystem
	}

	rules, err := e.store.GetRules(ctx, merchantKey)
	if err != nil {
		return models.CategoryRule{}, fmt.Errorf("error loading rules for %s: %w", merchantKey, err)
	}
	t := NextRuleState(rules, createdBy, confidence)
	now := e.now()

	var rule models.CategoryRule
	switch t.Action {
	case ActionInsert:
		rule = models.CategoryRule{
			MerchantKey:  merchantKey,
			RootCategory: root,
			SubCategory:  sub,
			Confidence:   confidence,
			CreatedBy:    createdBy,
			UsageCount:   1,
			LastUsed:     now,
			CreatedAt:    now,
		}
		// A user rule taking over keeps the system rule's usage history.
		if current, ok := store.PreferredRule(rules); ok {
			rule.UsageCount = current.UsageCount + 1
		}
	case ActionOverwrite:
		rule, _ = store.PreferredRule(rules)
		rule.RootCategory = root
		rule.SubCategory = sub
		rule.Confidence = confidence
		rule.UsageCount++
		rule.LastUsed = now
	case ActionTouch:
		rule, _ = store.PreferredRule(rules)
		rule.UsageCount++
		rule.LastUsed = now
	}

	if err := e.store.SaveRule(ctx, rule); err != nil {
		return models.CategoryRule{}, fmt.Errorf("error saving rule for %s: %w", merchantKey, err)
	}
	e.logger.Debug("Rule written",
		logging.Field{Key: logging.FieldMerchantKey, Value: merchantKey},
		logging.Field{Key: logging.FieldCategory, Value: rule.RootCategory},
		logging.Field{Key: "action", Value: t.Action.String()},
		logging.Field{Key: "state", Value: t.To.String()})
	return rule, nil
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now().UTC()
}
