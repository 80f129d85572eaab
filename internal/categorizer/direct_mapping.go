package categorizer

import (
	"context"
	"fmt"

	"fjacquet/bankfeed/internal/models"
)

// UserRuleStrategy returns the category of a user rule for the merchant key and bumps
// the rule's usage.
type UserRuleStrategy struct {
	engine *Engine
}

// Name returns the name of this strategy for logging and debugging.
func (s *UserRuleStrategy) Name() string {
	return "UserRule"
}

func (s *UserRuleStrategy) Categorize(ctx context.Context, tx Transaction) (StrategyResult, error) {
	res := StrategyResult{Strategy: s.Name()}
	for _, r := range tx.Rules {
		if !r.IsUser() {
			continue
		}
		if err := s.engine.touchRule(ctx, tx, r); err != nil {
			return res, err
		}
		res.Category, res.Confidence, res.Found = r.RootCategory, r.Confidence, true
		return res, nil
	}
	return res, nil
}

// SystemRuleStrategy returns the category of a learned system rule.
type SystemRuleStrategy struct {
	engine *Engine
}

// Name returns the name of this strategy for logging and debugging.
func (s *SystemRuleStrategy) Name() string {
	return "SystemRule"
}

func (s *SystemRuleStrategy) Categorize(ctx context.Context, tx Transaction) (StrategyResult, error) {
	res := StrategyResult{Strategy: s.Name()}
	for _, r := range tx.Rules {
		if r.CreatedBy != models.RuleSourceSystem {
			continue
		}
		if err := s.engine.touchRule(ctx, tx, r); err != nil {
			return res, err
		}
		res.Category, res.Confidence, res.Found = r.RootCategory, r.Confidence, true
		return res, nil
	}
	return res, nil
}

// touchRule bumps usage of a rule that was read, not rewritten.
func (e *Engine) touchRule(ctx context.Context, tx Transaction, r models.CategoryRule) error {
	if tx.ReadOnly {
		return nil
	}
	r.UsageCount++
	r.LastUsed = e.now()
	if err := e.store.SaveRule(ctx, r); err != nil {
		return fmt.Errorf("error updating usage of rule %s: %w", r.MerchantKey, err)
	}
	return nil
}
