package models

import "time"

// CategoryRule is learned classification memory for one merchant key.
// Storage keeps at most one rule per (MerchantKey, CreatedBy).
type CategoryRule struct {
	MerchantKey  string     `json:"merchantKey"`
	RootCategory CategoryID `json:"rootCategory"`
	SubCategory  string     `json:"subCategory,omitempty"`
	Confidence   float64    `json:"confidence"`
	CreatedBy    RuleSource `json:"createdBy"`
	UsageCount   int        `json:"usageCount"`
	LastUsed     time.Time  `json:"lastUsed"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// UserRuleConfidence is fixed for every user rule.
const UserRuleConfidence = 1.0

// IsUser reports whether a human created or confirmed the rule.
func (r CategoryRule) IsUser() bool {
	return r.CreatedBy == RuleSourceUser
}
