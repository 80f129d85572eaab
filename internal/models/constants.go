package models

// TransactionType is derived from the sign of the amount.
type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "debit"
	TransactionTypeCredit TransactionType = "credit"
)

// RuleSource records who created a CategoryRule.
type RuleSource string

const (
	RuleSourceUser   RuleSource = "user"
	RuleSourceSystem RuleSource = "system"
)

// MatchConfidence is the tier reported by duplicate and transfer matching.
type MatchConfidence string

const (
	ConfidenceExact  MatchConfidence = "exact"
	ConfidenceHigh   MatchConfidence = "high"
	ConfidenceMedium MatchConfidence = "medium"
	ConfidenceLow    MatchConfidence = "low"
)

// Rank orders tiers from strongest (0) to weakest.
func (c MatchConfidence) Rank() int {
	switch c {
	case ConfidenceExact:
		return 0
	case ConfidenceHigh:
		return 1
	case ConfidenceMedium:
		return 2
	default:
		return 3
	}
}

// Frequency of a recurring series.
type Frequency string

const (
	FrequencyNone      Frequency = "none"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
)

// ParseStage is reported through parser progress callbacks, in this order.
type ParseStage string

const (
	StageDetecting  ParseStage = "detecting"
	StageReading    ParseStage = "reading"
	StageParsing    ParseStage = "parsing"
	StageValidating ParseStage = "validating"
	StageComplete   ParseStage = "complete"
)

// Merchant key sentinels.
const (
	MerchantKeyUnknown = "UNKNOWN"
	MerchantKeySelf    = "SELF"
	MerchantKeyMaxLen  = 20
)

// File permissions
const (
	PermissionDirectory  = 0750
	PermissionExportFile = 0644
)
