package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParseMetadata describes what an adapter found in a statement file.
type ParseMetadata struct {
	BankID      string         `json:"bankId"`
	BankName    string         `json:"bankName"`
	FileName    string         `json:"fileName"`
	HeaderRow   int            `json:"headerRow"`
	Columns     map[string]int `json:"columns"`
	RowsRead    int            `json:"rowsRead"`
	PeriodStart time.Time      `json:"periodStart"`
	PeriodEnd   time.Time      `json:"periodEnd"`
}

// ParseResult is the output of BankAdapter.Parse.
type ParseResult struct {
	Transactions    []UnifiedTransaction `json:"transactions"`
	Metadata        ParseMetadata        `json:"metadata"`
	ErrorCount      int                  `json:"errorCount"`
	SkippedRowCount int                  `json:"skippedRowCount"`
}

// ParseProgress is sent to parser progress callbacks.
type ParseProgress struct {
	Stage        ParseStage
	RowsRead     int
	Transactions int
	Message      string
}

// DuplicateCheckResult classifies one incoming transaction against stored history.
type DuplicateCheckResult struct {
	Transaction         UnifiedTransaction `json:"transaction"`
	Fingerprint         string             `json:"fingerprint"`
	IsExactDuplicate    bool               `json:"isExactDuplicate"`
	IsPossibleDuplicate bool               `json:"isPossibleDuplicate"`
	Confidence          MatchConfidence    `json:"confidence"`
	ExistingTransaction *StoredTransaction `json:"existingTransaction,omitempty"`
}

// IsNew reports whether nothing stored resembles the transaction.
func (r DuplicateCheckResult) IsNew() bool {
	return !r.IsExactDuplicate && !r.IsPossibleDuplicate
}

// TransferMatch is a candidate partner for one side of a transfer.
type TransferMatch struct {
	Transaction StoredTransaction `json:"transaction"`
	Confidence  MatchConfidence   `json:"confidence"`
	DaysApart   int               `json:"daysApart"`
	Reason      string            `json:"reason"`
}

// AccountHints are fragments of a counterparty account found in a narration.
type AccountHints struct {
	BankName     string `json:"bankName,omitempty"`
	AccountLast4 string `json:"accountLast4,omitempty"`
}

// Empty reports whether no hint was found.
func (h AccountHints) Empty() bool {
	return h.BankName == "" && h.AccountLast4 == ""
}

// RecurrenceResult is the verdict for one merchant's transaction series.
type RecurrenceResult struct {
	IsRecurring       bool            `json:"isRecurring"`
	Frequency         Frequency       `json:"frequency"`
	AverageAmount     decimal.Decimal `json:"averageAmount"`
	Confidence        float64         `json:"confidence"`
	SubscriptionLike  bool            `json:"subscriptionLike"`
	IntervalRatio     float64         `json:"intervalRatio"`
	AmountConsistency float64         `json:"amountConsistency"`
}

// ImportProgress is sent to import progress callbacks.
type ImportProgress struct {
	Phase   string
	Current int
	Total   int
}
