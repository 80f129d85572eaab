package categorizer

import (
	"context"

	"fjacquet/bankfeed/internal/models"
)

// Store is the persistence the engine reads rules and history from.
type Store interface {
	GetRules(ctx context.Context, merchantKey string) ([]models.CategoryRule, error)
	SaveRule(ctx context.Context, rule models.CategoryRule) error
	GetTransaction(ctx context.Context, id string) (*models.StoredTransaction, error)
	UpdateTransactions(ctx context.Context, txns ...models.StoredTransaction) error
	ListTransactionsByMerchantKey(ctx context.Context, accountID, merchantKey string) ([]models.StoredTransaction, error)
}

// MerchantKeyer extracts merchant keys and self-transfer hints with bank-specific rules.
type MerchantKeyer interface {
	MerchantKey(bankID, narration string) string
	IsSelfTransfer(bankID, narration string) bool
}

// TransferLinker pairs a transfer with its counterpart.
type TransferLinker interface {
	AutoLink(ctx context.Context, tx models.StoredTransaction) (*models.TransferMatch, error)
}

// RecurrenceDetector scores one merchant's series.
type RecurrenceDetector interface {
	Detect(txns []models.UnifiedTransaction) models.RecurrenceResult
	Threshold() float64
}
