// Package store persists accounts, imports, transactions and learned category rules.
//
// Two implementations share the Store interface: SQLiteStore for the CLI and
// MemoryStore for tests and dry runs.
package store

import (
	"context"
	"errors"
	"time"

	"fjacquet/bankfeed/internal/models"
)

var (
	// ErrNotFound is returned when a lookup by id finds nothing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a batch would store a fingerprint twice for one account.
	ErrDuplicate = errors.New("duplicate fingerprint for account")
)

// TransactionStore covers stored transactions. Batch writes are atomic: either every
// row is written or none is.
type TransactionStore interface {
	InsertTransactions(ctx context.Context, txns []models.StoredTransaction) (int, error)
	GetTransaction(ctx context.Context, id string) (*models.StoredTransaction, error)
	// UpdateTransactions rewrites the mutable fields (merchant key, category, duplicate
	// and transfer flags) of every given transaction in one atomic write.
	UpdateTransactions(ctx context.Context, txns ...models.StoredTransaction) error
	DeleteTransaction(ctx context.Context, id string) error

	ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.StoredTransaction, error)
	ListTransactionsByImport(ctx context.Context, importID string) ([]models.StoredTransaction, error)
	ListTransactionsByMerchantKey(ctx context.Context, accountID, merchantKey string) ([]models.StoredTransaction, error)
	// ListTransactionsInDateRange includes both ends.
	ListTransactionsInDateRange(ctx context.Context, accountID string, from, to time.Time) ([]models.StoredTransaction, error)
	FindByFingerprint(ctx context.Context, accountID, fingerprint string) (*models.StoredTransaction, error)
}

// RuleStore keeps at most one rule per (merchant key, creator).
type RuleStore interface {
	// GetRules returns the rules for merchantKey, user rule first.
	GetRules(ctx context.Context, merchantKey string) ([]models.CategoryRule, error)
	// SaveRule inserts or replaces the rule for (MerchantKey, CreatedBy).
	SaveRule(ctx context.Context, rule models.CategoryRule) error
	ListRules(ctx context.Context) ([]models.CategoryRule, error)
}

// AccountStore keeps the accounts statements are imported into.
type AccountStore interface {
	SaveAccount(ctx context.Context, account models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
}

// ImportStore keeps import provenance.
type ImportStore interface {
	SaveImport(ctx context.Context, rec models.ImportRecord) error
	GetImport(ctx context.Context, id string) (*models.ImportRecord, error)
	ListImports(ctx context.Context, accountID string) ([]models.ImportRecord, error)
	// DeleteImport removes the record and its transactions, unlinks transfer partners
	// outside the import and returns the number of transactions removed.
	DeleteImport(ctx context.Context, id string) (int, error)
}

// Store is everything the pipeline needs from persistence.
type Store interface {
	TransactionStore
	RuleStore
	AccountStore
	ImportStore
	Close() error
}

// PreferredRule returns the user rule when present, else the system rule.
func PreferredRule(rules []models.CategoryRule) (models.CategoryRule, bool) {
	var system *models.CategoryRule
	for i := range rules {
		if rules[i].IsUser() {
			return rules[i], true
		}
		if system == nil {
			system = &rules[i]
		}
	}
	if system != nil {
		return *system, true
	}
	return models.CategoryRule{}, false
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
