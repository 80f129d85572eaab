package categorizer

import (
	"context"
	"strings"

	"fjacquet/bankfeed/internal/models"
)

// Transaction is what strategies see: the stored transaction, its merchant key and
// the rules already known for that key.
type Transaction struct {
	models.StoredTransaction

	// Narration is the upper-cased description.
	Narration string
	// Rules are the stored rules for MerchantKey, user rule first.
	Rules []models.CategoryRule
	// ReadOnly forbids strategies from writing: no usage bumps, no transfer links.
	ReadOnly bool
}

func newTransaction(tx models.StoredTransaction, rules []models.CategoryRule, readOnly bool) Transaction {
	return Transaction{
		StoredTransaction: tx,
		Narration:         strings.ToUpper(strings.TrimSpace(tx.Description)),
		Rules:             rules,
		ReadOnly:          readOnly,
	}
}

// IsCredit reports whether money came into the account.
func (t Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// CategorizationStrategy is one step of the decision order. Strategies run in a fixed
// order and the first one that finds a category wins.
type CategorizationStrategy interface {
	// Categorize leaves Found unset to pass the transaction to the next strategy.
	// A result with Stop set ends the run with no category.
	Categorize(ctx context.Context, tx Transaction) (StrategyResult, error)

	// Name returns the name of this strategy for logging and debugging purposes.
	Name() string
}
