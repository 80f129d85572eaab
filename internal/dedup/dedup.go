// Package dedup classifies incoming transactions against an account's stored history.
package dedup

import (
	"context"
	"fmt"

	"fjacquet/bankfeed/internal/dateutils"
	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/models"
)

// HistorySource lists the stored transactions of one account.
type HistorySource interface {
	ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.StoredTransaction, error)
}

// Fingerprinter computes the fingerprint of a transaction with the adapter that produced it.
type Fingerprinter interface {
	Fingerprint(tx models.UnifiedTransaction, accountID string) (string, error)
}

// Engine is read-only: it never writes to the history it checks against.
type Engine struct {
	history       HistorySource
	fingerprinter Fingerprinter
	logger        logging.Logger
}

// NewEngine creates a dedup engine.
func NewEngine(history HistorySource, fingerprinter Fingerprinter, logger logging.Logger) *Engine {
	return &Engine{
		history:       history,
		fingerprinter: fingerprinter,
		logger:        logging.OrDefault(logger),
	}
}

// CheckForDuplicates returns one result per input transaction, in input order.
//
// A stored transaction with the same fingerprint makes an exact duplicate. Failing that,
// a stored transaction with the same date, amount and bank name makes a possible
// duplicate with medium confidence. Anything else is new. A fingerprint repeated inside
// txns is an exact duplicate of its first occurrence.
func (e *Engine) CheckForDuplicates(ctx context.Context, txns []models.UnifiedTransaction, accountID string) ([]models.DuplicateCheckResult, error) {
	existing, err := e.history.ListTransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("error loading history for account %s: %w", accountID, err)
	}

	byFingerprint := make(map[string]*models.StoredTransaction, len(existing))
	byTriple := make(map[string]*models.StoredTransaction, len(existing))
	for i := range existing {
		tx := &existing[i]
		byFingerprint[tx.Fingerprint] = tx
		key := tripleKey(tx.UnifiedTransaction)
		if _, ok := byTriple[key]; !ok {
			byTriple[key] = tx
		}
	}

	seen := make(map[string]bool, len(txns))
	results := make([]models.DuplicateCheckResult, 0, len(txns))
	var exact, possible int
	for _, tx := range txns {
		fp, err := e.fingerprinter.Fingerprint(tx, accountID)
		if err != nil {
			return nil, fmt.Errorf("error fingerprinting transaction of %s: %w", dateutils.ToISODate(tx.Date), err)
		}
		res := models.DuplicateCheckResult{Transaction: tx, Fingerprint: fp, Confidence: models.ConfidenceLow}

		if match, ok := byFingerprint[fp]; ok {
			res.IsExactDuplicate = true
			res.Confidence = models.ConfidenceExact
			res.ExistingTransaction = match
		} else if seen[fp] {
			res.IsExactDuplicate = true
			res.Confidence = models.ConfidenceExact
		} else if match, ok := byTriple[tripleKey(tx)]; ok {
			res.IsPossibleDuplicate = true
			res.Confidence = models.ConfidenceMedium
			res.ExistingTransaction = match
		}
		seen[fp] = true

		switch {
		case res.IsExactDuplicate:
			exact++
		case res.IsPossibleDuplicate:
			possible++
		}
		results = append(results, res)
	}

	e.logger.Debug("Duplicate check complete",
		logging.Field{Key: logging.FieldAccountID, Value: accountID},
		logging.Field{Key: logging.FieldCount, Value: len(txns)},
		logging.Field{Key: "exact", Value: exact},
		logging.Field{Key: "possible", Value: possible})
	return results, nil
}

// Summary counts a result set by outcome.
type Summary struct {
	New      int
	Exact    int
	Possible int
}

// Summarize counts results by outcome.
func Summarize(results []models.DuplicateCheckResult) Summary {
	var s Summary
	for _, r := range results {
		switch {
		case r.IsExactDuplicate:
			s.Exact++
		case r.IsPossibleDuplicate:
			s.Possible++
		default:
			s.New++
		}
	}
	return s
}

func tripleKey(tx models.UnifiedTransaction) string {
	return dateutils.ToISODate(tx.Date) + "|" + tx.Amount.StringFixed(2) + "|" + tx.BankName
}
