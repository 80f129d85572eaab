// Package categorizer assigns root categories to transactions and learns a rule per
// merchant key from every decision it makes.
//
// Strategies run in a fixed order and the first match wins:
//  1. a user rule for the merchant key
//  2. transfer signals (adapter hints, transfer phrasing), with auto-linking
//  3. the special-pattern battery (claims, premiums, refunds, income, loans, ...)
//  4. recurrence: subscription-like series become subscriptions, fuel goes to transport
//  5. a learned system rule for the merchant key
//  6. the merchant key found in the keyword map
//  7. a keyword found as a whole word in the narration
//
// When nothing matches the transaction stays uncategorized.
package categorizer

import (
	"context"
	"fmt"
	"time"

	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/parsererror"
	"fjacquet/bankfeed/internal/store"
)

// Engine is the categorization engine. It is not meant for concurrent categorization
// of one batch: rule writes are read-modify-write.
type Engine struct {
	store        Store
	keyer        MerchantKeyer
	linker       TransferLinker
	detector     RecurrenceDetector
	keywords     store.KeywordMap
	keywordOrder []string
	strategies   []CategorizationStrategy
	logger       logging.Logger
	clock        func() time.Time
}

// Option tunes an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	keywordConfidence float64
	clock             func() time.Time
}

// WithKeywordConfidence sets the rule confidence for keywords found inside narrations.
func WithKeywordConfidence(c float64) Option {
	return func(o *engineOptions) {
		if c > 0 && c <= 1 {
			o.keywordConfidence = c
		}
	}
}

// WithClock replaces the time source used for rule timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *engineOptions) { o.clock = clock }
}

// NewEngine creates a categorization engine. linker and detector may be nil, which
// disables auto-linking and recurrence detection.
func NewEngine(s Store, keyer MerchantKeyer, linker TransferLinker, detector RecurrenceDetector, keywords store.KeywordMap, logger logging.Logger, opts ...Option) *Engine {
	o := engineOptions{keywordConfidence: DefaultKeywordConfidence}
	for _, opt := range opts {
		opt(&o)
	}
	if keywords == nil {
		keywords = store.KeywordMap{}
	}

	e := &Engine{
		store:        s,
		keyer:        keyer,
		linker:       linker,
		detector:     detector,
		keywords:     keywords,
		keywordOrder: sortedKeywords(keywords),
		logger:       logging.OrDefault(logger),
		clock:        o.clock,
	}
	e.strategies = []CategorizationStrategy{
		&UserRuleStrategy{engine: e},
		&TransferStrategy{keyer: keyer, linker: linker, logger: e.logger},
		&SpecialPatternStrategy{engine: e},
		&RecurrenceStrategy{engine: e},
		&SystemRuleStrategy{engine: e},
		&ExactKeywordStrategy{keywords: keywords},
		&SubstringKeywordStrategy{engine: e, confidence: o.keywordConfidence},
	}
	return e
}

// StrategyNames returns the strategies in the order they run.
func (e *Engine) StrategyNames() []string {
	names := make([]string, 0, len(e.strategies))
	for _, s := range e.strategies {
		names = append(names, s.Name())
	}
	return names
}

// DetectCategory returns the category of tx, or models.CategoryNone when no strategy
// is confident. Every strategy except the user rule records a system rule for the
// merchant key. Storage failures are returned, never swallowed.
func (e *Engine) DetectCategory(ctx context.Context, tx models.StoredTransaction) (models.CategoryID, error) {
	cat, _, err := e.detect(ctx, tx, false)
	return cat, err
}

// Explain runs the strategies like DetectCategory and returns the full trace without
// writing anything: no rules are learned or touched and no transfer is linked.
func (e *Engine) Explain(ctx context.Context, tx models.StoredTransaction) (StrategyResults, error) {
	_, trace, err := e.detect(ctx, tx, true)
	return trace, err
}

func (e *Engine) detect(ctx context.Context, tx models.StoredTransaction, readOnly bool) (models.CategoryID, StrategyResults, error) {
	var trace StrategyResults
	if tx.MerchantKey == "" {
		tx.MerchantKey = e.keyer.MerchantKey(tx.Source, tx.Description)
	}
	rules, err := e.store.GetRules(ctx, tx.MerchantKey)
	if err != nil {
		return models.CategoryNone, trace, &parsererror.CategorizationError{Transaction: describe(tx), Strategy: "RuleLookup", Err: err}
	}
	in := newTransaction(tx, rules, readOnly)

	for _, s := range e.strategies {
		if err := ctx.Err(); err != nil {
			return models.CategoryNone, trace, err
		}
		res, err := s.Categorize(ctx, in)
		if err != nil {
			res.Error = err
			trace.Add(res)
			return models.CategoryNone, trace, &parsererror.CategorizationError{Transaction: describe(tx), Strategy: s.Name(), Err: err}
		}
		trace.Add(res)
		if res.Stop {
			break
		}
		if !res.Found {
			continue
		}
		if res.Learn && !readOnly && usableKey(tx.MerchantKey) {
			if _, err := e.CreateRule(ctx, tx.MerchantKey, res.Category, "", models.RuleSourceSystem, res.Confidence); err != nil {
				return models.CategoryNone, trace, &parsererror.CategorizationError{Transaction: describe(tx), Strategy: s.Name(), Err: err}
			}
		}
		e.logger.Debug("Transaction categorized",
			fieldTx(in), fieldMerchantKey(tx.MerchantKey), fieldCategory(res.Category),
			logging.Field{Key: logging.FieldStrategy, Value: s.Name()},
			logging.Field{Key: logging.FieldConfidence, Value: res.Confidence})
		return res.Category, trace, nil
	}

	e.logger.Debug("Transaction left uncategorized",
		fieldTx(in), fieldMerchantKey(tx.MerchantKey), fieldReason(trace.Summary()))
	return models.CategoryNone, trace, nil
}

// CategorizeAndSave categorizes a stored transaction and writes the merchant key and
// category back. The transaction is re-read first, so transfer links made during
// categorization are kept. A transaction nothing matches keeps its current category.
func (e *Engine) CategorizeAndSave(ctx context.Context, tx models.StoredTransaction) (models.CategoryID, error) {
	return e.categorizeAndSave(ctx, tx, false)
}

// CategorizeTransactions categorizes txns one after the other and returns how many
// received a category.
func (e *Engine) CategorizeTransactions(ctx context.Context, txns []models.StoredTransaction) (int, error) {
	return e.categorizeAll(ctx, txns, false)
}

// RecategorizeTransactions is CategorizeTransactions for transactions that may
// already carry a category. When nothing matches any more the old category is
// cleared, except on internal transfers and on transactions without a usable
// merchant key, whose category can only have been set by hand.
func (e *Engine) RecategorizeTransactions(ctx context.Context, txns []models.StoredTransaction) (int, error) {
	return e.categorizeAll(ctx, txns, true)
}

func (e *Engine) categorizeAll(ctx context.Context, txns []models.StoredTransaction, clearStale bool) (int, error) {
	categorized := 0
	for _, tx := range txns {
		cat, err := e.categorizeAndSave(ctx, tx, clearStale)
		if err != nil {
			return categorized, err
		}
		if cat != models.CategoryNone {
			categorized++
		}
	}
	return categorized, nil
}

func (e *Engine) categorizeAndSave(ctx context.Context, tx models.StoredTransaction, clearStale bool) (models.CategoryID, error) {
	if tx.MerchantKey == "" {
		tx.MerchantKey = e.keyer.MerchantKey(tx.Source, tx.Description)
	}
	cat, err := e.DetectCategory(ctx, tx)
	if err != nil {
		return models.CategoryNone, err
	}
	current, err := e.store.GetTransaction(ctx, tx.ID)
	if err != nil {
		return models.CategoryNone, fmt.Errorf("error reloading transaction %s: %w", tx.ID, err)
	}
	current.MerchantKey = tx.MerchantKey
	switch {
	case cat != models.CategoryNone:
		current.Category = cat
	case clearStale && !current.IsInternalTransfer && usableKey(current.MerchantKey):
		if current.Category != models.CategoryNone {
			e.logger.Debug("Clearing stale category",
				logging.Field{Key: logging.FieldTransactionID, Value: current.ID},
				fieldMerchantKey(current.MerchantKey), fieldCategory(current.Category))
		}
		current.Category = models.CategoryNone
	}
	if err := e.store.UpdateTransactions(ctx, *current); err != nil {
		return models.CategoryNone, fmt.Errorf("error saving category of %s: %w", tx.ID, err)
	}
	return cat, nil
}

// SetUserCategory records a manual correction: the transaction takes category and a
// user rule is written for its merchant key so later transactions follow.
func (e *Engine) SetUserCategory(ctx context.Context, txID string, category models.CategoryID) error {
	if !models.IsValidCategory(category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRule, category)
	}
	tx, err := e.store.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}
	if tx.MerchantKey == "" {
		tx.MerchantKey = e.keyer.MerchantKey(tx.Source, tx.Description)
	}
	tx.Category = category
	if err := e.store.UpdateTransactions(ctx, *tx); err != nil {
		return fmt.Errorf("error saving category of %s: %w", txID, err)
	}

	if !usableKey(tx.MerchantKey) {
		e.logger.Warn("No rule learned for unidentified merchant",
			logging.Field{Key: logging.FieldTransactionID, Value: txID},
			fieldMerchantKey(tx.MerchantKey))
		return nil
	}
	_, err = e.CreateRule(ctx, tx.MerchantKey, category, "", models.RuleSourceUser, models.UserRuleConfidence)
	return err
}

func describe(tx models.StoredTransaction) string {
	if tx.ID != "" {
		return tx.ID
	}
	return tx.Description
}

func fieldTx(tx Transaction) logging.Field {
	return logging.Field{Key: logging.FieldTransactionID, Value: tx.ID}
}

func fieldMerchantKey(key string) logging.Field {
	return logging.Field{Key: logging.FieldMerchantKey, Value: key}
}

func fieldCategory(cat models.CategoryID) logging.Field {
	return logging.Field{Key: logging.FieldCategory, Value: cat}
}

func fieldReason(reason string) logging.Field {
	return logging.Field{Key: logging.FieldReason, Value: reason}
}
