// Package importer runs a statement file through the whole pipeline: parse, duplicate
// check, batched persistence, categorization and transfer linking.
package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"fjacquet/bankfeed/internal/dedup"
	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/parser"
	"fjacquet/bankfeed/internal/registry"
	"fjacquet/bankfeed/internal/store"
	"fjacquet/bankfeed/internal/validation"

	"github.com/google/uuid"
)

// DefaultBatchSize is the number of transactions written per atomic insert.
const DefaultBatchSize = 100

// Progress phases reported through Options.OnProgress.
const (
	PhaseParse      = "parse"
	PhaseDedup      = "dedup"
	PhasePersist    = "persist"
	PhaseCategorize = "categorize"
	PhaseTransfers  = "transfers"
)

// Policy decides what happens to possible (medium confidence) duplicates.
type Policy string

const (
	// PolicyImport stores possible duplicates flagged with IsDuplicate.
	PolicyImport Policy = "import"
	// PolicySkip drops possible duplicates.
	PolicySkip Policy = "skip"
)

var (
	// ErrAccountRequired is returned when no account id is given.
	ErrAccountRequired = errors.New("account id is required")
	// ErrUnknownPolicy is returned for a possible-duplicate policy other than import or skip.
	ErrUnknownPolicy = errors.New("unknown possible-duplicate policy")
)

// ParsePolicy validates a policy name. The empty string selects PolicyImport.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyImport:
		return PolicyImport, nil
	case PolicySkip:
		return PolicySkip, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Options control one import.
type Options struct {
	AccountID string
	// BankID forces an adapter. When empty the account's bank is used, then detection.
	BankID string
	// DryRun parses and checks duplicates without writing anything.
	DryRun             bool
	PossibleDuplicates Policy
	BatchSize          int
	OnProgress         func(models.ImportProgress)
}

// Result is the outcome of one import.
type Result struct {
	Record models.ImportRecord
	// Checks holds the duplicate classification of every parsed transaction.
	Checks []models.DuplicateCheckResult
}

// Categorizer assigns and stores categories for persisted transactions.
type Categorizer interface {
	CategorizeAndSave(ctx context.Context, tx models.StoredTransaction) (models.CategoryID, error)
}

// Linker pairs transfer legs across accounts.
type Linker interface {
	AutoLink(ctx context.Context, tx models.StoredTransaction) (*models.TransferMatch, error)
}

// Importer runs imports. Imports into the same account are serialized; imports into
// different accounts may run concurrently.
type Importer struct {
	store       store.Store
	registry    *registry.Registry
	dedup       *dedup.Engine
	categorizer Categorizer
	linker      Linker
	logger      logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	newID func() string
	now   func() time.Time
}

// New creates an Importer. categorizer and linker may be nil, which skips those phases.
func New(s store.Store, reg *registry.Registry, categorizer Categorizer, linker Linker, logger logging.Logger) *Importer {
	logger = logging.OrDefault(logger)
	return &Importer{
		store:       s,
		registry:    reg,
		dedup:       dedup.NewEngine(s, reg, logger),
		categorizer: categorizer,
		linker:      linker,
		logger:      logger,
		locks:       make(map[string]*sync.Mutex),
		newID:       uuid.NewString,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (im *Importer) accountLock(accountID string) *sync.Mutex {
	im.mu.Lock()
	defer im.mu.Unlock()
	l, ok := im.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		im.locks[accountID] = l
	}
	return l
}

// Import runs path through the pipeline into opts.AccountID.
func (im *Importer) Import(ctx context.Context, path string, opts Options) (*Result, error) {
	if opts.AccountID == "" {
		return nil, ErrAccountRequired
	}
	policy, err := ParsePolicy(string(opts.PossibleDuplicates))
	if err != nil {
		return nil, err
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if err := validation.StatementFile(path); err != nil {
		return nil, err
	}
	progress := func(phase string, current, total int) {
		if opts.OnProgress != nil {
			opts.OnProgress(models.ImportProgress{Phase: phase, Current: current, Total: total})
		}
	}

	lock := im.accountLock(opts.AccountID)
	lock.Lock()
	defer lock.Unlock()

	account, err := im.store.GetAccount(ctx, opts.AccountID)
	if err != nil {
		return nil, fmt.Errorf("error loading account %s: %w", opts.AccountID, err)
	}
	adapter, err := im.adapterFor(path, opts.BankID, account.BankID)
	if err != nil {
		return nil, err
	}

	log := im.logger.WithFields(
		logging.Field{Key: logging.FieldFile, Value: path},
		logging.Field{Key: logging.FieldAccountID, Value: opts.AccountID},
		logging.Field{Key: logging.FieldBank, Value: adapter.ID()},
	)
	log.Info("Starting import", logging.Field{Key: "dry_run", Value: opts.DryRun})
	started := time.Now()

	parsed, err := adapter.Parse(ctx, path, func(p models.ParseProgress) {
		progress(PhaseParse, p.RowsRead, 0)
	})
	if err != nil {
		return nil, err
	}

	progress(PhaseDedup, 0, len(parsed.Transactions))
	checks, err := im.dedup.CheckForDuplicates(ctx, parsed.Transactions, opts.AccountID)
	if err != nil {
		return nil, err
	}
	summary := dedup.Summarize(checks)
	progress(PhaseDedup, len(checks), len(checks))

	rec := models.ImportRecord{
		ID:                 im.newID(),
		AccountID:          opts.AccountID,
		BankID:             adapter.ID(),
		FileName:           filepath.Base(path),
		ImportedAt:         im.now(),
		ParsedCount:        len(parsed.Transactions),
		DuplicateCount:     summary.Exact,
		PossibleDuplicates: summary.Possible,
		ErrorCount:         parsed.ErrorCount,
		SkippedCount:       parsed.SkippedRowCount,
	}
	result := &Result{Record: rec, Checks: checks}

	pending := im.buildTransactions(checks, rec, policy)
	if opts.DryRun {
		result.Record.InsertedCount = len(pending)
		log.Info("Dry run complete",
			logging.Field{Key: "new", Value: summary.New},
			logging.Field{Key: "duplicates", Value: summary.Exact},
			logging.Field{Key: "possible_duplicates", Value: summary.Possible})
		return result, nil
	}

	// The record goes first so a failed import can still be deleted as a unit.
	if err := im.store.SaveImport(ctx, rec); err != nil {
		return nil, err
	}
	log = log.WithFields(logging.Field{Key: logging.FieldImportID, Value: rec.ID})

	inserted, err := im.persist(ctx, pending, opts.BatchSize, progress)
	rec.InsertedCount = inserted
	if err != nil {
		im.saveRecord(ctx, log, rec)
		return nil, err
	}

	rec.CategorizedCount, err = im.categorize(ctx, pending, progress)
	if err != nil {
		im.saveRecord(ctx, log, rec)
		return nil, err
	}

	rec.LinkedTransfers, err = im.finalizeTransfers(ctx, pending, progress)
	if err != nil {
		im.saveRecord(ctx, log, rec)
		return nil, err
	}

	if err := im.store.SaveImport(ctx, rec); err != nil {
		return nil, err
	}
	result.Record = rec

	log.Info("Import complete",
		logging.Field{Key: "inserted", Value: rec.InsertedCount},
		logging.Field{Key: "duplicates", Value: rec.DuplicateCount},
		logging.Field{Key: "possible_duplicates", Value: rec.PossibleDuplicates},
		logging.Field{Key: "categorized", Value: rec.CategorizedCount},
		logging.Field{Key: "linked_transfers", Value: rec.LinkedTransfers},
		logging.Field{Key: logging.FieldDuration, Value: time.Since(started).String()})
	return result, nil
}

func (im *Importer) adapterFor(path, bankID, accountBank string) (parser.BankAdapter, error) {
	switch {
	case bankID != "":
		return im.registry.Get(bankID)
	case accountBank != "":
		return im.registry.Get(accountBank)
	default:
		return im.registry.DetectForFile(path)
	}
}

// buildTransactions turns new and, under PolicyImport, possible duplicates into
// stored transactions. Exact duplicates are never stored.
func (im *Importer) buildTransactions(checks []models.DuplicateCheckResult, rec models.ImportRecord, policy Policy) []models.StoredTransaction {
	out := make([]models.StoredTransaction, 0, len(checks))
	for _, c := range checks {
		if c.IsExactDuplicate || (c.IsPossibleDuplicate && policy == PolicySkip) {
			continue
		}
		out = append(out, models.StoredTransaction{
			UnifiedTransaction: c.Transaction,
			ID:                 im.newID(),
			AccountID:          rec.AccountID,
			ImportID:           rec.ID,
			Fingerprint:        c.Fingerprint,
			MerchantKey:        im.registry.MerchantKey(c.Transaction.Source, c.Transaction.Description),
			IsDuplicate:        c.IsPossibleDuplicate,
			CreatedAt:          rec.ImportedAt,
		})
	}
	return out
}

func (im *Importer) persist(ctx context.Context, txns []models.StoredTransaction, batchSize int, progress func(string, int, int)) (int, error) {
	inserted := 0
	for start := 0; start < len(txns); start += batchSize {
		end := min(start+batchSize, len(txns))
		n, err := im.store.InsertTransactions(ctx, txns[start:end])
		if err != nil {
			return inserted, fmt.Errorf("error storing transactions %d-%d: %w", start+1, end, err)
		}
		inserted += n
		progress(PhasePersist, inserted, len(txns))
	}
	return inserted, nil
}

func (im *Importer) categorize(ctx context.Context, txns []models.StoredTransaction, progress func(string, int, int)) (int, error) {
	if im.categorizer == nil {
		return 0, nil
	}
	categorized := 0
	for i, tx := range txns {
		cat, err := im.categorizer.CategorizeAndSave(ctx, tx)
		if err != nil {
			return categorized, err
		}
		if cat != models.CategoryNone {
			categorized++
		}
		progress(PhaseCategorize, i+1, len(txns))
	}
	return categorized, nil
}

// finalizeTransfers retries auto-linking for transfers left without a partner, such
// as those categorized by a user rule, and counts the linked transactions.
func (im *Importer) finalizeTransfers(ctx context.Context, txns []models.StoredTransaction, progress func(string, int, int)) (int, error) {
	linked := 0
	for i, tx := range txns {
		current, err := im.store.GetTransaction(ctx, tx.ID)
		if err != nil {
			return linked, err
		}
		if im.linker != nil && current.Category == models.CategoryTransfers && current.LinkedTransactionID == "" {
			match, err := im.linker.AutoLink(ctx, *current)
			if err != nil {
				return linked, err
			}
			if match != nil {
				current.LinkedTransactionID = match.Transaction.ID
			}
		}
		if current.LinkedTransactionID != "" {
			linked++
		}
		progress(PhaseTransfers, i+1, len(txns))
	}
	return linked, nil
}

func (im *Importer) saveRecord(ctx context.Context, log logging.Logger, rec models.ImportRecord) {
	if err := im.store.SaveImport(context.WithoutCancel(ctx), rec); err != nil {
		log.WithError(err).Warn("Failed to update import record")
	}
}

// DeleteImport removes an import and every transaction it stored.
func (im *Importer) DeleteImport(ctx context.Context, importID string) (int, error) {
	rec, err := im.store.GetImport(ctx, importID)
	if err != nil {
		return 0, err
	}
	lock := im.accountLock(rec.AccountID)
	lock.Lock()
	defer lock.Unlock()

	n, err := im.store.DeleteImport(ctx, importID)
	if err != nil {
		return 0, err
	}
	im.logger.Info("Import deleted",
		logging.Field{Key: logging.FieldImportID, Value: importID},
		logging.Field{Key: logging.FieldCount, Value: n})
	return n, nil
}
