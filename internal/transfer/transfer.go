// Package transfer recognises internal transfers and links the two sides across accounts.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultWindowDays is the search window on each side of the source date.
const DefaultWindowDays = 3

// Epsilon is the largest amount difference still treated as equal.
var Epsilon = decimal.RequireFromString("0.01")

// ErrAlreadyLinked is returned when the requested partner belongs to another pair.
var ErrAlreadyLinked = errors.New("transaction already linked to another transaction")

// Store is the persistence the engine needs.
type Store interface {
	GetTransaction(ctx context.Context, id string) (*models.StoredTransaction, error)
	ListTransactionsInDateRange(ctx context.Context, accountID string, from, to time.Time) ([]models.StoredTransaction, error)
	UpdateTransactions(ctx context.Context, txns ...models.StoredTransaction) error
	ListAccounts(ctx context.Context) ([]models.Account, error)
}

var transferPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bSELF\b`),
	regexp.MustCompile(`\bOWN\s*(A/?C|ACCOUNT|ACCT)\b`),
	regexp.MustCompile(`\bP2A\b`),
	regexp.MustCompile(`\bTRANSFER (TO|FROM)\b`),
	regexp.MustCompile(`\b(FUND|FUNDS) TRANSFER\b`),
	regexp.MustCompile(`\bSWEEP\b`),
}

var (
	// directionPrefix is the BY/TO TRANSFER lead-in of internal-banking narrations.
	directionPrefix = regexp.MustCompile(`^(BY|TO) TRANSFER\b[- ]*`)
	// merchantPayment marks a direction-prefixed narration that pays a merchant.
	merchantPayment = regexp.MustCompile(`^(UPI/|POS|ECOM|DEBIT CARD)`)
	// maskedAccount matches BANKCODE-XXnnnn style fragments.
	maskedAccount = regexp.MustCompile(`\b([A-Z]{3,5})[- ]?X{2,}(\d{4})\b`)
	// maskedOnly matches a masked account number with no bank code.
	maskedOnly = regexp.MustCompile(`X{2,}(\d{4})\b`)
)

// bankCodes maps IFSC prefixes and common short names to adapter bank names.
var bankCodes = map[string]string{
	"HDFC":  "HDFC Bank",
	"ICIC":  "ICICI Bank",
	"ICICI": "ICICI Bank",
	"SBIN":  "State Bank of India",
	"SBI":   "State Bank of India",
	"UTIB":  "Axis Bank",
	"AXIS":  "Axis Bank",
	"KKBK":  "Kotak Mahindra Bank",
	"YESB":  "Yes Bank",
	"IDFB":  "IDFC First Bank",
}

// Engine finds and records transfer pairs. Links are written one at a time, so
// concurrent imports into different accounts cannot claim the same partner twice.
type Engine struct {
	store      Store
	logger     logging.Logger
	windowDays int
	newID      func() string
	linkMu     sync.Mutex
}

// NewEngine creates a transfer engine. windowDays <= 0 uses DefaultWindowDays.
func NewEngine(s Store, windowDays int, logger logging.Logger) *Engine {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return &Engine{
		store:      s,
		logger:     logging.OrDefault(logger),
		windowDays: windowDays,
		newID:      uuid.NewString,
	}
}

// IsLikelyTransfer matches self-transfer and generic transfer phrasing. A BY/TO
// TRANSFER prefix counts unless the rest of the narration is a merchant payment.
func IsLikelyTransfer(narration string) bool {
	s := strings.ToUpper(strings.TrimSpace(narration))
	if loc := directionPrefix.FindStringIndex(s); loc != nil {
		rest := s[loc[1]:]
		if !merchantPayment.MatchString(rest) {
			return true
		}
		s = rest
	}
	for _, re := range transferPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return maskedAccount.MatchString(s) && bankCodes[maskedAccount.FindStringSubmatch(s)[1]] != ""
}

// ExtractAccountHints pulls a bank name and masked account suffix out of narration.
func ExtractAccountHints(narration string) models.AccountHints {
	s := strings.ToUpper(narration)
	for _, m := range maskedAccount.FindAllStringSubmatch(s, -1) {
		if name, ok := bankCodes[m[1]]; ok {
			return models.AccountHints{BankName: name, AccountLast4: m[2]}
		}
	}
	if m := maskedOnly.FindStringSubmatch(s); m != nil {
		return models.AccountHints{AccountLast4: m[1]}
	}
	return models.AccountHints{}
}

// IsLikelyTransfer is the method form of the package function.
func (e *Engine) IsLikelyTransfer(narration string) bool { return IsLikelyTransfer(narration) }

// ExtractAccountHints is the method form of the package function.
func (e *Engine) ExtractAccountHints(narration string) models.AccountHints {
	return ExtractAccountHints(narration)
}

// FindPotentialMatches searches targetAccountID within windowDays of tx for
// opposite-signed transactions of the same amount. Candidates already paired with
// another transaction are excluded. Results are ordered by tier, then proximity.
func (e *Engine) FindPotentialMatches(ctx context.Context, tx models.StoredTransaction, targetAccountID string, windowDays int) ([]models.TransferMatch, error) {
	if windowDays <= 0 {
		windowDays = e.windowDays
	}
	from := tx.Date.AddDate(0, 0, -windowDays)
	to := tx.Date.AddDate(0, 0, windowDays)
	candidates, err := e.store.ListTransactionsInDateRange(ctx, targetAccountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("error loading candidates from account %s: %w", targetAccountID, err)
	}

	var matches []models.TransferMatch
	for _, c := range candidates {
		if c.ID == tx.ID || c.Amount.Sign()*tx.Amount.Sign() >= 0 {
			continue
		}
		if c.Amount.Abs().Sub(tx.Amount.Abs()).Abs().GreaterThan(Epsilon) {
			continue
		}
		if c.LinkedTransactionID != "" && c.LinkedTransactionID != tx.ID {
			continue
		}
		days := models.DaysBetween(tx.Date, c.Date)
		conf := tier(days)
		matches = append(matches, models.TransferMatch{
			Transaction: c,
			Confidence:  conf,
			DaysApart:   days,
			Reason:      fmt.Sprintf("opposite amount %s, %d day(s) apart", c.Amount.StringFixed(2), days),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Confidence.Rank() != b.Confidence.Rank() {
			return a.Confidence.Rank() < b.Confidence.Rank()
		}
		if a.DaysApart != b.DaysApart {
			return a.DaysApart < b.DaysApart
		}
		return a.Transaction.ID < b.Transaction.ID
	})
	return matches, nil
}

func tier(days int) models.MatchConfidence {
	switch {
	case days == 0:
		return models.ConfidenceExact
	case days == 1:
		return models.ConfidenceHigh
	case days <= 3:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// LinkTransfer marks sourceID as an internal transfer to linkedAccountID. When
// linkedTransactionID is set the partner is marked too, with the ids swapped, and both
// sides share one transfer group. Relinking an existing pair keeps its group id.
func (e *Engine) LinkTransfer(ctx context.Context, sourceID, linkedAccountID, linkedTransactionID string) error {
	e.linkMu.Lock()
	defer e.linkMu.Unlock()
	return e.link(ctx, sourceID, linkedAccountID, linkedTransactionID)
}

// link does the work of LinkTransfer; the caller holds linkMu.
func (e *Engine) link(ctx context.Context, sourceID, linkedAccountID, linkedTransactionID string) error {
	source, err := e.store.GetTransaction(ctx, sourceID)
	if err != nil {
		return err
	}

	var updates []models.StoredTransaction
	var partner *models.StoredTransaction
	if linkedTransactionID != "" {
		partner, err = e.store.GetTransaction(ctx, linkedTransactionID)
		if err != nil {
			return err
		}
		if partner.LinkedTransactionID != "" && partner.LinkedTransactionID != source.ID {
			return fmt.Errorf("%w: %s", ErrAlreadyLinked, partner.ID)
		}
		if linkedAccountID == "" {
			linkedAccountID = partner.AccountID
		}
	}

	// A source moving to a new partner releases the old one.
	if old := source.LinkedTransactionID; old != "" && old != linkedTransactionID {
		prev, err := e.store.GetTransaction(ctx, old)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return err
		case prev.LinkedTransactionID == source.ID:
			prev.ClearTransfer()
			updates = append(updates, *prev)
		}
	}

	group := source.TransferGroupID
	if group == "" && partner != nil {
		group = partner.TransferGroupID
	}
	if group == "" {
		group = e.newID()
	}

	markTransfer(source, linkedAccountID, linkedTransactionID, group)
	updates = append(updates, *source)
	if partner != nil {
		markTransfer(partner, source.AccountID, source.ID, group)
		updates = append(updates, *partner)
	}

	if err := e.store.UpdateTransactions(ctx, updates...); err != nil {
		return fmt.Errorf("error linking transfer %s: %w", sourceID, err)
	}
	e.logger.Info("Linked transfer",
		logging.Field{Key: logging.FieldTransactionID, Value: sourceID},
		logging.Field{Key: "linked_account_id", Value: linkedAccountID},
		logging.Field{Key: "linked_transaction_id", Value: linkedTransactionID},
		logging.Field{Key: "transfer_group_id", Value: group})
	return nil
}

func markTransfer(tx *models.StoredTransaction, accountID, txID, group string) {
	tx.Category = models.CategoryTransfers
	tx.IsInternalTransfer = true
	tx.LinkedAccountID = accountID
	tx.LinkedTransactionID = txID
	tx.TransferGroupID = group
}

// UnlinkTransfer clears the transfer fields of id and of its partner, if any.
func (e *Engine) UnlinkTransfer(ctx context.Context, id string) error {
	e.linkMu.Lock()
	defer e.linkMu.Unlock()

	tx, err := e.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	updates := []models.StoredTransaction{}
	if tx.LinkedTransactionID != "" {
		partner, err := e.store.GetTransaction(ctx, tx.LinkedTransactionID)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return err
		case partner.LinkedTransactionID == tx.ID:
			partner.ClearTransfer()
			updates = append(updates, *partner)
		}
	}
	tx.ClearTransfer()
	updates = append(updates, *tx)

	if err := e.store.UpdateTransactions(ctx, updates...); err != nil {
		return fmt.Errorf("error unlinking transfer %s: %w", id, err)
	}
	e.logger.Info("Unlinked transfer", logging.Field{Key: logging.FieldTransactionID, Value: id})
	return nil
}

// AutoLink pairs tx with its best candidate when that candidate is exact or high
// confidence and returns the match. Weaker or missing candidates only record the
// account association, when one account can be identified, and return nil.
func (e *Engine) AutoLink(ctx context.Context, tx models.StoredTransaction) (*models.TransferMatch, error) {
	if tx.LinkedTransactionID != "" {
		return nil, nil
	}
	e.linkMu.Lock()
	defer e.linkMu.Unlock()

	// Another import may have claimed tx as its partner since it was read.
	current, err := e.store.GetTransaction(ctx, tx.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, err
	case current.LinkedTransactionID != "":
		return nil, nil
	}

	targets, err := e.targetAccounts(ctx, tx)
	if err != nil {
		return nil, err
	}

	var best *models.TransferMatch
	for _, acc := range targets {
		matches, err := e.FindPotentialMatches(ctx, tx, acc.ID, e.windowDays)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 && (best == nil || better(matches[0], *best)) {
			m := matches[0]
			best = &m
		}
	}

	log := e.logger.WithFields(logging.Field{Key: logging.FieldTransactionID, Value: tx.ID})
	if best != nil && best.Confidence.Rank() <= models.ConfidenceHigh.Rank() {
		if err := e.link(ctx, tx.ID, best.Transaction.AccountID, best.Transaction.ID); err != nil {
			return nil, err
		}
		return best, nil
	}

	accountID := ""
	switch {
	case best != nil:
		accountID = best.Transaction.AccountID
	case len(targets) == 1:
		accountID = targets[0].ID
	}
	if accountID == "" {
		log.Debug("No transfer counterpart identified")
		return nil, nil
	}
	log.Debug("Recording account association only", logging.Field{Key: "linked_account_id", Value: accountID})
	return nil, e.link(ctx, tx.ID, accountID, "")
}

func better(a, b models.TransferMatch) bool {
	if a.Confidence.Rank() != b.Confidence.Rank() {
		return a.Confidence.Rank() < b.Confidence.Rank()
	}
	return a.DaysApart < b.DaysApart
}

// targetAccounts returns the other accounts tx may have moved money to or from,
// narrowed by any account hints in its narration.
func (e *Engine) targetAccounts(ctx context.Context, tx models.StoredTransaction) ([]models.Account, error) {
	accounts, err := e.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing accounts: %w", err)
	}
	hints := ExtractAccountHints(tx.Description)
	var out []models.Account
	for _, acc := range accounts {
		if acc.ID == tx.AccountID {
			continue
		}
		if hints.BankName != "" && !strings.EqualFold(acc.BankName, hints.BankName) {
			continue
		}
		if hints.AccountLast4 != "" && acc.AccountLast4 != "" && acc.AccountLast4 != hints.AccountLast4 {
			continue
		}
		out = append(out, acc)
	}
	return out, nil
}
