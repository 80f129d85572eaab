package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionBuilder assembles a UnifiedTransaction row by row.
// The first error sticks and is returned from Build.
type TransactionBuilder struct {
	tx  UnifiedTransaction
	err error
}

// NewTransactionBuilder returns an empty builder.
func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{tx: UnifiedTransaction{Amount: decimal.Zero}}
}

// WithDate sets the transaction date, truncated to the calendar day in UTC.
func (b *TransactionBuilder) WithDate(date time.Time) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if date.IsZero() {
		b.err = errors.New("date cannot be zero")
		return b
	}
	b.tx.Date = truncateDay(date)
	return b
}

// WithValueDate sets the optional settlement date. A zero value is ignored.
func (b *TransactionBuilder) WithValueDate(date time.Time) *TransactionBuilder {
	if b.err != nil || date.IsZero() {
		return b
	}
	d := truncateDay(date)
	b.tx.ValueDate = &d
	return b
}

// WithDescription sets the narration with runs of whitespace collapsed.
func (b *TransactionBuilder) WithDescription(desc string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Description = CleanDescription(desc)
	return b
}

// WithDebitCredit derives the signed amount from the two statement columns.
// A positive debit wins; otherwise a positive credit; otherwise the row is invalid.
func (b *TransactionBuilder) WithDebitCredit(debit, credit decimal.Decimal) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	switch {
	case debit.IsPositive():
		b.tx.Amount = debit.Neg()
		b.tx.TransactionType = TransactionTypeDebit
	case credit.IsPositive():
		b.tx.Amount = credit
		b.tx.TransactionType = TransactionTypeCredit
	default:
		b.err = errors.New("neither debit nor credit amount present")
	}
	return b
}

// WithAmount sets a signed amount directly.
func (b *TransactionBuilder) WithAmount(amount decimal.Decimal) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if amount.IsZero() {
		b.err = errors.New("amount cannot be zero")
		return b
	}
	b.tx.Amount = amount
	b.tx.TransactionType = TransactionTypeCredit
	if amount.IsNegative() {
		b.tx.TransactionType = TransactionTypeDebit
	}
	return b
}

// WithBalance sets the informational running balance.
func (b *TransactionBuilder) WithBalance(balance *decimal.Decimal) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Balance = balance
	return b
}

// WithReference sets the bank reference or cheque number.
func (b *TransactionBuilder) WithReference(ref string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.ReferenceNo = strings.TrimSpace(ref)
	return b
}

// WithSource records which adapter produced the row.
func (b *TransactionBuilder) WithSource(bankID, bankName string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Source = bankID
	b.tx.BankName = bankName
	return b
}

// WithOriginalData keeps the raw cells for fingerprinting.
func (b *TransactionBuilder) WithOriginalData(raw map[string]string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.OriginalData = raw
	return b
}

// Build validates and returns the transaction.
func (b *TransactionBuilder) Build() (UnifiedTransaction, error) {
	if b.err != nil {
		return UnifiedTransaction{}, b.err
	}
	if b.tx.Date.IsZero() {
		return UnifiedTransaction{}, errors.New("transaction date is required")
	}
	if b.tx.Amount.IsZero() {
		return UnifiedTransaction{}, errors.New("transaction amount is required")
	}
	if b.tx.Source == "" {
		return UnifiedTransaction{}, errors.New("transaction source is required")
	}
	return b.tx, nil
}

// CleanDescription trims the narration and collapses internal whitespace.
func CleanDescription(desc string) string {
	return strings.Join(strings.Fields(desc), " ")
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
