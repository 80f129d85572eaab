package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnifiedTransaction is the bank-neutral shape every adapter emits before persistence.
type UnifiedTransaction struct {
	Date            time.Time        `json:"date"`
	ValueDate       *time.Time       `json:"valueDate,omitempty"`
	Description     string           `json:"description"`
	Amount          decimal.Decimal  `json:"amount"`
	Balance         *decimal.Decimal `json:"balance,omitempty"`
	ReferenceNo     string           `json:"referenceNo,omitempty"`
	TransactionType TransactionType  `json:"transactionType"`
	Source          string           `json:"source"`
	BankName        string           `json:"bankName"`

	// OriginalData keeps the raw cells keyed by header text. It feeds fingerprinting only.
	OriginalData map[string]string `json:"originalData,omitempty"`
}

// IsDebit reports whether money left the account.
func (t UnifiedTransaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// AbsAmount returns the unsigned amount.
func (t UnifiedTransaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// StoredTransaction is a UnifiedTransaction owned by an account and tracked by storage.
type StoredTransaction struct {
	UnifiedTransaction

	ID                  string     `json:"id"`
	AccountID           string     `json:"accountId"`
	ImportID            string     `json:"importId"`
	Fingerprint         string     `json:"fingerprint"`
	MerchantKey         string     `json:"merchantKey"`
	Category            CategoryID `json:"category,omitempty"`
	IsDuplicate         bool       `json:"isDuplicate"`
	IsInternalTransfer  bool       `json:"isInternalTransfer"`
	LinkedAccountID     string     `json:"linkedAccountId,omitempty"`
	LinkedTransactionID string     `json:"linkedTransactionId,omitempty"`
	TransferGroupID     string     `json:"transferGroupId,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// ClearTransfer resets every transfer field. A transfers category set by linking goes too.
func (t *StoredTransaction) ClearTransfer() {
	t.IsInternalTransfer = false
	t.LinkedAccountID = ""
	t.LinkedTransactionID = ""
	t.TransferGroupID = ""
	if t.Category == CategoryTransfers {
		t.Category = CategoryNone
	}
}

// SameDay reports whether two timestamps fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the absolute number of calendar days separating a and b.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	d := int(da.Sub(db).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}
