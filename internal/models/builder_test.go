package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionBuilder_DebitCredit(t *testing.T) {
	date := time.Date(2024, 3, 15, 13, 45, 0, 0, time.UTC)

	tests := []struct {
		name       string
		debit      string
		credit     string
		wantAmount string
		wantType   TransactionType
		wantErr    bool
	}{
		{name: "debit column", debit: "500.00", credit: "0", wantAmount: "-500", wantType: TransactionTypeDebit},
		{name: "credit column", debit: "0", credit: "1200.50", wantAmount: "1200.5", wantType: TransactionTypeCredit},
		{name: "debit wins when both set", debit: "10", credit: "20", wantAmount: "-10", wantType: TransactionTypeDebit},
		{name: "neither column", debit: "0", credit: "0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := NewTransactionBuilder().
				WithDate(date).
				WithDescription("  UPI-SWIGGY   payment ").
				WithDebitCredit(decimal.RequireFromString(tt.debit), decimal.RequireFromString(tt.credit)).
				WithSource("hdfc", "HDFC Bank").
				Build()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.wantAmount).Equal(tx.Amount))
			assert.Equal(t, tt.wantType, tx.TransactionType)
			assert.Equal(t, "UPI-SWIGGY payment", tx.Description)
			assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), tx.Date)
		})
	}
}

func TestTransactionBuilder_RequiresDateAndSource(t *testing.T) {
	_, err := NewTransactionBuilder().WithAmount(decimal.NewFromInt(5)).WithSource("sbi", "SBI").Build()
	assert.Error(t, err)

	_, err = NewTransactionBuilder().WithDate(time.Now()).WithAmount(decimal.NewFromInt(5)).Build()
	assert.Error(t, err)

	_, err = NewTransactionBuilder().WithDate(time.Time{}).Build()
	assert.EqualError(t, err, "date cannot be zero")
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 18, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 3, DaysBetween(a, b))
	assert.Equal(t, 3, DaysBetween(b, a))
	assert.True(t, SameDay(a, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
}

func TestRootCategories(t *testing.T) {
	cats := RootCategories()
	assert.Len(t, cats, 18)
	assert.True(t, IsValidCategory(CategorySubscriptions))
	assert.False(t, IsValidCategory("groceries"))
	assert.False(t, IsValidCategory(CategoryNone))

	cats[0].Label = "changed"
	c, _ := LookupCategory(CategoryIncome)
	assert.Equal(t, "Income", c.Label)
}

func TestStoredTransaction_ClearTransfer(t *testing.T) {
	tx := StoredTransaction{
		Category:            CategoryTransfers,
		IsInternalTransfer:  true,
		LinkedAccountID:     "acc-2",
		LinkedTransactionID: "tx-9",
		TransferGroupID:     "grp",
	}
	tx.ClearTransfer()
	assert.Equal(t, StoredTransaction{}, tx)

	other := StoredTransaction{Category: CategoryFood, LinkedAccountID: "acc-2"}
	other.ClearTransfer()
	assert.Equal(t, CategoryFood, other.Category)
}
