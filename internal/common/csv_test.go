package common

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fjacquet/bankfeed/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStored() models.StoredTransaction {
	bal := decimal.RequireFromString("10500.75")
	return models.StoredTransaction{
		UnifiedTransaction: models.UnifiedTransaction{
			Date:            time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Description:     "UPI-SWIGGY-SWIGGY@ICICI",
			Amount:          decimal.NewFromInt(-450),
			Balance:         &bal,
			TransactionType: models.TransactionTypeDebit,
			BankName:        "HDFC Bank",
		},
		ID:          "tx-1",
		AccountID:   "acc-1",
		MerchantKey: "SWIGGY",
		Category:    models.CategoryFood,
	}
}

func TestWriteCSV_TransactionRows(t *testing.T) {
	var buf bytes.Buffer
	rows := []TransactionRow{NewTransactionRow(sampleStored())}
	require.NoError(t, WriteCSV(&buf, rows, ';'))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID;AccountID;Date;"))
	assert.Contains(t, lines[1], "tx-1;acc-1;2024-03-15;;UPI-SWIGGY-SWIGGY@ICICI;-450.00;debit;10500.75")
	assert.Contains(t, lines[1], ";SWIGGY;food;")
}

func TestWriteReviewToCSV(t *testing.T) {
	existing := sampleStored()
	results := []models.DuplicateCheckResult{
		{Transaction: existing.UnifiedTransaction, Fingerprint: "fp1", IsExactDuplicate: true, Confidence: models.ConfidenceExact, ExistingTransaction: &existing},
		{Transaction: existing.UnifiedTransaction, Fingerprint: "fp2", Confidence: models.ConfidenceLow},
	}
	path := filepath.Join(t.TempDir(), "out", "review.csv")
	require.NoError(t, WriteReviewToCSV(path, results, ','))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "duplicate,exact,tx-1,fp1")
	assert.Contains(t, out, "new,low,,fp2")
}
