package sbiparser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tsv(rows ...[]string) string {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(strings.Join(r, "\t"))
		b.WriteString("\n")
	}
	return b.String()
}

func statement() string {
	return tsv(
		[]string{"Account Name", ":", "Mr. RAVI KUMAR"},
		[]string{"Address", ":", "ANDHERI WEST MUMBAI"},
		[]string{"Account Number", ":", "_00000012345678901"},
		[]string{"Start Date", ":", "1 Mar 2024"},
		[]string{"End Date", ":", "31 Mar 2024"},
		[]string{""},
		[]string{"Txn Date", "Value Date", "Description", "Ref No./Cheque No.", "        Debit", "Credit", "Balance"},
		[]string{"1 Mar 2024", "1 Mar 2024", "BY TRANSFER-UPI/CR/406112345678/RAVI KUMAR/SBIN/ravi@oksbi/NA", "TRANSFER FROM 4897691162093", "", "5,000.00", "55,000.00"},
		[]string{"2 Mar 2024", "2 Mar 2024", "TO TRANSFER-UPI/DR/406212345678/SWIGGY/YESB/swiggy@yb/Payment--", "TRANSFER TO 4897694162092", "450.00", "", "54,550.00"},
		[]string{"05-Mar-24", "05-Mar-24", "TO TRANSFER-INB IMPS/P2A/406512345678/SELF--", "TRANSFER TO 4897691162093", "20,000.00", "", "34,550.00"},
		[]string{"10 Mar 2024", "10 Mar 2024", "ATM WDL-ATM CASH 6789 ANDHERI WEST MUMBAI", "", "2,000.00", "", "32,550.00"},
		[]string{"**This is a computer generated statement and does not require a signature"},
	)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "1234567890.xls")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestAdapter_Parse(t *testing.T) {
	a := NewAdapter(logging.NewMockLogger())
	path := writeFile(t, statement())

	ok, err := a.CanParseFile(path)
	require.NoError(t, err)
	assert.True(t, ok)

	result, err := a.Parse(context.Background(), path, nil)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 4)
	assert.Equal(t, 0, result.ErrorCount)
	assert.Equal(t, 1, result.SkippedRowCount)

	credit := result.Transactions[0]
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), credit.Date)
	assert.True(t, decimal.NewFromInt(5000).Equal(credit.Amount))
	assert.Equal(t, "TRANSFER FROM 4897691162093", credit.ReferenceNo)

	self := result.Transactions[2]
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), self.Date, "DD-MMM-YY")
	assert.True(t, decimal.NewFromInt(-20000).Equal(self.Amount))
	assert.Equal(t, models.MerchantKeySelf, a.ExtractMerchantKey(self.Description))
	assert.True(t, a.IsSelfTransfer(self.Description))
}

func TestAdapter_FingerprintIgnoresAccountDetails(t *testing.T) {
	a := NewAdapter(logging.NewMockLogger())
	first, err := a.Parse(context.Background(), writeFile(t, statement()), nil)
	require.NoError(t, err)

	// Same rows, different download: the account block above the header changes.
	rewritten := strings.Replace(statement(), "ANDHERI WEST MUMBAI", "BANDRA MUMBAI", 1)
	second, err := a.Parse(context.Background(), writeFile(t, rewritten), nil)
	require.NoError(t, err)

	for i := range first.Transactions {
		assert.Equal(t,
			a.GenerateFingerprint(first.Transactions[i], "acc-sbi"),
			a.GenerateFingerprint(second.Transactions[i], "acc-sbi"))
	}
}

func TestAdapter_ExtractMerchantKey(t *testing.T) {
	a := NewAdapter(nil)
	tests := []struct {
		name      string
		narration string
		want      string
	}{
		{"upi credit", "BY TRANSFER-UPI/CR/406112345678/RAVI KUMAR/SBIN/ravi@oksbi/NA", "RAVI"},
		{"upi debit", "TO TRANSFER-UPI/DR/406212345678/SWIGGY/YESB/swiggy@yb/Payment--", "SWIGGY"},
		{"imps self", "TO TRANSFER-INB IMPS/P2A/406512345678/SELF--", models.MerchantKeySelf},
		{"imps named", "TO TRANSFER-INB IMPS/P2A/406512345678/ANITA SHARMA/HDFC", "ANITA"},
		{"neft", "BY TRANSFER-NEFT*HDFC0000001*N065240123456*ACME CORP LTD*", "ACME"},
		{"atm", "ATM WDL-ATM CASH 6789 ANDHERI WEST MUMBAI", "ATM"},
		{"card fee", "DEBIT-ATMCard AMC 416021*1234 CLASSIC", "ATMCARD"},
		{"interest", "CREDIT INTEREST", "INTEREST"},
		{"blank", "", models.MerchantKeyUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.ExtractMerchantKey(tt.narration))
		})
	}
}

func TestAdapter_CanHandle(t *testing.T) {
	a := NewAdapter(nil)
	assert.True(t, a.CanHandle("BY TRANSFER-UPI/CR/406112345678/RAVI KUMAR"))
	assert.True(t, a.CanHandle("  to transfer-INB IMPS/P2A/406512345678/SELF"))
	assert.True(t, a.CanHandle("ATM WDL-ATM CASH 6789"))
	assert.False(t, a.CanHandle("UPI/412345678901/RAVI KUMAR/ravi@okaxis"))
}
