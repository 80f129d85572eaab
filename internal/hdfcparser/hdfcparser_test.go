package hdfcparser

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

const statement = `                          HDFC BANK Ltd.                   Page No .: 1
MR RAVI KUMAR                                       Account Branch : ANDHERI WEST
FLAT 12 SUNRISE APTS                                Address : S V ROAD
MUMBAI 400058                                       City : MUMBAI 400058
JOINT HOLDERS :                                     Phone no. : 18002026161
Nomination : Registered                             OD Limit : 0.00 Currency : INR
Statement From : 01/03/24 To : 31/03/24             Account No : 50100012345678
Date,Narration,Chq./Ref.No.,Value Dt,Withdrawal Amt.,Deposit Amt.,Closing Balance
********,********,********,********,********,********,********
01/03/24,UPI-SWIGGY-SWIGGY@ICICI-ICIC0DC0099-412345678901-PAYMENT FROM PHONE,0000412345678901,01/03/24,450.00,,"49,550.00"
01/03/24,NEFT CR-ICIC0000123-ACME CORP LTD-SALARY MAR-ICICN52024030100001,ICICN52024030100001,01/03/24,,"85,000.00","1,34,550.00"
05/03/24,NEFT DR-ICIC0000104-RAVI KUMAR-NETBANK MUM-N065240123456-ICIC-XX4321-RAVI KUMAR,N065240123456,05/03/24,"50,000.00",,"84,550.00"
15/03/24,ACH D- HDFCMF-123456789,0000123456789,15/03/24,"5,000.00",,"79,550.00"
15/03/24,,,,,,
20/03/24,ATW-416021XXXXXX1234-S1CN1234-MUMBAI,0000000001234,20/03/24,"2,000.00",,"77,550.00"
********,********,********,********,********,********,********
STATEMENT SUMMARY  :-
Opening Balance,Dr Count,Cr Count,Debits,Credits,Closing Bal
50000.00,4,1,57450.00,85000.00,77550.00
Generated On: 01/04/2024 10:15:00 Generated By: 12345678 Requesting Branch Code: NET
This is a computer generated statement and does not require signature.
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Acct_Statement_XX5678.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestAdapter_Parse(t *testing.T) {
	a := NewAdapter(logging.NewMockLogger())
	path := writeFile(t, statement)

	ok, err := a.CanParseFile(path)
	require.NoError(t, err)
	assert.True(t, ok)

	result, err := a.Parse(context.Background(), path, nil)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 5)
	assert.Equal(t, 1, result.ErrorCount, "dated row without amounts")
	assert.Equal(t, 7, result.Metadata.HeaderRow)

	salary := result.Transactions[1]
	assert.True(t, decimal.NewFromInt(85000).Equal(salary.Amount))
	assert.Equal(t, models.TransactionTypeCredit, salary.TransactionType)
	require.NotNil(t, salary.Balance)
	assert.True(t, decimal.NewFromInt(134550).Equal(*salary.Balance))

	transfer := result.Transactions[2]
	assert.True(t, decimal.NewFromInt(-50000).Equal(transfer.Amount))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), transfer.Date)
	assert.Equal(t, "ICIC-XX4321-RAVI KUMAR", a.ExtractMerchantKey(transfer.Description))
	assert.True(t, a.IsSelfTransfer(transfer.Description))

	assert.Equal(t, "HDFC Bank", result.Metadata.BankName)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), result.Metadata.PeriodStart)
	assert.Equal(t, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), result.Metadata.PeriodEnd)
}

func TestAdapter_FingerprintStableAcrossReimport(t *testing.T) {
	a := NewAdapter(logging.NewMockLogger())
	first, err := a.Parse(context.Background(), writeFile(t, statement), nil)
	require.NoError(t, err)
	second, err := a.Parse(context.Background(), writeFile(t, statement), nil)
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := range first.Transactions {
		fp := a.GenerateFingerprint(first.Transactions[i], "acc-hdfc")
		assert.Equal(t, fp, a.GenerateFingerprint(second.Transactions[i], "acc-hdfc"))
		assert.True(t, strings.HasPrefix(fp, "hdfc:"))
		assert.False(t, seen[fp], "fingerprints are unique within a statement")
		seen[fp] = true
	}
}

func TestAdapter_RejectsOtherBanks(t *testing.T) {
	a := NewAdapter(logging.NewMockLogger())
	path := writeFile(t, "Txn Date,Value Date,Description,Ref No./Cheque No.,Debit,Credit,Balance\n15 Mar 2024,15 Mar 2024,X,,1.00,,1.00\n")

	ok, err := a.CanParseFile(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdapter_ExtractMerchantKey(t *testing.T) {
	a := NewAdapter(nil)
	tests := []struct {
		name      string
		narration string
		want      string
	}{
		{"upi merchant", "UPI-SWIGGY-SWIGGY@ICICI-ICIC0DC0099-412345678901-PAYMENT FROM PHONE", "SWIGGY"},
		{"upi person", "UPI-RAVI KUMAR-RAVIK@OKSBI-SBIN0001234-412345678901-RENT", "RAVI"},
		{"neft credit", "NEFT CR-ICIC0000123-ACME CORP LTD-SALARY MAR-ICICN52024030100001", "ACME"},
		{"beneficiary token kept verbatim", "NEFT DR-ICIC0000104-RAVI KUMAR-NETBANK MUM-N065240123456-ICIC-XX4321-RAVI KUMAR", "ICIC-XX4321-RAVI KUMAR"},
		{"self without name", "IMPS-412345678901-SELF-ICIC-XX4321", models.MerchantKeySelf},
		{"imps payee", "IMPS-412345678901-ANITA SHARMA-SBIN-000123", "ANITA"},
		{"ach mandate", "ACH D- HDFCMF-123456789", "HDFCMF"},
		{"cash withdrawal", "ATW-416021XXXXXX1234-S1CN1234-MUMBAI", "ATM"},
		{"card purchase", "POS 416021XXXXXX1234 BIG BAZAAR", "BIG"},
		{"empty", "   ", models.MerchantKeyUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.ExtractMerchantKey(tt.narration))
		})
	}
}

func TestAdapter_CanHandle(t *testing.T) {
	a := NewAdapter(nil)
	assert.True(t, a.CanHandle("UPI-SWIGGY-SWIGGY@ICICI-412345678901"))
	assert.True(t, a.CanHandle("neft cr-ICIC0000123-ACME CORP LTD"))
	assert.True(t, a.CanHandle("POS 416021XXXXXX1234 BIG BAZAAR"))
	assert.False(t, a.CanHandle("UPI/412345678901/RAVI/ravi@okaxis"))
	assert.False(t, a.CanHandle("BY TRANSFER-UPI/CR/412345678901/RAVI"))
}

func TestAdapter_IsSelfTransfer(t *testing.T) {
	a := NewAdapter(nil)
	assert.True(t, a.IsSelfTransfer("IMPS-412345678901-SELF-ICIC-XX4321"))
	assert.True(t, a.IsSelfTransfer("NEFT DR-UTIB0000123-TRANSFER TO OWN ACCOUNT"))
	assert.False(t, a.IsSelfTransfer("UPI-SWIGGY-SWIGGY@ICICI-412345678901"))
	assert.False(t, a.IsSelfTransfer("UPI-SELFRIDGES-SELFRIDGES@ICICI-1"))
}
