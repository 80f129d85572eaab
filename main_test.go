package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"fjacquet/bankfeed/cmd/root"
	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statement = `                          HDFC BANK Ltd.                   Page No .: 1
MR RAVI KUMAR                                       Account Branch : ANDHERI WEST
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
`

var importIDPattern = regexp.MustCompile(`imported as (\S+) \(hdfc\)`)

type cli struct {
	db  string
	dir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BANKFEED_LOG_LEVEL", "error")
	dir := t.TempDir()
	t.Chdir(dir)
	t.Cleanup(func() { _ = root.Close() })
	return &cli{db: filepath.Join(dir, "bankfeed.db"), dir: dir}
}

func (c *cli) exec(args ...string) (string, error) {
	var out bytes.Buffer
	root.Cmd.SetOut(&out)
	root.Cmd.SetErr(io.Discard)
	root.Cmd.SetArgs(append([]string{"--db", c.db}, args...))
	err := root.Cmd.ExecuteContext(context.Background())
	if closeErr := root.Close(); err == nil {
		err = closeErr
	}
	return out.String(), err
}

func (c *cli) run(t *testing.T, args ...string) string {
	t.Helper()
	out, err := c.exec(args...)
	require.NoError(t, err, "bankfeed %s", strings.Join(args, " "))
	return out
}

func (c *cli) transactions(t *testing.T, accountID string) map[string]models.StoredTransaction {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), c.db, logging.NewMockLogger())
	require.NoError(t, err)
	defer s.Close()
	txns, err := s.ListTransactionsByAccount(context.Background(), accountID)
	require.NoError(t, err)
	out := make(map[string]models.StoredTransaction, len(txns))
	for _, tx := range txns {
		out[tx.MerchantKey] = tx
	}
	return out
}

func TestCLI_ImportWorkflow(t *testing.T) {
	c := newCLI(t)
	path := filepath.Join(c.dir, "Acct_Statement_XX5678.txt")
	require.NoError(t, os.WriteFile(path, []byte(statement), 0600))

	out := c.run(t, "accounts", "add", "--id", "hdfc-1", "--name", "Salary", "--bank", "HDFC", "--last4", "5678")
	assert.Contains(t, out, "Account hdfc-1 (Salary, HDFC Bank) saved")
	c.run(t, "accounts", "add", "--id", "icici-1", "--name", "Savings", "--bank", "icici", "--last4", "4321")

	out = c.run(t, "accounts", "list")
	assert.Contains(t, out, "hdfc-1")
	assert.Contains(t, out, "ICICI Bank")

	out = c.run(t, "formats")
	for _, bank := range []string{"HDFC Bank", "ICICI Bank", "State Bank of India", "Axis Bank"} {
		assert.Contains(t, out, bank)
	}

	review := filepath.Join(c.dir, "review.csv")
	out = c.run(t, "import", "--account", "hdfc-1", "--no-progress", "--review", review, path)
	assert.Contains(t, out, "parsed 5, inserted 5, duplicates 0")
	assert.Contains(t, out, "row errors 1")
	m := importIDPattern.FindStringSubmatch(out)
	require.Len(t, m, 2)
	firstImport := m[1]
	assert.FileExists(t, review)

	out = c.run(t, "import", "--account", "hdfc-1", "--no-progress", "--review", "", path)
	assert.Contains(t, out, "parsed 5, inserted 0, duplicates 5")

	out = c.run(t, "imports", "list", "--account", "hdfc-1")
	assert.Contains(t, out, firstImport)
	assert.Equal(t, 2, strings.Count(out, "Acct_Statement_XX5678.txt"))

	out = c.run(t, "export", "--account", "hdfc-1")
	assert.True(t, strings.HasPrefix(out, "ID,AccountID,Date"))
	assert.Contains(t, out, "SWIGGY")
	assert.Contains(t, out, "food")

	swiggy, ok := c.transactions(t, "hdfc-1")["SWIGGY"]
	require.True(t, ok)
	assert.Equal(t, models.CategoryFood, swiggy.Category)

	out = c.run(t, "rules", "set", swiggy.ID, "shopping")
	assert.Contains(t, out, "set to shopping")
	out = c.run(t, "rules", "list")
	assert.Contains(t, out, "SWIGGY")
	assert.Contains(t, out, "user")
	assert.Equal(t, models.CategoryShopping, c.transactions(t, "hdfc-1")["SWIGGY"].Category)

	out = c.run(t, "categorize", "--explain", swiggy.ID)
	assert.Contains(t, out, "UserRule: shopping")

	_, err := c.exec("rules", "set", swiggy.ID, "groceries")
	assert.Error(t, err)

	exported := filepath.Join(c.dir, "out", "hdfc.csv")
	out = c.run(t, "export", "--account", "hdfc-1", "--output", exported)
	assert.Contains(t, out, "Exported 5 transactions")
	assert.FileExists(t, exported)

	out = c.run(t, "imports", "delete", firstImport)
	assert.Contains(t, out, "deleted with 5 transactions")
	assert.Empty(t, c.transactions(t, "hdfc-1"))
}

func TestCLI_Errors(t *testing.T) {
	c := newCLI(t)

	_, err := c.exec("accounts", "add", "--id", "x", "--name", "X", "--bank", "citi")
	assert.Error(t, err)

	_, err = c.exec("accounts", "add", "--id", "x", "--name", "X", "--bank", "sbi", "--last4", "12a4")
	assert.ErrorContains(t, err, "four digits")

	_, err = c.exec("categorize", "--explain", "")
	assert.ErrorContains(t, err, "--account is required")

	_, err = c.exec("import", "--account", "missing", "--no-progress", filepath.Join(c.dir, "nothing.csv"))
	assert.ErrorContains(t, err, "1 of 1 files failed")

	_, err = c.exec("transfers", "link", "tx-1")
	assert.ErrorContains(t, err, "--account or --with is required")
}
