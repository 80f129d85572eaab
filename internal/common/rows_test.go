package common

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	r, err := OpenRows(path)
	require.NoError(t, err)
	defer r.Close()

	var rows [][]string
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestOpenRows_DelimitedWithBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stmt.csv")
	content := "\xEF\xBB\xBFDate,Narration,Amount\n15/03/24,\"UPI-SWIGGY, BLR\",500.00\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	rows := readAll(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, []string{"15/03/24", "UPI-SWIGGY, BLR", "500.00"}, rows[1])
}

func TestOpenRows_SemicolonAndRaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stmt.txt")
	content := "Account Statement\nDate;Description;Debit;Credit\n01/02/2024;ATM WDL;2000;\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	rows := readAll(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Account Statement"}, rows[0])
	assert.Equal(t, "ATM WDL", rows[2][1])
}

func TestOpenRows_TabSeparatedBlankCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stmt.xls")
	content := "Txn Date\tValue Date\tDescription\tRef No./Cheque No.\tDebit\tCredit\tBalance\n" +
		"1 Mar 2024\t1 Mar 2024\tBY TRANSFER-NEFT\t\t\t25,000.00\t1,25,000.00\n" +
		"2 Mar 2024\t2 Mar 2024\t ATM WDL\t\t2,000.00\t\t1,23,000.00\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	rows := readAll(t, path)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Len(t, row, 7)
	}
	assert.Equal(t, []string{"1 Mar 2024", "1 Mar 2024", "BY TRANSFER-NEFT", "", "", "25,000.00", "1,25,000.00"}, rows[1])
	assert.Equal(t, "", rows[2][3])
	assert.Equal(t, "2,000.00", rows[2][4])
	assert.Equal(t, "", rows[2][5])
	assert.Equal(t, " ATM WDL", rows[2][2], "cells are trimmed by the parsers, not the reader")
}

func TestOpenRows_UTF16(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stmt.csv")
	// UTF-16LE with BOM for "A,B\n"
	content := []byte{0xFF, 0xFE, 'A', 0, ',', 0, 'B', 0, '\n', 0}
	require.NoError(t, os.WriteFile(path, content, 0600))

	rows := readAll(t, path)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"A", "B"}, rows[0])
}

func TestOpenRows_LegacyExcelRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stmt.xls")
	require.NoError(t, os.WriteFile(path, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1}, 0600))

	_, err := OpenRows(path)
	assert.ErrorIs(t, err, ErrLegacyExcel)
}

func TestOpenRows_Workbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stmt.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Value Date", "Remarks", "Withdrawal"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{45366, "UPI/SWIGGY", 250.5}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows := readAll(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"45366", "UPI/SWIGGY", "250.5"}, rows[1])
}

func TestReadHeadRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stmt.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\nd\n"), 0600))

	rows, err := ReadHeadRows(path, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b"}}, rows)
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', SniffDelimiter([]byte("a;b;c\n1;2;3\n")))
	assert.Equal(t, '\t', SniffDelimiter([]byte("a\tb\n1\t2\n")))
	assert.Equal(t, ',', SniffDelimiter([]byte("\"x;y\",b\n")))
	assert.Equal(t, ',', SniffDelimiter(nil))
}
