package common

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fjacquet/bankfeed/internal/dateutils"
	"fjacquet/bankfeed/internal/models"

	"github.com/gocarina/gocsv"
)

// TransactionRow is the flat CSV shape of a stored transaction.
type TransactionRow struct {
	ID                  string `csv:"ID"`
	AccountID           string `csv:"AccountID"`
	Date                string `csv:"Date"`
	ValueDate           string `csv:"ValueDate"`
	Description         string `csv:"Description"`
	Amount              string `csv:"Amount"`
	Type                string `csv:"Type"`
	Balance             string `csv:"Balance"`
	ReferenceNo         string `csv:"ReferenceNo"`
	Bank                string `csv:"Bank"`
	MerchantKey         string `csv:"MerchantKey"`
	Category            string `csv:"Category"`
	IsInternalTransfer  bool   `csv:"IsInternalTransfer"`
	LinkedAccountID     string `csv:"LinkedAccountID"`
	LinkedTransactionID string `csv:"LinkedTransactionID"`
	TransferGroupID     string `csv:"TransferGroupID"`
	ImportID            string `csv:"ImportID"`
}

// ReviewRow is the CSV shape of a duplicate check, for reviewing an import before it is written.
type ReviewRow struct {
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	Amount      string `csv:"Amount"`
	Status      string `csv:"Status"`
	Confidence  string `csv:"Confidence"`
	ExistingID  string `csv:"ExistingID"`
	Fingerprint string `csv:"Fingerprint"`
}

// NewTransactionRow flattens a stored transaction.
func NewTransactionRow(tx models.StoredTransaction) TransactionRow {
	row := TransactionRow{
		ID:                  tx.ID,
		AccountID:           tx.AccountID,
		Date:                dateutils.ToISODate(tx.Date),
		Description:         tx.Description,
		Amount:              tx.Amount.StringFixed(2),
		Type:                string(tx.TransactionType),
		ReferenceNo:         tx.ReferenceNo,
		Bank:                tx.BankName,
		MerchantKey:         tx.MerchantKey,
		Category:            string(tx.Category),
		IsInternalTransfer:  tx.IsInternalTransfer,
		LinkedAccountID:     tx.LinkedAccountID,
		LinkedTransactionID: tx.LinkedTransactionID,
		TransferGroupID:     tx.TransferGroupID,
		ImportID:            tx.ImportID,
	}
	if tx.ValueDate != nil {
		row.ValueDate = dateutils.ToISODate(*tx.ValueDate)
	}
	if tx.Balance != nil {
		row.Balance = tx.Balance.StringFixed(2)
	}
	return row
}

// NewReviewRow flattens a duplicate check result.
func NewReviewRow(r models.DuplicateCheckResult) ReviewRow {
	status := "new"
	switch {
	case r.IsExactDuplicate:
		status = "duplicate"
	case r.IsPossibleDuplicate:
		status = "possible-duplicate"
	}
	row := ReviewRow{
		Date:        dateutils.ToISODate(r.Transaction.Date),
		Description: r.Transaction.Description,
		Amount:      r.Transaction.Amount.StringFixed(2),
		Status:      status,
		Confidence:  string(r.Confidence),
		Fingerprint: r.Fingerprint,
	}
	if r.ExistingTransaction != nil {
		row.ExistingID = r.ExistingTransaction.ID
	}
	return row
}

// WriteCSV marshals rows with gocsv using delimiter.
func WriteCSV[T any](w io.Writer, rows []T, delimiter rune) error {
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = delimiter
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}

// WriteTransactionsToCSV writes stored transactions to path, creating parent directories.
func WriteTransactionsToCSV(path string, txns []models.StoredTransaction, delimiter rune) error {
	rows := make([]TransactionRow, 0, len(txns))
	for _, tx := range txns {
		rows = append(rows, NewTransactionRow(tx))
	}
	return writeFile(path, func(w io.Writer) error { return WriteCSV(w, rows, delimiter) })
}

// WriteReviewToCSV writes duplicate check results to path.
func WriteReviewToCSV(path string, results []models.DuplicateCheckResult, delimiter rune) error {
	rows := make([]ReviewRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, NewReviewRow(r))
	}
	return writeFile(path, func(w io.Writer) error { return WriteCSV(w, rows, delimiter) })
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), models.PermissionDirectory); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
