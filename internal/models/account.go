package models

import "time"

// Account is a bank account statements are imported into.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	BankID       string    `json:"bankId"`
	BankName     string    `json:"bankName"`
	AccountLast4 string    `json:"accountLast4,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ImportRecord is the provenance of one statement import.
type ImportRecord struct {
	ID                 string    `json:"id"`
	AccountID          string    `json:"accountId"`
	BankID             string    `json:"bankId"`
	FileName           string    `json:"fileName"`
	ImportedAt         time.Time `json:"importedAt"`
	ParsedCount        int       `json:"parsedCount"`
	InsertedCount      int       `json:"insertedCount"`
	DuplicateCount     int       `json:"duplicateCount"`
	PossibleDuplicates int       `json:"possibleDuplicates"`
	ErrorCount         int       `json:"errorCount"`
	SkippedCount       int       `json:"skippedCount"`
	CategorizedCount   int       `json:"categorizedCount"`
	LinkedTransfers    int       `json:"linkedTransfers"`
}
