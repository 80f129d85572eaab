package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"fjacquet/bankfeed/internal/currencyutils"
	"fjacquet/bankfeed/internal/dateutils"
	"fjacquet/bankfeed/internal/models"

	"github.com/shopspring/decimal"
)

// GenerateFingerprint hashes accountID, bank id, date, normalized narration and the
// layout's raw fingerprint columns. Row position never enters the hash.
func (b *BaseParser) GenerateFingerprint(tx models.UnifiedTransaction, accountID string) string {
	parts := []string{
		accountID,
		b.layout.BankID,
		dateutils.ToISODate(tx.Date),
		NormalizeDescription(tx.Description),
	}
	for _, f := range b.layout.FingerprintFields {
		parts = append(parts, string(f)+"="+b.rawField(tx, f))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return b.layout.BankID + ":" + hex.EncodeToString(sum[:])
}

// rawField reads f from OriginalData through the layout's aliases, falling back to the
// typed fields when the transaction did not come from a file.
func (b *BaseParser) rawField(tx models.UnifiedTransaction, f Field) string {
	if len(tx.OriginalData) > 0 {
		header := make([]string, 0, len(tx.OriginalData))
		for k := range tx.OriginalData {
			header = append(header, k)
		}
		// Map iteration order is random; sort so alias resolution is stable.
		sort.Strings(header)
		cols, _ := b.layout.ResolveColumns(header)
		if idx, ok := cols[f]; ok {
			return canonicalCell(f, tx.OriginalData[header[idx]])
		}
	}

	switch f {
	case FieldDebit:
		if tx.Amount.IsNegative() {
			return tx.Amount.Abs().String()
		}
		return ""
	case FieldCredit:
		if tx.Amount.IsPositive() {
			return tx.Amount.String()
		}
		return ""
	case FieldBalance:
		if tx.Balance != nil {
			return tx.Balance.String()
		}
	case FieldReference:
		return tx.ReferenceNo
	case FieldValueDate:
		if tx.ValueDate != nil {
			return dateutils.ToISODate(*tx.ValueDate)
		}
	}
	return ""
}

// canonicalCell makes CSV and workbook exports of the same row hash identically:
// "1,250.00" and "1250" both become "1250", and date cells become ISO dates.
func canonicalCell(f Field, raw string) string {
	raw = strings.TrimSpace(raw)
	switch f {
	case FieldDebit, FieldCredit, FieldBalance:
		if d, err := decimal.NewFromString(currencyutils.StandardizeAmount(raw)); err == nil {
			if d.IsZero() {
				return ""
			}
			return d.String()
		}
	case FieldDate, FieldValueDate:
		if t, err := dateutils.ParseStatementDate(raw); err == nil {
			return dateutils.ToISODate(t)
		}
	}
	return strings.ToUpper(raw)
}

// NormalizeDescription uppercases, keeps letters, digits and single spaces.
func NormalizeDescription(desc string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToUpper(desc) {
		switch {
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}
