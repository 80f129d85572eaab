// Package axisparser reads Axis Bank account statements.
package axisparser

import (
	"regexp"
	"strings"

	"fjacquet/bankfeed/internal/merchant"
	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/parser"
)

// BankID is the registry key of this adapter.
const BankID = "axis"

// Layout describes the Axis CSV download. SOL (branch id) is not part of a transaction.
var Layout = parser.Layout{
	BankID:         BankID,
	BankName:       "Axis Bank",
	HeaderKeywords: []string{"tran date", "chqno", "particulars", "dr", "cr", "bal"},
	Columns: map[parser.Field][]string{
		parser.FieldDate:      {"tran date", "transaction date"},
		parser.FieldValueDate: {"value date"},
		parser.FieldNarration: {"particulars", "narration"},
		parser.FieldReference: {"chqno", "cheque no"},
		parser.FieldDebit:     {"dr", "debit"},
		parser.FieldCredit:    {"cr", "credit"},
		parser.FieldBalance:   {"bal", "balance"},
	},
	Required:          []parser.Field{parser.FieldDate, parser.FieldNarration, parser.FieldDebit, parser.FieldCredit},
	FingerprintFields: []parser.Field{parser.FieldReference, parser.FieldDebit, parser.FieldCredit, parser.FieldBalance},
	FileTypes:         []string{".csv", ".xlsx"},
	DateFormats:       []string{"DD-MM-YYYY"},
	Description:       "Axis Bank account statement with slash-separated narrations",
}

var (
	narrationPrefix = regexp.MustCompile(`^(UPI/P2[AM]/|NEFT/|IMPS/P2[AM]/|RTGS/|ECOM PUR/|POS/|ATM-CASH|BRN-|INB/|MOB/)`)
	selfMarker      = regexp.MustCompile(`\bSELF\b|\bOWN A/?C(COUNT)?\b`)
	branchCheque    = regexp.MustCompile(`^BRN-[A-Z\-]*\s*(PAID TO|DEP BY|TO|BY)?\s*`)
)

func extractMerchantKey(narration string) string {
	s := strings.Join(strings.Fields(strings.ToUpper(narration)), " ")
	if s == "" {
		return models.MerchantKeyUnknown
	}
	parts := strings.Split(s, "/")

	switch {
	case strings.HasPrefix(s, "ATM-CASH"):
		return "ATM"
	case strings.HasPrefix(s, "UPI/"), strings.HasPrefix(s, "IMPS/"):
		// UPI/P2M/<rrn>/<name>/<note>/<bank>
		if key := field(parts, 3); key != "" {
			return key
		}
	case strings.HasPrefix(s, "NEFT/"), strings.HasPrefix(s, "RTGS/"):
		// NEFT/<utr>/<name>/<bank>
		if key := field(parts, 2); key != "" {
			return key
		}
	case strings.HasPrefix(s, "BRN-"):
		// BRN-CLG-CHQ PAID TO <payee>
		if key := merchant.FirstSubstantialToken(branchCheque.ReplaceAllString(s, "")); key != "" {
			return key
		}
	case strings.HasPrefix(s, "ECOM PUR/"), strings.HasPrefix(s, "POS/"):
		// POS/<merchant>/<city>/<date>
		if key := field(parts, 1); key != "" {
			return key
		}
	}

	if selfMarker.MatchString(s) {
		return models.MerchantKeySelf
	}
	return merchant.Extract(s)
}

func field(parts []string, idx int) string {
	if idx >= len(parts) || strings.Contains(parts[idx], "@") {
		return ""
	}
	return merchant.FirstSubstantialToken(parts[idx])
}
