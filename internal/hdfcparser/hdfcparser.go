// Package hdfcparser reads HDFC Bank savings account statements.
//
// NetBanking exports a delimited text file with roughly twenty lines of customer and
// branch details above the header row, a row of asterisks under it and a statement
// summary block after the last transaction.
package hdfcparser

import (
	"regexp"
	"strings"

	"fjacquet/bankfeed/internal/merchant"
	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/parser"
)

// BankID is the registry key of this adapter.
const BankID = "hdfc"

// Layout describes the HDFC delimited export.
var Layout = parser.Layout{
	BankID:         BankID,
	BankName:       "HDFC Bank",
	HeaderKeywords: []string{"date", "narration", "ref no", "value dt", "withdrawal", "deposit", "closing balance"},
	Columns: map[parser.Field][]string{
		parser.FieldDate:      {"date", "txn date"},
		parser.FieldValueDate: {"value dt", "value date"},
		parser.FieldNarration: {"narration", "description"},
		parser.FieldReference: {"chq ref no", "ref no"},
		parser.FieldDebit:     {"withdrawal amt", "withdrawal"},
		parser.FieldCredit:    {"deposit amt", "deposit"},
		parser.FieldBalance:   {"closing balance", "balance"},
	},
	Required:          []parser.Field{parser.FieldDate, parser.FieldNarration, parser.FieldDebit, parser.FieldCredit},
	FingerprintFields: []parser.Field{parser.FieldReference, parser.FieldDebit, parser.FieldCredit, parser.FieldBalance},
	FileTypes:         []string{".txt", ".csv", ".xls"},
	DateFormats:       []string{"DD/MM/YY", "DD/MM/YYYY"},
	Description:       "HDFC NetBanking delimited statement with buried header row",
}

var (
	narrationPrefix = regexp.MustCompile(`^(UPI-|NEFT (CR|DR)-|RTGS (CR|DR)-|IMPS-|ACH [CD]-|NACH-|POS \d|ATW-|NWD-|EAW-|CC \d)`)

	// beneficiaryToken is the BANK-XXnnnn-NAME token HDFC appends to transfers
	// between accounts, e.g. "ICIC-XX4321-RAVI KUMAR".
	beneficiaryToken = regexp.MustCompile(`[A-Z]{4}-XX\d{4}-[A-Z][A-Z .]*[A-Z]`)
	selfMarker       = regexp.MustCompile(`\bSELF\b|\bOWN A/?C(COUNT)?\b`)
)

// extractMerchantKey applies HDFC narration rules and falls back to the generic extractor.
func extractMerchantKey(narration string) string {
	s := strings.ToUpper(strings.TrimSpace(narration))
	if s == "" {
		return models.MerchantKeyUnknown
	}
	if tok := beneficiaryToken.FindString(s); tok != "" {
		return tok
	}
	if selfMarker.MatchString(s) {
		return models.MerchantKeySelf
	}

	switch {
	case strings.HasPrefix(s, "ATW-"), strings.HasPrefix(s, "NWD-"), strings.HasPrefix(s, "EAW-"):
		return "ATM"
	case strings.HasPrefix(s, "UPI-"):
		// UPI-<payee name>-<vpa>-<ifsc>-<rrn>-<note>
		if key := nameAt(s, "UPI-", 0); key != "" {
			return key
		}
	case strings.HasPrefix(s, "IMPS-"):
		// IMPS-<rrn>-<payee name>-...
		if key := nameAt(s, "IMPS-", 1); key != "" {
			return key
		}
	case strings.HasPrefix(s, "NEFT CR-"), strings.HasPrefix(s, "NEFT DR-"),
		strings.HasPrefix(s, "RTGS CR-"), strings.HasPrefix(s, "RTGS DR-"):
		// NEFT CR-<ifsc>-<remitter>-<remarks>-<utr>
		if key := firstNamedPart(s[8:]); key != "" {
			return key
		}
	case strings.HasPrefix(s, "ACH D-"), strings.HasPrefix(s, "ACH C-"):
		if key := firstNamedPart(s[6:]); key != "" {
			return key
		}
	}
	return merchant.Extract(s)
}

func nameAt(s, prefix string, idx int) string {
	parts := strings.Split(strings.TrimPrefix(s, prefix), "-")
	if idx >= len(parts) {
		return ""
	}
	return merchant.FirstSubstantialToken(parts[idx])
}

func firstNamedPart(s string) string {
	for _, part := range strings.Split(s, "-") {
		if key := merchant.FirstSubstantialToken(part); key != "" {
			return key
		}
	}
	return ""
}
