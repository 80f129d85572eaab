// Package sbiparser reads State Bank of India account statements.
//
// The "Excel" download from SBI online banking is tab-delimited text under an .xls
// name. Account details fill the first rows and dates are written "15 Mar 2024".
package sbiparser

import (
	"regexp"
	"strings"

	"fjacquet/bankfeed/internal/merchant"
	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/parser"
)

// BankID is the registry key of this adapter.
const BankID = "sbi"

// Layout describes the SBI statement download.
var Layout = parser.Layout{
	BankID:         BankID,
	BankName:       "State Bank of India",
	HeaderKeywords: []string{"txn date", "value date", "description", "ref no", "debit", "credit", "balance"},
	Columns: map[parser.Field][]string{
		parser.FieldDate:      {"txn date", "transaction date", "date"},
		parser.FieldValueDate: {"value date"},
		parser.FieldNarration: {"description", "narration", "particulars"},
		parser.FieldReference: {"ref no cheque no", "ref no", "cheque no"},
		parser.FieldDebit:     {"debit", "withdrawal"},
		parser.FieldCredit:    {"credit", "deposit"},
		parser.FieldBalance:   {"balance"},
	},
	Required:          []parser.Field{parser.FieldDate, parser.FieldNarration, parser.FieldDebit, parser.FieldCredit},
	FingerprintFields: []parser.Field{parser.FieldReference, parser.FieldDebit, parser.FieldCredit, parser.FieldBalance},
	FileTypes:         []string{".xls", ".txt", ".csv"},
	DateFormats:       []string{"DD MMM YYYY", "DD-MMM-YY"},
	Description:       "SBI online banking statement (tab-delimited text)",
}

// directionPrefixes lead almost every SBI narration.
var directionPrefixes = []string{
	"BY TRANSFER-", "TO TRANSFER-", "BY CLEARING-", "TO CLEARING-", "BY CASH-",
	"DEP TFR ", "WDL TFR ", "DEBIT-", "CREDIT-",
}

var (
	narrationPrefix = regexp.MustCompile(`^(BY TRANSFER|TO TRANSFER|BY CLEARING|TO CLEARING|BY CASH|DEP TFR|WDL TFR|ATM WDL|CSH DEP|DEBIT-|CREDIT-)`)
	selfMarker      = regexp.MustCompile(`\bSELF\b|\bOWN A/?C(COUNT)?\b`)
)

func extractMerchantKey(narration string) string {
	s := strings.Join(strings.Fields(strings.ToUpper(narration)), " ")
	if s == "" {
		return models.MerchantKeyUnknown
	}
	if strings.HasPrefix(s, "ATM WDL") {
		return "ATM"
	}

	rest := s
	for _, prefix := range directionPrefixes {
		if strings.HasPrefix(rest, prefix) {
			rest = strings.TrimSpace(strings.TrimPrefix(rest, prefix))
			break
		}
	}

	switch {
	case strings.HasPrefix(rest, "UPI/"):
		// UPI/<CR|DR>/<rrn>/<name>/<bank>/<vpa>/<note>
		if key := field(strings.Split(rest, "/"), 3); key != "" {
			return key
		}
	case strings.HasPrefix(rest, "INB IMPS/"), strings.HasPrefix(rest, "IMPS/"):
		// INB IMPS/P2A/<rrn>/<name>/<bank>
		if key := field(strings.Split(rest, "/"), 3); key != "" {
			return key
		}
	case strings.HasPrefix(rest, "NEFT*"), strings.HasPrefix(rest, "RTGS*"):
		// NEFT*<ifsc>*<utr>*<name>*
		if key := field(strings.Split(rest, "*"), 3); key != "" {
			return key
		}
	}

	if selfMarker.MatchString(s) {
		return models.MerchantKeySelf
	}
	return merchant.Extract(rest)
}

func field(parts []string, idx int) string {
	if idx >= len(parts) || strings.Contains(parts[idx], "@") {
		return ""
	}
	return merchant.FirstSubstantialToken(parts[idx])
}
