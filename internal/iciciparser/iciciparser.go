// Package iciciparser reads ICICI Bank detailed statements.
//
// ICICI ships the same table as an .xlsx workbook or as delimited text. In both the
// header sits below a block of account details and the first column is often empty.
// Workbook date cells arrive as spreadsheet serial numbers.
package iciciparser

import (
	"regexp"
	"strings"

	"fjacquet/bankfeed/internal/merchant"
	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/parser"
)

// BankID is the registry key of this adapter.
const BankID = "icici"

// Layout describes the ICICI detailed statement. The "S No." column is a row counter
// and stays out of the fingerprint.
var Layout = parser.Layout{
	BankID:   BankID,
	BankName: "ICICI Bank",
	HeaderKeywords: []string{
		"value date", "transaction date", "transaction remarks",
		"withdrawal amount", "deposit amount", "balance",
	},
	Columns: map[parser.Field][]string{
		parser.FieldDate:      {"transaction date", "txn date"},
		parser.FieldValueDate: {"value date"},
		parser.FieldNarration: {"transaction remarks", "remarks", "particulars"},
		parser.FieldReference: {"cheque number", "cheque no", "chq no"},
		parser.FieldDebit:     {"withdrawal amount inr", "withdrawal amount", "withdrawal"},
		parser.FieldCredit:    {"deposit amount inr", "deposit amount", "deposit"},
		parser.FieldBalance:   {"balance inr", "balance"},
	},
	Required:          []parser.Field{parser.FieldDate, parser.FieldNarration, parser.FieldDebit, parser.FieldCredit},
	FingerprintFields: []parser.Field{parser.FieldReference, parser.FieldDebit, parser.FieldCredit, parser.FieldBalance},
	FileTypes:         []string{".xlsx", ".csv"},
	DateFormats:       []string{"DD/MM/YYYY", "DD-MM-YYYY", "serial"},
	Description:       "ICICI detailed statement (workbook or delimited) with buried header row",
}

var (
	narrationPrefix = regexp.MustCompile(`^(UPI/\d|MMT/IMPS/|NEFT-[A-Z0-9]+-|RTGS-[A-Z0-9]+-|BIL/|INF/|ATM/|CMS/|CLG/)`)
	selfMarker      = regexp.MustCompile(`\bSELF\b|\bOWN A/?C(COUNT)?\b`)
)

func extractMerchantKey(narration string) string {
	s := strings.ToUpper(strings.TrimSpace(narration))
	if s == "" {
		return models.MerchantKeyUnknown
	}

	switch {
	case strings.HasPrefix(s, "NEFT-"), strings.HasPrefix(s, "RTGS-"):
		// NEFT-<utr>--<beneficiary>-<remarks>
		if _, after, ok := strings.Cut(s, "--"); ok {
			for _, part := range strings.Split(after, "-") {
				if key := merchant.FirstSubstantialToken(part); key != "" {
					return key
				}
			}
		}
	case strings.HasPrefix(s, "MMT/IMPS/"):
		// MMT/IMPS/<rrn>/<P2A|remarks>/<name>/<bank>
		parts := strings.Split(s, "/")
		if key := slashField(parts, 4); key != "" {
			return key
		}
	case strings.HasPrefix(s, "UPI/"):
		// UPI/<rrn>/<name>/<vpa>/<note>/<bank>
		if key := slashField(strings.Split(s, "/"), 2); key != "" {
			return key
		}
	case strings.HasPrefix(s, "BIL/"), strings.HasPrefix(s, "INF/"):
		// BIL/ONL/<ref>/<biller>/...
		if key := slashField(strings.Split(s, "/"), 3); key != "" {
			return key
		}
	case strings.HasPrefix(s, "ATM/"):
		return "ATM"
	}

	if selfMarker.MatchString(s) {
		return models.MerchantKeySelf
	}
	return merchant.Extract(s)
}

// slashField returns the merchant key at parts[idx], or the first usable part after it.
func slashField(parts []string, idx int) string {
	for i := idx; i < len(parts); i++ {
		if strings.Contains(parts[i], "@") {
			continue
		}
		if key := merchant.FirstSubstantialToken(parts[i]); key != "" {
			return key
		}
	}
	return ""
}
