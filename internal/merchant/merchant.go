// Package merchant collapses noisy bank narrations into short, stable merchant keys.
//
// Keys join categorization rules and group transactions for recurrence detection, so
// every function here is pure: the same narration always yields the same key.
package merchant

import (
	"regexp"
	"strings"
	"unicode"

	"fjacquet/bankfeed/internal/models"
)

// Transaction-type prefixes stripped before tokenizing. Longer prefixes come first.
var typePrefixes = []string{
	"NEFT CR-", "NEFT DR-", "ACH D-", "ACH C-", "NACH-", "ACH-",
	"UPI-", "UPI/", "IMPS-", "IMPS/", "NEFT-", "NEFT/", "RTGS-", "RTGS/",
	"POS ", "POS/", "ECOM ", "ATW-", "NWD-", "MMT/",
}

var (
	leadingCode  = regexp.MustCompile(`^[0-9]+[\s\-/:*]*`)
	separators   = regexp.MustCompile(`[\s\-/*,:;._()#@|\\+]+`)
	p2pSplit     = regexp.MustCompile(`[\-@.]+`)
	ifscCode     = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	selfWord     = regexp.MustCompile(`(^|[^A-Z0-9])SELF([^A-Z0-9]|$)`)
	maskedDigits = regexp.MustCompile(`X{2,}\d|\dX{2,}`)
)

var stopWords = toSet(
	"TO", "BY", "FROM", "FOR", "THE", "AND", "OF", "AT", "IN", "ON", "VIA", "WITH",
	"REF", "REFNO", "TXN", "TRANSFER", "TRF", "PAYMENT", "PAYMENTS", "PAY", "PAID",
	"UPI", "IMPS", "NEFT", "RTGS", "NACH", "ACH", "POS", "ECOM", "INB", "MMT", "BIL", "ONL",
	"P2A", "P2M", "DEBIT", "CREDIT", "CARD", "INR", "PURCHASE", "SENT", "RECEIVED",
	"SELF", "NULL", "NA", "OTHERS", "COLLECT", "REQUEST",
	"REFUND", "RFND", "REVERSAL", "CHARGEBACK",
)

var corporateNoise = toSet(
	"LIMITED", "LTD", "PRIVATE", "PVT", "SERVICES", "SERVICE", "INDIA", "TECHNOLOGIES",
	"SOLUTIONS", "ENTERPRISES", "COMPANY", "CORPORATION", "INTERNET",
	"RAZORPAY", "PAYU", "BILLDESK", "CCAVENUE", "CASHFREE", "JUSPAY", "PAYGLOCAL",
)

// walletHandles are UPI handles and wallet providers that name the rail, not the payee.
var walletHandles = toSet(
	"PAYTM", "PHONEPE", "GPAY", "GOOGLEPAY", "BHIM", "YBL", "IBL", "AXL", "APL", "YAPL",
	"OKAXIS", "OKICICI", "OKHDFCBANK", "OKSBI", "AXISBANK", "HDFCBANK", "ICICIBANK",
	"ICICI", "HDFC", "AXIS", "SBI", "KOTAK", "YESBANK", "PAYTMQR", "COM",
)

// Extract runs the generic extraction used when no bank adapter claims the narration.
func Extract(narration string) string {
	s := normalize(narration)
	if s == "" {
		return models.MerchantKeyUnknown
	}
	self := selfWord.MatchString(s)

	rest, p2p := StripPrefixes(s)

	if p2p || strings.Contains(rest, "@") {
		if key := firstP2PToken(rest); key != "" {
			return key
		}
	}
	if key := FirstSubstantialToken(rest); key != "" {
		return key
	}
	if self {
		return models.MerchantKeySelf
	}
	if key := Clean(rest); key != "" {
		return key
	}
	return models.MerchantKeyUnknown
}

// StripPrefixes removes transaction-type prefixes and leading numeric codes.
// The bool reports a UPI-style peer-to-peer prefix.
func StripPrefixes(s string) (string, bool) {
	s = normalize(s)
	p2p := false
	for changed := true; changed; {
		changed = false
		for _, prefix := range typePrefixes {
			if strings.HasPrefix(s, prefix) {
				if strings.HasPrefix(prefix, "UPI") {
					p2p = true
				}
				s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
				changed = true
			}
		}
		if loc := leadingCode.FindStringIndex(s); loc != nil && loc[1] > 0 {
			s = strings.TrimSpace(s[loc[1]:])
			changed = true
		}
	}
	return s, p2p
}

// FirstSubstantialToken returns the first token that is not noise, cleaned and
// truncated, or "" when every token is noise.
func FirstSubstantialToken(s string) string {
	for _, tok := range separators.Split(normalize(s), -1) {
		if IsNoise(tok) {
			continue
		}
		tok = stripGatewaySuffix(tok)
		if key := Clean(tok); len(key) >= 3 {
			return key
		}
	}
	return ""
}

// IsNoise reports whether a token carries no merchant identity.
func IsNoise(tok string) bool {
	tok = strings.ToUpper(strings.TrimSpace(tok))
	if len(tok) < 3 || isNumeric(tok) || mostlyDigits(tok) {
		return true
	}
	if stopWords[tok] || corporateNoise[tok] || walletHandles[tok] {
		return true
	}
	return ifscCode.MatchString(tok) || maskedDigits.MatchString(tok)
}

// Clean keeps uppercase letters and digits only and truncates to the key length limit.
func Clean(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			if b.Len() == models.MerchantKeyMaxLen {
				break
			}
		}
	}
	return b.String()
}

func firstP2PToken(s string) string {
	for _, tok := range p2pSplit.Split(s, -1) {
		tok = strings.TrimSpace(tok)
		if len(tok) < 3 || isNumeric(tok) || walletHandles[tok] || stopWords[tok] || ifscCode.MatchString(tok) {
			continue
		}
		tok = stripGatewaySuffix(tok)
		if key := Clean(FirstSubstantialToken(tok)); len(key) >= 3 {
			return key
		}
	}
	return ""
}

// stripGatewaySuffix turns AMAZONPAY into AMAZON but leaves short names alone.
func stripGatewaySuffix(tok string) string {
	for _, suffix := range []string{"PAYTM", "PAY"} {
		if strings.HasSuffix(tok, suffix) && len(tok)-len(suffix) >= 3 {
			return strings.TrimSuffix(tok, suffix)
		}
	}
	return tok
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// mostlyDigits catches reference numbers, masked cards and terminal ids.
func mostlyDigits(s string) bool {
	digits := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits > 0 && digits*2 >= len(s)
}

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
