package merchant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		narration string
		want      string
	}{
		{name: "upi handle", narration: "UPI-SWIGGY-swiggy@icici-ICIC0DC0099-412345678901-PAYMENT", want: "SWIGGY"},
		{name: "upi gateway suffix", narration: "UPI-AMAZONPAY-amazonpay@apl-UTIB0000553-412345678902-UPI", want: "AMAZON"},
		{name: "upi wallet skipped", narration: "UPI-PHONEPE-ravi@ybl-412345678903", want: "RAVI"},
		{name: "neft corporate suffix", narration: "NEFT-ACME PAYROLL SERVICES PVT LTD", want: "ACME"},
		{name: "pos masked card", narration: "POS 416021XXXXXX1234 BIG BAZAAR", want: "BIG"},
		{name: "ach debit", narration: "ACH D- TP ACH HDFCMF-123456", want: "HDFCMF"},
		{name: "leading numeric code", narration: "123456 NETFLIX.COM", want: "NETFLIX"},
		{name: "processor noise", narration: "RAZORPAY ZOMATO LTD", want: "ZOMATO"},
		{name: "truncated", narration: "SUPERCALIFRAGILISTICEXPIALIDOCIOUS STORE", want: "SUPERCALIFRAGILISTIC"},
		{name: "self transfer", narration: "TO SELF", want: "SELF"},
		{name: "empty", narration: "   ", want: "UNKNOWN"},
		{name: "punctuation only", narration: "----", want: "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.narration))
		})
	}
}

func TestExtract_IsPure(t *testing.T) {
	narrations := []string{
		"UPI-SWIGGY-swiggy@icici-ICIC0DC0099-412345678901-PAYMENT",
		"NEFT-ACME PAYROLL SERVICES PVT LTD",
		"POS 416021XXXXXX1234 BIG BAZAAR",
	}
	first := make([]string, len(narrations))
	for i, n := range narrations {
		first[i] = Extract(n)
	}
	for i := len(narrations) - 1; i >= 0; i-- {
		assert.Equal(t, first[i], Extract(narrations[i]))
	}
}

func TestStripPrefixes(t *testing.T) {
	rest, p2p := StripPrefixes("upi-9876543210-merchant@okaxis")
	assert.True(t, p2p)
	assert.Equal(t, "MERCHANT@OKAXIS", rest)

	rest, p2p = StripPrefixes("NEFT CR-SBIN0000123-ACME")
	assert.False(t, p2p)
	assert.Equal(t, "SBIN0000123-ACME", rest)
}

func TestIsNoise(t *testing.T) {
	for _, tok := range []string{"REF", "12345", "SBIN0000123", "XXXX1234", "S1CN1234", "PVT", "YBL", "AB"} {
		assert.True(t, IsNoise(tok), tok)
	}
	for _, tok := range []string{"SWIGGY", "BESCOM", "IRCTC"} {
		assert.False(t, IsNoise(tok), tok)
	}
}
