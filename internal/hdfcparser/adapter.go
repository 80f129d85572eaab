package hdfcparser

import (
	"strings"

	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/parser"
)

// Adapter implements parser.BankAdapter for HDFC Bank.
type Adapter struct {
	parser.BaseParser
}

var (
	_ parser.BankAdapter    = (*Adapter)(nil)
	_ parser.TransferHinter = (*Adapter)(nil)
)

// NewAdapter creates an HDFC adapter.
func NewAdapter(logger logging.Logger) *Adapter {
	return &Adapter{BaseParser: parser.NewBaseParser(logger, Layout)}
}

// CanHandle reports whether narration uses HDFC's hyphenated prefixes.
func (a *Adapter) CanHandle(narration string) bool {
	return narrationPrefix.MatchString(strings.ToUpper(strings.TrimSpace(narration)))
}

func (a *Adapter) ExtractMerchantKey(narration string) string {
	return extractMerchantKey(narration)
}

// IsSelfTransfer reports SELF markers and masked beneficiary account tokens.
func (a *Adapter) IsSelfTransfer(narration string) bool {
	s := strings.ToUpper(narration)
	return selfMarker.MatchString(s) || beneficiaryToken.MatchString(s)
}
