package axisparser

import (
	"strings"

	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/parser"
)

// Adapter implements parser.BankAdapter for Axis Bank.
type Adapter struct {
	parser.BaseParser
}

var (
	_ parser.BankAdapter    = (*Adapter)(nil)
	_ parser.TransferHinter = (*Adapter)(nil)
)

// NewAdapter creates an Axis adapter.
func NewAdapter(logger logging.Logger) *Adapter {
	return &Adapter{BaseParser: parser.NewBaseParser(logger, Layout)}
}

func (a *Adapter) CanHandle(narration string) bool {
	return narrationPrefix.MatchString(strings.ToUpper(strings.TrimSpace(narration)))
}

func (a *Adapter) ExtractMerchantKey(narration string) string {
	return extractMerchantKey(narration)
}

func (a *Adapter) IsSelfTransfer(narration string) bool {
	return selfMarker.MatchString(strings.ToUpper(narration))
}
