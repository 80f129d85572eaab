package parser

import (
	"context"

	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/models"
)

// ProgressFunc receives parse progress. Adapters accept a nil ProgressFunc.
type ProgressFunc func(models.ParseProgress)

// BankAdapter turns one bank's statement export into unified transactions.
type BankAdapter interface {
	// ID is the stable registry key, e.g. "hdfc".
	ID() string
	BankName() string
	Format() FormatInfo

	// CanHandle is a cheap check on a single narration, used when the bank is unknown.
	CanHandle(narration string) bool
	// CanParseFile looks for the bank's header row near the top of the file.
	CanParseFile(path string) (bool, error)
	// Parse streams the file. Bad rows are counted, never returned as errors.
	Parse(ctx context.Context, path string, onProgress ProgressFunc) (*models.ParseResult, error)

	ExtractMerchantKey(narration string) string
	GenerateFingerprint(tx models.UnifiedTransaction, accountID string) string
}

// LoggerConfigurable is implemented by adapters whose logger can be swapped after construction.
type LoggerConfigurable interface {
	SetLogger(logger logging.Logger)
}

// Configurable is implemented by adapters that accept header-detection tuning.
type Configurable interface {
	Configure(opts Options)
}

// TransferHinter is implemented by adapters that recognise their own self-transfer narrations.
type TransferHinter interface {
	IsSelfTransfer(narration string) bool
}

// FormatInfo is the supported-format metadata shown to users.
type FormatInfo struct {
	BankID      string   `json:"bankId"`
	BankName    string   `json:"bankName"`
	FileTypes   []string `json:"fileTypes"`
	DateFormats []string `json:"dateFormats"`
	Description string   `json:"description"`
}

// Options tunes header detection.
type Options struct {
	// HeaderScanRows bounds how far down the file the header row may sit.
	HeaderScanRows int
	// HeaderMatchThreshold is the fraction of header keywords that must be present.
	HeaderMatchThreshold float64
}

// DefaultOptions returns the detection settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{HeaderScanRows: 60, HeaderMatchThreshold: 0.8}
}
