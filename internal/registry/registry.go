// Package registry holds the bank adapters known to a running pipeline and routes
// files, narrations and transactions to the adapter that owns them.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/merchant"
	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/parser"
)

var (
	// ErrUnknownBank is returned when no adapter is registered under a bank id.
	ErrUnknownBank = errors.New("unknown bank")
	// ErrNoAdapter is returned when no registered adapter recognises a file.
	ErrNoAdapter = errors.New("no adapter recognises this file")
)

// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]parser.BankAdapter
	logger   logging.Logger
}

// New creates a registry holding adapters. Duplicate ids keep the last adapter.
func New(logger logging.Logger, adapters ...parser.BankAdapter) *Registry {
	r := &Registry{
		adapters: make(map[string]parser.BankAdapter, len(adapters)),
		logger:   logging.OrDefault(logger),
	}
	for _, a := range adapters {
		r.adapters[a.ID()] = a
	}
	return r
}

// Register adds an adapter. An id may only be registered once.
func (r *Registry) Register(a parser.BankAdapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[a.ID()]; exists {
		return fmt.Errorf("adapter %q already registered", a.ID())
	}
	r.adapters[a.ID()] = a
	return nil
}

// Get returns the adapter registered under bankID.
func (r *Registry) Get(bankID string) (parser.BankAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[bankID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBank, bankID)
	}
	return a, nil
}

// Adapters returns the registered adapters sorted by id.
func (r *Registry) Adapters() []parser.BankAdapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]parser.BankAdapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// SupportedFormats lists format metadata for every adapter.
func (r *Registry) SupportedFormats() []parser.FormatInfo {
	adapters := r.Adapters()
	formats := make([]parser.FormatInfo, 0, len(adapters))
	for _, a := range adapters {
		formats = append(formats, a.Format())
	}
	return formats
}

// Configure passes header-detection options to every adapter that accepts them.
func (r *Registry) Configure(opts parser.Options) {
	for _, a := range r.Adapters() {
		if c, ok := a.(parser.Configurable); ok {
			c.Configure(opts)
		}
	}
}

// SetLogger swaps the logger of the registry and of every adapter that allows it.
func (r *Registry) SetLogger(logger logging.Logger) {
	if logger == nil {
		return
	}
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
	for _, a := range r.Adapters() {
		if lc, ok := a.(parser.LoggerConfigurable); ok {
			lc.SetLogger(logger)
		}
	}
}

// DetectForFile returns the first adapter, in id order, whose header row is found in path.
func (r *Registry) DetectForFile(path string) (parser.BankAdapter, error) {
	var matches []parser.BankAdapter
	for _, a := range r.Adapters() {
		ok, err := a.CanParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("error inspecting %s with %s adapter: %w", path, a.ID(), err)
		}
		if ok {
			matches = append(matches, a)
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAdapter, path)
	}
	if len(matches) > 1 {
		r.logger.Warn("Several adapters recognise the file, using the first",
			logging.Field{Key: logging.FieldFile, Value: path},
			logging.Field{Key: logging.FieldBank, Value: matches[0].ID()},
			logging.Field{Key: logging.FieldCount, Value: len(matches)})
	}
	return matches[0], nil
}

// DetectForNarration returns the adapter that claims narration, if any.
func (r *Registry) DetectForNarration(narration string) (parser.BankAdapter, bool) {
	for _, a := range r.Adapters() {
		if a.CanHandle(narration) {
			return a, true
		}
	}
	return nil, false
}

// MerchantKey extracts a key with the bank's own rules. Unknown banks fall back to a
// narration-based adapter guess, then to the generic extractor.
func (r *Registry) MerchantKey(bankID, narration string) string {
	if a, err := r.Get(bankID); err == nil {
		return a.ExtractMerchantKey(narration)
	}
	if a, ok := r.DetectForNarration(narration); ok {
		return a.ExtractMerchantKey(narration)
	}
	return merchant.Extract(narration)
}

// Fingerprint delegates to the adapter that produced tx.
func (r *Registry) Fingerprint(tx models.UnifiedTransaction, accountID string) (string, error) {
	a, err := r.Get(tx.Source)
	if err != nil {
		return "", err
	}
	return a.GenerateFingerprint(tx, accountID), nil
}

// IsSelfTransfer asks the owning adapter whether narration is a self-transfer.
func (r *Registry) IsSelfTransfer(bankID, narration string) bool {
	a, err := r.Get(bankID)
	if err != nil {
		return false
	}
	if h, ok := a.(parser.TransferHinter); ok {
		return h.IsSelfTransfer(narration)
	}
	return false
}
