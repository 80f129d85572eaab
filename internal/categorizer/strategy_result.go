package categorizer

import (
	"fmt"
	"strings"

	"fjacquet/bankfeed/internal/models"
)

// StrategyResult is the outcome of one strategy attempt.
type StrategyResult struct {
	Strategy   string
	Category   models.CategoryID
	Confidence float64
	// Learn asks the engine to record a system rule for the merchant key.
	Learn bool
	// Stop ends the run without a category.
	Stop  bool
	Found bool
	Error error
}

// StrategyResults is the trace of one categorization run.
type StrategyResults struct {
	Results []StrategyResult
}

// Add appends a result.
func (sr *StrategyResults) Add(r StrategyResult) {
	sr.Results = append(sr.Results, r)
}

// Final returns the result that ended the run, if any.
func (sr StrategyResults) Final() (StrategyResult, bool) {
	if n := len(sr.Results); n > 0 {
		last := sr.Results[n-1]
		if last.Found || last.Stop || last.Error != nil {
			return last, true
		}
	}
	return StrategyResult{}, false
}

// GetErrors returns all errors encountered during strategy execution
func (sr StrategyResults) GetErrors() []error {
	var errs []error
	for _, result := range sr.Results {
		if result.Error != nil {
			errs = append(errs, fmt.Errorf("%s strategy: %w", result.Strategy, result.Error))
		}
	}
	return errs
}

// Summary returns a human-readable summary of all strategy attempts
func (sr StrategyResults) Summary() string {
	var parts []string
	for _, result := range sr.Results {
		status := "no_match"
		switch {
		case result.Error != nil:
			status = "failed"
		case result.Found:
			status = "success:" + string(result.Category)
		case result.Stop:
			status = "stop"
		}
		parts = append(parts, fmt.Sprintf("%s:%s", result.Strategy, status))
	}
	return strings.Join(parts, ", ")
}
