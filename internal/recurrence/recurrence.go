// Package recurrence decides whether one merchant's transactions form a recurring series.
package recurrence

import (
	"sort"
	"time"

	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultThreshold is the minimum confidence for a recurring verdict.
const DefaultThreshold = 0.7

const (
	strictBand            = 0.05
	looseBand             = 0.20
	subscriptionThreshold = 0.8
	dayTolerance          = 3
	minOccurrences        = 2
	minMonthlyOccurrences = 3
)

// window is the accepted gap, in days, between two occurrences of a frequency.
type window struct {
	frequency models.Frequency
	minDays   int
	maxDays   int
}

var windows = []window{
	{models.FrequencyMonthly, 28, 35},
	{models.FrequencyQuarterly, 85, 95},
	{models.FrequencyAnnual, 355, 375},
}

// Detector is stateless apart from its threshold; it is safe for concurrent use.
type Detector struct {
	threshold float64
	logger    logging.Logger
}

// NewDetector creates a detector. A threshold outside (0, 1] falls back to DefaultThreshold.
func NewDetector(threshold float64, logger logging.Logger) *Detector {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Detector{threshold: threshold, logger: logging.OrDefault(logger)}
}

// Threshold returns the confidence a series needs to be called recurring.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Detect scores txns, which must all belong to one merchant.
//
// Subscription-like series (amounts within 5% of the mean for at least 80% of
// occurrences) weight amount consistency heavily. Variable series weight cadence. A
// monthly verdict needs three occurrences and a subscription-like series.
func (d *Detector) Detect(txns []models.UnifiedTransaction) models.RecurrenceResult {
	result := models.RecurrenceResult{Frequency: models.FrequencyNone}
	if len(txns) < minOccurrences {
		return result
	}

	sorted := make([]models.UnifiedTransaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	gaps := make([]int, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, models.DaysBetween(sorted[i].Date, sorted[i-1].Date))
	}

	mean := meanAbs(sorted)
	strict := amountConsistency(sorted, mean, strictBand)
	loose := amountConsistency(sorted, mean, looseBand)
	result.AverageAmount = mean.Round(2)
	result.AmountConsistency = strict
	result.SubscriptionLike = strict >= subscriptionThreshold

	best, ratio := bestWindow(gaps)
	if ratio == 0 {
		return result
	}
	result.Frequency = best.frequency
	result.IntervalRatio = ratio

	days := dayOfMonthConsistency(sorted)
	switch {
	case result.SubscriptionLike && best.frequency == models.FrequencyMonthly:
		result.Confidence = 0.3*ratio + 0.3*days + 0.4*strict
	case result.SubscriptionLike:
		result.Confidence = 0.6*ratio + 0.4*strict
	default:
		result.Confidence = 0.7*ratio + 0.2*days + 0.1*loose
	}

	required := minOccurrences
	if best.frequency == models.FrequencyMonthly {
		required = minMonthlyOccurrences
	}
	result.IsRecurring = len(sorted) >= required && result.Confidence >= d.threshold
	if best.frequency == models.FrequencyMonthly && !result.SubscriptionLike {
		result.IsRecurring = false
	}

	d.logger.Debug("Recurrence scored",
		logging.Field{Key: logging.FieldCount, Value: len(sorted)},
		logging.Field{Key: "frequency", Value: result.Frequency},
		logging.Field{Key: logging.FieldConfidence, Value: result.Confidence},
		logging.Field{Key: "subscription_like", Value: result.SubscriptionLike})
	return result
}

// bestWindow returns the frequency whose window holds the largest share of gaps.
// Ties go to the shorter frequency.
func bestWindow(gaps []int) (window, float64) {
	var best window
	bestRatio := 0.0
	for _, w := range windows {
		in := 0
		for _, g := range gaps {
			if g >= w.minDays && g <= w.maxDays {
				in++
			}
		}
		ratio := float64(in) / float64(len(gaps))
		if ratio > bestRatio {
			best, bestRatio = w, ratio
		}
	}
	return best, bestRatio
}

func meanAbs(txns []models.UnifiedTransaction) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txns {
		sum = sum.Add(tx.Amount.Abs())
	}
	return sum.Div(decimal.NewFromInt(int64(len(txns))))
}

// amountConsistency is the share of txns whose absolute amount lies within band of mean.
func amountConsistency(txns []models.UnifiedTransaction, mean decimal.Decimal, band float64) float64 {
	limit := mean.Mul(decimal.NewFromFloat(band))
	in := 0
	for _, tx := range txns {
		if tx.Amount.Abs().Sub(mean).Abs().LessThanOrEqual(limit) {
			in++
		}
	}
	return float64(in) / float64(len(txns))
}

// dayOfMonthConsistency is the share of txns falling within dayTolerance days of the
// most common day of month. Distances wrap around month ends.
func dayOfMonthConsistency(txns []models.UnifiedTransaction) float64 {
	counts := map[int]int{}
	for _, tx := range txns {
		counts[tx.Date.Day()]++
	}
	mode, modeCount := 0, 0
	for day, n := range counts {
		if n > modeCount || (n == modeCount && day < mode) {
			mode, modeCount = day, n
		}
	}
	in := 0
	for _, tx := range txns {
		if dayDistance(tx.Date, mode) <= dayTolerance {
			in++
		}
	}
	return float64(in) / float64(len(txns))
}

func dayDistance(t time.Time, day int) int {
	d := t.Day() - day
	if d < 0 {
		d = -d
	}
	if wrap := 31 - d; wrap < d {
		return wrap
	}
	return d
}
