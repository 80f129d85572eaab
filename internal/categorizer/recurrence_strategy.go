package categorizer

import (
	"context"
	"fmt"
	"regexp"

	"fjacquet/bankfeed/internal/models"
)

// FuelConfidence is written for fuel purchases, which skip recurrence detection.
const FuelConfidence = 0.85

var fuelPattern = regexp.MustCompile(`\b(PETROL|PETROLEUM|FUELS?|DIESEL|HPCL|BPCL|IOCL|INDIAN ?OIL|INDIANOIL|HP ?PAY|SHELL|NAYARA|FILLING STATION|SERVICE STATION|PETRO)\b`)

// RecurrenceStrategy categorizes subscription-like series as subscriptions. Fuel
// purchases recur without being subscriptions and go to transport instead.
type RecurrenceStrategy struct {
	engine *Engine
}

// Name returns the name of this strategy for logging and debugging.
func (s *RecurrenceStrategy) Name() string {
	return "Recurrence"
}

func (s *RecurrenceStrategy) Categorize(ctx context.Context, tx Transaction) (StrategyResult, error) {
	res := StrategyResult{Strategy: s.Name()}
	if fuelPattern.MatchString(tx.Narration) || fuelPattern.MatchString(tx.MerchantKey) {
		res.Category, res.Confidence, res.Learn, res.Found = models.CategoryTransport, FuelConfidence, true, true
		return res, nil
	}
	if s.engine.detector == nil || !usableKey(tx.MerchantKey) || tx.AccountID == "" {
		return res, nil
	}

	history, err := s.engine.store.ListTransactionsByMerchantKey(ctx, tx.AccountID, tx.MerchantKey)
	if err != nil {
		return res, fmt.Errorf("error loading history for %s: %w", tx.MerchantKey, err)
	}
	series := make([]models.UnifiedTransaction, 0, len(history)+1)
	included := false
	for _, h := range history {
		if h.Amount.Sign() != tx.Amount.Sign() {
			continue
		}
		included = included || h.ID == tx.ID
		series = append(series, h.UnifiedTransaction)
	}
	if !included {
		series = append(series, tx.UnifiedTransaction)
	}

	verdict := s.engine.detector.Detect(series)
	if !verdict.IsRecurring || !verdict.SubscriptionLike || verdict.Confidence < s.engine.detector.Threshold() {
		return res, nil
	}
	s.engine.logger.Debug("Subscription-like recurrence",
		fieldTx(tx), fieldMerchantKey(tx.MerchantKey), fieldReason(string(verdict.Frequency)))
	res.Category, res.Confidence, res.Learn, res.Found = models.CategorySubscriptions, verdict.Confidence, true, true
	return res, nil
}
