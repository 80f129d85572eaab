package categorizer

import (
	"context"

	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/transfer"
)

// TransferConfidence is the rule confidence written for detected transfers.
const TransferConfidence = 0.9

// TransferStrategy recognises internal transfers from adapter hints and narration
// phrasing. Persisted transactions are handed to the linker for auto-linking.
type TransferStrategy struct {
	keyer  MerchantKeyer
	linker TransferLinker
	logger logging.Logger
}

// Name returns the name of this strategy for logging and debugging.
func (s *TransferStrategy) Name() string {
	return "Transfer"
}

func (s *TransferStrategy) Categorize(ctx context.Context, tx Transaction) (StrategyResult, error) {
	res := StrategyResult{Strategy: s.Name()}
	if !s.keyer.IsSelfTransfer(tx.Source, tx.Description) && !transfer.IsLikelyTransfer(tx.Narration) {
		return res, nil
	}

	if s.linker != nil && tx.ID != "" && !tx.ReadOnly {
		match, err := s.linker.AutoLink(ctx, tx.StoredTransaction)
		if err != nil {
			return res, err
		}
		if match != nil {
			s.logger.Debug("Transfer auto-linked",
				logging.Field{Key: logging.FieldTransactionID, Value: tx.ID},
				logging.Field{Key: "linked_transaction_id", Value: match.Transaction.ID},
				logging.Field{Key: logging.FieldConfidence, Value: match.Confidence})
		}
	}

	res.Category, res.Confidence, res.Learn, res.Found = models.CategoryTransfers, TransferConfidence, true, true
	return res, nil
}
