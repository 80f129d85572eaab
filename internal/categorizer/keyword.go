package categorizer

import (
	"context"
	"sort"
	"strings"

	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/store"
)

// ExactKeywordConfidence is written for merchant keys found in the keyword map.
const ExactKeywordConfidence = 0.85

// DefaultKeywordConfidence is written for keywords found inside a narration.
const DefaultKeywordConfidence = 0.5

// ExactKeywordStrategy looks the merchant key up in the keyword map.
type ExactKeywordStrategy struct {
	keywords store.KeywordMap
}

// Name returns the name of this strategy for logging and debugging.
func (s *ExactKeywordStrategy) Name() string {
	return "ExactKeyword"
}

func (s *ExactKeywordStrategy) Categorize(ctx context.Context, tx Transaction) (StrategyResult, error) {
	res := StrategyResult{Strategy: s.Name()}
	if cat, ok := s.keywords[strings.ToUpper(tx.MerchantKey)]; ok {
		res.Category, res.Confidence, res.Learn, res.Found = cat, ExactKeywordConfidence, true, true
	}
	return res, nil
}

// SubstringKeywordStrategy scans the whole narration for keyword-map entries that
// stand as whole words.
type SubstringKeywordStrategy struct {
	engine     *Engine
	confidence float64
}

// Name returns the name of this strategy for logging and debugging.
func (s *SubstringKeywordStrategy) Name() string {
	return "SubstringKeyword"
}

func (s *SubstringKeywordStrategy) Categorize(ctx context.Context, tx Transaction) (StrategyResult, error) {
	res := StrategyResult{Strategy: s.Name()}
	cat, kw := s.engine.scanKeywords(tx.Narration)
	if cat == models.CategoryNone {
		return res, nil
	}
	s.engine.logger.Debug("Keyword found in narration", fieldTx(tx), fieldCategory(cat), fieldReason(kw))
	res.Category, res.Confidence, res.Learn, res.Found = cat, s.confidence, true, true
	return res, nil
}

// sortedKeywords orders keywords longest first, so "INDIAN OIL" wins over "OIL".
func sortedKeywords(km store.KeywordMap) []string {
	out := make([]string, 0, len(km))
	for kw := range km {
		out = append(out, kw)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// scanKeywords returns the category of the first keyword found in narration as a
// whole word, and the keyword.
func (e *Engine) scanKeywords(narration string) (models.CategoryID, string) {
	upper := strings.ToUpper(narration)
	for _, kw := range e.keywordOrder {
		if containsWord(upper, kw) {
			return e.keywords[kw], kw
		}
	}
	return models.CategoryNone, ""
}

// containsWord reports whether word occurs in s with no letter or digit directly
// before or after it.
func containsWord(s, word string) bool {
	if word == "" {
		return false
	}
	for from := 0; ; {
		idx := strings.Index(s[from:], word)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(word)
		if (start == 0 || !isAlnum(s[start-1])) && (end == len(s) || !isAlnum(s[end])) {
			return true
		}
		from = start + 1
	}
}

func isAlnum(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
