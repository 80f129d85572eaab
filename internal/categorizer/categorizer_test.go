package categorizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"fjacquet/bankfeed/internal/factory"
	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/parsererror"
	"fjacquet/bankfeed/internal/recurrence"
	"fjacquet/bankfeed/internal/registry"
	"fjacquet/bankfeed/internal/store"
	"fjacquet/bankfeed/internal/transfer"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	engine *Engine
	mem    *store.MemoryStore
	logger *logging.MockLogger
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	logger := logging.NewMockLogger()
	reg := registry.New(logger, factory.AllAdapters(logger)...)
	mem := store.NewMemoryStore()
	keywords, err := store.DefaultKeywords()
	require.NoError(t, err)

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	engine := NewEngine(mem, reg, transfer.NewEngine(mem, 3, logger), recurrence.NewDetector(recurrence.DefaultThreshold, logger), keywords, logger, opts...)
	return &fixture{engine: engine, mem: mem, logger: logger}
}

func (f *fixture) insert(t *testing.T, txns ...models.StoredTransaction) {
	t.Helper()
	_, err := f.mem.InsertTransactions(context.Background(), txns)
	require.NoError(t, err)
}

func (f *fixture) rules(t *testing.T, key string) []models.CategoryRule {
	t.Helper()
	rules, err := f.mem.GetRules(context.Background(), key)
	require.NoError(t, err)
	return rules
}

func txn(id, source, desc, amount string, date time.Time) models.StoredTransaction {
	return models.StoredTransaction{
		UnifiedTransaction: models.UnifiedTransaction{
			Date:        date,
			Description: desc,
			Amount:      decimal.RequireFromString(amount),
			Source:      source,
		},
		ID:          id,
		Fingerprint: "fp-" + id,
	}
}

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDetectCategory_UserRuleBeatsKeywordMap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := txn("t1", "hdfc", "UPI-SWIGGY-SWIGGY@ICICI-412345678901", "-450", day(3, 1))

	cat, err := f.engine.DetectCategory(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryFood, cat, "keyword map without a user rule")

	_, err = f.engine.CreateRule(ctx, "SWIGGY", models.CategoryHousing, "", models.RuleSourceUser, 0)
	require.NoError(t, err)

	cat, err = f.engine.DetectCategory(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryHousing, cat)

	rule, ok := store.PreferredRule(f.rules(t, "SWIGGY"))
	require.True(t, ok)
	assert.True(t, rule.IsUser())
	assert.Equal(t, 1.0, rule.Confidence)
	assert.Equal(t, 3, rule.UsageCount, "system write, user takeover, user lookup")
	assert.Equal(t, fixedNow, rule.LastUsed)
}

func TestDetectCategory_LearnsSystemRule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cat, err := f.engine.DetectCategory(ctx, txn("t1", "hdfc", "UPI-ZOMATO-ZOMATO@HDFC-412345678902", "-320", day(3, 2)))
	require.NoError(t, err)
	assert.Equal(t, models.CategoryFood, cat)

	rules := f.rules(t, "ZOMATO")
	require.Len(t, rules, 1)
	assert.Equal(t, models.RuleSourceSystem, rules[0].CreatedBy)
	assert.Equal(t, ExactKeywordConfidence, rules[0].Confidence)
}

func TestDetectCategory_SystemRule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mem.SaveRule(ctx, models.CategoryRule{
		MerchantKey: "CUSTOMKEY", RootCategory: models.CategoryBusiness, Confidence: 0.6, CreatedBy: models.RuleSourceSystem, UsageCount: 4,
	}))

	tx := txn("t1", "", "CUSTOMKEY PAYMENT", "-100", day(3, 2))
	trace, err := f.engine.Explain(ctx, tx)
	require.NoError(t, err)
	final, ok := trace.Final()
	require.True(t, ok)
	assert.Equal(t, "SystemRule", final.Strategy)
	assert.Equal(t, models.CategoryBusiness, final.Category)
	assert.Equal(t, 4, f.rules(t, "CUSTOMKEY")[0].UsageCount, "explaining does not count as use")

	cat, err := f.engine.DetectCategory(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryBusiness, cat)
	assert.Equal(t, 5, f.rules(t, "CUSTOMKEY")[0].UsageCount)
}

func TestDetectCategory_SubstringKeyword(t *testing.T) {
	f := newFixture(t, WithKeywordConfidence(0.4))
	ctx := context.Background()

	tx := txn("t1", "", "ORDERX ZOMATO ONLINE", "-250", day(3, 2))
	tx.MerchantKey = "ORDERX"
	cat, err := f.engine.DetectCategory(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryFood, cat)
	assert.Equal(t, 0.4, f.rules(t, "ORDERX")[0].Confidence)

	embedded := txn("t2", "", "NOTZOMATOX 7781", "-250", day(3, 2))
	embedded.MerchantKey = "NOTZOMATOX"
	cat, err = f.engine.DetectCategory(ctx, embedded)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryNone, cat, "keyword inside a longer token")
	assert.Empty(t, f.rules(t, "NOTZOMATOX"))
}

func TestDetectCategory_Recurrence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	series := func(key, desc string, amounts ...string) []models.StoredTransaction {
		out := make([]models.StoredTransaction, 0, len(amounts))
		for i, a := range amounts {
			tx := txn(key+string(rune('1'+i)), "", desc, a, day(time.Month(i+1), 15))
			tx.AccountID = "acc-1"
			tx.MerchantKey = key
			out = append(out, tx)
		}
		return out
	}

	t.Run("fixed monthly amount becomes a subscription", func(t *testing.T) {
		txns := series("CULTFIT", "CULTFIT BANGALORE", "-999", "-999", "-999")
		f.insert(t, txns...)
		cat, err := f.engine.DetectCategory(ctx, txns[2])
		require.NoError(t, err)
		assert.Equal(t, models.CategorySubscriptions, cat)
	})

	t.Run("variable monthly spend stays uncategorized", func(t *testing.T) {
		txns := series("KIRANA", "KIRANA STORE 42", "-2500", "-3200", "-1800")
		f.insert(t, txns...)
		cat, err := f.engine.DetectCategory(ctx, txns[2])
		require.NoError(t, err)
		assert.Equal(t, models.CategoryNone, cat)
	})

	t.Run("fuel goes to transport", func(t *testing.T) {
		txns := series("HPCL", "POS 416021XXXXXX1234 HPCL PETROL PUMP", "-999", "-999", "-999")
		f.insert(t, txns...)
		cat, err := f.engine.DetectCategory(ctx, txns[2])
		require.NoError(t, err)
		assert.Equal(t, models.CategoryTransport, cat)
		assert.Equal(t, FuelConfidence, f.rules(t, "HPCL")[0].Confidence)
	})
}

func TestDetectCategory_TransferAutoLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mem.SaveAccount(ctx, models.Account{ID: "hdfc-1", BankID: "hdfc", BankName: "HDFC Bank", AccountLast4: "5678"}))
	require.NoError(t, f.mem.SaveAccount(ctx, models.Account{ID: "icici-1", BankID: "icici", BankName: "ICICI Bank", AccountLast4: "4321"}))

	src := txn("src", "hdfc", "50100012345678-TPT-ICIC-XX4321-RAVI KUMAR", "-50000", day(3, 15))
	src.AccountID = "hdfc-1"
	dst := txn("dst", "icici", "NEFT-HDFCN52024031512345-RAVI KUMAR--SAVINGS", "50000", day(3, 15))
	dst.AccountID = "icici-1"
	f.insert(t, src, dst)

	cat, err := f.engine.CategorizeAndSave(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryTransfers, cat)

	gotSrc, err := f.mem.GetTransaction(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryTransfers, gotSrc.Category)
	assert.Equal(t, "dst", gotSrc.LinkedTransactionID, "link survives the category write")
	assert.NotEmpty(t, gotSrc.MerchantKey)

	gotDst, err := f.mem.GetTransaction(ctx, "dst")
	require.NoError(t, err)
	assert.Equal(t, "src", gotDst.LinkedTransactionID)
	assert.Equal(t, gotSrc.TransferGroupID, gotDst.TransferGroupID)
}

func TestExplain_WritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mem.SaveAccount(ctx, models.Account{ID: "hdfc-1", BankID: "hdfc", BankName: "HDFC Bank", AccountLast4: "5678"}))
	require.NoError(t, f.mem.SaveAccount(ctx, models.Account{ID: "icici-1", BankID: "icici", BankName: "ICICI Bank", AccountLast4: "4321"}))
	require.NoError(t, f.mem.SaveRule(ctx, models.CategoryRule{
		MerchantKey: "MEDPLUS", RootCategory: models.CategoryHealth, Confidence: 1, CreatedBy: models.RuleSourceUser, UsageCount: 2,
	}))

	src := txn("src", "hdfc", "50100012345678-TPT-ICIC-XX4321-RAVI KUMAR", "-50000", day(3, 15))
	src.AccountID = "hdfc-1"
	dst := txn("dst", "icici", "NEFT-HDFCN52024031512345-RAVI KUMAR--SAVINGS", "50000", day(3, 15))
	dst.AccountID = "icici-1"
	f.insert(t, src, dst)
	pharmacy := txn("t2", "", "MEDPLUS PHARMACY", "-320", day(3, 2))
	pharmacy.MerchantKey = "MEDPLUS"

	tests := []struct {
		name     string
		tx       models.StoredTransaction
		strategy string
		want     models.CategoryID
	}{
		{"transfer", src, "Transfer", models.CategoryTransfers},
		{"keyword", txn("t1", "hdfc", "UPI-SWIGGY-SWIGGY@ICICI-412345678901", "-450", day(3, 1)), "ExactKeyword", models.CategoryFood},
		{"user rule", pharmacy, "UserRule", models.CategoryHealth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trace, err := f.engine.Explain(ctx, tt.tx)
			require.NoError(t, err)
			final, ok := trace.Final()
			require.True(t, ok)
			assert.Equal(t, tt.strategy, final.Strategy)
			assert.Equal(t, tt.want, final.Category)
		})
	}

	for _, id := range []string{"src", "dst"} {
		got, err := f.mem.GetTransaction(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, got.LinkedTransactionID, id)
		assert.False(t, got.IsInternalTransfer, id)
		assert.Equal(t, models.CategoryNone, got.Category, id)
	}
	assert.Empty(t, f.rules(t, "SWIGGY"))
	assert.Equal(t, 2, f.rules(t, "MEDPLUS")[0].UsageCount)
}

func TestCategorizeTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	txns := []models.StoredTransaction{
		txn("t1", "hdfc", "UPI-SWIGGY-SWIGGY@ICICI-412345678901", "-450", day(3, 1)),
		txn("t2", "hdfc", "UPI-SWIGGY-SWIGGY@ICICI-412345678903", "-380", day(3, 4)),
		txn("t3", "", "QWERTY 99812", "-10", day(3, 5)),
	}
	f.insert(t, txns...)

	n, err := f.engine.CategorizeTransactions(ctx, txns)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	second, err := f.mem.GetTransaction(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryFood, second.Category)
	assert.Equal(t, "SWIGGY", second.MerchantKey)

	rule, _ := store.PreferredRule(f.rules(t, "SWIGGY"))
	assert.Equal(t, 2, rule.UsageCount, "second transaction touches the learned rule")

	third, err := f.mem.GetTransaction(ctx, "t3")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryNone, third.Category)
}

func TestRecategorizeTransactions_ClearsStaleCategory(t *testing.T) {
	stale := txn("stale", "", "QWERTY 99812", "-10", day(3, 5))
	stale.MerchantKey = "QWERTY"
	stale.Category = models.CategoryFood
	manual := txn("manual", "", "ASDFG 4411", "-20", day(3, 6))
	manual.MerchantKey = models.MerchantKeyUnknown
	manual.Category = models.CategoryShopping
	linked := txn("linked", "", "ZXCVB 7788", "-30", day(3, 7))
	linked.MerchantKey = "ZXCVB"
	linked.Category = models.CategoryTransfers
	linked.IsInternalTransfer = true
	linked.LinkedAccountID = "icici-1"
	txns := []models.StoredTransaction{stale, manual, linked}

	tests := []struct {
		name      string
		recompute func(*Engine) func(context.Context, []models.StoredTransaction) (int, error)
		want      map[string]models.CategoryID
	}{
		{
			name:      "categorize keeps categories",
			recompute: func(e *Engine) func(context.Context, []models.StoredTransaction) (int, error) { return e.CategorizeTransactions },
			want: map[string]models.CategoryID{
				"stale":  models.CategoryFood,
				"manual": models.CategoryShopping,
				"linked": models.CategoryTransfers,
			},
		},
		{
			name:      "recategorize clears what no longer matches",
			recompute: func(e *Engine) func(context.Context, []models.StoredTransaction) (int, error) { return e.RecategorizeTransactions },
			want: map[string]models.CategoryID{
				"stale":  models.CategoryNone,
				"manual": models.CategoryShopping,
				"linked": models.CategoryTransfers,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.insert(t, txns...)

			_, err := tt.recompute(f.engine)(ctx, txns)
			require.NoError(t, err)
			for id, want := range tt.want {
				got, err := f.mem.GetTransaction(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, want, got.Category, id)
			}
		})
	}
}

func TestSetUserCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := txn("t1", "hdfc", "UPI-SWIGGY-SWIGGY@ICICI-412345678901", "-450", day(3, 1))
	f.insert(t, first)

	require.NoError(t, f.engine.SetUserCategory(ctx, "t1", models.CategoryBusiness))
	got, err := f.mem.GetTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryBusiness, got.Category)

	cat, err := f.engine.DetectCategory(ctx, txn("t2", "hdfc", "UPI-SWIGGY-SWIGGY@ICICI-412345678999", "-99", day(3, 9)))
	require.NoError(t, err)
	assert.Equal(t, models.CategoryBusiness, cat, "later transactions follow the correction")

	assert.ErrorIs(t, f.engine.SetUserCategory(ctx, "t1", "groceries"), ErrInvalidRule)
	assert.ErrorIs(t, f.engine.SetUserCategory(ctx, "missing", models.CategoryFood), store.ErrNotFound)
}

type brokenRules struct {
	*store.MemoryStore
}

func (brokenRules) GetRules(context.Context, string) ([]models.CategoryRule, error) {
	return nil, errors.New("database is locked")
}

func TestDetectCategory_StorageErrorPropagates(t *testing.T) {
	logger := logging.NewMockLogger()
	reg := registry.New(logger, factory.AllAdapters(logger)...)
	engine := NewEngine(brokenRules{store.NewMemoryStore()}, reg, nil, nil, nil, logger)

	_, err := engine.DetectCategory(context.Background(), txn("t1", "hdfc", "UPI-SWIGGY-SWIGGY@ICICI", "-1", day(3, 1)))
	var catErr *parsererror.CategorizationError
	require.ErrorAs(t, err, &catErr)
	assert.ErrorContains(t, err, "database is locked")
}

func TestStrategyNames(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{
		"UserRule", "Transfer", "SpecialPattern", "Recurrence", "SystemRule", "ExactKeyword", "SubstringKeyword",
	}, f.engine.StrategyNames())
}
