package categorizer

import (
	"context"
	"regexp"
	"strings"

	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/store"
)

// SpecialPatternConfidence is the rule confidence written by the pattern battery.
const SpecialPatternConfidence = 0.8

// specialPattern is one entry of the battery. credit restricts it to incoming money,
// debit to outgoing money.
type specialPattern struct {
	name     string
	category models.CategoryID
	re       *regexp.Regexp
	// also must match as well as re.
	also   *regexp.Regexp
	credit bool
	debit  bool
	// refund hands the transaction to refund resolution instead of returning category.
	refund bool
	// refine may change the category once the pattern matched.
	refine func(narration string) models.CategoryID
}

var (
	claimWords       = regexp.MustCompile(`\b(CLAIMS?|SETTLEMENT|SETTLED|MATURITY|PAYOUT|DEATH BENEFIT|SURVIVAL BENEFIT)\b`)
	insuranceContext = regexp.MustCompile(`\b(INSURANCE|INSURER|INS|POLICY|LIC|ASSURANCE|MEDICLAIM|GIC)\b`)
	vehicleWords     = regexp.MustCompile(`\b(MOTOR|CAR|VEHICLE|TWO ?WHEELER|BIKE|AUTO)\b`)
	refundWords      = regexp.MustCompile(`\b(REFUND|REFUNDED|RFND|REVERSAL|REVERSED|CHARGEBACK)\b|^REV[-/ ]`)
)

// battery is evaluated top to bottom; the first match wins.
//
// Claims precede premiums so claim payouts on a policy are not read as premiums.
// Investments precede fees because SIP narrations often carry charge-like words.
// Education precedes fees so "SCHOOL FEE" is not a bank charge.
var battery = []specialPattern{
	{
		name:     "insurance-claim",
		category: models.CategoryIncome,
		re:       claimWords,
		also:     insuranceContext,
		credit:   true,
	},
	{
		name:     "insurance-premium",
		category: models.CategoryHealth,
		re:       regexp.MustCompile(`\b(INSURANCE|PREMIUM|POLICY|LIC|ASSURANCE|MEDICLAIM)\b`),
		debit:    true,
		refine: func(n string) models.CategoryID {
			if vehicleWords.MatchString(n) {
				return models.CategoryTransport
			}
			return models.CategoryHealth
		},
	},
	{
		name:   "refund",
		re:     refundWords,
		refund: true,
	},
	{
		name:     "income-credit",
		category: models.CategoryIncome,
		re:       regexp.MustCompile(`\b(CASHBACK|CASH BACK|INTEREST|INT\.?\s?PD|SALARY|SAL CREDIT|DIVIDEND|STIPEND|BONUS)\b`),
		credit:   true,
	},
	{
		name:     "loan",
		category: models.CategoryLoans,
		re:       regexp.MustCompile(`\b(EMI|LOANS?|REPAYMENT|BAJAJ ?FIN(ANCE)?|HOME ?LOAN|CAR ?LOAN)\b`),
	},
	{
		name:     "investment",
		category: models.CategoryInvestments,
		re:       regexp.MustCompile(`\b(SIP|MUTUAL ?FUNDS?|MF|ZERODHA|GROWW|UPSTOX|NSE|BSE|ICCL|NSCCL|TRADING|DEMAT|EQUITY|NPS|PPF)\b`),
	},
	{
		name:     "education",
		category: models.CategoryEducation,
		re:       regexp.MustCompile(`\b(SCHOOL|COLLEGE|UNIVERSITY|TUITION|ADMISSION|EXAM FEES?)\b`),
	},
	{
		name:     "bank-fee",
		category: models.CategoryFees,
		re:       regexp.MustCompile(`\b(CHARGES?|CHRGS?|CHG|PENALTY|PENAL|FEES?|GST|AMC|MIN BAL|NON MAINT|SMS ALERT|OVERDUE)\b`),
		debit:    true,
	},
	{
		name:     "utility-bill",
		category: models.CategoryUtilities,
		re:       regexp.MustCompile(`\b(ELECTRICITY|ELECTRIC|BBPS|RECHARGE|BROADBAND|POSTPAID|DTH|GAS BILL|WATER BILL|POWER BILL)\b`),
		debit:    true,
	},
	{
		name:     "travel-booking",
		category: models.CategoryTravel,
		re:       regexp.MustCompile(`\b(FLIGHTS?|AIRLINES?|AIRWAYS|AIRPORT|HOTELS?|RESORTS?|MAKEMYTRIP|GOIBIBO|CLEARTRIP|IRCTC|BOOKING\.COM)\b`),
		debit:    true,
	},
	{
		name:     "subscription",
		category: models.CategorySubscriptions,
		re:       regexp.MustCompile(`\b(SUBSCRIPTION|SUBSCR|AUTOPAY|AUTO PAY|AUTO-DEBIT|MEMBERSHIP|RENEWAL)\b`),
		debit:    true,
	},
}

// SpecialPatternStrategy runs the narration through an ordered battery of unambiguous
// phrases. Refunds are resolved to the category of the merchant being refunded;
// a refund whose merchant cannot be identified stays uncategorized.
type SpecialPatternStrategy struct {
	engine *Engine
}

// Name returns the name of this strategy for logging and debugging.
func (s *SpecialPatternStrategy) Name() string {
	return "SpecialPattern"
}

func (s *SpecialPatternStrategy) Categorize(ctx context.Context, tx Transaction) (StrategyResult, error) {
	res := StrategyResult{Strategy: s.Name()}
	n := tx.Narration

	for _, p := range battery {
		if (p.credit && !tx.IsCredit()) || (p.debit && tx.IsCredit()) {
			continue
		}
		if !p.re.MatchString(n) || (p.also != nil && !p.also.MatchString(n)) {
			continue
		}
		if p.refund {
			return s.refund(ctx, tx)
		}
		res.Category = p.category
		if p.refine != nil {
			res.Category = p.refine(n)
		}
		res.Confidence, res.Learn, res.Found = SpecialPatternConfidence, true, true
		s.engine.logger.Debug("Special pattern matched",
			fieldTx(tx), fieldCategory(res.Category), fieldReason(p.name))
		return res, nil
	}
	return res, nil
}

// refund looks up the refunded merchant through rules, then the keyword map.
func (s *SpecialPatternStrategy) refund(ctx context.Context, tx Transaction) (StrategyResult, error) {
	res := StrategyResult{Strategy: s.Name()}
	rest := strings.TrimSpace(refundWords.ReplaceAllString(tx.Narration, " "))
	origin := s.engine.keyer.MerchantKey(tx.Source, rest)

	if usableKey(origin) {
		rules, err := s.engine.store.GetRules(ctx, origin)
		if err != nil {
			return res, err
		}
		if rule, ok := store.PreferredRule(rules); ok {
			res.Category = rule.RootCategory
		} else if cat, ok := s.engine.keywords[origin]; ok {
			res.Category = cat
		}
	}
	if res.Category == models.CategoryNone {
		res.Category, _ = s.engine.scanKeywords(rest)
	}

	if res.Category == models.CategoryNone {
		s.engine.logger.Debug("Refund origin not identified, leaving uncategorized",
			fieldTx(tx), fieldMerchantKey(origin))
		res.Stop = true
		return res, nil
	}
	res.Confidence, res.Learn, res.Found = SpecialPatternConfidence, true, true
	return res, nil
}

func usableKey(key string) bool {
	return key != "" && key != models.MerchantKeyUnknown && key != models.MerchantKeySelf
}
