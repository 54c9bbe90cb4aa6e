package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateo/contract-intake/internal/types"
)

func validRecord() *types.ContractRecord {
	fields := make(map[string]types.FieldMeta)
	for _, f := range []string{
		types.FieldAccountName, types.FieldContractRef, types.FieldSignatoryName,
		types.FieldStartDate, types.FieldCurrency, types.FieldTotalAmount,
	} {
		fields[f] = types.FieldMeta{Present: true, Confidence: 0.95}
	}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return &types.ContractRecord{
		DocumentID:  "doc-1",
		AccountName: "Acme Corporation",
		ContractRef: "CTR-2031",
		Signatory:   types.Signatory{Name: "Jordan Blake"},
		StartDate:   start,
		EndDate:     start.AddDate(1, 0, 0),
		TermMonths:  12,
		Currency:    "USD",
		TotalCents:  1200000,
		LineItems: []types.LineItem{
			{Product: "Background Check", Quantity: 100, UnitFeeCents: 6000},
			{Product: "Identity Check", Quantity: 100, UnitFeeCents: 6000},
		},
		DiscountTiers: []types.DiscountTier{
			{Name: "Tier 1", LowerCents: 0, UpperCents: 50000, Percent: 0},
			{Name: "Tier 2", LowerCents: 50001, UpperCents: -1, Percent: 10},
		},
		Fields: fields,
	}
}

func TestEvaluate_ValidRecord(t *testing.T) {
	result := NewEngine().Evaluate(validRecord())

	assert.Equal(t, types.VerdictValid, result.Verdict)
	assert.Empty(t, result.Failures())
	assert.Len(t, result.Outcomes, len(DefaultRules()))
}

func TestEvaluate_MissingFieldIsInvalid(t *testing.T) {
	rec := validRecord()
	rec.Fields[types.FieldContractRef] = types.FieldMeta{Present: false}

	result := NewEngine().Evaluate(rec)

	assert.Equal(t, types.VerdictInvalid, result.Verdict)
	require.Len(t, result.HardFailures(), 1)
	assert.Equal(t, "required_fields_present", result.HardFailures()[0].RuleID)
	assert.Contains(t, result.HardFailures()[0].Reason, types.FieldContractRef)
}

func TestEvaluate_NegativeAmountIsInvalid(t *testing.T) {
	rec := validRecord()
	rec.TotalCents = -50000
	rec.LineItems = nil

	result := NewEngine().Evaluate(rec)

	assert.Equal(t, types.VerdictInvalid, result.Verdict)
	failed := result.HardFailures()
	require.NotEmpty(t, failed)
	assert.Equal(t, "amount_positive", failed[0].RuleID)
}

func TestEvaluate_InvertedDatesAreInvalid(t *testing.T) {
	rec := validRecord()
	rec.EndDate = rec.StartDate.AddDate(0, -1, 0)

	result := NewEngine().Evaluate(rec)
	assert.Equal(t, types.VerdictInvalid, result.Verdict)
}

func TestEvaluate_ImplausibleTermIsInvalid(t *testing.T) {
	rec := validRecord()
	rec.TermMonths = 240
	rec.EndDate = rec.StartDate.AddDate(20, 0, 0)

	result := NewEngine().Evaluate(rec)
	assert.Equal(t, types.VerdictInvalid, result.Verdict)
}

func TestEvaluate_SoftFailureRoutesToReview(t *testing.T) {
	rec := validRecord()
	rec.Currency = "XBT"

	result := NewEngine().Evaluate(rec)

	assert.Equal(t, types.VerdictNeedsReview, result.Verdict)
	assert.Empty(t, result.HardFailures())
	require.Len(t, result.Failures(), 1)
	assert.Equal(t, "currency_recognized", result.Failures()[0].RuleID)
}

func TestEvaluate_LowConfidenceRoutesToReview(t *testing.T) {
	rec := validRecord()
	rec.Fields[types.FieldSignatoryName] = types.FieldMeta{Present: true, Confidence: 0.5, LowConfidence: true}

	result := NewEngine().Evaluate(rec)

	assert.Equal(t, types.VerdictNeedsReview, result.Verdict)
}

func TestEvaluate_TotalMismatchRoutesToReview(t *testing.T) {
	rec := validRecord()
	rec.TotalCents = 1500000 // line items still sum to 1200000

	result := NewEngine().Evaluate(rec)

	assert.Equal(t, types.VerdictNeedsReview, result.Verdict)
	require.Len(t, result.Failures(), 1)
	assert.Equal(t, "total_matches_line_items", result.Failures()[0].RuleID)
}

func TestEvaluate_TotalWithinToleranceIsValid(t *testing.T) {
	rec := validRecord()
	rec.TotalCents = 1200100 // one dollar over the line item sum

	result := NewEngine().Evaluate(rec)
	assert.Equal(t, types.VerdictValid, result.Verdict)
}

func TestEvaluate_OverlappingTiersRouteToReview(t *testing.T) {
	rec := validRecord()
	rec.DiscountTiers = []types.DiscountTier{
		{Name: "Tier 1", LowerCents: 0, UpperCents: 50000, Percent: 0},
		{Name: "Tier 2", LowerCents: 40000, UpperCents: -1, Percent: 10},
	}

	result := NewEngine().Evaluate(rec)

	assert.Equal(t, types.VerdictNeedsReview, result.Verdict)
	require.Len(t, result.Failures(), 1)
	assert.Equal(t, "discount_tiers_coherent", result.Failures()[0].RuleID)
}

func TestEvaluate_AllRulesAlwaysRun(t *testing.T) {
	rec := validRecord()
	rec.TotalCents = -1
	rec.Currency = "XBT"
	rec.Fields[types.FieldAccountName] = types.FieldMeta{Present: false}
	rec.LineItems = nil

	result := NewEngine().Evaluate(rec)

	// A hard failure does not short-circuit the remaining rules.
	assert.Len(t, result.Outcomes, len(DefaultRules()))
	assert.Equal(t, types.VerdictInvalid, result.Verdict)
	assert.GreaterOrEqual(t, len(result.Failures()), 3)
}

func TestEvaluate_CustomRuleSet(t *testing.T) {
	calls := 0
	engine := NewEngine(Rule{
		ID:       "always_fails",
		Category: types.RuleSoft,
		Check: func(*types.ContractRecord) (bool, string) {
			calls++
			return false, "nope"
		},
	})

	result := engine.Evaluate(validRecord())

	assert.Equal(t, 1, calls)
	assert.Equal(t, types.VerdictNeedsReview, result.Verdict)
}
