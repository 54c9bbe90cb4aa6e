// Package rules provides the declarative validation rule engine applied to
// extracted contract records.
package rules

import (
	"fmt"
	"strings"

	"github.com/mateo/contract-intake/internal/types"
)

// Rule is one deterministic predicate over a ContractRecord. Check returns
// whether the rule passed and, on failure, a human-readable reason.
type Rule struct {
	ID          string
	Category    types.RuleCategory
	Description string
	Check       func(rec *types.ContractRecord) (bool, string)
}

// amountToleranceCents is the allowed drift between the stated total and the
// sum of line items, covering rounding in the source document.
const amountToleranceCents = 100

// maxTermMonths bounds plausible contract terms.
const maxTermMonths = 120

// knownCurrencies are the ISO codes the downstream billing system accepts.
var knownCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "CAD": true, "AUD": true,
}

// DefaultRules returns the standard rule table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "required_fields_present",
			Category:    types.RuleHard,
			Description: "all required contract fields are present",
			Check: func(rec *types.ContractRecord) (bool, string) {
				var missing []string
				for _, field := range []string{
					types.FieldAccountName, types.FieldContractRef,
					types.FieldSignatoryName, types.FieldStartDate,
					types.FieldCurrency, types.FieldTotalAmount,
				} {
					if !rec.Fields[field].Present {
						missing = append(missing, field)
					}
				}
				if len(missing) > 0 {
					return false, "missing fields: " + strings.Join(missing, ", ")
				}
				return true, ""
			},
		},
		{
			ID:          "date_range_sane",
			Category:    types.RuleHard,
			Description: "contract start date precedes end date",
			Check: func(rec *types.ContractRecord) (bool, string) {
				if rec.EndDate.IsZero() {
					return true, ""
				}
				if !rec.StartDate.Before(rec.EndDate) {
					return false, fmt.Sprintf("start date %s is not before end date %s",
						rec.StartDate.Format("2006-01-02"), rec.EndDate.Format("2006-01-02"))
				}
				return true, ""
			},
		},
		{
			ID:          "amount_positive",
			Category:    types.RuleHard,
			Description: "total contract amount is positive",
			Check: func(rec *types.ContractRecord) (bool, string) {
				if rec.TotalCents <= 0 {
					return false, fmt.Sprintf("total amount is %d cents", rec.TotalCents)
				}
				return true, ""
			},
		},
		{
			ID:          "term_length_plausible",
			Category:    types.RuleHard,
			Description: "term length is between 1 and 120 months",
			Check: func(rec *types.ContractRecord) (bool, string) {
				if rec.TermMonths < 1 || rec.TermMonths > maxTermMonths {
					return false, fmt.Sprintf("term of %d months is out of range", rec.TermMonths)
				}
				return true, ""
			},
		},
		{
			ID:          "total_matches_line_items",
			Category:    types.RuleSoft,
			Description: "stated total matches the sum of line items",
			Check: func(rec *types.ContractRecord) (bool, string) {
				if len(rec.LineItems) == 0 {
					return true, ""
				}
				sum := rec.LineItemTotalCents()
				diff := rec.TotalCents - sum
				if diff < 0 {
					diff = -diff
				}
				if diff > amountToleranceCents {
					return false, fmt.Sprintf("stated total %d differs from line item sum %d", rec.TotalCents, sum)
				}
				return true, ""
			},
		},
		{
			ID:          "currency_recognized",
			Category:    types.RuleSoft,
			Description: "currency code is recognized by billing",
			Check: func(rec *types.ContractRecord) (bool, string) {
				if rec.Currency != "" && !knownCurrencies[rec.Currency] {
					return false, fmt.Sprintf("unrecognized currency %q", rec.Currency)
				}
				return true, ""
			},
		},
		{
			ID:          "extraction_confidence",
			Category:    types.RuleSoft,
			Description: "no fields were extracted with low confidence",
			Check: func(rec *types.ContractRecord) (bool, string) {
				low := rec.LowConfidenceFields()
				if len(low) > 0 {
					return false, "low-confidence fields: " + strings.Join(low, ", ")
				}
				return true, ""
			},
		},
		{
			ID:          "discount_tiers_coherent",
			Category:    types.RuleSoft,
			Description: "discount tiers are ordered and non-overlapping",
			Check: func(rec *types.ContractRecord) (bool, string) {
				tiers := rec.DiscountTiers
				for i := 1; i < len(tiers); i++ {
					prev, cur := tiers[i-1], tiers[i]
					if prev.UpperCents < 0 {
						return false, fmt.Sprintf("tier %q is unbounded but not last", prev.Name)
					}
					if cur.LowerCents <= prev.UpperCents {
						return false, fmt.Sprintf("tier %q overlaps tier %q", cur.Name, prev.Name)
					}
				}
				return true, ""
			},
		},
	}
}

// Engine evaluates a fixed, ordered rule table against contract records.
// Every rule always runs; failures are collected, never short-circuited,
// because review routing depends on exactly which rules failed.
type Engine struct {
	rules []Rule
}

// NewEngine returns an engine over the given rules, preserving their order.
// With no rules given, the default table is used.
func NewEngine(rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Engine{rules: rules}
}

// Evaluate runs every rule in declared order and derives the verdict:
// any hard failure makes the record invalid, soft-only failures route it to
// review, and a clean pass is valid. Evaluate never fails.
func (e *Engine) Evaluate(rec *types.ContractRecord) *types.ValidationResult {
	result := &types.ValidationResult{
		DocumentID: rec.DocumentID,
		Verdict:    types.VerdictValid,
	}

	hardFailed, softFailed := false, false
	for _, rule := range e.rules {
		passed, reason := rule.Check(rec)
		result.Outcomes = append(result.Outcomes, types.RuleOutcome{
			RuleID:   rule.ID,
			Category: rule.Category,
			Passed:   passed,
			Reason:   reason,
		})
		if !passed {
			if rule.Category == types.RuleHard {
				hardFailed = true
			} else {
				softFailed = true
			}
		}
	}

	switch {
	case hardFailed:
		result.Verdict = types.VerdictInvalid
	case softFailed:
		result.Verdict = types.VerdictNeedsReview
	}
	return result
}
