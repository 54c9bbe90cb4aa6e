// Package schedule derives payment/discount schedules from validated
// contract terms. Deterministic arithmetic only; no external calls.
package schedule

import (
	"fmt"
	"math"

	"github.com/mateo/contract-intake/internal/types"
)

// MaxTermMonths bounds the schedules the calculator will produce.
const MaxTermMonths = 120

// ErrorKind classifies schedule computation failures.
type ErrorKind string

const (
	KindInvalidTermLength ErrorKind = "InvalidTermLength"
	KindNegativeAmount    ErrorKind = "NegativeAmount"
)

// Error represents a discount schedule computation failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("schedule error (%s): %s", e.Kind, e.Message)
}

// Calculator builds discount schedules from contract terms. The zero value
// is ready to use.
type Calculator struct{}

// Build derives the ordered installment schedule for a validated contract:
// the total is split into equal monthly installments over the term, each
// installment is discounted by the tier whose band contains the undiscounted
// monthly amount, amounts are rounded half-up to cents, and any rounding
// remainder lands in the final installment so the entries sum exactly to the
// discounted total.
func (Calculator) Build(rec *types.ContractRecord) (*types.DiscountSchedule, error) {
	if rec.TermMonths < 1 || rec.TermMonths > MaxTermMonths {
		return nil, &Error{
			Kind:    KindInvalidTermLength,
			Message: fmt.Sprintf("term of %d months is outside 1..%d", rec.TermMonths, MaxTermMonths),
		}
	}
	if rec.TotalCents < 0 {
		return nil, &Error{
			Kind:    KindNegativeAmount,
			Message: fmt.Sprintf("total amount is %d cents", rec.TotalCents),
		}
	}

	monthly := float64(rec.TotalCents) / float64(rec.TermMonths)
	discount := tierPercent(rec.DiscountTiers, int64(math.Round(monthly)))
	discountedTotal := roundHalfUp(float64(rec.TotalCents) * (1 - discount/100))
	perInstallment := roundHalfUp(float64(discountedTotal) / float64(rec.TermMonths))

	sched := &types.DiscountSchedule{
		DocumentID:           rec.DocumentID,
		Currency:             rec.Currency,
		TotalCents:           rec.TotalCents,
		DiscountedTotalCents: discountedTotal,
	}

	var allocated int64
	for i := 0; i < rec.TermMonths; i++ {
		amount := perInstallment
		if i == rec.TermMonths-1 {
			amount = discountedTotal - allocated
		}
		allocated += amount
		sched.Entries = append(sched.Entries, types.Installment{
			DueDate:     rec.StartDate.AddDate(0, i+1, 0),
			AmountCents: amount,
		})
	}
	return sched, nil
}

// tierPercent returns the discount percent of the tier whose band contains
// the monthly amount, or zero when no tier matches.
func tierPercent(tiers []types.DiscountTier, monthlyCents int64) float64 {
	for _, t := range tiers {
		if t.Contains(monthlyCents) {
			return t.Percent
		}
	}
	return 0
}

func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}
