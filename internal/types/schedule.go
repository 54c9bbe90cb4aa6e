package types

import "time"

// Installment is one (due date, amount) entry in a discount schedule.
type Installment struct {
	DueDate     time.Time `json:"due_date"`
	AmountCents int64     `json:"amount_cents"`
}

// DiscountSchedule is the ordered payment schedule derived from validated
// contract terms. Entries always sum exactly to DiscountedTotalCents.
type DiscountSchedule struct {
	DocumentID           string        `json:"document_id"`
	Currency             string        `json:"currency"`
	TotalCents           int64         `json:"total_cents"`
	DiscountedTotalCents int64         `json:"discounted_total_cents"`
	Entries              []Installment `json:"entries"`
}

// SumCents returns the sum of all installment amounts.
func (s *DiscountSchedule) SumCents() int64 {
	var sum int64
	for _, e := range s.Entries {
		sum += e.AmountCents
	}
	return sum
}
