package types

import "time"

// Field names used as keys into ContractRecord.Fields.
const (
	FieldAccountName   = "account_name"
	FieldContractRef   = "contract_ref"
	FieldCustomerName  = "customer_name"
	FieldSignatoryName = "signatory_name"
	FieldSignatoryDOB  = "signatory_dob"
	FieldSignatoryID   = "signatory_id"
	FieldStartDate     = "start_date"
	FieldEndDate       = "end_date"
	FieldTermMonths    = "term_months"
	FieldCurrency      = "currency"
	FieldTotalAmount   = "total_amount"
)

// FieldMeta carries the extraction confidence for one contract field.
// Fields below the configured threshold are kept but marked low-confidence;
// the validation rule engine decides what to do with them.
type FieldMeta struct {
	Present       bool    `json:"present"`
	Confidence    float64 `json:"confidence"`
	Page          int     `json:"page,omitempty"`
	LowConfidence bool    `json:"low_confidence,omitempty"`
}

// Signatory identifies the person who signed the contract. These are the
// identifying fields submitted to the external verification services.
type Signatory struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	NationalID  string `json:"national_id,omitempty"`
}

// IdentityFingerprint is the subset of signatory data sent to identity,
// watchlist, and fraud-scoring collaborators.
type IdentityFingerprint struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	NationalID  string `json:"national_id,omitempty"`
	AccountName string `json:"account_name,omitempty"`
}

// LineItem is one priced service row extracted from the contract tables.
type LineItem struct {
	Product      string `json:"product"`
	Quantity     int64  `json:"quantity"`
	UnitFeeCents int64  `json:"unit_fee_cents"`
}

// TotalCents returns the extended amount for the line item.
func (li LineItem) TotalCents() int64 {
	return li.Quantity * li.UnitFeeCents
}

// DiscountTier is one row of a tiered discount table. UpperCents < 0 means
// the tier is unbounded above ("Unlimited" in the source documents).
type DiscountTier struct {
	Name       string  `json:"name"`
	LowerCents int64   `json:"lower_cents"`
	UpperCents int64   `json:"upper_cents"`
	Percent    float64 `json:"percent"`
}

// Contains reports whether an amount falls inside the tier's band.
func (t DiscountTier) Contains(amountCents int64) bool {
	if amountCents < t.LowerCents {
		return false
	}
	return t.UpperCents < 0 || amountCents <= t.UpperCents
}

// ClauseFlags records the presence of notable contract clauses.
type ClauseFlags struct {
	AutoRenew        bool `json:"auto_renew"`
	EarlyTermination bool `json:"early_termination"`
}

// ContractRecord is the structured representation of a contract extracted from
// a document. It is created once by the extraction engine and never mutated;
// downstream stages attach derived results elsewhere on the WorkflowState.
type ContractRecord struct {
	DocumentID    string               `json:"document_id"`
	AccountName   string               `json:"account_name"`
	ContractRef   string               `json:"contract_ref"`
	CustomerName  string               `json:"customer_name,omitempty"`
	Signatory     Signatory            `json:"signatory"`
	StartDate     time.Time            `json:"start_date"`
	EndDate       time.Time            `json:"end_date"`
	TermMonths    int                  `json:"term_months"`
	Currency      string               `json:"currency"`
	TotalCents    int64                `json:"total_cents"`
	LineItems     []LineItem           `json:"line_items,omitempty"`
	DiscountTiers []DiscountTier       `json:"discount_tiers,omitempty"`
	Clauses       ClauseFlags          `json:"clauses"`
	Fields        map[string]FieldMeta `json:"fields"`
}

// Fingerprint returns the identity fingerprint for verification calls.
func (r *ContractRecord) Fingerprint() IdentityFingerprint {
	return IdentityFingerprint{
		Name:        r.Signatory.Name,
		DateOfBirth: r.Signatory.DateOfBirth,
		NationalID:  r.Signatory.NationalID,
		AccountName: r.AccountName,
	}
}

// LineItemTotalCents sums the extended amounts of all line items.
func (r *ContractRecord) LineItemTotalCents() int64 {
	var total int64
	for _, li := range r.LineItems {
		total += li.TotalCents()
	}
	return total
}

// LowConfidenceFields returns the names of fields marked low-confidence,
// in no particular order.
func (r *ContractRecord) LowConfidenceFields() []string {
	var names []string
	for name, meta := range r.Fields {
		if meta.Present && meta.LowConfidence {
			names = append(names, name)
		}
	}
	return names
}
