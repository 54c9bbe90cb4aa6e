package observability

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mateo/contract-intake/internal/types"
)

func TestPrintContractRecord(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	rec := &types.ContractRecord{
		AccountName: "Acme Corporation",
		ContractRef: "CTR-2031",
		Signatory:   types.Signatory{Name: "Jordan Blake"},
		StartDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		TermMonths:  12,
		Currency:    "USD",
		TotalCents:  1200000,
		LineItems: []types.LineItem{
			{Product: "Background Check", Quantity: 100, UnitFeeCents: 6000},
		},
	}

	p.PrintContractRecord(rec)
	output := buf.String()

	assert.Contains(t, output, "EXTRACTED CONTRACT")
	assert.Contains(t, output, "Acme Corporation")
	assert.Contains(t, output, "CTR-2031")
	assert.Contains(t, output, "Jordan Blake")
	assert.Contains(t, output, "12 months")
	assert.Contains(t, output, "Background Check")
}

func TestPrintContractRecord_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintContractRecord(nil)
	assert.Empty(t, buf.String())
}

func TestPrintValidationResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintValidationResult(&types.ValidationResult{
		DocumentID: "doc-1",
		Verdict:    types.VerdictNeedsReview,
		Outcomes: []types.RuleOutcome{
			{RuleID: "currency_recognized", Category: types.RuleSoft, Passed: false, Reason: `unrecognized currency "XBT"`},
		},
	})
	output := buf.String()

	assert.Contains(t, output, "VALIDATION")
	assert.Contains(t, output, "needs-review")
	assert.Contains(t, output, "currency_recognized")
}

func TestPrintVerificationResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	v := types.NewVerificationResult("doc-1")
	v.Services[types.ServiceIdentity] = types.ServiceResult{Service: types.ServiceIdentity, Status: types.StatusClear, Attempts: 1}
	v.Services[types.ServiceFraud] = types.ServiceResult{Service: types.ServiceFraud, Status: types.StatusError, Attempts: 3, Detail: "service returned status 500"}

	p.PrintVerificationResult(v)
	output := buf.String()

	assert.Contains(t, output, "VERIFICATION")
	assert.Contains(t, output, "clear")
	assert.Contains(t, output, "pending") // watchlist never reported
	assert.Contains(t, output, "(3 attempts)")
}

func TestPrintWorkflowState(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintWorkflowState(&types.WorkflowState{
		DocumentID:  "doc-1",
		Stage:       types.StageSubmitted,
		Disposition: types.DispositionApproved,
		CRMAckID:    "ACK-1",
	})
	output := buf.String()

	assert.Contains(t, output, "WORKFLOW STATE")
	assert.Contains(t, output, "doc-1")
	assert.Contains(t, output, "approved")
	assert.Contains(t, output, "ACK-1")
}
