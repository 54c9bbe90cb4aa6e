// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/mateo/contract-intake/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintContractRecord outputs a human-readable summary of the extracted contract.
func (p *Printer) PrintContractRecord(rec *types.ContractRecord) {
	if rec == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Account:   %s\n", rec.AccountName))
	sb.WriteString(fmt.Sprintf("Reference: %s\n", rec.ContractRef))
	sb.WriteString(fmt.Sprintf("Signatory: %s\n", rec.Signatory.Name))
	sb.WriteString(fmt.Sprintf("Term:      %d months from %s\n", rec.TermMonths, rec.StartDate.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Total:     %s %d.%02d\n", rec.Currency, rec.TotalCents/100, rec.TotalCents%100))

	if len(rec.LineItems) > 0 {
		sb.WriteString("\nLine items:\n")
		count := min(len(rec.LineItems), maxItemsToShow)
		for i := 0; i < count; i++ {
			li := rec.LineItems[i]
			sb.WriteString(fmt.Sprintf("  • %s x%d\n", li.Product, li.Quantity))
		}
		if len(rec.LineItems) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(rec.LineItems)-maxItemsToShow))
		}
	}

	if low := rec.LowConfidenceFields(); len(low) > 0 {
		sb.WriteString(fmt.Sprintf("\nLow confidence: %s\n", strings.Join(low, ", ")))
	}

	p.printBox("EXTRACTED CONTRACT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintValidationResult outputs the rule outcomes and derived verdict.
func (p *Printer) PrintValidationResult(result *types.ValidationResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Verdict: %s\n", result.Verdict))

	failures := result.Failures()
	if len(failures) == 0 {
		sb.WriteString(fmt.Sprintf("All %d rules passed\n", len(result.Outcomes)))
	} else {
		sb.WriteString("\nFailed rules:\n")
		for _, o := range failures {
			sb.WriteString(fmt.Sprintf("  • [%s] %s: %s\n", o.Category, o.RuleID, o.Reason))
		}
	}

	p.printBox("VALIDATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintVerificationResult outputs the per-service verification outcomes.
func (p *Printer) PrintVerificationResult(result *types.VerificationResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	for _, svc := range types.RequiredServices {
		r, ok := result.Services[svc]
		if !ok {
			sb.WriteString(fmt.Sprintf("%-10s pending\n", svc))
			continue
		}
		sb.WriteString(fmt.Sprintf("%-10s %s", svc, r.Status))
		if r.Attempts > 1 {
			sb.WriteString(fmt.Sprintf(" (%d attempts)", r.Attempts))
		}
		sb.WriteString("\n")
		if r.Detail != "" {
			sb.WriteString(fmt.Sprintf("           %s\n", r.Detail))
		}
	}

	p.printBox("VERIFICATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSchedule outputs a summary of the discount schedule.
func (p *Printer) PrintSchedule(sched *types.DiscountSchedule) {
	if sched == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total:       %s %d.%02d\n", sched.Currency, sched.TotalCents/100, sched.TotalCents%100))
	sb.WriteString(fmt.Sprintf("Discounted:  %s %d.%02d\n", sched.Currency, sched.DiscountedTotalCents/100, sched.DiscountedTotalCents%100))
	sb.WriteString(fmt.Sprintf("Installments: %d\n", len(sched.Entries)))

	count := min(len(sched.Entries), maxItemsToShow)
	for i := 0; i < count; i++ {
		e := sched.Entries[i]
		sb.WriteString(fmt.Sprintf("  %s  %d.%02d\n", e.DueDate.Format("2006-01-02"), e.AmountCents/100, e.AmountCents%100))
	}
	if len(sched.Entries) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(sched.Entries)-maxItemsToShow))
	}

	p.printBox("PAYMENT SCHEDULE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintWorkflowState outputs the final state of a pipeline run.
func (p *Printer) PrintWorkflowState(state *types.WorkflowState) {
	if state == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Document:    %s\n", state.DocumentID))
	sb.WriteString(fmt.Sprintf("Stage:       %s\n", state.Stage))
	if state.Disposition != types.DispositionNone {
		sb.WriteString(fmt.Sprintf("Disposition: %s\n", state.Disposition))
	}
	if state.CRMAckID != "" {
		sb.WriteString(fmt.Sprintf("CRM ack:     %s\n", state.CRMAckID))
	}
	if state.Attempts > 1 {
		sb.WriteString(fmt.Sprintf("Attempts:    %d\n", state.Attempts))
	}
	if len(state.Cause) > 0 {
		sb.WriteString("\nCauses:\n")
		for _, cause := range state.Cause {
			sb.WriteString(fmt.Sprintf("  • %s\n", cause))
		}
	}

	p.printBox("WORKFLOW STATE", strings.TrimSuffix(sb.String(), "\n"))
}
