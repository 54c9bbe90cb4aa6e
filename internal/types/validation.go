package types

// Verdict is the overall outcome of the validation rule engine.
type Verdict string

const (
	VerdictValid       Verdict = "valid"
	VerdictInvalid     Verdict = "invalid"
	VerdictNeedsReview Verdict = "needs-review"
)

// RuleCategory controls how a rule failure affects the overall verdict.
// Hard failures make the record invalid; soft failures route it to review.
type RuleCategory string

const (
	RuleHard RuleCategory = "hard"
	RuleSoft RuleCategory = "soft"
)

// RuleOutcome is the result of evaluating a single validation rule.
type RuleOutcome struct {
	RuleID   string       `json:"rule_id"`
	Category RuleCategory `json:"category"`
	Passed   bool         `json:"passed"`
	Reason   string       `json:"reason,omitempty"`
}

// ValidationResult holds every rule outcome for a ContractRecord plus the
// derived verdict. It is produced once and never mutated.
type ValidationResult struct {
	DocumentID string        `json:"document_id"`
	Outcomes   []RuleOutcome `json:"outcomes"`
	Verdict    Verdict       `json:"verdict"`
}

// Failures returns the outcomes of every failed rule in declaration order.
func (v *ValidationResult) Failures() []RuleOutcome {
	var failed []RuleOutcome
	for _, o := range v.Outcomes {
		if !o.Passed {
			failed = append(failed, o)
		}
	}
	return failed
}

// HardFailures returns the failed outcomes in the hard category.
func (v *ValidationResult) HardFailures() []RuleOutcome {
	var failed []RuleOutcome
	for _, o := range v.Outcomes {
		if !o.Passed && o.Category == RuleHard {
			failed = append(failed, o)
		}
	}
	return failed
}
