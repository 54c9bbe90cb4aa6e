package types

import "time"

// Stage is a pipeline checkpoint for one document.
type Stage string

const (
	StageReceived  Stage = "received"
	StageExtracted Stage = "extracted"
	StageValidated Stage = "validated"
	StageVerifying Stage = "verifying"
	StageScheduled Stage = "scheduled"
	StageSubmitted Stage = "submitted"
)

// stageRank orders the durable checkpoints. StageVerifying is an in-flight
// marker between validated and scheduled; it shares the rank of validated so
// that settling verification without advancing is not a regression.
var stageRank = map[Stage]int{
	StageReceived:  0,
	StageExtracted: 1,
	StageValidated: 2,
	StageVerifying: 2,
	StageScheduled: 3,
	StageSubmitted: 4,
}

// Before reports whether s is an earlier checkpoint than other.
func (s Stage) Before(other Stage) bool {
	return stageRank[s] < stageRank[other]
}

// Disposition is the terminal workflow outcome for a document.
type Disposition string

const (
	DispositionNone        Disposition = ""
	DispositionApproved    Disposition = "approved"
	DispositionRejected    Disposition = "rejected"
	DispositionNeedsReview Disposition = "needs_review"
	DispositionFailed      Disposition = "failed"
)

// Terminal reports whether the disposition ends the workflow.
func (d Disposition) Terminal() bool {
	return d != DispositionNone
}

// Replayable reports whether a document with this disposition may be
// reprocessed from the start. Only failed documents are; approved and
// rejected dispositions are final, and needs_review awaits a human.
func (d Disposition) Replayable() bool {
	return d == DispositionFailed
}

// WorkflowState ties one document to everything the pipeline derived for it.
// Exactly one WorkflowState exists per document id; it advances monotonically
// through stages and its disposition is never overwritten once terminal.
type WorkflowState struct {
	DocumentID   string              `json:"document_id"`
	Source       string              `json:"source,omitempty"`
	Location     string              `json:"location,omitempty"`
	Stage        Stage               `json:"stage"`
	Disposition  Disposition         `json:"disposition,omitempty"`
	Cause        []string            `json:"cause,omitempty"` // human-readable cause chain
	Contract     *ContractRecord     `json:"contract,omitempty"`
	Validation   *ValidationResult   `json:"validation,omitempty"`
	Verification *VerificationResult `json:"verification,omitempty"`
	Schedule     *DiscountSchedule   `json:"schedule,omitempty"`
	CRMAckID     string              `json:"crm_ack_id,omitempty"`
	Attempts     int                 `json:"attempts"`
	ReceivedAt   time.Time           `json:"received_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// Terminal reports whether the workflow has reached a terminal disposition.
func (w *WorkflowState) Terminal() bool {
	return w.Disposition.Terminal()
}

// RecordCause appends a cause line to the state's cause chain.
func (w *WorkflowState) RecordCause(cause string) {
	w.Cause = append(w.Cause, cause)
}
