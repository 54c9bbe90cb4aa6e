package types

import "time"

// Names of the required external verification services.
const (
	ServiceIdentity  = "identity"
	ServiceWatchlist = "watchlist"
	ServiceFraud     = "fraud"
)

// RequiredServices lists every service that must report (or exhaust retries)
// before a verification aggregate is considered complete.
var RequiredServices = []string{ServiceIdentity, ServiceWatchlist, ServiceFraud}

// ServiceStatus is the settled outcome of one external verification call.
type ServiceStatus string

const (
	StatusClear   ServiceStatus = "clear"
	StatusFlagged ServiceStatus = "flagged"
	StatusError   ServiceStatus = "error"
	StatusTimeout ServiceStatus = "timeout"
)

// ServiceResult records the settled outcome of one verification service for
// one document. Once written it is never revisited for the same document id.
type ServiceResult struct {
	Service   string        `json:"service"`
	Status    ServiceStatus `json:"status"`
	Detail    string        `json:"detail,omitempty"`
	Score     float64       `json:"score,omitempty"` // fraud service only
	Attempts  int           `json:"attempts"`
	CheckedAt time.Time     `json:"checked_at"`
}

// VerificationResult aggregates the per-service outcomes for one document.
// Entries accumulate as calls settle; the aggregate is immutable once Settled.
type VerificationResult struct {
	DocumentID string                   `json:"document_id"`
	Services   map[string]ServiceResult `json:"services"`
}

// NewVerificationResult returns an empty aggregate for a document.
func NewVerificationResult(documentID string) *VerificationResult {
	return &VerificationResult{
		DocumentID: documentID,
		Services:   make(map[string]ServiceResult),
	}
}

// Settled reports whether every required service has a recorded outcome.
func (v *VerificationResult) Settled() bool {
	for _, svc := range RequiredServices {
		if _, ok := v.Services[svc]; !ok {
			return false
		}
	}
	return true
}

// Flagged reports whether any service returned a flagged result.
// A flagged watchlist or fraud result is never silently dropped: the workflow
// coordinator must route the document to needs-review or rejection.
func (v *VerificationResult) Flagged() bool {
	for _, r := range v.Services {
		if r.Status == StatusFlagged {
			return true
		}
	}
	return false
}

// Degraded reports whether any service ended in error or timeout.
func (v *VerificationResult) Degraded() bool {
	for _, r := range v.Services {
		if r.Status == StatusError || r.Status == StatusTimeout {
			return true
		}
	}
	return false
}
