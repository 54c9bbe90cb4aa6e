// Package verify orchestrates the external compliance checks: identity
// verification, watchlist screening, and fraud scoring.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mateo/contract-intake/internal/types"
)

// DefaultTimeout is the default per-call HTTP timeout.
const DefaultTimeout = 10 * time.Second

// Error represents a verification service call failure. Transient errors
// (network faults, 5xx, 429) are eligible for retry; others are not.
type Error struct {
	Service   string
	URL       string
	Message   string
	Cause     error
	Transient bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s verification error for %s: %s: %v", e.Service, e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s verification error for %s: %s", e.Service, e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Outcome is a single successful service response before aggregation.
type Outcome struct {
	Status types.ServiceStatus
	Detail string
	Score  float64
}

// Checker is one external verification collaborator.
type Checker interface {
	Service() string
	Check(ctx context.Context, fp types.IdentityFingerprint) (*Outcome, error)
}

// HTTPChecker calls a verification service over HTTP. The service consumes
// an identity fingerprint and answers {status, detail} or, for fraud
// scoring, a numeric score compared against ScoreThreshold.
type HTTPChecker struct {
	ServiceName    string
	Endpoint       string
	APIKey         string
	ScoreThreshold float64 // >0 enables score-based flagging (fraud service)
	Client         *http.Client
}

// serviceResponse is the wire shape returned by all three collaborators.
type serviceResponse struct {
	Status string  `json:"status"`
	Detail string  `json:"detail,omitempty"`
	Score  float64 `json:"score,omitempty"`
}

// Service implements Checker.
func (c *HTTPChecker) Service() string {
	return c.ServiceName
}

// Check implements Checker.
func (c *HTTPChecker) Check(ctx context.Context, fp types.IdentityFingerprint) (*Outcome, error) {
	body, err := json.Marshal(fp)
	if err != nil {
		return nil, &Error{Service: c.ServiceName, URL: c.Endpoint, Message: "failed to encode fingerprint", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Service: c.ServiceName, URL: c.Endpoint, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Service: c.ServiceName, URL: c.Endpoint, Message: "HTTP request failed", Cause: err, Transient: true}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, &Error{
			Service:   c.ServiceName,
			URL:       c.Endpoint,
			Message:   fmt.Sprintf("service returned status %d", resp.StatusCode),
			Transient: true,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Service: c.ServiceName,
			URL:     c.Endpoint,
			Message: fmt.Sprintf("service returned status %d", resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Service: c.ServiceName, URL: c.Endpoint, Message: "failed to read response body", Cause: err, Transient: true}
	}

	var sr serviceResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, &Error{Service: c.ServiceName, URL: c.Endpoint, Message: "malformed response body", Cause: err}
	}

	out := &Outcome{Detail: sr.Detail, Score: sr.Score}
	switch types.ServiceStatus(sr.Status) {
	case types.StatusClear:
		out.Status = types.StatusClear
	case types.StatusFlagged:
		out.Status = types.StatusFlagged
	default:
		if c.ScoreThreshold > 0 && sr.Status == "" {
			// Fraud scoring answers with a bare score.
			if sr.Score >= c.ScoreThreshold {
				out.Status = types.StatusFlagged
				out.Detail = fmt.Sprintf("fraud score %.2f at or above threshold %.2f", sr.Score, c.ScoreThreshold)
			} else {
				out.Status = types.StatusClear
			}
			return out, nil
		}
		return nil, &Error{
			Service: c.ServiceName,
			URL:     c.Endpoint,
			Message: fmt.Sprintf("unexpected status %q in response", sr.Status),
		}
	}
	return out, nil
}
