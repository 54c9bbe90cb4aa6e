// Package crm submits finished workflow records to the CRM collaborator.
package crm

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mateo/contract-intake/internal/types"
)

//go:embed schema.json
var submissionSchema []byte

// DefaultTimeout is the default CRM request timeout.
const DefaultTimeout = 15 * time.Second

// ErrorKind classifies CRM submission failures.
type ErrorKind string

const (
	KindDuplicate         ErrorKind = "Duplicate"
	KindRemoteUnavailable ErrorKind = "RemoteUnavailable"
	KindSchemaMismatch    ErrorKind = "SchemaMismatch"
)

// Error represents a CRM submission failure. A Duplicate error carries the
// acknowledgment id of the earlier submission when the remote reports it.
type Error struct {
	Kind    ErrorKind
	Message string
	AckID   string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("submission error (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("submission error (%s): %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Submitter pushes one finished workflow record to the CRM and returns its
// acknowledgment id. Implementations must be safe for concurrent use.
type Submitter interface {
	Submit(ctx context.Context, state *types.WorkflowState) (string, error)
}

// Client is the HTTP CRM collaborator. Outbound payloads are validated
// against the embedded submission schema before the wire call, so local
// shape problems surface as SchemaMismatch without touching the remote.
type Client struct {
	Endpoint string
	APIKey   string
	HTTP     *http.Client
}

// submission is the wire payload sent to the CRM.
type submission struct {
	DocumentID  string                  `json:"document_id"`
	ContractRef string                  `json:"contract_ref"`
	AccountName string                  `json:"account_name"`
	Disposition string                  `json:"disposition"`
	Currency    string                  `json:"currency"`
	TotalCents  int64                   `json:"total_cents"`
	Contract    *types.ContractRecord   `json:"contract,omitempty"`
	Schedule    *types.DiscountSchedule `json:"schedule,omitempty"`
}

// ackResponse is the CRM acknowledgment shape.
type ackResponse struct {
	AckID string `json:"ack_id"`
}

// Submit implements Submitter.
func (c *Client) Submit(ctx context.Context, state *types.WorkflowState) (string, error) {
	payload, err := buildPayload(state)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Kind: KindRemoteUnavailable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &Error{Kind: KindRemoteUnavailable, Message: "CRM request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindRemoteUnavailable, Message: "failed to read CRM response", Cause: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var ack ackResponse
		if err := json.Unmarshal(body, &ack); err != nil || ack.AckID == "" {
			return "", &Error{Kind: KindRemoteUnavailable, Message: "CRM acknowledgment is malformed", Cause: err}
		}
		return ack.AckID, nil
	case resp.StatusCode == http.StatusConflict:
		var ack ackResponse
		_ = json.Unmarshal(body, &ack)
		return "", &Error{
			Kind:    KindDuplicate,
			Message: fmt.Sprintf("document %s was already submitted", state.DocumentID),
			AckID:   ack.AckID,
		}
	case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusBadRequest:
		return "", &Error{
			Kind:    KindSchemaMismatch,
			Message: fmt.Sprintf("CRM rejected payload: %s", strings.TrimSpace(string(body))),
		}
	default:
		return "", &Error{
			Kind:    KindRemoteUnavailable,
			Message: fmt.Sprintf("CRM returned status %d", resp.StatusCode),
		}
	}
}

// buildPayload marshals and schema-checks the outbound submission.
func buildPayload(state *types.WorkflowState) ([]byte, error) {
	sub := submission{
		DocumentID:  state.DocumentID,
		Disposition: string(state.Disposition),
		Contract:    state.Contract,
		Schedule:    state.Schedule,
	}
	if state.Contract != nil {
		sub.ContractRef = state.Contract.ContractRef
		sub.AccountName = state.Contract.AccountName
		sub.Currency = state.Contract.Currency
		sub.TotalCents = state.Contract.TotalCents
	}

	payload, err := json.Marshal(sub)
	if err != nil {
		return nil, &Error{Kind: KindSchemaMismatch, Message: "failed to encode submission", Cause: err}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(submissionSchema),
		gojsonschema.NewBytesLoader(payload),
	)
	if err != nil {
		return nil, &Error{Kind: KindSchemaMismatch, Message: "schema validation failed to run", Cause: err}
	}
	if !result.Valid() {
		var reasons []string
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return nil, &Error{
			Kind:    KindSchemaMismatch,
			Message: "submission does not match CRM schema: " + strings.Join(reasons, "; "),
		}
	}
	return payload, nil
}
