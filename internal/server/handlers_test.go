package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateo/contract-intake/internal/convert"
	"github.com/mateo/contract-intake/internal/extraction"
	"github.com/mateo/contract-intake/internal/rules"
	"github.com/mateo/contract-intake/internal/schedule"
	"github.com/mateo/contract-intake/internal/types"
	"github.com/mateo/contract-intake/internal/workflow"
)

const testContract = `# Customer Information
| Account Name | Acme Corporation |
| Contract ID | CTR-2031 |
| Signatory Name | Jordan Blake |

# Fees and Payment Terms
| Start Date | 2025-01-01 |
| Term (Months) | 12 |
| Currency | USD |
| Total Contract Value | $12,000.00 |
`

type clearVerifier struct{}

func (clearVerifier) Verify(_ context.Context, documentID string, _ types.IdentityFingerprint, _ *types.VerificationResult) *types.VerificationResult {
	agg := types.NewVerificationResult(documentID)
	for _, svc := range types.RequiredServices {
		agg.Services[svc] = types.ServiceResult{Service: svc, Status: types.StatusClear, Attempts: 1}
	}
	return agg
}

type ackSubmitter struct{}

func (ackSubmitter) Submit(_ context.Context, _ *types.WorkflowState) (string, error) {
	return "ACK-1", nil
}

func newTestServer() (*Server, workflow.Store) {
	store := workflow.NewMemoryStore()
	coordinator := workflow.NewCoordinator(
		store,
		convert.NewMarkdownConverter(),
		extraction.NewExtractor(0),
		rules.NewEngine(),
		clearVerifier{},
		schedule.Calculator{},
		ackSubmitter{},
		time.Second,
	)
	return New(Config{ListenAddr: ":0"}, coordinator, store), store
}

func postJSON(t *testing.T, srv *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	return w
}

// waitTerminal polls the store until the document reaches a terminal
// disposition; intake runs the pipeline in the background.
func waitTerminal(t *testing.T, store workflow.Store, id string) *types.WorkflowState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		if state != nil && state.Terminal() {
			return state
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("document %s never reached a terminal disposition", id)
	return nil
}

func TestHandleIntake_AcceptsAndProcesses(t *testing.T) {
	srv, store := newTestServer()

	w := postJSON(t, srv, "/documents", types.IntakeRequest{
		DocumentID:    "doc-1",
		Source:        "email",
		ContentBase64: base64.StdEncoding.EncodeToString([]byte(testContract)),
	})

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp IntakeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "doc-1", resp.DocumentID)
	assert.Equal(t, "accepted", resp.Status)

	state := waitTerminal(t, store, "doc-1")
	assert.Equal(t, types.DispositionApproved, state.Disposition)
	assert.Equal(t, "ACK-1", state.CRMAckID)
}

func TestHandleIntake_InvalidBody(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleIntake_MissingContentAndLocation(t *testing.T) {
	srv, _ := newTestServer()

	w := postJSON(t, srv, "/documents", types.IntakeRequest{DocumentID: "doc-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleIntake_BadBase64(t *testing.T) {
	srv, _ := newTestServer()

	w := postJSON(t, srv, "/documents", types.IntakeRequest{
		DocumentID:    "doc-1",
		ContentBase64: "!!! not base64 !!!",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleIntake_ResubmissionDoesNotRestart(t *testing.T) {
	srv, store := newTestServer()

	w := postJSON(t, srv, "/documents", types.IntakeRequest{
		DocumentID:    "doc-1",
		ContentBase64: base64.StdEncoding.EncodeToString([]byte(testContract)),
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	first := waitTerminal(t, store, "doc-1")

	w = postJSON(t, srv, "/documents", types.IntakeRequest{
		DocumentID:    "doc-1",
		ContentBase64: base64.StdEncoding.EncodeToString([]byte(testContract)),
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp IntakeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "already_processed", resp.Status)

	state, err := store.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, first.UpdatedAt, state.UpdatedAt)
}

func TestHandleGetDocument(t *testing.T) {
	srv, store := newTestServer()
	require.NoError(t, store.Put(context.Background(), &types.WorkflowState{
		DocumentID:  "doc-1",
		Stage:       types.StageSubmitted,
		Disposition: types.DispositionApproved,
	}))

	w := get(srv, "/documents/doc-1")
	require.Equal(t, http.StatusOK, w.Code)

	var state types.WorkflowState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, types.DispositionApproved, state.Disposition)
}

func TestHandleGetDocument_NotFound(t *testing.T) {
	srv, _ := newTestServer()
	w := get(srv, "/documents/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleListDocuments_FilterByDisposition(t *testing.T) {
	srv, store := newTestServer()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &types.WorkflowState{DocumentID: "a", Stage: types.StageSubmitted, Disposition: types.DispositionApproved}))
	require.NoError(t, store.Put(ctx, &types.WorkflowState{DocumentID: "b", Stage: types.StageReceived, Disposition: types.DispositionFailed}))

	w := get(srv, "/documents?disposition=failed")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Documents []*types.WorkflowState `json:"documents"`
		Count     int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "b", resp.Documents[0].DocumentID)
}

func TestHandleListDocuments_Empty(t *testing.T) {
	srv, _ := newTestServer()
	w := get(srv, "/documents")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestHandleReplay_NotFound(t *testing.T) {
	srv, _ := newTestServer()
	w := postJSON(t, srv, "/documents/unknown/replay", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleReplay_TerminalNonFailedConflicts(t *testing.T) {
	srv, store := newTestServer()
	require.NoError(t, store.Put(context.Background(), &types.WorkflowState{
		DocumentID:  "doc-1",
		Stage:       types.StageValidated,
		Disposition: types.DispositionNeedsReview,
	}))

	w := postJSON(t, srv, "/documents/doc-1/replay", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleReplay_FailedDocument(t *testing.T) {
	srv, store := newTestServer()

	// Fail the document with corrupt bytes, then replay with the same bytes.
	w := postJSON(t, srv, "/documents", types.IntakeRequest{
		DocumentID:    "doc-1",
		ContentBase64: base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe}),
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	state := waitTerminal(t, store, "doc-1")
	require.Equal(t, types.DispositionFailed, state.Disposition)

	w = postJSON(t, srv, "/documents/doc-1/replay", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var replayed types.WorkflowState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &replayed))
	assert.Equal(t, 2, replayed.Attempts)
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer()
	w := get(srv, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
