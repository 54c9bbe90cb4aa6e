package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/mateo/contract-intake/internal/types"
	"github.com/mateo/contract-intake/internal/workflow"
)

// IntakeResponse represents the response for POST /documents
type IntakeResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

// handleIntake accepts a document and starts the pipeline in the background.
// Re-submitting a known document id does not start a second run.
func (s *Server) handleIntake(w http.ResponseWriter, r *http.Request) {
	var req types.IntakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	var content []byte
	if req.ContentBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ContentBase64)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid content_base64: "+err.Error())
			return
		}
		content = decoded
	}

	existing, err := s.store.Get(r.Context(), req.DocumentID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if existing != nil {
		status := "already_processed"
		if !existing.Terminal() {
			status = "processing"
		}
		s.jsonResponse(w, http.StatusOK, IntakeResponse{
			DocumentID: req.DocumentID,
			Status:     status,
		})
		return
	}

	doc := types.RawDocument{
		ID:         req.DocumentID,
		Source:     req.Source,
		Location:   req.Location,
		FileName:   req.FileName,
		ReceivedAt: time.Now().UTC(),
		Bytes:      content,
	}

	// Run the pipeline in the background; the caller polls GET /documents/{id}.
	go func() {
		ctx := context.Background()
		if _, err := s.coordinator.Process(ctx, doc); err != nil {
			log.Printf("Pipeline run for %s failed: %v", doc.ID, err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, IntakeResponse{
		DocumentID: req.DocumentID,
		Status:     "accepted",
	})
}

// handleGetDocument returns the workflow state for a document
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.errorResponse(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	state, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if state == nil {
		s.errorResponse(w, http.StatusNotFound, "Document not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, state)
}

// handleListDocuments lists workflow states, optionally filtered by stage,
// disposition, or source query parameters.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	filter := workflow.Filter{
		Stage:       types.Stage(r.URL.Query().Get("stage")),
		Disposition: types.Disposition(r.URL.Query().Get("disposition")),
		Source:      r.URL.Query().Get("source"),
	}

	states, err := s.store.List(r.Context(), filter)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if states == nil {
		states = []*types.WorkflowState{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"documents": states,
		"count":     len(states),
	})
}

// handleReplay reprocesses a failed document from the start
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.errorResponse(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	state, err := s.coordinator.Replay(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrNotFound):
			s.errorResponse(w, http.StatusNotFound, "Document not found")
		case errors.Is(err, workflow.ErrAlreadyProcessing):
			s.errorResponse(w, http.StatusConflict, "Document is still being processed")
		case errors.Is(err, workflow.ErrNotReplayable):
			s.errorResponse(w, http.StatusConflict, err.Error())
		default:
			s.errorResponse(w, http.StatusInternalServerError, "Replay failed: "+err.Error())
		}
		return
	}

	s.jsonResponse(w, http.StatusOK, state)
}

// handleHealth is a basic health check
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
