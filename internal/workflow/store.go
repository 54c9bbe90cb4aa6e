// Package workflow coordinates the intake pipeline: conversion, extraction,
// validation, verification, scheduling, and CRM submission, with durable
// per-document state keyed by document id.
package workflow

import (
	"context"
	"errors"

	"github.com/mateo/contract-intake/internal/types"
)

// Artifact kinds persisted alongside workflow state.
const (
	ArtifactRaw        = "raw"
	ArtifactStructured = "structured_text"
)

var (
	// ErrNotFound is returned when no workflow state exists for a document id.
	ErrNotFound = errors.New("document not found")
	// ErrExists is returned by Create when the document id is already claimed.
	ErrExists = errors.New("workflow state already exists")
	// ErrAlreadyProcessing is returned when a document is re-submitted while
	// its workflow has not reached a terminal disposition.
	ErrAlreadyProcessing = errors.New("document is already being processed")
	// ErrNotReplayable is returned when replay is requested for a document
	// whose disposition does not allow reprocessing.
	ErrNotReplayable = errors.New("document disposition does not allow replay")
)

// Filter narrows a List call. Zero-value fields match everything.
type Filter struct {
	Stage       types.Stage
	Disposition types.Disposition
	Source      string
}

// Matches reports whether a state satisfies the filter.
func (f Filter) Matches(s *types.WorkflowState) bool {
	if f.Stage != "" && s.Stage != f.Stage {
		return false
	}
	if f.Disposition != "" && s.Disposition != f.Disposition {
		return false
	}
	if f.Source != "" && s.Source != f.Source {
		return false
	}
	return true
}

// Store persists workflow state and document artifacts. Get returns
// (nil, nil) when no state exists for the id. Create must insert atomically,
// returning ErrExists when any state is already present for the id, so that
// concurrent intakes of the same document race on a single claim.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, documentID string) (*types.WorkflowState, error)
	Create(ctx context.Context, state *types.WorkflowState) error
	Put(ctx context.Context, state *types.WorkflowState) error
	List(ctx context.Context, filter Filter) ([]*types.WorkflowState, error)
	SaveArtifact(ctx context.Context, documentID, kind string, payload []byte) error
	GetArtifact(ctx context.Context, documentID, kind string) ([]byte, error)
}
