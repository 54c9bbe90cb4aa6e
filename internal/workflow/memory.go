package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/mateo/contract-intake/internal/types"
)

// MemoryStore is an in-memory Store used by tests and the single-shot CLI
// path. States are cloned on the way in and out so callers never share
// mutable references with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	states    map[string]*types.WorkflowState
	artifacts map[string]map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:    make(map[string]*types.WorkflowState),
		artifacts: make(map[string]map[string][]byte),
	}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, documentID string) (*types.WorkflowState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[documentID]
	if !ok {
		return nil, nil
	}
	return cloneState(state)
}

// Create implements Store. The check-and-insert happens under the write lock
// so only one of any concurrent claims for an id succeeds.
func (m *MemoryStore) Create(_ context.Context, state *types.WorkflowState) error {
	clone, err := cloneState(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[state.DocumentID]; ok {
		return ErrExists
	}
	m.states[state.DocumentID] = clone
	return nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, state *types.WorkflowState) error {
	clone, err := cloneState(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.DocumentID] = clone
	return nil
}

// List implements Store. Results are ordered by document id for stable output.
func (m *MemoryStore) List(_ context.Context, filter Filter) ([]*types.WorkflowState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.WorkflowState
	for _, state := range m.states {
		if !filter.Matches(state) {
			continue
		}
		clone, err := cloneState(state)
		if err != nil {
			return nil, err
		}
		out = append(out, clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out, nil
}

// SaveArtifact implements Store.
func (m *MemoryStore) SaveArtifact(_ context.Context, documentID, kind string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.artifacts[documentID] == nil {
		m.artifacts[documentID] = make(map[string][]byte)
	}
	m.artifacts[documentID][kind] = append([]byte(nil), payload...)
	return nil
}

// GetArtifact implements Store. Missing artifacts return (nil, nil).
func (m *MemoryStore) GetArtifact(_ context.Context, documentID, kind string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.artifacts[documentID][kind]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), payload...), nil
}

// cloneState deep-copies a state through its JSON form.
func cloneState(state *types.WorkflowState) (*types.WorkflowState, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to clone workflow state: %w", err)
	}
	var clone types.WorkflowState
	if err := json.Unmarshal(raw, &clone); err != nil {
		return nil, fmt.Errorf("failed to clone workflow state: %w", err)
	}
	return &clone, nil
}
