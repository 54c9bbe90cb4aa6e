package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateo/contract-intake/internal/types"
)

func TestMemoryStore_GetMissingReturnsNil(t *testing.T) {
	store := NewMemoryStore()
	state, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestMemoryStore_CreateClaimsID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := &types.WorkflowState{DocumentID: "doc-1", Stage: types.StageReceived}
	require.NoError(t, store.Create(ctx, first))

	err := store.Create(ctx, &types.WorkflowState{DocumentID: "doc-1", Stage: types.StageExtracted})
	assert.ErrorIs(t, err, ErrExists)

	// The losing claim leaves the winner's state untouched.
	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, types.StageReceived, got.Stage)
}

func TestMemoryStore_PutGetIsolation(t *testing.T) {
	store := NewMemoryStore()
	state := &types.WorkflowState{
		DocumentID: "doc-1",
		Stage:      types.StageReceived,
		Cause:      []string{"first"},
	}
	require.NoError(t, store.Put(context.Background(), state))

	// Mutating the original must not affect the stored copy.
	state.Stage = types.StageSubmitted
	state.Cause = append(state.Cause, "second")

	got, err := store.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, types.StageReceived, got.Stage)
	assert.Equal(t, []string{"first"}, got.Cause)

	// Mutating a returned copy must not affect the store either.
	got.Stage = types.StageExtracted
	again, err := store.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, types.StageReceived, again.Stage)
}

func TestMemoryStore_ListFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &types.WorkflowState{DocumentID: "a", Stage: types.StageSubmitted, Disposition: types.DispositionApproved, Source: "email"}))
	require.NoError(t, store.Put(ctx, &types.WorkflowState{DocumentID: "b", Stage: types.StageReceived, Disposition: types.DispositionFailed, Source: "email"}))
	require.NoError(t, store.Put(ctx, &types.WorkflowState{DocumentID: "c", Stage: types.StageSubmitted, Disposition: types.DispositionApproved, Source: "scanner"}))

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Ordered by document id.
	assert.Equal(t, "a", all[0].DocumentID)
	assert.Equal(t, "c", all[2].DocumentID)

	approved, err := store.List(ctx, Filter{Disposition: types.DispositionApproved})
	require.NoError(t, err)
	assert.Len(t, approved, 2)

	emailApproved, err := store.List(ctx, Filter{Disposition: types.DispositionApproved, Source: "email"})
	require.NoError(t, err)
	require.Len(t, emailApproved, 1)
	assert.Equal(t, "a", emailApproved[0].DocumentID)

	received, err := store.List(ctx, Filter{Stage: types.StageReceived})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "b", received[0].DocumentID)
}

func TestMemoryStore_Artifacts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	missing, err := store.GetArtifact(ctx, "doc-1", ArtifactRaw)
	require.NoError(t, err)
	assert.Nil(t, missing)

	payload := []byte("raw document bytes")
	require.NoError(t, store.SaveArtifact(ctx, "doc-1", ArtifactRaw, payload))

	// Later mutation of the caller's slice must not leak into the store.
	payload[0] = 'X'

	got, err := store.GetArtifact(ctx, "doc-1", ArtifactRaw)
	require.NoError(t, err)
	assert.Equal(t, []byte("raw document bytes"), got)

	// Same kind is replaced, other kinds coexist.
	require.NoError(t, store.SaveArtifact(ctx, "doc-1", ArtifactRaw, []byte("v2")))
	require.NoError(t, store.SaveArtifact(ctx, "doc-1", ArtifactStructured, []byte("{}")))

	got, err = store.GetArtifact(ctx, "doc-1", ArtifactRaw)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	structured, err := store.GetArtifact(ctx, "doc-1", ArtifactStructured)
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), structured)
}
