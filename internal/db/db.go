// Package db provides PostgreSQL persistence for workflow state and
// document artifacts.
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mateo/contract-intake/internal/types"
	"github.com/mateo/contract-intake/internal/workflow"
)

// DB wraps a PostgreSQL connection pool and implements workflow.Store.
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the tables used by the pipeline if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS workflow_states (
			document_id TEXT PRIMARY KEY,
			source      TEXT NOT NULL DEFAULT '',
			stage       TEXT NOT NULL,
			disposition TEXT NOT NULL DEFAULT '',
			crm_ack_id  TEXT NOT NULL DEFAULT '',
			state       JSONB NOT NULL,
			received_at TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS workflow_states_stage_idx ON workflow_states (stage)`,
		`CREATE INDEX IF NOT EXISTS workflow_states_disposition_idx ON workflow_states (disposition)`,
		`CREATE TABLE IF NOT EXISTS document_artifacts (
			document_id TEXT NOT NULL,
			kind        TEXT NOT NULL,
			payload     BYTEA NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (document_id, kind)
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Get retrieves the workflow state for a document, or (nil, nil) when none exists.
func (db *DB) Get(ctx context.Context, documentID string) (*types.WorkflowState, error) {
	var raw []byte
	err := db.pool.QueryRow(ctx,
		`SELECT state FROM workflow_states WHERE document_id = $1`,
		documentID,
	).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get workflow state: %w", err)
	}

	var state types.WorkflowState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode workflow state: %w", err)
	}
	return &state, nil
}

// Create inserts the initial workflow state for a document, failing with
// workflow.ErrExists when a row already holds the id. The insert is the
// atomic claim that concurrent intakes race on.
func (db *DB) Create(ctx context.Context, state *types.WorkflowState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode workflow state: %w", err)
	}

	tag, err := db.pool.Exec(ctx,
		`INSERT INTO workflow_states (document_id, source, stage, disposition, crm_ack_id, state, received_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (document_id) DO NOTHING`,
		state.DocumentID, state.Source, state.Stage, state.Disposition, state.CRMAckID,
		raw, state.ReceivedAt, state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create workflow state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return workflow.ErrExists
	}
	return nil
}

// Put upserts the workflow state for a document. The full state is stored as
// JSONB; stage, disposition, and ack id are mirrored into columns for listing.
func (db *DB) Put(ctx context.Context, state *types.WorkflowState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode workflow state: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO workflow_states (document_id, source, stage, disposition, crm_ack_id, state, received_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (document_id) DO UPDATE
		 SET source = $2, stage = $3, disposition = $4, crm_ack_id = $5, state = $6, updated_at = $8`,
		state.DocumentID, state.Source, state.Stage, state.Disposition, state.CRMAckID,
		raw, state.ReceivedAt, state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow state: %w", err)
	}
	return nil
}

// List retrieves workflow states matching the filter, newest first.
func (db *DB) List(ctx context.Context, filter workflow.Filter) ([]*types.WorkflowState, error) {
	query := `SELECT state FROM workflow_states WHERE 1=1`
	args := []any{}
	argNum := 1

	if filter.Stage != "" {
		query += fmt.Sprintf(" AND stage = $%d", argNum)
		args = append(args, string(filter.Stage))
		argNum++
	}
	if filter.Disposition != "" {
		query += fmt.Sprintf(" AND disposition = $%d", argNum)
		args = append(args, string(filter.Disposition))
		argNum++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(" AND source = $%d", argNum)
		args = append(args, filter.Source)
	}

	query += " ORDER BY updated_at DESC"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow states: %w", err)
	}
	defer rows.Close()

	var states []*types.WorkflowState
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan workflow state: %w", err)
		}
		var state types.WorkflowState
		if err := json.Unmarshal(raw, &state); err != nil {
			return nil, fmt.Errorf("failed to decode workflow state: %w", err)
		}
		states = append(states, &state)
	}
	return states, nil
}

// SaveArtifact stores one artifact for a document, replacing any earlier
// artifact of the same kind.
func (db *DB) SaveArtifact(ctx context.Context, documentID, kind string, payload []byte) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO document_artifacts (document_id, kind, payload)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (document_id, kind) DO UPDATE SET payload = $3, created_at = NOW()`,
		documentID, kind, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", kind, err)
	}
	return nil
}

// GetArtifact retrieves an artifact by document id and kind, or (nil, nil)
// when none exists.
func (db *DB) GetArtifact(ctx context.Context, documentID, kind string) ([]byte, error) {
	var payload []byte
	err := db.pool.QueryRow(ctx,
		`SELECT payload FROM document_artifacts WHERE document_id = $1 AND kind = $2`,
		documentID, kind,
	).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", kind, err)
	}
	return payload, nil
}
