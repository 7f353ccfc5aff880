package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/incident-ops/quorum/pkg/database"
	"github.com/incident-ops/quorum/pkg/models"
)

// CheckpointService persists graph state snapshots. Writes are idempotent on
// (session_id, checkpoint_id): re-writing an existing checkpoint is a no-op,
// never an overwrite, so a replayed node cannot rewrite history.
type CheckpointService struct {
	client *database.Client
}

// NewCheckpointService creates a new CheckpointService
func NewCheckpointService(client *database.Client) *CheckpointService {
	return &CheckpointService{client: client}
}

// Put writes one checkpoint. A duplicate (session_id, checkpoint_id) is
// silently ignored.
func (s *CheckpointService) Put(httpCtx context.Context, req models.PutCheckpointRequest) error {
	if req.SessionID == "" {
		return NewValidationError("session_id", "must not be empty")
	}
	if req.CheckpointID == "" {
		return NewValidationError("checkpoint_id", "must not be empty")
	}
	if len(req.StateBlob) == 0 {
		return NewValidationError("state_blob", "must not be empty")
	}

	metadata, err := marshalMetadata(req.Metadata)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = s.client.DB().ExecContext(ctx, `
		INSERT INTO checkpoints (session_id, checkpoint_id, node_name, state_blob, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, checkpoint_id) DO NOTHING`,
		req.SessionID, req.CheckpointID, req.NodeName,
		[]byte(req.StateBlob), metadata, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to put checkpoint: %w", err)
	}
	return nil
}

// Get retrieves one checkpoint by id.
func (s *CheckpointService) Get(ctx context.Context, sessionID, checkpointID string) (*models.Checkpoint, error) {
	row := s.client.DB().QueryRowContext(ctx, `
		SELECT session_id, checkpoint_id, node_name, state_blob, metadata, created_at
		FROM checkpoints
		WHERE session_id = $1 AND checkpoint_id = $2`,
		sessionID, checkpointID,
	)
	return scanCheckpoint(row)
}

// Latest returns the most recent checkpoint for a session, or ErrNotFound
// when the session has none. Checkpoint ids sort lexicographically, so the
// latest is the maximum id.
func (s *CheckpointService) Latest(ctx context.Context, sessionID string) (*models.Checkpoint, error) {
	row := s.client.DB().QueryRowContext(ctx, `
		SELECT session_id, checkpoint_id, node_name, state_blob, metadata, created_at
		FROM checkpoints
		WHERE session_id = $1
		ORDER BY checkpoint_id DESC
		LIMIT 1`,
		sessionID,
	)
	return scanCheckpoint(row)
}

// List returns all checkpoints for a session, most recent first.
func (s *CheckpointService) List(ctx context.Context, sessionID string) ([]*models.Checkpoint, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT session_id, checkpoint_id, node_name, state_blob, metadata, created_at
		FROM checkpoints
		WHERE session_id = $1
		ORDER BY checkpoint_id DESC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []*models.Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	return checkpoints, nil
}

// DeleteOlderThan removes checkpoints created before the cutoff.
func (s *CheckpointService) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := s.client.DB().ExecContext(writeCtx,
		`DELETE FROM checkpoints WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old checkpoints: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row rowScanner) (*models.Checkpoint, error) {
	var (
		cp       models.Checkpoint
		blob     []byte
		metadata []byte
	)
	err := row.Scan(&cp.SessionID, &cp.CheckpointID, &cp.NodeName, &blob, &metadata, &cp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
	}
	cp.StateBlob = json.RawMessage(blob)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &cp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode checkpoint metadata: %w", err)
		}
	}
	return &cp, nil
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return data, nil
}
