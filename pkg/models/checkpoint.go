package models

import (
	"encoding/json"
	"time"
)

// Checkpoint is one persisted state snapshot. Rows are keyed by
// (session_id, checkpoint_id); checkpoint ids sort lexicographically so the
// latest checkpoint is the maximum id within a session.
type Checkpoint struct {
	SessionID    string          `json:"session_id"`
	CheckpointID string          `json:"checkpoint_id"`
	NodeName     string          `json:"node_name"`
	StateBlob    json.RawMessage `json:"state_blob"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PutCheckpointRequest contains fields for writing a checkpoint.
type PutCheckpointRequest struct {
	SessionID    string          `json:"session_id"`
	CheckpointID string          `json:"checkpoint_id"`
	NodeName     string          `json:"node_name"`
	StateBlob    json.RawMessage `json:"state_blob"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
}
