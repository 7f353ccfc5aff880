package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/incident-ops/quorum/pkg/database"
	"github.com/incident-ops/quorum/pkg/models"
)

// ViolationService persists guardrail violation records.
type ViolationService struct {
	client *database.Client
}

// NewViolationService creates a new ViolationService
func NewViolationService(client *database.Client) *ViolationService {
	return &ViolationService{client: client}
}

// CreateViolation stores one violation record. Writes are idempotent on
// violation_id: the plane may deliver the same violation more than once.
func (s *ViolationService) CreateViolation(httpCtx context.Context, v models.GuardrailViolation) error {
	if v.ViolationID == "" {
		return NewValidationError("violation_id", "must not be empty")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode violation: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = s.client.DB().ExecContext(ctx, `
		INSERT INTO guardrail_violations (violation_id, timestamp, agent_id, incident_id, violation_type, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (violation_id) DO NOTHING`,
		v.ViolationID, time.Now().UTC(), v.AgentID, v.IncidentID, v.Violation.Type, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to create violation: %w", err)
	}
	return nil
}

// ListByIncident returns stored violations for one incident, oldest first.
func (s *ViolationService) ListByIncident(ctx context.Context, incidentID string) ([]models.GuardrailViolation, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT payload FROM guardrail_violations
		WHERE incident_id = $1
		ORDER BY timestamp ASC`,
		incidentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	defer rows.Close()

	var violations []models.GuardrailViolation
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		var v models.GuardrailViolation
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("failed to decode violation: %w", err)
		}
		violations = append(violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	return violations, nil
}

// DeleteOlderThan removes violations recorded before the cutoff.
func (s *ViolationService) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := s.client.DB().ExecContext(writeCtx,
		`DELETE FROM guardrail_violations WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old violations: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
