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

// RecommendationService persists terminal run outputs for later retrieval.
type RecommendationService struct {
	client *database.Client
}

// NewRecommendationService creates a new RecommendationService
func NewRecommendationService(client *database.Client) *RecommendationService {
	return &RecommendationService{client: client}
}

// Create stores one recommendation record.
func (s *RecommendationService) Create(httpCtx context.Context, rec models.Recommendation) error {
	if rec.RecommendationID == "" {
		return NewValidationError("recommendation_id", "must not be empty")
	}
	if rec.IncidentID == "" {
		return NewValidationError("incident_id", "must not be empty")
	}

	output, err := json.Marshal(rec.Output)
	if err != nil {
		return fmt.Errorf("failed to encode recommendation output: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = s.client.DB().ExecContext(ctx, `
		INSERT INTO recommendations (recommendation_id, incident_id, session_id, execution_id, output, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (recommendation_id) DO NOTHING`,
		rec.RecommendationID, rec.IncidentID, rec.SessionID, rec.ExecutionID,
		output, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create recommendation: %w", err)
	}
	return nil
}

// GetByIncident returns the most recent recommendation for an incident.
func (s *RecommendationService) GetByIncident(ctx context.Context, incidentID string) (*models.Recommendation, error) {
	row := s.client.DB().QueryRowContext(ctx, `
		SELECT recommendation_id, incident_id, session_id, execution_id, output, created_at
		FROM recommendations
		WHERE incident_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		incidentID,
	)

	var (
		rec    models.Recommendation
		output []byte
	)
	err := row.Scan(&rec.RecommendationID, &rec.IncidentID, &rec.SessionID,
		&rec.ExecutionID, &output, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation: %w", err)
	}
	if err := json.Unmarshal(output, &rec.Output); err != nil {
		return nil, fmt.Errorf("failed to decode recommendation output: %w", err)
	}
	return &rec, nil
}

// DeleteOlderThan removes recommendations created before the cutoff.
func (s *RecommendationService) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := s.client.DB().ExecContext(writeCtx,
		`DELETE FROM recommendations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old recommendations: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
