package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/incident-ops/quorum/pkg/database"
	"github.com/incident-ops/quorum/pkg/models"
)

// TraceService persists LLM invocation traces. Rows carry an expiry so the
// cleanup loop can enforce the trace retention window.
type TraceService struct {
	client *database.Client
	ttl    time.Duration
}

// NewTraceService creates a new TraceService. Traces expire after ttl.
func NewTraceService(client *database.Client, ttl time.Duration) *TraceService {
	return &TraceService{client: client, ttl: ttl}
}

// CreateTrace stores one trace event. A duplicate trace_id is ignored.
func (s *TraceService) CreateTrace(httpCtx context.Context, trace models.LLMTrace) error {
	if trace.TraceID == "" {
		return NewValidationError("trace_id", "must not be empty")
	}

	payload, err := json.Marshal(trace)
	if err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	_, err = s.client.DB().ExecContext(ctx, `
		INSERT INTO llm_traces (trace_id, timestamp, agent_id, incident_id, execution_id, payload, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (trace_id) DO NOTHING`,
		trace.TraceID, now, trace.AgentID, trace.IncidentID, trace.ExecutionID,
		payload, now.Add(s.ttl),
	)
	if err != nil {
		return fmt.Errorf("failed to create trace: %w", err)
	}
	return nil
}

// ListByIncident returns stored traces for one incident, oldest first.
func (s *TraceService) ListByIncident(ctx context.Context, incidentID string) ([]models.LLMTrace, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT payload FROM llm_traces
		WHERE incident_id = $1
		ORDER BY timestamp ASC`,
		incidentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list traces: %w", err)
	}
	defer rows.Close()

	var traces []models.LLMTrace
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan trace: %w", err)
		}
		var trace models.LLMTrace
		if err := json.Unmarshal(payload, &trace); err != nil {
			return nil, fmt.Errorf("failed to decode trace: %w", err)
		}
		traces = append(traces, trace)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list traces: %w", err)
	}
	return traces, nil
}

// DeleteExpired removes traces past their retention window.
func (s *TraceService) DeleteExpired(ctx context.Context) (int, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := s.client.DB().ExecContext(writeCtx,
		`DELETE FROM llm_traces WHERE expires_at < $1`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired traces: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
