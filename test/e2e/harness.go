// Package e2e wires the full orchestration stack against a scripted agent
// transport: real invoker, real driver, real HTTP server, in-memory stores.
package e2e

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/incident-ops/quorum/pkg/agent"
	"github.com/incident-ops/quorum/pkg/api"
	"github.com/incident-ops/quorum/pkg/config"
	"github.com/incident-ops/quorum/pkg/graph"
	"github.com/incident-ops/quorum/pkg/models"
	"github.com/incident-ops/quorum/pkg/observability"
	"github.com/incident-ops/quorum/pkg/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// step is one scripted invocation outcome for an agent.
type step struct {
	chunks []agent.Chunk
	err    error
}

// mockAgentTransport serves scripted responses per agent id, one step per
// attempt. Agents without a script answer with a default SUCCESS hypothesis.
type mockAgentTransport struct {
	mu      sync.Mutex
	scripts map[string][]step
	calls   map[string]int
}

func newMockTransport() *mockAgentTransport {
	return &mockAgentTransport{
		scripts: map[string][]step{},
		calls:   map[string]int{},
	}
}

func (m *mockAgentTransport) script(agentID string, steps ...step) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[agentID] = append(m.scripts[agentID], steps...)
}

func (m *mockAgentTransport) callCount(agentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[agentID]
}

func (m *mockAgentTransport) Invoke(_ context.Context, input *agent.InvokeInput) (<-chan agent.Chunk, error) {
	m.mu.Lock()
	m.calls[input.AgentID]++
	var s step
	if queued := m.scripts[input.AgentID]; len(queued) > 0 {
		s = queued[0]
		if len(queued) > 1 {
			m.scripts[input.AgentID] = queued[1:]
		}
	} else {
		s = successStep(0.8, "roll back deploy 4711")
	}
	m.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan agent.Chunk, len(s.chunks))
	for _, c := range s.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

// successStep builds a valid streamed agent response.
func successStep(confidence float64, action string) step {
	body, _ := json.Marshal(map[string]any{
		"confidence": confidence,
		"status":     "SUCCESS",
		"reasoning":  "correlated evidence points at the last deploy",
		"disclaimer": models.Disclaimer,
		"findings": map[string]any{
			"recommendations": []any{
				map[string]any{"type": "ROLLBACK", "description": action},
			},
		},
		"citations": []any{map[string]any{"source": "cloudwatch", "id": "m-1"}},
	})
	// Split the body so the invoker has to reassemble chunks.
	half := len(body) / 2
	return step{chunks: []agent.Chunk{
		&agent.TextChunk{Content: string(body[:half])},
		&agent.TextChunk{Content: string(body[half:])},
		&agent.UsageChunk{InputTokens: 1000, OutputTokens: 500, Model: "claude-3-5-sonnet-20241022"},
	}}
}

func malformedStep() step {
	return step{chunks: []agent.Chunk{
		&agent.TextChunk{Content: "the database looks unhappy"},
	}}
}

func guardrailBlockStep() step {
	return step{chunks: []agent.Chunk{
		&agent.TextChunk{Content: "partial output before interception"},
		&agent.GuardrailChunk{Blocked: true, Type: "CONTENT_POLICY", Category: "VIOLENCE"},
		&agent.UsageChunk{InputTokens: 800, OutputTokens: 100, Model: "claude-3-5-sonnet-20241022"},
	}}
}

type throttleError struct{}

func (throttleError) Error() string                 { return "ThrottlingException: rate exceeded" }
func (throttleError) ErrorCode() string             { return "ThrottlingException" }
func (throttleError) ErrorMessage() string          { return "rate exceeded" }
func (throttleError) ErrorFault() smithy.ErrorFault { return smithy.FaultServer }

func throttleStep() step {
	return step{err: throttleError{}}
}

// memCheckpoints is an idempotent in-memory checkpoint store.
type memCheckpoints struct {
	mu   sync.Mutex
	rows map[string]map[string]models.Checkpoint
}

func newMemCheckpoints() *memCheckpoints {
	return &memCheckpoints{rows: map[string]map[string]models.Checkpoint{}}
}

func (s *memCheckpoints) Put(_ context.Context, req models.PutCheckpointRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.rows[req.SessionID]
	if session == nil {
		session = map[string]models.Checkpoint{}
		s.rows[req.SessionID] = session
	}
	if _, exists := session[req.CheckpointID]; exists {
		return nil
	}
	session[req.CheckpointID] = models.Checkpoint{
		SessionID:    req.SessionID,
		CheckpointID: req.CheckpointID,
		NodeName:     req.NodeName,
		StateBlob:    append([]byte(nil), req.StateBlob...),
		CreatedAt:    time.Now(),
	}
	return nil
}

func (s *memCheckpoints) Latest(_ context.Context, sessionID string) (*models.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.rows[sessionID]
	if len(session) == 0 {
		return nil, services.ErrNotFound
	}
	var latest models.Checkpoint
	for id, cp := range session {
		if id > latest.CheckpointID {
			latest = cp
		}
	}
	return &latest, nil
}

func (s *memCheckpoints) List(_ context.Context, sessionID string) ([]*models.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Checkpoint
	for _, cp := range s.rows[sessionID] {
		c := cp
		out = append(out, &c)
	}
	// Descending by id.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CheckpointID > out[i].CheckpointID {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (s *memCheckpoints) Get(_ context.Context, sessionID, checkpointID string) (*models.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cp, ok := s.rows[sessionID][checkpointID]; ok {
		return &cp, nil
	}
	return nil, services.ErrNotFound
}

// memSinks collects observability events and recommendations.
type memSinks struct {
	mu         sync.Mutex
	traces     []models.LLMTrace
	violations []models.GuardrailViolation
	recs       []models.Recommendation
}

func (s *memSinks) CreateTrace(_ context.Context, trace models.LLMTrace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traces = append(s.traces, trace)
	return nil
}

func (s *memSinks) CreateViolation(_ context.Context, v models.GuardrailViolation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations = append(s.violations, v)
	return nil
}

func (s *memSinks) Create(_ context.Context, rec models.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func (s *memSinks) GetByIncident(_ context.Context, incidentID string) (*models.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.recs) - 1; i >= 0; i-- {
		if s.recs[i].IncidentID == incidentID {
			rec := s.recs[i]
			return &rec, nil
		}
	}
	return nil, services.ErrNotFound
}

// harness is the assembled stack under test.
type harness struct {
	transport   *mockAgentTransport
	checkpoints *memCheckpoints
	sinks       *memSinks
	plane       *observability.Plane
	driver      *graph.Driver
	router      *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	transport := newMockTransport()
	checkpoints := newMemCheckpoints()
	sinks := &memSinks{}

	cfg := config.NewTestConfig(t)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	plane := observability.NewPlane(sinks, sinks, metrics)

	invoker, err := agent.NewInvoker(transport, cfg, plane)
	require.NoError(t, err)

	driver := graph.NewDriver(invoker, checkpoints, cfg,
		graph.WithSleep(func(time.Duration) {}),
		graph.WithRecommendationSink(sinks),
		graph.WithMetrics(metrics))

	server := api.NewServer(driver, checkpoints, sinks, nil, nil)
	return &harness{
		transport:   transport,
		checkpoints: checkpoints,
		sinks:       sinks,
		plane:       plane,
		driver:      driver,
		router:      server.Router(),
	}
}

func orchestrateEvent(incidentID, sessionID string) models.InvocationEvent {
	return models.InvocationEvent{Detail: models.InvocationDetail{
		IncidentID: incidentID,
		EvidenceBundle: map[string]any{
			"alarms":  []any{"p99-latency-high"},
			"service": "checkout",
		},
		SessionID: sessionID,
	}}
}

func requireAgentStatuses(t *testing.T, output *models.TerminalOutput, expected map[string]string) {
	t.Helper()
	for agentID, status := range expected {
		h, ok := output.AgentOutputs[agentID]
		require.True(t, ok, "missing hypothesis for %s", agentID)
		require.Equal(t, status, h.Status, "agent %s", agentID)
	}
}
