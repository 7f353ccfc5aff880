package graph

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/incident-ops/quorum/pkg/agent"
	"github.com/incident-ops/quorum/pkg/config"
	"github.com/incident-ops/quorum/pkg/consensus"
	"github.com/incident-ops/quorum/pkg/guardian"
	"github.com/incident-ops/quorum/pkg/models"
	"github.com/incident-ops/quorum/pkg/observability"
)

// AgentInvoker performs a single invocation attempt. Satisfied by
// *agent.Invoker.
type AgentInvoker interface {
	Invoke(ctx context.Context, input models.AgentInput, agentID string, budgetRemaining float64, attempt int) (agent.Result, error)
}

// CheckpointStore persists state snapshots. Satisfied by
// *services.CheckpointService.
type CheckpointStore interface {
	Put(ctx context.Context, req models.PutCheckpointRequest) error
	Latest(ctx context.Context, sessionID string) (*models.Checkpoint, error)
}

// RecommendationSink persists terminal outputs. Satisfied by
// *services.RecommendationService.
type RecommendationSink interface {
	Create(ctx context.Context, rec models.Recommendation) error
}

// Driver runs the orchestration graph. It owns retries, backoff, budget
// threading and checkpointing; the invoker only ever performs one attempt.
type Driver struct {
	invoker         AgentInvoker
	checkpoints     CheckpointStore
	recommendations RecommendationSink
	aggregator      *consensus.Aggregator
	guardian        *guardian.Guardian
	cfg             *config.DriverConfig
	metrics         *observability.Metrics

	// sleep is replaceable so retry tests don't wait for real backoff.
	sleep func(time.Duration)
}

// Option customizes a Driver.
type Option func(*Driver)

// WithSleep replaces the backoff sleep function.
func WithSleep(fn func(time.Duration)) Option {
	return func(d *Driver) { d.sleep = fn }
}

// WithRecommendationSink enables best-effort terminal output persistence.
func WithRecommendationSink(sink RecommendationSink) Option {
	return func(d *Driver) { d.recommendations = sink }
}

// WithMetrics enables metric recording.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// NewDriver assembles a Driver from the loaded configuration.
func NewDriver(invoker AgentInvoker, checkpoints CheckpointStore, cfg *config.Config, opts ...Option) *Driver {
	d := &Driver{
		invoker:     invoker,
		checkpoints: checkpoints,
		aggregator:  consensus.New(cfg.Weights()),
		guardian:    guardian.New(cfg.Guardian.IncidentsPerDay, cfg.Guardian.DaysPerMonth),
		cfg:         cfg.Driver,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute runs a full orchestration for one invocation event: entry node,
// agent chain, consensus, cost guardian, terminal output.
func (d *Driver) Execute(ctx context.Context, event models.InvocationEvent) (*models.TerminalOutput, error) {
	detail := event.Detail
	if detail.IncidentID == "" {
		return nil, fmt.Errorf("invalid invocation event: missing incident_id")
	}
	if len(detail.EvidenceBundle) == 0 {
		return nil, fmt.Errorf("invalid invocation event: missing evidence_bundle")
	}

	now := time.Now().UTC()
	executionID := detail.ExecutionID
	if executionID == "" {
		executionID = fmt.Sprintf("exec-%s-%d", detail.IncidentID, now.Unix())
	}
	sessionID := detail.SessionID
	if sessionID == "" {
		sessionID = "sess-" + uuid.New().String()
	}
	timestamp := detail.Timestamp
	if timestamp == "" {
		timestamp = now.Format(time.RFC3339)
	}
	budget := d.cfg.DefaultBudget
	if detail.BudgetRemaining != nil {
		budget = *detail.BudgetRemaining
	}

	input := models.AgentInput{
		IncidentID:     detail.IncidentID,
		EvidenceBundle: detail.EvidenceBundle,
		Timestamp:      timestamp,
		ExecutionID:    executionID,
		SessionID:      sessionID,
		Context:        detail.Context,
	}

	state := models.NewInitialState(input, budget)
	state = state.WithTrace(traceEntry(NodeEntry, models.TraceCompleted, 0, map[string]any{
		"execution_id": executionID,
	}))

	if d.metrics != nil {
		d.metrics.OrchestrationsStarted.Inc()
	}
	slog.Info("Orchestration started",
		"incident_id", input.IncidentID, "execution_id", executionID, "session_id", sessionID,
		"budget_remaining", budget)

	if err := d.checkpoint(ctx, state, NodeEntry); err != nil {
		return nil, err
	}
	return d.run(ctx, state, now)
}

// Resume continues an interrupted run from its latest checkpoint. The next
// node is derived from the restored state's content, not from the checkpoint
// name.
func (d *Driver) Resume(ctx context.Context, sessionID string) (*models.TerminalOutput, error) {
	cp, err := d.checkpoints.Latest(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest checkpoint for session %s: %w", sessionID, err)
	}
	state, err := models.UnmarshalState(cp.StateBlob)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session %s: %w", sessionID, err)
	}

	slog.Info("Orchestration resumed",
		"session_id", sessionID, "checkpoint_id", cp.CheckpointID,
		"next_node", nextNode(state))
	return d.run(ctx, state, time.Now().UTC())
}

// run executes every remaining node, derived from state content.
func (d *Driver) run(ctx context.Context, state models.GraphState, started time.Time) (*models.TerminalOutput, error) {
	var err error
	for {
		node := nextNode(state)
		if node == "" {
			break
		}
		switch node {
		case NodeConsensus:
			state, err = d.runConsensus(ctx, state)
		case NodeCostGuardian:
			state, err = d.runCostGuardian(ctx, state)
		default:
			state, err = d.runAgent(ctx, state, node)
		}
		if err != nil {
			return nil, err
		}
	}

	output := d.assembleOutput(state, started)
	d.persistRecommendation(ctx, state, output)

	if d.metrics != nil {
		d.metrics.OrchestrationsCompleted.Inc()
		d.metrics.IncidentCost.Observe(output.Cost.Total)
		d.metrics.AggregatedConfidence.Observe(output.Recommendation.Confidence)
	}
	slog.Info("Orchestration completed",
		"incident_id", output.IncidentID,
		"execution_id", state.AgentInput.ExecutionID,
		"confidence", output.Recommendation.Confidence,
		"total_cost", output.Cost.Total,
		"budget_exceeded", output.Cost.Exceeded,
		"agents_failed", output.ExecutionSummary.AgentsFailed)
	return &output, nil
}

// runAgent executes one agent node: up to 1+MaxRetries attempts, exponential
// backoff between retryable failures, exactly one committed hypothesis.
func (d *Driver) runAgent(ctx context.Context, state models.GraphState, agentID string) (models.GraphState, error) {
	start := time.Now()
	state = state.WithTrace(traceEntry(agentID, models.TraceStarted, 0, nil))

	var result agent.Result
	for attempt := 0; ; attempt++ {
		var err error
		result, err = d.invoker.Invoke(ctx, state.AgentInput, agentID, state.BudgetRemaining, attempt)
		if err != nil {
			return state, fmt.Errorf("agent node %s: %w", agentID, err)
		}
		if d.metrics != nil {
			d.metrics.AgentInvocations.WithLabelValues(agentID, result.Hypothesis.Status).Inc()
		}
		if !result.Retryable() || attempt >= d.cfg.MaxRetries {
			break
		}

		next := attempt + 1
		backoff := backoffDelay(next)
		state = state.WithRetry(agentID, next)
		state = state.WithTrace(traceEntry(agentID, models.TraceRetrying, 0, map[string]any{
			"attempt":     next,
			"error_code":  string(result.Err.ErrorCode),
			"backoff_sec": backoff.Seconds(),
		}))
		if d.metrics != nil {
			d.metrics.AgentRetries.WithLabelValues(agentID).Inc()
		}
		slog.Warn("Agent invocation retrying",
			"agent_id", agentID, "attempt", next,
			"error_code", result.Err.ErrorCode, "backoff", backoff)
		d.sleep(backoff)
	}

	state = state.WithHypothesis(result.Hypothesis)
	durationMs := time.Since(start).Milliseconds()
	if result.Err != nil {
		state = state.WithError(*result.Err)
		state = state.WithTrace(traceEntry(agentID, models.TraceFailed, durationMs, map[string]any{
			"error_code": string(result.Err.ErrorCode),
		}))
		if d.metrics != nil {
			d.metrics.AgentFailures.WithLabelValues(agentID, string(result.Err.ErrorCode)).Inc()
		}
		slog.Warn("Agent failed, continuing chain",
			"agent_id", agentID, "error_code", result.Err.ErrorCode, "message", result.Err.Message)
	} else {
		state = state.WithTrace(traceEntry(agentID, models.TraceCompleted, durationMs, map[string]any{
			"confidence": result.Hypothesis.Confidence,
			"status":     result.Hypothesis.Status,
		}))
	}
	if d.metrics != nil {
		d.metrics.NodeDuration.WithLabelValues(agentID).Observe(float64(durationMs) / 1000)
	}

	if err := d.checkpoint(ctx, state, agentID); err != nil {
		return state, err
	}
	return state, nil
}

// runConsensus executes the consensus node. Pure computation, never fails.
func (d *Driver) runConsensus(ctx context.Context, state models.GraphState) (models.GraphState, error) {
	start := time.Now()
	result := d.aggregator.Aggregate(state.Hypotheses)
	state = state.WithConsensus(result)
	state = state.WithTrace(traceEntry(NodeConsensus, models.TraceCompleted, time.Since(start).Milliseconds(), map[string]any{
		"aggregated_confidence": result.AggregatedConfidence,
		"agreement_level":       result.AgreementLevel,
		"conflicts":             len(result.ConflictsDetected),
	}))
	if d.metrics != nil {
		d.metrics.NodeDuration.WithLabelValues(NodeConsensus).Observe(time.Since(start).Seconds())
	}

	if err := d.checkpoint(ctx, state, NodeConsensus); err != nil {
		return state, err
	}
	return state, nil
}

// runCostGuardian executes the cost guardian node: the only writer of
// budget_remaining. An exceeded budget is recorded as a signal, never an
// abort.
func (d *Driver) runCostGuardian(ctx context.Context, state models.GraphState) (models.GraphState, error) {
	start := time.Now()
	report := d.guardian.Report(state.Hypotheses, state.BudgetRemaining)
	state = state.WithCostGuardian(report)
	state = state.WithBudget(report.BudgetRemaining)
	if report.BudgetExceeded {
		state = state.WithError(models.NewStructuredError(
			NodeCostGuardian, models.ErrCodeBudgetExceeded,
			fmt.Sprintf("incident cost %.6f exceeded remaining budget", report.TotalCost), 0))
		if d.metrics != nil {
			d.metrics.BudgetExceeded.Inc()
		}
		slog.Warn("Budget exceeded",
			"incident_id", state.AgentInput.IncidentID,
			"total_cost", report.TotalCost, "budget_remaining", report.BudgetRemaining)
	}
	state = state.WithTrace(traceEntry(NodeCostGuardian, models.TraceCompleted, time.Since(start).Milliseconds(), map[string]any{
		"total_cost":       report.TotalCost,
		"budget_remaining": report.BudgetRemaining,
		"budget_exceeded":  report.BudgetExceeded,
	}))
	if d.metrics != nil {
		d.metrics.NodeDuration.WithLabelValues(NodeCostGuardian).Observe(time.Since(start).Seconds())
	}

	if err := d.checkpoint(ctx, state, NodeCostGuardian); err != nil {
		return state, err
	}
	return state, nil
}

// checkpoint persists the state after a node. The configured policy decides
// whether a failed write aborts the run or only degrades resumability.
func (d *Driver) checkpoint(ctx context.Context, state models.GraphState, node string) error {
	blob, err := state.Marshal()
	if err != nil {
		return fmt.Errorf("failed to checkpoint node %s: %w", node, err)
	}
	err = d.checkpoints.Put(ctx, models.PutCheckpointRequest{
		SessionID:    state.SessionID,
		CheckpointID: checkpointID(node),
		NodeName:     node,
		StateBlob:    blob,
		Metadata: map[string]any{
			"incident_id":  state.AgentInput.IncidentID,
			"execution_id": state.AgentInput.ExecutionID,
		},
	})
	if err != nil {
		if d.cfg.CheckpointPolicy == config.CheckpointPolicyAbort {
			return fmt.Errorf("checkpoint write failed at node %s: %w", node, err)
		}
		slog.Warn("Checkpoint write failed, continuing without resumability",
			"session_id", state.SessionID, "node", node, "error", err)
	}
	return nil
}

// assembleOutput builds the terminal output from the final state.
func (d *Driver) assembleOutput(state models.GraphState, started time.Time) models.TerminalOutput {
	succeeded, failed := 0, 0
	for _, h := range state.Hypotheses {
		if h.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	totalRetries := 0
	for _, n := range state.RetryCount {
		totalRetries += n
	}

	rec := models.RecommendationSummary{}
	var cons *models.ConsensusResult
	if state.Consensus != nil {
		cons = state.Consensus
		rec = models.RecommendationSummary{
			Unified:           cons.UnifiedRecommendation,
			Confidence:        cons.AggregatedConfidence,
			AgreementLevel:    cons.AgreementLevel,
			ConflictsDetected: len(cons.ConflictsDetected),
			MinorityOpinions:  cons.MinorityOpinions,
		}
	}

	cost := models.CostSummary{}
	if state.CostGuardian != nil {
		report := state.CostGuardian
		perAgent := make(map[string]models.AgentCost, len(report.PerAgentCost))
		for k, v := range report.PerAgentCost {
			perAgent[k] = v
		}
		cost = models.CostSummary{
			Total:           report.TotalCost,
			BudgetRemaining: report.BudgetRemaining,
			Exceeded:        report.BudgetExceeded,
			PerAgent:        perAgent,
			Projections:     report.Projections,
		}
	}

	outputs := make(map[string]models.Hypothesis, len(state.Hypotheses))
	for k, v := range state.Hypotheses {
		outputs[k] = v
	}

	return models.TerminalOutput{
		IncidentID:     state.AgentInput.IncidentID,
		Recommendation: rec,
		AgentOutputs:   outputs,
		Consensus:      cons,
		Cost:           cost,
		ExecutionSummary: models.ExecutionSummary{
			DurationMs:      time.Since(started).Milliseconds(),
			AgentsSucceeded: succeeded,
			AgentsFailed:    failed,
			TotalRetries:    totalRetries,
			ErrorsCount:     len(state.Errors),
		},
		ExecutionTrace: append([]models.TraceEntry(nil), state.ExecutionTrace...),
		Errors:         append([]models.StructuredError(nil), state.Errors...),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
}

// persistRecommendation stores the terminal output. Best-effort: persistence
// failure never fails the run that produced the output.
func (d *Driver) persistRecommendation(ctx context.Context, state models.GraphState, output models.TerminalOutput) {
	if d.recommendations == nil {
		return
	}
	err := d.recommendations.Create(ctx, models.Recommendation{
		RecommendationID: uuid.New().String(),
		IncidentID:       output.IncidentID,
		SessionID:        state.SessionID,
		ExecutionID:      state.AgentInput.ExecutionID,
		Output:           output,
	})
	if err != nil {
		slog.Warn("Failed to persist recommendation",
			"incident_id", output.IncidentID, "session_id", state.SessionID, "error", err)
	}
}

// backoffDelay is the exponential backoff before retry n, capped at 4s.
func backoffDelay(attempt int) time.Duration {
	sec := math.Min(math.Pow(2, float64(attempt)), 4)
	return time.Duration(sec * float64(time.Second))
}

// checkpointID builds the stable checkpoint id for a node.
func checkpointID(node string) string {
	return fmt.Sprintf("ckpt-%06d-%s", nodeSequence[node], node)
}

func traceEntry(nodeID, status string, durationMs int64, metadata map[string]any) models.TraceEntry {
	return models.TraceEntry{
		NodeID:     nodeID,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		DurationMs: durationMs,
		Status:     status,
		Metadata:   metadata,
	}
}
