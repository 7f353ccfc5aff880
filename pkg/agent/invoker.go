package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/incident-ops/quorum/pkg/config"
	"github.com/incident-ops/quorum/pkg/models"
)

// LowConfidenceThreshold rejects SUCCESS outputs whose self-reported
// confidence is below any useful signal.
const LowConfidenceThreshold = 0.1

// Observer receives out-of-band invocation telemetry. Implementations must
// be best-effort: nothing the observer does may fail the invocation.
type Observer interface {
	EmitTrace(trace models.LLMTrace)
	EmitViolation(v models.GuardrailViolation)
}

// Result is the outcome of one invocation attempt. A failed attempt still
// carries a Hypothesis (status FAILURE, confidence 0) so the graph always has
// a value to commit; Err is nil only on success.
type Result struct {
	Hypothesis models.Hypothesis
	Err        *models.StructuredError
}

// Retryable reports whether the attempt failed with a transient code.
func (r Result) Retryable() bool {
	return r.Err != nil && r.Err.Retryable
}

// wireRequest is the serialized input text sent to the agent endpoint.
type wireRequest struct {
	IncidentID      string         `json:"incidentId"`
	EvidenceBundle  map[string]any `json:"evidenceBundle"`
	Timestamp       string         `json:"timestamp"`
	ExecutionID     string         `json:"executionId"`
	BudgetRemaining float64        `json:"budgetRemaining"`
}

// Invoker performs one agent invocation attempt: request assembly, streamed
// response accumulation, guardrail handling, output validation, cost
// extraction and hypothesis construction. The driver owns retries and
// backoff; the invoker never sleeps.
type Invoker struct {
	client    AgentClient
	agents    *config.AgentRegistry
	pricing   *config.PricingRegistry
	bedrock   *config.BedrockConfig
	timeout   time.Duration
	validator *OutputValidator
	observer  Observer
}

// NewInvoker builds an Invoker from the loaded configuration.
func NewInvoker(client AgentClient, cfg *config.Config, observer Observer) (*Invoker, error) {
	validator, err := NewOutputValidator()
	if err != nil {
		return nil, err
	}
	return &Invoker{
		client:    client,
		agents:    cfg.AgentRegistry,
		pricing:   cfg.PricingRegistry,
		bedrock:   cfg.Bedrock,
		timeout:   cfg.Driver.AgentTimeout,
		validator: validator,
		observer:  observer,
	}, nil
}

// Invoke performs one attempt against the given agent. The returned error is
// non-nil only for configuration bugs (unset endpoint identifiers), which
// abort the run; every runtime failure is absorbed into the Result.
func (inv *Invoker) Invoke(ctx context.Context, input models.AgentInput, agentID string, budgetRemaining float64, attempt int) (Result, error) {
	agentCfg, err := inv.agents.Get(agentID)
	if err != nil {
		return Result{}, fmt.Errorf("agent %q not configured: %w", agentID, err)
	}
	if agentCfg.EndpointID == "" || agentCfg.AliasID == "" {
		return Result{}, fmt.Errorf("agent %q has no endpoint configured", agentID)
	}

	if err := validateInput(input); err != nil {
		return inv.fail(agentCfg, agentID, input, err, attempt, models.InvocationCost{Model: "N/A"}, 0), nil
	}

	requestText, err := json.Marshal(wireRequest{
		IncidentID:      input.IncidentID,
		EvidenceBundle:  input.EvidenceBundle,
		Timestamp:       input.Timestamp,
		ExecutionID:     input.ExecutionID,
		BudgetRemaining: budgetRemaining,
	})
	if err != nil {
		classified := NewInvocationError(models.ErrCodeInvalidInput, "failed to serialize agent request", err)
		return inv.fail(agentCfg, agentID, input, classified, attempt, models.InvocationCost{Model: "N/A"}, 0), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	start := time.Now()
	traceID := uuid.New().String()

	chunks, err := inv.client.Invoke(callCtx, &InvokeInput{
		AgentID:    agentID,
		EndpointID: agentCfg.EndpointID,
		AliasID:    agentCfg.AliasID,
		SessionID:  input.SessionID,
		InputText:  string(requestText),
		Trace:      inv.bedrock.TraceEnabled(),
	})
	if err != nil {
		// Pre-invocation failure: no stream was opened, cost is zero.
		return inv.fail(agentCfg, agentID, input, err, attempt, models.InvocationCost{Model: "N/A"}, elapsedMs(start)), nil
	}

	var (
		text      strings.Builder
		usage     *UsageChunk
		guardrail *GuardrailChunk
		streamErr error
	)
	for chunk := range chunks {
		switch c := chunk.(type) {
		case *TextChunk:
			text.WriteString(c.Content)
		case *UsageChunk:
			usage = c
		case *GuardrailChunk:
			if guardrail == nil || c.Blocked {
				guardrail = c
			}
		case *ErrorChunk:
			streamErr = c.Err
			if streamErr == nil {
				streamErr = fmt.Errorf("agent stream error: %s", c.Message)
			}
		}
	}
	if streamErr == nil && callCtx.Err() != nil {
		streamErr = callCtx.Err()
	}

	// Cost is computed before any redaction so token accounting sees the
	// real content. Post-invocation failures keep whatever the transport
	// reported.
	cost := inv.extractCost(string(requestText), text.String(), usage)
	durationMs := elapsedMs(start)

	if guardrail != nil {
		inv.emitViolation(traceID, agentID, input, guardrail, string(requestText), text.String(), cost.Model)
		if guardrail.Blocked {
			classified := NewInvocationError(models.ErrCodeGuardrailBlocked,
				fmt.Sprintf("guardrail blocked response (%s)", guardrail.Type), nil)
			return inv.fail(agentCfg, agentID, input, classified, attempt, cost, durationMs), nil
		}
	}

	if streamErr != nil {
		return inv.fail(agentCfg, agentID, input, streamErr, attempt, cost, durationMs), nil
	}

	parsed, err := inv.validator.Parse(text.String())
	if err != nil {
		return inv.fail(agentCfg, agentID, input, err, attempt, cost, durationMs), nil
	}
	if parsed.Status == models.StatusSuccess && parsed.Confidence < LowConfidenceThreshold {
		classified := NewInvocationError(models.ErrCodeLowConfidence,
			fmt.Sprintf("confidence %.4f below threshold %.2f", parsed.Confidence, LowConfidenceThreshold), nil)
		return inv.fail(agentCfg, agentID, input, classified, attempt, cost, durationMs), nil
	}

	hash, err := models.DeterministicHash(input, parsed.Confidence, parsed.Findings)
	if err != nil {
		classified := NewInvocationError(models.ErrCodeInternalError, "failed to compute deterministic hash", err)
		return inv.fail(agentCfg, agentID, input, classified, attempt, cost, durationMs), nil
	}

	hypothesis := models.Hypothesis{
		AgentID:      agentID,
		AgentVersion: agentCfg.Version,
		ExecutionID:  input.ExecutionID,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Duration:     durationMs,
		Status:       parsed.Status,
		Confidence:   parsed.Confidence,
		Reasoning:    parsed.Reasoning,
		Disclaimer:   parsed.Disclaimer,
		Findings:     parsed.Findings,
		Citations:    parsed.Citations,
		Cost:         cost,
		ReplayMetadata: models.ReplayMetadata{
			DeterministicHash: hash,
			SchemaVersion:     models.SchemaVersion,
		},
	}

	inv.emitTrace(traceID, agentID, input, string(requestText), text.String(), hypothesis, attempt, durationMs)

	return Result{Hypothesis: hypothesis}, nil
}

// validateInput checks the required fields of the agent input.
func validateInput(input models.AgentInput) error {
	missing := ""
	switch {
	case input.IncidentID == "":
		missing = "incident_id"
	case len(input.EvidenceBundle) == 0:
		missing = "evidence_bundle"
	case input.Timestamp == "":
		missing = "timestamp"
	case input.ExecutionID == "":
		missing = "execution_id"
	case input.SessionID == "":
		missing = "session_id"
	}
	if missing != "" {
		return NewInvocationError(models.ErrCodeInvalidInput, "missing required field "+missing, nil)
	}
	return nil
}

// extractCost prices the invocation. When the stream reported no usage the
// token counts are estimated from text lengths (4 chars per token).
func (inv *Invoker) extractCost(requestText, responseText string, usage *UsageChunk) models.InvocationCost {
	inputTokens, outputTokens := 0, 0
	model := ""
	if usage != nil {
		inputTokens = usage.InputTokens
		outputTokens = usage.OutputTokens
		model = usage.Model
	}
	if inputTokens == 0 && outputTokens == 0 {
		inputTokens = len(requestText) / 4
		outputTokens = len(responseText) / 4
	}
	if model == "" {
		model = inv.pricing.DefaultModel()
	}

	pricing := inv.pricing.Get(model)
	estimated := float64(inputTokens)/1000*pricing.InputPer1K + float64(outputTokens)/1000*pricing.OutputPer1K
	return models.InvocationCost{
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		EstimatedCost: models.Round6(estimated),
		Model:         model,
	}
}

// fail absorbs a failed attempt into a failure hypothesis plus a structured
// error. The hypothesis keeps the chain going; the error keeps the audit
// trail honest.
func (inv *Invoker) fail(agentCfg *config.AgentConfig, agentID string, input models.AgentInput, cause error, attempt int, cost models.InvocationCost, durationMs int64) Result {
	code := Classify(cause)
	message := cause.Error()
	var invErr *InvocationError
	if errors.As(cause, &invErr) {
		message = invErr.Message
	}

	hypothesis := models.Hypothesis{
		AgentID:      agentID,
		AgentVersion: agentCfg.Version,
		ExecutionID:  input.ExecutionID,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Duration:     durationMs,
		Status:       models.StatusFailure,
		Confidence:   0.0,
		Reasoning:    "Agent failed: " + message,
		Disclaimer:   models.Disclaimer,
		Findings:     map[string]any{"error": string(code)},
		Cost:         cost,
		Error: map[string]any{
			"code":    string(code),
			"message": message,
		},
		ReplayMetadata: models.ReplayMetadata{
			DeterministicHash: models.FailureHash,
			SchemaVersion:     models.SchemaVersion,
		},
	}
	structured := models.NewStructuredError(agentID, code, message, attempt)
	return Result{Hypothesis: hypothesis, Err: &structured}
}

// emitTrace sends the invocation trace out of band. The observer owns
// redaction and persistence; nothing here can fail the invocation.
func (inv *Invoker) emitTrace(traceID, agentID string, input models.AgentInput, requestText, responseText string, h models.Hypothesis, attempt int, latencyMs int64) {
	if inv.observer == nil {
		return
	}
	metadata := map[string]any{
		"retry_attempt":     attempt,
		"validation_status": "passed",
	}
	if id := inv.bedrock.GuardrailID(); id != "" {
		metadata["guardrails"] = []string{id + ":" + inv.bedrock.GuardrailVersion()}
	}
	inv.observer.EmitTrace(models.LLMTrace{
		TraceID:      traceID,
		TraceVersion: models.TraceVersion,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		AgentID:      agentID,
		IncidentID:   input.IncidentID,
		ExecutionID:  input.ExecutionID,
		Model:        h.Cost.Model,
		ModelVersion: modelVersion(h.Cost.Model),
		Prompt: models.TracePrompt{
			Text:   requestText,
			Tokens: h.Cost.InputTokens,
		},
		Response: models.TraceResponse{
			Text:         responseText,
			Tokens:       h.Cost.OutputTokens,
			FinishReason: "end_turn",
			LatencyMs:    latencyMs,
		},
		Cost:     h.Cost,
		Metadata: metadata,
	})
}

// emitViolation reports a guardrail event. Confidence defaults to 1.0 when
// the transport reported none; that default is part of the contract.
func (inv *Invoker) emitViolation(traceID, agentID string, input models.AgentInput, g *GuardrailChunk, requestText, responseText, model string) {
	if inv.observer == nil {
		return
	}
	action := "WARN"
	if g.Blocked {
		action = "BLOCK"
	}
	confidence := 1.0
	if g.Confidence != nil {
		confidence = *g.Confidence
	}
	inv.observer.EmitViolation(models.GuardrailViolation{
		ViolationID: uuid.New().String(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		TraceID:     traceID,
		AgentID:     agentID,
		IncidentID:  input.IncidentID,
		ExecutionID: input.ExecutionID,
		Violation: models.ViolationDetail{
			Type:       g.Type,
			Action:     action,
			Category:   g.Category,
			Confidence: confidence,
		},
		Content: models.ViolationContent{
			Input:        requestText,
			Output:       responseText,
			DetectedText: "[REDACTED]",
		},
		Response: models.ViolationResponse{
			Blocked:      g.Blocked,
			RetryAllowed: !g.Blocked,
		},
		Metadata: map[string]any{
			"guardrail_id":      inv.bedrock.GuardrailID(),
			"guardrail_version": inv.bedrock.GuardrailVersion(),
			"model":             model,
		},
	})
}

// modelVersion extracts the 8-digit date suffix from model identifiers like
// "claude-3-5-sonnet-20241022".
func modelVersion(model string) string {
	idx := strings.LastIndex(model, "-")
	if idx < 0 {
		return ""
	}
	suffix := model[idx+1:]
	if len(suffix) != 8 {
		return ""
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return suffix
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
