// Package observability is the out-of-band telemetry plane: LLM invocation
// traces, guardrail violation records, and metrics. Everything here is
// strictly best-effort — a failure is logged, counted, and swallowed, and
// must never influence the orchestration that produced the event.
package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/incident-ops/quorum/pkg/models"
	"github.com/incident-ops/quorum/pkg/redaction"
)

// sinkTimeout bounds each background write so a stuck sink cannot pile up
// goroutines forever.
const sinkTimeout = 10 * time.Second

// TraceSink persists LLM trace events.
type TraceSink interface {
	CreateTrace(ctx context.Context, trace models.LLMTrace) error
}

// ViolationSink persists guardrail violation records. Writes must be
// idempotent on violation_id: the same violation may be delivered more than
// once.
type ViolationSink interface {
	CreateViolation(ctx context.Context, v models.GuardrailViolation) error
}

// Plane fans invocation telemetry out to the sinks asynchronously. Emission
// is fire-and-forget: callers never block on a sink and never see its
// errors. PII redaction happens here, after the caller computed cost from
// the raw content and before anything is persisted.
type Plane struct {
	traces     TraceSink
	violations ViolationSink
	redactor   *redaction.Redactor
	metrics    *Metrics

	wg sync.WaitGroup
}

// NewPlane creates the observability plane. Nil sinks disable their stream.
func NewPlane(traces TraceSink, violations ViolationSink, metrics *Metrics) *Plane {
	return &Plane{
		traces:     traces,
		violations: violations,
		redactor:   redaction.New(),
		metrics:    metrics,
	}
}

// Metrics exposes the collector set for callers that record directly.
func (p *Plane) Metrics() *Metrics { return p.metrics }

// EmitTrace redacts and persists one LLM trace event in the background.
func (p *Plane) EmitTrace(trace models.LLMTrace) {
	if p.traces == nil {
		return
	}
	p.dispatch(func(ctx context.Context) {
		redacted, _ := p.redactor.RedactTrace(trace)
		if err := p.traces.CreateTrace(ctx, redacted); err != nil {
			slog.Warn("Failed to persist LLM trace",
				"trace_id", trace.TraceID, "agent_id", trace.AgentID, "error", err)
			if p.metrics != nil {
				p.metrics.TraceEmissionFailures.Inc()
			}
		}
	})
}

// EmitViolation redacts and persists one guardrail violation in the
// background, and counts it on the safe-dimension metric.
func (p *Plane) EmitViolation(v models.GuardrailViolation) {
	if p.metrics != nil {
		p.metrics.GuardrailViolations.
			WithLabelValues(v.AgentID, v.Violation.Type, v.Violation.Action).Inc()
	}
	if p.violations == nil {
		return
	}
	p.dispatch(func(ctx context.Context) {
		redacted := p.redactViolation(v)
		if err := p.violations.CreateViolation(ctx, redacted); err != nil {
			slog.Warn("Failed to persist guardrail violation",
				"violation_id", v.ViolationID, "agent_id", v.AgentID, "error", err)
			if p.metrics != nil {
				p.metrics.ViolationWriteFailures.Inc()
			}
		}
	})
}

// Flush waits for all in-flight emissions to settle. For shutdown and tests.
func (p *Plane) Flush() {
	p.wg.Wait()
}

// dispatch runs fn on its own goroutine with a bounded context and a panic
// barrier. The panic barrier is the last line of the never-fail-the-run
// contract.
func (p *Plane) dispatch(fn func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Observability emission panicked", "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (p *Plane) redactViolation(v models.GuardrailViolation) models.GuardrailViolation {
	input, inputCount := p.redactor.Redact(v.Content.Input)
	output, outputCount := p.redactor.Redact(v.Content.Output)
	v.Content = models.ViolationContent{
		Input:            input,
		Output:           output,
		DetectedText:     "[REDACTED]",
		InputRedactions:  inputCount,
		OutputRedactions: outputCount,
	}
	return v
}
