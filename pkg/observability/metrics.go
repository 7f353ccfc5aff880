package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the orchestrator's Prometheus collectors.
//
// Cardinality rule: label values are restricted to closed sets (agent ids,
// node ids, error codes, violation types, actions). Incident, execution and
// trace ids appear in stored records, never as metric labels.
type Metrics struct {
	OrchestrationsStarted   prometheus.Counter
	OrchestrationsCompleted prometheus.Counter
	NodeDuration            *prometheus.HistogramVec
	AgentInvocations        *prometheus.CounterVec
	AgentRetries            *prometheus.CounterVec
	AgentFailures           *prometheus.CounterVec
	GuardrailViolations     *prometheus.CounterVec
	TraceEmissionFailures   prometheus.Counter
	ViolationWriteFailures  prometheus.Counter
	BudgetExceeded          prometheus.Counter
	IncidentCost            prometheus.Histogram
	AggregatedConfidence    prometheus.Histogram
}

// NewMetrics registers the collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		OrchestrationsStarted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "quorum", Subsystem: "orchestration",
			Name: "runs_started_total", Help: "Orchestration runs started.",
		}),
		OrchestrationsCompleted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "quorum", Subsystem: "orchestration",
			Name: "runs_completed_total", Help: "Orchestration runs completed.",
		}),
		NodeDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quorum", Subsystem: "orchestration",
			Name: "node_duration_seconds", Help: "Per-node execution duration.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"node_id"}),
		AgentInvocations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "quorum", Subsystem: "orchestration",
			Name: "agent_invocations_total", Help: "Agent invocation attempts by outcome.",
		}, []string{"agent_id", "status"}),
		AgentRetries: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "quorum", Subsystem: "orchestration",
			Name: "agent_retries_total", Help: "Agent invocation retries.",
		}, []string{"agent_id"}),
		AgentFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "quorum", Subsystem: "orchestration",
			Name: "agent_failures_total", Help: "Agent failures by error code.",
		}, []string{"agent_id", "error_code"}),
		GuardrailViolations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "quorum", Subsystem: "guardrails",
			Name: "violations_total", Help: "Guardrail violations by type and action.",
		}, []string{"agent_id", "violation_type", "action"}),
		TraceEmissionFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "quorum", Subsystem: "tracing",
			Name: "emission_failures_total", Help: "LLM trace events lost to sink failures.",
		}),
		ViolationWriteFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "quorum", Subsystem: "guardrails",
			Name: "write_failures_total", Help: "Guardrail violation records lost to sink failures.",
		}),
		BudgetExceeded: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "quorum", Subsystem: "cost",
			Name: "budget_exceeded_total", Help: "Runs that exceeded the available budget.",
		}),
		IncidentCost: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "quorum", Subsystem: "cost",
			Name: "incident_cost_usd", Help: "Total cost per incident in USD.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		AggregatedConfidence: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "quorum", Subsystem: "orchestration",
			Name: "aggregated_confidence", Help: "Consensus aggregated confidence.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
}
