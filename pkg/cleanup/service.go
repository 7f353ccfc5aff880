// Package cleanup provides data retention and cleanup services.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/incident-ops/quorum/pkg/config"
)

// CheckpointStore ages out checkpoint rows.
type CheckpointStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// TraceStore ages out expired trace rows.
type TraceStore interface {
	DeleteExpired(ctx context.Context) (int, error)
}

// ViolationStore ages out violation rows.
type ViolationStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// RecommendationStore ages out recommendation rows.
type RecommendationStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Service periodically enforces retention policies on checkpoints, LLM
// traces, guardrail violations and recommendations. All operations are
// idempotent and safe to run from multiple replicas.
type Service struct {
	config          *config.RetentionConfig
	checkpoints     CheckpointStore
	traces          TraceStore
	violations      ViolationStore
	recommendations RecommendationStore

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(
	cfg *config.RetentionConfig,
	checkpoints CheckpointStore,
	traces TraceStore,
	violations ViolationStore,
	recommendations RecommendationStore,
) *Service {
	return &Service{
		config:          cfg,
		checkpoints:     checkpoints,
		traces:          traces,
		violations:      violations,
		recommendations: recommendations,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"checkpoint_retention_days", s.config.CheckpointRetentionDays,
		"trace_retention_days", s.config.TraceRetentionDays,
		"violation_retention_days", s.config.ViolationRetentionDays,
		"recommendation_retention_days", s.config.RecommendationRetentionDays,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.RunAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunAll(ctx)
		}
	}
}

// RunAll executes one cleanup pass across every store.
func (s *Service) RunAll(ctx context.Context) {
	s.cleanupCheckpoints(ctx)
	s.cleanupTraces(ctx)
	s.cleanupViolations(ctx)
	s.cleanupRecommendations(ctx)
}

func (s *Service) cleanupCheckpoints(ctx context.Context) {
	if s.checkpoints == nil {
		return
	}
	cutoff := retentionCutoff(s.config.CheckpointRetentionDays)
	count, err := s.checkpoints.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("Retention: checkpoint cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: deleted old checkpoints", "count", count)
	}
}

func (s *Service) cleanupTraces(ctx context.Context) {
	if s.traces == nil {
		return
	}
	count, err := s.traces.DeleteExpired(ctx)
	if err != nil {
		slog.Error("Retention: trace cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: deleted expired traces", "count", count)
	}
}

func (s *Service) cleanupViolations(ctx context.Context) {
	if s.violations == nil {
		return
	}
	cutoff := retentionCutoff(s.config.ViolationRetentionDays)
	count, err := s.violations.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("Retention: violation cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: deleted old violations", "count", count)
	}
}

func (s *Service) cleanupRecommendations(ctx context.Context) {
	if s.recommendations == nil {
		return
	}
	cutoff := retentionCutoff(s.config.RecommendationRetentionDays)
	count, err := s.recommendations.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("Retention: recommendation cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: deleted old recommendations", "count", count)
	}
}

func retentionCutoff(days int) time.Time {
	return time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
}
