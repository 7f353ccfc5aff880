// Package api exposes the orchestrator over HTTP: incident ingestion,
// session resume, checkpoint inspection, recommendation retrieval, health
// and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/incident-ops/quorum/pkg/database"
	"github.com/incident-ops/quorum/pkg/models"
)

// OrchestrationTimeout bounds one synchronous orchestration request.
const OrchestrationTimeout = 10 * time.Minute

// Orchestrator runs the incident graph. Satisfied by *graph.Driver.
type Orchestrator interface {
	Execute(ctx context.Context, event models.InvocationEvent) (*models.TerminalOutput, error)
	Resume(ctx context.Context, sessionID string) (*models.TerminalOutput, error)
}

// CheckpointReader serves checkpoint inspection. Satisfied by
// *services.CheckpointService.
type CheckpointReader interface {
	List(ctx context.Context, sessionID string) ([]*models.Checkpoint, error)
	Get(ctx context.Context, sessionID, checkpointID string) (*models.Checkpoint, error)
}

// RecommendationReader serves stored terminal outputs. Satisfied by
// *services.RecommendationService.
type RecommendationReader interface {
	GetByIncident(ctx context.Context, incidentID string) (*models.Recommendation, error)
}

// Server is the HTTP API server.
type Server struct {
	orchestrator    Orchestrator
	checkpoints     CheckpointReader
	recommendations RecommendationReader
	db              *database.Client
	registry        *prometheus.Registry
}

// NewServer creates a new API server. db and registry may be nil; the
// corresponding endpoints degrade gracefully.
func NewServer(orchestrator Orchestrator, checkpoints CheckpointReader, recommendations RecommendationReader, db *database.Client, registry *prometheus.Registry) *Server {
	return &Server{
		orchestrator:    orchestrator,
		checkpoints:     checkpoints,
		recommendations: recommendations,
		db:              db,
		registry:        registry,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), securityHeaders())

	router.GET("/health", s.healthHandler)
	if s.registry != nil {
		router.GET("/metrics", gin.WrapH(
			promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/incidents/orchestrate", s.orchestrateHandler)
		v1.GET("/incidents/:incidentID/recommendation", s.getRecommendationHandler)
		v1.POST("/sessions/:sessionID/resume", s.resumeHandler)
		v1.GET("/sessions/:sessionID/checkpoints", s.listCheckpointsHandler)
		v1.GET("/sessions/:sessionID/checkpoints/:checkpointID", s.getCheckpointHandler)
	}
	return router
}

// HTTPServer wraps the router into an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
