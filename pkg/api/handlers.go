package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/incident-ops/quorum/pkg/database"
)

// orchestrateHandler handles POST /api/v1/incidents/orchestrate. The run is
// synchronous: the response body is the terminal output.
func (s *Server) orchestrateHandler(c *gin.Context) {
	var req OrchestrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if len(req.EvidenceBundle) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "evidence_bundle must not be empty"})
		return
	}
	if req.BudgetRemaining != nil && *req.BudgetRemaining < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "budget_remaining must not be negative"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), OrchestrationTimeout)
	defer cancel()

	output, err := s.orchestrator.Execute(ctx, req.toEvent())
	if err != nil {
		status, message := mapOrchestratorError(err)
		c.JSON(status, ErrorResponse{Error: message})
		return
	}
	c.JSON(http.StatusOK, output)
}

// resumeHandler handles POST /api/v1/sessions/:sessionID/resume.
func (s *Server) resumeHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")

	ctx, cancel := context.WithTimeout(c.Request.Context(), OrchestrationTimeout)
	defer cancel()

	output, err := s.orchestrator.Resume(ctx, sessionID)
	if err != nil {
		status, message := mapServiceError(err)
		c.JSON(status, ErrorResponse{Error: message})
		return
	}
	c.JSON(http.StatusOK, output)
}

// listCheckpointsHandler handles GET /api/v1/sessions/:sessionID/checkpoints.
// Returns summaries, most recent first.
func (s *Server) listCheckpointsHandler(c *gin.Context) {
	checkpoints, err := s.checkpoints.List(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		status, message := mapServiceError(err)
		c.JSON(status, ErrorResponse{Error: message})
		return
	}

	summaries := make([]CheckpointSummary, 0, len(checkpoints))
	for _, cp := range checkpoints {
		summaries = append(summaries, CheckpointSummary{
			CheckpointID: cp.CheckpointID,
			NodeName:     cp.NodeName,
			CreatedAt:    cp.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"checkpoints": summaries})
}

// getCheckpointHandler handles
// GET /api/v1/sessions/:sessionID/checkpoints/:checkpointID. Returns the
// full checkpoint including the state blob.
func (s *Server) getCheckpointHandler(c *gin.Context) {
	cp, err := s.checkpoints.Get(c.Request.Context(), c.Param("sessionID"), c.Param("checkpointID"))
	if err != nil {
		status, message := mapServiceError(err)
		c.JSON(status, ErrorResponse{Error: message})
		return
	}
	c.JSON(http.StatusOK, cp)
}

// getRecommendationHandler handles
// GET /api/v1/incidents/:incidentID/recommendation. Returns the most recent
// stored recommendation for the incident.
func (s *Server) getRecommendationHandler(c *gin.Context) {
	rec, err := s.recommendations.GetByIncident(c.Request.Context(), c.Param("incidentID"))
	if err != nil {
		status, message := mapServiceError(err)
		c.JSON(status, ErrorResponse{Error: message})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// healthHandler handles GET /health. Only this service's own database is
// checked; remote agent endpoints are excluded so an upstream outage cannot
// restart the orchestrator.
func (s *Server) healthHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(ctx, s.db.DB())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": dbHealth,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": dbHealth,
	})
}
