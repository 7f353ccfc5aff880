package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/incident-ops/quorum/pkg/services"
)

// mapServiceError maps service-layer errors to an HTTP status and message.
func mapServiceError(err error) (int, string) {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return http.StatusBadRequest, validErr.Error()
	}
	if errors.Is(err, services.ErrNotFound) {
		return http.StatusNotFound, "resource not found"
	}
	if errors.Is(err, services.ErrAlreadyExists) {
		return http.StatusConflict, "resource already exists"
	}

	slog.Error("Unexpected service error", "error", err)
	return http.StatusInternalServerError, "internal server error"
}

// mapOrchestratorError maps a failed Execute call. The driver rejects bad
// invocation events with "invalid invocation event" errors; everything else
// is an internal failure.
func mapOrchestratorError(err error) (int, string) {
	if strings.Contains(err.Error(), "invalid invocation event") {
		return http.StatusBadRequest, err.Error()
	}
	slog.Error("Orchestration failed", "error", err)
	return http.StatusInternalServerError, "orchestration failed"
}
