// Package evidence defines the shared contract for evidence gatherers: the
// tools agents call to pull signals, deploy history, runbook entries and
// similar context for an incident. Gatherers are best-effort inputs to a
// hypothesis, so the contract is built around graceful degradation: a
// gatherer reports PARTIAL or FAILED, it never panics outward and never
// stalls the caller past its soft budget.
package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Gather status values.
const (
	StatusSuccess = "SUCCESS"
	StatusPartial = "PARTIAL"
	StatusFailed  = "FAILED"
)

// DefaultTimeout is the soft time budget for one gather call.
const DefaultTimeout = 2 * time.Second

// Result list bounds. Oversized results are truncated, not rejected.
const (
	MaxItems       = 20
	MaxStringChars = 1000
)

// ToolRequest is the canonical gatherer input.
type ToolRequest struct {
	IncidentID string         `json:"incident_id"`
	StartTime  string         `json:"start_time,omitempty"` // ISO-8601
	EndTime    string         `json:"end_time,omitempty"`   // ISO-8601
	Filters    map[string]any `json:"filters,omitempty"`
	Limit      int            `json:"limit,omitempty"`
}

// ToolResponse is the canonical gatherer output.
type ToolResponse struct {
	Status     string           `json:"status"`
	Data       []map[string]any `json:"data"`
	Source     string           `json:"source"`
	QueriedAt  string           `json:"queried_at"`
	DurationMs int64            `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
}

// Gatherer pulls evidence from one source.
type Gatherer interface {
	// Name identifies the source in responses and logs.
	Name() string

	// Gather fetches evidence for the request. The context carries the time
	// budget; implementations should return what they have when it expires.
	Gather(ctx context.Context, req ToolRequest) ([]map[string]any, error)
}

// Gather runs one gatherer under the contract: time budget, panic
// containment, deterministic ordering and truncation. The returned response
// is always usable; a failure is a FAILED response, not an error.
func Gather(ctx context.Context, g Gatherer, req ToolRequest) ToolResponse {
	start := time.Now()
	queriedAt := start.UTC().Format(time.RFC3339)

	callCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	data, err := safeGather(callCtx, g, req)

	resp := ToolResponse{
		Source:     g.Name(),
		QueriedAt:  queriedAt,
		DurationMs: time.Since(start).Milliseconds(),
	}
	switch {
	case err != nil && len(data) == 0:
		resp.Status = StatusFailed
		resp.Error = err.Error()
		resp.Data = []map[string]any{}
	case err != nil:
		resp.Status = StatusPartial
		resp.Error = err.Error()
		resp.Data = Truncate(SortItems(data))
	default:
		resp.Status = StatusSuccess
		resp.Data = Truncate(SortItems(data))
	}
	if len(data) > limitFor(req) && resp.Status == StatusSuccess {
		resp.Status = StatusPartial
	}
	if resp.Status != StatusSuccess {
		slog.Warn("Evidence gather degraded",
			"source", g.Name(), "incident_id", req.IncidentID,
			"status", resp.Status, "error", resp.Error)
	}
	return resp
}

// safeGather contains gatherer panics: a panicking source degrades to an
// error like any other failure.
func safeGather(ctx context.Context, g Gatherer, req ToolRequest) (data []map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = fmt.Errorf("gatherer %s panicked: %v", g.Name(), r)
		}
	}()
	return g.Gather(ctx, req)
}

func limitFor(req ToolRequest) int {
	if req.Limit > 0 && req.Limit < MaxItems {
		return req.Limit
	}
	return MaxItems
}

// SortItems orders evidence items deterministically: by timestamp, then
// name, then score descending. Equal inputs always serialize identically, so
// downstream hypothesis hashes stay replayable.
func SortItems(items []map[string]any) []map[string]any {
	out := append([]map[string]any(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := stringField(out[i], "timestamp"), stringField(out[j], "timestamp")
		if ti != tj {
			return ti < tj
		}
		ni, nj := stringField(out[i], "name"), stringField(out[j], "name")
		if ni != nj {
			return ni < nj
		}
		return floatField(out[i], "score") > floatField(out[j], "score")
	})
	return out
}

// Truncate bounds an evidence list to MaxItems entries and every string
// value to MaxStringChars characters.
func Truncate(items []map[string]any) []map[string]any {
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	out := make([]map[string]any, len(items))
	for i, item := range items {
		truncated := make(map[string]any, len(item))
		for k, v := range item {
			if s, ok := v.(string); ok && len(s) > MaxStringChars {
				v = s[:MaxStringChars]
			}
			truncated[k] = v
		}
		out[i] = truncated
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
