package evidence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGatherer struct {
	name   string
	data   []map[string]any
	err    error
	panics bool
	delay  time.Duration
}

func (g *fakeGatherer) Name() string { return g.name }

func (g *fakeGatherer) Gather(ctx context.Context, _ ToolRequest) ([]map[string]any, error) {
	if g.panics {
		panic("gatherer bug")
	}
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.data, g.err
}

func TestGather_Success(t *testing.T) {
	g := &fakeGatherer{name: "cloudwatch", data: []map[string]any{
		{"timestamp": "2026-08-25T10:00:00Z", "name": "alarm-b"},
		{"timestamp": "2026-08-25T09:00:00Z", "name": "alarm-a"},
	}}

	resp := Gather(context.Background(), g, ToolRequest{IncidentID: "INC-1"})

	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "cloudwatch", resp.Source)
	assert.Empty(t, resp.Error)
	require.Len(t, resp.Data, 2)
	// Deterministic ordering: earliest timestamp first.
	assert.Equal(t, "alarm-a", resp.Data[0]["name"])
	assert.NotEmpty(t, resp.QueriedAt)
}

func TestGather_FailureIsResponseNotError(t *testing.T) {
	g := &fakeGatherer{name: "deploys", err: errors.New("api throttled")}

	resp := Gather(context.Background(), g, ToolRequest{IncidentID: "INC-1"})

	assert.Equal(t, StatusFailed, resp.Status)
	assert.Equal(t, "api throttled", resp.Error)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
}

func TestGather_PartialKeepsData(t *testing.T) {
	g := &fakeGatherer{
		name: "deploys",
		data: []map[string]any{{"name": "deploy-1"}},
		err:  errors.New("second page failed"),
	}

	resp := Gather(context.Background(), g, ToolRequest{IncidentID: "INC-1"})

	assert.Equal(t, StatusPartial, resp.Status)
	assert.Equal(t, "second page failed", resp.Error)
	require.Len(t, resp.Data, 1)
}

func TestGather_PanicIsContained(t *testing.T) {
	g := &fakeGatherer{name: "runbooks", panics: true}

	resp := Gather(context.Background(), g, ToolRequest{IncidentID: "INC-1"})

	assert.Equal(t, StatusFailed, resp.Status)
	assert.Contains(t, resp.Error, "panicked")
}

func TestGather_TimeBudget(t *testing.T) {
	g := &fakeGatherer{name: "slow-source", delay: 10 * time.Second}

	start := time.Now()
	resp := Gather(context.Background(), g, ToolRequest{IncidentID: "INC-1"})

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, StatusFailed, resp.Status)
	assert.Contains(t, resp.Error, "context deadline exceeded")
}

func TestGather_OversizedResultTruncatedToPartial(t *testing.T) {
	var data []map[string]any
	for i := 0; i < 30; i++ {
		data = append(data, map[string]any{"name": fmt.Sprintf("item-%02d", i)})
	}
	g := &fakeGatherer{name: "metrics", data: data}

	resp := Gather(context.Background(), g, ToolRequest{IncidentID: "INC-1"})

	assert.Equal(t, StatusPartial, resp.Status)
	assert.Len(t, resp.Data, MaxItems)
}

func TestSortItems_Deterministic(t *testing.T) {
	items := []map[string]any{
		{"timestamp": "t2", "name": "b", "score": 0.5},
		{"timestamp": "t1", "name": "z", "score": 0.1},
		{"timestamp": "t2", "name": "a", "score": 0.9},
		{"timestamp": "t2", "name": "a", "score": 0.2},
	}

	sorted := SortItems(items)
	assert.Equal(t, "z", sorted[0]["name"])
	assert.Equal(t, "a", sorted[1]["name"])
	assert.Equal(t, 0.9, sorted[1]["score"])
	assert.Equal(t, 0.2, sorted[2]["score"])
	assert.Equal(t, "b", sorted[3]["name"])

	// Input order must not leak through for equal keys.
	shuffled := []map[string]any{items[2], items[0], items[3], items[1]}
	again := SortItems(shuffled)
	assert.Equal(t, sorted, again)

	// Original slice untouched.
	assert.Equal(t, "b", items[0]["name"])
}

func TestTruncate_BoundsStrings(t *testing.T) {
	long := strings.Repeat("x", 5000)
	out := Truncate([]map[string]any{{"log": long, "count": 3}})

	require.Len(t, out, 1)
	assert.Len(t, out[0]["log"].(string), MaxStringChars)
	assert.Equal(t, 3, out[0]["count"])
}
