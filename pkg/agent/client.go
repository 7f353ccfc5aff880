// Package agent invokes one remote specialist agent and turns whatever comes
// back — a verdict, a guardrail intervention, or a transport failure — into a
// Hypothesis the rest of the graph can consume.
package agent

import "context"

// AgentClient is the transport interface for calling a remote agent
// endpoint. It wraps the streaming connection and provides a channel-based
// API: the returned channel is closed when the stream completes, and errors
// are delivered as ErrorChunk values in the channel.
type AgentClient interface {
	// Invoke sends the serialized input to the agent endpoint and returns a
	// stream of chunks.
	Invoke(ctx context.Context, input *InvokeInput) (<-chan Chunk, error)
}

// InvokeInput identifies the endpoint and carries the serialized request.
type InvokeInput struct {
	AgentID    string // logical agent id, for logging
	EndpointID string // remote agent id
	AliasID    string // published endpoint alias
	SessionID  string
	InputText  string // serialized request JSON
	Trace      bool   // request trace events (guardrail assessments arrive there)
}

// Chunk is the interface for all streaming chunk types.
type Chunk interface {
	chunkType() ChunkType
}

// ChunkType identifies the kind of streaming chunk.
type ChunkType string

const (
	ChunkTypeText      ChunkType = "text"
	ChunkTypeGuardrail ChunkType = "guardrail"
	ChunkTypeUsage     ChunkType = "usage"
	ChunkTypeError     ChunkType = "error"
)

// TextChunk is a piece of the agent's response text.
type TextChunk struct{ Content string }

// GuardrailChunk reports a guardrail assessment observed on the stream.
// Confidence is nil when the transport reported none; downstream defaults it
// to 1.0.
type GuardrailChunk struct {
	Blocked    bool
	Type       string
	Category   string
	Confidence *float64
}

// UsageChunk reports token consumption for this invocation.
type UsageChunk struct {
	InputTokens  int
	OutputTokens int
	Model        string
}

// ErrorChunk signals a transport error mid-stream.
type ErrorChunk struct {
	Message string
	Err     error
}

func (c *TextChunk) chunkType() ChunkType      { return ChunkTypeText }
func (c *GuardrailChunk) chunkType() ChunkType { return ChunkTypeGuardrail }
func (c *UsageChunk) chunkType() ChunkType     { return ChunkTypeUsage }
func (c *ErrorChunk) chunkType() ChunkType     { return ChunkTypeError }
