package agent

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	bratypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

// InvokeAgentAPI mirrors the subset of the Bedrock agent runtime client the
// adapter needs. It matches *bedrockagentruntime.Client so callers can pass
// either the real client or a fake in tests.
type InvokeAgentAPI interface {
	InvokeAgent(ctx context.Context, params *bedrockagentruntime.InvokeAgentInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.InvokeAgentOutput, error)
}

// BedrockClient implements AgentClient on top of the Bedrock agent runtime.
// The response arrives as an event stream: payload chunks carry the agent's
// text, trace events carry guardrail assessments and token usage.
type BedrockClient struct {
	runtime InvokeAgentAPI
}

// NewBedrockClient creates an AgentClient backed by the given runtime.
func NewBedrockClient(runtime InvokeAgentAPI) *BedrockClient {
	return &BedrockClient{runtime: runtime}
}

// Invoke calls the agent endpoint and returns a channel of chunks. The pump
// goroutine owns the event stream and closes the channel when it ends.
func (c *BedrockClient) Invoke(ctx context.Context, input *InvokeInput) (<-chan Chunk, error) {
	out, err := c.runtime.InvokeAgent(ctx, &bedrockagentruntime.InvokeAgentInput{
		AgentId:      aws.String(input.EndpointID),
		AgentAliasId: aws.String(input.AliasID),
		SessionId:    aws.String(input.SessionID),
		InputText:    aws.String(input.InputText),
		EnableTrace:  aws.Bool(input.Trace),
	})
	if err != nil {
		return nil, fmt.Errorf("invoke agent %s failed: %w", input.AgentID, err)
	}

	stream := out.GetStream()
	ch := make(chan Chunk, 32)
	go func() {
		defer close(ch)
		defer func() { _ = stream.Close() }()

		for event := range stream.Events() {
			chunk := fromStreamEvent(event)
			if chunk == nil {
				continue
			}
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil {
			select {
			case ch <- &ErrorChunk{Message: err.Error(), Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}

// fromStreamEvent translates one event-stream member into a chunk. Events the
// orchestrator has no use for (return-control, files) are dropped.
func fromStreamEvent(event bratypes.ResponseStream) Chunk {
	switch e := event.(type) {
	case *bratypes.ResponseStreamMemberChunk:
		if len(e.Value.Bytes) == 0 {
			return nil
		}
		return &TextChunk{Content: string(e.Value.Bytes)}
	case *bratypes.ResponseStreamMemberTrace:
		return fromTracePart(e.Value)
	default:
		return nil
	}
}

func fromTracePart(part bratypes.TracePart) Chunk {
	switch t := part.Trace.(type) {
	case *bratypes.TraceMemberGuardrailTrace:
		return fromGuardrailTrace(t.Value)
	case *bratypes.TraceMemberOrchestrationTrace:
		return fromOrchestrationTrace(t.Value)
	default:
		return nil
	}
}

func fromGuardrailTrace(trace bratypes.GuardrailTrace) Chunk {
	chunk := &GuardrailChunk{
		Blocked: trace.Action == bratypes.GuardrailActionIntervened,
	}

	assessments := append(append([]bratypes.GuardrailAssessment{}, trace.InputAssessments...), trace.OutputAssessments...)
	for _, a := range assessments {
		if a.ContentPolicy != nil && len(a.ContentPolicy.Filters) > 0 {
			filter := a.ContentPolicy.Filters[0]
			chunk.Type = "CONTENT_POLICY"
			chunk.Category = string(filter.Type)
			chunk.Confidence = filterConfidence(filter.Confidence)
			break
		}
		if a.TopicPolicy != nil && len(a.TopicPolicy.Topics) > 0 {
			chunk.Type = "TOPIC_POLICY"
			chunk.Category = aws.ToString(a.TopicPolicy.Topics[0].Name)
			break
		}
		if a.SensitiveInformationPolicy != nil {
			chunk.Type = "SENSITIVE_INFORMATION"
			break
		}
		if a.WordPolicy != nil {
			chunk.Type = "WORD_POLICY"
			break
		}
	}
	if chunk.Type == "" {
		chunk.Type = "GUARDRAIL"
	}
	return chunk
}

// filterConfidence maps the categorical filter confidence onto [0,1]. Absent
// or unrecognized levels stay nil so the violation default (1.0) applies.
func filterConfidence(c bratypes.GuardrailContentFilterConfidence) *float64 {
	var v float64
	switch c {
	case bratypes.GuardrailContentFilterConfidenceHigh:
		v = 1.0
	case bratypes.GuardrailContentFilterConfidenceMedium:
		v = 0.66
	case bratypes.GuardrailContentFilterConfidenceLow:
		v = 0.33
	default:
		return nil
	}
	return &v
}

func fromOrchestrationTrace(trace bratypes.OrchestrationTrace) Chunk {
	out, ok := trace.(*bratypes.OrchestrationTraceMemberModelInvocationOutput)
	if !ok || out.Value.Metadata == nil || out.Value.Metadata.Usage == nil {
		return nil
	}
	usage := out.Value.Metadata.Usage
	return &UsageChunk{
		InputTokens:  int(aws.ToInt32(usage.InputTokens)),
		OutputTokens: int(aws.ToInt32(usage.OutputTokens)),
	}
}
