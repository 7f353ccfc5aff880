package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/incident-ops/quorum/pkg/models"
)

// outputSchema is the contract every agent response must satisfy. Parse
// failures are OUTPUT_VALIDATION_FAILED; a well-formed JSON object that this
// schema rejects is SCHEMA_VALIDATION_FAILED.
const outputSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["confidence", "findings", "disclaimer", "status"],
	"properties": {
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"status": {"enum": ["SUCCESS", "PARTIAL", "TIMEOUT", "FAILURE"]},
		"disclaimer": {"type": "string", "pattern": "HYPOTHESIS_ONLY_NOT_AUTHORITATIVE"},
		"findings": {"type": "object", "minProperties": 1},
		"reasoning": {"type": "string"},
		"citations": {"type": "array"}
	}
}`

// ParsedOutput is the validated agent response.
type ParsedOutput struct {
	Confidence float64
	Status     string
	Reasoning  string
	Disclaimer string
	Findings   map[string]any
	Citations  []map[string]any
}

// OutputValidator parses and validates the accumulated response text.
type OutputValidator struct {
	schema *jsonschema.Schema
}

// NewOutputValidator compiles the agent output schema. Compilation happens
// once at startup; a failure here is a programming bug.
func NewOutputValidator() (*OutputValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(outputSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to parse agent output schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("agent_output.json", doc); err != nil {
		return nil, fmt.Errorf("failed to add agent output schema: %w", err)
	}
	schema, err := compiler.Compile("agent_output.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile agent output schema: %w", err)
	}
	return &OutputValidator{schema: schema}, nil
}

// Parse validates the accumulated response text against the output contract.
// Errors come back as classified InvocationErrors.
func (v *OutputValidator) Parse(text string) (*ParsedOutput, error) {
	trimmed := strings.TrimSpace(stripCodeFence(text))
	if trimmed == "" {
		return nil, NewInvocationError(models.ErrCodeOutputValidationFailed, "agent returned empty response", nil)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, NewInvocationError(models.ErrCodeOutputValidationFailed, "agent response is not valid JSON", err)
	}

	if err := v.schema.Validate(raw); err != nil {
		return nil, NewInvocationError(models.ErrCodeSchemaValidationFailed, "agent response failed schema validation", err)
	}

	out := &ParsedOutput{
		Confidence: raw["confidence"].(float64),
		Status:     raw["status"].(string),
		Disclaimer: raw["disclaimer"].(string),
		Findings:   raw["findings"].(map[string]any),
	}
	if reasoning, ok := raw["reasoning"].(string); ok {
		out.Reasoning = reasoning
	}
	if citations, ok := raw["citations"].([]any); ok {
		for _, c := range citations {
			if cm, ok := c.(map[string]any); ok {
				out.Citations = append(out.Citations, cm)
			}
		}
	}
	return out, nil
}

// stripCodeFence tolerates agents wrapping their JSON in a fenced code block.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return trimmed
}
