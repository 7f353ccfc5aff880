// Package redaction strips PII from text before it leaves the process. It
// runs after cost computation so token accounting sees the real content, and
// before any persistence or logging of prompt/response text.
package redaction

import (
	"encoding/json"
	"fmt"

	"github.com/incident-ops/quorum/pkg/models"
)

// MaxVariableLength caps each sanitized prompt variable at 2KB.
const MaxVariableLength = 2048

// Redactor applies the PII pattern set. Created once at startup; thread-safe
// and stateless aside from compiled patterns.
type Redactor struct {
	patterns []*CompiledPattern
}

// New creates a Redactor with the built-in pattern set compiled.
func New() *Redactor {
	return &Redactor{patterns: defaultPatterns()}
}

// Redact replaces every PII match in text and returns the redacted text with
// the number of replaced spans.
func (r *Redactor) Redact(text string) (string, int) {
	if text == "" {
		return text, 0
	}

	redacted := text
	count := 0
	for _, p := range r.patterns {
		matches := p.Regex.FindAllStringIndex(redacted, -1)
		if len(matches) == 0 {
			continue
		}
		count += len(matches)
		redacted = p.Regex.ReplaceAllString(redacted, p.Replacement)
	}
	return redacted, count
}

// SanitizeVariables converts prompt variables to safe string form:
// stringify, redact, then truncate to MaxVariableLength with a marker.
// Stringification first prevents structured values from smuggling
// credentials past the patterns.
func (r *Redactor) SanitizeVariables(variables map[string]any) map[string]string {
	if len(variables) == 0 {
		return map[string]string{}
	}

	sanitized := make(map[string]string, len(variables))
	for key, value := range variables {
		str, ok := value.(string)
		if !ok {
			if b, err := json.Marshal(value); err == nil {
				str = string(b)
			} else {
				str = fmt.Sprintf("%v", value)
			}
		}

		redacted, _ := r.Redact(str)

		if len(redacted) > MaxVariableLength {
			redacted = redacted[:MaxVariableLength] + "...[TRUNCATED]"
		}
		sanitized[key] = redacted
	}
	return sanitized
}

// RedactTrace returns a copy of the trace with prompt text, response text
// and prompt variables redacted. The second return reports whether anything
// was replaced.
func (r *Redactor) RedactTrace(trace models.LLMTrace) (models.LLMTrace, bool) {
	redacted := false

	promptText, n := r.Redact(trace.Prompt.Text)
	trace.Prompt.Text = promptText
	redacted = redacted || n > 0

	responseText, n := r.Redact(trace.Response.Text)
	trace.Response.Text = responseText
	redacted = redacted || n > 0

	if len(trace.Prompt.Variables) > 0 {
		sanitized := r.SanitizeVariables(trace.Prompt.Variables)
		vars := make(map[string]any, len(sanitized))
		for k, v := range sanitized {
			if orig, ok := trace.Prompt.Variables[k].(string); !ok || orig != v {
				redacted = true
			}
			vars[k] = v
		}
		trace.Prompt.Variables = vars
	}

	return trace, redacted
}
