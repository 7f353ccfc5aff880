package redaction

import "regexp"

// CompiledPattern holds a pre-compiled PII pattern with its replacement
// marker.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// defaultPatterns returns the built-in PII patterns in application order.
// Order matters: the account-number pattern must not see digit runs already
// consumed by earlier patterns.
func defaultPatterns() []*CompiledPattern {
	return []*CompiledPattern{
		{
			Name:        "email",
			Regex:       regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
			Replacement: "[EMAIL_REDACTED]",
		},
		{
			Name:        "phone",
			Regex:       regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
			Replacement: "[PHONE_REDACTED]",
		},
		{
			Name:        "ssn",
			Regex:       regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			Replacement: "[SSN_REDACTED]",
		},
		{
			Name:        "aws_account",
			Regex:       regexp.MustCompile(`\b\d{12}\b`),
			Replacement: "[AWS_ACCOUNT_REDACTED]",
		},
		{
			Name:        "aws_access_key",
			Regex:       regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
			Replacement: "[AWS_KEY_REDACTED]",
		},
		{
			Name:        "ip_address",
			Regex:       regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`),
			Replacement: "[IP_REDACTED]",
		},
	}
}
