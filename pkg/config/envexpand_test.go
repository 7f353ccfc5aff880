package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("QUORUM_TEST_REGION", "us-west-2")

	out := ExpandEnv([]byte("region: {{.QUORUM_TEST_REGION}}"))
	assert.Equal(t, "region: us-west-2", string(out))
}

func TestExpandEnv_MissingVariable(t *testing.T) {
	out := ExpandEnv([]byte("id: '{{.QUORUM_DOES_NOT_EXIST_XYZ}}'"))
	assert.Equal(t, "id: ''", string(out))
}

func TestExpandEnv_DollarSignsUntouched(t *testing.T) {
	in := []byte(`pattern: "^secret.*$"
password: "p@ss$word"`)
	assert.Equal(t, in, ExpandEnv(in))
}

func TestExpandEnv_MalformedTemplatePassesThrough(t *testing.T) {
	in := []byte("broken: {{.UNCLOSED")
	assert.Equal(t, in, ExpandEnv(in))
}
