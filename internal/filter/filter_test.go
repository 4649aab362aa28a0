package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const result = `{
  "success": false,
  "status_code": 200,
  "response_time_ms": 3.2,
  "response_body": {"message": "Login successful", "role": "user"},
  "headers": {"Content-Type": "application/json"},
  "validations": [
    "✓ Status code 200 matches expected",
    "✗ JSON path 'role' = \"user\" != expected \"admin\""
  ]
}`

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		query  string
		want   string
	}{
		{"passthrough", "", "", result},
		{"scalar query", "", "status_code", "200"},
		{"nested query", "", "response_body.role", `"user"`},
		{"missing field", "", "nope", "null"},
		{
			"filter then query",
			"validations[?starts_with(@, '✗')]",
			"length(@)",
			"1",
		},
		{
			"projection",
			"",
			"{ok: success, code: status_code}",
			"{\n  \"code\": 200,\n  \"ok\": false\n}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(result, tt.filter, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_Errors(t *testing.T) {
	_, err := Apply(result, "", "[[[")
	assert.ErrorContains(t, err, "failed to apply query")

	_, err = Apply(result, "validations[?", "")
	assert.ErrorContains(t, err, "failed to apply filter")

	_, err = Apply("not json", "", "a")
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestApply_KeepsNonASCII(t *testing.T) {
	got, err := Apply(result, "", "validations[0]")
	require.NoError(t, err)
	assert.Equal(t, `"✓ Status code 200 matches expected"`, got)
}

func TestIsValidJMESPath(t *testing.T) {
	assert.True(t, IsValidJMESPath("a.b[0]"))
	assert.False(t, IsValidJMESPath("a.["))
}
