package validation

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studiowebux/apitest/internal/executor"
	"github.com/studiowebux/apitest/internal/types"
)

func jsonResponse(t *testing.T, status int, body string) *executor.Response {
	t.Helper()
	var decoded any
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	return &executor.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}, "X-Request-Id": {"abc"}},
		Headers:    map[string]string{"Content-Type": "application/json", "X-Request-Id": "abc"},
		RawBody:    body,
		Body:       decoded,
		IsJSON:     true,
		ElapsedMs:  42.5,
	}
}

func textResponse(status int, body string) *executor.Response {
	return &executor.Response{
		StatusCode: status,
		Header:     http.Header{},
		Headers:    map[string]string{},
		RawBody:    body,
		Body:       body,
		ElapsedMs:  10,
	}
}

func rules(t *testing.T, doc string) *types.ValidationRules {
	t.Helper()
	var r types.ValidationRules
	require.NoError(t, json.Unmarshal([]byte(doc), &r))
	return &r
}

func TestValidate_NoRules(t *testing.T) {
	resp := jsonResponse(t, 200, `{}`)

	out := Validate(resp, nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	assert.Empty(t, Validate(resp, &types.ValidationRules{}))
}

func TestValidate_StatusCode(t *testing.T) {
	resp := jsonResponse(t, 404, `{"detail": "User not found"}`)

	out := Validate(resp, rules(t, `{"status_code": 200}`))
	assert.Equal(t, []string{"✗ Status code 404 != expected 200"}, out)

	out = Validate(resp, rules(t, `{"status_code": 404}`))
	assert.Equal(t, []string{"✓ Status code 404 matches expected"}, out)
}

func TestValidate_ContainsUsesRawText(t *testing.T) {
	resp := jsonResponse(t, 200, `{"message": "Login successful"}`)

	assert.Equal(t, []string{"✓ Response contains 'Login successful'"},
		Validate(resp, rules(t, `{"contains": "Login successful"}`)))
	assert.Equal(t, []string{"✓ Response contains '\"message\"'"},
		Validate(resp, rules(t, `{"contains": "\"message\""}`)))
	assert.Equal(t, []string{"✗ Response does not contain 'denied'"},
		Validate(resp, rules(t, `{"contains": "denied"}`)))
	assert.Empty(t, Validate(resp, rules(t, `{"contains": ""}`)))
}

func TestValidate_JSONPath(t *testing.T) {
	resp := jsonResponse(t, 200, `{"role": "user", "id": 7, "tags": ["a", "b"], "active": true}`)

	out := Validate(resp, rules(t, `{"json_path": {
		"role": "admin",
		"id": 7,
		"tags.1": "b",
		"active": true,
		"missing": "x",
		"tags": ["a", "b"]
	}}`))

	assert.Equal(t, []string{
		`✗ JSON path 'role' = "user" != expected "admin"`,
		`✓ JSON path 'id' = 7`,
		`✓ JSON path 'tags.1' = "b"`,
		`✓ JSON path 'active' = true`,
		`✗ JSON path 'missing' = null != expected "x"`,
		`✓ JSON path 'tags' = ["a","b"]`,
	}, out)
}

func TestValidate_JSONPathNullMatchesMissing(t *testing.T) {
	resp := jsonResponse(t, 200, `{"a": null}`)

	out := Validate(resp, rules(t, `{"json_path": {"a": null, "b": null}}`))
	assert.Equal(t, []string{`✓ JSON path 'a' = null`, `✓ JSON path 'b' = null`}, out)
}

func TestValidate_JSONPathOnNonJSONBody(t *testing.T) {
	resp := textResponse(200, "<html></html>")

	out := Validate(resp, rules(t, `{"json_path": {"a": 1, "b": 2}}`))
	assert.Equal(t, []string{"✗ Response is not valid JSON"}, out)
}

func TestValidate_Headers(t *testing.T) {
	resp := jsonResponse(t, 200, `{}`)

	out := Validate(resp, rules(t, `{"headers": {
		"content-type": "application/json",
		"X-Request-Id": "xyz",
		"X-Missing": "v",
		"X-Request-ID": 5
	}}`))

	assert.Equal(t, []string{
		`✓ Header 'content-type' = "application/json"`,
		`✗ Header 'X-Request-Id' = "abc" != expected "xyz"`,
		`✗ Header 'X-Missing' = null != expected "v"`,
		`✗ Header 'X-Request-ID' = "abc" != expected 5`,
	}, out)
}

func TestValidate_ResponseTime(t *testing.T) {
	resp := jsonResponse(t, 200, `{}`)

	assert.Equal(t, []string{"✓ Response time 42.50ms <= 500ms"},
		Validate(resp, rules(t, `{"max_response_time_ms": 500}`)))
	assert.Equal(t, []string{"✓ Response time 42.50ms <= 42.5ms"},
		Validate(resp, rules(t, `{"max_response_time_ms": 42.5}`)))
	assert.Equal(t, []string{"✗ Response time 42.50ms > 10ms"},
		Validate(resp, rules(t, `{"max_response_time_ms": 10}`)))
}

func TestValidate_FixedOrder(t *testing.T) {
	resp := jsonResponse(t, 200, `{"p1": 1, "p2": 2}`)

	// declared in an order different from evaluation order
	out := Validate(resp, rules(t, `{
		"max_response_time_ms": 1000,
		"headers": {"Content-Type": "application/json"},
		"json_path": {"p2": 2, "p1": 1},
		"contains": "p1",
		"status_code": 200
	}`))

	require.Len(t, out, 6)
	prefixes := []string{
		"✓ Status code",
		"✓ Response contains",
		"✓ JSON path 'p2'",
		"✓ JSON path 'p1'",
		"✓ Header 'Content-Type'",
		"✓ Response time",
	}
	for i, prefix := range prefixes {
		assert.True(t, strings.HasPrefix(out[i], prefix), "line %d: %q should start with %q", i, out[i], prefix)
	}
}

func TestIsFailure(t *testing.T) {
	assert.True(t, IsFailure("✗ Status code 404 != expected 200"))
	assert.False(t, IsFailure("✓ Status code 200 matches expected"))
	assert.False(t, IsFailure("✓ Response contains '✗'"))

	assert.False(t, HasFailures(nil))
	assert.False(t, HasFailures([]string{"✓ a", "✓ b"}))
	assert.True(t, HasFailures([]string{"✓ a", "✗ b"}))
}
