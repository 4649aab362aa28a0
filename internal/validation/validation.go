// Package validation checks an executed response against declarative rules and
// reports one diagnostic line per check.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/studiowebux/apitest/internal/executor"
	"github.com/studiowebux/apitest/internal/jsonpath"
	"github.com/studiowebux/apitest/internal/types"
)

// Diagnostic prefixes
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Validate evaluates rules against resp in a fixed order:
// status code, contains, json_path entries, header entries, response time.
// json_path and header entries follow the order in which they were declared.
// Categories missing from rules produce nothing; nil rules produce an empty slice.
func Validate(resp *executor.Response, rules *types.ValidationRules) []string {
	results := []string{}
	if rules == nil {
		return results
	}

	if rules.StatusCode != nil {
		results = append(results, checkStatus(resp.StatusCode, *rules.StatusCode))
	}

	if rules.Contains != nil && *rules.Contains != "" {
		results = append(results, checkContains(resp.RawBody, *rules.Contains))
	}

	if len(rules.JSONPath) > 0 {
		if !resp.IsJSON {
			results = append(results, FailMark+" Response is not valid JSON")
		} else {
			for _, rule := range rules.JSONPath {
				results = append(results, checkJSONPath(resp.Body, rule.Key, rule.Value))
			}
		}
	}

	for _, rule := range rules.Headers {
		results = append(results, checkHeader(resp, rule.Key, rule.Value))
	}

	if rules.MaxResponseTimeMs != nil {
		results = append(results, checkResponseTime(resp.ElapsedMs, *rules.MaxResponseTimeMs))
	}

	return results
}

// IsFailure reports whether a diagnostic line records a failed check
func IsFailure(line string) bool {
	return strings.HasPrefix(line, FailMark)
}

// HasFailures reports whether any diagnostic records a failed check
func HasFailures(lines []string) bool {
	for _, line := range lines {
		if IsFailure(line) {
			return true
		}
	}
	return false
}

func checkStatus(actual, expected int) string {
	if actual == expected {
		return fmt.Sprintf("%s Status code %d matches expected", PassMark, actual)
	}
	return fmt.Sprintf("%s Status code %d != expected %d", FailMark, actual, expected)
}

func checkContains(text, needle string) string {
	if strings.Contains(text, needle) {
		return fmt.Sprintf("%s Response contains '%s'", PassMark, needle)
	}
	return fmt.Sprintf("%s Response does not contain '%s'", FailMark, needle)
}

func checkJSONPath(body any, path string, expected any) string {
	actual := jsonpath.Lookup(body, path)
	if equalJSON(actual, expected) {
		return fmt.Sprintf("%s JSON path '%s' = %s", PassMark, path, formatValue(expected))
	}
	return fmt.Sprintf("%s JSON path '%s' = %s != expected %s",
		FailMark, path, formatValue(actual), formatValue(expected))
}

func checkHeader(resp *executor.Response, name string, expected any) string {
	var actual any
	if values := resp.Header.Values(name); len(values) > 0 {
		actual = strings.Join(values, ", ")
	}

	if want, ok := expected.(string); ok && actual != nil && actual.(string) == want {
		return fmt.Sprintf("%s Header '%s' = %s", PassMark, name, formatValue(expected))
	}
	return fmt.Sprintf("%s Header '%s' = %s != expected %s",
		FailMark, name, formatValue(actual), formatValue(expected))
}

func checkResponseTime(elapsedMs, maxMs float64) string {
	if elapsedMs <= maxMs {
		return fmt.Sprintf("%s Response time %.2fms <= %gms", PassMark, elapsedMs, maxMs)
	}
	return fmt.Sprintf("%s Response time %.2fms > %gms", FailMark, elapsedMs, maxMs)
}

// equalJSON compares two values decoded by encoding/json
func equalJSON(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// formatValue renders v as compact JSON, with nil shown as null
func formatValue(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
