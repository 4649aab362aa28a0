package filter

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/jmespath/go-jmespath"
)

// Apply applies filter and query expressions to a JSON document.
// Filter narrows results (e.g., validations[?starts_with(@, '✗')])
// Query transforms/selects fields (e.g., {ok: success, code: status_code})
// Both are JMESPath; the filter runs first and the query sees its output.
func Apply(body string, filter string, query string) (string, error) {
	result := body

	if filter = strings.TrimSpace(filter); filter != "" {
		filtered, err := applyJMESPath(result, filter)
		if err != nil {
			return "", errors.Wrap(err, "failed to apply filter")
		}
		result = filtered
	}

	if query = strings.TrimSpace(query); query != "" {
		queried, err := applyJMESPath(result, query)
		if err != nil {
			return "", errors.Wrap(err, "failed to apply query")
		}
		result = queried
	}

	return result, nil
}

// applyJMESPath applies a JMESPath expression to a JSON string
func applyJMESPath(jsonStr string, expression string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return "", errors.Wrap(err, "invalid JSON")
	}

	jp, err := jmespath.Compile(expression)
	if err != nil {
		return "", errors.Wrapf(err, "invalid JMESPath expression '%s'", expression)
	}

	result, err := jp.Search(data)
	if err != nil {
		return "", errors.Wrap(err, "JMESPath search failed")
	}

	if result == nil {
		return "null", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return "", errors.Wrap(err, "failed to marshal result")
	}

	return strings.TrimRight(buf.String(), "\n"), nil
}

// IsValidJMESPath checks if an expression is valid JMESPath syntax
func IsValidJMESPath(expression string) bool {
	_, err := jmespath.Compile(expression)
	return err == nil
}
