// Package jsonpath resolves dot-separated path expressions such as "data.items.0.id"
// against values decoded by encoding/json.
package jsonpath

import (
	"strconv"
	"strings"
)

// Lookup walks data one segment of path at a time.
//
// Against an object a segment is a key. Against an array a segment must be a
// non-negative decimal index within bounds. Any segment that cannot be resolved
// ends the walk and Lookup returns nil.
//
// A value that is present but JSON null also yields nil, so callers cannot tell
// "null" apart from "not found".
func Lookup(data any, path string) any {
	current := data

	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			current = node[segment]
		case []any:
			idx, ok := index(segment)
			if !ok || idx >= len(node) {
				return nil
			}
			current = node[idx]
		default:
			return nil
		}

		if current == nil {
			return nil
		}
	}

	return current
}

// index parses an all-digit segment
func index(segment string) (int, bool) {
	if segment == "" {
		return 0, false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(segment)
	if err != nil {
		return 0, false
	}
	return n, true
}
