package types

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/Laisky/errors/v2"
)

// StringMap is a string-to-string mapping that also accepts numbers and booleans
// as values, converting them to their literal text. Null values are dropped.
type StringMap map[string]string

// UnmarshalJSON implements custom JSON unmarshaling for StringMap
func (m *StringMap) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "expected an object of string values")
	}

	out := make(StringMap, len(raw))
	for key, value := range raw {
		text, ok, err := scalarText(value)
		if err != nil {
			return errors.Wrapf(err, "key %q", key)
		}
		if ok {
			out[key] = text
		}
	}
	*m = out
	return nil
}

func scalarText(raw json.RawMessage) (string, bool, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false, errors.Wrap(err, "decode value")
	}

	switch t := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return t, true, nil
	case json.Number:
		return t.String(), true, nil
	case bool:
		return strconv.FormatBool(t), true, nil
	default:
		return "", false, errors.Errorf("value must be a string, number or boolean, got %T", v)
	}
}

// Body is a request payload. A JSON string is kept as raw text and sent verbatim;
// any other JSON value (object, array, number, boolean) is kept in compact form and
// sent as a JSON document.
type Body struct {
	Raw  *string
	JSON json.RawMessage
}

// NewRawBody returns a body sent verbatim
func NewRawBody(text string) *Body {
	return &Body{Raw: &text}
}

// IsRaw reports whether the body is opaque text
func (b *Body) IsRaw() bool {
	return b.Raw != nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Body
func (b *Body) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		b.Raw = &text
		b.JSON = nil
		return nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return errors.Wrap(err, "body is not valid JSON")
	}
	b.Raw = nil
	b.JSON = compact.Bytes()
	return nil
}

// MarshalJSON implements custom JSON marshaling for Body
func (b Body) MarshalJSON() ([]byte, error) {
	if b.Raw != nil {
		return json.Marshal(*b.Raw)
	}
	if len(b.JSON) == 0 {
		return []byte("null"), nil
	}
	return b.JSON, nil
}

// Pair is one entry of an OrderedMap
type Pair struct {
	Key   string
	Value any
}

// OrderedMap is a JSON object decoded with its key order preserved.
// Values are decoded the way encoding/json decodes into any.
// A repeated key keeps its first position and takes the last value.
type OrderedMap []Pair

// Get returns the value stored under key
func (m OrderedMap) Get(key string) (any, bool) {
	for _, p := range m {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in insertion order
func (m OrderedMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for _, p := range m {
		keys = append(keys, p.Key)
	}
	return keys
}

// UnmarshalJSON implements custom JSON unmarshaling for OrderedMap
func (m *OrderedMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "read object start")
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.Errorf("expected an object, got %v", tok)
	}

	out := OrderedMap{}
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, "read object key")
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.Errorf("expected a string key, got %v", keyTok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return errors.Wrapf(err, "decode value of %q", key)
		}

		if i, seen := index[key]; seen {
			out[i].Value = value
			continue
		}
		index[key] = len(out)
		out = append(out, Pair{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return errors.Wrap(err, "read object end")
	}

	*m = out
	return nil
}

// MarshalJSON implements custom JSON marshaling for OrderedMap, keeping key order
func (m OrderedMap) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Key)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal key %q", p.Key)
		}
		value, err := json.Marshal(p.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal value of %q", p.Key)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
