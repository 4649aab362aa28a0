package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/go-playground/validator/v10"
	"github.com/studiowebux/apitest/internal/types"
)

// ParseError reports caller input that cannot become a RequestSpec.
// Nothing is sent over the network when parsing fails.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseErrorf(format string, args ...any) *ParseError {
	return &ParseError{Err: errors.Errorf(format, args...)}
}

// validate is safe for concurrent use once built
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Parse decodes caller input into a validated RequestSpec.
//
// Accepted inputs are a JSON document (string, []byte or json.RawMessage), an
// already structured value such as map[string]any, or a *types.RequestSpec.
// The method is upper-cased and defaults to GET. The timeout is left nil when
// absent so the caller can apply its own default.
func Parse(input any) (*types.RequestSpec, error) {
	var data []byte

	switch v := input.(type) {
	case nil:
		return nil, parseErrorf("input is empty")
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	case *types.RequestSpec:
		if v == nil {
			return nil, parseErrorf("input is empty")
		}
		spec := *v
		return finalize(&spec)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, &ParseError{Err: errors.Wrapf(err, "input of type %T is not JSON-compatible", input)}
		}
		data = encoded
	}

	return decode(data)
}

func decode(data []byte) (*types.RequestSpec, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, parseErrorf("input is empty")
	}
	if !json.Valid(trimmed) {
		var probe any
		err := json.Unmarshal(trimmed, &probe)
		return nil, &ParseError{Err: errors.Wrap(err, "invalid JSON input")}
	}
	if trimmed[0] != '{' {
		return nil, parseErrorf("input must be a JSON object")
	}

	var spec types.RequestSpec
	if err := json.Unmarshal(trimmed, &spec); err != nil {
		return nil, &ParseError{Err: errors.Wrap(err, "invalid request spec")}
	}

	return finalize(&spec)
}

func finalize(spec *types.RequestSpec) (*types.RequestSpec, error) {
	spec.URL = strings.TrimSpace(spec.URL)
	spec.Method = strings.ToUpper(strings.TrimSpace(spec.Method))
	if spec.Method == "" {
		spec.Method = types.MethodGet
	}

	if err := validate.Struct(spec); err != nil {
		return nil, &ParseError{Err: describe(err)}
	}

	return spec, nil
}

// describe turns validator output into a single readable message
func describe(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validate request spec")
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s, got %v",
				fe.Field(), strings.Join(types.Methods, ", "), fe.Value()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
