package types

import "strings"

// DefaultTimeoutSeconds is used when a request spec does not declare a timeout
const DefaultTimeoutSeconds = 30.0

// Supported HTTP methods
const (
	MethodGet     = "GET"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodPatch   = "PATCH"
	MethodDelete  = "DELETE"
	MethodHead    = "HEAD"
	MethodOptions = "OPTIONS"
)

// Methods lists every method a RequestSpec may declare
var Methods = []string{
	MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodHead, MethodOptions,
}

// RequestSpec describes a single HTTP request under test and the rules used to judge it
type RequestSpec struct {
	URL      string           `json:"url" validate:"required"`
	Method   string           `json:"method" validate:"oneof=GET POST PUT PATCH DELETE HEAD OPTIONS"`
	Headers  StringMap        `json:"headers,omitempty"`
	Body     *Body            `json:"body,omitempty"`
	Params   StringMap        `json:"params,omitempty"`
	Auth     *AuthConfig      `json:"auth,omitempty"`
	Timeout  *float64         `json:"timeout,omitempty" validate:"omitnil,gt=0"`
	Validate *ValidationRules `json:"validate,omitempty"`
}

// TimeoutOr returns the declared timeout in seconds, or fallback when none was declared
func (s *RequestSpec) TimeoutOr(fallback float64) float64 {
	if s.Timeout == nil {
		return fallback
	}
	return *s.Timeout
}

// SendsBody reports whether the spec's method carries a request body
func (s *RequestSpec) SendsBody() bool {
	return MethodSendsBody(s.Method)
}

// MethodSendsBody reports whether requests with this method carry a body
func MethodSendsBody(method string) bool {
	switch strings.ToUpper(method) {
	case MethodPost, MethodPut, MethodPatch:
		return true
	}
	return false
}

// AuthConfig is the wire form of an authentication strategy.
// Type selects the strategy: "bearer", "basic" or "api_key".
type AuthConfig struct {
	Type     string `json:"type"`
	Token    string `json:"token,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	KeyName  string `json:"key_name,omitempty"`
	KeyValue string `json:"key_value,omitempty"`
}

// ValidationRules holds the optional checks applied to a response.
// Every field is independent; a nil/empty field contributes no diagnostics.
type ValidationRules struct {
	StatusCode        *int       `json:"status_code,omitempty"`
	Contains          *string    `json:"contains,omitempty"`
	JSONPath          OrderedMap `json:"json_path,omitempty"`
	Headers           OrderedMap `json:"headers,omitempty"`
	MaxResponseTimeMs *float64   `json:"max_response_time_ms,omitempty"`
}

// APITestResult is the structured verdict of one API test
type APITestResult struct {
	Success        bool              `json:"success" yaml:"success"`
	StatusCode     int               `json:"status_code" yaml:"status_code"`
	ResponseTimeMs float64           `json:"response_time_ms" yaml:"response_time_ms"`
	ResponseBody   any               `json:"response_body" yaml:"response_body"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	Error          string            `json:"error,omitempty" yaml:"error,omitempty"`
	Validations    []string          `json:"validations" yaml:"validations"`
}
