package mock

import "time"

// Variant selects how the sample auth API behaves
type Variant string

const (
	// VariantReal checks passwords and reports the user's real role
	VariantReal Variant = "real"
	// VariantDefect skips the password check and always reports role "user"
	VariantDefect Variant = "defect"
)

// Config represents the sample API server configuration
type Config struct {
	Addr    string            `json:"addr" yaml:"addr"`       // listen address (default: 127.0.0.1:8000)
	Variant Variant           `json:"variant" yaml:"variant"` // real or defect (default: real)
	Users   map[string]string `json:"users" yaml:"users"`     // email -> password
	Logging bool              `json:"logging" yaml:"logging"` // keep a request log
}

// DefaultUsers is the built-in user table
func DefaultUsers() map[string]string {
	return map[string]string{
		"user@test.com":  "password123",
		"admin@test.com": "admin123",
	}
}

// LoginRequest is the body of POST /login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Message string `json:"message"`
	Role    string `json:"role"`
}

// ErrorResponse carries a failure reason
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// RequestLog represents a logged request
type RequestLog struct {
	Timestamp time.Time     `json:"timestamp"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Status    int           `json:"status"`
	Duration  time.Duration `json:"duration"`
}
