// Package auth maps a request's authentication config to what the transport needs:
// extra headers (bearer, api key) or basic credentials handed to the HTTP request.
package auth

import (
	"strings"

	"github.com/studiowebux/apitest/internal/types"
)

// DefaultAPIKeyHeader is the header used by the api_key strategy when no key_name is given
const DefaultAPIKeyHeader = "X-API-Key"

// Strategy is one way of authenticating a request.
// The set is closed: only this package can add a case, and every case
// must say how it resolves.
type Strategy interface {
	Kind() string
	resolve() Resolution
}

// None sends no authentication
type None struct{}

// Bearer sends "Authorization: Bearer <token>"
type Bearer struct {
	Token string
}

// Basic hands the credential pair to the transport; it never becomes a header here
type Basic struct {
	Username string
	Password string
}

// APIKey sends the key value under a named header
type APIKey struct {
	Name  string
	Value string
}

func (None) Kind() string   { return "none" }
func (Bearer) Kind() string { return "bearer" }
func (Basic) Kind() string  { return "basic" }
func (APIKey) Kind() string { return "api_key" }

func (None) resolve() Resolution { return Resolution{} }

func (b Bearer) resolve() Resolution {
	return Resolution{Headers: map[string]string{"Authorization": "Bearer " + b.Token}}
}

func (b Basic) resolve() Resolution {
	return Resolution{Credentials: &Credentials{Username: b.Username, Password: b.Password}}
}

func (k APIKey) resolve() Resolution {
	return Resolution{Headers: map[string]string{k.Name: k.Value}}
}

// Credentials is a basic-auth pair applied by the transport
type Credentials struct {
	Username string
	Password string
}

// Resolution is what a strategy contributes to a request.
// At most one of Headers and Credentials is set.
type Resolution struct {
	Headers     map[string]string
	Credentials *Credentials
}

// FromConfig selects the strategy described by cfg.
// A nil config, an unknown type or a config missing its secret yields None.
func FromConfig(cfg *types.AuthConfig) Strategy {
	if cfg == nil {
		return None{}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "bearer":
		if cfg.Token == "" {
			return None{}
		}
		return Bearer{Token: cfg.Token}
	case "basic":
		if cfg.Username == "" {
			return None{}
		}
		return Basic{Username: cfg.Username, Password: cfg.Password}
	case "api_key":
		if cfg.KeyValue == "" {
			return None{}
		}
		name := cfg.KeyName
		if name == "" {
			name = DefaultAPIKeyHeader
		}
		return APIKey{Name: name, Value: cfg.KeyValue}
	default:
		return None{}
	}
}

// Resolve returns the headers or credentials contributed by s
func Resolve(s Strategy) Resolution {
	if s == nil {
		return Resolution{}
	}
	return s.resolve()
}

// MergeHeaders returns a new map holding base overlaid with extra.
// Header names compare case-insensitively: a base entry whose name matches an
// extra entry in any letter case is dropped, so extra always wins. Neither
// input is modified.
func MergeHeaders(base, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		if hasHeader(extra, k) {
			continue
		}
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
