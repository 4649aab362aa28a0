package auth

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/studiowebux/apitest/internal/types"
)

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *types.AuthConfig
		want Strategy
	}{
		{"nil config", nil, None{}},
		{"bearer", &types.AuthConfig{Type: "bearer", Token: "t0k"}, Bearer{Token: "t0k"}},
		{"bearer mixed case", &types.AuthConfig{Type: " Bearer ", Token: "t0k"}, Bearer{Token: "t0k"}},
		{"bearer without token", &types.AuthConfig{Type: "bearer"}, None{}},
		{"basic", &types.AuthConfig{Type: "basic", Username: "u", Password: "p"}, Basic{Username: "u", Password: "p"}},
		{"basic without username", &types.AuthConfig{Type: "basic", Password: "p"}, None{}},
		{"api key default name", &types.AuthConfig{Type: "api_key", KeyValue: "k"}, APIKey{Name: DefaultAPIKeyHeader, Value: "k"}},
		{"api key custom name", &types.AuthConfig{Type: "api_key", KeyName: "X-Token", KeyValue: "k"}, APIKey{Name: "X-Token", Value: "k"}},
		{"api key without value", &types.AuthConfig{Type: "api_key", KeyName: "X-Token"}, None{}},
		{"unknown type", &types.AuthConfig{Type: "oauth2", Token: "t"}, None{}},
		{"missing type", &types.AuthConfig{Token: "t"}, None{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromConfig(tt.cfg))
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		strategy    Strategy
		headers     map[string]string
		credentials *Credentials
	}{
		{"none", None{}, nil, nil},
		{"nil strategy", nil, nil, nil},
		{"bearer", Bearer{Token: "abc"}, map[string]string{"Authorization": "Bearer abc"}, nil},
		{"api key", APIKey{Name: "X-API-Key", Value: "k"}, map[string]string{"X-API-Key": "k"}, nil},
		{"basic", Basic{Username: "u", Password: "p"}, nil, &Credentials{Username: "u", Password: "p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.strategy)
			assert.Equal(t, tt.headers, res.Headers)
			assert.Equal(t, tt.credentials, res.Credentials)
		})
	}
}

func TestMergeHeaders_AuthWinsAndInputsUntouched(t *testing.T) {
	base := map[string]string{"Authorization": "old", "Accept": "application/json"}
	extra := map[string]string{"Authorization": "Bearer new"}

	merged := MergeHeaders(base, extra)

	assert.Equal(t, map[string]string{"Authorization": "Bearer new", "Accept": "application/json"}, merged)
	assert.Equal(t, "old", base["Authorization"])

	merged["Accept"] = "text/plain"
	assert.Equal(t, "application/json", base["Accept"])
}

func TestMergeHeaders_AuthWinsAcrossLetterCase(t *testing.T) {
	base := map[string]string{"authorization": "stale", "x-api-key": "old", "Accept": "*/*"}
	extra := map[string]string{"Authorization": "Bearer new", "X-API-Key": "k1"}

	merged := MergeHeaders(base, extra)

	assert.Equal(t, map[string]string{
		"Authorization": "Bearer new",
		"X-API-Key":     "k1",
		"Accept":        "*/*",
	}, merged)
	assert.Equal(t, "stale", base["authorization"])
}

func TestResolve_ConcurrentCallsDoNotShareState(t *testing.T) {
	strategy := Bearer{Token: "abc"}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := Resolve(strategy)
			res.Headers["Authorization"] = "mutated"
		}()
	}
	wg.Wait()

	assert.Equal(t, "Bearer abc", Resolve(strategy).Headers["Authorization"])
}
