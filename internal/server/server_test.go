package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studiowebux/apitest/internal/config"
	"github.com/studiowebux/apitest/internal/mock"
	"github.com/studiowebux/apitest/internal/runner"
	"github.com/studiowebux/apitest/internal/types"
)

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *httptest.Server) {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	srv := New(cfg, runner.New(cfg), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func newSampleAPI(t *testing.T) string {
	t.Helper()
	ts := httptest.NewServer(mock.NewServer(&mock.Config{}, nil).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func postTest(t *testing.T, url, body string) (*http.Response, *types.APITestResult) {
	t.Helper()
	resp, err := http.Post(url+"/v1/tests", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var result types.APITestResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return resp, &result
}

func TestRunTest(t *testing.T) {
	target := newSampleAPI(t)
	_, ts := newTestServer(t, nil)

	tests := []struct {
		name    string
		body    string
		success bool
		prefix  string
	}{
		{"passing", `{"url": "` + target + `/health", "validate": {"json_path": {"status": "ok"}}}`, true, ""},
		{"failing rule", `{"url": "` + target + `/health", "validate": {"status_code": 201}}`, false, ""},
		{"invalid input", `{"method": "GET"}`, false, runner.PrefixParse},
		{"not json", `hello`, false, runner.PrefixParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, result := postTest(t, ts.URL, tt.body)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			assert.Equal(t, tt.success, result.Success)
			if tt.prefix != "" {
				assert.True(t, strings.HasPrefix(result.Error, tt.prefix), result.Error)
			} else {
				assert.Empty(t, result.Error)
			}
		})
	}
}

func TestRunTest_BodyTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.MaxBodyBytes = 16
	_, ts := newTestServer(t, cfg)

	resp, result := postTest(t, ts.URL, `{"url": "http://127.0.0.1:1/very/long/path"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "exceeds 16 bytes")
}

func TestRequestID(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	generated := resp.Header.Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
}

func TestMetrics(t *testing.T) {
	target := newSampleAPI(t)
	_, ts := newTestServer(t, nil)

	postTest(t, ts.URL, `{"url": "`+target+`/health"}`)
	postTest(t, ts.URL, `{"url": "`+target+`/health", "validate": {"status_code": 500}}`)
	postTest(t, ts.URL, `{}`)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	body := string(data)

	assert.Contains(t, body, `apitest_runs_total{outcome="passed"} 1`)
	assert.Contains(t, body, `apitest_runs_total{outcome="failed"} 1`)
	assert.Contains(t, body, `apitest_runs_total{outcome="error"} 1`)
	assert.Contains(t, body, "apitest_response_time_ms_count 2")
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomePassed, Outcome(&types.APITestResult{Success: true}))
	assert.Equal(t, OutcomeFailed, Outcome(&types.APITestResult{StatusCode: 404}))
	assert.Equal(t, OutcomeError, Outcome(&types.APITestResult{Error: "Request failed: refused"}))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	srv := New(config.Default(), runner.New(config.Default()), nil)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
