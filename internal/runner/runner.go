// Package runner is the entry point of the API test engine. It turns caller
// input into exactly one APITestResult, whatever goes wrong along the way.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/studiowebux/apitest/internal/auth"
	"github.com/studiowebux/apitest/internal/config"
	"github.com/studiowebux/apitest/internal/executor"
	"github.com/studiowebux/apitest/internal/parser"
	"github.com/studiowebux/apitest/internal/types"
	"github.com/studiowebux/apitest/internal/validation"
)

// Error prefixes, one per failure kind
const (
	PrefixParse      = "Invalid input: "
	PrefixRequest    = "Request failed: "
	PrefixUnexpected = "Unexpected error: "
)

// Doer performs one HTTP exchange
type Doer interface {
	Execute(ctx context.Context, req *executor.Request) (*executor.Response, error)
}

// Runner executes API tests. It holds no per-run state and is safe for concurrent use
// as long as its Doer is.
type Runner struct {
	doer           Doer
	logger         *zap.Logger
	defaultTimeout float64
}

// Option configures a Runner
type Option func(*Runner)

// WithDoer replaces the HTTP executor
func WithDoer(doer Doer) Option {
	return func(r *Runner) {
		r.doer = doer
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New creates a Runner from cfg
func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		defaultTimeout: cfg.DefaultTimeout,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.doer == nil {
		r.doer = executor.New(executor.WithUserAgent(cfg.UserAgent))
	}
	if r.defaultTimeout <= 0 {
		r.defaultTimeout = types.DefaultTimeoutSeconds
	}
	return r
}

// Run parses input, performs the request and judges the response.
// It never panics and never returns nil; every failure is reported through
// the result's Error field with Success false.
func (r *Runner) Run(ctx context.Context, input any) (result *types.APITestResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("api test panicked", zap.Any("panic", rec))
			result = failure(PrefixUnexpected + fmt.Sprint(rec))
		}
	}()

	spec, err := parser.Parse(input)
	if err != nil {
		return r.Fail(err)
	}

	result, err = r.execute(ctx, spec)
	if err != nil {
		return r.Fail(err)
	}
	return result
}

// RunJSON is Run for text callers: JSON in, indented JSON out
func (r *Runner) RunJSON(ctx context.Context, input string) string {
	return Marshal(r.Run(ctx, input))
}

// Fail converts err into a failed result, choosing the message prefix from
// the error kind
func (r *Runner) Fail(err error) *types.APITestResult {
	var (
		parseErr   *parser.ParseError
		networkErr *executor.NetworkError
	)

	switch {
	case errors.As(err, &parseErr):
		r.logger.Warn("invalid api test input", zap.Error(err))
		return failure(PrefixParse + err.Error())
	case errors.As(err, &networkErr):
		r.logger.Warn("api test request failed", zap.Error(err))
		return failure(PrefixRequest + err.Error())
	default:
		r.logger.Error("api test failed unexpectedly", zap.Error(err))
		return failure(PrefixUnexpected + err.Error())
	}
}

func (r *Runner) execute(ctx context.Context, spec *types.RequestSpec) (*types.APITestResult, error) {
	strategy := auth.FromConfig(spec.Auth)
	resolution := auth.Resolve(strategy)

	timeout := spec.TimeoutOr(r.defaultTimeout)
	req := &executor.Request{
		Method:      spec.Method,
		URL:         spec.URL,
		Headers:     auth.MergeHeaders(spec.Headers, resolution.Headers),
		Params:      spec.Params,
		Body:        spec.Body,
		Credentials: resolution.Credentials,
		Timeout:     secondsToDuration(timeout),
	}

	r.logger.Debug("run api test",
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.String("auth", strategy.Kind()),
		zap.Float64("timeout_s", timeout))

	resp, err := r.doer.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("executor returned no response")
	}

	validations := validation.Validate(resp, spec.Validate)
	success := !executor.IsErrorStatus(resp.StatusCode) && !validation.HasFailures(validations)

	headers := resp.Headers
	if headers == nil {
		headers = map[string]string{}
	}

	r.logger.Info("api test finished",
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.Int("status", resp.StatusCode),
		zap.Float64("elapsed_ms", resp.ElapsedMs),
		zap.Int("validations", len(validations)),
		zap.Bool("success", success))

	return &types.APITestResult{
		Success:        success,
		StatusCode:     resp.StatusCode,
		ResponseTimeMs: resp.ElapsedMs,
		ResponseBody:   resp.Body,
		Headers:        headers,
		Validations:    validations,
	}, nil
}

// secondsToDuration converts a timeout in seconds, saturating at the largest
// representable duration instead of overflowing
func secondsToDuration(seconds float64) time.Duration {
	if seconds >= float64(math.MaxInt64)/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds * float64(time.Second))
}

func failure(message string) *types.APITestResult {
	return &types.APITestResult{
		Success:     false,
		Headers:     map[string]string{},
		Error:       message,
		Validations: []string{},
	}
}

// Marshal renders a result as two-space indented JSON
func Marshal(result *types.APITestResult) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fallback, _ := json.MarshalIndent(failure(PrefixUnexpected+err.Error()), "", "  ")
		return string(fallback)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
