package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/studiowebux/apitest/internal/auth"
	"github.com/studiowebux/apitest/internal/types"
)

// NetworkError reports a request that never produced a complete response:
// connection refused, DNS failure, TLS failure, timeout, or a broken body read.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Request is a fully resolved request: auth headers are already merged into
// Headers and basic credentials travel separately in Credentials.
type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	Params      map[string]string
	Body        *types.Body
	Credentials *auth.Credentials
	Timeout     time.Duration
}

// Response is the outcome of one HTTP exchange
type Response struct {
	StatusCode int
	Header     http.Header
	Headers    map[string]string // flattened, multiple values joined with ", "
	RawBody    string
	Body       any  // decoded JSON, or RawBody when it is not JSON
	IsJSON     bool // whether RawBody decoded as JSON
	ElapsedMs  float64
}

// Executor performs HTTP exchanges. It is safe for concurrent use.
type Executor struct {
	client    *http.Client
	userAgent string
}

// Option configures an Executor
type Option func(*Executor)

// WithHTTPClient replaces the underlying client
func WithHTTPClient(client *http.Client) Option {
	return func(e *Executor) {
		e.client = client
	}
}

// WithUserAgent sets a User-Agent sent when the request does not carry one
func WithUserAgent(userAgent string) Option {
	return func(e *Executor) {
		e.userAgent = userAgent
	}
}

// New creates an Executor with its own connection pool
func New(opts ...Option) *Executor {
	e := &Executor{
		client: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute performs exactly one HTTP request.
//
// Elapsed time covers dispatch through the last byte of the response body.
// Every failure to obtain a complete response is a *NetworkError.
func (e *Executor) Execute(ctx context.Context, req *Request) (*Response, error) {
	target, err := buildURL(req.URL, req.Params)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	bodyReader, contentType := encodeBody(req.Method, req.Body)

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bodyReader)
	if err != nil {
		return nil, &NetworkError{Err: errors.Wrap(err, "failed to create request")}
	}

	for key, value := range req.Headers {
		if strings.EqualFold(key, "Host") {
			httpReq.Host = value
			continue
		}
		httpReq.Header.Set(key, value)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if e.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", e.userAgent)
	}
	if req.Credentials != nil {
		httpReq.SetBasicAuth(req.Credentials.Username, req.Credentials.Password)
	}

	startTime := time.Now()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	elapsed := time.Since(startTime)
	if err != nil {
		return nil, &NetworkError{Err: errors.Wrap(err, "failed to read response body")}
	}

	// Build response headers map
	headers := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		headers[key] = strings.Join(values, ", ")
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Headers:    headers,
		RawBody:    string(bodyBytes),
		ElapsedMs:  float64(elapsed) / float64(time.Millisecond),
	}

	var decoded any
	if err := json.Unmarshal(bodyBytes, &decoded); err == nil {
		result.Body = decoded
		result.IsJSON = true
	} else {
		result.Body = result.RawBody
	}

	return result, nil
}

// buildURL appends params to the query string of rawURL, after any query it already has
func buildURL(rawURL string, params map[string]string) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrap(err, "invalid url")
	}
	query := url.Values{}
	for key, value := range params {
		query.Add(key, value)
	}

	// the query already in rawURL is kept as written
	if u.RawQuery == "" {
		u.RawQuery = query.Encode()
	} else {
		u.RawQuery += "&" + query.Encode()
	}
	return u.String(), nil
}

// encodeBody returns the payload for methods that carry one.
// Raw text is sent verbatim; other JSON values are sent as JSON.
func encodeBody(method string, body *types.Body) (io.Reader, string) {
	if body == nil {
		return nil, ""
	}
	if !types.MethodSendsBody(method) {
		return nil, ""
	}
	if body.IsRaw() {
		return strings.NewReader(*body.Raw), ""
	}
	if len(body.JSON) == 0 {
		return nil, ""
	}
	return bytes.NewReader(body.JSON), "application/json"
}

// IsErrorStatus reports whether status is a 4xx or 5xx code
func IsErrorStatus(status int) bool {
	return status >= 400
}
