package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nightq/nightq/internal/auth"
	"github.com/nightq/nightq/internal/shared"
)

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 10 * time.Second

// Request describes one API call relative to the executor's base URL.
type Request struct {
	Method string
	Path   string
	Body   []byte
	Header http.Header
}

// Response is the outcome of an executed request. Body is fully read and
// the connection released before Response is returned.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Message extracts an API-provided "message" field from a JSON error body,
// falling back to the raw body text.
func (r *Response) Message() string {
	if r == nil {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(r.Body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return string(bytes.TrimSpace(r.Body))
}

// Authorizer supplies the bearer token and the recovery path for expired
// credentials. Satisfied by [auth.Controller].
type Authorizer interface {
	AccessToken() string
	RefreshToken(ctx context.Context) auth.RefreshStatus
	AwaitRefresh(ctx context.Context) auth.RefreshStatus
	Authenticate() error
}

// ErrorReporter receives API failure notifications. Success is never
// reported.
type ErrorReporter interface {
	APIError(message string)
}

// Executor performs authenticated HTTP calls with bounded
// refresh-and-retry on expired tokens.
type Executor struct {
	baseURL string
	authz   Authorizer
	client  *http.Client
	logger  *log.Logger
	report  ErrorReporter
}

// NewExecutor creates an executor rooted at baseURL. A nil client gets a
// fresh one with [DefaultTimeout].
func NewExecutor(baseURL string, authz Authorizer, client *http.Client, logger *log.Logger) *Executor {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Executor{
		baseURL: baseURL,
		authz:   authz,
		client:  client,
		logger:  logger,
	}
}

// SetReporter installs the failure sink. May be nil.
func (e *Executor) SetReporter(r ErrorReporter) {
	e.report = r
}

// Do executes the request with a bearer token. Without a stored token it
// fails before any network activity. A 401 triggers at most one token
// refresh followed by one retry; a second 401, any other status >= 400,
// or a transport failure is returned as-is after reporting.
func (e *Executor) Do(ctx context.Context, req Request) (*Response, error) {
	if e.authz.AccessToken() == "" {
		e.logger.Warn("request blocked, no access token", "path", req.Path)
		e.emit("not authenticated, login required")
		return nil, shared.ErrNoAccessToken
	}

	for attempt := 0; ; attempt++ {
		resp, err := e.once(ctx, req)
		if err != nil {
			e.emit(fmt.Sprintf("request failed: %v", err))
			return nil, fmt.Errorf("%w: %v", shared.ErrTransport, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			if e.recover(ctx) {
				continue
			}
			return resp, shared.ErrAuthExpired
		}

		if resp.StatusCode >= 400 {
			e.emit(fmt.Sprintf("API error: status %d", resp.StatusCode))
			return resp, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
		}

		return resp, nil
	}
}

// once performs a single HTTP exchange.
func (e *Executor) once(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, e.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+e.authz.AccessToken())
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{StatusCode: httpResp.StatusCode, Body: data}, nil
}

// recover attempts a token refresh after a 401. It reports true when the
// retry should proceed with the renewed token. When the refresh fails the
// failure is reported and a fresh interactive authentication is kicked off
// in the background.
func (e *Executor) recover(ctx context.Context) bool {
	status := e.authz.RefreshToken(ctx)
	if status == auth.RefreshWaiting {
		status = e.authz.AwaitRefresh(ctx)
	}

	switch status {
	case auth.RefreshDone:
		e.logger.Debug("token refreshed, retrying request")
		return true
	default:
		e.emit("authentication expired, re-login required")
		go func() {
			if err := e.authz.Authenticate(); err != nil {
				e.logger.Warn("re-authentication not started", "error", err)
			}
		}()
		return false
	}
}

func (e *Executor) emit(message string) {
	e.logger.Error(message)
	if e.report != nil {
		e.report.APIError(message)
	}
}
