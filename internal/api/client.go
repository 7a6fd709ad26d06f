// Package api is the HTTP client adapter for the blog REST backend. It
// attaches the bearer token, decodes error payloads into typed errors and
// runs the process-wide 401 hook.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"blogdesk/internal/models"
	"blogdesk/internal/observability"
)

const maxBodyBytes = 4 << 20

// TokenSource supplies the current bearer token; "" means anonymous.
type TokenSource interface {
	Token() string
}

// Client issues REST calls against a base URL.
type Client struct {
	baseURL string
	http    *http.Client

	mu              sync.RWMutex
	tokens          TokenSource
	onUnauthorized  []Hook
	onAuthenticated []Hook
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the underlying client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New returns a Client for baseURL, e.g. "http://localhost:8080/api/v1".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// SetTokenSource installs the source consulted by the request interceptor.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

// Hook observes the outcome of a non-public call. token is the bearer the
// call was sent with, or "" when none was attached.
type Hook func(ctx context.Context, token string)

// OnUnauthorized registers fn to run when a non-public call gets a 401.
// Hooks run synchronously, in registration order, before the call returns.
func (c *Client) OnUnauthorized(fn Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
}

// OnAuthenticated registers fn to run after a call sent with a bearer
// succeeds.
func (c *Client) OnAuthenticated(fn Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAuthenticated = append(c.onAuthenticated, fn)
}

// request describes one call. route is the path template used for metrics
// and span names. Public requests carry no bearer and never trigger the
// hooks; a 401 on one is a rejected credential, not an expired session.
type request struct {
	method string
	route  string
	path   string
	query  url.Values
	body   any
	public bool
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *Client) hooks() (unauthorized, authenticated []Hook) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onUnauthorized, c.onAuthenticated
}

// do sends r and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, r request, out any) (err error) {
	status := 0
	ctx, span := observability.StartClientSpan(ctx, r.method, r.route)
	track := observability.TrackRequest(r.method, r.route)
	defer func() {
		track(statusLabel(status))
		observability.EndSpan(span, status, err)
	}()

	req, err := c.newRequest(ctx, r)
	if err != nil {
		return models.NewNetworkError(0, err)
	}

	token := ""
	if !r.public {
		if token = c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.NewNetworkError(0, err)
	}
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.NewNetworkError(status, fmt.Errorf("read response body: %w", err))
	}

	onUnauthorized, onAuthenticated := c.hooks()

	if status == http.StatusUnauthorized && !r.public {
		for _, fn := range onUnauthorized {
			fn(ctx, token)
		}
		return models.NewAuthError(decodeErrorPayload(body).Error)
	}

	if status < 200 || status > 299 {
		payload := decodeErrorPayload(body)
		if payload.Error == "" {
			return models.NewNetworkError(status, fmt.Errorf("unexpected status %d", status))
		}
		appErr := models.NewValidationError(status, payload.Error)
		if payload.Code != "" {
			appErr.Code = payload.Code
		}
		return appErr
	}

	if token != "" {
		for _, fn := range onAuthenticated {
			fn(ctx, token)
		}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return models.NewNetworkError(status, fmt.Errorf("decode %s %s response: %w", r.method, r.route, err))
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

// decodeErrorPayload tolerates empty, non-JSON and non-object bodies.
func decodeErrorPayload(body []byte) models.ErrorResponse {
	var payload models.ErrorResponse
	if len(body) == 0 {
		return payload
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.ErrorResponse{}
	}
	payload.Error = strings.TrimSpace(payload.Error)
	return payload
}

func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}
