// the client package is used by the CLI and the local gateway to call the Tukey analytics API.
// The client translates error responses from the API into ClientError values that carry both a
// user-friendly message (see ErrorMessage in errors.go) and the technical detail needed for logging.
//
// Every request passes through the configured request hooks before it is sent, and every outcome
// (success or failure) passes through the response hooks before it is returned to the caller.
// Failures are always returned to the caller, the hooks only perform cross-cutting side effects.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tukey-analytics/tukey/internal/apperrors"
	"github.com/tukey-analytics/tukey/internal/metrics"
	"github.com/tukey-analytics/tukey/internal/version"
)

const (
	// DefaultTimeout applies to the whole request, including reading the response body
	DefaultTimeout = 300 * time.Second

	contentTypeJSON = "application/json"
)

// RequestHook can modify an outgoing request. Returning an error aborts the call.
type RequestHook func(req *http.Request) error

// ResponseHook observes the outcome of a call. res is nil when no response was received.
type ResponseHook func(req *http.Request, res *http.Response, err error)

// UnauthorizedEvent is published when the API responds with 401
type UnauthorizedEvent struct {
	Operation string
	Path      string
}

// UnauthorizedHandler subscribes to session invalidation events
type UnauthorizedHandler func(ctx context.Context, ev UnauthorizedEvent)

// Client handles communication with the Tukey analytics API
type Client struct {
	baseURL        string
	httpClient     *http.Client
	logger         *slog.Logger
	requestHooks   []RequestHook
	responseHooks  []ResponseHook
	unauthorized   []UnauthorizedHandler
	metrics        *metrics.ClientMetrics
	devLoginBypass bool
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (the timeout set on it is kept)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithRequestHook(hook RequestHook) Option {
	return func(c *Client) {
		c.requestHooks = append(c.requestHooks, hook)
	}
}

func WithResponseHook(hook ResponseHook) Option {
	return func(c *Client) {
		c.responseHooks = append(c.responseHooks, hook)
	}
}

// WithUnauthorizedHandler registers a subscriber for 401 responses
func WithUnauthorizedHandler(handler UnauthorizedHandler) Option {
	return func(c *Client) {
		c.unauthorized = append(c.unauthorized, handler)
	}
}

func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithDevLoginBypass enables the fixed development credentials, see Login
func WithDevLoginBypass(enabled bool) Option {
	return func(c *Client) {
		c.devLoginBypass = enabled
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnUnauthorized registers a 401 subscriber after construction.
// It must not be called concurrently with requests.
func (c *Client) OnUnauthorized(handler UnauthorizedHandler) {
	c.unauthorized = append(c.unauthorized, handler)
}

// AddRequestHook appends a request hook after construction, for hooks that depend on
// objects built from the client (such as the session store). Same restriction as OnUnauthorized.
func (c *Client) AddRequestHook(hook RequestHook) {
	c.requestHooks = append(c.requestHooks, hook)
}

// BaseURL returns the API base address the client was configured with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// apiRequest describes one call to the API.
// op is a short description of the operation used in log messages and metric labels.
type apiRequest struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// do sends the request and decodes a successful JSON response into out (out may be nil)
func (c *Client) do(ctx context.Context, ar apiRequest, out any) error {
	start := time.Now()

	target := c.baseURL + ar.path
	if len(ar.query) > 0 {
		target += "?" + ar.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, ar.method, target, ar.body)
	if err != nil {
		cerr := NewClientInternalError(err, "creating "+ar.op+" request")
		c.observe(ar, nil, cerr, start)
		c.runResponseHooks(ar, nil, nil, cerr)
		return cerr
	}

	contentType := ar.contentType
	if contentType == "" {
		contentType = contentTypeJSON
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", version.UserAgent())

	for _, hook := range c.requestHooks {
		if err := hook(req); err != nil {
			cerr := NewClientInternalError(err, "preparing "+ar.op+" request")
			c.observe(ar, req, cerr, start)
			c.runResponseHooks(ar, req, nil, cerr)
			return cerr
		}
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		cerr := NewClientConnectionError(err)
		c.observe(ar, req, cerr, start)
		c.runResponseHooks(ar, req, nil, cerr)
		return cerr
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		cerr := NewClientApiError(res)
		c.observe(ar, req, cerr, start)
		c.runResponseHooks(ar, req, res, cerr)
		return cerr
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			cerr := NewClientInternalError(err, "decoding "+ar.op+" response")
			c.observe(ar, req, cerr, start)
			c.runResponseHooks(ar, req, res, cerr)
			return cerr
		}
	}

	c.observe(ar, req, nil, start)
	c.runResponseHooks(ar, req, res, nil)
	return nil
}

func (c *Client) observe(ar apiRequest, req *http.Request, err *ClientError, start time.Time) {
	if c.metrics == nil {
		return
	}
	status := 0
	outcome := "success"
	if err != nil {
		status = err.StatusCode
		outcome = string(err.Kind)
	}
	c.metrics.Observe(ar.op, outcome, status, time.Since(start))
}

// runResponseHooks applies the built-in response handling followed by the configured hooks
func (c *Client) runResponseHooks(ar apiRequest, req *http.Request, res *http.Response, err *ClientError) {
	if err != nil {
		c.handleFailure(ar, req, err)
	}

	// avoid handing hooks a typed nil inside a non-nil error interface
	var hookErr error
	if err != nil {
		hookErr = err
	}
	for _, hook := range c.responseHooks {
		hook(req, res, hookErr)
	}
}

// handleFailure performs the global side effects for a failed call: publishing the session
// invalidation event on 401 and logging everything else.
func (c *Client) handleFailure(ar apiRequest, req *http.Request, err *ClientError) {
	attrs := []any{
		slog.String("component", "client"),
		slog.String("operation", ar.op),
		slog.String("method", ar.method),
		slog.String("path", ar.path),
	}

	if err.StatusCode == 0 {
		// no response: either a network failure or the request was never sent
		if err.Kind == apperrors.KindNetwork {
			c.logger.Debug("network error", append(attrs, slog.String("error", err.LogMessage))...)
			return
		}
		c.logger.Error("request error", append(attrs, slog.String("error", err.LogMessage))...)
		return
	}

	attrs = append(attrs, slog.Int("status", err.StatusCode))
	switch err.StatusCode {
	case http.StatusUnauthorized:
		c.logger.Info("unauthorized - invalidating session", attrs...)
		ctx := context.Background()
		if req != nil {
			ctx = req.Context()
		}
		ev := UnauthorizedEvent{Operation: ar.op, Path: ar.path}
		for _, handler := range c.unauthorized {
			handler(ctx, ev)
		}
	case http.StatusForbidden:
		c.logger.Error("forbidden: you do not have permission to access this resource", attrs...)
	case http.StatusNotFound:
		c.logger.Error("not found: the requested resource does not exist", attrs...)
	case http.StatusInternalServerError:
		c.logger.Error("server error: please try again later", attrs...)
	default:
		c.logger.Error(fmt.Sprintf("an error occurred: %s", err.LogMessage), attrs...)
	}
}
