// Package gateway issues single HTTP calls against the service under test
// and folds every possible failure into a Result value.
//
// A call never returns a Go error: non-2xx statuses, transport failures and
// timeouts all become a failed Result carrying a diagnostic, so callers can
// inspect them without special control flow.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// DefaultTimeout bounds every call unless overridden with WithTimeout.
const DefaultTimeout = 30 * time.Second

// bodyExcerptLimit is the maximum number of characters of a non-2xx body
// quoted in the failure diagnostic.
const bodyExcerptLimit = 200

// Request describes one call relative to the client's base address.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	// Body is JSON-encoded when non-nil.
	Body any
}

// Client issues calls against a fixed base address.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying transport client.
// The gateway timeout still applies through the request context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for per-call debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for baseURL.
// Returns an error if the address is empty, unparsable, or not http(s).
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing host", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured base address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Call performs exactly one attempt of req. It never retries.
func (c *Client) Call(ctx context.Context, req Request) Result {
	method := strings.ToUpper(req.Method)
	if method != http.MethodGet && method != http.MethodPost {
		return Failure(FailureRequest, fmt.Sprintf("unsupported method: %s", req.Method))
	}

	target := c.resolve(req.Path, req.Query)

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return Failure(FailureRequest, fmt.Sprintf("request error: encode body: %v", err))
		}
		body = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return Failure(FailureRequest, fmt.Sprintf("request error: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		res := c.transportFailure(err)
		c.logger.Debug("call failed",
			"method", method,
			"url", target,
			"kind", res.Kind,
			"elapsed", time.Since(start),
		)
		return res
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		res := c.transportFailure(err)
		c.logger.Debug("reading body failed", "method", method, "url", target, "kind", res.Kind)
		return res
	}

	c.logger.Debug("call completed",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res := Failure(FailureStatus, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, excerpt(string(raw), bodyExcerptLimit)))
		res.Status = resp.StatusCode
		return res
	}

	return Success(resp.StatusCode, decodeBody(raw))
}

// resolve joins path onto the base address and encodes query.
func (c *Client) resolve(path string, query map[string]string) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	u.RawPath = ""
	if len(query) > 0 {
		q := url.Values{}
		for k, v := range query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	} else {
		u.RawQuery = ""
	}
	return u.String()
}

// transportFailure classifies a client-side error.
func (c *Client) transportFailure(err error) Result {
	if isTimeout(err) {
		return Failure(FailureTimeout, fmt.Sprintf("timeout: no response within %s", c.timeout))
	}
	if isConnectionError(err) {
		return Failure(FailureConnection, fmt.Sprintf("connection error: %v", unwrapURLError(err)))
	}
	return Failure(FailureRequest, fmt.Sprintf("request error: %v", unwrapURLError(err)))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}

// unwrapURLError strips the "Get \"...\":" prefix net/http adds.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

// decodeBody parses raw as a single JSON value, falling back to the raw
// text when it is not valid JSON. Numbers are kept as json.Number.
func decodeBody(raw []byte) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	// Trailing content means the body was not a single JSON document.
	if _, err := dec.Token(); err != io.EOF {
		return string(raw)
	}
	return v
}

// excerpt returns at most limit characters of s.
func excerpt(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
