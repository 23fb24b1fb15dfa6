// Package httpclient is the request primitive behind every cache fetch and
// mutating action: one JSON call relative to the configured API base.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amy/portal-client/internal/core/domain"
	"github.com/amy/portal-client/internal/core/ports"
	"github.com/amy/portal-client/internal/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
	maxBody        = 8 << 20

	// RequestIDHeader carries a per-call correlation id.
	RequestIDHeader = "X-Request-ID"
)

// Client implements ports.Requester over net/http. Calls with
// ports.CredentialsInclude share one cookie jar; calls with
// ports.CredentialsOmit never see it.
type Client struct {
	base      string
	withCreds *http.Client
	noCreds   *http.Client
	log       zerolog.Logger
}

var _ ports.Requester = (*Client)(nil)

// Options configures Client construction.
type Options struct {
	Transport http.RoundTripper
	Timeout   time.Duration
	Jar       http.CookieJar
	Logger    zerolog.Logger
	// SessionCookie is a Cookie header value stored in the jar for the base
	// address before the first call.
	SessionCookie string
}

// Option mutates Options.
type Option func(*Options)

// WithTransport overrides the round tripper used for every call.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *Options) { o.Transport = rt }
}

// WithTimeout sets the per-call timeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithJar replaces the cookie jar used for credentialed calls.
func WithJar(jar http.CookieJar) Option {
	return func(o *Options) { o.Jar = jar }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithSessionCookie seeds the jar with an existing portal session.
func WithSessionCookie(header string) Option {
	return func(o *Options) { o.SessionCookie = header }
}

// New returns a Client for the API rooted at baseURL.
func New(baseURL string, optFns ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	opts := Options{Logger: zerolog.Nop()}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if opts.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		opts.Jar = jar
	}

	if opts.SessionCookie != "" {
		cookies, err := http.ParseCookie(opts.SessionCookie)
		if err != nil {
			return nil, fmt.Errorf("parse session cookie: %w", err)
		}
		opts.Jar.SetCookies(u, cookies)
	}

	return &Client{
		base:      strings.TrimRight(u.String(), "/"),
		withCreds: &http.Client{Transport: opts.Transport, Timeout: opts.Timeout, Jar: opts.Jar},
		noCreds:   &http.Client{Transport: opts.Transport, Timeout: opts.Timeout},
		log:       opts.Logger,
	}, nil
}

// BaseURL returns the API root every path is joined to.
func (c *Client) BaseURL() string { return c.base }

// Do performs one call. path must start with "/" and already be escaped.
func (c *Client) Do(ctx context.Context, method, path string, opts ports.RequestOptions) ([]byte, error) {
	target := c.base + path
	if len(opts.Query) > 0 {
		target += "?" + opts.Query.Encode()
	}

	var body io.Reader
	if opts.Body != nil {
		raw, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)

	client := c.noCreds
	if opts.Credentials == ports.CredentialsInclude {
		client = c.withCreds
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		metrics.HTTPRequestsTotal.WithLabelValues(method, "transport_error").Inc()
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", reqID).Msg("request failed")
		return nil, &domain.TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	metrics.HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", reqID).
		Dur("duration", time.Since(start)).
		Msg("request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.HTTPStatusError{Method: method, Path: path, Status: resp.StatusCode, Body: errBody}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &domain.TransportError{Method: method, Path: path, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}
