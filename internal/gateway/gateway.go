// Package gateway is the remote data gateway: a thin JSON client for the
// content API that injects the session's bearer token and tears the session
// down when the API answers 401. It never falls back to local data.
package gateway

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

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// LoginPath is where the presentation layer is sent after a 401.
const LoginPath = "/auth/login"

// DefaultBaseURL is the content API used when none is configured.
const DefaultBaseURL = "https://test-fe.mysellerpintar.com/api"

// Gateway issues requests against the content API. out, when non-nil, receives
// the decoded response envelope.
type Gateway interface {
	Get(ctx context.Context, path string, query map[string]string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// TokenSource supplies the bearer token. It is consulted on every request.
type TokenSource interface {
	Token() string
}

// SessionInvalidator clears the stored session on 401.
type SessionInvalidator interface {
	Invalidate() error
}

// Options configures a client.
type Options struct {
	BaseURL string
	Timeout time.Duration

	// RequestsPerSecond of zero disables pacing.
	RequestsPerSecond float64
	Burst             int

	Tokens  TokenSource
	Session SessionInvalidator

	// OnSessionExpired is called with LoginPath after the session has been
	// invalidated.
	OnSessionExpired func(redirect string)

	HTTPClient *http.Client
}

// client is the concrete implementation of Gateway.
type client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	group   singleflight.Group
	tokens  TokenSource
	session SessionInvalidator
	expired func(string)
	logger  *slog.Logger
}

type rawResponse struct {
	status int
	body   []byte
}

// New creates a gateway client.
func New(opts Options) Gateway {
	return NewWithLogger(opts, slog.Default())
}

// NewWithLogger creates a gateway client with a custom logger.
func NewWithLogger(opts Options, logger *slog.Logger) Gateway {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return &client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		limiter: limiter,
		tokens:  opts.Tokens,
		session: opts.Session,
		expired: opts.OnSessionExpired,
		logger:  logger.With("component", "gateway.client"),
	}
}

func (c *client) Get(ctx context.Context, path string, query map[string]string, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, out)
}

func (c *client) do(ctx context.Context, method, path string, query map[string]string, body, out any) error {
	target, err := c.resolve(path, query)
	if err != nil {
		return &RemoteError{Method: method, Path: path, Err: err}
	}
	token := c.token()

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return &RemoteError{Method: method, Path: path, Err: fmt.Errorf("encoding request: %w", err)}
		}
	}

	var resp rawResponse
	if method == http.MethodGet {
		// identical concurrent reads share one round trip
		key := target + "\x00" + token
		v, err, shared := c.group.Do(key, func() (any, error) {
			return c.roundTrip(ctx, method, path, target, token, nil)
		})
		if err != nil {
			return err
		}
		if shared {
			c.logger.DebugContext(ctx, "Shared in-flight request", "path", path)
		}
		resp = v.(rawResponse)
	} else {
		resp, err = c.roundTrip(ctx, method, path, target, token, payload)
		if err != nil {
			return err
		}
	}

	return c.decode(ctx, method, path, resp, out)
}

func (c *client) roundTrip(ctx context.Context, method, path, target, token string, payload []byte) (rawResponse, error) {
	logger := c.logger.With("method", method, "path", path)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return rawResponse{}, &RemoteError{Method: method, Path: path, Err: err}
		}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create HTTP request", "error", err)
		return rawResponse{}, &RemoteError{Method: method, Path: path, Err: err}
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		logger.WarnContext(ctx, "HTTP request failed",
			"error", err,
			"duration_ms", duration.Milliseconds())
		return rawResponse{}, &RemoteError{Method: method, Path: path, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read response body", "error", err)
		return rawResponse{}, &RemoteError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}

	logger.DebugContext(ctx, "Received response",
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds())

	if resp.StatusCode == http.StatusUnauthorized {
		c.teardown(ctx)
		return rawResponse{}, ErrSessionExpired
	}
	return rawResponse{status: resp.StatusCode, body: body}, nil
}

func (c *client) decode(ctx context.Context, method, path string, resp rawResponse, out any) error {
	var probe struct {
		Status  *bool  `json:"status"`
		Message string `json:"message"`
	}
	probeErr := json.Unmarshal(resp.body, &probe)

	if resp.status < 200 || resp.status > 299 {
		msg := probe.Message
		if probeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(resp.body))
			if len(msg) > 200 {
				msg = msg[:200]
			}
		}
		c.logger.WarnContext(ctx, "Request rejected",
			"method", method,
			"path", path,
			"status_code", resp.status,
			"message", msg)
		return &RemoteError{Method: method, Path: path, StatusCode: resp.status, Message: msg}
	}

	if len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if probeErr != nil {
		return &RemoteError{Method: method, Path: path, StatusCode: resp.status, Err: fmt.Errorf("decoding response: %w", probeErr)}
	}
	if probe.Status != nil && !*probe.Status {
		return &RemoteError{Method: method, Path: path, StatusCode: resp.status, Message: probe.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &RemoteError{Method: method, Path: path, StatusCode: resp.status, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func (c *client) teardown(ctx context.Context) {
	c.logger.WarnContext(ctx, "Session expired, clearing credentials")
	if c.session != nil {
		if err := c.session.Invalidate(); err != nil {
			c.logger.ErrorContext(ctx, "Failed to clear session", "error", err)
		}
	}
	if c.expired != nil {
		c.expired(LoginPath)
	}
}

func (c *client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *client) resolve(path string, query map[string]string) (string, error) {
	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

var _ Gateway = &client{}
