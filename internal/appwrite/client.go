// Package appwrite is a small REST client for the hosted backend platform
// (accounts, document databases and file storage) the food-ordering app is
// built on.
package appwrite

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
	"time"

	"github.com/rs/zerolog"
)

// ResponseFormat pins the response shape of the platform API.
const ResponseFormat = "1.5.0"

// Config configures a Client.
type Config struct {
	Endpoint  string
	ProjectID string
	Platform  string
	// APIKey authenticates server-side tooling. Leave empty for end-user
	// clients, which authenticate with a session instead.
	APIKey string
	// Session is the default session secret, overridden per call by
	// ContextWithSession.
	Session string

	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int

	HTTPClient *http.Client
}

// Client performs authenticated calls against the platform REST API.
// It is safe for concurrent use.
type Client struct {
	endpoint  string
	projectID string
	platform  string
	apiKey    string
	session   string
	http      *http.Client
	limiter   *RateLimiter
	logger    zerolog.Logger
}

// NewClient creates a new platform client.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		projectID: cfg.ProjectID,
		platform:  cfg.Platform,
		apiKey:    cfg.APIKey,
		session:   cfg.Session,
		http:      httpClient,
		logger:    logger.With().Str("component", "appwrite-client").Logger(),
	}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = NewRateLimiter(cfg.RequestsPerSecond, burst)
	}

	c.logger.Debug().
		Str("endpoint", c.endpoint).
		Str("project", c.projectID).
		Bool("api_key", c.apiKey != "").
		Msg("appwrite client initialised")

	return c, nil
}

// Endpoint returns the API endpoint without a trailing slash.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// ProjectID returns the configured project ID.
func (c *Client) ProjectID() string {
	return c.projectID
}

type sessionKey struct{}

// ContextWithSession returns a context whose calls authenticate with the
// given session secret.
func ContextWithSession(ctx context.Context, secret string) context.Context {
	return context.WithValue(ctx, sessionKey{}, secret)
}

// SessionFromContext returns the session secret carried by ctx, if any.
func SessionFromContext(ctx context.Context) string {
	secret, _ := ctx.Value(sessionKey{}).(string)
	return secret
}

// request describes a single API call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	header      http.Header
}

// call sends a JSON body (or none) and decodes the JSON response into out.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, payload any, out any) (*http.Response, error) {
	req := request{method: method, path: path, query: query}

	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		req.body = bytes.NewReader(body)
		req.contentType = "application/json"
	}

	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, r request, out any) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	target := c.endpoint + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for key, values := range r.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("X-Appwrite-Project", c.projectID)
	req.Header.Set("X-Appwrite-Response-Format", ResponseFormat)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.platform != "" {
		req.Header.Set("Origin", "appwrite-android://"+c.platform)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Appwrite-Key", c.apiKey)
	}
	if session := c.sessionFor(ctx); session != "" {
		req.Header.Set("X-Appwrite-Session", session)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", r.method).Str("path", r.path).Msg("request failed")
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug().
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("appwrite request")

	if resp.StatusCode == http.StatusTooManyRequests && c.limiter != nil {
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		c.limiter.RecordRateLimitError(retryAfter)
	}

	if resp.StatusCode >= 400 {
		return resp, decodeError(resp.StatusCode, body)
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp, fmt.Errorf("failed to decode response from %s: %w", r.path, err)
		}
	}

	return resp, nil
}

func (c *Client) sessionFor(ctx context.Context) string {
	if secret := SessionFromContext(ctx); secret != "" {
		return secret
	}
	return c.session
}
