// Package bps is the Breaking Point REST API client. It consults the
// result cache before hitting the network, raises taxonomy errors on
// failure (raw transport errors never escape), and wraps every outbound
// call in the retry policy.
package bps

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minhdang/bpagent/internal/cache"
	"github.com/minhdang/bpagent/internal/core/config"
	"github.com/minhdang/bpagent/internal/core/errs"
	"github.com/minhdang/bpagent/internal/core/retry"
	"github.com/minhdang/bpagent/internal/metrics"
)

const authEndpoint = "auth/session"

// HealthStatus summarizes observed client health.
type HealthStatus struct {
	Available     bool
	ErrorRate     float64
	Latency       time.Duration
	LastSuccessAt time.Time
	LastFailureAt time.Time
}

// Client talks to one Breaking Point appliance. Safe for concurrent use.
type Client struct {
	host       string
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	policy     retry.Policy
	cache      *cache.Store
	log        *slog.Logger

	tokenMu sync.RWMutex
	token   string

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int
}

// New builds a client from configuration. The store may be a disabled
// cache; it must not be nil.
func New(cfg config.APIConfig, store *cache.Store, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Host == "" {
		return nil, errs.Validation("API host not specified and not found in configuration",
			map[string]string{"host": "required"})
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errs.Validation("API credentials not specified and not found in configuration",
			map[string]string{"username": "required", "password": "required"})
	}

	policy := retry.DefaultPolicy
	policy.MaxRetries = cfg.Retries
	policy.BaseDelay = cfg.RetryDelay
	policy.RetryOn = []errs.Kind{errs.KindNetwork, errs.KindRetryable, errs.KindAPI}
	policy.Logger = logger

	return &Client{
		host:     cfg.Host,
		baseURL:  fmt.Sprintf("https://%s/api/v1", cfg.Host),
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				// Appliances ship self-signed certificates.
				TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifySSL},
			},
		},
		policy: policy,
		cache:  store,
		log:    logger,
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
	}, nil
}

// Login authenticates and stores the session token for subsequent calls.
func (c *Client) Login(ctx context.Context) (err error) {
	scope := errs.Scope{
		Details: map[string]any{
			"host":     c.host,
			"username": maskUsername(c.username),
		},
		Kind:   errs.KindAPI,
		Code:   "LOGIN_ERROR",
		Logger: c.log,
	}
	defer func() { err = scope.Wrap(err) }()

	return c.policy.Do(ctx, func(ctx context.Context) error {
		result, loginErr := c.doRequest(ctx, http.MethodPost, authEndpoint,
			map[string]any{"username": c.username, "password": c.password}, nil)
		if loginErr != nil {
			return loginErr
		}

		obj, _ := result.(map[string]any)
		token, _ := obj["token"].(string)
		if token == "" {
			return errs.Auth("no authentication token received", authEndpoint, 0)
		}

		c.tokenMu.Lock()
		c.token = token
		c.tokenMu.Unlock()
		c.log.Info("logged in to Breaking Point", "host", c.host)
		return nil
	})
}

// Logout ends the session. It never raises: logout runs on cleanup paths
// where a failure must not mask the original problem.
func (c *Client) Logout(ctx context.Context) bool {
	c.tokenMu.Lock()
	token := c.token
	c.token = ""
	c.tokenMu.Unlock()

	if token == "" {
		c.log.Debug("no active session to log out from")
		return true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/"+authEndpoint, nil)
	if err != nil {
		return false
	}
	req.Header.Set("X-API-KEY", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("failed to log out from Breaking Point", "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		c.log.Error("failed to log out from Breaking Point", "status", resp.StatusCode)
		return false
	}
	c.log.Info("logged out from Breaking Point")
	return true
}

// Health returns the client's observed health.
func (c *Client) Health() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

// call issues one authenticated API call through the retry policy and the
// error scope. The decoded response may be an object or a list.
func (c *Client) call(ctx context.Context, method, endpoint string, body any, params url.Values) (result any, err error) {
	c.tokenMu.RLock()
	loggedIn := c.token != ""
	c.tokenMu.RUnlock()
	if !loggedIn {
		return nil, errs.Auth("not logged in, call Login first", endpoint, 0)
	}

	scope := errs.Scope{
		Details: map[string]any{
			"method":   method,
			"endpoint": endpoint,
			"host":     c.host,
		},
		Kind:   errs.KindAPI,
		Code:   "API_CALL_ERROR",
		Logger: c.log,
	}
	defer func() { err = scope.Wrap(err) }()

	metrics.APICallsTotal.WithLabelValues(method, endpoint).Inc()
	result, err = retry.DoValue(ctx, c.policy, func(ctx context.Context) (any, error) {
		return c.doRequest(ctx, method, endpoint, body, params)
	})
	if err != nil {
		metrics.APIErrorsTotal.WithLabelValues(endpoint, errs.KindOf(err).String()).Inc()
	}
	return result, err
}

// doRequest performs a single HTTP round trip and maps every failure mode
// into the taxonomy.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body any, params url.Values) (any, error) {
	start := time.Now()

	reqURL := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.recordFailure()
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.tokenMu.RLock()
	if c.token != "" {
		req.Header.Set("X-API-KEY", c.token)
	}
	c.tokenMu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		if ctx.Err() != nil {
			return nil, errs.Canceled(ctx.Err())
		}
		isTimeout := false
		var uerr *url.Error
		if errors.As(err, &uerr) {
			isTimeout = uerr.Timeout()
		}
		msg := fmt.Sprintf("connection error during API call to %s: %v", endpoint, err)
		if isTimeout {
			msg = fmt.Sprintf("request timeout during API call to %s: %v", endpoint, err)
		}
		return nil, errs.Network(msg, endpoint, isTimeout, 0, c.policy.MaxRetries)
	}
	defer resp.Body.Close()

	latency := time.Since(start)
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure()
		return nil, errs.Network(fmt.Sprintf("read response from %s: %v", endpoint, err),
			endpoint, false, 0, c.policy.MaxRetries)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.recordFailure()
		if endpoint == authEndpoint {
			return nil, errs.Auth("invalid username or password", endpoint, resp.StatusCode)
		}
		return nil, errs.Auth("session expired or invalid", endpoint, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		c.recordFailure()
		resourceType, resourceID := splitEndpoint(endpoint)
		return nil, errs.NotFound(resourceType, resourceID)
	case resp.StatusCode >= 400:
		c.recordFailure()
		return nil, errs.API(
			fmt.Sprintf("API call to %s failed with status %d", endpoint, resp.StatusCode),
			endpoint, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	c.recordSuccess(latency)
	metrics.APILatency.WithLabelValues(method, endpoint).Observe(latency.Seconds())

	if len(respBody) == 0 {
		return map[string]any{}, nil
	}
	var decoded any
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		// Not JSON: hand the raw content back rather than failing.
		return map[string]any{"raw_content": string(respBody)}, nil
	}
	return decoded, nil
}

func (c *Client) recordSuccess(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.successCount++
	c.requestCount++
	c.totalLatency += latency
	c.health.LastSuccessAt = time.Now()
	c.health.Available = true

	if c.requestCount > 0 {
		c.health.ErrorRate = float64(c.failureCount) / float64(c.requestCount)
	}
	if c.successCount > 0 {
		c.health.Latency = c.totalLatency / time.Duration(c.successCount)
	}
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount++
	c.requestCount++
	c.health.LastFailureAt = time.Now()

	if c.requestCount > 0 {
		c.health.ErrorRate = float64(c.failureCount) / float64(c.requestCount)
	}
	if c.health.ErrorRate > 0.5 {
		c.health.Available = false
	}
}

// splitEndpoint derives (resourceType, resourceID) for not-found errors
// from a path like "tests/123/runs/9".
func splitEndpoint(endpoint string) (string, string) {
	parts := strings.Split(endpoint, "/")
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[len(parts)-1]
}

func maskUsername(username string) string {
	if len(username) <= 3 {
		return "***"
	}
	return username[:3] + "***"
}

// asObject coerces a decoded response into an object.
func asObject(v any) map[string]any {
	if obj, ok := v.(map[string]any); ok {
		return obj
	}
	return map[string]any{}
}

// asList coerces a decoded response into a list of objects.
func asList(v any) []map[string]any {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
