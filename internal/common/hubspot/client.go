// Package hubspot is an authenticated client for the HubSpot CRM v3 REST API.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"crm-gateway/internal/common/config"
	apperrors "crm-gateway/internal/common/errors"
	commonhttp "crm-gateway/internal/common/http"
	"crm-gateway/internal/common/logger"
	"crm-gateway/internal/common/observability"
)

const defaultRetryAfter = time.Second

// Response is the raw result of an authenticated call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode CRM response: %w", err)
	}
	return nil
}

// Client holds the live access token and performs authenticated calls.
type Client struct {
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	refreshToken string

	httpClient *commonhttp.Client
	tokens     TokenStore
	log        logger.Logger
	obs        *observability.Observability
	sleep      func(ctx context.Context, d time.Duration) error

	refreshMu sync.Mutex
}

type Option func(*Client)

func WithHTTPClient(hc *commonhttp.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.tokens = store }
}

func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithObservability(obs *observability.Observability) Option {
	return func(c *Client) { c.obs = obs }
}

// WithSleep replaces the wait used by HandleRateLimit.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// New exchanges the refresh token for an access token. Failure is a configuration error.
func New(ctx context.Context, cfg config.HubSpotConfig, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		refreshToken: cfg.RefreshToken,
		httpClient:   commonhttp.NewClient(config.GetDuration(cfg.Timeout)),
		tokens:       NewMemoryTokenStore(),
		log:          logger.NewNoOpLogger(),
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.clientID == "" || c.clientSecret == "" || c.refreshToken == "" {
		return nil, apperrors.NewConfigurationError("hubspot client_id, client_secret and refresh_token are required", nil)
	}

	if _, err := c.refreshAccessToken(ctx); err != nil {
		return nil, apperrors.NewConfigurationError("failed to obtain CRM access token", err)
	}

	return c, nil
}

// refreshAccessToken exchanges the refresh token and stores the new access token.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("refresh_token", c.refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.obs.RecordTokenRefresh(ctx, "failure")
		return "", fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.obs.RecordTokenRefresh(ctx, "failure")
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.obs.RecordTokenRefresh(ctx, "failure")
		return "", fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		c.obs.RecordTokenRefresh(ctx, "failure")
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		c.obs.RecordTokenRefresh(ctx, "failure")
		return "", fmt.Errorf("token response did not contain an access token")
	}

	if err := c.tokens.Set(ctx, tokenResp.AccessToken); err != nil {
		return "", err
	}

	c.obs.RecordTokenRefresh(ctx, "success")
	c.log.Info("CRM access token refreshed", map[string]interface{}{
		"token":     logger.TokenPrefix(tokenResp.AccessToken),
		"expiresIn": tokenResp.ExpiresIn,
	})

	return tokenResp.AccessToken, nil
}

func (c *Client) currentToken(ctx context.Context) (string, error) {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		return "", err
	}
	if token != "" {
		return token, nil
	}
	return c.refreshAccessToken(ctx)
}

// MakeRequest performs an authenticated call against path. On a 401 the token is refreshed
// and the call retried once; every other status is returned for the caller to interpret.
func (c *Client) MakeRequest(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, apperrors.NewInternalError(fmt.Errorf("failed to marshal CRM request: %w", err))
		}
	}

	operation := method + " " + pathWithoutQuery(path)

	token, err := c.currentToken(ctx)
	if err != nil {
		return nil, apperrors.NewRemoteUnavailableError(operation, err)
	}

	resp, err := c.do(ctx, method, path, payload, token)
	if err != nil {
		return nil, apperrors.NewRemoteUnavailableError(operation, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.log.Warn("CRM rejected access token, refreshing", map[string]interface{}{
			"operation": operation,
		})

		token, err = c.refreshAccessToken(ctx)
		if err != nil {
			return nil, apperrors.NewRemoteUnavailableError(operation, err)
		}

		resp, err = c.do(ctx, method, path, payload, token)
		if err != nil {
			return nil, apperrors.NewRemoteUnavailableError(operation, err)
		}
	}

	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, token string) (*Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.obs.RecordCRMRequest(ctx, method+" "+metricPath(path), 0, time.Since(start))
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.obs.RecordCRMRequest(ctx, method+" "+metricPath(path), resp.StatusCode, time.Since(start))
	c.log.Debug("CRM request completed", map[string]interface{}{
		"method":   method,
		"path":     pathWithoutQuery(path),
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// HandleRateLimit waits Retry-After (default 1s) times 2^attempt when resp is a 429 and reports
// whether the caller should retry. Any other status returns false immediately.
func (c *Client) HandleRateLimit(ctx context.Context, resp *Response, attempt int) (bool, error) {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return false, nil
	}

	wait := RetryDelay(resp.Header.Get("Retry-After"), attempt)
	c.log.Warn("CRM rate limit hit, backing off", map[string]interface{}{
		"attempt": attempt,
		"wait":    wait.String(),
	})

	if err := c.sleep(ctx, wait); err != nil {
		return false, err
	}
	return true, nil
}

// RetryDelay computes the 429 backoff for an attempt.
func RetryDelay(retryAfter string, attempt int) time.Duration {
	base := defaultRetryAfter
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs >= 0 {
		base = time.Duration(secs) * time.Second
	}
	if attempt < 0 {
		attempt = 0
	}
	return time.Duration(float64(base) * math.Pow(2, float64(attempt)))
}

// TestConnection performs a lightweight authenticated call.
func (c *Client) TestConnection(ctx context.Context) error {
	path := fmt.Sprintf("/crm/v3/objects/%s?limit=1", ObjectContacts)
	resp, err := c.MakeRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return apperrors.NewRemoteAPIError("test connection", resp.StatusCode, string(resp.Body))
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func pathWithoutQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

// metricPath replaces record ids so the operation label stays bounded.
func metricPath(path string) string {
	segments := strings.Split(pathWithoutQuery(path), "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.ParseUint(seg, 10, 64); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
