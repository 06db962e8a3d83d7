// Package api provides the HTTP client for the Bitbucket Cloud REST
// API. It knows nothing about credential storage beyond asking the
// auth manager for an Authorization header value.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bitbucket-cli/bkt/internal/auth"
	"github.com/bitbucket-cli/bkt/internal/config"
	"github.com/bitbucket-cli/bkt/internal/output"
	"github.com/bitbucket-cli/bkt/internal/version"
)

const (
	maxRetries = 3
	baseDelay  = 500 * time.Millisecond
	maxJitter  = 100 * time.Millisecond

	// maxPages caps pagination so a runaway `next` chain cannot spin
	// forever.
	maxPages = 1000
)

// Client is an authenticated Bitbucket API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	auth       *auth.Manager
	flow       *auth.OAuthFlow
}

// Response wraps an API response body.
type Response struct {
	Data       json.RawMessage
	StatusCode int
	Header     http.Header
}

// UnmarshalData decodes the response body into v.
func (r *Response) UnmarshalData(v any) error {
	return json.Unmarshal(r.Data, v)
}

// NewClient creates a client against cfg.BaseURL using credentials
// from mgr. OAuth tokens nearing expiry are refreshed transparently.
func NewClient(cfg *config.Config, mgr *auth.Manager) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		auth:    mgr,
		flow:    auth.NewOAuthFlow(mgr, cfg.OAuthKey, cfg.OAuthSecret),
	}
}

// authHeader resolves the Authorization value for one request,
// refreshing a stale OAuth token first. A failed refresh falls back to
// the stored token; the server's 401 is the authoritative answer.
func (c *Client) authHeader(ctx context.Context) (string, error) {
	cred, err := c.auth.Credentials()
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", output.ErrAuth("Not authenticated")
	}

	if cred.NeedsRefresh() && cred.RefreshToken != "" {
		refreshed, err := c.flow.Refresh(ctx, cred.RefreshToken)
		if err != nil {
			logrus.Debugf("api: token refresh failed, trying stored token: %v", err)
		} else {
			cred = refreshed
		}
	}

	return cred.AuthHeader(), nil
}

// Get performs a GET request against an API path.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.doRequest(ctx, http.MethodGet, c.url(path), nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.doRequest(ctx, http.MethodPost, c.url(path), body)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.doRequest(ctx, http.MethodPut, c.url(path), body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.doRequest(ctx, http.MethodDelete, c.url(path), nil)
}

// GetAll follows the `next` cursor of a paginated collection and
// returns every value.
func (c *Client) GetAll(ctx context.Context, path string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	url := c.url(path)

	for page := 0; page < maxPages && url != ""; page++ {
		resp, err := c.doRequest(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		var envelope struct {
			Values []json.RawMessage `json:"values"`
			Next   string            `json:"next"`
		}
		if err := resp.UnmarshalData(&envelope); err != nil {
			return nil, fmt.Errorf("could not parse paginated response: %w", err)
		}
		all = append(all, envelope.Values...)
		url = envelope.Next
	}

	return all, nil
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func (c *Client) doRequest(ctx context.Context, method, url string, body any) (*Response, error) {
	var lastErr error
	refreshTried := false

	for attempt := 1; attempt <= maxRetries; attempt++ {
		resp, err := c.singleRequest(ctx, method, url, body)
		if err == nil {
			return resp, nil
		}

		apiErr, ok := err.(*output.Error)
		if !ok {
			return nil, err
		}

		// A 401 against a refreshable OAuth token gets one forced
		// refresh and retry; a second 401 is authoritative.
		if apiErr.Code == output.CodeAuth && !refreshTried {
			refreshTried = true
			if c.forceRefresh(ctx) {
				continue
			}
		}

		if !apiErr.Retryable {
			return nil, err
		}
		lastErr = err

		delay := c.backoffDelay(attempt, apiErr)
		logrus.Debugf("api: retry %d/%d in %v: %v", attempt, maxRetries, delay, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, lastErr)
}

// forceRefresh exchanges the stored refresh token for a new access
// token. Returns false when there is nothing to refresh or the grant
// fails; the caller then surfaces the original 401.
func (c *Client) forceRefresh(ctx context.Context) bool {
	cred, err := c.auth.Credentials()
	if err != nil || cred == nil || cred.RefreshToken == "" {
		return false
	}
	if _, err := c.flow.Refresh(ctx, cred.RefreshToken); err != nil {
		logrus.Debugf("api: forced refresh after 401 failed: %v", err)
		return false
	}
	return true
}

func (c *Client) backoffDelay(attempt int, apiErr *output.Error) time.Duration {
	if apiErr.HTTPStatus == http.StatusTooManyRequests && apiErr.RetryAfter > 0 {
		return time.Duration(apiErr.RetryAfter) * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(maxJitter)))
	return baseDelay*time.Duration(attempt) + jitter
}

func (c *Client) singleRequest(ctx context.Context, method, url string, body any) (*Response, error) {
	header, err := c.authHeader(ctx)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("could not encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, output.ErrNetwork(err)
	}

	if resp.StatusCode >= 400 {
		return nil, errorFromResponse(resp, data)
	}

	return &Response{
		Data:       data,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}, nil
}

// errorFromResponse maps an error body to the output taxonomy. The API
// wraps messages as {"error": {"message": ..., "detail": ...}}.
func errorFromResponse(resp *http.Response, data []byte) error {
	msg := apiErrorMessage(data)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if msg == "" {
			msg = "Authentication failed"
		}
		return output.ErrAuth(msg)
	case http.StatusForbidden:
		if msg == "" {
			msg = "Access denied"
		}
		return output.ErrForbidden(msg)
	case http.StatusNotFound:
		if msg == "" {
			msg = "resource"
		}
		return output.ErrNotFound(msg, resp.Request.URL.Path)
	case http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return output.ErrRateLimit(retryAfter)
	default:
		if msg == "" {
			msg = fmt.Sprintf("API error (%d)", resp.StatusCode)
		}
		err := output.ErrAPI(resp.StatusCode, msg)
		if resp.StatusCode >= 500 {
			err.Retryable = true
		}
		return err
	}
}

func apiErrorMessage(data []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
			Detail  string `json:"detail"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Error.Detail != "" {
		return fmt.Sprintf("%s: %s", body.Error.Message, body.Error.Detail)
	}
	return body.Error.Message
}
