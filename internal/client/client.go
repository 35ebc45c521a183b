package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/healthcampaign/project-factory/internal/logging"
)

// UserInfo identifies the operator on whose behalf calls are made.
type UserInfo struct {
	UUID     string `json:"uuid"`
	UserName string `json:"userName,omitempty"`
	TenantID string `json:"tenantId,omitempty"`
}

// RequestInfo is the envelope header every downstream service expects.
type RequestInfo struct {
	APIID     string    `json:"apiId,omitempty"`
	Ver       string    `json:"ver,omitempty"`
	Ts        int64     `json:"ts,omitempty"`
	Action    string    `json:"action,omitempty"`
	MsgID     string    `json:"msgId,omitempty"`
	AuthToken string    `json:"authToken,omitempty"`
	UserInfo  *UserInfo `json:"userInfo,omitempty"`
}

// ActorUUID returns the calling user's uuid or "".
func (r RequestInfo) ActorUUID() string {
	if r.UserInfo == nil {
		return ""
	}
	return r.UserInfo.UUID
}

// Response is the raw outcome of a call, kept for activity records.
type Response struct {
	StatusCode int
	Body       json.RawMessage
	Duration   time.Duration
}

// StatusError is returned for responses with status >= 400.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream error from %s (status %d): %s", e.URL, e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client is a JSON client bound to one host.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	logger     *logrus.Entry
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(entry *logrus.Entry) Option {
	return func(c *Client) {
		if entry != nil {
			c.logger = entry
		}
	}
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL resolves path and query against the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := c.BaseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// PostJSON posts body and decodes the response into target when non-nil.
// The Response is returned alongside StatusError so callers can record it.
func (c *Client) PostJSON(ctx context.Context, path string, query url.Values, body, target any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.URL(path, query), bytes.NewReader(payload), "application/json", target)
}

// GetJSON issues a GET and decodes the response into target when non-nil.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, target any) (*Response, error) {
	return c.do(ctx, http.MethodGet, c.URL(path, query), nil, "", target)
}

// Download fetches an absolute URL and returns the raw bytes.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read download body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Body: truncate(string(data))}
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, contentType string, out any) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	log := c.logger.WithFields(logrus.Fields{"method": method, "url": target})
	log.Debug("calling downstream service")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	result := &Response{StatusCode: resp.StatusCode, Body: json.RawMessage(raw), Duration: time.Since(start)}
	if !json.Valid(raw) {
		result.Body = nil
	}

	log.WithFields(logrus.Fields{"status_code": resp.StatusCode, "duration_ms": result.Duration.Milliseconds()}).Debug("downstream service responded")

	if resp.StatusCode >= 400 {
		log.WithField("status_code", resp.StatusCode).Warn("downstream service returned an error")
		return result, &StatusError{URL: target, StatusCode: resp.StatusCode, Body: truncate(string(raw))}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return result, fmt.Errorf("failed to unmarshal response from %s: %w", target, err)
		}
	}
	return result, nil
}

func truncate(s string) string {
	const limit = 2048
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
