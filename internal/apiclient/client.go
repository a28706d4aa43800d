// Package apiclient is the authenticated client for the commerce backend.
// Every call carries a freshly refreshed bearer token, and a 401 sends the
// admin back to the login screen unless the call was the login itself.
package apiclient

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
	"sync"
	"time"

	"dxt-admin/internal/logger"

	"go.uber.org/zap"
)

// TokenSource hands out identity tokens for the signed-in admin.
type TokenSource interface {
	IDToken(ctx context.Context, forceRefresh bool) (string, error)
}

type Option func(*Client)

// WithUploadTimeout sets the timeout used by multipart uploads.
func WithUploadTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.upload = &http.Client{Timeout: d, Transport: c.http.Transport}
		}
	}
}

// WithNavigator replaces the navigator used on authentication failures.
func WithNavigator(n Navigator) Option {
	return func(c *Client) {
		c.navigator = n
	}
}

// WithTransport sets the round tripper shared by every bound copy.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
		c.upload.Transport = rt
	}
}

type Client struct {
	baseURL   string
	http      *http.Client
	upload    *http.Client
	logger    *zap.Logger
	navigator Navigator
	tokens    TokenSource
	defaults  *defaultHeader
}

type defaultHeader struct {
	mu    sync.RWMutex
	value string
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	transport := http.DefaultTransport
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: timeout, Transport: transport},
		upload:    &http.Client{Timeout: timeout, Transport: transport},
		logger:    logger,
		navigator: ViewNavigator{},
		defaults:  &defaultHeader{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend address without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WithTokenSource returns a copy bound to one admin's identity. The copy
// shares the transport but has its own default authorization header.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	bound := *c
	bound.tokens = ts
	bound.defaults = &defaultHeader{}
	return &bound
}

// SetDefaultAuthorization attaches token to every call that cannot obtain
// a fresh one.
func (c *Client) SetDefaultAuthorization(token string) {
	c.defaults.mu.Lock()
	c.defaults.value = "Bearer " + token
	c.defaults.mu.Unlock()
}

func (c *Client) ClearDefaultAuthorization() {
	c.defaults.mu.Lock()
	c.defaults.value = ""
	c.defaults.mu.Unlock()
}

// DefaultAuthorization returns the header value set at login, if any.
func (c *Client) DefaultAuthorization() string {
	c.defaults.mu.RLock()
	defer c.defaults.mu.RUnlock()
	return c.defaults.value
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, c.http, http.MethodGet, path, nil, "", out)
}

func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, in, out)
}

func (c *Client) PutJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPut, path, in, out)
}

func (c *Client) PatchJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPatch, path, in, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.do(ctx, c.http, method, path, body, "application/json", out)
}

// PostMultipart uploads form with the upload timeout.
func (c *Client) PostMultipart(ctx context.Context, path string, form Multipart, out any) error {
	body, contentType, err := form.encode()
	if err != nil {
		return fmt.Errorf("failed to encode multipart body: %w", err)
	}
	return c.do(ctx, c.upload, http.MethodPost, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body []byte, contentType string, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(ctx, req)

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Debug("Backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to call backend: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read backend response: %w", err)
	}

	c.logger.Debug("Backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp.StatusCode, data)
		if apiErr.Unauthorized() {
			c.handleUnauthorized(ctx, path)
		}
		return apiErr
	}

	if len(data) == 0 {
		return nil
	}
	return decodeInto(data, out)
}

func (c *Client) authorize(ctx context.Context, req *http.Request) {
	if v := c.DefaultAuthorization(); v != "" {
		req.Header.Set("Authorization", v)
	}
	if c.tokens == nil {
		return
	}

	token, err := c.tokens.IDToken(ctx, true)
	switch {
	case errors.Is(err, ErrNoUser):
		return
	case err != nil:
		c.logger.Warn("Failed to refresh identity token", zap.Error(err))
		return
	}
	c.logger.Debug("Token attached to request", logger.Secret("token", token))
	req.Header.Set("Authorization", "Bearer "+token)
}

// handleUnauthorized sends the admin to the login screen, except when the
// failing call is the login call or the login screen is already showing.
func (c *Client) handleUnauthorized(ctx context.Context, path string) {
	view := CurrentView(ctx)
	if strings.Contains(path, "/admin/login") || view == LoginPath {
		c.logger.Warn("Unauthorized response, staying on view",
			zap.String("path", path),
			zap.String("view", view),
		)
		return
	}

	c.logger.Warn("Unauthorized response, redirecting to login",
		zap.String("path", path),
		zap.String("view", view),
	)
	c.navigator.Navigate(ctx, LoginPath)
}
