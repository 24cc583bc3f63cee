// Package apiclient reaches the REST API over HTTP on behalf of the
// dashboard. It implements admin.DataSource and admin.OptionSource.
package apiclient

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

	"github.com/simp-lee/gymadmin/internal/admin"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 8 << 20

// Config holds the client settings.
type Config struct {
	// BaseURL is the API root, e.g. http://127.0.0.1:8080/api/v1.
	BaseURL string
	Timeout time.Duration
	// Token is sent as a bearer token when set.
	Token string
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Client is an admin.DataSource backed by the REST API.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	logger *slog.Logger
}

var _ admin.DataSource = (*Client)(nil)

// New creates a client. BaseURL must be an absolute http(s) URL.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("apiclient: invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:   base,
		token:  cfg.Token,
		http:   &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		logger: logger,
	}, nil
}

// List fetches one page of resource.
func (c *Client) List(ctx context.Context, resource string, req admin.PageRequest, locale string) (admin.Response, error) {
	return c.do(ctx, http.MethodGet, []string{resource}, req.Values(), nil, locale)
}

// Get fetches one record.
func (c *Client) Get(ctx context.Context, resource, id, locale string) (admin.Response, error) {
	return c.do(ctx, http.MethodGet, []string{resource, id}, nil, nil, locale)
}

// Create posts a new record.
func (c *Client) Create(ctx context.Context, resource string, payload any, locale string) (admin.Response, error) {
	return c.do(ctx, http.MethodPost, []string{resource}, nil, payload, locale)
}

// Update replaces a record.
func (c *Client) Update(ctx context.Context, resource, id string, payload any, locale string) (admin.Response, error) {
	return c.do(ctx, http.MethodPut, []string{resource, id}, nil, payload, locale)
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, resource, id, locale string) (admin.Response, error) {
	return c.do(ctx, http.MethodDelete, []string{resource, id}, nil, nil, locale)
}

// SetActive switches the active flag of a record.
func (c *Client) SetActive(ctx context.Context, resource, id string, active bool, locale string) (admin.Response, error) {
	body := map[string]bool{"active": active}
	return c.do(ctx, http.MethodPatch, []string{resource, id, "active"}, nil, body, locale)
}

func (c *Client) do(ctx context.Context, method string, segments []string, query url.Values, payload any, locale string) (admin.Response, error) {
	u := c.base.JoinPath(segments...)
	if query == nil {
		query = url.Values{}
	}
	if locale != "" {
		query.Set("lang", locale)
	}
	u.RawQuery = query.Encode()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return admin.Response{}, fmt.Errorf("encode %s payload: %w", segments[0], err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return admin.Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if locale != "" {
		req.Header.Set("Accept-Language", locale)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "api request failed",
			slog.String("method", method),
			slog.String("path", u.Path),
			slog.Any("error", err),
		)
		return admin.Response{}, fmt.Errorf("%s %s: %w", method, u.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return admin.Response{}, fmt.Errorf("read %s %s: %w", method, u.Path, err)
	}
	c.logger.DebugContext(ctx, "api request",
		slog.String("method", method),
		slog.String("path", u.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)
	return admin.Response{Status: resp.StatusCode, Body: data}, nil
}
