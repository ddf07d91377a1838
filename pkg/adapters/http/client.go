// Package http implements the rendering server transport over HTTP.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/umlpreview/internal/logging"
	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/aretw0/umlpreview/pkg/ports"
	"github.com/aretw0/umlpreview/pkg/urlmaker"
	"github.com/hashicorp/go-retryablehttp"
)

// DiagramErrorHeader is set by rendering servers when the diagram itself is
// invalid. The body then holds an image describing the error.
const DiagramErrorHeader = "X-PlantUML-Diagram-Error"

// Client fetches rendered pages from a rendering server.
type Client struct {
	http   *retryablehttp.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.HTTPClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying standard client, e.g. for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http.HTTPClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a transport client.
func NewClient(opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil // Disable logging
	// Hand the last response back instead of a generic "giving up" error,
	// so that status codes stay classifiable.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		http:   rc,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.Transport = (*Client)(nil)

// Fetch implements ports.Transport.
func (c *Client) Fetch(ctx context.Context, method ports.Method, server string, d *domain.Diagram, format string, page int) ([]byte, error) {
	req, url, err := c.newRequest(ctx, method, server, d, format, page)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Fetching page", "method", method, "url", url, "page", page)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &domain.HTTPError{Method: string(method), URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.HTTPError{Method: string(method), URL: url, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if msg := resp.Header.Get(DiagramErrorHeader); msg != "" {
		return nil, &domain.ExportError{Message: msg, Out: body}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.HTTPError{
			Method:        string(method),
			URL:           url,
			StatusCode:    resp.StatusCode,
			Body:          body,
			ResponseError: true,
			Err:           errors.New(http.StatusText(resp.StatusCode)),
		}
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, method ports.Method, server string, d *domain.Diagram, format string, page int) (*retryablehttp.Request, string, error) {
	switch method {
	case ports.MethodPost:
		url := urlmaker.PagePath(server, format, page)
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(d.Content)))
		if err != nil {
			return nil, url, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		return req, url, nil
	case ports.MethodGet:
		url, err := urlmaker.PageURL(server, d, format, page)
		if err != nil {
			return nil, "", err
		}
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, url, fmt.Errorf("failed to create request: %w", err)
		}
		return req, url, nil
	default:
		return nil, "", fmt.Errorf("unsupported request method %q", method)
	}
}
