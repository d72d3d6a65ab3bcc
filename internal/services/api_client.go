package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Egham-7/adaptive-relay/internal/models"
	"github.com/Egham-7/adaptive-relay/internal/utils"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// ErrBodyTooLarge is returned when a response body exceeds the configured limit
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// Client represents an API client with connection pooling
type Client struct {
	BaseURL          string
	HTTPClient       *http.Client
	Headers          map[string]string
	MaxResponseBytes int64
	MaxErrorBytes    int
}

// RequestOptions provides options for API requests
type RequestOptions struct {
	Headers     map[string]string
	QueryParams map[string]string
}

// StatusError is returned for non-2xx responses. Body is already truncated.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status code %d: %s", e.StatusCode, e.Body)
}

// ClientConfig holds configuration for the API client
type ClientConfig struct {
	BaseURL             string
	Timeout             time.Duration
	MaxResponseBytes    int64
	MaxErrorBytes       int
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	DialTimeout         time.Duration
	KeepAlive           time.Duration
	TLSHandshakeTimeout time.Duration
}

// DefaultClientConfig returns pooled defaults for the API client
func DefaultClientConfig(baseURL string) *ClientConfig {
	return &ClientConfig{
		BaseURL:             baseURL,
		Timeout:             30 * time.Second,
		MaxResponseBytes:    1 << 20,
		MaxErrorBytes:       2048,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         10 * time.Second,
		KeepAlive:           30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// NewTransport builds the pooled transport shared by every outbound client.
// Success bodies larger than MaxResponseBytes fail with ErrBodyTooLarge.
// Error bodies are cut at the same limit and end cleanly, so the status
// still reaches the caller.
func NewTransport(config *ClientConfig) http.RoundTripper {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		TLSHandshakeTimeout: config.TLSHandshakeTimeout,
		ForceAttemptHTTP2:   true,
	}
	if config.MaxResponseBytes <= 0 {
		return transport
	}
	return &limitedTransport{next: transport, limit: config.MaxResponseBytes}
}

// NewClientWithConfig creates a new API client with custom configuration.
// The http.Client carries no timeout; callers bound each call with a context.
func NewClientWithConfig(config *ClientConfig) *Client {
	return &Client{
		BaseURL: config.BaseURL,
		HTTPClient: &http.Client{
			Transport: NewTransport(config),
		},
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
			"User-Agent":   "adaptive-relay/1.0",
		},
		MaxResponseBytes: config.MaxResponseBytes,
		MaxErrorBytes:    config.MaxErrorBytes,
	}
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, result any, opts *RequestOptions) error {
	return c.do(ctx, http.MethodGet, path, nil, result, opts)
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, path string, body, result any, opts *RequestOptions) error {
	return c.do(ctx, http.MethodPost, path, body, result, opts)
}

// do performs a single HTTP request. Retries are the caller's business.
func (c *Client) do(ctx context.Context, method, path string, body, result any, opts *RequestOptions) error {
	if opts == nil {
		opts = &RequestOptions{}
	}

	reqBuf := utils.Get()
	defer utils.Put(reqBuf)

	if body != nil {
		if err := json.NewEncoder(reqBuf).Encode(body); err != nil {
			return fmt.Errorf("error marshaling request body: %w", err)
		}
	}

	var reqBody io.Reader
	if reqBuf.Len() > 0 {
		reqBody = bytes.NewReader(reqBuf.B)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if reqBuf.Len() > 0 {
		req.ContentLength = int64(reqBuf.Len())
	}

	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	if len(opts.QueryParams) > 0 {
		q := req.URL.Query()
		for k, v := range opts.QueryParams {
			q.Add(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fiberlog.Errorf("Error closing response body: %v", err)
		}
	}()

	buf := utils.Get()
	defer utils.Put(buf)
	_, readErr := buf.ReadFrom(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Body:       models.TruncateBody(buf.String(), c.MaxErrorBytes),
		}
	}
	if readErr != nil {
		return fmt.Errorf("error reading response body: %w", readErr)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(buf.B, result); err != nil {
		return fmt.Errorf("error unmarshaling response: %w", err)
	}
	return nil
}

// Close closes idle connections of the underlying transport
func (c *Client) Close() {
	c.HTTPClient.CloseIdleConnections()
}

type limitedTransport struct {
	next  http.RoundTripper
	limit int64
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Body = &limitedBody{
		ReadCloser: resp.Body,
		remaining:  t.limit,
		truncate:   resp.StatusCode < 200 || resp.StatusCode >= 300,
	}
	return resp, nil
}

func (t *limitedTransport) CloseIdleConnections() {
	if c, ok := t.next.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}

// limitedBody reads at most remaining bytes. Past the limit it fails with
// ErrBodyTooLarge, or reports io.EOF when truncate is set.
type limitedBody struct {
	io.ReadCloser
	remaining int64
	truncate  bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.truncate {
		if b.remaining <= 0 {
			return 0, io.EOF
		}
		if int64(len(p)) > b.remaining {
			p = p[:b.remaining]
		}
		n, err := b.ReadCloser.Read(p)
		b.remaining -= int64(n)
		return n, err
	}
	if b.remaining < 0 {
		return 0, ErrBodyTooLarge
	}
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.ReadCloser.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n + int(b.remaining), ErrBodyTooLarge
	}
	return n, err
}
