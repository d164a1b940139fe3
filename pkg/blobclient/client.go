// Package blobclient talks to the blob proxy exposed by the fiscal API.
//
// Every call runs with its own timeout and is retried with exponential
// backoff. Missing blobs and an unconfigured storage backend are never
// retried.
package blobclient

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

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultAttempts  = 3
	DefaultBaseDelay = time.Second

	proxyPath = "/api/blob-proxy"

	// maxErrorBody bounds how much of an error response ends up in an error
	maxErrorBody = 64 << 10
)

var (
	// ErrNotFound is returned by Head when the blob does not exist
	ErrNotFound = errors.New("Blob not found")
	// ErrNotConfigured is returned when the server has no storage backend
	ErrNotConfigured = errors.New("Blob Storage not configured. Please check the README for setup instructions.")
	// ErrEmptyBody is returned by Put when there is nothing to upload
	ErrEmptyBody = errors.New("blob body is required")
)

// ResponseError is a non-2xx answer from the proxy
type ResponseError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("Failed to %s blob: %s", e.Op, e.Body)
}

// Unwrap lets callers match a 404 with errors.Is(err, ErrNotFound)
func (e *ResponseError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Blob describes a stored object as returned by the proxy
type Blob struct {
	URL                string    `json:"url"`
	DownloadURL        string    `json:"downloadUrl"`
	Pathname           string    `json:"pathname"`
	ContentType        string    `json:"contentType,omitempty"`
	ContentDisposition string    `json:"contentDisposition,omitempty"`
	CacheControl       string    `json:"cacheControl,omitempty"`
	Size               int64     `json:"size"`
	UploadedAt         time.Time `json:"uploadedAt"`
}

// ListResult is one page of blobs
type ListResult struct {
	Blobs   []Blob `json:"blobs"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"hasMore"`
}

// PutOptions are forwarded to the proxy with every upload
type PutOptions struct {
	Access      string `json:"access,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

type putRequest struct {
	Pathname string        `json:"pathname"`
	Body     string        `json:"body"`
	Options  putRequestOpt `json:"options"`
}

type putRequestOpt struct {
	PutOptions
	AllowOverwrite bool `json:"allowOverwrite"`
}

type deleteRequest struct {
	URL string `json:"url"`
}

// Client calls the blob proxy of one API deployment
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	attempts   uint64
	baseDelay  time.Duration
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used to report retries
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTimeout sets the timeout of a single attempt
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetry sets the total number of attempts and the first backoff delay.
// The delay doubles after every failed attempt.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}
		c.attempts = uint64(attempts)
		c.baseDelay = baseDelay
	}
}

// New creates a client for the API at baseURL, e.g. https://fiscal.example.org
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		attempts:   DefaultAttempts,
		baseDelay:  DefaultBaseDelay,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns the blobs whose pathname starts with prefix
func (c *Client) List(ctx context.Context, prefix string) (*ListResult, error) {
	var result ListResult
	endpoint := proxyPath + "?prefix=" + url.QueryEscape(prefix)
	if err := c.do(ctx, "list", http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Put uploads body to pathname, replacing any existing blob
func (c *Client) Put(ctx context.Context, pathname, body string, opts PutOptions) (*Blob, error) {
	if body == "" {
		return nil, ErrEmptyBody
	}
	payload, err := json.Marshal(putRequest{
		Pathname: pathname,
		Body:     body,
		Options:  putRequestOpt{PutOptions: opts, AllowOverwrite: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode put request: %w", err)
	}

	var blob Blob
	if err := c.do(ctx, "upload", http.MethodPost, proxyPath, payload, &blob); err != nil {
		return nil, err
	}
	return &blob, nil
}

// Head returns the metadata of pathname, or ErrNotFound
func (c *Client) Head(ctx context.Context, pathname string) (*Blob, error) {
	var blob Blob
	endpoint := proxyPath + "/head?pathname=" + url.QueryEscape(pathname)
	if err := c.do(ctx, "head", http.MethodGet, endpoint, nil, &blob); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &blob, nil
}

// Delete removes the blob addressed by a blob URL or pathname
func (c *Client) Delete(ctx context.Context, blobURL string) error {
	payload, err := json.Marshal(deleteRequest{URL: blobURL})
	if err != nil {
		return fmt.Errorf("failed to encode delete request: %w", err)
	}
	return c.do(ctx, "delete", http.MethodDelete, proxyPath, payload, nil)
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, payload []byte, out interface{}) error {
	backoff := retry.WithMaxRetries(c.attempts-1, retry.NewExponential(c.baseDelay))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := c.roundTrip(ctx, op, method, endpoint, payload, out)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotConfigured) || ctx.Err() != nil {
			return err
		}

		c.logger.Warn("blob request failed",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Uint64("max_attempts", c.attempts),
			zap.Error(err))
		return retry.RetryableError(err)
	})
}

func (c *Client) roundTrip(ctx context.Context, op, method, endpoint string, payload []byte, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to %s blob: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		text := string(raw)
		if err != nil {
			text = "Unknown error"
		}
		if strings.Contains(text, "storage_not_configured") || strings.Contains(text, "BLOB_READ_WRITE_TOKEN") {
			return ErrNotConfigured
		}
		return &ResponseError{Op: op, StatusCode: resp.StatusCode, Body: text}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
