// Package connect is a client for the Kafka Connect REST API and builds the JDBC connector
// configurations of a replica deployment.
package connect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/edgeflare/replica/pkg/httputil"
	"go.uber.org/zap"
)

var (
	ErrAlreadyExists = errors.New("connector already exists")
	ErrNotExists     = errors.New("connector does not exist")
)

// Client talks to a Kafka Connect worker.
type Client struct {
	baseURL    string
	logger     *zap.Logger
	httpClient *http.Client
	timeout    time.Duration
	retry      bool
}

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithoutRetry disables retries of failed requests.
func WithoutRetry() Option {
	return func(c *Client) { c.retry = false }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  zap.NewNop(),
		timeout: 5 * time.Second,
		retry:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the worker base URL.
func (c *Client) URL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, payload any) (*httputil.Response, error) {
	cfg := httputil.DefaultRequestConfig(method, c.baseURL+path)
	cfg.Logger = c.logger
	cfg.Client = c.httpClient
	cfg.Timeout = c.timeout
	cfg.RetryEnabled = c.retry

	c.logger.Debug("kafka connect request", zap.String("method", method), zap.String("path", path))
	resp, err := httputil.Request(ctx, cfg, payload)
	if err != nil {
		return resp, mapError(err)
	}
	return resp, nil
}

// errorBody is the error payload of the Connect REST API.
type errorBody struct {
	Message   string `json:"message"`
	ErrorCode int    `json:"error_code"`
}

func mapError(err error) error {
	var se *httputil.StatusError
	if !errors.As(err, &se) {
		return err
	}
	var body errorBody
	_ = json.Unmarshal(se.Body, &body)

	switch {
	case se.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotExists, body.Message)
	case se.StatusCode == http.StatusConflict && strings.Contains(body.Message, "already exists"):
		return fmt.Errorf("%w: %s", ErrAlreadyExists, body.Message)
	}
	return err
}

// List returns every connector with its configuration and status, keyed by name.
func (c *Client) List(ctx context.Context) (map[string]ConnectorInfoStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, "/connectors?expand=info&expand=status", nil)
	if err != nil {
		return nil, fmt.Errorf("list connectors: %w", err)
	}
	var out map[string]ConnectorInfoStatus
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("decode connectors: %w", err)
	}
	return out, nil
}

// Status returns the status of a single connector.
func (c *Client) Status(ctx context.Context, name string) (*ConnectorStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, "/connectors/"+url.PathEscape(name)+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("connector %s status: %w", name, err)
	}
	var status ConnectorStatus
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		return nil, fmt.Errorf("decode connector status: %w", err)
	}
	return &status, nil
}

// Create creates a connector. An existing connector of the same name yields ErrAlreadyExists.
func (c *Client) Create(ctx context.Context, name string, config Config) error {
	payload := struct {
		Name   string `json:"name"`
		Config Config `json:"config"`
	}{Name: name, Config: config}

	if _, err := c.do(ctx, http.MethodPost, "/connectors", payload); err != nil {
		return fmt.Errorf("create connector %s: %w", name, err)
	}
	c.logger.Info("connector created", zap.String("connector", name))
	return nil
}

// Delete removes a connector. A missing connector yields ErrNotExists.
func (c *Client) Delete(ctx context.Context, name string) error {
	if _, err := c.do(ctx, http.MethodDelete, "/connectors/"+url.PathEscape(name), nil); err != nil {
		return fmt.Errorf("delete connector %s: %w", name, err)
	}
	c.logger.Info("connector deleted", zap.String("connector", name))
	return nil
}

func (c *Client) Pause(ctx context.Context, name string) error {
	if _, err := c.do(ctx, http.MethodPut, "/connectors/"+url.PathEscape(name)+"/pause", nil); err != nil {
		return fmt.Errorf("pause connector %s: %w", name, err)
	}
	return nil
}

func (c *Client) Resume(ctx context.Context, name string) error {
	if _, err := c.do(ctx, http.MethodPut, "/connectors/"+url.PathEscape(name)+"/resume", nil); err != nil {
		return fmt.Errorf("resume connector %s: %w", name, err)
	}
	return nil
}
