// Package registry is a minimal client for the Confluent schema registry.
package registry

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

const contentType = "application/vnd.schemaregistry.v1+json"

// ErrIncompatible is returned when a subject already holds a schema the new one cannot evolve from.
var ErrIncompatible = errors.New("schema is incompatible with the subject")

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

// URL returns the registry base URL as handed to connectors.
func (c *Client) URL() string { return c.baseURL }

// CreateSchema registers schema under subject and returns its id. Registering a schema
// identical to the latest version returns the existing id.
func (c *Client) CreateSchema(ctx context.Context, subject string, schema any) (int, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return 0, fmt.Errorf("marshal schema: %w", err)
	}

	cfg := httputil.DefaultRequestConfig(http.MethodPost, c.baseURL+"/subjects/"+url.PathEscape(subject)+"/versions")
	cfg.Logger = c.logger
	cfg.Client = c.httpClient
	cfg.Timeout = c.timeout
	cfg.RetryEnabled = c.retry
	cfg.Headers = map[string][]string{"Content-Type": {contentType}}

	resp, err := httputil.Request(ctx, cfg, map[string]string{"schema": string(raw)})
	if err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusConflict {
			return 0, fmt.Errorf("register %s: %w", subject, ErrIncompatible)
		}
		return 0, fmt.Errorf("register %s: %w", subject, err)
	}

	var out struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return 0, fmt.Errorf("decode registry response: %w", err)
	}
	c.logger.Info("schema registered", zap.String("subject", subject), zap.Int("id", out.ID))
	return out.ID, nil
}

// SourceSchema is the Avro value schema of the account records the source connector emits.
func SourceSchema() map[string]any {
	return map[string]any{
		"type": "record",
		"name": "account",
		"fields": []any{
			map[string]any{"name": "acct_id", "type": "int"},
			map[string]any{"name": "name", "type": []any{"null", "string"}, "default": nil},
			map[string]any{"name": "last_change_id", "type": "long"},
			map[string]any{"name": "last_modified", "type": map[string]any{
				"type":            "long",
				"connect.version": 1,
				"connect.name":    "org.apache.kafka.connect.data.Timestamp",
				"logicalType":     "timestamp-millis",
			}},
		},
		"connect.name": "account",
	}
}
