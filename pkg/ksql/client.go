// Package ksql is a client for the ksqlDB REST API and builds the statements that maintain
// the replica KSQL tables.
package ksql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/edgeflare/replica/pkg/httputil"
	"go.uber.org/zap"
)

const contentType = "application/vnd.ksql.v1+json; charset=utf-8"

var (
	ErrAlreadyExists = errors.New("ksql object already exists")
	ErrNotExists     = errors.New("ksql object does not exist")
)

// NeedToDropError reports the streams and tables that read from an object being dropped.
type NeedToDropError struct {
	Items []string
}

func (e *NeedToDropError) Error() string {
	return "dependent objects must be dropped first: " + strings.Join(e.Items, ", ")
}

var needToDropRe = regexp.MustCompile(`The following streams and/or tables read from this source: \[([^\]]*)\]`)

// StatementError is the error payload ksqlDB returns for a rejected statement.
type StatementError struct {
	Type          string `json:"@type"`
	Message       string `json:"message"`
	StatementText string `json:"statementText"`
	ErrorCode     int    `json:"error_code"`
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("ksql error %d: %s", e.ErrorCode, e.Message)
}

// Client talks to a ksqlDB server.
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

func WithoutRetry() Option {
	return func(c *Client) { c.retry = false }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  zap.NewNop(),
		timeout: 10 * time.Second,
		retry:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	KSQL              string            `json:"ksql"`
	StreamsProperties map[string]string `json:"streamsProperties,omitempty"`
}

func (c *Client) post(ctx context.Context, path, stmt string) (*httputil.Response, error) {
	cfg := httputil.DefaultRequestConfig(http.MethodPost, c.baseURL+path)
	cfg.Logger = c.logger
	cfg.Client = c.httpClient
	cfg.Timeout = c.timeout
	cfg.RetryEnabled = c.retry
	cfg.Headers = map[string][]string{
		"Content-Type": {contentType},
		"Accept":       {contentType},
	}

	c.logger.Debug("ksql request", zap.String("path", path), zap.String("statement", stmt))
	resp, err := httputil.Request(ctx, cfg, request{KSQL: stmt})
	if err != nil {
		return resp, classify(stmt, err)
	}
	return resp, nil
}

// classify turns a rejected statement into ErrAlreadyExists, ErrNotExists or *NeedToDropError
// where the server message allows it.
func classify(stmt string, err error) error {
	var se *httputil.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		return err
	}
	var serr StatementError
	if json.Unmarshal(se.Body, &serr) != nil || serr.Message == "" {
		return err
	}
	text := serr.StatementText
	if text == "" {
		text = stmt
	}
	text = strings.ToUpper(text)

	switch {
	case strings.Contains(text, "CREATE TABLE") && strings.Contains(serr.Message, "already exists"):
		return fmt.Errorf("%w: %s", ErrAlreadyExists, serr.Message)
	case strings.Contains(text, "DROP TABLE"):
		if strings.Contains(serr.Message, "does not exist") {
			return fmt.Errorf("%w: %s", ErrNotExists, serr.Message)
		}
		if m := needToDropRe.FindStringSubmatch(serr.Message); m != nil {
			return &NeedToDropError{Items: splitItems(m[1])}
		}
	}
	return &serr
}

func splitItems(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Execute runs a DDL/DML statement through POST /ksql and returns the command entities.
func (c *Client) Execute(ctx context.Context, stmt string) ([]json.RawMessage, error) {
	resp, err := c.post(ctx, "/ksql", stmt)
	if err != nil {
		return nil, err
	}
	var entities []json.RawMessage
	if err := json.Unmarshal(resp.Body, &entities); err != nil {
		return nil, fmt.Errorf("decode ksql response: %w", err)
	}
	c.logger.Info("ksql statement executed", zap.String("statement", stmt))
	return entities, nil
}

// Row is one result row of a pull query.
type Row []json.RawMessage

type queryEntry struct {
	Row *struct {
		Columns Row `json:"columns"`
	} `json:"row"`
}

// Query runs a pull query through POST /query and returns its rows.
func (c *Client) Query(ctx context.Context, stmt string) ([]Row, error) {
	resp, err := c.post(ctx, "/query", stmt)
	if err != nil {
		return nil, err
	}
	var entries []queryEntry
	if err := json.Unmarshal(resp.Body, &entries); err != nil {
		return nil, fmt.Errorf("decode ksql query response: %w", err)
	}
	var rows []Row
	for _, e := range entries {
		if e.Row != nil {
			rows = append(rows, e.Row.Columns)
		}
	}
	return rows, nil
}

// Targets returns the database targets assigned to an account, or nil when none are.
func (c *Client) Targets(ctx context.Context, accountID int) ([]string, error) {
	rows, err := c.Query(ctx, SelectTargets(accountID))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, nil
	}
	var targets []string
	if err := json.Unmarshal(rows[0][0], &targets); err != nil {
		c.logger.Warn("unable to decode targets row", zap.Int("account_id", accountID), zap.Error(err))
		return nil, nil
	}
	return targets, nil
}
