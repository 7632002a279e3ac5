// Package pgx checks reachability of the sink databases a replication topology points at.
package pgx

import (
	"cmp"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const DefaultProbeTimeout = 3 * time.Second

// Status is the outcome of probing one database.
type Status struct {
	ConnString string        `json:"connString"`
	Version    string        `json:"version,omitempty"`
	Error      string        `json:"error,omitempty"`
	Latency    time.Duration `json:"latency"`
	Reachable  bool          `json:"reachable"`
}

// Prober connects to databases, asks for their server version and disconnects.
type Prober struct {
	logger   *zap.Logger
	password string
	timeout  time.Duration
}

type ProberOption func(*Prober)

// WithPassword sets the password used for connection strings that carry none.
func WithPassword(password string) ProberOption {
	return func(p *Prober) { p.password = password }
}

func WithTimeout(d time.Duration) ProberOption {
	return func(p *Prober) { p.timeout = d }
}

func WithLogger(logger *zap.Logger) ProberOption {
	return func(p *Prober) { p.logger = logger }
}

func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{logger: zap.NewNop(), timeout: DefaultProbeTimeout}
	for _, opt := range opts {
		opt(p)
	}
	p.timeout = cmp.Or(p.timeout, DefaultProbeTimeout)
	return p
}

// Probe never returns an error; failures are reported in the Status.
func (p *Prober) Probe(ctx context.Context, connString string) Status {
	st := Status{ConnString: connString}
	start := time.Now()

	version, err := p.probe(ctx, connString)
	st.Latency = time.Since(start)
	if err != nil {
		st.Error = err.Error()
		p.logger.Debug("database probe failed", zap.String("conn", connString), zap.Error(err))
		return st
	}
	st.Reachable = true
	st.Version = version
	return st
}

func (p *Prober) probe(ctx context.Context, connString string) (string, error) {
	config, err := pgx.ParseConfig(connString)
	if err != nil {
		return "", fmt.Errorf("parse connection string: %w", err)
	}
	if config.Password == "" {
		config.Password = p.password
	}
	config.ConnectTimeout = p.timeout

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := pgx.ConnectConfig(ctx, config)
	if err != nil {
		return "", fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	var version string
	if err := conn.QueryRow(ctx, "SHOW server_version").Scan(&version); err != nil {
		return "", fmt.Errorf("query server version: %w", err)
	}
	return version, nil
}

// ProbeAll probes every connection string concurrently. Duplicates are probed once.
func (p *Prober) ProbeAll(ctx context.Context, connStrings []string) map[string]Status {
	unique := make(map[string]struct{}, len(connStrings))
	for _, cs := range connStrings {
		unique[cs] = struct{}{}
	}

	out := make(map[string]Status, len(unique))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for cs := range unique {
		wg.Add(1)
		go func(cs string) {
			defer wg.Done()
			st := p.Probe(ctx, cs)
			mu.Lock()
			out[cs] = st
			mu.Unlock()
		}(cs)
	}
	wg.Wait()
	return out
}
