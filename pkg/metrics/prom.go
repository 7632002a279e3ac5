package metrics

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	TopologyLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replica_topology_loads_total",
			Help: "Total number of connector topology loads by result",
		},
		[]string{"result"}, // applied, stale, error
	)

	TopologyLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "replica_topology_load_duration_seconds",
			Help:    "Duration of connector topology loads",
			Buckets: prometheus.DefBuckets,
		},
	)

	TopologyNodes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "replica_topology_nodes",
			Help: "Number of nodes per group in the current topology",
		},
		[]string{"group"},
	)

	DiagramRenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "replica_diagram_render_duration_seconds",
			Help:    "Duration of diagram template expansion",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	StatusMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replica_status_messages_total",
			Help: "Total number of sync-status messages consumed by result",
		},
		[]string{"result"}, // broadcast, undecodable
	)

	StatusSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "replica_status_subscribers",
			Help: "Number of connected status stream subscribers",
		},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replica_notifications_total",
			Help: "Total number of notifications by sink and level",
		},
		[]string{"sink", "level"},
	)

	NotifyErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replica_notify_errors_total",
			Help: "Total number of failed notification deliveries by sink",
		},
		[]string{"sink"},
	)
)

type PromServerOpts struct {
	Logger            *zap.Logger
	Addr              string
	Path              string        // Path for metrics endpoint, defaults to "/metrics"
	ShutdownTimeout   time.Duration // Timeout for server shutdown, defaults to 5 seconds
	ReadHeaderTimeout time.Duration // Timeout for reading request headers, defaults to 3 seconds
}

func defaultPrometheusServerOptions() PromServerOpts {
	return PromServerOpts{
		Logger:            zap.NewNop(),
		Addr:              ":9100",
		Path:              "/metrics",
		ShutdownTimeout:   5 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// StartPrometheusServer starts a Prometheus metrics server with the given options.
// The server shuts down gracefully when ctx is canceled; wg is released once it has.
func StartPrometheusServer(ctx context.Context, wg *sync.WaitGroup, opts *PromServerOpts) {
	effectiveOpts := defaultPrometheusServerOptions()
	if opts != nil {
		effectiveOpts.Addr = cmp.Or(opts.Addr, effectiveOpts.Addr)
		effectiveOpts.Path = cmp.Or(opts.Path, effectiveOpts.Path)
		effectiveOpts.ShutdownTimeout = cmp.Or(opts.ShutdownTimeout, effectiveOpts.ShutdownTimeout)
		effectiveOpts.ReadHeaderTimeout = cmp.Or(opts.ReadHeaderTimeout, effectiveOpts.ReadHeaderTimeout)
		if opts.Logger != nil {
			effectiveOpts.Logger = opts.Logger
		}
	}
	logger := effectiveOpts.Logger

	mux := http.NewServeMux()
	mux.Handle(effectiveOpts.Path, promhttp.Handler())
	server := &http.Server{
		Addr:              effectiveOpts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: effectiveOpts.ReadHeaderTimeout,
	}

	serverClosed := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting metrics server", zap.String("addr", effectiveOpts.Addr), zap.String("path", effectiveOpts.Path))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
		close(serverClosed)
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), effectiveOpts.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down metrics server", zap.Error(err))
		}

		select {
		case <-serverClosed:
			logger.Info("metrics server shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("metrics server shutdown timed out")
		}
	}()
}
