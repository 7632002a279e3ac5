package replica

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/edgeflare/replica/pkg/broadcast"
	"github.com/edgeflare/replica/pkg/console"
	"github.com/edgeflare/replica/pkg/httputil"
	"github.com/edgeflare/replica/pkg/kafka"
	"github.com/edgeflare/replica/pkg/metrics"
	"github.com/edgeflare/replica/pkg/notify"
	"github.com/edgeflare/replica/pkg/pgx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the console server",
	Long:  `Serves the topology diagram, the inspector panes and the setup API, and pushes sync status to websocket clients`,
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringP("server.listenAddr", "l", "", "console listen address")
	f.Bool("broadcast.enabled", false, "consume the status topic and stream it on /ws/broadcast/{acct}/")
	f.Bool("probe.enabled", false, "probe sink databases when inspecting them")
	f.Bool("metrics.enabled", true, "serve prometheus metrics")
	f.String("metrics.addr", "", "prometheus metrics listen address")
	v.BindPFlags(f)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	if cfg.Metrics.Enabled {
		metrics.StartPrometheusServer(ctx, &wg, &metrics.PromServerOpts{
			Logger: logger,
			Addr:   cfg.Metrics.Addr,
			Path:   cfg.Metrics.Path,
		})
	}

	hub := notify.NewHub(logger)
	sinks, err := notify.NewMulti(cfg.Notify, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize notification sinks: %w", err)
	}
	notifier := append(notify.Multi{notify.NewLogNotifier(logger), hub}, sinks...)
	defer notifier.Close()

	tmpl, err := template()
	if err != nil {
		return err
	}

	loader := newLoader(logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		loader.Run(ctx, cfg.Topology.PollInterval)
	}()

	opts := []console.Option{
		console.WithLogger(logger),
		console.WithTemplate(tmpl),
		console.WithSelectedColor(cfg.Topology.SelectedColor),
		console.WithNotifications(hub),
		console.WithCORSOrigins(cfg.Server.CORSOrigins...),
		console.WithRouterOptions(
			httputil.WithServerOptions(func(s *http.Server) { s.ReadHeaderTimeout = 5 * time.Second }),
		),
	}
	if cfg.Server.TLSSelfSigned {
		opts = append(opts, console.WithRouterOptions(httputil.WithSelfSignedTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile, cfg.Server.TLSHosts...)))
	} else {
		opts = append(opts, console.WithRouterOptions(httputil.WithTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)))
	}
	if cfg.Probe.Enabled {
		opts = append(opts, console.WithProber(pgx.NewProber(
			pgx.WithPassword(cfg.Probe.Password),
			pgx.WithTimeout(cfg.Probe.Timeout),
			pgx.WithLogger(logger),
		)))
	}
	if cfg.Broadcast.Enabled {
		statuses := broadcast.NewHub(logger)
		if err := startBroadcast(ctx, &wg, statuses, logger); err != nil {
			return err
		}
		opts = append(opts, console.WithBroadcast(statuses))
	}

	srv := console.NewServer(loader, newService(logger, notifier), opts...)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(cfg.Server.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("received termination signal, shutting down gracefully")
	case err := <-errChan:
		logger.Error("console server error", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("console server shutdown", zap.Error(err))
	}

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10 seconds")
	}
	return nil
}

// startBroadcast joins the status consumer group and feeds statuses until ctx ends.
func startBroadcast(ctx context.Context, wg *sync.WaitGroup, statuses *broadcast.Hub, logger *zap.Logger) error {
	group, err := kafka.NewClient(&cfg.Kafka, logger).ConsumerGroup(cfg.Broadcast.Group)
	if err != nil {
		return err
	}
	consumer := broadcast.NewConsumer(statuses,
		broadcast.WithTopic(cfg.Broadcast.Topic),
		broadcast.WithLogger(logger),
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer group.Close()
		if err := consumer.Run(ctx, group); err != nil {
			logger.Error("status consumer stopped", zap.Error(err))
		}
	}()
	return nil
}
