package replica

import (
	"fmt"
	"os"

	"github.com/edgeflare/replica/pkg/connect"
	"github.com/edgeflare/replica/pkg/kafka"
	"github.com/edgeflare/replica/pkg/ksql"
	"github.com/edgeflare/replica/pkg/notify"
	"github.com/edgeflare/replica/pkg/registry"
	"github.com/edgeflare/replica/pkg/setup"
	"github.com/edgeflare/replica/pkg/topology"
	"go.uber.org/zap"
)

func newConnectClient(logger *zap.Logger) *connect.Client {
	return connect.NewClient(cfg.Connect.URL,
		connect.WithLogger(logger),
		connect.WithTimeout(cfg.Connect.Timeout),
	)
}

func newKSQLClient(logger *zap.Logger) *ksql.Client {
	return ksql.NewClient(cfg.KSQL.URL,
		ksql.WithLogger(logger),
		ksql.WithTimeout(cfg.KSQL.Timeout),
	)
}

func newService(logger *zap.Logger, notifier notify.Notifier) *setup.Service {
	schemas := registry.NewClient(cfg.Registry.URL, registry.WithLogger(logger))
	return setup.NewService(newConnectClient(logger), newKSQLClient(logger), schemas,
		setup.WithNotifier(notifier),
		setup.WithLogger(logger),
		setup.WithCluster(cfg.Cluster),
	)
}

func newLoader(logger *zap.Logger) *topology.Loader {
	opts := []topology.LoaderOption{
		topology.WithNamespace(cfg.Topology.Namespace),
		topology.WithLogger(logger),
	}
	if cfg.Topology.EnrichTopics {
		opts = append(opts, topology.WithTopicLister(kafka.NewClient(&cfg.Kafka, logger)))
	}
	if cfg.Topology.KeepLastResponse {
		opts = append(opts, topology.KeepLastResponse())
	}
	return topology.NewLoader(newConnectClient(logger), opts...)
}

// template returns the configured diagram template, or the embedded one.
func template() (string, error) {
	if cfg.Topology.Template == "" {
		return topology.DefaultTemplate, nil
	}
	b, err := os.ReadFile(cfg.Topology.Template)
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	return string(b), nil
}
