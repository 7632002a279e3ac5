package notify

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSConfig configures the NATS sink.
type NATSConfig struct {
	Servers       []string `mapstructure:"servers" json:"servers"`
	SubjectPrefix string   `mapstructure:"subjectPrefix" json:"subjectPrefix"`
	Username      string   `mapstructure:"username" json:"username,omitempty"`
	Password      string   `mapstructure:"password" json:"password,omitempty"`
	TLS           struct {
		Enabled  bool   `mapstructure:"enabled" json:"enabled"`
		CertFile string `mapstructure:"certFile" json:"certFile,omitempty"`
		KeyFile  string `mapstructure:"keyFile" json:"keyFile,omitempty"`
		CAFile   string `mapstructure:"caFile" json:"caFile,omitempty"`
	} `mapstructure:"tls" json:"tls,omitempty"`
}

var errNATSNotConnected = errors.New("NATS connection not initialized")

type natsPublisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes each notification as JSON on <prefix>.<level>.
type NATSNotifier struct {
	pub    natsPublisher
	nc     *nats.Conn
	logger *zap.Logger
	prefix string
}

// DialNATS connects to the first reachable server of cfg.
func DialNATS(cfg NATSConfig, logger *zap.Logger) (*NATSNotifier, error) {
	if len(cfg.Servers) == 0 {
		cfg.Servers = []string{nats.DefaultURL}
	}

	opts := natsOptions(cfg)
	var (
		nc  *nats.Conn
		err error
	)
	for _, server := range cfg.Servers {
		nc, err = nats.Connect(server, opts...)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to NATS server: %w", err)
	}

	n := newNATSNotifier(nc, cfg.SubjectPrefix, logger)
	n.nc = nc
	return n, nil
}

func newNATSNotifier(pub natsPublisher, prefix string, logger *zap.Logger) *NATSNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSNotifier{pub: pub, prefix: cmp.Or(prefix, "replica.notifications"), logger: logger}
}

func (n *NATSNotifier) Subject(level Level) string {
	return n.prefix + "." + string(level)
}

func (n *NATSNotifier) Notify(_ context.Context, note Notification) error {
	if n.pub == nil {
		return errNATSNotConnected
	}
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := n.pub.Publish(n.Subject(note.Level), data); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (n *NATSNotifier) Close() error {
	if n.nc != nil {
		n.nc.Close()
	}
	return nil
}

func natsOptions(c NATSConfig) []nats.Option {
	opts := []nats.Option{
		nats.Name("replica"),
		nats.Timeout(5 * time.Second),
		nats.PingInterval(10 * time.Second),
		nats.MaxPingsOutstanding(3),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	}

	if c.Username != "" && c.Password != "" {
		opts = append(opts, nats.UserInfo(c.Username, c.Password))
	}

	if c.TLS.Enabled {
		if c.TLS.CAFile != "" {
			opts = append(opts, nats.RootCAs(c.TLS.CAFile))
		}
		if c.TLS.CertFile != "" && c.TLS.KeyFile != "" {
			opts = append(opts, nats.ClientCert(c.TLS.CertFile, c.TLS.KeyFile))
		}
	}

	return opts
}
