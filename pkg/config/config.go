package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/edgeflare/replica/pkg/connect"
	"github.com/edgeflare/replica/pkg/kafka"
	"github.com/edgeflare/replica/pkg/names"
	"github.com/edgeflare/replica/pkg/notify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Version is set at build time.
var Version = "dev"

// EnvPrefix prefixes every environment override, e.g. REPLICA_CONNECT_URL.
const EnvPrefix = "REPLICA"

// Config holds application-wide configuration
type Config struct {
	Server    ServerConfig        `mapstructure:"server"`
	Connect   EndpointConfig      `mapstructure:"connect"`
	KSQL      EndpointConfig      `mapstructure:"ksql"`
	Registry  EndpointConfig      `mapstructure:"registry"`
	Cluster   connect.Cluster     `mapstructure:"cluster"`
	Kafka     kafka.Config        `mapstructure:"kafka"`
	Topology  TopologyConfig      `mapstructure:"topology"`
	Broadcast BroadcastConfig     `mapstructure:"broadcast"`
	Probe     ProbeConfig         `mapstructure:"probe"`
	Metrics   MetricsConfig       `mapstructure:"metrics"`
	Notify    []notify.SinkConfig `mapstructure:"notify"`
}

type ServerConfig struct {
	ListenAddr  string   `mapstructure:"listenAddr"`
	CORSOrigins []string `mapstructure:"corsOrigins"`
	TLSCertFile string   `mapstructure:"tlsCertFile"`
	TLSKeyFile  string   `mapstructure:"tlsKeyFile"`
	// TLSSelfSigned generates the cert/key pair for TLSHosts when the files are missing.
	TLSSelfSigned bool     `mapstructure:"tlsSelfSigned"`
	TLSHosts      []string `mapstructure:"tlsHosts"`
}

// EndpointConfig is a REST collaborator of the console.
type EndpointConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TopologyConfig struct {
	Namespace        string        `mapstructure:"namespace"`
	PollInterval     time.Duration `mapstructure:"pollInterval"`
	Template         string        `mapstructure:"template"` // path; empty uses the embedded template
	SelectedColor    string        `mapstructure:"selectedColor"`
	KeepLastResponse bool          `mapstructure:"keepLastResponse"`
	EnrichTopics     bool          `mapstructure:"enrichTopics"`
}

type BroadcastConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Topic   string `mapstructure:"topic"`
	Group   string `mapstructure:"group"`
}

type ProbeConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// SetDefaults registers the default of every key, which also makes each key
// overridable from the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.listenAddr", ":8080")
	v.SetDefault("server.corsOrigins", []string{"*"})
	v.SetDefault("server.tlsCertFile", "")
	v.SetDefault("server.tlsKeyFile", "")
	v.SetDefault("server.tlsSelfSigned", false)
	v.SetDefault("server.tlsHosts", []string{"localhost", "127.0.0.1"})

	v.SetDefault("connect.url", "http://localhost:8083")
	v.SetDefault("connect.timeout", 10*time.Second)
	v.SetDefault("ksql.url", "http://localhost:8088")
	v.SetDefault("ksql.timeout", 10*time.Second)
	v.SetDefault("registry.url", "http://localhost:8081")
	v.SetDefault("registry.timeout", 10*time.Second)

	// as seen from the Connect workers
	v.SetDefault("cluster.bootstrapServers", "kafka:9092")
	v.SetDefault("cluster.schemaRegistryURL", "http://schema-registry:8081")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.version", kafka.DefaultVersion)
	v.SetDefault("kafka.client_id", kafka.DefaultClientID)

	v.SetDefault("topology.namespace", names.Namespace)
	v.SetDefault("topology.pollInterval", 5*time.Second)
	v.SetDefault("topology.template", "")
	v.SetDefault("topology.selectedColor", "#00D1FF")
	v.SetDefault("topology.keepLastResponse", false)
	v.SetDefault("topology.enrichTopics", false)

	v.SetDefault("broadcast.enabled", false)
	v.SetDefault("broadcast.topic", names.StatusTopic)
	v.SetDefault("broadcast.group", names.BroadcastGroup)

	v.SetDefault("probe.enabled", false)
	v.SetDefault("probe.password", "")
	v.SetDefault("probe.timeout", 3*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9100")
	v.SetDefault("metrics.path", "/metrics")
}

// New returns a viper instance with defaults and environment overrides wired.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads a .env file into the process environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads config from file or environment
func Load(cfgFile string) (*Config, error) {
	return LoadWith(New(), cfgFile)
}

// LoadWith reads config into v, which may already carry bound flags.
func LoadWith(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("replica")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	var errs []error
	if c.Connect.URL == "" {
		errs = append(errs, errors.New("connect.url is required"))
	}
	if c.Topology.PollInterval <= 0 {
		errs = append(errs, errors.New("topology.pollInterval must be positive"))
	}
	if c.Server.TLSSelfSigned && (c.Server.TLSCertFile == "" || c.Server.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.tlsSelfSigned needs tlsCertFile and tlsKeyFile"))
	}
	if c.Broadcast.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, fmt.Errorf("broadcast: %w", kafka.ErrNoBrokers))
	}
	return errors.Join(errs...)
}
