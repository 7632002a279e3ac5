package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edgeflare/replica/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "replica.yaml", "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "http://localhost:8083", cfg.Connect.URL)
	assert.Equal(t, 10*time.Second, cfg.KSQL.Timeout)
	assert.Equal(t, "replica", cfg.Topology.Namespace)
	assert.Equal(t, 5*time.Second, cfg.Topology.PollInterval)
	assert.Equal(t, "#00D1FF", cfg.Topology.SelectedColor)
	assert.Equal(t, "replica_status", cfg.Broadcast.Topic)
	assert.Equal(t, "replica_broadcast", cfg.Broadcast.Group)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "kafka:9092", cfg.Cluster.BootstrapServers)
	assert.Empty(t, cfg.Notify)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "replica.yaml", `
server:
  listenAddr: ":9000"
connect:
  url: http://connect:8083
topology:
  pollInterval: 30s
  keepLastResponse: true
kafka:
  brokers: [kafka-0:9092, kafka-1:9092]
  sasl:
    enable: true
    algorithm: sha512
notify:
  - type: log
  - name: ops
    type: nats
    config:
      servers: [nats://nats:4222]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.ListenAddr)
	assert.Equal(t, "http://connect:8083", cfg.Connect.URL)
	assert.Equal(t, 30*time.Second, cfg.Topology.PollInterval)
	assert.True(t, cfg.Topology.KeepLastResponse)
	assert.Equal(t, []string{"kafka-0:9092", "kafka-1:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.SASL.Enable)
	assert.Equal(t, "sha512", cfg.Kafka.SASL.Algorithm)

	require.Len(t, cfg.Notify, 2)
	assert.Equal(t, notify.SinkLog, cfg.Notify[0].Type)
	assert.Equal(t, "ops", cfg.Notify[1].Name)
	assert.Contains(t, cfg.Notify[1].Config, "servers")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("REPLICA_CONNECT_URL", "http://env-connect:8083")
	t.Setenv("REPLICA_TOPOLOGY_POLLINTERVAL", "1m")

	cfg, err := Load(writeFile(t, "replica.yaml", "connect:\n  url: http://file:8083\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://env-connect:8083", cfg.Connect.URL)
	assert.Equal(t, time.Minute, cfg.Topology.PollInterval)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "error reading config file")
}

func TestValidate(t *testing.T) {
	cfg := &Config{Broadcast: BroadcastConfig{Enabled: true}, Server: ServerConfig{TLSSelfSigned: true}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "connect.url is required")
	assert.ErrorContains(t, err, "pollInterval must be positive")
	assert.ErrorContains(t, err, "no brokers configured")
	assert.ErrorContains(t, err, "tlsSelfSigned needs tlsCertFile and tlsKeyFile")
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := writeFile(t, ".env", "REPLICA_TEST_DOTENV=from-file\n")
	t.Setenv("REPLICA_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("REPLICA_TEST_DOTENV"))
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("REPLICA_TEST_DOTENV"))
}
