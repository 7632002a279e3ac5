package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/IBM/sarama"
)

const (
	DefaultVersion  = "2.8.0"
	DefaultClientID = "replica"
)

// Config represents Kafka-specific configuration
type Config struct {
	Brokers  []string `mapstructure:"brokers" json:"brokers"`
	Version  string   `mapstructure:"version" json:"version,omitempty"`
	ClientID string   `mapstructure:"client_id" json:"clientId,omitempty"`
	SASL     SASL     `mapstructure:"sasl" json:"sasl"`
	TLS      TLS      `mapstructure:"tls" json:"tls"`
}

// SASL represents SASL authentication configuration
type SASL struct {
	Username  string `mapstructure:"username" json:"username,omitempty"`
	Password  string `mapstructure:"password" json:"-"`
	Algorithm string `mapstructure:"algorithm" json:"algorithm,omitempty"`
	Enable    bool   `mapstructure:"enable" json:"enable"`
}

// TLS represents TLS configuration
type TLS struct {
	CertFile   string `mapstructure:"cert_file" json:"certFile,omitempty"`
	KeyFile    string `mapstructure:"key_file" json:"keyFile,omitempty"`
	CAFile     string `mapstructure:"ca_file" json:"caFile,omitempty"`
	Enable     bool   `mapstructure:"enable" json:"enable"`
	SkipVerify bool   `mapstructure:"skip_verify" json:"skipVerify,omitempty"`
}

var ErrNoBrokers = errors.New("kafka: no brokers configured")

// ToSaramaConfig converts the Config to a sarama.Config
func (c *Config) ToSaramaConfig() (*sarama.Config, error) {
	if len(c.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	conf := sarama.NewConfig()

	v := c.Version
	if v == "" {
		v = DefaultVersion
	}
	version, err := sarama.ParseKafkaVersion(v)
	if err != nil {
		return nil, fmt.Errorf("error parsing Kafka version: %w", err)
	}
	conf.Version = version

	if c.SASL.Enable {
		conf.Net.SASL.Enable = true
		conf.Net.SASL.User = c.SASL.Username
		conf.Net.SASL.Password = c.SASL.Password
		conf.Net.SASL.Handshake = true

		switch c.SASL.Algorithm {
		case "sha512", "":
			conf.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient { return &XDGSCRAMClient{HashGeneratorFcn: SHA512} }
			conf.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
		case "sha256":
			conf.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient { return &XDGSCRAMClient{HashGeneratorFcn: SHA256} }
			conf.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		case "plain":
			conf.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		default:
			return nil, fmt.Errorf("invalid SASL algorithm: %s", c.SASL.Algorithm)
		}
	}

	if c.TLS.Enable {
		tlsConfig, err := newTLSConfig(c.TLS)
		if err != nil {
			return nil, err
		}
		conf.Net.TLS.Enable = true
		conf.Net.TLS.Config = tlsConfig
	}

	conf.ClientID = DefaultClientID
	if c.ClientID != "" {
		conf.ClientID = c.ClientID
	}
	conf.Producer.Retry.Max = 3
	conf.Producer.RequiredAcks = sarama.WaitForAll
	conf.Producer.Return.Successes = true
	conf.Consumer.Offsets.Initial = sarama.OffsetOldest
	conf.Consumer.Return.Errors = true

	return conf, nil
}

func newTLSConfig(tlsCfg TLS) (*tls.Config, error) {
	t := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: tlsCfg.SkipVerify, //nolint:gosec
	}

	if tlsCfg.CAFile != "" {
		caCert, err := os.ReadFile(tlsCfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates found in %s", tlsCfg.CAFile)
		}
		t.RootCAs = pool
	}

	if tlsCfg.CertFile != "" && tlsCfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(tlsCfg.CertFile, tlsCfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		t.Certificates = []tls.Certificate{cert}
	}

	return t, nil
}
