package notify

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTTConfig configures the MQTT sink.
type MQTTConfig struct {
	Servers        []string      `mapstructure:"servers" json:"servers"`
	ClientID       string        `mapstructure:"clientId" json:"clientId,omitempty"`
	Username       string        `mapstructure:"username" json:"username,omitempty"`
	Password       string        `mapstructure:"password" json:"password,omitempty"`
	TopicPrefix    string        `mapstructure:"topicPrefix" json:"topicPrefix"`
	QoS            byte          `mapstructure:"qos" json:"qos"`
	Retained       bool          `mapstructure:"retained" json:"retained"`
	ConnectTimeout time.Duration `mapstructure:"connectTimeout" json:"connectTimeout,omitempty"`
}

type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTNotifier publishes each notification as JSON on <prefix>/<level>.
type MQTTNotifier struct {
	pub      mqttPublisher
	client   mqtt.Client
	logger   *zap.Logger
	prefix   string
	qos      byte
	retained bool
}

// DialMQTT connects to the broker described by cfg.
func DialMQTT(cfg MQTTConfig, logger *zap.Logger) (*MQTTNotifier, error) {
	client := mqtt.NewClient(mqttOptions(cfg))
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("broker connection error: %w", token.Error())
	}

	n := newMQTTNotifier(client, cfg, logger)
	n.client = client
	return n, nil
}

func newMQTTNotifier(pub mqttPublisher, cfg MQTTConfig, logger *zap.Logger) *MQTTNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQTTNotifier{
		pub:      pub,
		logger:   logger,
		prefix:   cmp.Or(cfg.TopicPrefix, "replica/notifications"),
		qos:      cfg.QoS,
		retained: cfg.Retained,
	}
}

func (m *MQTTNotifier) Topic(level Level) string {
	return m.prefix + "/" + string(level)
}

func (m *MQTTNotifier) Notify(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	topic := m.Topic(n.Level)
	token := m.pub.Publish(topic, m.qos, m.retained, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		m.logger.Error("Publish error", zap.Error(err), zap.String("topic", topic))
		return fmt.Errorf("publish notification: %w", err)
	}
	m.logger.Debug("Message published", zap.String("topic", topic))
	return nil
}

func (m *MQTTNotifier) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}

func mqttOptions(cfg MQTTConfig) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	if len(cfg.Servers) == 0 {
		cfg.Servers = []string{"tcp://127.0.0.1:1883"}
	}
	for _, server := range cfg.Servers {
		opts.AddBroker(server)
	}
	opts.SetClientID(cmp.Or(cfg.ClientID, "replica-console"))
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectTimeout(cmp.Or(cfg.ConnectTimeout, 10*time.Second))
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	return opts
}
