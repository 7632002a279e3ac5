package notify

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/edgeflare/replica/pkg/kafka"
	"go.uber.org/zap"
)

// KafkaConfig configures the Kafka sink.
type KafkaConfig struct {
	kafka.Config `mapstructure:",squash"`
	Topic        string `mapstructure:"topic" json:"topic"`
}

// KafkaNotifier produces each notification as JSON to a topic, keyed by level.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	logger   *zap.Logger
	topic    string
}

func DialKafka(cfg KafkaConfig, logger *zap.Logger) (*KafkaNotifier, error) {
	producer, err := kafka.NewClient(&cfg.Config, logger).SyncProducer()
	if err != nil {
		return nil, err
	}
	return NewKafkaNotifier(producer, cfg.Topic, logger), nil
}

func NewKafkaNotifier(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaNotifier{producer: producer, topic: cmp.Or(topic, "replica_notifications"), logger: logger}
}

func (k *KafkaNotifier) Notify(_ context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	partition, offset, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(n.Level),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("produce notification: %w", err)
	}
	k.logger.Debug("notification produced",
		zap.String("topic", k.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.producer.Close()
}
