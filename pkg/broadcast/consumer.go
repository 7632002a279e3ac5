package broadcast

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/edgeflare/replica/pkg/metrics"
	"github.com/edgeflare/replica/pkg/names"
	"go.uber.org/zap"
)

// Consumer reads the status topic in a consumer group and publishes every decodable
// message to a Hub. It implements sarama.ConsumerGroupHandler.
type Consumer struct {
	hub    *Hub
	logger *zap.Logger
	topic  string
}

type ConsumerOption func(*Consumer)

func WithTopic(topic string) ConsumerOption {
	return func(c *Consumer) { c.topic = topic }
}

func WithLogger(logger *zap.Logger) ConsumerOption {
	return func(c *Consumer) { c.logger = logger }
}

func NewConsumer(hub *Hub, opts ...ConsumerOption) *Consumer {
	c := &Consumer{hub: hub, logger: zap.NewNop(), topic: names.StatusTopic}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Consumer) Setup(sess sarama.ConsumerGroupSession) error {
	c.logger.Info("status consumer joined", zap.Int32("generation", sess.GenerationID()), zap.Any("claims", sess.Claims()))
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (c *Consumer) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			c.Handle(msg)
			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		}
	}
}

// Handle decodes one status record and publishes it. The record key is the account id.
func (c *Consumer) Handle(msg *sarama.ConsumerMessage) {
	accountID := string(msg.Key)
	status, err := DecodeStatus(msg.Value)
	if err != nil || accountID == "" {
		metrics.StatusMessages.WithLabelValues("undecodable").Inc()
		c.logger.Warn("message deserialization failed",
			zap.String("topic", msg.Topic),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return
	}

	metrics.StatusMessages.WithLabelValues("broadcast").Inc()
	n := c.hub.Publish(NewEvent(accountID, status))
	c.logger.Debug("processing message",
		zap.String("acct_id", accountID),
		zap.String("label", status.Label),
		zap.Int("subscribers", n),
	)
}

// Run consumes until ctx is canceled, rejoining the group after every rebalance.
func (c *Consumer) Run(ctx context.Context, group sarama.ConsumerGroup) error {
	go func() {
		for err := range group.Errors() {
			c.logger.Error("status consumer error", zap.Error(err))
		}
	}()

	for {
		if err := group.Consume(ctx, []string{c.topic}, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consume %s: %w", c.topic, err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
