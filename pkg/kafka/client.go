package kafka

import (
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// Client creates sarama clients from a shared Config.
type Client struct {
	config *Config
	logger *zap.Logger
}

func NewClient(config *Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{config: config, logger: logger}
}

// TopicInfo describes a topic as seen by the cluster admin.
type TopicInfo struct {
	Exists     bool  `json:"exists"`
	Partitions int32 `json:"partitions,omitempty"`
	Replicas   int16 `json:"replicas,omitempty"`
}

func (c *Client) saramaConfig() (*sarama.Config, error) {
	conf, err := c.config.ToSaramaConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create sarama config: %w", err)
	}
	return conf, nil
}

// SyncProducer creates a new SyncProducer
func (c *Client) SyncProducer() (sarama.SyncProducer, error) {
	conf, err := c.saramaConfig()
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducer(c.config.Brokers, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync producer: %w", err)
	}
	return producer, nil
}

// ConsumerGroup creates a consumer group starting at the oldest offset.
func (c *Client) ConsumerGroup(groupID string) (sarama.ConsumerGroup, error) {
	conf, err := c.saramaConfig()
	if err != nil {
		return nil, err
	}
	group, err := sarama.NewConsumerGroup(c.config.Brokers, groupID, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group %s: %w", groupID, err)
	}
	return group, nil
}

func (c *Client) newClusterAdmin() (sarama.ClusterAdmin, error) {
	conf, err := c.saramaConfig()
	if err != nil {
		return nil, err
	}
	admin, err := sarama.NewClusterAdmin(c.config.Brokers, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster admin: %w", err)
	}
	return admin, nil
}

// ListTopics lists all topics
func (c *Client) ListTopics() (map[string]sarama.TopicDetail, error) {
	admin, err := c.newClusterAdmin()
	if err != nil {
		return nil, err
	}
	defer admin.Close()

	topics, err := admin.ListTopics()
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	c.logger.Debug("listed topics", zap.Int("count", len(topics)))
	return topics, nil
}

// Topics reports partition and replica counts for the named topics. Topics missing from the
// cluster are returned with Exists false.
func (c *Client) Topics(names []string) (map[string]TopicInfo, error) {
	all, err := c.ListTopics()
	if err != nil {
		return nil, err
	}
	return Describe(all, names), nil
}

// Describe projects a topic listing onto names.
func Describe(all map[string]sarama.TopicDetail, names []string) map[string]TopicInfo {
	out := make(map[string]TopicInfo, len(names))
	for _, name := range names {
		detail, ok := all[name]
		if !ok {
			out[name] = TopicInfo{}
			continue
		}
		out[name] = TopicInfo{
			Exists:     true,
			Partitions: detail.NumPartitions,
			Replicas:   detail.ReplicationFactor,
		}
	}
	return out
}
