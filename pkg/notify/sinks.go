package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/edgeflare/replica/pkg/metrics"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// Predefined sinks
const (
	SinkLog   = "log"
	SinkNATS  = "nats"
	SinkMQTT  = "mqtt"
	SinkKafka = "kafka"
)

// SinkConfig names a sink type and carries its type-specific settings.
type SinkConfig struct {
	Name   string         `mapstructure:"name" json:"name"`
	Type   string         `mapstructure:"type" json:"type"`
	Config map[string]any `mapstructure:"config" json:"config,omitempty"`
}

// A Factory builds a Notifier from the type-specific settings of a sink.
type Factory func(config map[string]any, logger *zap.Logger) (Notifier, error)

var (
	factories   = make(map[string]Factory)
	factoriesMu sync.RWMutex
)

// Register adds a sink factory under name, replacing any previous one.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Registered lists the known sink types.
func Registered() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// New builds the notifier of a sink. The result counts deliveries and failures per sink.
func New(cfg SinkConfig, logger *zap.Logger) (Notifier, error) {
	factoriesMu.RLock()
	f, ok := factories[cfg.Type]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown notification sink type %q", cfg.Type)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	n, err := f(cfg.Config, logger)
	if err != nil {
		return nil, fmt.Errorf("sink %s: %w", cfg.Type, err)
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Type
	}
	return &instrumented{Notifier: n, sink: name}, nil
}

// NewMulti builds every sink; on failure the sinks built so far are closed.
func NewMulti(cfgs []SinkConfig, logger *zap.Logger) (Multi, error) {
	out := make(Multi, 0, len(cfgs))
	for _, cfg := range cfgs {
		n, err := New(cfg, logger)
		if err != nil {
			_ = out.Close()
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

type instrumented struct {
	Notifier
	sink string
}

func (i *instrumented) Notify(ctx context.Context, n Notification) error {
	if err := i.Notifier.Notify(ctx, n); err != nil {
		metrics.NotifyErrors.WithLabelValues(i.sink).Inc()
		return err
	}
	metrics.Notifications.WithLabelValues(i.sink, string(n.Level)).Inc()
	return nil
}

func (i *instrumented) Close() error {
	if c, ok := i.Notifier.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func decode(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("decode sink config: %w", err)
	}
	return nil
}

func init() {
	Register(SinkLog, func(_ map[string]any, logger *zap.Logger) (Notifier, error) {
		return NewLogNotifier(logger), nil
	})
	Register(SinkNATS, func(config map[string]any, logger *zap.Logger) (Notifier, error) {
		var cfg NATSConfig
		if err := decode(config, &cfg); err != nil {
			return nil, err
		}
		return DialNATS(cfg, logger)
	})
	Register(SinkMQTT, func(config map[string]any, logger *zap.Logger) (Notifier, error) {
		var cfg MQTTConfig
		if err := decode(config, &cfg); err != nil {
			return nil, err
		}
		return DialMQTT(cfg, logger)
	})
	Register(SinkKafka, func(config map[string]any, logger *zap.Logger) (Notifier, error) {
		var cfg KafkaConfig
		if err := decode(config, &cfg); err != nil {
			return nil, err
		}
		return DialKafka(cfg, logger)
	})
}
