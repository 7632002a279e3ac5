package topology

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/edgeflare/replica/pkg/connect"
	"github.com/edgeflare/replica/pkg/flow"
	"github.com/edgeflare/replica/pkg/kafka"
	"github.com/edgeflare/replica/pkg/metrics"
	"github.com/edgeflare/replica/pkg/names"
	"go.uber.org/zap"
)

// ErrStale is returned by Load when a load issued later has already been applied.
var ErrStale = errors.New("topology: stale load discarded")

// ConnectorSource lists connectors with their configuration and status.
type ConnectorSource interface {
	List(ctx context.Context) (map[string]connect.ConnectorInfoStatus, error)
}

// TopicLister reports partition and replica counts of topics.
type TopicLister interface {
	Topics(names []string) (map[string]kafka.TopicInfo, error)
}

// Snapshot is an applied load.
type Snapshot struct {
	LoadedAt time.Time
	Groups   flow.Groups
	Seq      uint64
}

// Loader holds the current node groups. Each load replaces them wholesale.
type Loader struct {
	source    ConnectorSource
	topics    TopicLister
	logger    *zap.Logger
	current   atomic.Pointer[Snapshot]
	namespace string
	seq       atomic.Uint64
	keepLast  bool
}

type LoaderOption func(*Loader)

func WithNamespace(ns string) LoaderOption {
	return func(l *Loader) { l.namespace = ns }
}

func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// WithTopicLister enriches TP_SNK nodes with topic details.
func WithTopicLister(tl TopicLister) LoaderOption {
	return func(l *Loader) { l.topics = tl }
}

// KeepLastResponse applies every response in arrival order, so a slow earlier load may
// overwrite a newer one.
func KeepLastResponse() LoaderOption {
	return func(l *Loader) { l.keepLast = true }
}

func NewLoader(source ConnectorSource, opts ...LoaderOption) *Loader {
	l := &Loader{
		source:    source,
		logger:    zap.NewNop(),
		namespace: names.Namespace,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Groups returns the current node groups, or nil before the first successful load.
func (l *Loader) Groups() flow.Groups {
	if s := l.current.Load(); s != nil {
		return s.Groups
	}
	return nil
}

// Snapshot returns the last applied load, or nil.
func (l *Loader) Snapshot() *Snapshot {
	return l.current.Load()
}

// Load fetches the connectors and applies the resulting groups. A response that arrives after
// the response of a later load is discarded with ErrStale, leaving the newer groups in place.
func (l *Loader) Load(ctx context.Context) (flow.Groups, error) {
	seq := l.seq.Add(1)
	timer := time.Now()
	defer func() { metrics.TopologyLoadDuration.Observe(time.Since(timer).Seconds()) }()

	connectors, err := l.source.List(ctx)
	if err != nil {
		metrics.TopologyLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load connectors: %w", err)
	}

	groups := Classify(l.namespace, connectors)
	l.enrich(groups)

	next := &Snapshot{Groups: groups, Seq: seq, LoadedAt: time.Now()}
	for {
		cur := l.current.Load()
		if cur != nil && cur.Seq > seq && !l.keepLast {
			metrics.TopologyLoads.WithLabelValues("stale").Inc()
			l.logger.Debug("discarding stale topology load", zap.Uint64("seq", seq), zap.Uint64("applied", cur.Seq))
			return cur.Groups, ErrStale
		}
		if l.current.CompareAndSwap(cur, next) {
			break
		}
	}

	metrics.TopologyLoads.WithLabelValues("applied").Inc()
	for _, tag := range Tags {
		metrics.TopologyNodes.WithLabelValues(tag).Set(float64(len(groups[tag])))
	}
	l.logger.Debug("topology loaded", zap.Uint64("seq", seq), zap.Int("connectors", len(connectors)))
	return groups, nil
}

func (l *Loader) enrich(groups flow.Groups) {
	if l.topics == nil || len(groups[SinkTopics]) == 0 {
		return
	}
	topicNames := make([]string, 0, len(groups[SinkTopics]))
	for _, n := range groups[SinkTopics] {
		if st, ok := n.Data.(SinkTopic); ok {
			topicNames = append(topicNames, st.Name)
		}
	}
	infos, err := l.topics.Topics(topicNames)
	if err != nil {
		l.logger.Warn("topic enrichment failed", zap.Error(err))
		return
	}
	for i, n := range groups[SinkTopics] {
		st, ok := n.Data.(SinkTopic)
		if !ok {
			continue
		}
		if info, found := infos[st.Name]; found {
			st.Topic = &info
			groups[SinkTopics][i].Data = st
		}
	}
}

// Run loads immediately and then every interval until ctx is canceled. Failed loads are
// logged and retried on the next tick.
func (l *Loader) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := l.Load(ctx); err != nil && !errors.Is(err, ErrStale) && ctx.Err() == nil {
			l.logger.Warn("topology load failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
