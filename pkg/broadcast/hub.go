package broadcast

import (
	"sync"

	"github.com/edgeflare/replica/pkg/metrics"
	"go.uber.org/zap"
)

const subscriberBuffer = 32

// Hub routes events to the subscribers of their account. Sends never block: a subscriber
// with a full buffer misses the event.
type Hub struct {
	logger *zap.Logger
	subs   map[string]map[chan Event]struct{}
	mu     sync.RWMutex
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{logger: logger, subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a subscriber for accountID. The returned func unregisters it and
// closes the channel; calling it more than once is safe.
func (h *Hub) Subscribe(accountID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subs[accountID]
	if !ok {
		set = make(map[chan Event]struct{})
		h.subs[accountID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()
	metrics.StatusSubscribers.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[accountID], ch)
			if len(h.subs[accountID]) == 0 {
				delete(h.subs, accountID)
			}
			h.mu.Unlock()
			close(ch)
			metrics.StatusSubscribers.Dec()
		})
	}
}

// Publish delivers ev to the subscribers of its account and returns how many received it.
func (h *Hub) Publish(ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subs[ev.AccountID] {
		select {
		case ch <- ev:
			delivered++
		default:
			h.logger.Warn("status subscriber lagging, event dropped",
				zap.String("account", ev.AccountID),
				zap.String("target", ev.Target),
			)
		}
	}
	return delivered
}

// Subscribers reports the number of subscribers of accountID.
func (h *Hub) Subscribers(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[accountID])
}
