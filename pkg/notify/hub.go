package notify

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

const subscriberBuffer = 16

// Hub broadcasts notifications to subscribed channels. A subscriber whose buffer is full
// misses the notification rather than blocking the sender.
type Hub struct {
	logger *zap.Logger
	subs   map[chan Notification]struct{}
	mu     sync.RWMutex
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{logger: logger, subs: make(map[chan Notification]struct{})}
}

// Subscribe registers a new subscriber. The returned func unregisters it and closes the
// channel.
func (h *Hub) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Len reports the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Notify(_ context.Context, n Notification) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- n:
		default:
			h.logger.Debug("notification subscriber lagging, dropped", zap.String("title", n.Title))
		}
	}
	return nil
}

// Handler streams notifications to a websocket client as JSON frames until either side
// goes away.
func (h *Hub) Handler() websocket.Handler {
	return func(ws *websocket.Conn) {
		defer ws.Close()
		ch, cancel := h.Subscribe()
		defer cancel()

		// reads only to notice the client going away
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			_, _ = io.Copy(io.Discard, ws)
		}()

		for {
			select {
			case <-gone:
				return
			case n, ok := <-ch:
				if !ok {
					return
				}
				if err := websocket.JSON.Send(ws, n); err != nil {
					h.logger.Debug("notification stream closed", zap.Error(err))
					return
				}
			}
		}
	}
}
