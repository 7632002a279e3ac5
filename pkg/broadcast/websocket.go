package broadcast

import (
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

// Handler serves a websocket stream of the events of the account named by the {acct}
// path value.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := r.PathValue("acct")
		if accountID == "" {
			http.Error(w, "missing account id", http.StatusBadRequest)
			return
		}
		websocket.Handler(func(ws *websocket.Conn) {
			h.stream(ws, accountID)
		}).ServeHTTP(w, r)
	})
}

func (h *Hub) stream(ws *websocket.Conn, accountID string) {
	defer ws.Close()
	events, cancel := h.Subscribe(accountID)
	defer cancel()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_, _ = io.Copy(io.Discard, ws)
	}()

	for {
		select {
		case <-gone:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := websocket.JSON.Send(ws, ev); err != nil {
				h.logger.Debug("status stream closed", zap.String("account", accountID), zap.Error(err))
				return
			}
		}
	}
}
