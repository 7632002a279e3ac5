package broadcast

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestHubRoutesByAccount(t *testing.T) {
	h := NewHub(nil)
	a1, cancelA1 := h.Subscribe("1")
	a2, cancelA2 := h.Subscribe("1")
	b, cancelB := h.Subscribe("2")
	defer cancelB()

	assert.Equal(t, 2, h.Publish(Event{AccountID: "1", Target: "postgres2/sink"}))
	assert.Equal(t, "postgres2/sink", (<-a1).Target)
	assert.Equal(t, "postgres2/sink", (<-a2).Target)
	assert.Empty(t, b)

	assert.Equal(t, 0, h.Publish(Event{AccountID: "3"}))

	cancelA1()
	cancelA1()
	assert.Equal(t, 1, h.Subscribers("1"))
	cancelA2()
	assert.Equal(t, 0, h.Subscribers("1"))
	_, open := <-a2
	assert.False(t, open)
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe("1")
	defer cancel()

	delivered := 0
	for i := 0; i < subscriberBuffer+3; i++ {
		delivered += h.Publish(Event{AccountID: "1"})
	}
	assert.Equal(t, subscriberBuffer, delivered)
	assert.Len(t, ch, subscriberBuffer)
}

func TestHubWebsocket(t *testing.T) {
	h := NewHub(nil)
	mux := http.NewServeMux()
	mux.Handle("GET /ws/broadcast/{acct}/", h.Handler())
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/broadcast/42/"
	ws, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return h.Subscribers("42") == 1 }, time.Second, 5*time.Millisecond)
	h.Publish(Event{AccountID: "42", Target: "replica_source", Outcome: 1})

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got map[string]any
	require.NoError(t, websocket.JSON.Receive(ws, &got))
	assert.Equal(t, "replica_source", got["target"])
	assert.Equal(t, "42", got["accountId"])

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return h.Subscribers("42") == 0 }, time.Second, 5*time.Millisecond)
}
