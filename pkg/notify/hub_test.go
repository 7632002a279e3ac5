package notify

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestHubSubscribe(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe()
	assert.Equal(t, 1, h.Len())

	require.NoError(t, h.Notify(context.Background(), Success("one", "")))
	got := <-ch
	assert.Equal(t, "one", got.Title)

	cancel()
	cancel()
	assert.Equal(t, 0, h.Len())
	_, open := <-ch
	assert.False(t, open)

	require.NoError(t, h.Notify(context.Background(), Success("after", "")))
}

func TestHubDropsLaggingSubscriber(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, h.Notify(context.Background(), Warn("n", "")))
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHubHandler(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	ws, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), "", srv.URL)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.Notify(context.Background(), Danger("Error", "sink down")))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got Notification
	require.NoError(t, websocket.JSON.Receive(ws, &got))
	assert.Equal(t, LevelDanger, got.Level)
	assert.Equal(t, "sink down", got.Body)
}
