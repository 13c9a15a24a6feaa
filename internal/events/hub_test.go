package events

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(hub.Serve))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.SubscriberCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, want, hub.SubscriberCount())
}

func TestHubDeliversPublishedEvents(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	waitForSubscribers(t, hub, 1)

	hub.Publish("dataset.refreshed", map[string]any{"records": 2})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var envelope Envelope
	require.NoError(t, conn.ReadJSON(&envelope))
	require.Equal(t, "dataset.refreshed", envelope.Event)
	require.False(t, envelope.Timestamp.IsZero())
}

func TestHubBroadcastsToAllSubscribers(t *testing.T) {
	hub := NewHub()
	first := dialHub(t, hub)
	second := dialHub(t, hub)
	waitForSubscribers(t, hub, 2)

	hub.Publish("favorites.changed", map[string]any{"herb_id": "ginger-001"})

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var envelope Envelope
		require.NoError(t, conn.ReadJSON(&envelope))
		require.Equal(t, "favorites.changed", envelope.Event)
	}
}

func TestHubRemovesClosedSubscribers(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	waitForSubscribers(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForSubscribers(t, hub, 0)

	// Publishing with no subscribers must not panic.
	hub.Publish("dataset.refreshed", nil)
}

func TestPublishOnNilHubIsSafe(t *testing.T) {
	var hub *Hub
	hub.Publish("dataset.refreshed", nil)
}
