package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"achievekit/core"
	"achievekit/realtime"
)

func dial(t *testing.T, url string) *gorillaws.Conn {
	t.Helper()
	wsURL := "ws" + url[len("http"):] // convert http->ws
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "dial ws")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *realtime.Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Len() == n }, time.Second, 5*time.Millisecond)
}

func TestHandlerStreamsEvents(t *testing.T) {
	hub := realtime.NewHub()
	server := httptest.NewServer(Handler(hub))
	defer server.Close()

	conn := dial(t, server.URL)
	waitForSubscribers(t, hub, 1)

	hub.Broadcast(context.Background(), core.NewUnlocked("first-visit"))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var received core.Event
	require.NoError(t, json.Unmarshal(msg, &received))
	assert.Equal(t, core.EventAchievementUnlocked, received.Type)
	assert.Equal(t, core.ID("first-visit"), received.ID)
}

func TestHandlerFiltersTypes(t *testing.T) {
	hub := realtime.NewHub()
	server := httptest.NewServer(Handler(hub))
	defer server.Close()

	conn := dial(t, server.URL+"?types=tamper_detected")
	waitForSubscribers(t, hub, 1)

	hub.Broadcast(context.Background(), core.NewUnlocked("first-visit"))
	hub.Broadcast(context.Background(), core.NewTamperDetected("progress"))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var received core.Event
	require.NoError(t, json.Unmarshal(msg, &received))
	assert.Equal(t, core.EventTamperDetected, received.Type)
	assert.Equal(t, "progress", received.Key)
}

func TestHandlerUnsubscribesOnDisconnect(t *testing.T) {
	hub := realtime.NewHub()
	server := httptest.NewServer(Handler(hub))
	defer server.Close()

	conn := dial(t, server.URL)
	waitForSubscribers(t, hub, 1)
	require.NoError(t, conn.Close())
	waitForSubscribers(t, hub, 0)
}
