package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := NewUpgrader(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, r.URL.Query().Get("topic"), "user-1")
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, topic string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?topic=" + topic
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, time.Second, 10*time.Millisecond)
}

func TestHubPublishesOnlyToTopic(t *testing.T) {
	hub, srv := startHub(t)
	courseA := dial(t, srv, "course-a")
	courseB := dial(t, srv, "course-b")
	waitForClients(t, hub, 2)

	hub.Publish("course-a", []byte(`{"type":"refresh"}`))

	_ = courseA.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := courseA.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"refresh"}`, string(msg))

	_ = courseB.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = courseB.ReadMessage()
	assert.Error(t, err)
}

func TestHubBroadcastWithEmptyTopic(t *testing.T) {
	hub, srv := startHub(t)
	a := dial(t, srv, "course-a")
	b := dial(t, srv, "course-b")
	waitForClients(t, hub, 2)

	hub.Publish("", []byte("resync"))

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, "resync", string(msg))
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "course-a")
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)
	assert.Empty(t, hub.Topics())
}
