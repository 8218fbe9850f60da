package stream

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Subscribers() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("subscribers = %d, want %d", hub.Subscribers(), want)
}

func TestHub_BroadcastReachesSubscribers(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()

	ts := httptest.NewServer(hub)
	defer ts.Close()

	first := dialHub(t, ts)
	second := dialHub(t, ts)
	waitForSubscribers(t, hub, 2)

	hub.Broadcast(map[string]string{"hash": "abc123"})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read broadcast: %v", err)
		}
		var got map[string]string
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("broadcast payload is not JSON: %v", err)
		}
		if got["hash"] != "abc123" {
			t.Errorf("payload = %v, want hash abc123", got)
		}
	}
}

func TestHub_SubscriberDisconnect(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()

	ts := httptest.NewServer(hub)
	defer ts.Close()

	conn := dialHub(t, ts)
	waitForSubscribers(t, hub, 1)

	conn.Close()
	waitForSubscribers(t, hub, 0)

	// Broadcasting to nobody is a no-op, not a panic.
	hub.Broadcast(map[string]string{"hash": "def456"})
}

func TestHub_CloseRefusesNewSubscribers(t *testing.T) {
	hub := NewHub(nil, nil)

	ts := httptest.NewServer(hub)
	defer ts.Close()

	conn := dialHub(t, ts)
	waitForSubscribers(t, hub, 1)

	hub.Close()
	waitForSubscribers(t, hub, 0)

	// The closed hub drops the existing connection.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("read after hub close succeeded, want connection error")
	}
}
