package stream

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestBroadcastReachesClients(t *testing.T) {
	hub := NewHub(nil)
	ts := httptest.NewServer(hub)
	defer ts.Close()

	conn := dialHub(t, ts)
	defer conn.Close()

	// Wait for registration before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast(map[string]float64{"median": 131.5})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]float64
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg["median"] != 131.5 {
		t.Fatalf("unexpected payload %v", msg)
	}
}

func TestNewClientGetsLastBroadcast(t *testing.T) {
	hub := NewHub(nil)
	hub.Broadcast(map[string]int{"cycle": 7})

	ts := httptest.NewServer(hub)
	defer ts.Close()

	conn := dialHub(t, ts)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]int
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg["cycle"] != 7 {
		t.Fatalf("replay missing: %v", msg)
	}
}

func TestDroppedClientForgotten(t *testing.T) {
	hub := NewHub(nil)
	ts := httptest.NewServer(hub)
	defer ts.Close()

	conn := dialHub(t, ts)
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	conn.Close()

	// The read loop notices the close and unregisters.
	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("closed client still registered")
	}
	hub.Broadcast(map[string]int{"cycle": 8}) // must not panic or block
}
