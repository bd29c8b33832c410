// Package stream pushes each cycle's result to reporting clients over
// websocket, so renderers never reach into the engine's state.
package stream

import (
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"p2pradar/infrastructure/logger"
)

const writeWait = 5 * time.Second

// Hub fans one message out to every connected client. A client that cannot
// keep up is dropped; broadcasting never blocks the poll loop.
type Hub struct {
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	last  []byte
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the connection and replays the most recent broadcast so
// a new client is not blind until the next cycle.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	last := h.last
	h.mu.Unlock()

	if last != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, last)
	}

	// Clients only listen; the read loop just waits for close.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast marshals v once and writes it to every client.
func (h *Hub) Broadcast(v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("broadcast marshal failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.last = raw
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			h.drop(conn)
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	delete(h.conns, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// Serve runs a plain HTTP server exposing the hub at /ws until ctx-free
// shutdown; callers run it in a goroutine.
func Serve(addr string, h *Hub) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	return http.ListenAndServe(addr, mux)
}
