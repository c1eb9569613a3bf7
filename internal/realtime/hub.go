package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/hellokitty09/inharitance/internal/platform/metrics"
)

// SnapshotFunc produces the envelopes a freshly connected observer receives
// before any live traffic.
type SnapshotFunc func(ctx context.Context) ([]Envelope, error)

// Hub fans published payloads out to every connected websocket observer. It
// implements Publisher. A client whose send buffer is full is dropped rather
// than allowed to stall the feed for everyone else.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	snapshot   SnapshotFunc
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewHub(snapshot SnapshotFunc, logger *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		snapshot:   snapshot,
		logger:     logger,
		metrics:    m,
	}
}

// SetSnapshot installs the connect-time snapshot source. Call before Run;
// the hub and its snapshot source reference each other, so one of them is
// wired late.
func (h *Hub) SetSnapshot(fn SnapshotFunc) {
	h.snapshot = fn
}

// Publish queues a payload for every connected observer. The hub goroutine
// writes to each client's buffered send channel in registration-independent
// but per-hub serial order, so every observer sees envelopes in publish order.
func (h *Hub) Publish(topic string, payload []byte) error {
	h.broadcast <- payload
	if h.metrics != nil {
		h.metrics.BroadcastsTotal.WithLabelValues(topic).Inc()
	}
	return nil
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return ctx.Err()
		case client := <-h.register:
			h.clients[client] = true
			if h.metrics != nil {
				h.metrics.ConnectedObservers.Inc()
			}
			h.sendSnapshot(ctx, client)
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				if h.metrics != nil {
					h.metrics.ConnectedObservers.Dec()
				}
			}
		case payload := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					delete(h.clients, client)
					close(client.send)
					if h.metrics != nil {
						h.metrics.ConnectedObservers.Dec()
					}
					h.logger.Warn("dropping slow websocket observer", "remote", client.remote)
				}
			}
		}
	}
}

func (h *Hub) sendSnapshot(ctx context.Context, client *Client) {
	if h.snapshot == nil {
		return
	}
	envelopes, err := h.snapshot(ctx)
	if err != nil {
		h.logger.Error("connect snapshot failed", "remote", client.remote, "error", err)
		return
	}
	for _, env := range envelopes {
		payload, err := json.Marshal(env)
		if err != nil {
			h.logger.Error("connect snapshot marshal failed", "error", err)
			continue
		}
		select {
		case client.send <- payload:
		default:
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request to a websocket observer connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 64),
		remote: r.RemoteAddr,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}
