package toast

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dapp/internal/domain"
)

const (
	// maxQueued bounds the toasts kept for a disconnected client; older
	// ones are dropped first.
	maxQueued  = 16
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
)

// Hub routes toasts to clients. The zero value is not usable; call NewHub.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[string]map[*peer]struct{}
	queues map[string][]domain.Toast
}

// peer is one websocket connection. Gorilla connections allow a single
// concurrent writer, so writes hold wmu rather than the hub lock.
type peer struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (p *peer) write(data []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *peer) ping() error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

var _ domain.Notifier = (*Hub)(nil)

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger.With("component", "toast"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns:  make(map[string]map[*peer]struct{}),
		queues: make(map[string][]domain.Toast),
	}
}

// Notify sends t to every connection of clientID, or queues it when the
// client has none. An empty clientID is ignored.
func (h *Hub) Notify(clientID string, t domain.Toast) {
	if clientID == "" {
		return
	}
	h.mu.Lock()
	conns := make([]*peer, 0, len(h.conns[clientID]))
	for p := range h.conns[clientID] {
		conns = append(conns, p)
	}
	if len(conns) == 0 {
		h.enqueue(clientID, t)
	}
	h.mu.Unlock()

	if len(conns) == 0 {
		return
	}
	data, err := json.Marshal(t)
	if err != nil {
		h.logger.Error("encode toast", "err", err)
		return
	}
	delivered := false
	for _, p := range conns {
		if err := p.write(data); err != nil {
			h.logger.Debug("toast write failed", "client", clientID, "err", err)
			h.drop(clientID, p)
			continue
		}
		delivered = true
	}
	if !delivered {
		h.mu.Lock()
		h.enqueue(clientID, t)
		h.mu.Unlock()
	}
}

// Flash queues t for the next page clientID renders, without pushing it to
// live connections. Used before redirects, which tear the connection down.
func (h *Hub) Flash(clientID string, t domain.Toast) {
	if clientID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enqueue(clientID, t)
}

// enqueue appends t to the client's queue. h.mu must be held.
func (h *Hub) enqueue(clientID string, t domain.Toast) {
	q := append(h.queues[clientID], t)
	if len(q) > maxQueued {
		q = q[len(q)-maxQueued:]
	}
	h.queues[clientID] = q
}

// Drain removes and returns the toasts queued for clientID.
func (h *Hub) Drain(clientID string) []domain.Toast {
	h.mu.Lock()
	defer h.mu.Unlock()
	q := h.queues[clientID]
	delete(h.queues, clientID)
	return q
}

func (h *Hub) connections(clientID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[clientID])
}

// ServeHTTP upgrades the request to a websocket, flushes the client's queue
// and keeps the connection registered until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := ClientID(r)
	if id == "" {
		http.Error(w, "missing client cookie", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade", "err", err)
		return
	}

	p := &peer{conn: conn}
	h.mu.Lock()
	if h.conns[id] == nil {
		h.conns[id] = make(map[*peer]struct{})
	}
	h.conns[id][p] = struct{}{}
	pending := h.queues[id]
	delete(h.queues, id)
	h.mu.Unlock()

	for _, t := range pending {
		data, err := json.Marshal(t)
		if err != nil {
			continue
		}
		if err := p.write(data); err != nil {
			h.drop(id, p)
			return
		}
	}

	done := make(chan struct{})
	go keepAlive(p, done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
	h.drop(id, p)
}

func keepAlive(p *peer, done <-chan struct{}) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := p.ping(); err != nil {
				return
			}
		}
	}
}

func (h *Hub) drop(id string, p *peer) {
	h.mu.Lock()
	if set := h.conns[id]; set != nil {
		delete(set, p)
		if len(set) == 0 {
			delete(h.conns, id)
		}
	}
	h.mu.Unlock()
	_ = p.conn.Close()
}
