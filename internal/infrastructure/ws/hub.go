package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
)

// Options configures the hub's per-connection limits.
type Options struct {
	SendBuffer      int
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	MaxMessageBytes int64
}

func (o *Options) defaults() {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 64 << 10
	}
}

// Hub is the WebSocket transport. It assigns connection ids, keeps the live
// clients and forwards their lifecycle to the registered callbacks.
type Hub struct {
	opts Options
	log  zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*client

	onConnect    func(string)
	onMessage    func(string, []byte)
	onDisconnect func(string)
}

func NewHub(opts Options, log zerolog.Logger) *Hub {
	opts.defaults()
	return &Hub{
		opts:    opts,
		log:     log,
		clients: make(map[string]*client),
	}
}

func (h *Hub) OnConnect(fn func(connID string)) {
	h.mu.Lock()
	h.onConnect = fn
	h.mu.Unlock()
}

func (h *Hub) OnMessage(fn func(connID string, data []byte)) {
	h.mu.Lock()
	h.onMessage = fn
	h.mu.Unlock()
}

func (h *Hub) OnDisconnect(fn func(connID string)) {
	h.mu.Lock()
	h.onDisconnect = fn
	h.mu.Unlock()
}

// Send queues msg for connID. It never blocks: a full buffer or a closed
// connection is reported as an error.
func (h *Hub) Send(connID string, msg []byte) error {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("send %s: %w", connID, domain.ErrUnknownConnection)
	}
	if err := c.send(msg); err != nil {
		return fmt.Errorf("send %s: %w", connID, err)
	}
	return nil
}

// Close terminates the session. The disconnect callback fires once the
// read loop exits.
func (h *Hub) Close(connID string) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		c.close()
	}
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every session.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.close()
	}
}

// Serve runs an upgraded connection until it closes. It blocks.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn) {
	id := uuid.NewString()
	log := h.log.With().Str("conn_id", id).Logger()
	sock := newSocket(conn, h.opts)
	c := newClient(ctx, id, sock, h.opts.SendBuffer, log)

	h.mu.Lock()
	h.clients[id] = c
	onConnect, onMessage, onDisconnect := h.onConnect, h.onMessage, h.onDisconnect
	h.mu.Unlock()

	if onConnect != nil {
		onConnect(id)
	}
	log.Debug().Msg("websocket connected")

	go c.writeLoop(h.opts.PingInterval)

	sock.readLoop(log, func(data []byte) {
		if onMessage != nil {
			onMessage(id, data)
		}
	})

	c.close()
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
	if onDisconnect != nil {
		onDisconnect(id)
	}
	log.Debug().Msg("websocket disconnected")
}
