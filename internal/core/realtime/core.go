package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
	"github.com/b2bwholesale/ordering-sync/internal/core/ports"
	"github.com/b2bwholesale/ordering-sync/internal/pkg/metrics"
)

const handshakeTimeout = 5 * time.Second

// Stats is the health snapshot of the sync core.
type Stats struct {
	Connections RoleCounts `json:"connections"`
	RetryDepth  int        `json:"retry_queue_depth"`
}

// Options configures a Core.
type Options struct {
	Retry RetryOptions
	// Identities verifies handshake tokens. Required.
	Identities ports.IdentityResolver
	// Reader serves sync_request pulls. Optional.
	Reader ports.SyncReader
	Policy *Policy
}

// Core is the facade the rest of the process talks to. It owns the
// registry, router, dispatcher and retry queue.
type Core struct {
	registry   *Registry
	router     *Router
	dispatcher *Dispatcher
	retries    *RetryQueue
	identities ports.IdentityResolver
	reader     ports.SyncReader
	log        zerolog.Logger

	mu        sync.Mutex
	transport ports.Transport
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewCore(opts Options, log zerolog.Logger) *Core {
	router := NewRouter()
	registry := NewRegistry(router)
	retries := NewRetryQueue(opts.Retry, log.With().Str("component", "retry").Logger())
	dispatcher := NewDispatcher(registry, router, opts.Policy, retries, log.With().Str("component", "dispatcher").Logger())
	retries.SetDeliverer(dispatcher)

	return &Core{
		registry:   registry,
		router:     router,
		dispatcher: dispatcher,
		retries:    retries,
		identities: opts.Identities,
		reader:     opts.Reader,
		log:        log,
	}
}

// Initialize wires the transport callbacks and starts the retry loop. It
// may be called once per Core; later calls return ErrAlreadyInitialized.
func (c *Core) Initialize(ctx context.Context, transport ports.Transport) error {
	if transport == nil {
		return errors.New("initialize: nil transport")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport != nil {
		return domain.ErrAlreadyInitialized
	}

	c.transport = transport
	c.dispatcher.SetSender(transport)
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})

	transport.OnConnect(c.handleConnect)
	transport.OnMessage(c.handleMessage)
	transport.OnDisconnect(c.handleDisconnect)

	go func() {
		defer close(c.done)
		c.retries.Run(c.ctx)
	}()

	c.log.Info().Dur("retry_interval", c.retries.interval).Msg("sync core initialized")
	return nil
}

// Close stops the retry loop. Pending retries are discarded.
func (c *Core) Close() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// OnEvent validates and dispatches a domain event. Malformed events are
// rejected with ErrMalformedEvent; transport failures are queued and never
// returned.
func (c *Core) OnEvent(event domain.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if !c.initialized() {
		return domain.ErrNotInitialized
	}
	if _, err := c.dispatcher.Dispatch(event); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	return nil
}

// Stats reports connection counts by role and the retry queue depth.
func (c *Core) Stats() Stats {
	s := Stats{
		Connections: c.registry.CountsByRole(),
		RetryDepth:  c.retries.Len(),
	}
	metrics.Connections.WithLabelValues(string(domain.RoleAdmin)).Set(float64(s.Connections.Admin))
	metrics.Connections.WithLabelValues(string(domain.RolePartner)).Set(float64(s.Connections.Partner))
	metrics.Connections.WithLabelValues(string(domain.RoleUnauthenticated)).Set(float64(s.Connections.Unauthenticated))
	return s
}

// FlushRetries runs one retry tick immediately.
func (c *Core) FlushRetries(ctx context.Context) (TickResult, bool) {
	return c.retries.Tick(ctx)
}

func (c *Core) initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport != nil
}

func (c *Core) handleConnect(connID string) {
	c.registry.Register(connID)
	c.Stats()
	c.log.Debug().Str("conn_id", connID).Msg("connection registered")
}

func (c *Core) handleDisconnect(connID string) {
	if c.registry.Unregister(connID) {
		c.Stats()
		c.log.Debug().Str("conn_id", connID).Msg("connection unregistered")
	}
}

func (c *Core) handleMessage(connID string, data []byte) {
	var msg domain.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply(connID, domain.MsgError, domain.ErrorData{Code: "bad_message", Message: "invalid json"})
		return
	}

	switch msg.Type {
	case domain.MsgAuthenticate:
		c.authenticate(connID, msg.Token)
	case domain.MsgLogout:
		c.registry.Unregister(connID)
		c.Stats()
		c.transport.Close(connID)
	case domain.MsgSyncRequest:
		c.syncRequest(connID, msg.Payload)
	default:
		c.reply(connID, domain.MsgError, domain.ErrorData{Code: "bad_message", Message: "unknown message type"})
	}
}

func (c *Core) authenticate(connID, token string) {
	if c.identities == nil || token == "" {
		c.reply(connID, domain.MsgError, domain.ErrorData{Code: "auth_failed", Message: "missing token"})
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, handshakeTimeout)
	defer cancel()

	who, err := c.identities.ResolveIdentity(ctx, token)
	if err != nil {
		c.log.Info().Err(err).Str("conn_id", connID).Msg("handshake rejected")
		c.reply(connID, domain.MsgError, domain.ErrorData{Code: "auth_failed", Message: "invalid token"})
		return
	}

	channels, err := c.registry.Authenticate(connID, who.UserID, who.Role)
	if err != nil {
		c.log.Info().Err(err).Str("conn_id", connID).Msg("handshake rejected")
		c.reply(connID, domain.MsgError, domain.ErrorData{Code: "auth_failed", Message: "invalid identity"})
		return
	}
	if channels == nil {
		// Disconnected while the token was being verified.
		return
	}

	c.Stats()
	c.log.Info().
		Str("conn_id", connID).
		Str("user_id", who.UserID).
		Str("role", string(who.Role)).
		Msg("connection authenticated")
	c.reply(connID, domain.MsgAuthenticated, map[string]any{"channels": channels})
}

func (c *Core) syncRequest(connID string, payload json.RawMessage) {
	conn, ok := c.registry.Get(connID)
	if !ok || !conn.Role.Valid() {
		c.reply(connID, domain.MsgError, domain.ErrorData{Code: "unauthenticated", Message: "authenticate first"})
		return
	}
	if c.reader == nil {
		c.reply(connID, domain.MsgError, domain.ErrorData{Code: "sync_unavailable", Message: "sync pull is not available"})
		return
	}

	data, err := c.reader.Pull(c.ctx, domain.Identity{UserID: conn.UserID, Role: conn.Role}, payload)
	if err != nil {
		c.log.Warn().Err(err).Str("conn_id", connID).Msg("sync pull failed")
		c.reply(connID, domain.MsgError, domain.ErrorData{Code: "sync_failed", Message: "sync pull failed"})
		return
	}
	c.reply(connID, domain.MsgSyncResponse, data)
}

// reply writes a direct response. Replies are not retried.
func (c *Core) reply(connID, typ string, data any) {
	msg, err := json.Marshal(domain.Envelope{Type: typ, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		c.log.Error().Err(err).Str("type", typ).Msg("encode reply")
		return
	}
	if err := c.transport.Send(connID, msg); err != nil {
		c.log.Debug().Err(err).Str("conn_id", connID).Str("type", typ).Msg("reply not delivered")
	}
}
