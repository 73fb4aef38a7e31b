package realtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
)

// Connection is the registry's view of one transport session.
type Connection struct {
	ID              string
	UserID          string
	Role            domain.Role
	Channels        []domain.Channel
	ConnectedAt     time.Time
	AuthenticatedAt time.Time
}

// RoleCounts is the number of live connections per role.
type RoleCounts struct {
	Admin           int `json:"admin"`
	Partner         int `json:"partner"`
	Unauthenticated int `json:"unauthenticated"`
}

// Registry tracks live connections and their identity. It is the only owner
// of Connection values; everything else refers to connections by id.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	router *Router
	now    func() time.Time
}

func NewRegistry(router *Router) *Registry {
	return &Registry{
		conns:  make(map[string]*Connection),
		router: router,
		now:    time.Now,
	}
}

// Register creates an unauthenticated entry. Registering an existing id
// replaces it and drops its previous channel memberships.
func (r *Registry) Register(connID string) Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; ok {
		r.router.LeaveAll(connID)
	}
	c := &Connection{
		ID:          connID,
		Role:        domain.RoleUnauthenticated,
		ConnectedAt: r.now().UTC(),
	}
	r.conns[connID] = c
	return *c
}

// Authenticate records the identity of connID and joins the channels that
// identity maps to. An unknown connID is a no-op: disconnect races are
// expected.
func (r *Registry) Authenticate(connID, userID string, role domain.Role) ([]domain.Channel, error) {
	if userID == "" || !role.Valid() {
		return nil, fmt.Errorf("%w: user %q role %q", domain.ErrInvalidIdentity, userID, role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return nil, nil
	}

	channels := ChannelsFor(role, userID)
	if len(c.Channels) > 0 {
		r.router.LeaveAll(connID)
	}
	r.router.Join(connID, channels)

	c.UserID = userID
	c.Role = role
	c.Channels = channels
	c.AuthenticatedAt = r.now().UTC()
	return append([]domain.Channel(nil), channels...), nil
}

// Unregister removes connID and all of its channel memberships. It is safe
// to call repeatedly and for ids that were never registered.
func (r *Registry) Unregister(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.conns[connID]
	delete(r.conns, connID)
	r.router.LeaveAll(connID)
	return ok
}

// Get returns a copy of the connection entry.
func (r *Registry) Get(connID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	if !ok {
		return Connection{}, false
	}
	out := *c
	out.Channels = append([]domain.Channel(nil), c.Channels...)
	return out, true
}

// RoleOf returns the role of connID without copying the entry.
func (r *Registry) RoleOf(connID string) (domain.Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	if !ok {
		return "", false
	}
	return c.Role, true
}

// CountsByRole reports the number of live connections per role.
func (r *Registry) CountsByRole() RoleCounts {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rc RoleCounts
	for _, c := range r.conns {
		switch c.Role {
		case domain.RoleAdmin:
			rc.Admin++
		case domain.RolePartner:
			rc.Partner++
		default:
			rc.Unauthenticated++
		}
	}
	return rc
}
