package realtime

import (
	"sync"

	"github.com/samber/lo"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
)

type set map[string]struct{}

// Router maps connections to channels. It only holds connection ids, so a
// disconnected connection can never be reached through a stale reference.
type Router struct {
	mu       sync.RWMutex
	members  map[domain.Channel]set                 // channel → conn ids
	channels map[string]map[domain.Channel]struct{} // conn id → channels
}

func NewRouter() *Router {
	return &Router{
		members:  make(map[domain.Channel]set),
		channels: make(map[string]map[domain.Channel]struct{}),
	}
}

// ChannelsFor returns the channels a connection with this identity belongs to.
func ChannelsFor(role domain.Role, userID string) []domain.Channel {
	switch role {
	case domain.RoleAdmin:
		return []domain.Channel{domain.ChannelAdmin}
	case domain.RolePartner:
		if userID == "" {
			return nil
		}
		return []domain.Channel{domain.ChannelPartners, domain.PartnerChannel(userID)}
	}
	return nil
}

// Join adds connID to every channel in channels.
func (r *Router) Join(connID string, channels []domain.Channel) {
	if len(channels) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	joined, ok := r.channels[connID]
	if !ok {
		joined = make(map[domain.Channel]struct{}, len(channels))
		r.channels[connID] = joined
	}
	for _, ch := range channels {
		m, ok := r.members[ch]
		if !ok {
			m = make(set)
			r.members[ch] = m
		}
		m[connID] = struct{}{}
		joined[ch] = struct{}{}
	}
}

// Leave removes connID from the given channels.
func (r *Router) Leave(connID string, channels []domain.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range channels {
		r.removeLocked(connID, ch)
	}
}

// LeaveAll removes connID from every channel it joined and returns them.
func (r *Router) LeaveAll(connID string) []domain.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.channels[connID]
	left := make([]domain.Channel, 0, len(joined))
	for ch := range joined {
		left = append(left, ch)
	}
	for _, ch := range left {
		r.removeLocked(connID, ch)
	}
	return left
}

func (r *Router) removeLocked(connID string, ch domain.Channel) {
	if m, ok := r.members[ch]; ok {
		delete(m, connID)
		// Channels are index keys only; drop empty ones.
		if len(m) == 0 {
			delete(r.members, ch)
		}
	}
	if joined, ok := r.channels[connID]; ok {
		delete(joined, ch)
		if len(joined) == 0 {
			delete(r.channels, connID)
		}
	}
}

// Resolve returns a snapshot of the channel's members at call time. An
// empty channel yields an empty slice.
func (r *Router) Resolve(ch domain.Channel) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Keys(r.members[ch])
}

// Members returns the channels connID currently belongs to.
func (r *Router) Members(connID string) []domain.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Keys(r.channels[connID])
}
