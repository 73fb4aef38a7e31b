package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
	"github.com/b2bwholesale/ordering-sync/internal/pkg/metrics"
)

// Sender delivers one encoded message to one connection.
type Sender interface {
	Send(connID string, msg []byte) error
}

// Projection is an event encoded once per audience.
type Projection struct {
	Event    domain.Event
	Full     []byte
	Redacted []byte
}

// For returns the encoded envelope the given role is allowed to see.
func (p *Projection) For(role domain.Role) []byte {
	if role == domain.RoleAdmin {
		return p.Full
	}
	return p.Redacted
}

// DispatchResult summarises a single dispatch.
type DispatchResult struct {
	Recipients int
	Failed     int
	Queued     int
}

// Dispatcher shapes events per audience and fans them out to channel members.
type Dispatcher struct {
	registry *Registry
	router   *Router
	policy   *Policy
	retries  *RetryQueue
	sender   Sender
	log      zerolog.Logger
	now      func() time.Time
}

func NewDispatcher(registry *Registry, router *Router, policy *Policy, retries *RetryQueue, log zerolog.Logger) *Dispatcher {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Dispatcher{
		registry: registry,
		router:   router,
		policy:   policy,
		retries:  retries,
		log:      log,
		now:      time.Now,
	}
}

// SetSender binds the transport. Until it is set every send fails and is
// queued for retry.
func (d *Dispatcher) SetSender(s Sender) {
	d.sender = s
}

// Project builds both audience envelopes for event.
func (d *Dispatcher) Project(event domain.Event) (*Projection, error) {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = d.now().UTC()
	}

	fullData := event.Full
	if fullData == nil {
		fullData = domain.Payload{}
	}
	full, err := json.Marshal(domain.Envelope{Type: string(event.Kind), Data: fullData, Timestamp: ts})
	if err != nil {
		return nil, fmt.Errorf("encode full payload: %w", err)
	}

	source := event.Redacted
	if source == nil {
		source = event.Full
	}
	generic, err := normalize(source)
	if err != nil {
		return nil, fmt.Errorf("normalize redacted payload: %w", err)
	}
	redacted, err := json.Marshal(domain.Envelope{Type: string(event.Kind), Data: d.policy.Redact(event.Kind, generic), Timestamp: ts})
	if err != nil {
		return nil, fmt.Errorf("encode redacted payload: %w", err)
	}

	event.Timestamp = ts
	return &Projection{Event: event, Full: full, Redacted: redacted}, nil
}

// Dispatch delivers event to every member of its target channels. Failing
// sends are queued for retry, one item per failing channel; they never
// interrupt delivery to the remaining members.
func (d *Dispatcher) Dispatch(event domain.Event) (DispatchResult, error) {
	proj, err := d.Project(event)
	if err != nil {
		return DispatchResult{}, err
	}

	var res DispatchResult
	seen := make(map[string]struct{})
	for _, ch := range event.ResolveTargets() {
		failed := false
		for _, connID := range d.router.Resolve(ch) {
			if _, dup := seen[connID]; dup {
				continue
			}
			seen[connID] = struct{}{}

			ok, attempted := d.sendTo(proj, connID)
			if !attempted {
				continue
			}
			if ok {
				res.Recipients++
				continue
			}
			res.Failed++
			failed = true
			metrics.SendFailuresTotal.WithLabelValues(ch.Type()).Inc()
		}
		if failed && d.retries != nil {
			d.retries.Push(proj, ch, d.now().UTC())
			res.Queued++
		}
	}

	metrics.DispatchTotal.WithLabelValues(string(event.Kind)).Inc()
	d.log.Info().
		Str("kind", string(event.Kind)).
		Int("recipients", res.Recipients).
		Int("failed", res.Failed).
		Msg("event dispatched")

	return res, nil
}

// sendTo delivers the right projection to one connection. attempted is
// false when the connection disappeared between resolve and send.
func (d *Dispatcher) sendTo(proj *Projection, connID string) (ok, attempted bool) {
	role, live := d.registry.RoleOf(connID)
	if !live {
		return false, false
	}

	audience := "redacted"
	if role == domain.RoleAdmin {
		audience = "full"
	}

	if d.sender == nil {
		return false, true
	}
	if err := d.sender.Send(connID, proj.For(role)); err != nil {
		d.log.Warn().Err(err).
			Str("conn_id", connID).
			Str("kind", string(proj.Event.Kind)).
			Msg("send failed, queued for retry")
		return false, true
	}
	metrics.RecipientsTotal.WithLabelValues(string(proj.Event.Kind), audience).Inc()
	return true, true
}

// Redeliver re-resolves ch and resends the projection to every current
// member. It reports whether every send succeeded; an empty channel counts
// as delivered.
func (d *Dispatcher) Redeliver(proj *Projection, ch domain.Channel) bool {
	all := true
	for _, connID := range d.router.Resolve(ch) {
		ok, attempted := d.sendTo(proj, connID)
		if attempted && !ok {
			all = false
			metrics.SendFailuresTotal.WithLabelValues(ch.Type()).Inc()
		}
	}
	return all
}
