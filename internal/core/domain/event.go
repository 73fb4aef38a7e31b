package domain

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// EventKind names a domain change pushed to clients.
type EventKind string

const (
	KindProductCreated     EventKind = "product_created"
	KindProductUpdated     EventKind = "product_updated"
	KindProductDeleted     EventKind = "product_deleted"
	KindProductBulkUpdated EventKind = "product_bulk_updated"
	KindOrderCreated       EventKind = "order_created"
	KindOrderUpdated       EventKind = "order_updated"
	KindNotification       EventKind = "notification"
)

var knownKinds = map[EventKind]struct{}{
	KindProductCreated:     {},
	KindProductUpdated:     {},
	KindProductDeleted:     {},
	KindProductBulkUpdated: {},
	KindOrderCreated:       {},
	KindOrderUpdated:       {},
	KindNotification:       {},
}

// Known reports whether k is a kind the dispatcher has a redaction policy for.
func (k EventKind) Known() bool {
	_, ok := knownKinds[k]
	return ok
}

// IsProduct reports whether k is one of the product_* kinds.
func (k EventKind) IsProduct() bool {
	switch k {
	case KindProductCreated, KindProductUpdated, KindProductDeleted, KindProductBulkUpdated:
		return true
	}
	return false
}

// IsOrder reports whether k is one of the order_* kinds.
func (k EventKind) IsOrder() bool {
	return k == KindOrderCreated || k == KindOrderUpdated
}

// Payload is a JSON object as produced by the data layer.
type Payload map[string]any

// Event is a domain change as handed over by the application. It is never
// mutated once accepted; the dispatcher derives its audience projections.
type Event struct {
	// ID is optional and only used for intake deduplication.
	ID   string
	Kind EventKind
	// Full is the admin-visible payload.
	Full Payload
	// Redacted is the caller's partner-visible payload. When nil the full
	// payload is used as the source; the redaction policy runs either way.
	Redacted Payload
	// Targets lists the channels to broadcast to. When empty, defaults are
	// derived from Kind (and PartnerID for order events).
	Targets   []Channel
	PartnerID string
	Timestamp time.Time
}

// Validate rejects events that indicate a caller bug.
func (e Event) Validate() error {
	if e.Kind == "" {
		return fmt.Errorf("%w: missing kind", ErrMalformedEvent)
	}
	if !e.Kind.Known() {
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedEvent, e.Kind)
	}
	for _, c := range e.Targets {
		if _, err := ParseChannel(string(c)); err != nil {
			return err
		}
	}
	if len(e.ResolveTargets()) == 0 {
		return fmt.Errorf("%w: no target channels for %s", ErrMalformedEvent, e.Kind)
	}
	return nil
}

// ResolveTargets returns the explicit targets, or the kind defaults:
// product kinds go to admin and partners, order kinds to admin and the
// owning partner. Notifications have no default.
func (e Event) ResolveTargets() []Channel {
	if len(e.Targets) > 0 {
		return lo.Uniq(e.Targets)
	}
	switch {
	case e.Kind.IsProduct():
		return []Channel{ChannelAdmin, ChannelPartners}
	case e.Kind.IsOrder() && e.PartnerID != "":
		return []Channel{ChannelAdmin, PartnerChannel(e.PartnerID)}
	}
	return nil
}
