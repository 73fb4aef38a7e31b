package realtime

import (
	"encoding/json"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
)

// internalFields are never visible to partners, whatever the event kind.
var internalFields = []string{"costBasis", "createdBy", "adminNotes"}

// kindFields lists additional internal fields per kind. Every known kind has
// an entry, so adding a kind without deciding its policy fails the policy
// coverage test.
var kindFields = map[domain.EventKind][]string{
	domain.KindProductCreated:     {"supplierId", "marginPercent", "updatedBy"},
	domain.KindProductUpdated:     {"supplierId", "marginPercent", "updatedBy"},
	domain.KindProductDeleted:     {"supplierId", "deletedBy"},
	domain.KindProductBulkUpdated: {"supplierId", "marginPercent", "updatedBy"},
	domain.KindOrderCreated:       {"internalNotes", "assignedTo", "fraudScore"},
	domain.KindOrderUpdated:       {"internalNotes", "assignedTo", "fraudScore", "updatedBy"},
	domain.KindNotification:       {"audienceQuery"},
}

// Policy strips internal fields from payloads destined for partners.
type Policy struct {
	deny map[domain.EventKind]map[string]struct{}
}

// DefaultPolicy returns the redaction policy for all known event kinds.
func DefaultPolicy() *Policy {
	p := &Policy{deny: make(map[domain.EventKind]map[string]struct{}, len(kindFields))}
	for kind, extra := range kindFields {
		fields := make(map[string]struct{}, len(internalFields)+len(extra))
		for _, f := range internalFields {
			fields[f] = struct{}{}
		}
		for _, f := range extra {
			fields[f] = struct{}{}
		}
		p.deny[kind] = fields
	}
	return p
}

// Covers reports whether the policy has an explicit rule set for kind.
func (p *Policy) Covers(kind domain.EventKind) bool {
	_, ok := p.deny[kind]
	return ok
}

// Redact returns a deep copy of src without the fields denied for kind,
// at any nesting depth. Kinds without a rule set still lose the global
// internal fields.
func (p *Policy) Redact(kind domain.EventKind, src domain.Payload) domain.Payload {
	deny, ok := p.deny[kind]
	if !ok {
		deny = make(map[string]struct{}, len(internalFields))
		for _, f := range internalFields {
			deny[f] = struct{}{}
		}
	}
	if src == nil {
		return domain.Payload{}
	}
	return domain.Payload(redactMap(src, deny))
}

func redactMap(m map[string]any, deny map[string]struct{}) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if _, drop := deny[k]; drop {
			continue
		}
		out[k] = redactValue(v, deny)
	}
	return out
}

func redactValue(v any, deny map[string]struct{}) any {
	switch t := v.(type) {
	case map[string]any:
		return redactMap(t, deny)
	case domain.Payload:
		return redactMap(t, deny)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = redactValue(e, deny)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = redactMap(e, deny)
		}
		return out
	default:
		return v
	}
}

// normalize round-trips src through JSON so typed values (structs, typed
// slices and maps) become the generic shapes redactMap walks.
func normalize(src domain.Payload) (domain.Payload, error) {
	if src == nil {
		return domain.Payload{}, nil
	}
	raw, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return domain.Payload(out), nil
}
