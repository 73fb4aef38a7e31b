package ports

import (
	"context"
	"time"
)

// SyncEventInput is the DTO passed from the transport layer to EventService.
type SyncEventInput struct {
	ID        string
	Kind      string
	Full      map[string]any
	Redacted  map[string]any
	Targets   []string
	PartnerID string
	Timestamp time.Time
}

// EventService deduplicates intake events and hands them to the sync core.
type EventService interface {
	Process(ctx context.Context, event SyncEventInput) error
}
