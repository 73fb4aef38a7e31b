package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
)

// IdentityResolver turns a handshake token into a verified identity.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (domain.Identity, error)
}

// SyncReader serves on-demand pulls from the data layer.
type SyncReader interface {
	Pull(ctx context.Context, who domain.Identity, payload json.RawMessage) (any, error)
}

// DroppedBroadcast describes a retry item that exhausted its attempts.
type DroppedBroadcast struct {
	EventID       string
	Kind          domain.EventKind
	Channel       domain.Channel
	Attempts      int
	FirstFailedAt time.Time
	DroppedAt     time.Time
}

// DropRecorder keeps an audit trail of dropped broadcasts.
type DropRecorder interface {
	RecordDrop(ctx context.Context, d DroppedBroadcast) error
}

// EventPublisher is the entry point the application uses to push changes.
type EventPublisher interface {
	OnEvent(event domain.Event) error
}
