package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
	"github.com/b2bwholesale/ordering-sync/internal/core/ports"
	"github.com/b2bwholesale/ordering-sync/internal/pkg/metrics"
)

// DedupChecker abstracts the idempotency store (Redis).
type DedupChecker interface {
	IsDuplicate(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type eventService struct {
	publisher ports.EventPublisher
	dedup     DedupChecker
	log       zerolog.Logger
}

// NewEventService returns an EventService that feeds the sync core.
func NewEventService(publisher ports.EventPublisher, dedup DedupChecker, log zerolog.Logger) ports.EventService {
	return &eventService{
		publisher: publisher,
		dedup:     dedup,
		log:       log,
	}
}

// BuildEvent converts intake input into a validated domain event.
func BuildEvent(in ports.SyncEventInput) (domain.Event, error) {
	ev := domain.Event{
		ID:        in.ID,
		Kind:      domain.EventKind(in.Kind),
		PartnerID: in.PartnerID,
		Timestamp: in.Timestamp,
	}
	if in.Full != nil {
		ev.Full = domain.Payload(in.Full)
	}
	if in.Redacted != nil {
		ev.Redacted = domain.Payload(in.Redacted)
	}
	for _, t := range in.Targets {
		ch, err := domain.ParseChannel(t)
		if err != nil {
			return domain.Event{}, err
		}
		ev.Targets = append(ev.Targets, ch)
	}
	if err := ev.Validate(); err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

// Process deduplicates and publishes a single intake event.
func (s *eventService) Process(ctx context.Context, in ports.SyncEventInput) error {
	ev, err := BuildEvent(in)
	if err != nil {
		metrics.IntakeTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("process event: %w", err)
	}

	// 1. Idempotency check, only for events that carry an id.
	if ev.ID != "" && s.dedup != nil {
		isDup, err := s.dedup.IsDuplicate(ctx, ev.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", ev.ID).Msg("dedup check failed, processing anyway")
		} else if isDup {
			metrics.IntakeTotal.WithLabelValues("duplicate").Inc()
			s.log.Debug().Str("event_id", ev.ID).Str("kind", in.Kind).Msg("duplicate event skipped")
			return nil
		}
	}

	// 2. Broadcast.
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if err := s.publisher.OnEvent(ev); err != nil {
		metrics.IntakeTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("process event: %w", err)
	}

	// 3. Mark only once published, so a failed publish can be resubmitted.
	if ev.ID != "" && s.dedup != nil {
		if markErr := s.dedup.Mark(ctx, ev.ID); markErr != nil {
			s.log.Warn().Err(markErr).Str("event_id", ev.ID).Msg("failed to set dedup key")
		}
	}

	metrics.IntakeTotal.WithLabelValues("accepted").Inc()
	s.log.Info().
		Str("event_id", ev.ID).
		Str("kind", in.Kind).
		Msg("event processed")

	return nil
}
