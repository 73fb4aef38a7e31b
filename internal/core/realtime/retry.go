package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
	"github.com/b2bwholesale/ordering-sync/internal/core/ports"
	"github.com/b2bwholesale/ordering-sync/internal/pkg/metrics"
)

const (
	DefaultRetryInterval    = 5 * time.Second
	DefaultRetryMaxAttempts = 3
)

// RetryItem is a broadcast to one channel that could not be completed.
type RetryItem struct {
	Projection    *Projection
	Channel       domain.Channel
	Attempts      int
	FirstFailedAt time.Time
}

// Deliverer re-attempts a broadcast to a channel's current members.
type Deliverer interface {
	Redeliver(proj *Projection, ch domain.Channel) bool
}

// TickResult summarises one retry pass.
type TickResult struct {
	Delivered int
	Requeued  int
	Dropped   int
}

// RetryQueue holds failed broadcasts and re-attempts them on a fixed
// interval. Attempts are capped; an item that reaches the cap is dropped
// and never retried again.
type RetryQueue struct {
	mu    sync.Mutex
	items []RetryItem

	deliverer   Deliverer
	recorder    ports.DropRecorder
	interval    time.Duration
	maxAttempts int
	inFlight    atomic.Bool
	log         zerolog.Logger
	now         func() time.Time
}

// RetryOptions configures a RetryQueue. Zero values fall back to defaults.
type RetryOptions struct {
	Interval    time.Duration
	MaxAttempts int
	// Recorder, when set, receives every dropped item.
	Recorder ports.DropRecorder
}

func NewRetryQueue(opts RetryOptions, log zerolog.Logger) *RetryQueue {
	if opts.Interval <= 0 {
		opts.Interval = DefaultRetryInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultRetryMaxAttempts
	}
	return &RetryQueue{
		recorder:    opts.Recorder,
		interval:    opts.Interval,
		maxAttempts: opts.MaxAttempts,
		log:         log,
		now:         time.Now,
	}
}

// SetDeliverer binds the component that performs redelivery.
func (q *RetryQueue) SetDeliverer(d Deliverer) {
	q.deliverer = d
}

// Push enqueues a fresh item with zero attempts.
func (q *RetryQueue) Push(proj *Projection, ch domain.Channel, failedAt time.Time) {
	q.push(RetryItem{Projection: proj, Channel: ch, FirstFailedAt: failedAt})
}

func (q *RetryQueue) push(item RetryItem) {
	q.mu.Lock()
	q.items = append(q.items, item)
	metrics.RetryQueueDepth.Set(float64(len(q.items)))
	q.mu.Unlock()
}

// drain takes the current contents; items pushed afterwards wait for the
// next tick.
func (q *RetryQueue) drain() []RetryItem {
	q.mu.Lock()
	items := q.items
	q.items = nil
	metrics.RetryQueueDepth.Set(0)
	q.mu.Unlock()
	return items
}

// Len returns the number of pending items.
func (q *RetryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending returns a copy of the pending items.
func (q *RetryQueue) Pending() []RetryItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]RetryItem(nil), q.items...)
}

// Run ticks every interval until ctx is cancelled. A slow tick delays the
// next one instead of overlapping it.
func (q *RetryQueue) Run(ctx context.Context) {
	t := time.NewTicker(q.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			q.Tick(ctx)
		}
	}
}

// Tick processes one snapshot of the queue. It returns false without doing
// anything when another tick is still in flight.
func (q *RetryQueue) Tick(ctx context.Context) (TickResult, bool) {
	if !q.inFlight.CompareAndSwap(false, true) {
		return TickResult{}, false
	}
	defer q.inFlight.Store(false)

	start := time.Now()
	defer func() { metrics.RetryTickDuration.Observe(time.Since(start).Seconds()) }()

	var res TickResult
	for _, item := range q.drain() {
		if q.deliverer != nil && q.deliverer.Redeliver(item.Projection, item.Channel) {
			res.Delivered++
			metrics.RetryOutcomesTotal.WithLabelValues("delivered").Inc()
			continue
		}

		item.Attempts++
		if item.Attempts < q.maxAttempts {
			q.push(item)
			res.Requeued++
			metrics.RetryOutcomesTotal.WithLabelValues("requeued").Inc()
			continue
		}

		res.Dropped++
		metrics.RetryOutcomesTotal.WithLabelValues("dropped").Inc()
		q.drop(ctx, item)
	}

	if res != (TickResult{}) {
		q.log.Debug().
			Int("delivered", res.Delivered).
			Int("requeued", res.Requeued).
			Int("dropped", res.Dropped).
			Msg("retry tick")
	}
	return res, true
}

func (q *RetryQueue) drop(ctx context.Context, item RetryItem) {
	ev := item.Projection.Event
	q.log.Error().
		Str("kind", string(ev.Kind)).
		Str("event_id", ev.ID).
		Str("channel", string(item.Channel)).
		Int("attempts", item.Attempts).
		Time("first_failed_at", item.FirstFailedAt).
		Msg("broadcast dropped after max attempts")

	if q.recorder == nil {
		return
	}
	err := q.recorder.RecordDrop(ctx, ports.DroppedBroadcast{
		EventID:       ev.ID,
		Kind:          ev.Kind,
		Channel:       item.Channel,
		Attempts:      item.Attempts,
		FirstFailedAt: item.FirstFailedAt,
		DroppedAt:     q.now().UTC(),
	})
	if err != nil {
		q.log.Warn().Err(err).Str("channel", string(item.Channel)).Msg("failed to record dropped broadcast")
	}
}
