package queue

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
	"github.com/b2bwholesale/ordering-sync/internal/core/ports"
	"github.com/b2bwholesale/ordering-sync/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes intake events to a fixed set of workers using consistent
// hashing on the entity they describe, so changes to one product or order
// are broadcast in the order they were submitted.
type Dispatcher struct {
	workers []chan ports.SyncEventInput
	service ports.EventService
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.EventService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.SyncEventInput, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.SyncEventInput, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands an event to the worker responsible for its entity. It
// blocks while that worker's buffer is full, until ctx is done.
func (d *Dispatcher) Enqueue(ctx context.Context, event ports.SyncEventInput) error {
	idx := d.shardIndex(orderingKey(event))
	select {
	case d.workers[idx] <- event:
		metrics.IntakeQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s: %w", event.Kind, ctx.Err())
	}
}

// EnqueueBatch enqueues multiple events preserving per-entity ordering.
func (d *Dispatcher) EnqueueBatch(ctx context.Context, events []ports.SyncEventInput) error {
	for _, e := range events {
		if err := d.Enqueue(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// orderingKey picks the entity id from the payload, falling back to the
// event id and finally the kind.
func orderingKey(e ports.SyncEventInput) string {
	if id, ok := e.Full["id"].(string); ok && id != "" {
		switch kind := domain.EventKind(e.Kind); {
		case kind.IsProduct():
			return "product:" + id
		case kind.IsOrder():
			return "order:" + id
		}
	}
	if e.ID != "" {
		return e.ID
	}
	return e.Kind
}

// shardIndex maps a key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.SyncEventInput) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			metrics.IntakeQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if err := d.service.Process(ctx, event); err != nil {
				d.log.Error().Err(err).
					Str("event_id", event.ID).
					Str("kind", event.Kind).
					Int("worker_id", id).
					Msg("event processing failed")
			}
		}
	}
}
