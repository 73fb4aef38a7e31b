package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/b2bwholesale/ordering-sync/internal/core/ports"
)

const (
	dropCollection = "dropped_broadcasts"
	dropRetention  = 7 * 24 * time.Hour
	writeTimeout   = 5 * time.Second
)

// DropRepository keeps an audit trail of broadcasts the retry queue gave up
// on. It is never read back for redelivery.
type DropRepository struct {
	coll *mongo.Collection
}

// NewDropRepository creates a DropRepository.
func NewDropRepository(db *mongo.Database) *DropRepository {
	return &DropRepository{coll: db.Collection(dropCollection)}
}

// EnsureIndexes expires audit entries after the retention window.
func (r *DropRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "dropped_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(dropRetention.Seconds())),
		},
		{Keys: bson.D{{Key: "event_id", Value: 1}}},
	}
	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}

// RecordDrop implements ports.DropRecorder.
func (r *DropRepository) RecordDrop(ctx context.Context, d ports.DroppedBroadcast) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	doc := bson.M{
		"event_id":        d.EventID,
		"kind":            string(d.Kind),
		"channel":         string(d.Channel),
		"attempts":        d.Attempts,
		"first_failed_at": d.FirstFailedAt.UTC(),
		"dropped_at":      d.DroppedAt.UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("record drop: %w", err)
	}
	return nil
}
