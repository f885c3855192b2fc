package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

const collectionAuditEvents = "audit_events"

// AuditRepository appends audit records to the audit_events collection.
// Documents are only ever inserted.
type AuditRepository struct {
	col *mongo.Collection
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionAuditEvents)}
}

// EnsureIndexes creates the lookup indexes used when reviewing the trail.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "target_ref", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("audit indexes: %w", err)
	}
	return nil
}

// Record persists one audit record.
func (r *AuditRepository) Record(ctx context.Context, rec domain.AuditRecord) error {
	doc := bson.M{
		"actor_id":       rec.ActorID,
		"actor_username": rec.ActorUsername,
		"action_kind":    string(rec.Action),
		"target_ref":     rec.TargetRef,
		"outcome":        string(rec.Outcome),
		"timestamp":      rec.Timestamp.UTC(),
	}
	if rec.Reason != "" {
		doc["reason"] = rec.Reason
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// Recent returns the newest records for target, newest first.
func (r *AuditRepository) Recent(ctx context.Context, target string, limit int64) ([]domain.AuditRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cur, err := r.col.Find(ctx, bson.M{"target_ref": target}, opts)
	if err != nil {
		return nil, fmt.Errorf("find audit records: %w", err)
	}
	defer cur.Close(ctx)

	var docs []struct {
		ActorID       int64     `bson:"actor_id"`
		ActorUsername string    `bson:"actor_username"`
		Action        string    `bson:"action_kind"`
		TargetRef     string    `bson:"target_ref"`
		Outcome       string    `bson:"outcome"`
		Reason        string    `bson:"reason"`
		Timestamp     time.Time `bson:"timestamp"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode audit records: %w", err)
	}

	out := make([]domain.AuditRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.AuditRecord{
			ActorID:       d.ActorID,
			ActorUsername: d.ActorUsername,
			Action:        domain.Action(d.Action),
			TargetRef:     d.TargetRef,
			Outcome:       domain.Outcome(d.Outcome),
			Reason:        d.Reason,
			Timestamp:     d.Timestamp.UTC(),
		})
	}
	return out, nil
}

var _ ports.AuditSink = (*AuditRepository)(nil)
