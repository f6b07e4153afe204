package mongo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dmehra2102/storefront/internal/platform/mongodb"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

type eventDoc struct {
	ID            string            `bson:"_id"`
	AggregateType string            `bson:"aggregateType"`
	AggregateID   string            `bson:"aggregateId"`
	Type          string            `bson:"type"`
	Payload       []byte            `bson:"payload"`
	Headers       map[string]string `bson:"headers"`
	Traceparent   string            `bson:"traceparent"`
	Status        string            `bson:"status"`
	RelayID       *string           `bson:"relayId"`
	LeaseUntil    *time.Time        `bson:"leaseUntil"`
	RetryCount    int               `bson:"retryCount"`
	LastError     *string           `bson:"lastError"`
	CreatedAt     time.Time         `bson:"createdAt"`
}

func toEventDoc(ev outbox.Event) eventDoc {
	status := ev.Status
	if status == "" {
		status = outbox.StatusPending
	}
	return eventDoc{
		ID:            ev.ID,
		AggregateType: ev.AggregateType,
		AggregateID:   ev.AggregateID,
		Type:          ev.Type,
		Payload:       ev.Payload,
		Headers:       ev.Headers,
		Traceparent:   ev.Traceparent,
		Status:        string(status),
		RetryCount:    ev.RetryCount,
		LastError:     ev.LastError,
		CreatedAt:     ev.CreatedAt,
	}
}

func (d eventDoc) event() outbox.Event {
	ev := outbox.Event{
		ID:            d.ID,
		AggregateType: d.AggregateType,
		AggregateID:   d.AggregateID,
		Type:          d.Type,
		Payload:       d.Payload,
		Headers:       d.Headers,
		Traceparent:   d.Traceparent,
		CreatedAt:     d.CreatedAt.UTC(),
		Status:        outbox.Status(d.Status),
		RetryCount:    d.RetryCount,
		LastError:     d.LastError,
	}
	if d.RelayID != nil {
		ev.RelayID = *d.RelayID
	}
	return ev
}

type OutboxStore struct {
	log  *slog.Logger
	coll *mongo.Collection
	now  func() time.Time
}

func NewOutboxStore(log *slog.Logger, db *mongo.Database) *OutboxStore {
	return &OutboxStore{
		log:  log,
		coll: db.Collection(mongodb.Outbox),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// LockBatch claims events one at a time with findOneAndUpdate, so two relays
// never receive the same event while its lease is live.
func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	now := s.now()
	filter := bson.M{"$or": bson.A{
		bson.M{"status": string(outbox.StatusPending)},
		bson.M{"status": string(outbox.StatusInProgress), "leaseUntil": bson.M{"$lt": now}},
	}}
	update := bson.M{"$set": bson.M{
		"status":     string(outbox.StatusInProgress),
		"relayId":    relayID,
		"leaseUntil": now.Add(lease),
	}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetReturnDocument(options.After)

	var events []outbox.Event
	for len(events) < batchSize {
		var doc eventDoc
		err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			return events, err
		}
		events = append(events, doc.event())
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []string) error {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"status": string(outbox.StatusSent), "leaseUntil": nil}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("no documents updated")
	}
	return nil
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	next := bson.M{"$add": bson.A{"$retryCount", 1}}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"retryCount": next,
			"lastError":  bson.M{"$literal": errMsg},
			"status": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{next, outbox.MaxRetries}},
				string(outbox.StatusFailed),
				string(outbox.StatusPending),
			}},
			"relayId":    nil,
			"leaseUntil": nil,
		}}},
	})
	return err
}
