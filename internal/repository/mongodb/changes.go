package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
)

// changeDoc is the slice of a change stream document this gateway needs.
// Delete notifications only carry the document key, so scoping by user is
// not possible at the transport level for them; the listeners filter
// deletes against the local cache instead.
type changeDoc struct {
	OperationType string   `bson:"operationType"`
	FullDocument  bson.Raw `bson:"fullDocument"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
}

// ResolveScopeValue determines the value rows are scoped by for this
// user. Historically provisioned datasets stored the contact email in
// user_id instead of the opaque id; one sampled row decides which
// convention this dataset follows. Opaque id is the default.
func (r *Repository) ResolveScopeValue(ctx context.Context, userID, email string) (string, error) {
	var row struct {
		UserID string `bson:"user_id"`
	}
	opts := options.FindOne().SetProjection(bson.M{"user_id": 1})
	err := r.collection(collEvents).FindOne(ctx, bson.M{}, opts).Decode(&row)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		r.logger.Warn("scope key probe failed, assuming opaque id", zap.Error(err))
		return userID, nil
	}
	if strings.Contains(row.UserID, "@") && email != "" {
		r.logger.Info("scope key resolved to email", zap.String("user", userID))
		return email, nil
	}
	return userID, nil
}

func changeOp(operationType string) (models.ChangeOp, bool) {
	switch operationType {
	case "insert":
		return models.ChangeInsert, true
	case "update", "replace":
		return models.ChangeUpdate, true
	case "delete":
		return models.ChangeDelete, true
	}
	return "", false
}

// watch opens a change stream on the named collection. Inserts, updates
// and replaces are matched against the scope value; deletes pass through
// unfiltered because their payload carries no scoping attribute.
func (r *Repository) watch(ctx context.Context, coll, scope string) (*mongo.ChangeStream, error) {
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{
		"$or": bson.A{
			bson.M{"operationType": "delete"},
			bson.M{"fullDocument.user_id": scope},
		},
	}}}}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := r.collection(coll).Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", coll, err)
	}
	return stream, nil
}

// WatchBabies subscribes to the babies change feed. The channel closes
// when ctx is cancelled or the stream ends.
func (r *Repository) WatchBabies(ctx context.Context, scope string) (<-chan models.BabyChange, error) {
	stream, err := r.watch(ctx, collBabies, scope)
	if err != nil {
		return nil, err
	}
	out := make(chan models.BabyChange)
	go func() {
		defer close(out)
		defer func() { _ = stream.Close(context.Background()) }()
		for stream.Next(ctx) {
			var doc changeDoc
			if err := stream.Decode(&doc); err != nil {
				r.logger.Warn("decode baby change failed", zap.Error(err))
				continue
			}
			op, ok := changeOp(doc.OperationType)
			if !ok {
				continue
			}
			change := models.BabyChange{Op: op, ID: doc.DocumentKey.ID}
			if op != models.ChangeDelete {
				var row babyRow
				if err := bson.Unmarshal(doc.FullDocument, &row); err != nil {
					r.logger.Warn("decode baby row failed", zap.String("id", change.ID), zap.Error(err))
					continue
				}
				baby := babyFromRow(row)
				change.Baby = &baby
				change.Scope = row.UserID
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warn("babies change stream closed", zap.Error(err))
		}
	}()
	return out, nil
}

// WatchEvents subscribes to the events change feed.
func (r *Repository) WatchEvents(ctx context.Context, scope string) (<-chan models.EventChange, error) {
	stream, err := r.watch(ctx, collEvents, scope)
	if err != nil {
		return nil, err
	}
	out := make(chan models.EventChange)
	go func() {
		defer close(out)
		defer func() { _ = stream.Close(context.Background()) }()
		for stream.Next(ctx) {
			var doc changeDoc
			if err := stream.Decode(&doc); err != nil {
				r.logger.Warn("decode event change failed", zap.Error(err))
				continue
			}
			op, ok := changeOp(doc.OperationType)
			if !ok {
				continue
			}
			change := models.EventChange{Op: op, ID: doc.DocumentKey.ID}
			if op != models.ChangeDelete {
				var row eventRow
				if err := bson.Unmarshal(doc.FullDocument, &row); err != nil {
					r.logger.Warn("decode event row failed", zap.String("id", change.ID), zap.Error(err))
					continue
				}
				ev, err := eventFromRow(row)
				if err != nil {
					r.logger.Warn("skip malformed event change", zap.String("id", change.ID), zap.Error(err))
					continue
				}
				change.Event = ev
				change.Scope = row.UserID
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warn("events change stream closed", zap.Error(err))
		}
	}()
	return out, nil
}
