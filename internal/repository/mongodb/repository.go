// Package mongodb is the remote gateway: thin CRUD wrappers and change
// feeds over the babies, events and settings collections, each row scoped
// by user_id.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
)

const (
	collBabies   = "babies"
	collEvents   = "events"
	collSettings = "settings"
)

// Repository implements the remote gateway against MongoDB.
type Repository struct {
	client *mongo.Client
	dbName string
	logger *zap.Logger
}

// New connects to MongoDB and verifies the connection.
func New(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &Repository{client: client, dbName: dbName, logger: logger}, nil
}

// Close closes the MongoDB connection.
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *Repository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// FetchBabies returns every baby for the user, in creation order. Read
// failures degrade to an empty result with a logged warning.
func (r *Repository) FetchBabies(ctx context.Context, userID string) ([]models.Baby, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection(collBabies).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		r.logger.Warn("fetch babies failed", zap.Error(err))
		return []models.Baby{}, nil
	}
	defer func() { _ = cursor.Close(ctx) }()

	var rows []babyRow
	if err := cursor.All(ctx, &rows); err != nil {
		r.logger.Warn("decode babies failed", zap.Error(err))
		return []models.Baby{}, nil
	}
	babies := make([]models.Baby, 0, len(rows))
	for _, row := range rows {
		babies = append(babies, babyFromRow(row))
	}
	return babies, nil
}

// FetchEvents returns every event for the user, newest first. Rows with
// an unknown type are skipped.
func (r *Repository) FetchEvents(ctx context.Context, userID string) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}})
	cursor, err := r.collection(collEvents).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		r.logger.Warn("fetch events failed", zap.Error(err))
		return []models.Event{}, nil
	}
	defer func() { _ = cursor.Close(ctx) }()

	var rows []eventRow
	if err := cursor.All(ctx, &rows); err != nil {
		r.logger.Warn("decode events failed", zap.Error(err))
		return []models.Event{}, nil
	}
	events := make([]models.Event, 0, len(rows))
	for _, row := range rows {
		ev, err := eventFromRow(row)
		if err != nil {
			r.logger.Warn("skip malformed event row", zap.String("id", row.ID), zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// FetchSettings returns the user's settings row, or nil when none exists.
func (r *Repository) FetchSettings(ctx context.Context, userID string) (*models.Settings, error) {
	var row settingsRow
	err := r.collection(collSettings).FindOne(ctx, bson.M{"_id": userID}).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		r.logger.Warn("fetch settings failed", zap.Error(err))
		return nil, nil
	}
	settings := settingsFromRow(row)
	return &settings, nil
}

// UpsertBaby writes the full baby row.
func (r *Repository) UpsertBaby(ctx context.Context, userID string, baby models.Baby) error {
	row := babyToRow(userID, baby)
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection(collBabies).ReplaceOne(ctx, bson.M{"_id": row.ID, "user_id": userID}, row, opts); err != nil {
		return fmt.Errorf("upsert baby %s: %w", baby.ID, err)
	}
	return nil
}

// DeleteBabyCascade removes the baby's events first, then the baby.
func (r *Repository) DeleteBabyCascade(ctx context.Context, userID, babyID string) error {
	if _, err := r.collection(collEvents).DeleteMany(ctx, bson.M{"user_id": userID, "baby_id": babyID}); err != nil {
		return fmt.Errorf("delete events for baby %s: %w", babyID, err)
	}
	if _, err := r.collection(collBabies).DeleteOne(ctx, bson.M{"_id": babyID, "user_id": userID}); err != nil {
		return fmt.Errorf("delete baby %s: %w", babyID, err)
	}
	return nil
}

// UpsertEvent writes the full event row.
func (r *Repository) UpsertEvent(ctx context.Context, userID string, ev models.Event) error {
	row := eventToRow(userID, ev)
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection(collEvents).ReplaceOne(ctx, bson.M{"_id": row.ID, "user_id": userID}, row, opts); err != nil {
		return fmt.Errorf("upsert event %s: %w", row.ID, err)
	}
	return nil
}

// DeleteEvent removes one event row.
func (r *Repository) DeleteEvent(ctx context.Context, userID, eventID string) error {
	if _, err := r.collection(collEvents).DeleteOne(ctx, bson.M{"_id": eventID, "user_id": userID}); err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

// UpsertSettings writes the user's settings singleton.
func (r *Repository) UpsertSettings(ctx context.Context, userID string, settings models.Settings) error {
	row := settingsToRow(userID, settings)
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection(collSettings).ReplaceOne(ctx, bson.M{"_id": userID}, row, opts); err != nil {
		return fmt.Errorf("upsert settings for %s: %w", userID, err)
	}
	return nil
}
