package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/polymerwire/modelhub/common/database"
	"github.com/polymerwire/modelhub/ingest/internal/models"
)

// MongoConfig selects the status collection.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// Mongo stores one document per model name.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// NewMongo connects, pings and ensures the unique index on name.
func NewMongo(ctx context.Context, cfg MongoConfig) (*Mongo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := database.QueryContext(ctx)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	m := &Mongo{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		now:    time.Now,
	}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	ctx, cancel := database.MigrateContext(ctx)
	defer cancel()

	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("name_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create status index: %w", err)
	}
	return nil
}

// Upsert sets status and pushes message in one atomic update. Two first
// writers racing on the same name can both attempt the insert; the loser
// sees a duplicate-key error and retries as a plain update.
func (m *Mongo) Upsert(ctx context.Context, name string, code int, message string) error {
	filter := bson.D{{Key: "name", Value: name}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "status", Value: code},
			{Key: "updatedAt", Value: m.now().UTC()},
		}},
		{Key: "$push", Value: bson.D{{Key: "log", Value: message}}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "name", Value: name}}},
	}
	opts := options.UpdateOne().SetUpsert(true)

	_, err := m.coll.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		_, err = m.coll.UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return fmt.Errorf("mongo upsert %s: %w", name, err)
	}
	return nil
}

func (m *Mongo) Get(ctx context.Context, name string) (*models.StatusRecord, error) {
	var rec models.StatusRecord
	err := m.coll.FindOne(ctx, bson.D{{Key: "name", Value: name}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find %s: %w", name, err)
	}
	return &rec, nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Ping is used by readiness checks.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}
