package presets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	presetsCollection = "presets"
	metaCollection    = "presets_meta"
	metaDocumentID    = "presets"

	mongoOpTimeout = 5 * time.Second
)

// MongoStore keeps presets in a MongoDB collection, one document per preset.
// Database-level metadata (version, lastModified) lives in a separate collection.
type MongoStore struct {
	client   *mongo.Client
	presets  *mongo.Collection
	meta     *mongo.Collection
	database string
	log      *slog.Logger
	now      func() time.Time
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore connects to MongoDB and prepares the presets collection.
func NewMongoStore(ctx context.Context, uri, database string, log *slog.Logger) (*MongoStore, error) {
	if log == nil {
		log = slog.Default()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	db := client.Database(database)
	presets := db.Collection(presetsCollection)

	_, err = presets.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: FieldID, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Warn("creating index", slog.String("error", err.Error()))
	}

	return &MongoStore{
		client:   client,
		presets:  presets,
		meta:     db.Collection(metaCollection),
		database: database,
		log:      log,
		now:      time.Now,
	}, nil
}

func (m *MongoStore) List(ctx context.Context) ([]Preset, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	// ObjectIDs grow with insertion time.
	cur, err := m.presets.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("listing presets: %w", err)
	}
	defer cur.Close(ctx)

	out := []Preset{}
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding preset: %w", err)
		}
		p, err := toPreset(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("listing presets: %w", err)
	}
	return out, nil
}

func (m *MongoStore) Create(ctx context.Context, p Preset) (Preset, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	now := m.now()
	created := newPreset(p, now)

	if _, err := m.presets.InsertOne(ctx, map[string]any(created)); err != nil {
		return nil, fmt.Errorf("inserting preset: %w", err)
	}
	m.touch(ctx, now)
	return created, nil
}

func (m *MongoStore) Update(ctx context.Context, id string, p Preset) (Preset, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var raw bson.M
	err := m.presets.FindOne(ctx, bson.M{FieldID: id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("preset %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("finding preset: %w", err)
	}
	existing, err := toPreset(raw)
	if err != nil {
		return nil, err
	}

	now := m.now()
	updated := replacePreset(existing, p, now)

	res, err := m.presets.ReplaceOne(ctx, bson.M{FieldID: id}, map[string]any(updated))
	if err != nil {
		return nil, fmt.Errorf("replacing preset: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("preset %q: %w", id, ErrNotFound)
	}
	m.touch(ctx, now)
	return updated, nil
}

func (m *MongoStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := m.presets.DeleteOne(ctx, bson.M{FieldID: id})
	if err != nil {
		return fmt.Errorf("deleting preset: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("preset %q: %w", id, ErrNotFound)
	}
	m.touch(ctx, m.now())
	return nil
}

func (m *MongoStore) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

// Location names the database without exposing the connection string.
func (m *MongoStore) Location() string {
	return "mongodb:" + m.database + "/" + presetsCollection
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// touch bumps lastModified. A failure is logged only, the preset write already succeeded.
func (m *MongoStore) touch(ctx context.Context, now time.Time) {
	_, err := m.meta.UpdateOne(ctx,
		bson.M{"_id": metaDocumentID},
		bson.M{
			"$set":         bson.M{"lastModified": Timestamp(now)},
			"$setOnInsert": bson.M{"version": Version},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		m.log.Warn("updating presets metadata", slog.String("error", err.Error()))
	}
}

// toPreset converts a raw document into plain JSON values, dropping _id.
func toPreset(raw bson.M) (Preset, error) {
	delete(raw, "_id")

	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("converting preset: %w", err)
	}

	var p Preset
	if err := decodeJSONBytes(data, &p); err != nil {
		return nil, fmt.Errorf("converting preset: %w", err)
	}
	return p, nil
}
