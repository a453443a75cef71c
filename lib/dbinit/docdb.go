// Package dbinit creates the schema objects LibreChat expects at first boot:
// DocumentDB collections and indexes, and the PostgreSQL vector store. Every
// operation is idempotent so a CloudFormation retry can safely re-run it.
package dbinit

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// IndexSpec declares one index. TTL indexes set ExpireAfterSeconds instead of
// uniqueness.
type IndexSpec struct {
	Keys               bson.D
	Unique             bool
	ExpireAfterSeconds *int32
}

// Model builds the driver's index model.
func (s IndexSpec) Model() mongo.IndexModel {
	opts := options.Index()
	if s.ExpireAfterSeconds != nil {
		opts.SetExpireAfterSeconds(*s.ExpireAfterSeconds)
	} else if s.Unique {
		opts.SetUnique(true)
	}
	return mongo.IndexModel{Keys: s.Keys, Options: opts}
}

// CollectionSpec declares one collection and its indexes.
type CollectionSpec struct {
	Name    string
	Indexes []IndexSpec
}

var expireAtTimestamp = int32(0)

// chatCollections is the static schema for the chat application. It is
// identical on every invocation; the database catalog is the only state.
var chatCollections = []CollectionSpec{
	{Name: "users", Indexes: []IndexSpec{
		{Keys: bson.D{{Key: "email", Value: 1}}, Unique: true},
		{Keys: bson.D{{Key: "username", Value: 1}}, Unique: true},
		{Keys: bson.D{{Key: "createdAt", Value: 1}}},
	}},
	{Name: "conversations", Indexes: []IndexSpec{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "endpoint", Value: 1}}},
		{Keys: bson.D{{Key: "title", Value: "text"}}},
	}},
	{Name: "messages", Indexes: []IndexSpec{
		{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "parentMessageId", Value: 1}}},
	}},
	{Name: "presets", Indexes: []IndexSpec{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "title", Value: 1}}},
	}},
	{Name: "files", Indexes: []IndexSpec{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "filename", Value: 1}}},
	}},
	{Name: "assistants", Indexes: []IndexSpec{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "name", Value: 1}}},
	}},
	{Name: "tools", Indexes: []IndexSpec{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
	}},
	{Name: "sessions", Indexes: []IndexSpec{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, ExpireAfterSeconds: &expireAtTimestamp},
	}},
}

// Indexes created across collections after the per-collection set, mainly
// for query performance.
var crossCollectionIndexes = []struct {
	Collection string
	Spec       IndexSpec
}{
	{Collection: "users", Spec: IndexSpec{Keys: bson.D{{Key: "lastLogin", Value: -1}}}},
	{Collection: "conversations", Spec: IndexSpec{Keys: bson.D{{Key: "updatedAt", Value: -1}}}},
	{Collection: "messages", Spec: IndexSpec{Keys: bson.D{{Key: "model", Value: 1}}}},
}

// DocumentDatabase is the subset of database operations the initializer
// needs, narrow so tests can fake it.
type DocumentDatabase interface {
	ListCollectionNames(ctx context.Context, filter any) ([]string, error)
	CreateCollection(ctx context.Context, name string) error
	CreateIndex(ctx context.Context, collection string, model mongo.IndexModel) error
}

type mongoDatabase struct {
	db *mongo.Database
}

// NewMongoDatabase adapts a driver database to the DocumentDatabase interface.
func NewMongoDatabase(db *mongo.Database) DocumentDatabase {
	return mongoDatabase{db: db}
}

func (m mongoDatabase) ListCollectionNames(ctx context.Context, filter any) ([]string, error) {
	return m.db.ListCollectionNames(ctx, filter)
}

func (m mongoDatabase) CreateCollection(ctx context.Context, name string) error {
	return m.db.CreateCollection(ctx, name)
}

func (m mongoDatabase) CreateIndex(ctx context.Context, collection string, model mongo.IndexModel) error {
	_, err := m.db.Collection(collection).Indexes().CreateOne(ctx, model)
	return err
}

// DocDBInitializer creates the chat collections and indexes.
type DocDBInitializer struct {
	DB     DocumentDatabase
	Logger *logrus.Logger
}

// InitCollections creates every missing collection and all declared indexes,
// then returns the sorted collection names present in the database.
func (i *DocDBInitializer) InitCollections(ctx context.Context) ([]string, error) {
	existing, err := i.DB.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	for _, spec := range chatCollections {
		if !present[spec.Name] {
			if err := i.DB.CreateCollection(ctx, spec.Name); err != nil {
				return nil, fmt.Errorf("failed to create collection %s: %w", spec.Name, err)
			}
			i.Logger.WithField("collection", spec.Name).Info("Created collection")
		} else {
			i.Logger.WithField("collection", spec.Name).Info("Collection already exists")
		}

		for _, idx := range spec.Indexes {
			if err := i.createIndex(ctx, spec.Name, idx); err != nil {
				return nil, err
			}
		}
	}

	for _, ci := range crossCollectionIndexes {
		if err := i.createIndex(ctx, ci.Collection, ci.Spec); err != nil {
			return nil, err
		}
	}

	names, err := i.DB.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	sort.Strings(names)

	i.Logger.WithField("collections", names).Info("All collections and indexes created successfully")
	return names, nil
}

func (i *DocDBInitializer) createIndex(ctx context.Context, collection string, spec IndexSpec) error {
	err := i.DB.CreateIndex(ctx, collection, spec.Model())
	if err == nil {
		i.Logger.WithFields(logrus.Fields{
			"collection": collection,
			"keys":       fmt.Sprintf("%v", spec.Keys),
		}).Info("Created index")
		return nil
	}
	if isIndexAlreadyExists(err) {
		i.Logger.WithFields(logrus.Fields{
			"collection": collection,
			"keys":       fmt.Sprintf("%v", spec.Keys),
		}).Info("Index already exists")
		return nil
	}
	return fmt.Errorf("failed to create index on %s: %w", collection, err)
}
