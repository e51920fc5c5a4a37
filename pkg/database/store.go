package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
)

const (
	colSecurityConfig = "security_config"
	colViolations     = "violation_records"
	colSnapshots      = "role_snapshots"
	colWarnings       = "warnings_active"
	colWarningHistory = "warnings_history"
	colWarnSettings   = "warn_settings"
	colRateLimits     = "rate_limits"
)

// quotaRetention is how long a daily quota document is kept after creation.
const quotaRetention = 48 * time.Hour

// MongoStore implements the security, warnings and ratelimit repositories on MongoDB.
type MongoStore struct {
	db      *Database
	configs *Cache[models.SecurityConfig]
	now     func() time.Time
}

// NewMongoStore wraps a connected Database.
func NewMongoStore(db *Database) *MongoStore {
	return &MongoStore{db: db, configs: NewCache[models.SecurityConfig](DefaultCacheSize), now: time.Now}
}

func (s *MongoStore) col(name string) (*mongo.Collection, error) {
	col, err := s.db.Collection(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return col, nil
}

type indexSpec struct {
	collection string
	keys       bson.D
	unique     bool
	ttl        *int32
}

func indexSpecs() []indexSpec {
	expireNow := int32(0)
	return []indexSpec{
		{colSecurityConfig, bson.D{{Key: "guild_id", Value: 1}, {Key: "category", Value: 1}}, true, nil},
		{colViolations, bson.D{{Key: "guild_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "category", Value: 1}}, true, nil},
		{colSnapshots, bson.D{{Key: "guild_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "captured_at", Value: -1}}, false, nil},
		{colWarnings, bson.D{{Key: "guild_id", Value: 1}, {Key: "user_id", Value: 1}}, true, nil},
		{colWarnings, bson.D{{Key: "expires_at", Value: 1}}, false, nil},
		{colWarningHistory, bson.D{{Key: "guild_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "issued_at", Value: 1}}, false, nil},
		{colRateLimits, bson.D{{Key: "guild_id", Value: 1}, {Key: "moderator_id", Value: 1}, {Key: "action", Value: 1}, {Key: "date", Value: 1}}, true, nil},
		{colRateLimits, bson.D{{Key: "expires_at", Value: 1}}, false, &expireNow},
	}
}

// EnsureIndexes creates the unique keys the atomic upserts rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	for _, spec := range indexSpecs() {
		col, err := s.col(spec.collection)
		if err != nil {
			return err
		}
		opts := options.Index().SetUnique(spec.unique)
		if spec.ttl != nil {
			opts.SetExpireAfterSeconds(*spec.ttl)
		}
		if _, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: spec.keys, Options: opts}); err != nil {
			return fmt.Errorf("creating index on %s: %w", spec.collection, err)
		}
	}
	logger.System("Índices de la base de datos verificados", "DB")
	return nil
}

// Ping reports whether the backend answers.
func (s *MongoStore) Ping(ctx context.Context) error {
	_, err := s.db.Ping(ctx)
	return err
}

func (s *MongoStore) Close() error {
	return s.db.Disconnect(context.Background())
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter any, opts ...*options.FindOneOptions) (*T, error) {
	var out T
	err := col.FindOne(ctx, filter, opts...).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, col *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
