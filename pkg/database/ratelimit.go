package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/PancyStudios/PancyGuardGo/pkg/ratelimit"
)

func quotaFilter(key ratelimit.Key) bson.M {
	return bson.M{"guild_id": key.TenantID, "moderator_id": key.ActorID, "action": key.Category, "date": key.Date}
}

// ConsumeQuota increments the counter only while it is below limit. A full
// counter makes the filter miss and the upsert collide with the unique index,
// which is reported as a rejection.
func (s *MongoStore) ConsumeQuota(ctx context.Context, key ratelimit.Key, limit int) (int, bool, error) {
	col, err := s.col(colRateLimits)
	if err != nil {
		return 0, false, err
	}
	filter := quotaFilter(key)
	filter["count"] = bson.M{"$lt": limit}
	update := bson.M{
		"$inc":         bson.M{"count": 1},
		"$setOnInsert": bson.M{"expires_at": s.now().UTC().Add(quotaRetention)},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter models.RateCounter
	err = col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter)
	if mongo.IsDuplicateKeyError(err) {
		used, err := s.QuotaUsage(ctx, key)
		return used, false, err
	}
	if err != nil {
		return 0, false, err
	}
	return counter.Count, true, nil
}

func (s *MongoStore) QuotaUsage(ctx context.Context, key ratelimit.Key) (int, error) {
	col, err := s.col(colRateLimits)
	if err != nil {
		return 0, err
	}
	counter, err := findOne[models.RateCounter](ctx, col, quotaFilter(key))
	if err != nil || counter == nil {
		return 0, err
	}
	return counter.Count, nil
}
