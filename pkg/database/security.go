package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PancyStudios/PancyGuardGo/pkg/models"
)

func configKey(tenantID string, category models.Category) string {
	return tenantID + ":" + string(category)
}

func (s *MongoStore) GetConfig(ctx context.Context, tenantID string, category models.Category) (*models.SecurityConfig, error) {
	key := configKey(tenantID, category)
	if cfg, ok := s.configs.Get(key); ok {
		return &cfg, nil
	}
	col, err := s.col(colSecurityConfig)
	if err != nil {
		return nil, err
	}
	cfg, err := findOne[models.SecurityConfig](ctx, col, bson.M{"guild_id": tenantID, "category": category})
	if err != nil || cfg == nil {
		return nil, err
	}
	s.configs.Set(key, *cfg)
	return cfg, nil
}

// configUpdates translates a patch into at most two update documents. $addToSet
// and $pull cannot target the same array in one update, so removals go second.
func configUpdates(tenantID string, category models.Category, patch models.ConfigPatch, now any) (bson.M, bson.M) {
	def := models.DefaultConfig(tenantID, category)
	set := bson.M{"updated_at": now}
	onInsert := bson.M{}

	scalar := func(field string, value any, isSet bool, fallback any) {
		if isSet {
			set[field] = value
		} else {
			onInsert[field] = fallback
		}
	}
	scalar("enabled", deref(patch.Enabled), patch.Enabled != nil, def.Enabled)
	scalar("punishment", deref(patch.Punishment), patch.Punishment != nil, def.Punishment)
	scalar("max_violations", deref(patch.MaxViolations), patch.MaxViolations != nil, def.MaxViolations)
	if patch.LogSink != nil {
		set["log_sink"] = *patch.LogSink
	}

	first := bson.M{"$set": set}
	addToSet := bson.M{}
	if len(patch.AddMembers) > 0 {
		addToSet["whitelisted_members"] = bson.M{"$each": patch.AddMembers}
	} else {
		onInsert["whitelisted_members"] = []string{}
	}
	if len(patch.AddRoles) > 0 {
		addToSet["whitelisted_roles"] = bson.M{"$each": patch.AddRoles}
	} else {
		onInsert["whitelisted_roles"] = []string{}
	}
	if len(addToSet) > 0 {
		first["$addToSet"] = addToSet
	}
	if len(onInsert) > 0 {
		first["$setOnInsert"] = onInsert
	}

	pull := bson.M{}
	if len(patch.RemoveMembers) > 0 {
		pull["whitelisted_members"] = bson.M{"$in": patch.RemoveMembers}
	}
	if len(patch.RemoveRoles) > 0 {
		pull["whitelisted_roles"] = bson.M{"$in": patch.RemoveRoles}
	}
	if len(pull) == 0 {
		return first, nil
	}
	return first, bson.M{"$pull": pull}
}

func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

func (s *MongoStore) UpsertConfig(ctx context.Context, tenantID string, category models.Category, patch models.ConfigPatch) error {
	col, err := s.col(colSecurityConfig)
	if err != nil {
		return err
	}
	defer s.configs.Delete(configKey(tenantID, category))

	filter := bson.M{"guild_id": tenantID, "category": category}
	first, second := configUpdates(tenantID, category, patch, s.now().UTC())
	if _, err := col.UpdateOne(ctx, filter, first, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("upserting config %s: %w", configKey(tenantID, category), err)
	}
	if second != nil {
		if _, err := col.UpdateOne(ctx, filter, second); err != nil {
			return fmt.Errorf("updating whitelist %s: %w", configKey(tenantID, category), err)
		}
	}
	return nil
}

func (s *MongoStore) ListConfigs(ctx context.Context, tenantID string) ([]models.SecurityConfig, error) {
	col, err := s.col(colSecurityConfig)
	if err != nil {
		return nil, err
	}
	return findAll[models.SecurityConfig](ctx, col, bson.M{"guild_id": tenantID},
		options.Find().SetSort(bson.D{{Key: "category", Value: 1}}))
}

func violationFilter(tenantID, subjectID string, category models.Category) bson.M {
	return bson.M{"guild_id": tenantID, "user_id": subjectID, "category": category}
}

// RecordViolation increments the counter with a single upsert. Two concurrent
// upserts on a missing document can race on the unique index; the loser retries
// and then matches the winner's document.
func (s *MongoStore) RecordViolation(ctx context.Context, tenantID, subjectID string, category models.Category) (int, error) {
	col, err := s.col(colViolations)
	if err != nil {
		return 0, err
	}
	update := bson.M{
		"$inc": bson.M{"count": 1},
		"$set": bson.M{"last_violation_at": s.now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var rec models.ViolationRecord
	for attempt := 0; attempt < 2; attempt++ {
		err = col.FindOneAndUpdate(ctx, violationFilter(tenantID, subjectID, category), update, opts).Decode(&rec)
		if !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	if err != nil {
		return 0, err
	}
	return rec.Count, nil
}

func (s *MongoStore) ViolationCount(ctx context.Context, tenantID, subjectID string, category models.Category) (int, error) {
	col, err := s.col(colViolations)
	if err != nil {
		return 0, err
	}
	rec, err := findOne[models.ViolationRecord](ctx, col, violationFilter(tenantID, subjectID, category))
	if err != nil || rec == nil {
		return 0, err
	}
	return rec.Count, nil
}

func (s *MongoStore) ResetViolations(ctx context.Context, tenantID, subjectID string, category models.Category) error {
	col, err := s.col(colViolations)
	if err != nil {
		return err
	}
	_, err = col.DeleteOne(ctx, violationFilter(tenantID, subjectID, category))
	return err
}

func (s *MongoStore) InsertSnapshot(ctx context.Context, snap models.RoleSnapshot) error {
	col, err := s.col(colSnapshots)
	if err != nil {
		return err
	}
	if snap.RoleIDs == nil {
		snap.RoleIDs = []string{}
	}
	_, err = col.InsertOne(ctx, snap)
	return err
}

func (s *MongoStore) Snapshots(ctx context.Context, tenantID, subjectID string) ([]models.RoleSnapshot, error) {
	col, err := s.col(colSnapshots)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "captured_at", Value: -1}, {Key: "_id", Value: -1}})
	return findAll[models.RoleSnapshot](ctx, col, bson.M{"guild_id": tenantID, "user_id": subjectID}, opts)
}

func (s *MongoStore) DeleteSnapshots(ctx context.Context, tenantID, subjectID string) (int, error) {
	col, err := s.col(colSnapshots)
	if err != nil {
		return 0, err
	}
	res, err := col.DeleteMany(ctx, bson.M{"guild_id": tenantID, "user_id": subjectID})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}
