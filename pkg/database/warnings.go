package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PancyStudios/PancyGuardGo/pkg/models"
)

func memberFilter(tenantID, subjectID string) bson.M {
	return bson.M{"guild_id": tenantID, "user_id": subjectID}
}

func (s *MongoStore) ActiveWarning(ctx context.Context, tenantID, subjectID string) (*models.WarningState, error) {
	col, err := s.col(colWarnings)
	if err != nil {
		return nil, err
	}
	return findOne[models.WarningState](ctx, col, memberFilter(tenantID, subjectID))
}

func (s *MongoStore) SaveWarning(ctx context.Context, w models.WarningState) error {
	col, err := s.col(colWarnings)
	if err != nil {
		return err
	}
	_, err = col.UpdateOne(ctx, memberFilter(w.TenantID, w.SubjectID),
		bson.M{"$set": bson.M{"level": w.Level, "expires_at": w.ExpiresAt}},
		options.Update().SetUpsert(true))
	return err
}

func (s *MongoStore) DeleteWarning(ctx context.Context, tenantID, subjectID string) error {
	col, err := s.col(colWarnings)
	if err != nil {
		return err
	}
	_, err = col.DeleteOne(ctx, memberFilter(tenantID, subjectID))
	return err
}

// DeleteExpiredWarning deletes the warning only while it is still expired at now.
func (s *MongoStore) DeleteExpiredWarning(ctx context.Context, tenantID, subjectID string, now time.Time) (bool, error) {
	col, err := s.col(colWarnings)
	if err != nil {
		return false, err
	}
	filter := memberFilter(tenantID, subjectID)
	filter["expires_at"] = bson.M{"$lte": now}
	res, err := col.DeleteOne(ctx, filter)
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) ExpiredWarnings(ctx context.Context, now time.Time, limit int) ([]models.WarningState, error) {
	col, err := s.col(colWarnings)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}}).SetLimit(int64(limit))
	return findAll[models.WarningState](ctx, col, bson.M{"expires_at": bson.M{"$lte": now}}, opts)
}

func (s *MongoStore) AppendWarningHistory(ctx context.Context, e models.WarningHistoryEntry) error {
	col, err := s.col(colWarningHistory)
	if err != nil {
		return err
	}
	_, err = col.InsertOne(ctx, e)
	return err
}

func (s *MongoStore) WarningHistory(ctx context.Context, tenantID, subjectID string) ([]models.WarningHistoryEntry, error) {
	col, err := s.col(colWarningHistory)
	if err != nil {
		return nil, err
	}
	return findAll[models.WarningHistoryEntry](ctx, col, memberFilter(tenantID, subjectID),
		options.Find().SetSort(bson.D{{Key: "issued_at", Value: 1}}))
}

func (s *MongoStore) DeleteLatestWarning(ctx context.Context, tenantID, subjectID string) (bool, int, error) {
	col, err := s.col(colWarningHistory)
	if err != nil {
		return false, 0, err
	}
	filter := memberFilter(tenantID, subjectID)
	latest, err := findOne[models.WarningHistoryEntry](ctx, col, filter,
		options.FindOne().SetSort(bson.D{{Key: "issued_at", Value: -1}}))
	if err != nil || latest == nil {
		return false, 0, err
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": latest.ID})
	if err != nil {
		return false, 0, err
	}
	remaining, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return res.DeletedCount > 0, 0, err
	}
	return res.DeletedCount > 0, int(remaining), nil
}

func (s *MongoStore) ClearWarningHistory(ctx context.Context, tenantID, subjectID string) (int, error) {
	col, err := s.col(colWarningHistory)
	if err != nil {
		return 0, err
	}
	res, err := col.DeleteMany(ctx, memberFilter(tenantID, subjectID))
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

func (s *MongoStore) WarnSettings(ctx context.Context, tenantID string) (*models.WarnSettings, error) {
	col, err := s.col(colWarnSettings)
	if err != nil {
		return nil, err
	}
	return findOne[models.WarnSettings](ctx, col, bson.M{"_id": tenantID})
}

func (s *MongoStore) SaveWarnSettings(ctx context.Context, ws models.WarnSettings) error {
	col, err := s.col(colWarnSettings)
	if err != nil {
		return err
	}
	_, err = col.ReplaceOne(ctx, bson.M{"_id": ws.TenantID}, ws, options.Replace().SetUpsert(true))
	return err
}
