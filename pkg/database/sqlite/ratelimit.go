package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/PancyStudios/PancyGuardGo/pkg/ratelimit"
)

// ConsumeQuota increments the counter only while it is below limit. The
// conditional upsert returns no row when the cap was already reached.
func (s *Store) ConsumeQuota(ctx context.Context, key ratelimit.Key, limit int) (int, bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `INSERT INTO rate_limit (guild_id, moderator_id, action, date, count)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT (guild_id, moderator_id, action, date) DO UPDATE SET count = count + 1 WHERE count < ?
		RETURNING count`, key.TenantID, key.ActorID, key.Category, key.Date, limit).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		used, err := s.QuotaUsage(ctx, key)
		return used, false, err
	}
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

func (s *Store) QuotaUsage(ctx context.Context, key ratelimit.Key) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count FROM rate_limit WHERE guild_id = ? AND moderator_id = ? AND action = ? AND date = ?`,
		key.TenantID, key.ActorID, key.Category, key.Date).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return count, err
}
