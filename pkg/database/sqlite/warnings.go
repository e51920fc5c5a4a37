package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/models"
)

func (s *Store) ActiveWarning(ctx context.Context, tenantID, subjectID string) (*models.WarningState, error) {
	var (
		level int
		exp   int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT level, expires_at FROM warning_active WHERE guild_id = ? AND user_id = ?`,
		tenantID, subjectID).Scan(&level, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.WarningState{TenantID: tenantID, SubjectID: subjectID, Level: level, ExpiresAt: fromMillis(exp)}, nil
}

func (s *Store) SaveWarning(ctx context.Context, w models.WarningState) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO warning_active (guild_id, user_id, level, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET level = excluded.level, expires_at = excluded.expires_at`,
		w.TenantID, w.SubjectID, w.Level, w.ExpiresAt.UnixMilli())
	return err
}

func (s *Store) DeleteWarning(ctx context.Context, tenantID, subjectID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM warning_active WHERE guild_id = ? AND user_id = ?`, tenantID, subjectID)
	return err
}

// DeleteExpiredWarning deletes the warning only while it is still expired at now.
func (s *Store) DeleteExpiredWarning(ctx context.Context, tenantID, subjectID string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM warning_active WHERE guild_id = ? AND user_id = ? AND expires_at <= ?`,
		tenantID, subjectID, now.UnixMilli())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) ExpiredWarnings(ctx context.Context, now time.Time, limit int) ([]models.WarningState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT guild_id, user_id, level, expires_at FROM warning_active
		WHERE expires_at <= ? ORDER BY expires_at LIMIT ?`, now.UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.WarningState
	for rows.Next() {
		var (
			w   models.WarningState
			exp int64
		)
		if err := rows.Scan(&w.TenantID, &w.SubjectID, &w.Level, &exp); err != nil {
			return nil, err
		}
		w.ExpiresAt = fromMillis(exp)
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) AppendWarningHistory(ctx context.Context, e models.WarningHistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO warning_history (id, guild_id, user_id, level, reason, moderator_id, issued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, e.ID, e.TenantID, e.SubjectID, e.Level, e.Reason, e.ModeratorID, e.IssuedAt.UnixMilli())
	return err
}

func (s *Store) WarningHistory(ctx context.Context, tenantID, subjectID string) ([]models.WarningHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, level, reason, moderator_id, issued_at FROM warning_history
		WHERE guild_id = ? AND user_id = ? ORDER BY issued_at, rowid`, tenantID, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.WarningHistoryEntry
	for rows.Next() {
		e := models.WarningHistoryEntry{TenantID: tenantID, SubjectID: subjectID}
		var at int64
		if err := rows.Scan(&e.ID, &e.Level, &e.Reason, &e.ModeratorID, &at); err != nil {
			return nil, err
		}
		e.IssuedAt = fromMillis(at)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) DeleteLatestWarning(ctx context.Context, tenantID, subjectID string) (bool, int, error) {
	var (
		deleted   bool
		remaining int
	)
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM warning_history WHERE rowid = (
			SELECT rowid FROM warning_history WHERE guild_id = ? AND user_id = ?
			ORDER BY issued_at DESC, rowid DESC LIMIT 1)`, tenantID, subjectID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM warning_history WHERE guild_id = ? AND user_id = ?`,
			tenantID, subjectID).Scan(&remaining)
	})
	return deleted, remaining, err
}

func (s *Store) ClearWarningHistory(ctx context.Context, tenantID, subjectID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM warning_history WHERE guild_id = ? AND user_id = ?`, tenantID, subjectID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) WarnSettings(ctx context.Context, tenantID string) (*models.WarnSettings, error) {
	ws := models.WarnSettings{TenantID: tenantID}
	err := s.db.QueryRowContext(ctx, `SELECT first_warn_role, second_warn_role, last_warn_role, warner_role, jail_role, logs_channel
		FROM warn_settings WHERE guild_id = ?`, tenantID).
		Scan(&ws.FirstRole, &ws.SecondRole, &ws.LastRole, &ws.WarnerRole, &ws.JailRole, &ws.LogSink)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

func (s *Store) SaveWarnSettings(ctx context.Context, ws models.WarnSettings) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO warn_settings (guild_id, first_warn_role, second_warn_role, last_warn_role, warner_role, jail_role, logs_channel)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (guild_id) DO UPDATE SET first_warn_role = excluded.first_warn_role, second_warn_role = excluded.second_warn_role,
			last_warn_role = excluded.last_warn_role, warner_role = excluded.warner_role, jail_role = excluded.jail_role,
			logs_channel = excluded.logs_channel`,
		ws.TenantID, ws.FirstRole, ws.SecondRole, ws.LastRole, ws.WarnerRole, ws.JailRole, ws.LogSink)
	return err
}
