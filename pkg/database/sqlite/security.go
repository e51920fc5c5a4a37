package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/PancyStudios/PancyGuardGo/pkg/models"
)

const configColumns = `guild_id, category, enabled, punishment, max_violations, whitelisted_members, whitelisted_roles, log_sink, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*models.SecurityConfig, error) {
	var (
		cfg            models.SecurityConfig
		enabled        int
		members, roles string
		updatedAt      int64
	)
	if err := row.Scan(&cfg.TenantID, &cfg.Category, &enabled, &cfg.Punishment, &cfg.MaxViolations,
		&members, &roles, &cfg.LogSink, &updatedAt); err != nil {
		return nil, err
	}
	cfg.Enabled = enabled != 0
	cfg.WhitelistedMembers = splitIDs(members)
	cfg.WhitelistedRoles = splitIDs(roles)
	cfg.UpdatedAt = fromMillis(updatedAt)
	return &cfg, nil
}

func (s *Store) GetConfig(ctx context.Context, tenantID string, category models.Category) (*models.SecurityConfig, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+configColumns+` FROM security_config WHERE guild_id = ? AND category = ?`, tenantID, category)
	cfg, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return cfg, err
}

func (s *Store) UpsertConfig(ctx context.Context, tenantID string, category models.Category, patch models.ConfigPatch) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		def := models.DefaultConfig(tenantID, category)
		if _, err := tx.ExecContext(ctx, `INSERT INTO security_config (guild_id, category, enabled, punishment, max_violations, updated_at)
			VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (guild_id, category) DO NOTHING`,
			tenantID, category, def.Enabled, def.Punishment, def.MaxViolations, s.now().UnixMilli()); err != nil {
			return err
		}
		cfg, err := scanConfig(tx.QueryRowContext(ctx, `SELECT `+configColumns+` FROM security_config WHERE guild_id = ? AND category = ?`, tenantID, category))
		if err != nil {
			return err
		}
		patch.Apply(cfg)
		_, err = tx.ExecContext(ctx, `UPDATE security_config SET enabled = ?, punishment = ?, max_violations = ?,
			whitelisted_members = ?, whitelisted_roles = ?, log_sink = ?, updated_at = ?
			WHERE guild_id = ? AND category = ?`,
			cfg.Enabled, cfg.Punishment, cfg.MaxViolations, joinIDs(cfg.WhitelistedMembers), joinIDs(cfg.WhitelistedRoles),
			cfg.LogSink, s.now().UnixMilli(), tenantID, category)
		return err
	})
}

func (s *Store) ListConfigs(ctx context.Context, tenantID string) ([]models.SecurityConfig, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+configColumns+` FROM security_config WHERE guild_id = ? ORDER BY category`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.SecurityConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cfg)
	}
	return out, rows.Err()
}

// RecordViolation increments the counter in one statement.
func (s *Store) RecordViolation(ctx context.Context, tenantID, subjectID string, category models.Category) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `INSERT INTO violation_records (guild_id, user_id, category, count, last_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (guild_id, user_id, category) DO UPDATE SET count = count + 1, last_at = excluded.last_at
		RETURNING count`, tenantID, subjectID, category, s.now().UnixMilli()).Scan(&count)
	return count, err
}

func (s *Store) ViolationCount(ctx context.Context, tenantID, subjectID string, category models.Category) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count FROM violation_records WHERE guild_id = ? AND user_id = ? AND category = ?`,
		tenantID, subjectID, category).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

func (s *Store) ResetViolations(ctx context.Context, tenantID, subjectID string, category models.Category) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM violation_records WHERE guild_id = ? AND user_id = ? AND category = ?`,
		tenantID, subjectID, category)
	return err
}

func (s *Store) InsertSnapshot(ctx context.Context, snap models.RoleSnapshot) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO role_snapshots (guild_id, user_id, roles_csv, captured_at) VALUES (?, ?, ?, ?)`,
		snap.TenantID, snap.SubjectID, joinIDs(snap.RoleIDs), snap.CapturedAt.UnixMilli())
	return err
}

func (s *Store) Snapshots(ctx context.Context, tenantID, subjectID string) ([]models.RoleSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT roles_csv, captured_at FROM role_snapshots
		WHERE guild_id = ? AND user_id = ? ORDER BY captured_at DESC, id DESC`, tenantID, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.RoleSnapshot
	for rows.Next() {
		var (
			csv string
			at  int64
		)
		if err := rows.Scan(&csv, &at); err != nil {
			return nil, err
		}
		out = append(out, models.RoleSnapshot{TenantID: tenantID, SubjectID: subjectID, RoleIDs: splitIDs(csv), CapturedAt: fromMillis(at)})
	}
	return out, rows.Err()
}

func (s *Store) DeleteSnapshots(ctx context.Context, tenantID, subjectID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM role_snapshots WHERE guild_id = ? AND user_id = ?`, tenantID, subjectID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
