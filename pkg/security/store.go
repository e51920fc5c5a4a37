// Package security implements the anti-nuke governance core: violation
// accounting per member and category, whitelist exemptions, threshold
// punishments and role snapshots that allow undoing them.
package security

import (
	"context"
	"errors"

	"github.com/PancyStudios/PancyGuardGo/pkg/models"
)

var (
	// ErrConfigMissing is returned by Admin lookups for a category that was never configured.
	ErrConfigMissing = errors.New("security config not found")
	// ErrSnapshotNotFound is returned by Restore when no snapshot is stored for the member.
	ErrSnapshotNotFound = errors.New("role snapshot not found")
	// ErrLedgerUnavailable wraps storage failures while recording a violation.
	ErrLedgerUnavailable = errors.New("violation ledger unavailable")
)

// ConfigStore is the source of truth for per-guild category settings.
type ConfigStore interface {
	// GetConfig returns nil and no error when the category was never configured.
	GetConfig(ctx context.Context, tenantID string, category models.Category) (*models.SecurityConfig, error)
	// UpsertConfig creates the row with the defaults when missing and applies patch on top.
	UpsertConfig(ctx context.Context, tenantID string, category models.Category, patch models.ConfigPatch) error
	ListConfigs(ctx context.Context, tenantID string) ([]models.SecurityConfig, error)
}

// ViolationLedger keeps the per (guild, member, category) counters.
// RecordViolation must be a single atomic increment-or-insert.
type ViolationLedger interface {
	RecordViolation(ctx context.Context, tenantID, subjectID string, category models.Category) (int, error)
	ViolationCount(ctx context.Context, tenantID, subjectID string, category models.Category) (int, error)
	ResetViolations(ctx context.Context, tenantID, subjectID string, category models.Category) error
}

// SnapshotRepository persists role snapshots. Snapshots are append-only.
type SnapshotRepository interface {
	InsertSnapshot(ctx context.Context, snap models.RoleSnapshot) error
	// Snapshots returns every stored snapshot of the member, newest first.
	Snapshots(ctx context.Context, tenantID, subjectID string) ([]models.RoleSnapshot, error)
	DeleteSnapshots(ctx context.Context, tenantID, subjectID string) (int, error)
}
