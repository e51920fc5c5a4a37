package security

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/PancyStudios/PancyGuardGo/pkg/platform"
)

const restoreConcurrency = 4

// RoleSnapshots captures the roles of a member before a destructive action and
// puts them back on request.
type RoleSnapshots struct {
	repo SnapshotRepository
	dir  platform.Directory
	mut  platform.Mutator
	now  func() time.Time
}

// NewRoleSnapshots creates a RoleSnapshots service.
func NewRoleSnapshots(repo SnapshotRepository, dir platform.Directory, mut platform.Mutator) *RoleSnapshots {
	return &RoleSnapshots{repo: repo, dir: dir, mut: mut, now: time.Now}
}

// Capture stores a new snapshot. Older unconsumed snapshots are kept.
func (s *RoleSnapshots) Capture(ctx context.Context, tenantID, subjectID string, roleIDs []string) error {
	snap := models.RoleSnapshot{
		TenantID:   tenantID,
		SubjectID:  subjectID,
		RoleIDs:    append([]string(nil), roleIDs...),
		CapturedAt: s.now().UTC(),
	}
	if err := s.repo.InsertSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("capturing roles of %s: %w", subjectID, err)
	}
	return nil
}

// RemovableRoles filters roleIDs down to the roles the bot can manage.
func (s *RoleSnapshots) RemovableRoles(ctx context.Context, tenantID string, roleIDs []string) ([]string, error) {
	out := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		if id == tenantID {
			continue // @everyone
		}
		ok, err := s.dir.CanManageRole(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Restore re-applies the roles of every unconsumed snapshot of the member and
// then deletes them all. Stacked punishments each leave a snapshot, so the
// union is what the member had before the first one. Roles that were deleted
// or are no longer manageable are skipped. Returns ErrSnapshotNotFound when
// nothing is stored.
func (s *RoleSnapshots) Restore(ctx context.Context, tenantID, subjectID string) (int, error) {
	snaps, err := s.repo.Snapshots(ctx, tenantID, subjectID)
	if err != nil {
		return 0, fmt.Errorf("loading snapshots of %s: %w", subjectID, err)
	}
	if len(snaps) == 0 {
		return 0, ErrSnapshotNotFound
	}

	var restored atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(restoreConcurrency)
	for _, roleID := range snapshotRoles(snaps) {
		roleID := roleID
		g.Go(func() error {
			exists, err := s.dir.RoleExists(gctx, tenantID, roleID)
			if err != nil || !exists {
				return nil
			}
			manageable, err := s.dir.CanManageRole(gctx, tenantID, roleID)
			if err != nil || !manageable {
				return nil
			}
			if err := s.mut.AddRole(gctx, tenantID, subjectID, roleID, "Restauración de roles"); err != nil {
				if !errors.Is(err, platform.ErrPermissionDenied) && !errors.Is(err, platform.ErrHierarchyViolation) {
					logger.Warn(fmt.Sprintf("No se pudo restaurar el rol %s a %s: %v", roleID, subjectID, err), "Security")
				}
				return nil
			}
			restored.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if _, err := s.repo.DeleteSnapshots(ctx, tenantID, subjectID); err != nil {
		return int(restored.Load()), fmt.Errorf("deleting snapshots of %s: %w", subjectID, err)
	}
	return int(restored.Load()), nil
}

// snapshotRoles merges the roles of snaps without duplicates, newest snapshot first.
func snapshotRoles(snaps []models.RoleSnapshot) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, snap := range snaps {
		for _, id := range snap.RoleIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
