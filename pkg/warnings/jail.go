package warnings

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/PancyStudios/PancyGuardGo/pkg/platform"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
)

var (
	ErrJailNotConfigured = errors.New("no jail role is configured for this guild")
	ErrAlreadyJailed     = errors.New("member is already jailed")
)

// Jailer strips a member's roles, keeping a snapshot, and gives them the jail role.
type Jailer struct {
	repo      Repository
	snapshots *security.RoleSnapshots
	dir       platform.Directory
	mut       platform.Mutator
}

// NewJailer wires a Jailer.
func NewJailer(repo Repository, snapshots *security.RoleSnapshots, dir platform.Directory, mut platform.Mutator) *Jailer {
	return &Jailer{repo: repo, snapshots: snapshots, dir: dir, mut: mut}
}

func (j *Jailer) jailRole(ctx context.Context, tenantID string) (string, error) {
	settings, err := j.repo.WarnSettings(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("loading warn settings: %w", err)
	}
	if settings == nil || settings.JailRole == "" {
		return "", ErrJailNotConfigured
	}
	exists, err := j.dir.RoleExists(ctx, tenantID, settings.JailRole)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: role %s was deleted", ErrJailNotConfigured, settings.JailRole)
	}
	return settings.JailRole, nil
}

// Contain jails a member. A member who already has the jail role is left
// untouched and ErrAlreadyJailed is returned, so the snapshot taken by the
// first jail stays the one Release restores.
func (j *Jailer) Contain(ctx context.Context, tenantID, subjectID, reason, _ string) error {
	jailRole, err := j.jailRole(ctx, tenantID)
	if err != nil {
		return err
	}
	member, err := j.dir.Member(ctx, tenantID, subjectID)
	if err != nil {
		return err
	}
	if slices.Contains(member.RoleIDs, jailRole) {
		return ErrAlreadyJailed
	}

	removable, err := j.snapshots.RemovableRoles(ctx, tenantID, member.RoleIDs)
	if err != nil {
		return err
	}
	roles := removable[:0]
	for _, id := range removable {
		if id != jailRole {
			roles = append(roles, id)
		}
	}
	if len(roles) > 0 {
		if err := j.snapshots.Capture(ctx, tenantID, subjectID, roles); err != nil {
			return err
		}
	}
	for _, id := range roles {
		if err := j.mut.RemoveRole(ctx, tenantID, subjectID, id, reason); err != nil {
			return fmt.Errorf("removing role %s: %w", id, err)
		}
	}
	if err := j.mut.AddRole(ctx, tenantID, subjectID, jailRole, reason); err != nil {
		return fmt.Errorf("adding jail role: %w", err)
	}
	return nil
}

// Release restores the roles captured on Contain and removes the jail role.
// The jail role goes last: a snapshot taken by another punishment while the
// member was jailed may hold it. A member with nothing to restore still loses
// the jail role and ErrSnapshotNotFound is returned.
func (j *Jailer) Release(ctx context.Context, tenantID, subjectID string) (int, error) {
	jailRole, err := j.jailRole(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	restored, err := j.snapshots.Restore(ctx, tenantID, subjectID)
	if err != nil && !errors.Is(err, security.ErrSnapshotNotFound) {
		return restored, err
	}
	if rmErr := j.mut.RemoveRole(ctx, tenantID, subjectID, jailRole, "Liberado de la cárcel"); rmErr != nil {
		return restored, fmt.Errorf("removing jail role: %w", rmErr)
	}
	return restored, err
}
