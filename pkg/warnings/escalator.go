// Package warnings runs the three-level warning ladder: each warning raises the
// level and swaps the level role, levels expire on their own, and a fourth
// warning jails the member instead.
package warnings

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/PancyStudios/PancyGuardGo/pkg/platform"
)

var (
	ErrNotConfigured   = errors.New("warn system is not set up for this guild")
	ErrNoWarnings      = errors.New("member has no warnings")
	ErrSweepInProgress = errors.New("expiry sweep already running")
)

// MaxLevel is the highest stored level. Issuing past it triggers containment.
const MaxLevel = 3

// TTL returns how long a warning of the given level stays active.
func TTL(level int) time.Duration {
	switch level {
	case 1:
		return 24 * time.Hour
	case 2:
		return 48 * time.Hour
	case 3:
		return 7 * 24 * time.Hour
	}
	return 0
}

// Repository persists warning state, history and per-guild settings.
type Repository interface {
	// ActiveWarning returns nil and no error when the member is clean.
	ActiveWarning(ctx context.Context, tenantID, subjectID string) (*models.WarningState, error)
	SaveWarning(ctx context.Context, state models.WarningState) error
	DeleteWarning(ctx context.Context, tenantID, subjectID string) error
	// DeleteExpiredWarning deletes the state only if it is still expired at
	// now and reports whether a row was removed.
	DeleteExpiredWarning(ctx context.Context, tenantID, subjectID string, now time.Time) (bool, error)
	ExpiredWarnings(ctx context.Context, now time.Time, limit int) ([]models.WarningState, error)

	AppendWarningHistory(ctx context.Context, entry models.WarningHistoryEntry) error
	// WarningHistory returns the entries oldest first.
	WarningHistory(ctx context.Context, tenantID, subjectID string) ([]models.WarningHistoryEntry, error)
	// DeleteLatestWarning removes the newest entry and returns how many remain.
	DeleteLatestWarning(ctx context.Context, tenantID, subjectID string) (deleted bool, remaining int, err error)
	ClearWarningHistory(ctx context.Context, tenantID, subjectID string) (int, error)

	WarnSettings(ctx context.Context, tenantID string) (*models.WarnSettings, error)
	SaveWarnSettings(ctx context.Context, settings models.WarnSettings) error
}

// Containment is the action taken when a member at the last level is warned again.
type Containment interface {
	Contain(ctx context.Context, tenantID, subjectID, reason, moderatorID string) error
}

// IssueResult describes the effect of Issue.
type IssueResult struct {
	PreviousLevel int
	Level         int
	ExpiresAt     time.Time
	Contained     bool
	// RoleSyncFailed is set when a level role could not be swapped. The warning is stored anyway.
	RoleSyncFailed bool
}

// RemoveResult describes the effect of RemoveLast.
type RemoveResult struct {
	PreviousLevel int
	Level         int
	ExpiresAt     time.Time
}

const sweepBatch = 200

// Escalator owns the warning state machine.
type Escalator struct {
	repo    Repository
	mut     platform.Mutator
	contain Containment
	notify  Notifier
	now     func() time.Time

	sweeping atomic.Bool
}

// NewEscalator wires an Escalator.
func NewEscalator(repo Repository, mut platform.Mutator, contain Containment) *Escalator {
	return &Escalator{repo: repo, mut: mut, contain: contain, now: time.Now}
}

// Settings returns the warn settings of a guild, or ErrNotConfigured.
func (e *Escalator) Settings(ctx context.Context, tenantID string) (*models.WarnSettings, error) {
	s, err := e.repo.WarnSettings(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading warn settings: %w", err)
	}
	if s == nil {
		return nil, ErrNotConfigured
	}
	return s, nil
}

// Configure stores the warn settings of a guild.
func (e *Escalator) Configure(ctx context.Context, settings models.WarnSettings) error {
	if settings.TenantID == "" || settings.FirstRole == "" || settings.SecondRole == "" || settings.LastRole == "" {
		return fmt.Errorf("%w: the three level roles are required", ErrNotConfigured)
	}
	return e.repo.SaveWarnSettings(ctx, settings)
}

// Issue raises the warning level of a member by one.
func (e *Escalator) Issue(ctx context.Context, tenantID, subjectID, reason, moderatorID string) (IssueResult, error) {
	settings, err := e.Settings(ctx, tenantID)
	if err != nil {
		return IssueResult{}, err
	}
	active, err := e.repo.ActiveWarning(ctx, tenantID, subjectID)
	if err != nil {
		return IssueResult{}, fmt.Errorf("loading active warning: %w", err)
	}

	res := IssueResult{Level: 1}
	if active != nil {
		res.PreviousLevel = active.Level
		res.Level = min(active.Level+1, MaxLevel+1)
	}

	if res.Level > MaxLevel {
		if err := e.contain.Contain(ctx, tenantID, subjectID, "Encarcelamiento automático: última advertencia superada", moderatorID); err != nil {
			return res, fmt.Errorf("containing %s: %w", subjectID, err)
		}
		res.Contained = true
		warningsIssued.WithLabelValues("contained").Inc()
		e.emit(ctx, Event{Kind: EventContained, TenantID: tenantID, SubjectID: subjectID, ModeratorID: moderatorID, PreviousLevel: res.PreviousLevel, Level: res.Level})
		return res, nil
	}

	now := e.now().UTC()
	res.ExpiresAt = now.Add(TTL(res.Level))
	res.RoleSyncFailed = !e.swapRoles(ctx, tenantID, subjectID, settings, res.PreviousLevel, res.Level)

	entry := models.WarningHistoryEntry{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		SubjectID:   subjectID,
		Level:       res.Level,
		Reason:      reason,
		ModeratorID: moderatorID,
		IssuedAt:    now,
	}
	if err := e.repo.AppendWarningHistory(ctx, entry); err != nil {
		return res, fmt.Errorf("appending warning history: %w", err)
	}
	state := models.WarningState{TenantID: tenantID, SubjectID: subjectID, Level: res.Level, ExpiresAt: res.ExpiresAt}
	if err := e.repo.SaveWarning(ctx, state); err != nil {
		return res, fmt.Errorf("saving warning state: %w", err)
	}
	warningsIssued.WithLabelValues(fmt.Sprint(res.Level)).Inc()
	e.emit(ctx, Event{Kind: EventIssued, TenantID: tenantID, SubjectID: subjectID, ModeratorID: moderatorID, PreviousLevel: res.PreviousLevel, Level: res.Level, ExpiresAt: res.ExpiresAt})
	return res, nil
}

// RemoveLast deletes the newest warning. The level becomes the number of
// remaining warnings (capped at MaxLevel) and its expiry restarts from now.
func (e *Escalator) RemoveLast(ctx context.Context, tenantID, subjectID string) (RemoveResult, error) {
	deleted, remaining, err := e.repo.DeleteLatestWarning(ctx, tenantID, subjectID)
	if err != nil {
		return RemoveResult{}, fmt.Errorf("deleting latest warning: %w", err)
	}
	if !deleted {
		return RemoveResult{}, ErrNoWarnings
	}

	active, err := e.repo.ActiveWarning(ctx, tenantID, subjectID)
	if err != nil {
		return RemoveResult{}, fmt.Errorf("loading active warning: %w", err)
	}
	settings, err := e.repo.WarnSettings(ctx, tenantID)
	if err != nil {
		return RemoveResult{}, fmt.Errorf("loading warn settings: %w", err)
	}

	res := RemoveResult{Level: min(remaining, MaxLevel)}
	if active != nil {
		res.PreviousLevel = active.Level
	}

	if res.Level == 0 {
		e.swapRoles(ctx, tenantID, subjectID, settings, res.PreviousLevel, 0)
		if err := e.repo.DeleteWarning(ctx, tenantID, subjectID); err != nil {
			return res, fmt.Errorf("deleting warning state: %w", err)
		}
		e.emit(ctx, Event{Kind: EventRemoved, TenantID: tenantID, SubjectID: subjectID, PreviousLevel: res.PreviousLevel})
		return res, nil
	}

	if res.Level != res.PreviousLevel {
		e.swapRoles(ctx, tenantID, subjectID, settings, res.PreviousLevel, res.Level)
	}
	res.ExpiresAt = e.now().UTC().Add(TTL(res.Level))
	state := models.WarningState{TenantID: tenantID, SubjectID: subjectID, Level: res.Level, ExpiresAt: res.ExpiresAt}
	if err := e.repo.SaveWarning(ctx, state); err != nil {
		return res, fmt.Errorf("saving warning state: %w", err)
	}
	e.emit(ctx, Event{Kind: EventRemoved, TenantID: tenantID, SubjectID: subjectID, PreviousLevel: res.PreviousLevel, Level: res.Level, ExpiresAt: res.ExpiresAt})
	return res, nil
}

// Clear removes every warning of a member and its level role.
func (e *Escalator) Clear(ctx context.Context, tenantID, subjectID string) (int, error) {
	active, err := e.repo.ActiveWarning(ctx, tenantID, subjectID)
	if err != nil {
		return 0, fmt.Errorf("loading active warning: %w", err)
	}
	n, err := e.repo.ClearWarningHistory(ctx, tenantID, subjectID)
	if err != nil {
		return 0, fmt.Errorf("clearing warning history: %w", err)
	}
	if active == nil {
		return n, nil
	}
	settings, err := e.repo.WarnSettings(ctx, tenantID)
	if err != nil {
		return n, fmt.Errorf("loading warn settings: %w", err)
	}
	e.swapRoles(ctx, tenantID, subjectID, settings, active.Level, 0)
	if err := e.repo.DeleteWarning(ctx, tenantID, subjectID); err != nil {
		return n, fmt.Errorf("deleting warning state: %w", err)
	}
	e.emit(ctx, Event{Kind: EventCleared, TenantID: tenantID, SubjectID: subjectID, PreviousLevel: active.Level})
	return n, nil
}

// History returns the warnings of a member, oldest first.
func (e *Escalator) History(ctx context.Context, tenantID, subjectID string) ([]models.WarningHistoryEntry, error) {
	return e.repo.WarningHistory(ctx, tenantID, subjectID)
}

// Active returns the active warning of a member, or nil when clean.
func (e *Escalator) Active(ctx context.Context, tenantID, subjectID string) (*models.WarningState, error) {
	return e.repo.ActiveWarning(ctx, tenantID, subjectID)
}

// ExpireSweep deletes every expired warning and removes its level role.
// Only one sweep runs at a time; a concurrent call returns ErrSweepInProgress.
// The delete is conditional on the row still being expired: a warning issued
// or removed after the listing has a fresh expiry and is left alone, role
// included.
func (e *Escalator) ExpireSweep(ctx context.Context) (int, error) {
	if !e.sweeping.CompareAndSwap(false, true) {
		return 0, ErrSweepInProgress
	}
	defer e.sweeping.Store(false)

	settingsCache := map[string]*models.WarnSettings{}
	expired := 0
	for {
		now := e.now().UTC()
		batch, err := e.repo.ExpiredWarnings(ctx, now, sweepBatch)
		if err != nil {
			return expired, fmt.Errorf("listing expired warnings: %w", err)
		}
		if len(batch) == 0 {
			return expired, nil
		}
		removed := 0
		for _, w := range batch {
			settings, ok := settingsCache[w.TenantID]
			if !ok {
				settings, err = e.repo.WarnSettings(ctx, w.TenantID)
				if err != nil {
					return expired + removed, fmt.Errorf("loading warn settings: %w", err)
				}
				settingsCache[w.TenantID] = settings
			}
			deleted, err := e.repo.DeleteExpiredWarning(ctx, w.TenantID, w.SubjectID, now)
			if err != nil {
				return expired + removed, fmt.Errorf("deleting expired warning: %w", err)
			}
			if !deleted {
				continue
			}
			e.swapRoles(ctx, w.TenantID, w.SubjectID, settings, w.Level, 0)
			e.emit(ctx, Event{Kind: EventExpired, TenantID: w.TenantID, SubjectID: w.SubjectID, PreviousLevel: w.Level})
			removed++
		}
		expired += removed
		warningsExpired.Add(float64(removed))
		if len(batch) < sweepBatch {
			return expired, nil
		}
	}
}

// swapRoles removes the role of from and adds the role of to. Level 0 has no role.
// It reports whether every mutation succeeded; a member who left is not a failure.
func (e *Escalator) swapRoles(ctx context.Context, tenantID, subjectID string, settings *models.WarnSettings, from, to int) bool {
	ok := true
	oldRole, newRole := settings.RoleForLevel(from), settings.RoleForLevel(to)
	if oldRole != "" && oldRole != newRole {
		if err := e.mut.RemoveRole(ctx, tenantID, subjectID, oldRole, "Nivel de advertencia actualizado"); err != nil && !errors.Is(err, platform.ErrNotFound) {
			logger.Warn(fmt.Sprintf("No se pudo quitar el rol %s a %s: %v", oldRole, subjectID, err), "Warnings")
			ok = false
		}
	}
	if newRole != "" && newRole != oldRole {
		if err := e.mut.AddRole(ctx, tenantID, subjectID, newRole, "Nivel de advertencia actualizado"); err != nil && !errors.Is(err, platform.ErrNotFound) {
			logger.Warn(fmt.Sprintf("No se pudo añadir el rol %s a %s: %v", newRole, subjectID, err), "Warnings")
			ok = false
		}
	}
	return ok
}
