package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/PancyStudios/PancyGuardGo/pkg/platform"
)

// DefaultTimeout is how long a timeout punishment lasts.
const DefaultTimeout = time.Hour

// ResetPolicy controls when the violation counter is cleared after a punishment attempt.
type ResetPolicy int

const (
	// ResetAlways clears the counter whether or not the punishment was applied.
	ResetAlways ResetPolicy = iota
	// ResetOnSuccess keeps the counter when the punishment failed, so the next
	// violation triggers another attempt.
	ResetOnSuccess
)

// ParseResetPolicy maps "always" and "on_success" to a ResetPolicy.
func ParseResetPolicy(s string) (ResetPolicy, error) {
	switch s {
	case "", "always":
		return ResetAlways, nil
	case "on_success":
		return ResetOnSuccess, nil
	}
	return ResetAlways, fmt.Errorf("unknown reset policy %q", s)
}

// OutcomeKind is the result class of Evaluate.
type OutcomeKind string

const (
	OutcomeSkipped  OutcomeKind = "skipped"
	OutcomeRecorded OutcomeKind = "recorded"
	OutcomePunished OutcomeKind = "punished"
)

// SkipReason explains a skipped evaluation.
type SkipReason string

const (
	SkipDisabled       SkipReason = "disabled"
	SkipOwnerProtected SkipReason = "owner_protected"
	SkipWhitelisted    SkipReason = "whitelisted"
)

// Failure reasons recorded when a punishment could not be applied.
const (
	FailurePermissionDenied   = "permission_denied"
	FailureHierarchyViolation = "hierarchy_violation"
	FailureSnapshot           = "snapshot_failed"
	FailureUnknownPunishment  = "unknown_punishment"
	FailureException          = "exception"
)

// Subject is the member whose action is being evaluated.
type Subject struct {
	TenantID string
	Category models.Category
	ID       string
	RoleIDs  []string
	IsOwner  bool
}

// Outcome describes what Evaluate did.
type Outcome struct {
	Kind          OutcomeKind
	SkipReason    SkipReason
	Count         int
	Max           int
	Punishment    models.PunishmentType
	Success       bool
	FailureReason string
	Reset         bool
	LogSink       string
}

// Executor runs the threshold check, punishment and counter reset for one violation.
type Executor struct {
	configs   ConfigStore
	ledger    ViolationLedger
	gate      *WhitelistGate
	snapshots *RoleSnapshots
	mut       platform.Mutator

	TimeoutDuration time.Duration
	ResetPolicy     ResetPolicy
}

// NewExecutor wires an Executor.
func NewExecutor(configs ConfigStore, ledger ViolationLedger, snapshots *RoleSnapshots, mut platform.Mutator) *Executor {
	return &Executor{
		configs:         configs,
		ledger:          ledger,
		gate:            NewWhitelistGate(configs),
		snapshots:       snapshots,
		mut:             mut,
		TimeoutDuration: DefaultTimeout,
		ResetPolicy:     ResetAlways,
	}
}

// Evaluate records a violation for the subject and punishes it when the
// configured threshold is reached. Punishment failures are reported in the
// outcome. Errors are returned only for storage failures; a failure to record
// the violation wraps ErrLedgerUnavailable.
func (e *Executor) Evaluate(ctx context.Context, s Subject) (Outcome, error) {
	cfg, err := e.configs.GetConfig(ctx, s.TenantID, s.Category)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading config for %s: %w", s.Category, err)
	}
	if cfg == nil || !cfg.Enabled {
		return Outcome{Kind: OutcomeSkipped, SkipReason: SkipDisabled}, nil
	}
	out := Outcome{LogSink: cfg.LogSink}
	if s.IsOwner {
		out.Kind, out.SkipReason = OutcomeSkipped, SkipOwnerProtected
		return out, nil
	}
	if e.gate.Exempts(cfg, s.ID, s.RoleIDs) {
		out.Kind, out.SkipReason = OutcomeSkipped, SkipWhitelisted
		return out, nil
	}

	count, err := e.ledger.RecordViolation(ctx, s.TenantID, s.ID, s.Category)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}

	limit := cfg.MaxViolations
	if limit < 1 {
		limit = 1
	}
	punishment := cfg.Punishment
	if punishment == "" {
		punishment = models.DefaultPunishment
	}
	out.Count, out.Max = count, limit
	if count < limit {
		out.Kind = OutcomeRecorded
		return out, nil
	}

	out.Kind = OutcomePunished
	out.Punishment = punishment
	out.Success, out.FailureReason = e.punish(ctx, s, punishment)

	if e.ResetPolicy == ResetAlways || out.Success {
		if err := e.ledger.ResetViolations(ctx, s.TenantID, s.ID, s.Category); err != nil {
			return out, fmt.Errorf("resetting violations: %w", err)
		}
		out.Reset = true
	}
	return out, nil
}

func (e *Executor) punish(ctx context.Context, s Subject, punishment models.PunishmentType) (bool, string) {
	if !punishment.Valid() {
		return false, FailureUnknownPunishment
	}

	removable, err := e.snapshots.RemovableRoles(ctx, s.TenantID, s.RoleIDs)
	if err != nil {
		logger.Error(fmt.Sprintf("No se pudieron obtener los roles de %s: %v", s.ID, err), "Security")
		return false, FailureException
	}
	if len(removable) > 0 {
		if err := e.snapshots.Capture(ctx, s.TenantID, s.ID, removable); err != nil {
			logger.Error(err.Error(), "Security")
			return false, FailureSnapshot
		}
	}

	reason := fmt.Sprintf("Protección %s: límite de violaciones alcanzado", s.Category)
	switch punishment {
	case models.PunishmentClearRoles:
		var firstErr error
		for _, roleID := range removable {
			if err := e.mut.RemoveRole(ctx, s.TenantID, s.ID, roleID, reason); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		err = firstErr
	case models.PunishmentKick:
		err = e.mut.Kick(ctx, s.TenantID, s.ID, reason)
	case models.PunishmentBan:
		err = e.mut.Ban(ctx, s.TenantID, s.ID, reason)
	case models.PunishmentTimeout:
		d := e.TimeoutDuration
		if d <= 0 {
			d = DefaultTimeout
		}
		err = e.mut.Timeout(ctx, s.TenantID, s.ID, d, reason)
	}
	if err != nil {
		return false, failureReason(err)
	}
	return true, ""
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, platform.ErrPermissionDenied):
		return FailurePermissionDenied
	case errors.Is(err, platform.ErrHierarchyViolation):
		return FailureHierarchyViolation
	}
	return FailureException
}
