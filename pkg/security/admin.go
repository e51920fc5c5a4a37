package security

import (
	"context"
	"errors"
	"fmt"

	"github.com/PancyStudios/PancyGuardGo/pkg/models"
)

// Validation errors returned by Admin. Nothing is written when they occur.
var (
	ErrInvalidCategory   = errors.New("invalid category")
	ErrInvalidPunishment = errors.New("invalid punishment type")
	ErrInvalidMax        = errors.New("max violations out of range")
	ErrInvalidID         = errors.New("invalid id")
)

// WhitelistKind selects the member or role whitelist.
type WhitelistKind string

const (
	WhitelistMember WhitelistKind = "member"
	WhitelistRole   WhitelistKind = "role"
)

// Admin is the validated command surface over the config store and ledger.
type Admin struct {
	configs ConfigStore
	ledger  ViolationLedger
}

// NewAdmin creates an Admin.
func NewAdmin(configs ConfigStore, ledger ViolationLedger) *Admin {
	return &Admin{configs: configs, ledger: ledger}
}

// ParseCategory validates a category name.
func ParseCategory(name string) (models.Category, error) {
	c := models.Category(name)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, name)
	}
	return c, nil
}

// Setup creates every category with the defaults. Existing rows are untouched.
func (a *Admin) Setup(ctx context.Context, tenantID string) error {
	for _, c := range models.Categories {
		if err := a.configs.UpsertConfig(ctx, tenantID, c, models.ConfigPatch{}); err != nil {
			return fmt.Errorf("setting up %s: %w", c, err)
		}
	}
	return nil
}

// SetEnabled turns a category on or off.
func (a *Admin) SetEnabled(ctx context.Context, tenantID, category string, enabled bool) error {
	c, err := ParseCategory(category)
	if err != nil {
		return err
	}
	return a.configs.UpsertConfig(ctx, tenantID, c, models.ConfigPatch{Enabled: &enabled})
}

// SetPunishment changes the punishment applied at the threshold.
func (a *Admin) SetPunishment(ctx context.Context, tenantID, category, punishment string) error {
	c, err := ParseCategory(category)
	if err != nil {
		return err
	}
	p := models.PunishmentType(punishment)
	if !p.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPunishment, punishment)
	}
	return a.configs.UpsertConfig(ctx, tenantID, c, models.ConfigPatch{Punishment: &p})
}

// SetMaxViolations changes the threshold. It must be between 1 and models.MaxViolationsLimit.
func (a *Admin) SetMaxViolations(ctx context.Context, tenantID, category string, limit int) error {
	c, err := ParseCategory(category)
	if err != nil {
		return err
	}
	if limit < 1 || limit > models.MaxViolationsLimit {
		return fmt.Errorf("%w: %d", ErrInvalidMax, limit)
	}
	return a.configs.UpsertConfig(ctx, tenantID, c, models.ConfigPatch{MaxViolations: &limit})
}

// AddWhitelist adds a member or role to a category whitelist.
func (a *Admin) AddWhitelist(ctx context.Context, tenantID, category string, kind WhitelistKind, id string) error {
	return a.whitelist(ctx, tenantID, category, kind, id, true)
}

// RemoveWhitelist removes a member or role from a category whitelist.
func (a *Admin) RemoveWhitelist(ctx context.Context, tenantID, category string, kind WhitelistKind, id string) error {
	return a.whitelist(ctx, tenantID, category, kind, id, false)
}

func (a *Admin) whitelist(ctx context.Context, tenantID, category string, kind WhitelistKind, id string, add bool) error {
	c, err := ParseCategory(category)
	if err != nil {
		return err
	}
	if id == "" {
		return ErrInvalidID
	}
	ids := []string{id}
	var patch models.ConfigPatch
	switch {
	case kind == WhitelistMember && add:
		patch.AddMembers = ids
	case kind == WhitelistMember:
		patch.RemoveMembers = ids
	case kind == WhitelistRole && add:
		patch.AddRoles = ids
	case kind == WhitelistRole:
		patch.RemoveRoles = ids
	default:
		return fmt.Errorf("invalid whitelist kind %q", kind)
	}
	return a.configs.UpsertConfig(ctx, tenantID, c, patch)
}

// SetLogSink sets the log channel of every category.
func (a *Admin) SetLogSink(ctx context.Context, tenantID, channelID string) error {
	for _, c := range models.Categories {
		if err := a.configs.UpsertConfig(ctx, tenantID, c, models.ConfigPatch{LogSink: &channelID}); err != nil {
			return fmt.Errorf("setting log channel for %s: %w", c, err)
		}
	}
	return nil
}

// Config returns one category config, or ErrConfigMissing.
func (a *Admin) Config(ctx context.Context, tenantID, category string) (*models.SecurityConfig, error) {
	c, err := ParseCategory(category)
	if err != nil {
		return nil, err
	}
	cfg, err := a.configs.GetConfig(ctx, tenantID, c)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrConfigMissing
	}
	return cfg, nil
}

// Configs lists every configured category of a guild.
func (a *Admin) Configs(ctx context.Context, tenantID string) ([]models.SecurityConfig, error) {
	return a.configs.ListConfigs(ctx, tenantID)
}

// Violations returns the current count of a member for a category.
func (a *Admin) Violations(ctx context.Context, tenantID, subjectID, category string) (int, error) {
	c, err := ParseCategory(category)
	if err != nil {
		return 0, err
	}
	return a.ledger.ViolationCount(ctx, tenantID, subjectID, c)
}

// ResetViolations clears the count of a member for a category.
func (a *Admin) ResetViolations(ctx context.Context, tenantID, subjectID, category string) error {
	c, err := ParseCategory(category)
	if err != nil {
		return err
	}
	return a.ledger.ResetViolations(ctx, tenantID, subjectID, c)
}

// Update validates a full patch and applies it in one write. An invalid field
// rejects the whole patch.
func (a *Admin) Update(ctx context.Context, tenantID, category string, patch models.ConfigPatch) error {
	c, err := ParseCategory(category)
	if err != nil {
		return err
	}
	if patch.Punishment != nil && !patch.Punishment.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPunishment, *patch.Punishment)
	}
	if patch.MaxViolations != nil && (*patch.MaxViolations < 1 || *patch.MaxViolations > models.MaxViolationsLimit) {
		return fmt.Errorf("%w: %d", ErrInvalidMax, *patch.MaxViolations)
	}
	for _, ids := range [][]string{patch.AddMembers, patch.RemoveMembers, patch.AddRoles, patch.RemoveRoles} {
		for _, id := range ids {
			if id == "" {
				return ErrInvalidID
			}
		}
	}
	return a.configs.UpsertConfig(ctx, tenantID, c, patch)
}
