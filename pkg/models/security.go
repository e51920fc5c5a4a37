package models

import "time"

// Category names a protected action (one row of security config per tenant).
type Category string

const (
	CategoryBan               Category = "ban"
	CategoryKick              Category = "kick"
	CategoryChannelCreate     Category = "channel_create"
	CategoryChannelDelete     Category = "channel_delete"
	CategoryRoleCreate        Category = "role_create"
	CategoryRoleDelete        Category = "role_delete"
	CategoryAddBot            Category = "addbot"
	CategoryDangerousRoleGive Category = "dangerous_role_give"
	CategoryChangeVanity      Category = "change_vanity"
	CategoryChangeServerName  Category = "change_server_name"
)

// Categories lists every protected category in display order.
var Categories = []Category{
	CategoryBan,
	CategoryKick,
	CategoryChannelCreate,
	CategoryChannelDelete,
	CategoryRoleCreate,
	CategoryRoleDelete,
	CategoryAddBot,
	CategoryDangerousRoleGive,
	CategoryChangeVanity,
	CategoryChangeServerName,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// PunishmentType is the action applied once the violation threshold is reached.
type PunishmentType string

const (
	PunishmentClearRoles PunishmentType = "clear_roles"
	PunishmentKick       PunishmentType = "kick"
	PunishmentBan        PunishmentType = "ban"
	PunishmentTimeout    PunishmentType = "timeout"
)

// Valid reports whether p is a supported punishment.
func (p PunishmentType) Valid() bool {
	switch p {
	case PunishmentClearRoles, PunishmentKick, PunishmentBan, PunishmentTimeout:
		return true
	}
	return false
}

// Defaults applied by the setup flow.
const (
	DefaultPunishment    = PunishmentClearRoles
	DefaultMaxViolations = 3
	MaxViolationsLimit   = 100
)

// SecurityConfig holds the settings for one (guild, category) pair.
type SecurityConfig struct {
	TenantID           string         `bson:"guild_id" json:"guild_id"`
	Category           Category       `bson:"category" json:"category"`
	Enabled            bool           `bson:"enabled" json:"enabled"`
	Punishment         PunishmentType `bson:"punishment" json:"punishment"`
	MaxViolations      int            `bson:"max_violations" json:"max_violations"`
	WhitelistedMembers []string       `bson:"whitelisted_members" json:"whitelisted_members"`
	WhitelistedRoles   []string       `bson:"whitelisted_roles" json:"whitelisted_roles"`
	LogSink            string         `bson:"log_sink,omitempty" json:"log_sink,omitempty"`
	UpdatedAt          time.Time      `bson:"updated_at" json:"updated_at"`
}

// DefaultConfig returns the configuration a category gets on setup.
func DefaultConfig(tenantID string, category Category) SecurityConfig {
	return SecurityConfig{
		TenantID:      tenantID,
		Category:      category,
		Enabled:       false,
		Punishment:    DefaultPunishment,
		MaxViolations: DefaultMaxViolations,
	}
}

// ConfigPatch is a partial update of a SecurityConfig. Nil fields are left untouched.
type ConfigPatch struct {
	Enabled       *bool           `json:"enabled,omitempty"`
	Punishment    *PunishmentType `json:"punishment,omitempty"`
	MaxViolations *int            `json:"max_violations,omitempty"`
	LogSink       *string         `json:"log_sink,omitempty"`

	AddMembers    []string `json:"add_members,omitempty"`
	RemoveMembers []string `json:"remove_members,omitempty"`
	AddRoles      []string `json:"add_roles,omitempty"`
	RemoveRoles   []string `json:"remove_roles,omitempty"`
}

// Apply mutates cfg with the fields set in the patch.
func (p ConfigPatch) Apply(cfg *SecurityConfig) {
	if p.Enabled != nil {
		cfg.Enabled = *p.Enabled
	}
	if p.Punishment != nil {
		cfg.Punishment = *p.Punishment
	}
	if p.MaxViolations != nil {
		cfg.MaxViolations = *p.MaxViolations
	}
	if p.LogSink != nil {
		cfg.LogSink = *p.LogSink
	}
	cfg.WhitelistedMembers = removeIDs(addIDs(cfg.WhitelistedMembers, p.AddMembers), p.RemoveMembers)
	cfg.WhitelistedRoles = removeIDs(addIDs(cfg.WhitelistedRoles, p.AddRoles), p.RemoveRoles)
}

func addIDs(set, add []string) []string {
	for _, id := range add {
		if !containsID(set, id) {
			set = append(set, id)
		}
	}
	return set
}

func removeIDs(set, remove []string) []string {
	if len(remove) == 0 {
		return set
	}
	out := make([]string, 0, len(set))
	for _, id := range set {
		if !containsID(remove, id) {
			out = append(out, id)
		}
	}
	return out
}

func containsID(set []string, id string) bool {
	for _, s := range set {
		if s == id {
			return true
		}
	}
	return false
}

// ViolationRecord counts the violations of a member for one category.
type ViolationRecord struct {
	TenantID        string    `bson:"guild_id" json:"guild_id"`
	SubjectID       string    `bson:"user_id" json:"user_id"`
	Category        Category  `bson:"category" json:"category"`
	Count           int       `bson:"count" json:"count"`
	LastViolationAt time.Time `bson:"last_violation_at" json:"last_violation_at"`
}

// RoleSnapshot is the role set a member held before a destructive punishment.
type RoleSnapshot struct {
	TenantID   string    `bson:"guild_id" json:"guild_id"`
	SubjectID  string    `bson:"user_id" json:"user_id"`
	RoleIDs    []string  `bson:"roles" json:"roles"`
	CapturedAt time.Time `bson:"captured_at" json:"captured_at"`
}
