// Package platform describes the minimal view of the chat platform the
// moderation core needs: classified events, the audit trail, member lookups
// and role/member mutations.
package platform

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPermissionDenied is returned when the bot lacks the permission for a mutation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrHierarchyViolation is returned when the target outranks the bot.
	ErrHierarchyViolation = errors.New("target outranks the bot")
	// ErrNotFound is returned when a member, role or record does not exist.
	ErrNotFound = errors.New("not found")
)

// EventKind identifies a classified platform event.
type EventKind string

const (
	EventChannelCreate EventKind = "channel_create"
	EventChannelDelete EventKind = "channel_delete"
	EventRoleCreate    EventKind = "role_create"
	EventRoleDelete    EventKind = "role_delete"
	EventMemberBan     EventKind = "member_ban"
	EventMemberKick    EventKind = "member_kick"
	EventBotAdd        EventKind = "bot_add"
	EventRoleGrant     EventKind = "dangerous_role_grant"
	EventTenantRename  EventKind = "tenant_rename"
	EventVanityChange  EventKind = "vanity_change"
)

// Event is a sensitive action observed on a guild without a known actor.
type Event struct {
	Kind      EventKind
	TenantID  string
	TargetID  string
	Timestamp time.Time
	// Context holds human readable lines describing the event for the log sink.
	Context []string
}

// AuditAction identifies a kind of audit log entry.
type AuditAction string

const (
	AuditChannelCreate    AuditAction = "channel_create"
	AuditChannelDelete    AuditAction = "channel_delete"
	AuditRoleCreate       AuditAction = "role_create"
	AuditRoleDelete       AuditAction = "role_delete"
	AuditMemberBanAdd     AuditAction = "member_ban_add"
	AuditMemberKick       AuditAction = "member_kick"
	AuditBotAdd           AuditAction = "bot_add"
	AuditMemberRoleUpdate AuditAction = "member_role_update"
	AuditGuildUpdate      AuditAction = "guild_update"
)

// AuditEntry is one record of the guild audit log.
type AuditEntry struct {
	Action     AuditAction
	TargetID   string
	ExecutorID string
	CreatedAt  time.Time
	// ChangeKeys lists the keys of the changes carried by the entry ("name", "vanity_url_code").
	ChangeKeys []string
}

// HasChange reports whether the entry carries a change for key.
func (e AuditEntry) HasChange(key string) bool {
	for _, k := range e.ChangeKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Member is the subset of a guild member the core works with.
type Member struct {
	ID      string
	RoleIDs []string
	Bot     bool
}

// AuditLog queries the guild audit trail.
type AuditLog interface {
	CanReadAudit(ctx context.Context, tenantID string) (bool, error)
	QueryAudit(ctx context.Context, tenantID string, action AuditAction, limit int) ([]AuditEntry, error)
}

// Directory resolves members and roles of a guild.
type Directory interface {
	Member(ctx context.Context, tenantID, userID string) (*Member, error)
	IsOwner(ctx context.Context, tenantID, userID string) (bool, error)
	RoleExists(ctx context.Context, tenantID, roleID string) (bool, error)
	// CanManageRole is false for @everyone, integration roles and roles above the bot.
	CanManageRole(ctx context.Context, tenantID, roleID string) (bool, error)
}

// Mutator changes member state. Implementations return ErrPermissionDenied or
// ErrHierarchyViolation when the platform rejects the change.
type Mutator interface {
	AddRole(ctx context.Context, tenantID, userID, roleID, reason string) error
	RemoveRole(ctx context.Context, tenantID, userID, roleID, reason string) error
	Kick(ctx context.Context, tenantID, userID, reason string) error
	Ban(ctx context.Context, tenantID, userID, reason string) error
	Timeout(ctx context.Context, tenantID, userID string, d time.Duration, reason string) error
}

// Platform is everything the moderation core consumes from the host.
type Platform interface {
	AuditLog
	Directory
	Mutator
}
