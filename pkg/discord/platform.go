package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/pkg/platform"
)

// Discord JSON error codes mapped onto platform errors.
const (
	codeUnknownMember      = 10007
	codeUnknownRole        = 10011
	codeUnknownUser        = 10013
	codeMissingPermissions = 50013
)

var auditActions = map[platform.AuditAction]discordgo.AuditLogAction{
	platform.AuditChannelCreate:    discordgo.AuditLogActionChannelCreate,
	platform.AuditChannelDelete:    discordgo.AuditLogActionChannelDelete,
	platform.AuditRoleCreate:       discordgo.AuditLogActionRoleCreate,
	platform.AuditRoleDelete:       discordgo.AuditLogActionRoleDelete,
	platform.AuditMemberBanAdd:     discordgo.AuditLogActionMemberBanAdd,
	platform.AuditMemberKick:       discordgo.AuditLogActionMemberKick,
	platform.AuditBotAdd:           discordgo.AuditLogActionBotAdd,
	platform.AuditMemberRoleUpdate: discordgo.AuditLogActionMemberRoleUpdate,
	platform.AuditGuildUpdate:      discordgo.AuditLogActionGuildUpdate,
}

// restClient is the part of *discordgo.Session the adapter calls.
type restClient interface {
	GuildAuditLog(guildID, userID, beforeID string, actionType, limit int, options ...discordgo.RequestOption) (*discordgo.GuildAuditLog, error)
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
	GuildMemberTimeout(guildID, userID string, until *time.Time, options ...discordgo.RequestOption) error
}

// Platform implements platform.Platform on top of a discordgo session.
// Reads go to the state cache first and fall back to REST.
type Platform struct {
	rest  restClient
	state *discordgo.State
}

var _ platform.Platform = (*Platform)(nil)

// NewPlatform adapts a session.
func NewPlatform(s *discordgo.Session) *Platform {
	return &Platform{rest: s, state: s.State}
}

func (p *Platform) botID() string {
	if p.state == nil || p.state.User == nil {
		return ""
	}
	return p.state.User.ID
}

func (p *Platform) guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if p.state != nil {
		if g, err := p.state.Guild(guildID); err == nil && len(g.Roles) > 0 {
			return g, nil
		}
	}
	g, err := p.rest.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return g, nil
}

func (p *Platform) member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if p.state != nil {
		if m, err := p.state.Member(guildID, userID); err == nil {
			return m, nil
		}
	}
	m, err := p.rest.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return m, nil
}

func (p *Platform) roles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	g, err := p.guild(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if len(g.Roles) > 0 {
		return g.Roles, nil
	}
	roles, err := p.rest.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return roles, nil
}

// rank is a snapshot of the bot's standing in a guild.
type rank struct {
	guild       *discordgo.Guild
	roles       map[string]*discordgo.Role
	permissions int64
	position    int
}

func (p *Platform) botRank(ctx context.Context, guildID string) (*rank, error) {
	g, err := p.guild(ctx, guildID)
	if err != nil {
		return nil, err
	}
	roles, err := p.roles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	bot, err := p.member(ctx, guildID, p.botID())
	if err != nil {
		return nil, err
	}
	r := &rank{guild: g, roles: make(map[string]*discordgo.Role, len(roles))}
	for _, role := range roles {
		r.roles[role.ID] = role
	}
	r.permissions = memberPermissions(g, r.roles, bot)
	r.position = highestPosition(r.roles, bot.Roles)
	return r, nil
}

func memberPermissions(g *discordgo.Guild, roles map[string]*discordgo.Role, m *discordgo.Member) int64 {
	if m.User != nil && g.OwnerID == m.User.ID {
		return discordgo.PermissionAll
	}
	var perms int64
	if everyone, ok := roles[g.ID]; ok {
		perms = everyone.Permissions
	}
	for _, id := range m.Roles {
		if role, ok := roles[id]; ok {
			perms |= role.Permissions
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}

func highestPosition(roles map[string]*discordgo.Role, ids []string) int {
	top := 0
	for _, id := range ids {
		if role, ok := roles[id]; ok && role.Position > top {
			top = role.Position
		}
	}
	return top
}

// CanReadAudit reports whether the bot holds View Audit Log.
func (p *Platform) CanReadAudit(ctx context.Context, guildID string) (bool, error) {
	r, err := p.botRank(ctx, guildID)
	if err != nil {
		return false, err
	}
	return r.permissions&discordgo.PermissionViewAuditLogs != 0, nil
}

// QueryAudit returns the newest entries of one action type, newest first.
func (p *Platform) QueryAudit(ctx context.Context, guildID string, action platform.AuditAction, limit int) ([]platform.AuditEntry, error) {
	kind, ok := auditActions[action]
	if !ok {
		return nil, fmt.Errorf("unsupported audit action %q", action)
	}
	log, err := p.rest.GuildAuditLog(guildID, "", "", int(kind), limit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	entries := make([]platform.AuditEntry, 0, len(log.AuditLogEntries))
	for _, e := range log.AuditLogEntries {
		entries = append(entries, convertAuditEntry(action, e))
	}
	return entries, nil
}

func convertAuditEntry(action platform.AuditAction, e *discordgo.AuditLogEntry) platform.AuditEntry {
	out := platform.AuditEntry{Action: action, TargetID: e.TargetID, ExecutorID: e.UserID}
	if created, err := discordgo.SnowflakeTimestamp(e.ID); err == nil {
		out.CreatedAt = created
	}
	for _, c := range e.Changes {
		if c != nil && c.Key != nil {
			out.ChangeKeys = append(out.ChangeKeys, string(*c.Key))
		}
	}
	return out
}

func (p *Platform) Member(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	m, err := p.member(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	out := &platform.Member{ID: userID, RoleIDs: append([]string(nil), m.Roles...)}
	if m.User != nil {
		out.Bot = m.User.Bot
	}
	return out, nil
}

func (p *Platform) IsOwner(ctx context.Context, guildID, userID string) (bool, error) {
	g, err := p.guild(ctx, guildID)
	if err != nil {
		return false, err
	}
	return g.OwnerID == userID, nil
}

func (p *Platform) RoleExists(ctx context.Context, guildID, roleID string) (bool, error) {
	roles, err := p.roles(ctx, guildID)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r.ID == roleID {
			return true, nil
		}
	}
	return false, nil
}

// CanManageRole is true when the bot has Manage Roles and the role is an
// ordinary role strictly below the bot's highest role.
func (p *Platform) CanManageRole(ctx context.Context, guildID, roleID string) (bool, error) {
	if roleID == guildID {
		return false, nil
	}
	r, err := p.botRank(ctx, guildID)
	if err != nil {
		return false, err
	}
	if r.permissions&discordgo.PermissionManageRoles == 0 {
		return false, nil
	}
	role, ok := r.roles[roleID]
	if !ok || role.Managed {
		return false, nil
	}
	return role.Position < r.position, nil
}

// checkTarget fails with ErrHierarchyViolation when the member is the owner
// or holds a role at or above the bot's highest role.
func (p *Platform) checkTarget(ctx context.Context, guildID, userID string) error {
	r, err := p.botRank(ctx, guildID)
	if err != nil {
		return err
	}
	if r.guild.OwnerID == userID {
		return platform.ErrHierarchyViolation
	}
	target, err := p.member(ctx, guildID, userID)
	if err != nil {
		return err
	}
	if highestPosition(r.roles, target.Roles) >= r.position {
		return platform.ErrHierarchyViolation
	}
	return nil
}

func requestOptions(ctx context.Context, reason string) []discordgo.RequestOption {
	opts := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		opts = append(opts, discordgo.WithAuditLogReason(reason))
	}
	return opts
}

func (p *Platform) AddRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return mapError(p.rest.GuildMemberRoleAdd(guildID, userID, roleID, requestOptions(ctx, reason)...))
}

func (p *Platform) RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return mapError(p.rest.GuildMemberRoleRemove(guildID, userID, roleID, requestOptions(ctx, reason)...))
}

func (p *Platform) Kick(ctx context.Context, guildID, userID, reason string) error {
	if err := p.checkTarget(ctx, guildID, userID); err != nil {
		return err
	}
	return mapError(p.rest.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx)))
}

func (p *Platform) Ban(ctx context.Context, guildID, userID, reason string) error {
	if err := p.checkTarget(ctx, guildID, userID); err != nil {
		return err
	}
	return mapError(p.rest.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx)))
}

func (p *Platform) Timeout(ctx context.Context, guildID, userID string, d time.Duration, reason string) error {
	if err := p.checkTarget(ctx, guildID, userID); err != nil {
		return err
	}
	until := time.Now().Add(d)
	return mapError(p.rest.GuildMemberTimeout(guildID, userID, &until, requestOptions(ctx, reason)...))
}

// mapError translates REST failures into platform errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case codeMissingPermissions:
			return fmt.Errorf("%w: %s", platform.ErrPermissionDenied, restErr.Message.Message)
		case codeUnknownMember, codeUnknownRole, codeUnknownUser:
			return fmt.Errorf("%w: %s", platform.ErrNotFound, restErr.Message.Message)
		}
	}
	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", platform.ErrPermissionDenied, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", platform.ErrNotFound, err)
		}
	}
	return err
}
