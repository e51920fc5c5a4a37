package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/pkg/platform"
)

// DangerousPermissions are the permissions that make a granted role sensitive.
const DangerousPermissions int64 = discordgo.PermissionAdministrator |
	discordgo.PermissionManageGuild |
	discordgo.PermissionManageRoles |
	discordgo.PermissionBanMembers |
	discordgo.PermissionKickMembers

func newEvent(kind platform.EventKind, guildID, targetID string, lines ...string) platform.Event {
	return platform.Event{Kind: kind, TenantID: guildID, TargetID: targetID, Timestamp: time.Now(), Context: lines}
}

func userTag(u *discordgo.User) string {
	if u == nil {
		return "desconocido"
	}
	return fmt.Sprintf("%s (%s)", u.Username, u.ID)
}

func classifyChannel(kind platform.EventKind, c *discordgo.Channel) (platform.Event, bool) {
	if c == nil || c.GuildID == "" {
		return platform.Event{}, false
	}
	return newEvent(kind, c.GuildID, c.ID, fmt.Sprintf("Canal: #%s (%s)", c.Name, c.ID)), true
}

func classifyRoleCreate(r *discordgo.GuildRoleCreate) (platform.Event, bool) {
	if r.GuildRole == nil || r.Role == nil {
		return platform.Event{}, false
	}
	return newEvent(platform.EventRoleCreate, r.GuildID, r.Role.ID, fmt.Sprintf("Rol: @%s (%s)", r.Role.Name, r.Role.ID)), true
}

// classifyRoleDelete only has the ID: the state drops the role before handlers run.
func classifyRoleDelete(r *discordgo.GuildRoleDelete) platform.Event {
	return newEvent(platform.EventRoleDelete, r.GuildID, r.RoleID, "Rol eliminado: "+r.RoleID)
}

func classifyBan(b *discordgo.GuildBanAdd) (platform.Event, bool) {
	if b.User == nil {
		return platform.Event{}, false
	}
	return newEvent(platform.EventMemberBan, b.GuildID, b.User.ID, "Usuario baneado: "+userTag(b.User)), true
}

// classifyMemberRemove treats every departure as a possible kick. Voluntary
// leaves have no kick audit entry and are dropped by the resolver.
func classifyMemberRemove(m *discordgo.GuildMemberRemove) (platform.Event, bool) {
	if m.Member == nil || m.User == nil {
		return platform.Event{}, false
	}
	return newEvent(platform.EventMemberKick, m.GuildID, m.User.ID, "Usuario expulsado: "+userTag(m.User)), true
}

func classifyMemberAdd(m *discordgo.GuildMemberAdd) (platform.Event, bool) {
	if m.Member == nil || m.User == nil || !m.User.Bot {
		return platform.Event{}, false
	}
	return newEvent(platform.EventBotAdd, m.GuildID, m.User.ID, "Bot: "+userTag(m.User)), true
}

// grantedDangerousRoles returns the roles present in after but not in before
// whose permissions intersect DangerousPermissions.
func grantedDangerousRoles(before, after []string, permissions func(roleID string) (int64, bool)) []string {
	had := make(map[string]struct{}, len(before))
	for _, id := range before {
		had[id] = struct{}{}
	}
	var granted []string
	for _, id := range after {
		if _, ok := had[id]; ok {
			continue
		}
		if perms, ok := permissions(id); ok && perms&DangerousPermissions != 0 {
			granted = append(granted, id)
		}
	}
	return granted
}

// classifyMemberUpdate needs the previous member from the state cache; without
// it the added roles cannot be computed and the update is ignored.
func classifyMemberUpdate(m *discordgo.GuildMemberUpdate, permissions func(roleID string) (int64, bool)) (platform.Event, bool) {
	if m.Member == nil || m.User == nil || m.BeforeUpdate == nil {
		return platform.Event{}, false
	}
	granted := grantedDangerousRoles(m.BeforeUpdate.Roles, m.Roles, permissions)
	if len(granted) == 0 {
		return platform.Event{}, false
	}
	lines := []string{"Miembro: " + userTag(m.User)}
	for _, id := range granted {
		lines = append(lines, "Rol peligroso: <@&"+id+">")
	}
	return newEvent(platform.EventRoleGrant, m.GuildID, m.User.ID, lines...), true
}

// guildIdentity is the part of a guild whose changes are security events.
type guildIdentity struct {
	name   string
	vanity string
}

// guildTracker remembers the last seen identity of every guild. GuildUpdate
// carries only the new guild and the state cache is already overwritten when
// handlers run, so the previous values have to be kept here.
type guildTracker struct {
	mu     sync.Mutex
	guilds map[string]guildIdentity
}

func newGuildTracker() *guildTracker {
	return &guildTracker{guilds: make(map[string]guildIdentity)}
}

// seed records g without emitting anything. Unavailable guilds carry no name
// and are skipped.
func (t *guildTracker) seed(g *discordgo.Guild) {
	if g == nil || g.ID == "" || g.Unavailable || g.Name == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.guilds[g.ID] = guildIdentity{name: g.Name, vanity: g.VanityURLCode}
}

func (t *guildTracker) forget(guildID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.guilds, guildID)
}

// update stores g and returns one event per sensitive change against the
// previous identity: name and vanity URL. A guild seen for the first time
// only seeds the tracker.
func (t *guildTracker) update(g *discordgo.Guild) []platform.Event {
	if g == nil || g.ID == "" || g.Unavailable {
		return nil
	}
	after := guildIdentity{name: g.Name, vanity: g.VanityURLCode}

	t.mu.Lock()
	before, known := t.guilds[g.ID]
	t.guilds[g.ID] = after
	t.mu.Unlock()

	if !known {
		return nil
	}
	var out []platform.Event
	if before.name != after.name {
		out = append(out, newEvent(platform.EventTenantRename, g.ID, g.ID,
			"Nombre anterior: "+before.name, "Nombre nuevo: "+after.name))
	}
	if before.vanity != after.vanity {
		out = append(out, newEvent(platform.EventVanityChange, g.ID, g.ID,
			"URL anterior: "+orNone(before.vanity), "URL nueva: "+orNone(after.vanity)))
	}
	return out
}

func orNone(s string) string {
	if s == "" {
		return "ninguna"
	}
	return s
}
