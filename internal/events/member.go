package events

import (
	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
)

// RegisterMemberEvents watches bans, kicks, bot additions and role grants
func RegisterMemberEvents(client *discord.ExtendedClient, d *Dispatcher) {
	client.EventHandler.OnGuildBanAdd(func(s *discordgo.Session, b *discordgo.GuildBanAdd) {
		if ev, ok := classifyBan(b); ok {
			d.Dispatch(ev)
		}
	})
	client.EventHandler.OnGuildMemberRemove(func(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
		if ev, ok := classifyMemberRemove(m); ok {
			d.Dispatch(ev)
		}
	})
	client.EventHandler.OnGuildMemberAdd(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if ev, ok := classifyMemberAdd(m); ok {
			d.Dispatch(ev)
		}
	})
	client.EventHandler.OnGuildMemberUpdate(func(s *discordgo.Session, m *discordgo.GuildMemberUpdate) {
		if ev, ok := classifyMemberUpdate(m, statePermissions(s, m.GuildID)); ok {
			d.Dispatch(ev)
		}
	})
}

// statePermissions looks role permissions up in the session state
func statePermissions(s *discordgo.Session, guildID string) func(string) (int64, bool) {
	return func(roleID string) (int64, bool) {
		if s == nil || s.State == nil {
			return 0, false
		}
		role, err := s.State.Role(guildID, roleID)
		if err != nil {
			return 0, false
		}
		return role.Permissions, true
	}
}
