package events

import (
	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/platform"
)

// RegisterStructureEvents watches channel and role creation and deletion
func RegisterStructureEvents(client *discord.ExtendedClient, d *Dispatcher) {
	client.EventHandler.OnChannelCreate(func(s *discordgo.Session, c *discordgo.ChannelCreate) {
		if ev, ok := classifyChannel(platform.EventChannelCreate, c.Channel); ok {
			d.Dispatch(ev)
		}
	})
	client.EventHandler.OnChannelDelete(func(s *discordgo.Session, c *discordgo.ChannelDelete) {
		if ev, ok := classifyChannel(platform.EventChannelDelete, c.Channel); ok {
			d.Dispatch(ev)
		}
	})
	client.EventHandler.OnGuildRoleCreate(func(s *discordgo.Session, r *discordgo.GuildRoleCreate) {
		if ev, ok := classifyRoleCreate(r); ok {
			d.Dispatch(ev)
		}
	})
	client.EventHandler.OnGuildRoleDelete(func(s *discordgo.Session, r *discordgo.GuildRoleDelete) {
		d.Dispatch(classifyRoleDelete(r))
	})
}
