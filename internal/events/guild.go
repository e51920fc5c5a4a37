package events

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
)

// RegisterGuildEvents registers guild join and guild update handlers
func RegisterGuildEvents(client *discord.ExtendedClient, d *Dispatcher) {
	tracker := newGuildTracker()
	client.EventHandler.OnReady(func(s *discordgo.Session, r *discordgo.Ready) {
		for _, g := range r.Guilds {
			tracker.seed(g)
		}
	})
	client.EventHandler.OnGuildCreate(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		tracker.seed(g.Guild)
		onGuildCreate(s, g)
	})
	client.EventHandler.RegisterEvent(func(s *discordgo.Session, g *discordgo.GuildDelete) {
		// an outage also sends GuildDelete, with Unavailable set
		if g.Guild != nil && !g.Unavailable {
			tracker.forget(g.ID)
		}
		onGuildDelete(s, g)
	})
	client.EventHandler.OnGuildUpdate(func(s *discordgo.Session, g *discordgo.GuildUpdate) {
		for _, ev := range tracker.update(g.Guild) {
			d.Dispatch(ev)
		}
	})
}

// onGuildCreate greets new guilds; GuildCreate also fires for every guild on connect
func onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.JoinedAt.Before(time.Now().Add(-10 * time.Second)) {
		return
	}

	logger.Info(fmt.Sprintf("➕ Bot agregado a servidor: %s (ID: %s)", g.Name, g.ID), "Guild")

	if g.SystemChannelID == "" {
		return
	}
	if _, err := s.ChannelMessageSendEmbed(g.SystemChannelID, welcomeEmbed()); err != nil {
		logger.Error(fmt.Sprintf("Error enviando mensaje de bienvenida: %v", err), "Guild")
	}
}

func welcomeEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "¡Gracias por agregarme! 🛡️",
		Description: "Hola, soy **PancyGuard**. Protejo tu servidor contra acciones masivas y destructivas.",
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "⚙️ Configuración", Value: "Usa `/security setup` para crear la configuración", Inline: true},
			{Name: "⚠️ Advertencias", Value: "Usa `/warn setup` para configurar los roles", Inline: true},
			{Name: "❓ Ayuda", Value: "Usa `/help` para más información", Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "PancyGuard"},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	logger.Info(fmt.Sprintf("➖ Bot removido del servidor ID: %s", g.ID), "Guild")
}
