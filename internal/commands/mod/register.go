// Package mod provides the manual moderation commands (/mod) and the warning
// ladder commands (/warn). Every destructive action consumes the moderator's
// daily quota before it runs.
package mod

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/internal/commands/common"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/platform"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
	"github.com/PancyStudios/PancyGuardGo/pkg/warnings"
)

// Daily quota buckets
const (
	QuotaBan     = "ban"
	QuotaKick    = "kick"
	QuotaTimeout = "timeout"
	QuotaWarn    = "warn"
	QuotaJail    = "jail"
)

// Deps are the services the moderation commands act through.
type Deps struct {
	Platform  platform.Platform
	Escalator *warnings.Escalator
	Jailer    *warnings.Jailer
	Snapshots *security.RoleSnapshots
}

type handlers struct {
	Deps
}

// RegisterModCommands registers /mod and /warn with their subcommands
func RegisterModCommands(client *discord.ExtendedClient, deps Deps) {
	h := &handlers{Deps: deps}

	modGroup := client.CommandHandler.BuildCommandGroup(
		"mod",
		"Comandos de moderación",
		discordgo.PermissionModerateMembers,
		[]*discord.Command{
			h.banCommand(),
			h.kickCommand(),
			h.timeoutCommand(),
			h.jailCommand(),
			h.unjailCommand(),
			h.restoreRolesCommand(),
		},
	)
	client.CommandHandler.AddGlobalCommand(modGroup)

	warnGroup := client.CommandHandler.BuildCommandGroup(
		"warn",
		"Sistema de advertencias",
		0,
		[]*discord.Command{
			h.warnSetupCommand(),
			h.warnCommand(),
			h.removeWarnCommand(),
			h.clearWarnsCommand(),
			h.warningsCommand(),
		},
	)
	client.CommandHandler.AddGlobalCommand(warnGroup)
}

func targetOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "usuario",
		Description: description,
		Required:    true,
	}
}

func reasonOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "razon",
		Description: "Razón de la acción",
		Required:    required,
	}
}

// target reads the "usuario" option and rejects the moderator and the bot.
// When it returns false the member has already been answered.
func target(ctx *discord.CommandContext) (string, bool) {
	userID := ctx.GetStringOption("usuario")
	switch {
	case userID == "":
		ctx.ReplyEphemeral("❌ Debes especificar un usuario.")
		return "", false
	case userID == ctx.User().ID:
		ctx.ReplyEphemeral("❌ No puedes usar este comando contigo mismo.")
		return "", false
	case ctx.Session.State != nil && ctx.Session.State.User != nil && userID == ctx.Session.State.User.ID:
		ctx.ReplyEphemeral("❌ No puedo actuar sobre mí mismo.")
		return "", false
	}
	return userID, true
}

// auditReason prefixes the reason with the moderator so the audit log names them.
func auditReason(ctx *discord.CommandContext, reason string) string {
	return fmt.Sprintf("%s | Moderador: %s", common.Reason(reason), ctx.User().Username)
}

// notify sends a direct message to the member. Members with closed DMs are
// skipped silently.
func notify(ctx *discord.CommandContext, userID string, embed *discordgo.MessageEmbed) {
	channel, err := ctx.Session.UserChannelCreate(userID)
	if err != nil {
		logger.Debug("No se pudo abrir MD con "+userID+": "+err.Error(), "CMD-Mod")
		return
	}
	if _, err := ctx.Session.ChannelMessageSendEmbed(channel.ID, embed); err != nil {
		logger.Debug("No se pudo enviar MD a "+userID+": "+err.Error(), "CMD-Mod")
	}
}

func dmEmbed(ctx *discord.CommandContext, title, action, reason string) *discordgo.MessageEmbed {
	guildName := ctx.Interaction.GuildID
	if g := ctx.Guild(); g != nil {
		guildName = g.Name
	}
	return &discordgo.MessageEmbed{
		Title: title,
		Color: common.ColorWarn,
		Description: fmt.Sprintf("⚒ - **Servidor:** %s\n📝 - **Acción:** %s\n💬 - **Razón:** %s\n\n🕒 - **Fecha:** <t:%d:F>",
			guildName, action, common.Reason(reason), time.Now().Unix()),
		Footer: &discordgo.MessageEmbedFooter{Text: common.FooterText},
	}
}

func logAction(ctx *discord.CommandContext, action, userID, reason string) {
	logger.Info(fmt.Sprintf("%s: %s -> %s en %s (%s)", action, ctx.User().ID, userID, ctx.Interaction.GuildID, common.Reason(reason)), "CMD-Mod")
}
