package mod

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/internal/commands/common"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
)

// maxTimeoutMinutes is the longest timeout Discord accepts (28 days).
const maxTimeoutMinutes = 28 * 24 * 60

func (h *handlers) banCommand() *discord.Command {
	return discord.NewCommand("ban", "Banea a un usuario del servidor", "mod", h.ban).
		WithOptions(targetOption("Usuario a banear"), reasonOption(false)).
		WithUserPermissions(discordgo.PermissionBanMembers).
		WithBotPermissions(discordgo.PermissionBanMembers).
		WithQuota(QuotaBan)
}

func (h *handlers) ban(ctx *discord.CommandContext) error {
	userID, ok := target(ctx)
	if !ok {
		return nil
	}
	if err := ctx.Defer(); err != nil {
		return err
	}
	c, cancel := common.Context()
	defer cancel()

	reason := ctx.GetStringOption("razon")
	// DM first: once banned the bot shares no guild with the member
	notify(ctx, userID, dmEmbed(ctx, "🔨 - Has sido baneado", "Baneo", reason))
	err := h.Platform.Ban(c, ctx.Interaction.GuildID, userID, auditReason(ctx, reason))
	if err == nil {
		logAction(ctx, "Ban", userID, reason)
	}
	return common.Finish(ctx, "Error al banear", err, common.SuccessEmbed(
		"Usuario baneado",
		fmt.Sprintf("🔨 %s ha sido baneado.\n**Razón:** %s", common.Mention(userID), common.Reason(reason)),
	))
}

func (h *handlers) kickCommand() *discord.Command {
	return discord.NewCommand("kick", "Expulsa a un usuario del servidor", "mod", h.kick).
		WithOptions(targetOption("Usuario a expulsar"), reasonOption(false)).
		WithUserPermissions(discordgo.PermissionKickMembers).
		WithBotPermissions(discordgo.PermissionKickMembers).
		WithQuota(QuotaKick)
}

func (h *handlers) kick(ctx *discord.CommandContext) error {
	userID, ok := target(ctx)
	if !ok {
		return nil
	}
	if err := ctx.Defer(); err != nil {
		return err
	}
	c, cancel := common.Context()
	defer cancel()

	reason := ctx.GetStringOption("razon")
	notify(ctx, userID, dmEmbed(ctx, "👢 - Has sido expulsado", "Expulsión", reason))
	err := h.Platform.Kick(c, ctx.Interaction.GuildID, userID, auditReason(ctx, reason))
	if err == nil {
		logAction(ctx, "Kick", userID, reason)
	}
	return common.Finish(ctx, "Error al expulsar", err, common.SuccessEmbed(
		"Usuario expulsado",
		fmt.Sprintf("👢 %s ha sido expulsado.\n**Razón:** %s", common.Mention(userID), common.Reason(reason)),
	))
}

func (h *handlers) timeoutCommand() *discord.Command {
	minValue := 1.0
	return discord.NewCommand("timeout", "Aísla temporalmente a un usuario", "mod", h.timeout).
		WithOptions(
			targetOption("Usuario a aislar"),
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "minutos",
				Description: "Duración en minutos (máximo 28 días)",
				Required:    true,
				MinValue:    &minValue,
				MaxValue:    maxTimeoutMinutes,
			},
			reasonOption(false),
		).
		WithUserPermissions(discordgo.PermissionModerateMembers).
		WithBotPermissions(discordgo.PermissionModerateMembers).
		WithQuota(QuotaTimeout)
}

func (h *handlers) timeout(ctx *discord.CommandContext) error {
	userID, ok := target(ctx)
	if !ok {
		return nil
	}
	minutes := ctx.GetIntOption("minutos")
	if minutes < 1 || minutes > maxTimeoutMinutes {
		return ctx.ReplyEphemeral("❌ La duración debe estar entre 1 minuto y 28 días.")
	}
	if err := ctx.Defer(); err != nil {
		return err
	}
	c, cancel := common.Context()
	defer cancel()

	reason := ctx.GetStringOption("razon")
	d := time.Duration(minutes) * time.Minute
	err := h.Platform.Timeout(c, ctx.Interaction.GuildID, userID, d, auditReason(ctx, reason))
	if err == nil {
		logAction(ctx, "Timeout", userID, reason)
		notify(ctx, userID, dmEmbed(ctx, "🔇 - Has sido aislado", fmt.Sprintf("Aislamiento de %d minutos", minutes), reason))
	}
	return common.Finish(ctx, "Error al aislar", err, common.SuccessEmbed(
		"Usuario aislado",
		fmt.Sprintf("🔇 %s no podrá interactuar hasta <t:%d:R>.\n**Razón:** %s", common.Mention(userID), time.Now().Add(d).Unix(), common.Reason(reason)),
	))
}
