package mod

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/internal/commands/common"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
)

func (h *handlers) jailCommand() *discord.Command {
	return discord.NewCommand("jail", "Quita los roles de un usuario y lo encarcela", "mod", h.jail).
		WithOptions(targetOption("Usuario a encarcelar"), reasonOption(false)).
		WithUserPermissions(discordgo.PermissionManageRoles).
		WithBotPermissions(discordgo.PermissionManageRoles).
		WithQuota(QuotaJail)
}

func (h *handlers) jail(ctx *discord.CommandContext) error {
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
	err := h.Jailer.Contain(c, ctx.Interaction.GuildID, userID, auditReason(ctx, reason), ctx.User().ID)
	if err == nil {
		logAction(ctx, "Jail", userID, reason)
		notify(ctx, userID, dmEmbed(ctx, "⛓️ - Has sido encarcelado", "Encarcelamiento", reason))
	}
	return common.Finish(ctx, "Error al encarcelar", err, common.SuccessEmbed(
		"Usuario encarcelado",
		fmt.Sprintf("⛓️ %s fue encarcelado. Sus roles quedaron guardados.\n**Razón:** %s", common.Mention(userID), common.Reason(reason)),
	))
}

func (h *handlers) unjailCommand() *discord.Command {
	return discord.NewCommand("unjail", "Libera a un usuario y le devuelve sus roles", "mod", h.unjail).
		WithOptions(targetOption("Usuario a liberar")).
		WithUserPermissions(discordgo.PermissionManageRoles).
		WithBotPermissions(discordgo.PermissionManageRoles)
}

func (h *handlers) unjail(ctx *discord.CommandContext) error {
	userID, ok := target(ctx)
	if !ok {
		return nil
	}
	if err := ctx.Defer(); err != nil {
		return err
	}
	c, cancel := common.Context()
	defer cancel()

	restored, err := h.Jailer.Release(c, ctx.Interaction.GuildID, userID)
	if err == nil {
		logAction(ctx, "Unjail", userID, "")
	}
	return common.Finish(ctx, "Error al liberar", err, common.SuccessEmbed(
		"Usuario liberado",
		fmt.Sprintf("🔓 %s fue liberado y recuperó %d roles.", common.Mention(userID), restored),
	))
}

func (h *handlers) restoreRolesCommand() *discord.Command {
	return discord.NewCommand("restore-roles", "Devuelve los roles quitados por un castigo", "mod", h.restoreRoles).
		WithOptions(targetOption("Usuario a restaurar")).
		WithUserPermissions(discordgo.PermissionManageRoles).
		WithBotPermissions(discordgo.PermissionManageRoles)
}

func (h *handlers) restoreRoles(ctx *discord.CommandContext) error {
	userID, ok := target(ctx)
	if !ok {
		return nil
	}
	if err := ctx.Defer(); err != nil {
		return err
	}
	c, cancel := common.Context()
	defer cancel()

	restored, err := h.Snapshots.Restore(c, ctx.Interaction.GuildID, userID)
	if err == nil {
		logAction(ctx, "RestoreRoles", userID, "")
	}
	return common.Finish(ctx, "Error al restaurar roles", err, common.SuccessEmbed(
		"Roles restaurados",
		fmt.Sprintf("♻️ Se devolvieron %d roles a %s.", restored, common.Mention(userID)),
	))
}
