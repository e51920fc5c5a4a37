package mod

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/internal/commands/common"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/PancyStudios/PancyGuardGo/pkg/warnings"
)

func roleOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionRole,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func (h *handlers) warnSetupCommand() *discord.Command {
	return discord.NewCommand("setup", "Configura los roles del sistema de advertencias", "warn", h.warnSetup).
		WithOptions(
			roleOption("primera", "Rol de la primera advertencia", true),
			roleOption("segunda", "Rol de la segunda advertencia", true),
			roleOption("ultima", "Rol de la última advertencia", true),
			roleOption("carcel", "Rol asignado al superar la última advertencia", false),
			roleOption("warner", "Rol que puede advertir sin permisos de moderación", false),
			&discordgo.ApplicationCommandOption{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "logs",
				Description:  "Canal donde se registran las advertencias",
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
			},
		).
		WithUserPermissions(discordgo.PermissionAdministrator).
		WithBotPermissions(discordgo.PermissionManageRoles)
}

func (h *handlers) warnSetup(ctx *discord.CommandContext) error {
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	c, cancel := common.Context()
	defer cancel()

	role := func(name string) string {
		if r := ctx.GetRoleOption(name); r != nil {
			return r.ID
		}
		return ""
	}
	settings := models.WarnSettings{
		TenantID:   ctx.Interaction.GuildID,
		FirstRole:  role("primera"),
		SecondRole: role("segunda"),
		LastRole:   role("ultima"),
		JailRole:   role("carcel"),
		WarnerRole: role("warner"),
	}
	if ch := ctx.GetChannelOption("logs"); ch != nil {
		settings.LogSink = ch.ID
	}
	err := h.Escalator.Configure(c, settings)
	if err == nil {
		logger.Info(fmt.Sprintf("Advertencias configuradas en %s por %s", settings.TenantID, ctx.User().ID), "CMD-Warn")
	}
	return common.Finish(ctx, "No se pudo configurar el sistema de advertencias", err, common.SuccessEmbed(
		"Sistema de advertencias configurado",
		warnSettingsText(settings),
	))
}

func warnSettingsText(s models.WarnSettings) string {
	optional := func(id string) string {
		if id == "" {
			return "Sin configurar"
		}
		return common.RoleMention(id)
	}
	logs := "Sin configurar"
	if s.LogSink != "" {
		logs = "<#" + s.LogSink + ">"
	}
	return fmt.Sprintf("> **Nivel 1:** %s (%s)\n> **Nivel 2:** %s (%s)\n> **Nivel 3:** %s (%s)\n> **Cárcel:** %s\n> **Warner:** %s\n> **Registros:** %s",
		common.RoleMention(s.FirstRole), humanTTL(1),
		common.RoleMention(s.SecondRole), humanTTL(2),
		common.RoleMention(s.LastRole), humanTTL(3),
		optional(s.JailRole), optional(s.WarnerRole), logs)
}

func humanTTL(level int) string {
	hours := int(warnings.TTL(level) / time.Hour)
	if hours > 24 && hours%24 == 0 {
		return fmt.Sprintf("%d días", hours/24)
	}
	return fmt.Sprintf("%d horas", hours)
}

// canWarn allows moderators and, when configured, members with the warner role.
func canWarn(member *discordgo.Member, settings *models.WarnSettings) bool {
	if member == nil {
		return false
	}
	if member.Permissions&(discordgo.PermissionAdministrator|discordgo.PermissionModerateMembers) != 0 {
		return true
	}
	return settings.WarnerRole != "" && slices.Contains(member.Roles, settings.WarnerRole)
}

// settingsFor loads the warn settings and checks the member may use the ladder.
// When it returns nil the member has already been answered.
func (h *handlers) settingsFor(c context.Context, ctx *discord.CommandContext) *models.WarnSettings {
	settings, err := h.Escalator.Settings(c, ctx.Interaction.GuildID)
	if err != nil {
		if !common.IsUserError(err) {
			logger.Error("Error cargando la configuración de advertencias: "+err.Error(), "CMD-Warn")
		}
		ctx.ReplyEphemeralEmbed(common.ErrorEmbed("Advertencias", err))
		return nil
	}
	if !canWarn(ctx.Member(), settings) {
		ctx.ReplyEphemeral("❌ No tienes permisos para gestionar advertencias.")
		return nil
	}
	return settings
}

// warnLog sends an embed to the warn log channel, when one is set.
func warnLog(ctx *discord.CommandContext, settings *models.WarnSettings, embed *discordgo.MessageEmbed) {
	if settings.LogSink == "" {
		return
	}
	if _, err := ctx.Session.ChannelMessageSendEmbed(settings.LogSink, embed); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo enviar el registro de advertencias a %s: %v", settings.LogSink, err), "CMD-Warn")
	}
}

func (h *handlers) warnCommand() *discord.Command {
	return discord.NewCommand("add", "Advierte a un usuario", "warn", h.warn).
		WithOptions(targetOption("Usuario a advertir"), reasonOption(true)).
		WithBotPermissions(discordgo.PermissionManageRoles).
		WithQuota(QuotaWarn)
}

func (h *handlers) warn(ctx *discord.CommandContext) error {
	userID, ok := target(ctx)
	if !ok {
		return nil
	}
	reason := ctx.GetStringOption("razon")
	if strings.TrimSpace(reason) == "" {
		return ctx.ReplyEphemeral("❌ Debes especificar una razón.")
	}
	c, cancel := common.Context()
	defer cancel()

	settings := h.settingsFor(c, ctx)
	if settings == nil {
		return nil
	}
	if err := ctx.Defer(); err != nil {
		return err
	}

	res, err := h.Escalator.Issue(c, ctx.Interaction.GuildID, userID, reason, ctx.User().ID)
	if err != nil {
		return common.Finish(ctx, "Error al advertir", err, nil)
	}
	logAction(ctx, fmt.Sprintf("Warn nivel %d", res.Level), userID, reason)

	embed := issueEmbed(userID, ctx.User().ID, reason, res)
	warnLog(ctx, settings, embed)
	notify(ctx, userID, dmEmbed(ctx, "⚠️ - Has recibido una advertencia", fmt.Sprintf("Advertencia (nivel %d)", res.Level), reason))
	return ctx.EditReplyEmbed(embed)
}

func issueEmbed(userID, moderatorID, reason string, res warnings.IssueResult) *discordgo.MessageEmbed {
	if res.Contained {
		return &discordgo.MessageEmbed{
			Title: "⛓️ Última advertencia superada",
			Description: fmt.Sprintf("%s superó la última advertencia y fue encarcelado.\n**Razón:** %s\n**Moderador:** %s",
				common.Mention(userID), reason, common.Mention(moderatorID)),
			Color:     common.ColorError,
			Footer:    &discordgo.MessageEmbedFooter{Text: common.FooterText},
			Timestamp: time.Now().Format(time.RFC3339),
		}
	}
	desc := fmt.Sprintf("%s ha sido advertido.\n**Nivel:** %d/%d\n**Expira:** <t:%d:R>\n**Razón:** %s\n**Moderador:** %s",
		common.Mention(userID), res.Level, warnings.MaxLevel, res.ExpiresAt.Unix(), reason, common.Mention(moderatorID))
	if res.RoleSyncFailed {
		desc += "\n\n⚠️ No se pudo actualizar el rol de advertencia."
	}
	return &discordgo.MessageEmbed{
		Title:       "⚠️ Advertencia registrada",
		Description: desc,
		Color:       common.ColorWarn,
		Footer:      &discordgo.MessageEmbedFooter{Text: common.FooterText},
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func (h *handlers) removeWarnCommand() *discord.Command {
	return discord.NewCommand("remove", "Elimina la última advertencia de un usuario", "warn", h.removeWarn).
		WithOptions(targetOption("Usuario del cual eliminar la advertencia")).
		WithBotPermissions(discordgo.PermissionManageRoles)
}

func (h *handlers) removeWarn(ctx *discord.CommandContext) error {
	userID, ok := target(ctx)
	if !ok {
		return nil
	}
	c, cancel := common.Context()
	defer cancel()

	settings := h.settingsFor(c, ctx)
	if settings == nil {
		return nil
	}
	if err := ctx.Defer(); err != nil {
		return err
	}

	res, err := h.Escalator.RemoveLast(c, ctx.Interaction.GuildID, userID)
	if err != nil {
		return common.Finish(ctx, "Error al eliminar la advertencia", err, nil)
	}
	logAction(ctx, "Unwarn", userID, "")

	desc := fmt.Sprintf("Se eliminó la última advertencia de %s.\n**Nivel:** %d → %d", common.Mention(userID), res.PreviousLevel, res.Level)
	if res.Level > 0 {
		desc += fmt.Sprintf("\n**Expira:** <t:%d:R>", res.ExpiresAt.Unix())
	}
	embed := common.SuccessEmbed("Advertencia eliminada", desc)
	warnLog(ctx, settings, embed)
	return ctx.EditReplyEmbed(embed)
}

func (h *handlers) clearWarnsCommand() *discord.Command {
	return discord.NewCommand("clear", "Elimina todas las advertencias de un usuario", "warn", h.clearWarns).
		WithOptions(targetOption("Usuario a limpiar")).
		WithBotPermissions(discordgo.PermissionManageRoles)
}

func (h *handlers) clearWarns(ctx *discord.CommandContext) error {
	userID, ok := target(ctx)
	if !ok {
		return nil
	}
	c, cancel := common.Context()
	defer cancel()

	settings := h.settingsFor(c, ctx)
	if settings == nil {
		return nil
	}
	if err := ctx.Defer(); err != nil {
		return err
	}

	n, err := h.Escalator.Clear(c, ctx.Interaction.GuildID, userID)
	if err != nil {
		return common.Finish(ctx, "Error al limpiar las advertencias", err, nil)
	}
	logAction(ctx, "ClearWarns", userID, "")
	embed := common.SuccessEmbed("Advertencias eliminadas", fmt.Sprintf("Se eliminaron %d advertencias de %s.", n, common.Mention(userID)))
	warnLog(ctx, settings, embed)
	return ctx.EditReplyEmbed(embed)
}

func (h *handlers) warningsCommand() *discord.Command {
	return discord.NewCommand("list", "Lista de advertencias de un usuario", "warn", h.warnings).
		WithOptions(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "usuario",
			Description: "[STAFF] Usuario a buscar (opcional)",
		})
}

func (h *handlers) warnings(ctx *discord.CommandContext) error {
	userID := ctx.GetStringOption("usuario")
	self := userID == "" || userID == ctx.User().ID
	if self {
		userID = ctx.User().ID
	}
	c, cancel := common.Context()
	defer cancel()

	settings, err := h.Escalator.Settings(c, ctx.Interaction.GuildID)
	if err != nil && !common.IsUserError(err) {
		return err
	}
	if settings == nil {
		settings = &models.WarnSettings{}
	}
	staff := canWarn(ctx.Member(), settings)
	if !self && !staff {
		return ctx.ReplyEphemeral("❌ No tienes permisos para ver la lista de advertencias de otro usuario.")
	}
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}

	history, err := h.Escalator.History(c, ctx.Interaction.GuildID, userID)
	if err != nil {
		return common.Finish(ctx, "Error al consultar las advertencias", err, nil)
	}
	active, err := h.Escalator.Active(c, ctx.Interaction.GuildID, userID)
	if err != nil {
		return common.Finish(ctx, "Error al consultar las advertencias", err, nil)
	}
	return ctx.EditReplyEmbed(warningsEmbed(userID, history, active, staff))
}

// warningsEmbed lists the history newest first. Moderator names are only shown to staff.
func warningsEmbed(userID string, history []models.WarningHistoryEntry, active *models.WarningState, staff bool) *discordgo.MessageEmbed {
	now := time.Now().Unix()
	if len(history) == 0 {
		return &discordgo.MessageEmbed{
			Title:       "🔖 - Lista de advertencias",
			Description: fmt.Sprintf("No se han encontrado advertencias de %s en este servidor\n\n> 💫 - **Cantidad de advertencias:** 0\n> 🕒 - **Fecha de consulta:** <t:%d>", common.Mention(userID), now),
			Color:       common.ColorSuccess,
			Footer:      &discordgo.MessageEmbedFooter{Text: common.FooterText},
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Advertencias de %s\n\n", common.Mention(userID))
	for i := len(history) - 1; i >= 0; i-- {
		w := history[i]
		moderator := "Oculto"
		if staff {
			moderator = common.Mention(w.ModeratorID)
		}
		fmt.Fprintf(&b, "> **Advertencia:** %s\n> **Nivel:** %d\n> **Moderador:** %s\n> **Fecha:** <t:%d:f>\n\n", w.Reason, w.Level, moderator, w.IssuedAt.Unix())
	}
	if active != nil {
		fmt.Fprintf(&b, "> ⚠️ - **Nivel actual:** %d (expira <t:%d:R>)\n", active.Level, active.ExpiresAt.Unix())
	}
	fmt.Fprintf(&b, "> 💫 - **Cantidad de advertencias:** %d\n> 🕒 - **Fecha de consulta:** <t:%d>", len(history), now)

	return &discordgo.MessageEmbed{
		Title:       "🔖 - Lista de advertencias",
		Description: b.String(),
		Color:       common.ColorWarn,
		Footer:      &discordgo.MessageEmbedFooter{Text: common.FooterText},
	}
}
