package antinuke

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/internal/commands/common"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
)

var punishmentNames = map[models.PunishmentType]string{
	models.PunishmentClearRoles: "Quitar roles",
	models.PunishmentKick:       "Expulsar",
	models.PunishmentBan:        "Banear",
	models.PunishmentTimeout:    "Aislar temporalmente",
}

func (h *handlers) setupCommand() *discord.Command {
	return discord.NewCommand("setup", "Crea la configuración de todas las categorías", group, h.setup)
}

func (h *handlers) setup(ctx *discord.CommandContext) error {
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	c, cancel := common.Context()
	defer cancel()

	guildID := ctx.Interaction.GuildID
	err := h.admin.Setup(c, guildID)
	if err == nil {
		logger.Info(fmt.Sprintf("Seguridad inicializada en %s por %s", guildID, ctx.User().ID), "Security")
	}
	return common.Finish(ctx, "No se pudo configurar la seguridad", err, common.SuccessEmbed(
		"Seguridad configurada",
		fmt.Sprintf("Se crearon las %d categorías con los valores por defecto (desactivadas, castigo `%s`, máximo %d).\nActívalas con `/security enable`.",
			len(models.Categories), models.DefaultPunishment, models.DefaultMaxViolations),
	))
}

func (h *handlers) enableCommand() *discord.Command {
	return discord.NewCommand("enable", "Activa la protección de una categoría", group, h.toggle(true)).
		WithOptions(categoryOption(true))
}

func (h *handlers) disableCommand() *discord.Command {
	return discord.NewCommand("disable", "Desactiva la protección de una categoría", group, h.toggle(false)).
		WithOptions(categoryOption(true))
}

func (h *handlers) toggle(enabled bool) discord.CommandRunFunc {
	return func(ctx *discord.CommandContext) error {
		if err := ctx.DeferEphemeral(); err != nil {
			return err
		}
		c, cancel := common.Context()
		defer cancel()

		category := ctx.GetStringOption("categoria")
		err := h.admin.SetEnabled(c, ctx.Interaction.GuildID, category, enabled)
		state := "desactivada"
		if enabled {
			state = "activada"
		}
		return common.Finish(ctx, "No se pudo cambiar la categoría", err, common.SuccessEmbed(
			"Categoría "+state,
			fmt.Sprintf("La protección de **%s** está %s.", discord.CategoryTitle(category), state),
		))
	}
}

func (h *handlers) punishmentCommand() *discord.Command {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(punishmentNames))
	for _, p := range []models.PunishmentType{models.PunishmentClearRoles, models.PunishmentKick, models.PunishmentBan, models.PunishmentTimeout} {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: punishmentNames[p], Value: string(p)})
	}
	return discord.NewCommand("punishment", "Cambia el castigo de una categoría", group, h.punishment).
		WithOptions(
			categoryOption(true),
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "castigo",
				Description: "Castigo aplicado al alcanzar el máximo",
				Required:    true,
				Choices:     choices,
			},
		)
}

func (h *handlers) punishment(ctx *discord.CommandContext) error {
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	c, cancel := common.Context()
	defer cancel()

	category := ctx.GetStringOption("categoria")
	punishment := ctx.GetStringOption("castigo")
	err := h.admin.SetPunishment(c, ctx.Interaction.GuildID, category, punishment)
	return common.Finish(ctx, "No se pudo cambiar el castigo", err, common.SuccessEmbed(
		"Castigo actualizado",
		fmt.Sprintf("**%s** ahora aplica: `%s`.", discord.CategoryTitle(category), punishmentNames[models.PunishmentType(punishment)]),
	))
}

func (h *handlers) maxCommand() *discord.Command {
	minValue := 1.0
	return discord.NewCommand("max", "Cambia cuántas infracciones se toleran antes del castigo", group, h.max).
		WithOptions(
			categoryOption(true),
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "cantidad",
				Description: "Número de infracciones (1-100)",
				Required:    true,
				MinValue:    &minValue,
				MaxValue:    models.MaxViolationsLimit,
			},
		)
}

func (h *handlers) max(ctx *discord.CommandContext) error {
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	c, cancel := common.Context()
	defer cancel()

	category := ctx.GetStringOption("categoria")
	limit := int(ctx.GetIntOption("cantidad"))
	err := h.admin.SetMaxViolations(c, ctx.Interaction.GuildID, category, limit)
	return common.Finish(ctx, "No se pudo cambiar el máximo", err, common.SuccessEmbed(
		"Máximo actualizado",
		fmt.Sprintf("**%s** castiga a la infracción número %d.", discord.CategoryTitle(category), limit),
	))
}

func (h *handlers) whitelistCommand(name, description string, add bool) *discord.Command {
	return discord.NewCommand(name, description, group, h.whitelist(add)).
		WithOptions(
			categoryOption(true),
			userOption(false, "Usuario exento"),
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionRole,
				Name:        "rol",
				Description: "Rol exento",
			},
		)
}

func (h *handlers) whitelist(add bool) discord.CommandRunFunc {
	return func(ctx *discord.CommandContext) error {
		if err := ctx.DeferEphemeral(); err != nil {
			return err
		}
		c, cancel := common.Context()
		defer cancel()

		guildID := ctx.Interaction.GuildID
		category := ctx.GetStringOption("categoria")
		kind, id, mention := security.WhitelistMember, ctx.GetStringOption("usuario"), ""
		if id != "" {
			mention = common.Mention(id)
		} else if roleID := ctx.GetStringOption("rol"); roleID != "" {
			kind, id, mention = security.WhitelistRole, roleID, common.RoleMention(roleID)
		}

		var err error
		verb := "añadido a"
		if add {
			err = h.admin.AddWhitelist(c, guildID, category, kind, id)
		} else {
			verb = "quitado de"
			err = h.admin.RemoveWhitelist(c, guildID, category, kind, id)
		}
		return common.Finish(ctx, "No se pudo actualizar la lista blanca", err, common.SuccessEmbed(
			"Lista blanca actualizada",
			fmt.Sprintf("%s fue %s la lista blanca de **%s**.", mention, verb, discord.CategoryTitle(category)),
		))
	}
}

func (h *handlers) logChannelCommand() *discord.Command {
	return discord.NewCommand("logchannel", "Define el canal donde se registran las alertas", group, h.logChannel).
		WithOptions(&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "canal",
			Description:  "Canal de registros",
			Required:     true,
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		})
}

func (h *handlers) logChannel(ctx *discord.CommandContext) error {
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	c, cancel := common.Context()
	defer cancel()

	channelID := ctx.GetStringOption("canal")
	err := h.admin.SetLogSink(c, ctx.Interaction.GuildID, channelID)
	return common.Finish(ctx, "No se pudo cambiar el canal de registros", err, common.SuccessEmbed(
		"Canal de registros actualizado",
		fmt.Sprintf("Las alertas de seguridad se enviarán a <#%s>.", channelID),
	))
}

func (h *handlers) viewCommand() *discord.Command {
	return discord.NewCommand("view", "Muestra la configuración de seguridad", group, h.view).
		WithOptions(categoryOption(false))
}

func (h *handlers) view(ctx *discord.CommandContext) error {
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	c, cancel := common.Context()
	defer cancel()

	guildID := ctx.Interaction.GuildID
	if category := ctx.GetStringOption("categoria"); category != "" {
		cfg, err := h.admin.Config(c, guildID, category)
		if err != nil {
			return common.Finish(ctx, "No se pudo leer la configuración", err, nil)
		}
		return ctx.EditReplyEmbed(configEmbed(cfg))
	}

	configs, err := h.admin.Configs(c, guildID)
	if err != nil {
		return common.Finish(ctx, "No se pudo leer la configuración", err, nil)
	}
	return ctx.EditReplyEmbed(summaryEmbed(configs))
}

func enabledMark(enabled bool) string {
	if enabled {
		return "🟢"
	}
	return "🔴"
}

func mentions(ids []string, format func(string) string) string {
	if len(ids) == 0 {
		return "Ninguno"
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = format(id)
	}
	return strings.Join(out, ", ")
}

func configEmbed(cfg *models.SecurityConfig) *discordgo.MessageEmbed {
	logSink := "Sin canal"
	if cfg.LogSink != "" {
		logSink = "<#" + cfg.LogSink + ">"
	}
	return &discordgo.MessageEmbed{
		Title: "🛡️ " + discord.CategoryTitle(string(cfg.Category)),
		Color: common.ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Estado", Value: enabledMark(cfg.Enabled), Inline: true},
			{Name: "Castigo", Value: punishmentNames[cfg.Punishment], Inline: true},
			{Name: "Máximo", Value: fmt.Sprint(cfg.MaxViolations), Inline: true},
			{Name: "Usuarios exentos", Value: mentions(cfg.WhitelistedMembers, common.Mention)},
			{Name: "Roles exentos", Value: mentions(cfg.WhitelistedRoles, common.RoleMention)},
			{Name: "Registros", Value: logSink},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: common.FooterText},
	}
}

func summaryEmbed(configs []models.SecurityConfig) *discordgo.MessageEmbed {
	if len(configs) == 0 {
		return &discordgo.MessageEmbed{
			Title:       "🛡️ Seguridad",
			Description: "La seguridad no está configurada. Usa `/security setup`.",
			Color:       common.ColorWarn,
		}
	}
	lines := make([]string, 0, len(configs))
	for _, cfg := range configs {
		lines = append(lines, fmt.Sprintf("%s **%s** · `%s` · máx. %d",
			enabledMark(cfg.Enabled), discord.CategoryTitle(string(cfg.Category)), cfg.Punishment, cfg.MaxViolations))
	}
	return &discordgo.MessageEmbed{
		Title:       "🛡️ Seguridad",
		Description: strings.Join(lines, "\n"),
		Color:       common.ColorInfo,
		Footer:      &discordgo.MessageEmbedFooter{Text: common.FooterText},
	}
}
