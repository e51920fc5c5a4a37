package antinuke

import (
	"fmt"

	"github.com/PancyStudios/PancyGuardGo/internal/commands/common"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
)

func (h *handlers) violationsCommand() *discord.Command {
	return discord.NewCommand("violations", "Muestra las infracciones de un usuario", group, h.violations).
		WithOptions(userOption(true, "Usuario a consultar"), categoryOption(true))
}

func (h *handlers) violations(ctx *discord.CommandContext) error {
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	c, cancel := common.Context()
	defer cancel()

	guildID := ctx.Interaction.GuildID
	userID := ctx.GetStringOption("usuario")
	category := ctx.GetStringOption("categoria")

	count, err := h.admin.Violations(c, guildID, userID, category)
	if err != nil {
		return common.Finish(ctx, "No se pudieron leer las infracciones", err, nil)
	}
	limit := "sin configurar"
	if cfg, err := h.admin.Config(c, guildID, category); err == nil {
		limit = fmt.Sprint(cfg.MaxViolations)
	}
	return ctx.EditReplyEmbed(common.SuccessEmbed(
		"Infracciones",
		fmt.Sprintf("%s tiene **%d** infracciones de **%s** (máximo: %s).", common.Mention(userID), count, discord.CategoryTitle(category), limit),
	))
}

func (h *handlers) resetCommand() *discord.Command {
	return discord.NewCommand("reset", "Reinicia las infracciones de un usuario", group, h.reset).
		WithOptions(userOption(true, "Usuario a perdonar"), categoryOption(true))
}

func (h *handlers) reset(ctx *discord.CommandContext) error {
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	c, cancel := common.Context()
	defer cancel()

	guildID := ctx.Interaction.GuildID
	userID := ctx.GetStringOption("usuario")
	category := ctx.GetStringOption("categoria")

	err := h.admin.ResetViolations(c, guildID, userID, category)
	if err == nil {
		logger.Info(fmt.Sprintf("%s reinició las infracciones de %s (%s) en %s", ctx.User().ID, userID, category, guildID), "Security")
	}
	return common.Finish(ctx, "No se pudieron reiniciar las infracciones", err, common.SuccessEmbed(
		"Infracciones reiniciadas",
		fmt.Sprintf("El contador de **%s** de %s volvió a 0.", discord.CategoryTitle(category), common.Mention(userID)),
	))
}
