package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
)

var (
	errGuildOnly       = errors.New("command used outside a guild")
	errMissingPerms    = errors.New("member lacks permissions")
	errBotMissingPerms = errors.New("bot lacks permissions")
	errQuotaExhausted  = errors.New("daily quota exhausted")
	errQuotaUnverified = errors.New("quota could not be verified")
)

func deniedEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       0xFF0000,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// checkCommand runs the gates of a command before it executes: guild only,
// member permissions, bot permissions and the daily moderation quota. When a gate fails the
// member has already been answered.
func (c *ExtendedClient) checkCommand(ctx *CommandContext, cmd *Command) error {
	guildID := ctx.Interaction.GuildID
	if guildID == "" {
		ctx.ReplyEphemeral("❌ Este comando solo puede usarse dentro de un servidor.")
		return errGuildOnly
	}

	if cmd.UserPermissions != 0 && !hasPermissions(ctx.Member(), cmd.UserPermissions) {
		ctx.ReplyEphemeralEmbed(deniedEmbed("🚫 Acceso Denegado", "No tienes los permisos necesarios para usar este comando."))
		return errMissingPerms
	}

	if cmd.BotPermissions != 0 && !permsCover(ctx.Interaction.AppPermissions, cmd.BotPermissions) {
		ctx.ReplyEphemeralEmbed(deniedEmbed("🚫 Permisos insuficientes", "No tengo los permisos necesarios en este canal para ejecutar este comando."))
		return errBotMissingPerms
	}

	if cmd.Quota == "" || c.Limiter == nil {
		return nil
	}
	userID := ctx.User().ID
	res, err := c.Limiter.TryConsume(context.Background(), guildID, userID, cmd.Quota)
	if err != nil {
		logger.Error(fmt.Sprintf("No se pudo verificar el límite diario de %s: %v", userID, err), "RateLimit")
		ctx.ReplyEphemeral("❌ No se pudo verificar tu límite diario, inténtalo más tarde.")
		return errQuotaUnverified
	}
	if !res.Allowed {
		ctx.ReplyEphemeralEmbed(deniedEmbed("⏳ Límite diario alcanzado",
			fmt.Sprintf("Ya usaste %d de %d acciones de `%s` hoy. El límite se reinicia a las 00:00 UTC.", res.Used, c.Limiter.Cap, cmd.Quota)))
		logger.Warn(fmt.Sprintf("%s alcanzó el límite diario de %s en %s", userID, cmd.Quota, guildID), "RateLimit")
		return errQuotaExhausted
	}
	return nil
}

// hasPermissions reports whether the interaction member holds every bit of perms.
func hasPermissions(member *discordgo.Member, perms int64) bool {
	if member == nil {
		return false
	}
	return permsCover(member.Permissions, perms)
}

// permsCover reports whether have includes every bit of want. Administrator
// implies all permissions.
func permsCover(have, want int64) bool {
	if have&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return have&want == want
}
