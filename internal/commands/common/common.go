// Package common holds the reply helpers shared by the slash command packages.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/platform"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
	"github.com/PancyStudios/PancyGuardGo/pkg/warnings"
)

// CommandTimeout bounds the storage and platform calls of one command.
const CommandTimeout = 15 * time.Second

const (
	ColorSuccess = 0x00FF00
	ColorError   = 0xFF0000
	ColorWarn    = 0xFFA500
	ColorInfo    = 0x5865F2
)

const FooterText = "💫 - Developed by PancyStudios"

// Context returns a context bounded by CommandTimeout.
func Context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), CommandTimeout)
}

// Describe turns a core error into a message for the member who ran the command.
func Describe(err error) string {
	switch {
	case errors.Is(err, platform.ErrHierarchyViolation):
		return "No puedo actuar sobre ese miembro: es el propietario o tiene un rol igual o superior al mío."
	case errors.Is(err, platform.ErrPermissionDenied):
		return "Me faltan permisos para realizar esta acción."
	case errors.Is(err, platform.ErrNotFound):
		return "No encontré al miembro o rol indicado."
	case errors.Is(err, security.ErrInvalidCategory):
		return "Categoría de seguridad no válida."
	case errors.Is(err, security.ErrInvalidPunishment):
		return "Tipo de castigo no válido."
	case errors.Is(err, security.ErrInvalidMax):
		return "El máximo de infracciones debe estar entre 1 y 100."
	case errors.Is(err, security.ErrInvalidID):
		return "Debes indicar un usuario o un rol."
	case errors.Is(err, security.ErrConfigMissing):
		return "Esta categoría no está configurada. Usa `/security setup` primero."
	case errors.Is(err, security.ErrSnapshotNotFound):
		return "No hay roles guardados para este miembro."
	case errors.Is(err, warnings.ErrAlreadyJailed):
		return "El miembro ya está en la cárcel. Usa `/mod unjail` para liberarlo."
	case errors.Is(err, warnings.ErrJailNotConfigured):
		return "No hay un rol de cárcel configurado. Usa `/warn setup` con la opción `carcel`."
	case errors.Is(err, warnings.ErrNotConfigured):
		return "El sistema de advertencias no está configurado. Usa `/warn setup` primero."
	case errors.Is(err, warnings.ErrNoWarnings):
		return "El miembro no tiene advertencias."
	case errors.Is(err, context.DeadlineExceeded):
		return "La operación tardó demasiado, inténtalo de nuevo."
	}
	return "Ocurrió un error inesperado, inténtalo más tarde."
}

// userErrors are answered to the member and not counted as command failures.
var userErrors = []error{
	platform.ErrHierarchyViolation,
	platform.ErrPermissionDenied,
	platform.ErrNotFound,
	security.ErrInvalidCategory,
	security.ErrInvalidPunishment,
	security.ErrInvalidMax,
	security.ErrInvalidID,
	security.ErrConfigMissing,
	security.ErrSnapshotNotFound,
	warnings.ErrJailNotConfigured,
	warnings.ErrAlreadyJailed,
	warnings.ErrNotConfigured,
	warnings.ErrNoWarnings,
}

// IsUserError reports whether err comes from the input or the guild setup
// rather than from a failure of the bot.
func IsUserError(err error) bool {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Finish edits the deferred reply with ok, or with an error embed when err is
// set. Only failures of the bot itself are returned to the command router.
func Finish(ctx *discord.CommandContext, title string, err error, ok *discordgo.MessageEmbed) error {
	if err == nil {
		return ctx.EditReplyEmbed(ok)
	}
	_ = ctx.EditReplyEmbed(ErrorEmbed(title, err))
	if IsUserError(err) {
		return nil
	}
	return err
}

// ErrorEmbed builds the embed shown when a command fails.
func ErrorEmbed(title string, err error) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ " + title,
		Description: Describe(err),
		Color:       ColorError,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// SuccessEmbed builds the embed shown when a command succeeds.
func SuccessEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "✅ " + title,
		Description: description,
		Color:       ColorSuccess,
		Footer:      &discordgo.MessageEmbedFooter{Text: FooterText},
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// Reason returns the given reason or the default one.
func Reason(reason string) string {
	if reason == "" {
		return "Sin razón especificada"
	}
	return reason
}

// Mention formats a user mention.
func Mention(id string) string {
	return "<@" + id + ">"
}

// RoleMention formats a role mention.
func RoleMention(id string) string {
	return "<@&" + id + ">"
}
