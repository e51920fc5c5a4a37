package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/pkg/security"
)

type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ChannelSink posts security records as embeds to the log channel of the category.
type ChannelSink struct {
	sender embedSender
}

var _ security.LogSink = (*ChannelSink)(nil)

func NewChannelSink(s *discordgo.Session) *ChannelSink {
	return &ChannelSink{sender: s}
}

func (c *ChannelSink) Emit(ctx context.Context, rec security.LogRecord) error {
	if rec.LogSink == "" {
		return nil
	}
	if _, err := c.sender.ChannelMessageSendEmbed(rec.LogSink, SecurityEmbed(rec), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("sending log to %s: %w", rec.LogSink, mapError(err))
	}
	return nil
}

var categoryTitles = map[string]string{
	"ban":                 "Baneo",
	"kick":                "Expulsión",
	"channel_create":      "Creación de canal",
	"channel_delete":      "Eliminación de canal",
	"role_create":         "Creación de rol",
	"role_delete":         "Eliminación de rol",
	"addbot":              "Bot añadido",
	"dangerous_role_give": "Rol peligroso otorgado",
	"change_vanity":       "Cambio de URL personalizada",
	"change_server_name":  "Cambio de nombre del servidor",
}

// CategoryTitle returns the display name of a security category.
func CategoryTitle(category string) string {
	if title, ok := categoryTitles[category]; ok {
		return title
	}
	return category
}

// SecurityEmbed renders a record for the log channel.
func SecurityEmbed(rec security.LogRecord) *discordgo.MessageEmbed {
	title := CategoryTitle(string(rec.Category))

	color := 0xFFA500
	status := fmt.Sprintf("Infracción registrada (%d/%d)", rec.Count, rec.Max)
	switch {
	case rec.Outcome == security.OutcomeUnprocessed:
		color = 0x808080
		status = "⚠️ No se pudo registrar la infracción"
	case strings.HasPrefix(rec.Outcome, string(security.OutcomeSkipped)):
		color = 0x00FF00
		status = "Acción permitida (" + strings.TrimPrefix(rec.Outcome, string(security.OutcomeSkipped)+":") + ")"
	case rec.Outcome == string(security.OutcomePunished) && rec.Success:
		color = 0xFF0000
		status = fmt.Sprintf("🔨 Castigo aplicado: `%s`", rec.PunishmentApplied)
	case rec.Outcome == string(security.OutcomePunished):
		color = 0xFF0000
		status = fmt.Sprintf("❌ Castigo `%s` fallido: %s", rec.PunishmentApplied, rec.FailureReason)
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Responsable", Value: "<@" + rec.SubjectID + ">", Inline: true},
		{Name: "Estado", Value: status, Inline: true},
	}
	if len(rec.Context) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Detalles", Value: strings.Join(rec.Context, "\n")})
	}

	return &discordgo.MessageEmbed{
		Title:     "🛡️ Seguridad | " + title,
		Color:     color,
		Fields:    fields,
		Timestamp: rec.At.Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "PancyGuard"},
	}
}
