package utils

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyGuardGo/internal/commands/common"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
)

func (h *handlers) statusCommand() *discord.Command {
	return discord.NewCommand(
		"status",
		"Muestra el estado del bot",
		"utils",
		h.status,
	)
}

func (h *handlers) storeStatus() string {
	if h.store == nil {
		return "⚪ Sin configurar"
	}
	c, cancel := common.Context()
	defer cancel()

	start := time.Now()
	if err := h.store.Ping(c); err != nil {
		return "🔴 Desconectada"
	}
	return fmt.Sprintf("🟢 Conectada (%dms)", time.Since(start).Milliseconds())
}

func (h *handlers) status(ctx *discord.CommandContext) error {
	if err := ctx.Defer(); err != nil {
		return err
	}
	quotas := "Sin límite"
	if ctx.Client.Limiter != nil {
		quotas = fmt.Sprintf("%d acciones por día", ctx.Client.Limiter.Cap)
	}
	return ctx.EditReply(fmt.Sprintf(
		"📊 **Estado del Bot**\n"+
			"• Bot: 🟢 Online\n"+
			"• Base de datos: %s\n"+
			"• Límite de moderación: %s\n"+
			"• Servidores: %d",
		h.storeStatus(),
		quotas,
		ctx.Client.GuildCount(),
	))
}
