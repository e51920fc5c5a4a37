// Package events turns gateway events into classified security events and
// hands them to the evaluation pipeline.
package events

import (
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/warnings"
)

// Deps are the services the handlers feed.
type Deps struct {
	Dispatcher *Dispatcher
	// Sweeper is started on the first Ready. May be nil.
	Sweeper *warnings.Sweeper
}

// RegisterAll registers all events with the Discord client
func RegisterAll(client *discord.ExtendedClient, deps Deps) {
	logger.System("📋 Registrando eventos del bot...", "Events")

	RegisterReadyEvent(client, deps.Sweeper)
	RegisterShardEvents(client)
	RegisterGuildEvents(client, deps.Dispatcher)
	RegisterStructureEvents(client, deps.Dispatcher)
	RegisterMemberEvents(client, deps.Dispatcher)

	logger.Success("✅ Todos los eventos registrados correctamente", "Events")
}
