// Package utils provides the /utils command group.
package utils

import (
	"context"

	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	store Pinger
}

// RegisterUtilsCommands registers all utility commands as /utils subcommands
func RegisterUtilsCommands(client *discord.ExtendedClient, store Pinger) {
	h := &handlers{store: store}

	utilsGroup := client.CommandHandler.BuildCommandGroup(
		"utils",
		"Comandos de utilidad",
		0,
		[]*discord.Command{
			createPingCommand(),
			h.statusCommand(),
			createHelpCommand(),
			createStatsCommand(),
		},
	)
	client.CommandHandler.AddGlobalCommand(utilsGroup)
}
