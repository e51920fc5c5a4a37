// Package commands wires every slash command group to the Discord client.
// Each group lives in its own subpackage (antinuke, mod, utils).
package commands

import (
	"github.com/PancyStudios/PancyGuardGo/internal/commands/antinuke"
	"github.com/PancyStudios/PancyGuardGo/internal/commands/mod"
	"github.com/PancyStudios/PancyGuardGo/internal/commands/utils"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
)

// Deps are the services behind the commands.
type Deps struct {
	Admin *security.Admin
	Mod   mod.Deps
	Store utils.Pinger
}

// RegisterAll registers all commands with the Discord client
func RegisterAll(client *discord.ExtendedClient, deps Deps) {
	// /utils ping, status, help, stats
	utils.RegisterUtilsCommands(client, deps.Store)

	// /security
	antinuke.RegisterSecurityCommands(client, deps.Admin)

	// /mod and /warn
	mod.RegisterModCommands(client, deps.Mod)
}
