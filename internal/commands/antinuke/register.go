// Package antinuke provides the /security command group that administers the
// anti-nuke protection of a guild.
package antinuke

import (
	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
)

const group = "security"

type handlers struct {
	admin *security.Admin
}

// RegisterSecurityCommands registers /security and its subcommands
func RegisterSecurityCommands(client *discord.ExtendedClient, admin *security.Admin) {
	h := &handlers{admin: admin}

	subcommands := []*discord.Command{
		h.setupCommand(),
		h.enableCommand(),
		h.disableCommand(),
		h.punishmentCommand(),
		h.maxCommand(),
		h.logChannelCommand(),
		h.viewCommand(),
		h.violationsCommand(),
		h.resetCommand(),
	}
	for _, cmd := range subcommands {
		cmd.WithUserPermissions(discordgo.PermissionAdministrator)
	}

	whitelist := client.CommandHandler.BuildSubcommandGroup(group, "whitelist", "Gestiona las excepciones de una categoría",
		h.whitelistCommand("add", "Añade un usuario o rol a la lista blanca", true).WithUserPermissions(discordgo.PermissionAdministrator),
		h.whitelistCommand("remove", "Quita un usuario o rol de la lista blanca", false).WithUserPermissions(discordgo.PermissionAdministrator),
	)

	cmd := client.CommandHandler.BuildCommandGroup(
		group,
		"Configura la protección anti-nuke del servidor",
		discordgo.PermissionAdministrator,
		subcommands,
		whitelist,
	)
	client.CommandHandler.AddGlobalCommand(cmd)
}

func categoryChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(models.Categories))
	for _, c := range models.Categories {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  discord.CategoryTitle(string(c)),
			Value: string(c),
		})
	}
	return choices
}

func categoryOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "categoria",
		Description: "Acción protegida",
		Required:    required,
		Choices:     categoryChoices(),
	}
}

func userOption(required bool, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "usuario",
		Description: description,
		Required:    required,
	}
}
