package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/pkg/config"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
)

// CommandHandler keeps the slash command definitions pushed to Discord
type CommandHandler struct {
	client        *ExtendedClient
	slashCommands []*discordgo.ApplicationCommand
}

func NewCommandHandler(client *ExtendedClient) *CommandHandler {
	return &CommandHandler{
		client:        client,
		slashCommands: make([]*discordgo.ApplicationCommand, 0),
	}
}

func subcommandOption(cmd *Command) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        cmd.Name,
		Description: cmd.Description,
		Options:     cmd.Options,
	}
}

// BuildCommandGroup creates a command made of subcommands and routes
// "name.sub" to each of them. Options may mix subcommands and groups built
// with BuildSubcommandGroup.
func (ch *CommandHandler) BuildCommandGroup(name, description string, perms int64, subcommands []*Command, groups ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommand {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands)+len(groups))
	for _, cmd := range subcommands {
		ch.client.Commands.Set(name+"."+cmd.Name, cmd)
		options = append(options, subcommandOption(cmd))
	}
	options = append(options, groups...)

	appCmd := &discordgo.ApplicationCommand{
		Name:        name,
		Description: description,
		Options:     options,
	}
	if perms != 0 {
		appCmd.DefaultMemberPermissions = &perms
	}
	return appCmd
}

// BuildSubcommandGroup creates a subcommand group routed as "group.name.sub"
func (ch *CommandHandler) BuildSubcommandGroup(groupName, name, description string, subcommands ...*Command) *discordgo.ApplicationCommandOption {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands))
	for _, cmd := range subcommands {
		ch.client.Commands.Set(groupName+"."+name+"."+cmd.Name, cmd)
		options = append(options, subcommandOption(cmd))
	}

	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// AddGlobalCommand adds a prebuilt command to the global list
func (ch *CommandHandler) AddGlobalCommand(cmd *discordgo.ApplicationCommand) {
	ch.slashCommands = append(ch.slashCommands, cmd)
}

// Definitions returns the command definitions added so far
func (ch *CommandHandler) Definitions() []*discordgo.ApplicationCommand {
	return ch.slashCommands
}

func scopeName(guildID string) string {
	if guildID == "" {
		return "globales"
	}
	return "del servidor " + guildID
}

// RegisterCommands overwrites the slash commands known by Discord. Outside
// production they are pushed to the dev guild only, where changes apply at once.
func (ch *CommandHandler) RegisterCommands() {
	guildID := ""
	if cfg := config.Get(); cfg != nil && !cfg.IsProd() && cfg.DevGuildID != "" {
		guildID = cfg.DevGuildID
	}
	appID := ch.client.Session.State.User.ID

	logger.Info("🔄 Registrando comandos "+scopeName(guildID)+"...", "CommandHandler")
	if _, err := ch.client.Session.ApplicationCommandBulkOverwrite(appID, guildID, ch.slashCommands); err != nil {
		logger.Error("Error registrando comandos "+scopeName(guildID)+": "+err.Error(), "CommandHandler")
		return
	}
	logger.Success(fmt.Sprintf("✅ %d comandos %s registrados.", len(ch.slashCommands), scopeName(guildID)), "CommandHandler")
}

// UnregisterCommands removes every command of a guild, or the global ones
// when guildID is empty
func (ch *CommandHandler) UnregisterCommands(guildID string) error {
	appID := ch.client.Session.State.User.ID
	if _, err := ch.client.Session.ApplicationCommandBulkOverwrite(appID, guildID, []*discordgo.ApplicationCommand{}); err != nil {
		return err
	}
	logger.Success("Comandos "+scopeName(guildID)+" eliminados.", "CommandHandler")
	return nil
}
