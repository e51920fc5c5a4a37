// Package main provides a utility to sync Discord slash commands.
// This removes stale commands from Discord and ensures only currently-defined commands are registered.
//
// Usage:
//
//	go run cmd/sync-commands/main.go [options]
//
// Options:
//
//	-list           List all registered commands (global and guild)
//	-clean          Remove all commands without registering new ones
//	-guild <id>     Target a specific guild instead of global commands
//	-sync           Sync commands (remove stale, register current) - default behavior
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/internal/commands"
	"github.com/PancyStudios/PancyGuardGo/pkg/config"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
)

func main() {
	// Parse command line flags
	listCmd := flag.Bool("list", false, "List all registered commands")
	cleanCmd := flag.Bool("clean", false, "Remove all commands without registering new ones")
	guildID := flag.String("guild", "", "Target a specific guild (leave empty for global)")
	flag.Bool("sync", true, "Sync commands (remove stale, register current)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init(logger.Options{ErrorWebhook: cfg.ErrorWebhook, LogsWebhook: cfg.LogsWebhook})
	defer log.Close()

	logger.System("Iniciando utilidad de sincronización de comandos...", "SyncCommands")

	// Initialize Discord client
	client, err := discord.NewClient(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "SyncCommands")
		os.Exit(1)
	}

	// Open connection to Discord
	if err := client.Session.Open(); err != nil {
		logger.Critical(fmt.Sprintf("Error connecting to Discord: %v", err), "SyncCommands")
		os.Exit(1)
	}
	defer client.Session.Close()

	logger.Success("Conectado a Discord", "SyncCommands")

	// Only the definitions are needed; handlers never run here
	commands.RegisterAll(client, commands.Deps{})

	appID := client.Session.State.User.ID

	// Execute the requested action
	switch {
	case *listCmd:
		listCommands(client.Session, appID, *guildID)
	case *cleanCmd:
		if err := client.CommandHandler.UnregisterCommands(*guildID); err != nil {
			logger.Error(fmt.Sprintf("Error eliminando comandos: %v", err), "SyncCommands")
			os.Exit(1)
		}
	default:
		overwrite(client.Session, appID, *guildID, client.CommandHandler.Definitions())
	}

	logger.Success("Operación completada exitosamente", "SyncCommands")
}

func scope(guildID string) string {
	if guildID == "" {
		return "globales"
	}
	return "del servidor " + guildID
}

// listCommands lists all commands registered with Discord
func listCommands(s *discordgo.Session, appID, guildID string) {
	logger.Info("📋 Listando comandos "+scope(guildID)+"...", "SyncCommands")

	cmds, err := s.ApplicationCommands(appID, guildID)
	if err != nil {
		logger.Error(fmt.Sprintf("Error obteniendo comandos: %v", err), "SyncCommands")
		return
	}

	if len(cmds) == 0 {
		logger.Info("No hay comandos registrados", "SyncCommands")
		return
	}

	logger.Info(fmt.Sprintf("Comandos encontrados: %d", len(cmds)), "SyncCommands")
	for i, cmd := range cmds {
		logger.Info(fmt.Sprintf("  %d. /%s - %s (ID: %s)", i+1, cmd.Name, cmd.Description, cmd.ID), "SyncCommands")
	}
}

// overwrite replaces the commands of the scope with defs. Commands missing
// from defs are deleted by Discord.
func overwrite(s *discordgo.Session, appID, guildID string, defs []*discordgo.ApplicationCommand) {
	if len(defs) == 0 {
		logger.Info("🧹 Eliminando todos los comandos "+scope(guildID)+"...", "SyncCommands")
	} else {
		logger.Info(fmt.Sprintf("🔄 Sincronizando %d comandos %s...", len(defs), scope(guildID)), "SyncCommands")
	}

	registered, err := s.ApplicationCommandBulkOverwrite(appID, guildID, defs)
	if err != nil {
		logger.Error(fmt.Sprintf("Error sincronizando comandos: %v", err), "SyncCommands")
		return
	}
	logger.Success(fmt.Sprintf("✅ %d comandos %s registrados", len(registered), scope(guildID)), "SyncCommands")
}
