package events

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/warnings"
)

// RegisterReadyEvent registers the ready handler. The warning sweeper starts
// on the first Ready only; reconnects fire Ready again.
func RegisterReadyEvent(client *discord.ExtendedClient, sweeper *warnings.Sweeper) {
	var startOnce sync.Once
	client.EventHandler.OnReady(func(s *discordgo.Session, r *discordgo.Ready) {
		logger.Success(fmt.Sprintf("✅ Bot conectado: %s", r.User.Username), "Ready")
		logger.Info(fmt.Sprintf("📊 Protegiendo %d servidores", len(r.Guilds)), "Ready")

		if err := s.UpdateWatchStatus(0, "🛡️ /security"); err != nil {
			logger.Error(fmt.Sprintf("Error estableciendo estado: %v", err), "Ready")
		}

		if sweeper != nil {
			startOnce.Do(sweeper.Start)
		}
	})
}
