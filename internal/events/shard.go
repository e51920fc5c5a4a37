package events

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/errors"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
)

// RegisterShardEvents logs gateway disconnects. Events missed while
// disconnected are never evaluated, so a disconnect is raised as an alert.
func RegisterShardEvents(client *discord.ExtendedClient) {
	client.EventHandler.RegisterEvent(onShardDisconnect)
	client.EventHandler.RegisterEvent(onShardResumed)
}

func onShardDisconnect(s *discordgo.Session, _ *discordgo.Disconnect) {
	msg := fmt.Sprintf("🔌 Shard %d desconectado.", s.ShardID)
	logger.Warn(msg, "Shard")
	if h := errors.Get(); h != nil {
		h.Alert("gateway_disconnect", msg)
	}
}

func onShardResumed(s *discordgo.Session, _ *discordgo.Resumed) {
	logger.Success(fmt.Sprintf("✅ Shard %d reanudado.", s.ShardID), "Shard")
}
