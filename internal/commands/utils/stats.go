package utils

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/internal/commands/common"
	"github.com/PancyStudios/PancyGuardGo/pkg/config"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
)

// createStatsCommand creates the /utils stats subcommand
func createStatsCommand() *discord.Command {
	return discord.NewCommand(
		"stats",
		"Muestra estadísticas del bot",
		"utils",
		statsHandler,
	)
}

type botStats struct {
	AllocBytes uint64
	Goroutines int
	CPUs       int
	Uptime     time.Duration
	Guilds     int
	Members    int
	Commands   int
	Handlers   int
}

func statsHandler(ctx *discord.CommandContext) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	st := botStats{
		AllocBytes: m.Alloc,
		Goroutines: runtime.NumGoroutine(),
		CPUs:       runtime.NumCPU(),
		Uptime:     time.Since(ctx.Client.StartTime),
		Guilds:     ctx.Client.GuildCount(),
		Commands:   ctx.Client.Commands.Size(),
		Handlers:   ctx.Client.EventHandler.Count(),
	}
	ctx.Session.State.RLock()
	for _, guild := range ctx.Session.State.Guilds {
		st.Members += guild.MemberCount
	}
	ctx.Session.State.RUnlock()

	return ctx.ReplyEmbed(statsEmbed(st))
}

func statsEmbed(st botStats) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "📊 Estadísticas del Bot",
		Color: common.ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🤖 Versión del Bot", Value: config.Version, Inline: true},
			{Name: "🐹 Versión de Go", Value: strings.TrimPrefix(runtime.Version(), "go"), Inline: true},
			{Name: "📚 Versión de DiscordGo", Value: discordgo.VERSION, Inline: true},
			{Name: "🖥 Uso de RAM", Value: fmt.Sprintf("%.2f MB", float64(st.AllocBytes)/1024/1024), Inline: true},
			{Name: "⚙️ Goroutines", Value: fmt.Sprintf("%d Goroutines / %d CPUs", st.Goroutines, st.CPUs), Inline: true},
			{Name: "⏱ Uptime", Value: formatDuration(st.Uptime), Inline: true},
			{Name: "🏠 Guilds", Value: fmt.Sprint(st.Guilds), Inline: true},
			{Name: "👥 Miembros", Value: fmt.Sprint(st.Members), Inline: true},
			{Name: "🧩 Comandos / Eventos", Value: fmt.Sprintf("%d / %d", st.Commands, st.Handlers), Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: common.FooterText},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// formatDuration formats a time.Duration into a human-readable string
func formatDuration(dur time.Duration) string {
	days := int(dur.Hours() / 24)
	hours := int(dur.Hours()) % 24
	minutes := int(dur.Minutes()) % 60
	seconds := int(dur.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d días", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d horas", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d minutos", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d segundos", seconds))
	}

	return strings.Join(parts, ", ")
}
