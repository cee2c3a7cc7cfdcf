package utils

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/PancyStudios/UselessBotGo/pkg/config"
	"github.com/PancyStudios/UselessBotGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// createStatsCommand creates the /utils stats subcommand
func (u *utilsCog) createStatsCommand() *discord.Command {
	return discord.NewCommand(
		"stats",
		"Muestra estadísticas del bot",
		"utils",
		u.statsHandler,
	)
}

// statsHandler handles the /utils stats command
func (u *utilsCog) statsHandler(ctx *discord.CommandContext) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	memberCount := 0
	ctx.Session.State.RLock()
	for _, guild := range ctx.Session.State.Guilds {
		memberCount += guild.MemberCount
	}
	ctx.Session.State.RUnlock()

	players := 0
	if u.deps.ActivePlayers != nil {
		players = u.deps.ActivePlayers()
	}

	embed := &discordgo.MessageEmbed{
		Title: "📊 Estadísticas del Bot",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🤖 Versión del Bot", Value: config.Version, Inline: true},
			{Name: "🐹 Versión de Go", Value: strings.TrimPrefix(runtime.Version(), "go"), Inline: true},
			{Name: "📚 Versión de DiscordGo", Value: discordgo.VERSION, Inline: true},
			{Name: "🖥 Uso de RAM", Value: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024), Inline: true},
			{Name: "⚙️ Goroutines", Value: fmt.Sprintf("%d / %d CPUs", runtime.NumGoroutine(), runtime.NumCPU()), Inline: true},
			{Name: "⏱ Uptime", Value: formatUptime(time.Since(ctx.Client.StartTime)), Inline: true},
			{Name: "🏠 Guilds", Value: fmt.Sprintf("%d", ctx.Client.GuildCount()), Inline: true},
			{Name: "👥 Miembros", Value: fmt.Sprintf("%d", memberCount), Inline: true},
			{Name: "🎵 Reproductores", Value: fmt.Sprintf("%d", players), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if user := ctx.Client.BotUser(); user != nil {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "UselessBot Go", IconURL: user.AvatarURL("")}
	}

	return ctx.ReplyEmbed(embed)
}

// formatUptime formats a duration as days, hours, minutes and seconds,
// skipping zero parts
func formatUptime(dur time.Duration) string {
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
