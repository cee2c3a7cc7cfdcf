package events

import (
	"fmt"

	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// onReady is called when the bot successfully connects to Discord
func (h *handlers) onReady(s *discordgo.Session, r *discordgo.Ready) {
	logger.Success(fmt.Sprintf("✅ Bot conectado: %s", r.User.Username), "Ready")
	logger.Info(fmt.Sprintf("📊 Conectado a %d servidores", len(r.Guilds)), "Ready")

	if err := s.UpdateGameStatus(0, "🎵 /play | 💰 /bank"); err != nil {
		logger.Error(fmt.Sprintf("Error estableciendo estado: %v", err), "Ready")
	}

	if h.deps.OnReady != nil {
		h.deps.OnReady(s, r)
	}
}
