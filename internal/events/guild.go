package events

import (
	"fmt"
	"time"

	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// joinWindow separates real joins from the GuildCreate burst sent on connect
const joinWindow = 10 * time.Second

// onGuildCreate is called when the bot joins a server
func (h *handlers) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.JoinedAt.Before(time.Now().Add(-joinWindow)) {
		return
	}

	logger.Info(fmt.Sprintf("➕ Bot agregado a servidor: %s (ID: %s)", g.Name, g.ID), "Guild")

	if g.SystemChannelID == "" {
		return
	}

	welcome := &discordgo.MessageEmbed{
		Title:       "¡Gracias por agregarme! 🎉",
		Description: "Hola, soy **UselessBot**. Usa `/utils help` para ver todos mis comandos.",
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🎵 Música", Value: "Reproduce música con `/play`", Inline: true},
			{Name: "💰 Banco", Value: "Reclama créditos con `/bank free`", Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if _, err := s.ChannelMessageSendEmbed(g.SystemChannelID, welcome); err != nil {
		logger.Error(fmt.Sprintf("Error enviando mensaje de bienvenida: %v", err), "Guild")
	}
}

// onGuildDelete is called when the bot is removed from a server or the
// server becomes unavailable
func (h *handlers) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		logger.Warn(fmt.Sprintf("⚠️ Servidor no disponible: %s", g.ID), "Guild")
		return
	}

	logger.Info(fmt.Sprintf("➖ Bot removido del servidor ID: %s", g.ID), "Guild")
	if h.deps.Music != nil && h.deps.Music.GetPlayer(g.ID) != nil {
		h.deps.Music.Leave(g.ID)
	}
}
