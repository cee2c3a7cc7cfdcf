package events

import (
	"fmt"

	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// aloneIn reports whether no human user other than the bot remains in the
// voice channel
func aloneIn(state *discordgo.State, guildID, channelID, botID string) bool {
	guild, err := state.Guild(guildID)
	if err != nil {
		return false
	}

	state.RLock()
	defer state.RUnlock()

	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID || vs.UserID == botID {
			continue
		}
		if vs.Member != nil && vs.Member.User != nil && vs.Member.User.Bot {
			continue
		}
		return false
	}
	return true
}

// onVoiceStateUpdate destroys the guild player when the bot is
// disconnected or left alone in its channel
func (h *handlers) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if h.deps.Music == nil || s.State == nil || s.State.User == nil {
		return
	}

	player := h.deps.Music.GetPlayer(v.GuildID)
	if player == nil {
		return
	}

	botID := s.State.User.ID
	if v.UserID == botID {
		if v.ChannelID == "" {
			logger.Info(fmt.Sprintf("🔇 Desconectado del canal de voz en %s", v.GuildID), "Voice")
			h.deps.Music.Leave(v.GuildID)
		}
		return
	}

	channelID := player.VoiceChannel()
	if v.BeforeUpdate == nil || v.BeforeUpdate.ChannelID == "" || v.BeforeUpdate.ChannelID != channelID {
		return
	}
	if aloneIn(s.State, v.GuildID, channelID, botID) {
		logger.Info(fmt.Sprintf("👋 Canal de voz vacío en %s, saliendo", v.GuildID), "Voice")
		h.deps.Music.Leave(v.GuildID)
	}
}
