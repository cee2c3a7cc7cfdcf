// Package events provides a registry for organizing bot events.
// Events are organized by category (ready, guild, voice, shard).
package events

import (
	"github.com/PancyStudios/UselessBotGo/pkg/discord"
	"github.com/PancyStudios/UselessBotGo/pkg/lavalink"
	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// Music is what the events need to tear down guild players
type Music interface {
	GetPlayer(guildID string) *lavalink.Player
	Leave(guildID string)
}

// Deps are the services the event handlers act on
type Deps struct {
	// Music may be nil when Lavalink is not configured
	Music Music
	// OnReady runs after the ready handler, once the bot user is known
	OnReady func(s *discordgo.Session, r *discordgo.Ready)
}

type handlers struct {
	deps Deps
}

// RegisterAll registers all events with the Discord client
func RegisterAll(client *discord.ExtendedClient, deps Deps) {
	logger.System("📋 Registrando eventos del bot...", "Events")

	h := &handlers{deps: deps}

	// Ready event (bot startup)
	client.EventHandler.OnReady(h.onReady)

	// Guild events (server join/leave)
	client.EventHandler.OnGuildCreate(h.onGuildCreate)
	client.EventHandler.OnGuildDelete(h.onGuildDelete)

	// Voice events (players follow the bot's voice connection)
	client.EventHandler.OnVoiceStateUpdate(h.onVoiceStateUpdate)

	// Gateway connection events
	client.EventHandler.OnDisconnect(onShardDisconnect)
	client.EventHandler.OnResumed(onShardResumed)

	logger.Success("✅ Todos los eventos registrados correctamente", "Events")
}
