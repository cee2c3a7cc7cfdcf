package discord

import (
	"fmt"
	"sync"

	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// EventHandler keeps track of the handlers added to the session
type EventHandler struct {
	client *ExtendedClient
	events []string
	mu     sync.RWMutex
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(client *ExtendedClient) *EventHandler {
	return &EventHandler{
		client: client,
		events: make([]string, 0),
	}
}

// LoadEvents reports the events registered programmatically so far
func (eh *EventHandler) LoadEvents() error {
	eh.mu.RLock()
	defer eh.mu.RUnlock()
	logger.System(fmt.Sprintf("Eventos cargados: %d", len(eh.events)), "EventHandler")
	return nil
}

// RegisterEvent adds an event handler to the Discord session
func (eh *EventHandler) RegisterEvent(name string, handler interface{}) {
	eh.client.Session.AddHandler(handler)
	eh.mu.Lock()
	eh.events = append(eh.events, name)
	eh.mu.Unlock()
	logger.Debug(fmt.Sprintf("Evento '%s' registrado", name), "EventHandler")
}

// Events returns the names of the registered events
func (eh *EventHandler) Events() []string {
	eh.mu.RLock()
	defer eh.mu.RUnlock()
	return append([]string(nil), eh.events...)
}

// The On* helpers convert named handler types back to plain funcs because
// discordgo matches handlers by their exact func type.

// ReadyHandler is called when the bot is ready
type ReadyHandler func(s *discordgo.Session, r *discordgo.Ready)

// GuildCreateHandler is called when the bot joins a guild
type GuildCreateHandler func(s *discordgo.Session, g *discordgo.GuildCreate)

// GuildDeleteHandler is called when the bot leaves a guild
type GuildDeleteHandler func(s *discordgo.Session, g *discordgo.GuildDelete)

// VoiceStateUpdateHandler is called when a voice state is updated
type VoiceStateUpdateHandler func(s *discordgo.Session, v *discordgo.VoiceStateUpdate)

// DisconnectHandler is called when the gateway connection drops
type DisconnectHandler func(s *discordgo.Session, d *discordgo.Disconnect)

// ResumedHandler is called when the gateway session resumes
type ResumedHandler func(s *discordgo.Session, r *discordgo.Resumed)

// OnReady registers a ready event handler
func (eh *EventHandler) OnReady(handler ReadyHandler) {
	eh.RegisterEvent("Ready", (func(*discordgo.Session, *discordgo.Ready))(handler))
}

// OnGuildCreate registers a guild create event handler
func (eh *EventHandler) OnGuildCreate(handler GuildCreateHandler) {
	eh.RegisterEvent("GuildCreate", (func(*discordgo.Session, *discordgo.GuildCreate))(handler))
}

// OnGuildDelete registers a guild delete event handler
func (eh *EventHandler) OnGuildDelete(handler GuildDeleteHandler) {
	eh.RegisterEvent("GuildDelete", (func(*discordgo.Session, *discordgo.GuildDelete))(handler))
}

// OnVoiceStateUpdate registers a voice state update event handler
func (eh *EventHandler) OnVoiceStateUpdate(handler VoiceStateUpdateHandler) {
	eh.RegisterEvent("VoiceStateUpdate", (func(*discordgo.Session, *discordgo.VoiceStateUpdate))(handler))
}

// OnDisconnect registers a gateway disconnect handler
func (eh *EventHandler) OnDisconnect(handler DisconnectHandler) {
	eh.RegisterEvent("Disconnect", (func(*discordgo.Session, *discordgo.Disconnect))(handler))
}

// OnResumed registers a gateway resume handler
func (eh *EventHandler) OnResumed(handler ResumedHandler) {
	eh.RegisterEvent("Resumed", (func(*discordgo.Session, *discordgo.Resumed))(handler))
}
