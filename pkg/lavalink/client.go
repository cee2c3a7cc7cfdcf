// Package lavalink provides a Lavalink v4 client for music playback.
// It connects to Lavalink nodes, loads tracks and keeps one Player with its
// own queue per guild.
package lavalink

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/PancyStudios/UselessBotGo/pkg/mqtt"
	"github.com/bwmarrin/discordgo"
)

// voiceState collects the two halves Lavalink needs to join a channel
type voiceState struct {
	sessionID string
	token     string
	endpoint  string
}

// LavalinkClient manages the connection to Lavalink and the guild players
type LavalinkClient struct {
	session         *discordgo.Session
	nodes           []*Node
	players         map[string]*Player
	voice           map[string]*voiceState
	mu              sync.RWMutex
	defaultPlatform string
	publisher       mqtt.Publisher
}

var (
	lavalinkClient *LavalinkClient
	once           sync.Once
)

// Init initializes the global Lavalink client
func Init(session *discordgo.Session, nodeConfigs []NodeConfig, publisher mqtt.Publisher) *LavalinkClient {
	once.Do(func() {
		lavalinkClient = NewLavalinkClient(session, nodeConfigs, publisher)
	})
	return lavalinkClient
}

// Get returns the global Lavalink client
func Get() *LavalinkClient {
	return lavalinkClient
}

// NewLavalinkClient creates a new Lavalink client and registers the voice
// handlers on the session
func NewLavalinkClient(session *discordgo.Session, nodeConfigs []NodeConfig, publisher mqtt.Publisher) *LavalinkClient {
	logger.Debug("Initializing Lavalink Client", "Lavalink")

	client := &LavalinkClient{
		session:         session,
		nodes:           make([]*Node, 0, len(nodeConfigs)),
		players:         make(map[string]*Player),
		voice:           make(map[string]*voiceState),
		defaultPlatform: "ytsearch",
		publisher:       publisher,
	}

	for _, config := range nodeConfigs {
		client.nodes = append(client.nodes, newNode(config, client))
	}

	if session != nil {
		session.AddHandler(client.voiceStateUpdate)
		session.AddHandler(client.voiceServerUpdate)
	}

	return client
}

// Connect connects to all Lavalink nodes in the background
func (c *LavalinkClient) Connect() error {
	if c.session == nil || c.session.State == nil || c.session.State.User == nil {
		return fmt.Errorf("discord session not ready")
	}
	userID := c.session.State.User.ID
	for _, node := range c.nodes {
		go node.connect(userID)
	}
	return nil
}

func (c *LavalinkClient) node() (*Node, error) {
	for _, node := range c.nodes {
		if node.ready() {
			return node, nil
		}
	}
	return nil, ErrNoNodes
}

// Load resolves an identifier. Plain text is searched on the default
// platform; URLs are passed through.
func (c *LavalinkClient) Load(ctx context.Context, query string) (*LoadResult, error) {
	node, err := c.node()
	if err != nil {
		return nil, err
	}

	identifier := query
	if !strings.HasPrefix(query, "http://") && !strings.HasPrefix(query, "https://") {
		identifier = fmt.Sprintf("%s:%s", c.defaultPlatform, query)
	}

	var result LoadResult
	path := "/v4/loadtracks?identifier=" + url.QueryEscape(identifier)
	if err := node.rest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPlayer returns the guild's player, or nil
func (c *LavalinkClient) GetPlayer(guildID string) *Player {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.players[guildID]
}

// CreatePlayer returns the guild's player, creating it if needed
func (c *LavalinkClient) CreatePlayer(guildID string) *Player {
	c.mu.Lock()
	defer c.mu.Unlock()

	if player, exists := c.players[guildID]; exists {
		return player
	}

	player := NewPlayer(guildID, c, c.publisher)
	c.players[guildID] = player
	return player
}

// Players returns the guild IDs with an active player
func (c *LavalinkClient) Players() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.players))
	for id := range c.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Join connects the bot to a voice channel. Lavalink takes over the audio
// once the voice events arrive.
func (c *LavalinkClient) Join(guildID, voiceChannelID, textChannelID string) (*Player, error) {
	player := c.CreatePlayer(guildID)

	player.mu.Lock()
	sameChannel := player.VoiceChannelID == voiceChannelID
	player.VoiceChannelID = voiceChannelID
	player.TextChannelID = textChannelID
	player.mu.Unlock()

	if !sameChannel {
		if err := c.session.ChannelVoiceJoinManual(guildID, voiceChannelID, false, true); err != nil {
			return nil, fmt.Errorf("error joining voice channel: %w", err)
		}
	}
	return player, nil
}

// Leave destroys the guild's player and disconnects from voice
func (c *LavalinkClient) Leave(guildID string) {
	c.mu.Lock()
	player, exists := c.players[guildID]
	delete(c.players, guildID)
	delete(c.voice, guildID)
	c.mu.Unlock()

	if exists {
		player.Destroy()
	}

	if c.session != nil {
		if err := c.session.ChannelVoiceJoinManual(guildID, "", false, false); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo salir del canal de voz en %s: %v", guildID, err), "Lavalink")
		}
	}
}

// PlayTrack implements Backend
func (c *LavalinkClient) PlayTrack(guildID string, track *Track) error {
	node, err := c.node()
	if err != nil {
		return err
	}
	paused := false
	return node.updatePlayer(guildID, playerUpdate{
		Track:  &trackUpdate{Encoded: &track.Encoded},
		Paused: &paused,
	})
}

// StopTrack implements Backend
func (c *LavalinkClient) StopTrack(guildID string) error {
	node, err := c.node()
	if err != nil {
		return err
	}
	return node.updatePlayer(guildID, playerUpdate{Track: &trackUpdate{Encoded: nil}})
}

// SetPaused implements Backend
func (c *LavalinkClient) SetPaused(guildID string, paused bool) error {
	node, err := c.node()
	if err != nil {
		return err
	}
	return node.updatePlayer(guildID, playerUpdate{Paused: &paused})
}

// SetVolume implements Backend
func (c *LavalinkClient) SetVolume(guildID string, volume int) error {
	node, err := c.node()
	if err != nil {
		return err
	}
	return node.updatePlayer(guildID, playerUpdate{Volume: &volume})
}

// DestroyPlayer implements Backend
func (c *LavalinkClient) DestroyPlayer(guildID string) error {
	node, err := c.node()
	if err != nil {
		return err
	}
	return node.destroyPlayer(guildID)
}

func (c *LavalinkClient) handlePlayerUpdate(guildID string, position int64) {
	if player := c.GetPlayer(guildID); player != nil {
		player.setPosition(position)
	}
}

func (c *LavalinkClient) handleEvent(msg *wsMessage) {
	player := c.GetPlayer(msg.GuildID)

	switch msg.Type {
	case "TrackStartEvent":
	case "TrackEndEvent":
		// "replaced" means a new track already took over
		if player != nil && msg.Reason != "replaced" {
			player.TrackEnded()
		}
	case "TrackExceptionEvent":
		reason := ""
		if msg.Exception != nil {
			reason = msg.Exception.Message
		}
		logger.Error(fmt.Sprintf("Track exception in guild %s: %s", msg.GuildID, reason), "Lavalink")
	case "TrackStuckEvent":
		logger.Warn(fmt.Sprintf("Track stuck in guild %s", msg.GuildID), "Lavalink")
		if player != nil {
			if _, err := player.Skip(); err != nil {
				logger.Warn(fmt.Sprintf("No se pudo saltar la canción atascada: %v", err), "Lavalink")
			}
		}
	case "WebSocketClosedEvent":
		logger.Warn(fmt.Sprintf("WebSocket closed for guild %s", msg.GuildID), "Lavalink")
	}
}

func (c *LavalinkClient) voiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if s.State == nil || s.State.User == nil || v.UserID != s.State.User.ID {
		return
	}
	if v.ChannelID == "" {
		return
	}

	c.mu.Lock()
	vs := c.voiceFor(v.GuildID)
	vs.sessionID = v.SessionID
	c.mu.Unlock()

	c.sendVoice(v.GuildID)
}

func (c *LavalinkClient) voiceServerUpdate(_ *discordgo.Session, v *discordgo.VoiceServerUpdate) {
	c.mu.Lock()
	vs := c.voiceFor(v.GuildID)
	vs.token = v.Token
	vs.endpoint = v.Endpoint
	c.mu.Unlock()

	c.sendVoice(v.GuildID)
}

// voiceFor returns the guild's voice state. Callers hold c.mu.
func (c *LavalinkClient) voiceFor(guildID string) *voiceState {
	vs, ok := c.voice[guildID]
	if !ok {
		vs = &voiceState{}
		c.voice[guildID] = vs
	}
	return vs
}

// sendVoice forwards the voice credentials once both halves are known
func (c *LavalinkClient) sendVoice(guildID string) {
	c.mu.RLock()
	vs, ok := c.voice[guildID]
	var update voiceUpdate
	if ok {
		update = voiceUpdate{Token: vs.token, Endpoint: vs.endpoint, SessionID: vs.sessionID}
	}
	c.mu.RUnlock()

	if !ok || update.Token == "" || update.SessionID == "" || update.Endpoint == "" {
		return
	}

	node, err := c.node()
	if err != nil {
		logger.Warn(fmt.Sprintf("Sin nodos para enviar la voz de %s", guildID), "Lavalink")
		return
	}
	if err := node.updatePlayer(guildID, playerUpdate{Voice: &update}); err != nil {
		logger.Error(fmt.Sprintf("Error enviando voiceUpdate a Lavalink: %v", err), "Lavalink")
	}
}

// Disconnect destroys every player and closes the node connections
func (c *LavalinkClient) Disconnect() {
	for _, guildID := range c.Players() {
		c.Leave(guildID)
	}
	for _, node := range c.nodes {
		node.close()
	}
	logger.System("Lavalink client desconectado", "Lavalink")
}
