// Package discord provides the Discord bot client and related structures.
// It wraps discordgo with additional functionality for command and event handling.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/PancyStudios/UselessBotGo/pkg/config"
	boterrors "github.com/PancyStudios/UselessBotGo/pkg/errors"
	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// commandTimeout bounds how long a handler may use its context
const commandTimeout = 30 * time.Second

func init() {
	discordgo.Logger = func(msgL int, caller int, format string, a ...interface{}) {
		msg := fmt.Sprintf(format, a...)
		switch msgL {
		case discordgo.LogError:
			logger.Error(msg, "DiscordGo")
		case discordgo.LogWarning:
			logger.Warn(msg, "DiscordGo")
		default:
			logger.Debug(msg, "DiscordGo")
		}
	}
}

// ExtendedClient wraps discordgo.Session with additional functionality
type ExtendedClient struct {
	Session        *discordgo.Session
	Commands       *CommandCollection
	CommandHandler *CommandHandler
	EventHandler   *EventHandler
	StartTime      time.Time
	mu             sync.RWMutex
	isReady        bool

	isOwner     func(userID string) bool
	fetchMember func(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
}

// ErrNoGuildState is returned when membership cannot be checked because no guilds are cached
var ErrNoGuildState = errors.New("guild state unavailable")

// CommandCollection holds registered commands
type CommandCollection struct {
	commands map[string]*Command
	mu       sync.RWMutex
}

// NewCommandCollection creates a new CommandCollection
func NewCommandCollection() *CommandCollection {
	return &CommandCollection{
		commands: make(map[string]*Command),
	}
}

// Set adds or updates a command
func (cc *CommandCollection) Set(name string, cmd *Command) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.commands[name] = cmd
}

// Get retrieves a command by name
func (cc *CommandCollection) Get(name string) (*Command, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	cmd, ok := cc.commands[name]
	return cmd, ok
}

// Size returns the number of commands
func (cc *CommandCollection) Size() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.commands)
}

// All returns all commands
func (cc *CommandCollection) All() map[string]*Command {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	result := make(map[string]*Command)
	for k, v := range cc.commands {
		result[k] = v
	}
	return result
}

var (
	client *ExtendedClient
	once   sync.Once
)

// Init initializes the global Discord client
func Init(token string) (*ExtendedClient, error) {
	var err error
	once.Do(func() {
		client, err = NewClient(token)
	})
	return client, err
}

// Get returns the global Discord client
func Get() *ExtendedClient {
	return client
}

// NewClient creates a new ExtendedClient
func NewClient(token string) (*ExtendedClient, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates

	session.ShardCount = 1
	session.SyncEvents = false
	session.StateEnabled = true
	session.LogLevel = discordgo.LogWarning

	c := &ExtendedClient{
		Session:  session,
		Commands: NewCommandCollection(),
		isOwner: func(userID string) bool {
			return config.Get().IsOwner(userID)
		},
	}

	c.CommandHandler = NewCommandHandler(c)
	c.EventHandler = NewEventHandler(c)

	return c, nil
}

// Start initializes and starts the bot
func (c *ExtendedClient) Start() error {
	if err := c.CommandHandler.LoadCommands(); err != nil {
		logger.Error("Failed to load commands: "+err.Error(), "Client")
		return err
	}

	if err := c.EventHandler.LoadEvents(); err != nil {
		logger.Error("Failed to load events: "+err.Error(), "Client")
		return err
	}

	c.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		c.mu.Lock()
		c.isReady = true
		c.mu.Unlock()

		logger.Success("Bot conectado como: "+r.User.Username, "Client")

		c.CommandHandler.RegisterCommands()
	})

	c.Session.AddHandler(c.handleInteraction)

	c.StartTime = time.Now()

	return c.Session.Open()
}

// commandName builds the lookup key, "group.sub" or "group.subgroup.sub"
func commandName(data discordgo.ApplicationCommandInteractionData) string {
	name := data.Name
	if len(data.Options) == 0 {
		return name
	}

	opt := data.Options[0]
	switch opt.Type {
	case discordgo.ApplicationCommandOptionSubCommandGroup:
		if len(opt.Options) > 0 {
			return name + "." + opt.Name + "." + opt.Options[0].Name
		}
	case discordgo.ApplicationCommandOptionSubCommand:
		return name + "." + opt.Name
	}
	return name
}

// handleInteraction routes incoming Discord interactions
func (c *ExtendedClient) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommandAutocomplete, discordgo.InteractionApplicationCommand:
	default:
		return
	}

	name := commandName(i.ApplicationCommandData())
	cmd, ok := c.Commands.Get(name)
	if !ok {
		logger.Warn("Command not found: "+name, "Client")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmdCtx := &CommandContext{
		Session:     s,
		Interaction: i,
		Client:      c,
		Ctx:         ctx,
	}

	if i.Type == discordgo.InteractionApplicationCommandAutocomplete {
		if cmd.AutoComplete != nil {
			defer boterrors.RecoverMiddleware()()
			cmd.AutoComplete(cmdCtx)
		}
		return
	}

	c.execute(name, cmd, cmdCtx)
}

// execute checks the gates, runs the handler and maps its error
func (c *ExtendedClient) execute(name string, cmd *Command, ctx *CommandContext) {
	defer boterrors.RecoverMiddleware()()

	err := c.checkGates(cmd, ctx)
	if err == nil {
		err = cmd.Run(ctx)
	}
	if err == nil {
		return
	}

	if cmd.OnError != nil && cmd.OnError(ctx, err) {
		return
	}

	msg, handled := boterrors.UserMessage(err)
	if !handled {
		logger.Error("Error executing command "+name+": "+err.Error(), "Client")
		if h := boterrors.Get(); h != nil {
			h.IncrementError()
		}
	}
	if sendErr := ctx.Send(msg); sendErr != nil {
		logger.Warn("No se pudo responder al comando "+name+": "+sendErr.Error(), "Client")
	}
}

// checkGates enforces owner, guild, permission and voice requirements
func (c *ExtendedClient) checkGates(cmd *Command, ctx *CommandContext) error {
	user := ctx.User()
	if user == nil {
		return boterrors.ErrGuildOnly
	}

	if (cmd.IsOwnerOnly || cmd.IsDev) && (c.isOwner == nil || !c.isOwner(user.ID)) {
		return boterrors.ErrOwnerOnly
	}

	needsGuild := cmd.InVoiceChannel || cmd.UserPermissions != 0
	if needsGuild && ctx.Interaction.GuildID == "" {
		return boterrors.ErrGuildOnly
	}

	if cmd.UserPermissions != 0 && !ctx.HasPermission(cmd.UserPermissions) {
		return boterrors.ErrMissingPermissions
	}

	if cmd.InVoiceChannel && ctx.VoiceChannelID() == "" {
		return boterrors.ErrNotInVoice
	}

	return nil
}

// Stop stops the bot and closes the session
func (c *ExtendedClient) Stop() error {
	c.mu.Lock()
	c.isReady = false
	c.mu.Unlock()

	if c.Session != nil {
		return c.Session.Close()
	}
	return nil
}

// IsReady returns true if the bot is ready
func (c *ExtendedClient) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReady
}

// GuildCount returns the number of guilds the bot is in
func (c *ExtendedClient) GuildCount() int {
	if c.Session == nil || c.Session.State == nil {
		return 0
	}
	c.Session.State.RLock()
	defer c.Session.State.RUnlock()
	return len(c.Session.State.Guilds)
}

// IsMember reports whether the user belongs to any guild the bot is in.
// The state cache is checked first; misses are confirmed over REST so
// members that were never cached are not reported as gone.
func (c *ExtendedClient) IsMember(ctx context.Context, userID string) (bool, error) {
	if c.Session == nil || c.Session.State == nil {
		return false, ErrNoGuildState
	}
	c.Session.State.RLock()
	guildIDs := make([]string, 0, len(c.Session.State.Guilds))
	for _, g := range c.Session.State.Guilds {
		guildIDs = append(guildIDs, g.ID)
	}
	c.Session.State.RUnlock()

	if len(guildIDs) == 0 {
		return false, ErrNoGuildState
	}

	for _, guildID := range guildIDs {
		if _, err := c.Session.State.Member(guildID, userID); err == nil {
			return true, nil
		}
	}

	fetch := c.fetchMember
	if fetch == nil {
		fetch = c.restMember
	}
	for _, guildID := range guildIDs {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		member, err := fetch(ctx, guildID, userID)
		if err == nil && member != nil {
			return true, nil
		}
		if err != nil && !isUnknownMember(err) {
			return false, fmt.Errorf("member %s in guild %s: %w", userID, guildID, err)
		}
	}
	return false, nil
}

func (c *ExtendedClient) restMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	return c.Session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
}

// isUnknownMember reports whether Discord answered that the user is not in the guild
func isUnknownMember(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

// GetConfig returns the bot configuration
func (c *ExtendedClient) GetConfig() *config.Config {
	return config.Get()
}

// BotUser returns the bot's own user, nil before Ready
func (c *ExtendedClient) BotUser() *discordgo.User {
	if c.Session == nil || c.Session.State == nil {
		return nil
	}
	return c.Session.State.User
}
