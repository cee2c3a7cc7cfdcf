package discord

import (
	"fmt"

	"github.com/PancyStudios/UselessBotGo/pkg/config"
	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// CommandHandler manages command loading and registration
type CommandHandler struct {
	client           *ExtendedClient
	slashCommands    []*discordgo.ApplicationCommand
	slashCommandsDev []*discordgo.ApplicationCommand
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(client *ExtendedClient) *CommandHandler {
	return &CommandHandler{
		client:           client,
		slashCommands:    make([]*discordgo.ApplicationCommand, 0),
		slashCommandsDev: make([]*discordgo.ApplicationCommand, 0),
	}
}

// LoadCommands reports the commands registered programmatically so far
func (ch *CommandHandler) LoadCommands() error {
	logger.System(fmt.Sprintf("Comandos cargados: %d globales, %d de desarrollo (%d handlers).",
		len(ch.slashCommands), len(ch.slashCommandsDev), ch.client.Commands.Size()), "CommandHandler")
	return nil
}

// RegisterCommand adds a top-level command to the handler
func (ch *CommandHandler) RegisterCommand(cmd *Command) {
	ch.client.Commands.Set(cmd.Name, cmd)

	appCmd := cmd.ToApplicationCommand()

	if cmd.IsDev {
		ch.slashCommandsDev = append(ch.slashCommandsDev, appCmd)
	} else {
		ch.slashCommands = append(ch.slashCommands, appCmd)
	}

	logger.Debug("Comando registrado: "+cmd.Name, "CommandHandler")
}

// BuildCommandGroup creates a command group with subcommands, registering
// each one under "group.sub"
func (ch *CommandHandler) BuildCommandGroup(name, description string, subcommands ...*Command) *discordgo.ApplicationCommand {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands))

	for _, cmd := range subcommands {
		fullName := name + "." + cmd.Name
		ch.client.Commands.Set(fullName, cmd)

		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        cmd.Name,
			Description: cmd.Description,
			Options:     cmd.Options,
		})
	}

	return &discordgo.ApplicationCommand{
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// RegisterGroup builds a command group and queues it for registration.
// Groups made only of dev commands go to the dev guild.
func (ch *CommandHandler) RegisterGroup(name, description string, subcommands ...*Command) {
	group := ch.BuildCommandGroup(name, description, subcommands...)

	dev := len(subcommands) > 0
	for _, cmd := range subcommands {
		dev = dev && cmd.IsDev
	}

	if dev {
		ch.AddDevCommand(group)
	} else {
		ch.AddGlobalCommand(group)
	}
	logger.Debug(fmt.Sprintf("Grupo registrado: %s (%d subcomandos)", name, len(subcommands)), "CommandHandler")
}

// AddGlobalCommand adds a command to the global command list
func (ch *CommandHandler) AddGlobalCommand(cmd *discordgo.ApplicationCommand) {
	ch.slashCommands = append(ch.slashCommands, cmd)
}

// AddDevCommand adds a command to the dev command list
func (ch *CommandHandler) AddDevCommand(cmd *discordgo.ApplicationCommand) {
	ch.slashCommandsDev = append(ch.slashCommandsDev, cmd)
}

// GlobalCommands returns the queued global application commands
func (ch *CommandHandler) GlobalCommands() []*discordgo.ApplicationCommand {
	return ch.slashCommands
}

// DevCommands returns the queued dev guild application commands
func (ch *CommandHandler) DevCommands() []*discordgo.ApplicationCommand {
	return ch.slashCommandsDev
}

// RegisterCommands registers all slash commands with Discord
func (ch *CommandHandler) RegisterCommands() {
	cfg := config.Get()

	logger.Info("🔄 Registrando comandos globales...", "CommandHandler")
	if err := ch.overwrite("", ch.slashCommands); err != nil {
		logger.Error("Error registrando comandos globales: "+err.Error(), "CommandHandler")
	} else {
		logger.Success("✅ Comandos globales registrados.", "CommandHandler")
	}

	if cfg.DevGuildID != "" && len(ch.slashCommandsDev) > 0 {
		logger.Info("🔄 Registrando comandos de desarrollo en el servidor "+cfg.DevGuildID+"...", "CommandHandler")
		if err := ch.overwrite(cfg.DevGuildID, ch.slashCommandsDev); err != nil {
			logger.Error("Error registrando comandos de desarrollo: "+err.Error(), "CommandHandler")
			return
		}
		logger.Success("✅ Comandos de desarrollo registrados.", "CommandHandler")
	}
}

// overwrite replaces every command in scope, removing stale ones
func (ch *CommandHandler) overwrite(guildID string, cmds []*discordgo.ApplicationCommand) error {
	_, err := ch.client.Session.ApplicationCommandBulkOverwrite(ch.client.Session.State.User.ID, guildID, cmds)
	return err
}

// SyncCommands overwrites the global commands with the current set
func (ch *CommandHandler) SyncCommands() error {
	existing, err := ch.ListGlobalCommands()
	if err != nil {
		return err
	}

	current := make(map[string]bool, len(ch.slashCommands))
	for _, cmd := range ch.slashCommands {
		current[cmd.Name] = true
	}
	for _, cmd := range existing {
		if !current[cmd.Name] {
			logger.Info("Eliminando comando obsoleto: "+cmd.Name, "CommandHandler")
		}
	}

	return ch.overwrite("", ch.slashCommands)
}

// SyncGuildCommands overwrites a guild's commands with the dev commands
func (ch *CommandHandler) SyncGuildCommands(guildID string) error {
	return ch.overwrite(guildID, ch.slashCommandsDev)
}

// ListGlobalCommands returns the global commands registered in Discord
func (ch *CommandHandler) ListGlobalCommands() ([]*discordgo.ApplicationCommand, error) {
	return ch.client.Session.ApplicationCommands(ch.client.Session.State.User.ID, "")
}

// ListGuildCommands returns the guild commands registered in Discord
func (ch *CommandHandler) ListGuildCommands(guildID string) ([]*discordgo.ApplicationCommand, error) {
	return ch.client.Session.ApplicationCommands(ch.client.Session.State.User.ID, guildID)
}

// UnregisterCommands removes all global commands from Discord
func (ch *CommandHandler) UnregisterCommands() error {
	return ch.unregister("")
}

// UnregisterGuildCommands removes all commands of a guild from Discord
func (ch *CommandHandler) UnregisterGuildCommands(guildID string) error {
	return ch.unregister(guildID)
}

func (ch *CommandHandler) unregister(guildID string) error {
	appID := ch.client.Session.State.User.ID

	commands, err := ch.client.Session.ApplicationCommands(appID, guildID)
	if err != nil {
		return err
	}

	for _, cmd := range commands {
		if err := ch.client.Session.ApplicationCommandDelete(appID, guildID, cmd.ID); err != nil {
			logger.Error("Error eliminando comando "+cmd.Name+": "+err.Error(), "CommandHandler")
		}
	}

	logger.Success(fmt.Sprintf("%d comandos eliminados.", len(commands)), "CommandHandler")
	return nil
}
