// Package utils provides the /utils command group.
package utils

import (
	"github.com/PancyStudios/UselessBotGo/pkg/discord"
)

// DatabaseStatus reports the database connection state
type DatabaseStatus interface {
	GetStatus() (string, bool)
}

// Deps are the services /utils reports on. Nil fields show as unavailable.
type Deps struct {
	Database      DatabaseStatus
	ActivePlayers func() int
	MQTTConnected func() bool
}

type utilsCog struct {
	deps Deps
}

// RegisterUtilsCommands registers the utility commands as /utils subcommands
func RegisterUtilsCommands(client *discord.ExtendedClient, deps Deps) {
	u := &utilsCog{deps: deps}

	client.CommandHandler.RegisterGroup(
		"utils",
		"Comandos de utilidad",
		createPingCommand(),
		u.createStatusCommand(),
		createHelpCommand(),
		u.createStatsCommand(),
	)
}
