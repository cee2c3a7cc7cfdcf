// Package dev provides the /dev commands, registered only in the dev guild.
package dev

import (
	"github.com/PancyStudios/UselessBotGo/pkg/discord"
)

// Deps are the services exposed to /dev eval. Nil entries are skipped.
type Deps map[string]interface{}

// Register registers the dev commands as /dev subcommands
func Register(client *discord.ExtendedClient, deps Deps) {
	client.CommandHandler.RegisterGroup(
		"dev",
		"Comandos de desarrollo",
		createEvalCommand(deps),
		createSyncCommand(),
	)
}
