// Package commands wires every command category into the client.
// Commands are organized in subdirectories by category.
package commands

import (
	"github.com/PancyStudios/UselessBotGo/internal/commands/bank"
	"github.com/PancyStudios/UselessBotGo/internal/commands/dev"
	"github.com/PancyStudios/UselessBotGo/internal/commands/music"
	"github.com/PancyStudios/UselessBotGo/internal/commands/utils"
	"github.com/PancyStudios/UselessBotGo/pkg/discord"
)

// Deps carries the cogs and the services the command groups report on
type Deps struct {
	Bank  *bank.Cog
	Music *music.Cog
	Utils utils.Deps
	Dev   dev.Deps
}

// RegisterAll registers all commands with the Discord client
func RegisterAll(client *discord.ExtendedClient, deps Deps) {
	// /utils ping, status, help, stats
	utils.RegisterUtilsCommands(client, deps.Utils)

	// /bank status, free, add, remove, move, cleanup, reset
	if deps.Bank != nil {
		deps.Bank.Register(client)
	}

	// /play, /skip, /queue, /remove, /loop, /repeat, /pause, /stop, /volume, /nowplaying
	if deps.Music != nil {
		deps.Music.Register(client)
	}

	// /dev eval, sync (dev guild only)
	dev.Register(client, deps.Dev)
}
