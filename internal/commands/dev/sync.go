package dev

import (
	"fmt"

	"github.com/PancyStudios/UselessBotGo/pkg/discord"
)

// createSyncCommand creates the /dev sync subcommand
func createSyncCommand() *discord.Command {
	return discord.NewCommand(
		"sync",
		"Vuelve a registrar los comandos globales en Discord",
		"dev",
		syncHandler,
	).AsDev()
}

// syncHandler handles the /dev sync command
func syncHandler(ctx *discord.CommandContext) error {
	if err := ctx.Defer(); err != nil {
		return err
	}
	if err := ctx.Client.CommandHandler.SyncCommands(); err != nil {
		return err
	}
	return ctx.Send(fmt.Sprintf("✅ %d comandos globales sincronizados.", len(ctx.Client.CommandHandler.GlobalCommands())))
}
