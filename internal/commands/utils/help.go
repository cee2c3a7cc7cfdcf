package utils

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PancyStudios/UselessBotGo/pkg/discord"
)

// createHelpCommand creates the /utils help subcommand
func createHelpCommand() *discord.Command {
	return discord.NewCommand(
		"help",
		"Muestra información de ayuda",
		"utils",
		helpHandler,
	)
}

// helpText lists the public commands grouped by category. Owner and dev
// commands are left out.
func helpText(commands map[string]*discord.Command) string {
	byCategory := make(map[string][]string)
	for name, cmd := range commands {
		if cmd.IsDev || cmd.IsOwnerOnly {
			continue
		}
		usage := "/" + strings.ReplaceAll(name, ".", " ")
		for _, opt := range cmd.Options {
			if opt.Required {
				usage += fmt.Sprintf(" <%s>", opt.Name)
			} else {
				usage += fmt.Sprintf(" [%s]", opt.Name)
			}
		}
		byCategory[cmd.Category] = append(byCategory[cmd.Category],
			fmt.Sprintf("• `%s` - %s", usage, cmd.Description))
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var sb strings.Builder
	sb.WriteString("📖 **Ayuda de UselessBot Go**\n")
	for _, category := range categories {
		lines := byCategory[category]
		sort.Strings(lines)
		sb.WriteString(fmt.Sprintf("\n**%s**\n%s\n", strings.ToUpper(category), strings.Join(lines, "\n")))
	}
	return sb.String()
}

// helpHandler handles the /utils help command
func helpHandler(ctx *discord.CommandContext) error {
	return ctx.ReplyEphemeral(helpText(ctx.Client.Commands.All()))
}
