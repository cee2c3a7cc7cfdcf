// Command sync-commands reconciles UselessBot's slash commands with Discord
// without starting the bot.
//
// The global scope holds /bank, /music and the utility commands. The dev
// scope holds the owner commands and lives in one guild, devGuildId by default.
//
// Usage:
//
//	go run ./cmd/sync-commands [-scope global|dev|all] [-guild id] [-list|-plan|-clean]
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/PancyStudios/UselessBotGo/internal/commands"
	bankcmd "github.com/PancyStudios/UselessBotGo/internal/commands/bank"
	"github.com/PancyStudios/UselessBotGo/internal/commands/music"
	"github.com/PancyStudios/UselessBotGo/pkg/bank"
	"github.com/PancyStudios/UselessBotGo/pkg/config"
	"github.com/PancyStudios/UselessBotGo/pkg/discord"
	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

const prefix = "SyncCommands"

var errNoDevGuild = errors.New("no dev guild: set devGuildId or pass -guild")

// scope is one set of commands Discord stores together
type scope struct {
	name    string
	guildID string
	local   []*discordgo.ApplicationCommand
}

func (s scope) String() string {
	if s.guildID == "" {
		return s.name
	}
	return s.name + " (" + s.guildID + ")"
}

// plan lists what a sync would change in one scope
type plan struct {
	stale   []string
	missing []string
	kept    []string
}

// diffCommands compares the local definitions against what Discord holds, by name
func diffCommands(local, remote []*discordgo.ApplicationCommand) plan {
	want := make(map[string]bool, len(local))
	for _, cmd := range local {
		want[cmd.Name] = true
	}
	have := make(map[string]bool, len(remote))

	var p plan
	for _, cmd := range remote {
		have[cmd.Name] = true
		if want[cmd.Name] {
			p.kept = append(p.kept, cmd.Name)
		} else {
			p.stale = append(p.stale, cmd.Name)
		}
	}
	for _, cmd := range local {
		if !have[cmd.Name] {
			p.missing = append(p.missing, cmd.Name)
		}
	}

	sort.Strings(p.stale)
	sort.Strings(p.missing)
	sort.Strings(p.kept)
	return p
}

// selectScopes resolves the -scope and -guild flags
func selectScopes(which, guildID string, global, dev []*discordgo.ApplicationCommand) ([]scope, error) {
	globalScope := scope{name: "global", local: global}
	devScope := scope{name: "dev", guildID: guildID, local: dev}

	switch which {
	case "global":
		return []scope{globalScope}, nil
	case "dev":
		if guildID == "" {
			return nil, errNoDevGuild
		}
		return []scope{devScope}, nil
	case "all":
		if guildID == "" {
			logger.Warn("Sin servidor de desarrollo, solo se usará el ámbito global", prefix)
			return []scope{globalScope}, nil
		}
		return []scope{globalScope, devScope}, nil
	}
	return nil, fmt.Errorf("unknown scope %q", which)
}

func main() {
	which := flag.String("scope", "all", "Commands to target: global, dev or all")
	guildID := flag.String("guild", "", "Dev guild ID (defaults to devGuildId)")
	list := flag.Bool("list", false, "Print the commands Discord currently holds")
	dryRun := flag.Bool("plan", false, "Show what a sync would change without applying it")
	clean := flag.Bool("clean", false, "Delete every command in the selected scopes")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error cargando la configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	if *guildID == "" {
		*guildID = cfg.DevGuildID
	}

	client, err := discord.NewClient(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("No se pudo crear el cliente: %v", err), prefix)
		os.Exit(1)
	}

	// Only the definitions are needed, so the cogs get no live services
	commands.RegisterAll(client, commands.Deps{
		Bank:  bankcmd.New(bank.NewMemoryCore(cfg.BankMaxBalance), nil, cfg.FreeCredits),
		Music: music.New(nil),
	})

	scopes, err := selectScopes(*which, *guildID, client.CommandHandler.GlobalCommands(), client.CommandHandler.DevCommands())
	if err != nil {
		logger.Critical(err.Error(), prefix)
		os.Exit(1)
	}

	if err := client.Session.Open(); err != nil {
		logger.Critical(fmt.Sprintf("No se pudo conectar a Discord: %v", err), prefix)
		os.Exit(1)
	}
	defer client.Session.Close()

	failed := false
	for _, s := range scopes {
		var err error
		switch {
		case *list:
			err = listScope(client.CommandHandler, s)
		case *dryRun:
			err = planScope(client.CommandHandler, s)
		case *clean:
			err = cleanScope(client.CommandHandler, s)
		default:
			err = syncScope(client.CommandHandler, s)
		}
		if err != nil {
			logger.Error(fmt.Sprintf("Ámbito %s: %v", s, err), prefix)
			failed = true
		}
	}

	if failed {
		client.Session.Close()
		os.Exit(1)
	}
	logger.Success("Comandos de UselessBot al día", prefix)
}

func remoteCommands(h *discord.CommandHandler, s scope) ([]*discordgo.ApplicationCommand, error) {
	if s.guildID == "" {
		return h.ListGlobalCommands()
	}
	return h.ListGuildCommands(s.guildID)
}

func listScope(h *discord.CommandHandler, s scope) error {
	remote, err := remoteCommands(h, s)
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("📋 %s: %d comandos en Discord", s, len(remote)), prefix)
	for _, cmd := range remote {
		logger.Info(fmt.Sprintf("  /%s  %s  [%s]", cmd.Name, cmd.Description, cmd.ID), prefix)
	}
	return nil
}

func planScope(h *discord.CommandHandler, s scope) error {
	remote, err := remoteCommands(h, s)
	if err != nil {
		return err
	}
	p := diffCommands(s.local, remote)
	logger.Info(fmt.Sprintf("🔎 %s: %d sin cambios, %d nuevos, %d obsoletos", s, len(p.kept), len(p.missing), len(p.stale)), prefix)
	for _, name := range p.missing {
		logger.Info("  + /"+name, prefix)
	}
	for _, name := range p.stale {
		logger.Info("  - /"+name, prefix)
	}
	return nil
}

func cleanScope(h *discord.CommandHandler, s scope) error {
	logger.Info(fmt.Sprintf("🧹 Eliminando los comandos de %s", s), prefix)
	if s.guildID == "" {
		return h.UnregisterCommands()
	}
	return h.UnregisterGuildCommands(s.guildID)
}

func syncScope(h *discord.CommandHandler, s scope) error {
	if err := planScope(h, s); err != nil {
		return err
	}
	if s.guildID == "" {
		return h.SyncCommands()
	}
	return h.SyncGuildCommands(s.guildID)
}
