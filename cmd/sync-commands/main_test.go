package main

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func named(names ...string) []*discordgo.ApplicationCommand {
	cmds := make([]*discordgo.ApplicationCommand, 0, len(names))
	for _, n := range names {
		cmds = append(cmds, &discordgo.ApplicationCommand{Name: n})
	}
	return cmds
}

func TestDiffCommands(t *testing.T) {
	p := diffCommands(named("music", "bank", "ping"), named("bank", "blacklist", "music", "warn"))

	assert.Equal(t, []string{"bank", "music"}, p.kept)
	assert.Equal(t, []string{"ping"}, p.missing)
	assert.Equal(t, []string{"blacklist", "warn"}, p.stale)
}

func TestDiffCommandsEmptyRemote(t *testing.T) {
	p := diffCommands(named("bank"), nil)
	assert.Equal(t, []string{"bank"}, p.missing)
	assert.Empty(t, p.stale)
	assert.Empty(t, p.kept)
}

func TestSelectScopes(t *testing.T) {
	global, dev := named("bank", "music"), named("eval")

	t.Run("all with dev guild", func(t *testing.T) {
		scopes, err := selectScopes("all", "42", global, dev)
		require.NoError(t, err)
		require.Len(t, scopes, 2)
		assert.Equal(t, "", scopes[0].guildID)
		assert.Equal(t, "42", scopes[1].guildID)
		assert.Equal(t, dev, scopes[1].local)
		assert.Equal(t, "dev (42)", scopes[1].String())
	})

	t.Run("all without dev guild falls back to global", func(t *testing.T) {
		scopes, err := selectScopes("all", "", global, dev)
		require.NoError(t, err)
		require.Len(t, scopes, 1)
		assert.Equal(t, "global", scopes[0].String())
	})

	t.Run("dev needs a guild", func(t *testing.T) {
		_, err := selectScopes("dev", "", global, dev)
		assert.ErrorIs(t, err, errNoDevGuild)
	})

	t.Run("unknown scope", func(t *testing.T) {
		_, err := selectScopes("everything", "42", global, dev)
		assert.Error(t, err)
	})
}
