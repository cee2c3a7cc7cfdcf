package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/UselessBotGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func noop(*discord.CommandContext) error { return nil }

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		dur  time.Duration
		want string
	}{
		{0, "0 segundos"},
		{45 * time.Second, "45 segundos"},
		{time.Hour + 2*time.Second, "1 horas, 2 segundos"},
		{26*time.Hour + 3*time.Minute, "1 días, 2 horas, 3 minutos"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatUptime(tt.dur))
		})
	}
}

func TestHelpTextSkipsRestrictedCommands(t *testing.T) {
	commands := map[string]*discord.Command{
		"play": discord.NewCommand("play", "Reproduce", "music", noop).WithOptions(&discordgo.ApplicationCommandOption{
			Name: "query", Required: true,
		}),
		"bank.status": discord.NewCommand("status", "Estado", "bank", noop).WithOptions(&discordgo.ApplicationCommandOption{
			Name: "usuario",
		}),
		"bank.reset": discord.NewCommand("reset", "Borra", "bank", noop).OwnerOnly(),
		"dev.eval":   discord.NewCommand("eval", "Evalúa", "dev", noop).AsDev(),
	}

	text := helpText(commands)
	assert.Contains(t, text, "`/play <query>` - Reproduce")
	assert.Contains(t, text, "`/bank status [usuario]` - Estado")
	assert.NotContains(t, text, "reset")
	assert.NotContains(t, text, "eval")
	assert.Less(t, strings.Index(text, "**BANK**"), strings.Index(text, "**MUSIC**"))
}

type fakeDB struct{ online bool }

func (f fakeDB) GetStatus() (string, bool) {
	if f.online {
		return "Conectado", true
	}
	return "Desconectado", false
}

func TestStatusText(t *testing.T) {
	u := &utilsCog{deps: Deps{
		Database:      fakeDB{online: true},
		ActivePlayers: func() int { return 2 },
		MQTTConnected: func() bool { return false },
	}}

	text := u.statusText(5)
	assert.Contains(t, text, "Base de datos: 🟢 Conectado")
	assert.Contains(t, text, "MQTT: 🔴 Desconectado")
	assert.Contains(t, text, "2 reproductores activos")
	assert.Contains(t, text, "Servidores: 5")

	empty := (&utilsCog{}).statusText(0)
	assert.Contains(t, empty, "Base de datos: 🔴 No configurada")
	assert.Contains(t, empty, "Música: 🔴 No disponible")
}
