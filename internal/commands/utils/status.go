package utils

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/UselessBotGo/pkg/discord"
)

// createStatusCommand creates the /utils status subcommand
func (u *utilsCog) createStatusCommand() *discord.Command {
	return discord.NewCommand(
		"status",
		"Muestra el estado del bot",
		"utils",
		u.statusHandler,
	)
}

func indicator(ok bool) string {
	if ok {
		return "🟢"
	}
	return "🔴"
}

// statusText renders the state of each service
func (u *utilsCog) statusText(guilds int) string {
	dbStatus, dbOnline := "No configurada", false
	if u.deps.Database != nil {
		dbStatus, dbOnline = u.deps.Database.GetStatus()
	}

	mqttOnline := u.deps.MQTTConnected != nil && u.deps.MQTTConnected()
	mqttStatus := "Desconectado"
	if mqttOnline {
		mqttStatus = "Conectado"
	}

	music := "No disponible"
	if u.deps.ActivePlayers != nil {
		music = fmt.Sprintf("%d reproductores activos", u.deps.ActivePlayers())
	}

	var sb strings.Builder
	sb.WriteString("📊 **Estado del Bot**\n")
	sb.WriteString("• Bot: 🟢 Online\n")
	sb.WriteString(fmt.Sprintf("• Base de datos: %s %s\n", indicator(dbOnline), dbStatus))
	sb.WriteString(fmt.Sprintf("• MQTT: %s %s\n", indicator(mqttOnline), mqttStatus))
	sb.WriteString(fmt.Sprintf("• Música: %s %s\n", indicator(u.deps.ActivePlayers != nil), music))
	sb.WriteString(fmt.Sprintf("• Servidores: %d", guilds))
	return sb.String()
}

// statusHandler handles the /utils status command
func (u *utilsCog) statusHandler(ctx *discord.CommandContext) error {
	return ctx.Reply(u.statusText(ctx.Client.GuildCount()))
}
