// Package web provides API routes for the web server.
package web

import (
	"errors"
	"net/http"

	"github.com/PancyStudios/UselessBotGo/pkg/bank"
	"github.com/PancyStudios/UselessBotGo/pkg/lavalink"
	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
)

// BotInfo is what the API reads from the Discord client
type BotInfo interface {
	IsReady() bool
	GuildCount() int
	BotUser() *discordgo.User
}

// DatabaseStatus reports the database connection state
type DatabaseStatus interface {
	GetStatus() (string, bool)
}

// MusicPlayers looks up guild players
type MusicPlayers interface {
	GetPlayer(guildID string) *lavalink.Player
}

// Deps are the services the API reads from. Nil fields are reported as
// unavailable.
type Deps struct {
	Bot      BotInfo
	Database DatabaseStatus
	Music    MusicPlayers
	Bank     bank.Core
}

type api struct {
	deps Deps
}

// SetupAPIRoutes sets up the API routes
func SetupAPIRoutes(s *Server, deps Deps) {
	h := &api{deps: deps}

	group := s.Group("/api")
	{
		group.GET("/status", h.statusHandler)
		group.GET("/health", h.healthHandler)
		group.GET("/bot", h.botInfoHandler)
		group.GET("/music/:guildId/queue", h.queueHandler)
		group.GET("/bank/:userId", h.accountHandler)
	}
}

func unavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "Service Unavailable",
		"message": message,
	})
}

// statusHandler returns the bot and database status
func (h *api) statusHandler(c *gin.Context) {
	dbStatus, dbOnline := "Desconectado", false
	if h.deps.Database != nil {
		dbStatus, dbOnline = h.deps.Database.GetStatus()
	}

	botOnline := false
	if h.deps.Bot != nil {
		botOnline = h.deps.Bot.IsReady()
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"database": gin.H{
			"status":   dbStatus,
			"isOnline": dbOnline,
		},
		"bot": gin.H{
			"isOnline": botOnline,
		},
	})
}

// healthHandler returns a simple health check response
func (h *api) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "UselessBot Go is running",
	})
}

// botInfoHandler returns information about the bot
func (h *api) botInfoHandler(c *gin.Context) {
	if h.deps.Bot == nil || !h.deps.Bot.IsReady() || h.deps.Bot.BotUser() == nil {
		unavailable(c, "El bot no está disponible en este momento.")
		return
	}

	user := h.deps.Bot.BotUser()
	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"avatar":   user.Avatar,
		"guilds":   h.deps.Bot.GuildCount(),
		"isReady":  true,
	})
}

// queueHandler returns the music state of a guild
func (h *api) queueHandler(c *gin.Context) {
	if h.deps.Music == nil {
		unavailable(c, "La música no está disponible en este momento.")
		return
	}

	player := h.deps.Music.GetPlayer(c.Param("guildId"))
	if player == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "No hay un reproductor activo en ese servidor.",
		})
		return
	}

	c.JSON(http.StatusOK, player.State())
}

// accountHandler returns a bank account without creating it
func (h *api) accountHandler(c *gin.Context) {
	if h.deps.Bank == nil {
		unavailable(c, "El banco no está disponible en este momento.")
		return
	}

	account, err := h.deps.Bank.FindUser(c.Request.Context(), c.Param("userId"))
	if errors.Is(err, bank.ErrAccountNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": err.Error(),
		})
		return
	}
	if err != nil {
		unavailable(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, account)
}
