// Package main is the entry point for the UselessBot Go application.
// It initializes all systems and starts the Discord bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/PancyStudios/UselessBotGo/internal/commands"
	bankcmd "github.com/PancyStudios/UselessBotGo/internal/commands/bank"
	"github.com/PancyStudios/UselessBotGo/internal/commands/dev"
	"github.com/PancyStudios/UselessBotGo/internal/commands/music"
	"github.com/PancyStudios/UselessBotGo/internal/commands/utils"
	"github.com/PancyStudios/UselessBotGo/internal/events"
	"github.com/PancyStudios/UselessBotGo/internal/requests"
	"github.com/PancyStudios/UselessBotGo/pkg/bank"
	"github.com/PancyStudios/UselessBotGo/pkg/config"
	"github.com/PancyStudios/UselessBotGo/pkg/database"
	"github.com/PancyStudios/UselessBotGo/pkg/discord"
	"github.com/PancyStudios/UselessBotGo/pkg/errors"
	"github.com/PancyStudios/UselessBotGo/pkg/lavalink"
	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/PancyStudios/UselessBotGo/pkg/mqtt"
	"github.com/PancyStudios/UselessBotGo/pkg/web"
	"github.com/bwmarrin/discordgo"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	logger.System(fmt.Sprintf("Iniciando UselessBot Go v%s...", config.Version), "Main")
	logger.Info(fmt.Sprintf("Directorio de trabajo: %s", getCurrentDir()), "Main")

	// Initialize error handler
	var discordClient *discord.ExtendedClient
	var lavalinkClient *lavalink.LavalinkClient
	errors.Init(cfg.ErrorWebhook, func() {
		if lavalinkClient != nil {
			lavalinkClient.Disconnect()
		}
		if discordClient != nil {
			_ = discordClient.Stop()
		}
	})

	// Initialize database. A failed connection keeps retrying in the
	// background and bank writes wait in the offline queue.
	db, err := database.Init(cfg.MongoDBURL, cfg.DBName)
	if err != nil {
		logger.Error(fmt.Sprintf("Error connecting to database: %v", err), "Main")
	}
	defer func() {
		if err := db.Disconnect(); err != nil {
			logger.Warn(fmt.Sprintf("Error cerrando la base de datos: %v", err), "Main")
		}
	}()
	accounts := bank.NewMongoCore(db, cfg.BankMaxBalance)
	if err == nil {
		if err := accounts.EnsureIndexes(context.Background()); err != nil {
			logger.Warn(fmt.Sprintf("No se pudieron crear los índices del banco: %v", err), "Main")
		}
	}

	// Initialize MQTT
	mqttClientID := "uselessbot"
	if !cfg.IsProd() {
		mqttClientID = "uselessbot_canary"
	}

	mqttClient := mqtt.Init(
		cfg.MQTTHost,
		cfg.MQTTPort,
		cfg.MQTTUser,
		cfg.MQTTPassword,
		mqttClientID,
	)
	defer mqttClient.Destroy()

	// Initialize Discord client
	discordClient, err = discord.Init(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "Main")
		os.Exit(1)
	}

	// Lavalink registers its voice handlers on the session; nodes are
	// connected once the bot user is known
	lavalinkClient = lavalink.Init(discordClient.Session, []lavalink.NodeConfig{
		{
			Name:     "UselessLink",
			Host:     cfg.LinkServer,
			Port:     cfg.LinkPort,
			Password: cfg.LinkPassword,
			Secure:   false,
		},
	}, mqttClient)
	defer lavalinkClient.Disconnect()

	requests.Register(mqttClient, requests.Deps{Music: lavalinkClient, Bank: accounts})

	// Initialize web server
	webServer, err := web.Init(cfg.LogsWebServerHook, cfg.WebHostPattern)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating web server: %v", err), "Main")
		os.Exit(1)
	}
	web.SetupAPIRoutes(webServer, web.Deps{
		Bot:      discordClient,
		Database: db,
		Music:    lavalinkClient,
		Bank:     accounts,
	})
	webServer.StartAsync(cfg.Port)

	// Register commands using the commands package
	commands.RegisterAll(discordClient, commands.Deps{
		Bank:  bankcmd.New(accounts, mqttClient, cfg.FreeCredits),
		Music: music.New(lavalinkClient),
		Utils: utils.Deps{
			Database:      db,
			ActivePlayers: func() int { return len(lavalinkClient.Players()) },
			MQTTConnected: mqttClient.IsConnected,
		},
		Dev: dev.Deps{
			"DB":       db,
			"Bank":     accounts,
			"Lavalink": lavalinkClient,
			"MQTT":     mqttClient,
		},
	})

	// Ready fires again after a full reconnect; nodes reconnect on their own
	var lavalinkOnce sync.Once

	// Register events using the events package
	events.RegisterAll(discordClient, events.Deps{
		Music: lavalinkClient,
		OnReady: func(_ *discordgo.Session, _ *discordgo.Ready) {
			lavalinkOnce.Do(func() {
				if err := lavalinkClient.Connect(); err != nil {
					logger.Error(fmt.Sprintf("Error conectando a Lavalink: %v", err), "Main")
				}
			})
		},
	})

	// Start the bot
	if err := discordClient.Start(); err != nil {
		logger.Critical(fmt.Sprintf("Error starting Discord client: %v", err), "Main")
		os.Exit(1)
	}
	defer func() {
		if err := discordClient.Stop(); err != nil {
			logger.Warn(fmt.Sprintf("Error cerrando la sesión de Discord: %v", err), "Main")
		}
	}()

	logger.Success("UselessBot Go iniciado correctamente!", "Main")

	// Wait for interrupt signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	logger.System("Apagando UselessBot Go...", "Main")
}

// getCurrentDir returns the current working directory
func getCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return dir
}
