// Package main is the entry point for PancyGuard.
// It initializes all systems and starts the Discord bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PancyStudios/PancyGuardGo/internal/commands"
	"github.com/PancyStudios/PancyGuardGo/internal/commands/mod"
	"github.com/PancyStudios/PancyGuardGo/internal/events"
	"github.com/PancyStudios/PancyGuardGo/pkg/audit"
	"github.com/PancyStudios/PancyGuardGo/pkg/config"
	"github.com/PancyStudios/PancyGuardGo/pkg/database"
	"github.com/PancyStudios/PancyGuardGo/pkg/database/sqlite"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/errors"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/mqtt"
	"github.com/PancyStudios/PancyGuardGo/pkg/ratelimit"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
	"github.com/PancyStudios/PancyGuardGo/pkg/warnings"
	"github.com/PancyStudios/PancyGuardGo/pkg/web"
)

// store is implemented by both database backends.
type store interface {
	security.ConfigStore
	security.ViolationLedger
	security.SnapshotRepository
	warnings.Repository
	ratelimit.Store
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	level, ok := logger.ParseLevel(cfg.LogLevel)
	log := logger.Init(logger.Options{
		ErrorWebhook: cfg.ErrorWebhook,
		LogsWebhook:  cfg.LogsWebhook,
		MaxLevel:     level,
	})
	defer log.Close()
	if !ok {
		logger.Warn("LOG_LEVEL desconocido, se usará 'system': "+cfg.LogLevel, "Main")
	}

	logger.System("Iniciando PancyGuard...", "Main")
	logger.Info(fmt.Sprintf("Directorio de trabajo: %s", getCurrentDir()), "Main")

	// Initialize error handler
	var discordClient *discord.ExtendedClient
	errHandler := errors.Init(cfg.ErrorWebhook, func() {
		if discordClient != nil {
			_ = discordClient.Stop()
		}
	})
	defer errHandler.Stop()

	ctx := context.Background()

	// Initialize database
	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error abriendo la base de datos: %v", err), "Main")
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn(fmt.Sprintf("Error cerrando la base de datos: %v", err), "Main")
		}
	}()

	// Daily moderation quotas live in Redis when configured
	var quotaStore ratelimit.Store = st
	if cfg.RedisURL != "" {
		rs, err := ratelimit.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(fmt.Sprintf("No se pudo conectar a Redis, se usará la base de datos para los límites: %v", err), "Main")
		} else {
			logger.Success("Límites diarios en Redis", "Main")
			quotaStore = rs
			defer rs.Close()
		}
	}
	limiter := ratelimit.NewLimiter(quotaStore, cfg.Security.DailyActionCap)

	// Initialize MQTT
	mqttClientID := "pancyguard"
	if !cfg.IsProd() {
		mqttClientID = "pancyguard_canary"
	}
	publisher := mqtt.Init(mqtt.Options{
		Host:     cfg.MQTTHost,
		Port:     cfg.MQTTPort,
		Username: cfg.MQTTUser,
		Password: cfg.MQTTPassword,
		ClientID: mqttClientID,
	})
	defer publisher.Destroy()

	// Initialize Discord client
	discordClient, err = discord.Init(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "Main")
		os.Exit(1)
	}
	discordClient.Limiter = limiter
	plat := discord.NewPlatform(discordClient.Session)

	// Moderation core
	resolver := audit.NewResolver(plat)
	resolver.Window = cfg.Security.AuditWindow
	resolver.Attempts = cfg.Security.AuditAttempts
	resolver.Delay = cfg.Security.AuditDelay

	resetPolicy, err := security.ParseResetPolicy(cfg.Security.ResetPolicy)
	if err != nil {
		logger.Warn(fmt.Sprintf("%v, se usará 'always'", err), "Main")
	}
	snapshots := security.NewRoleSnapshots(st, plat, plat)
	executor := security.NewExecutor(st, st, snapshots, plat)
	executor.ResetPolicy = resetPolicy
	executor.TimeoutDuration = cfg.Security.TimeoutDuration

	stream := web.NewHub()
	sinks := security.MultiSink{
		security.RecordSink{},
		discord.NewChannelSink(discordClient.Session),
		publisher,
		stream,
	}
	pipeline := security.NewPipeline(st, resolver, plat, executor, sinks, errHandler)

	jailer := warnings.NewJailer(st, snapshots, plat, plat)
	escalator := warnings.NewEscalator(st, plat, jailer)
	escalator.SetNotifier(publisher)
	sweeper := warnings.NewSweeper(escalator, cfg.Security.SweepInterval, errHandler)
	defer sweeper.Stop()

	admin := security.NewAdmin(st, st)

	// Register events and commands
	events.RegisterAll(discordClient, events.Deps{
		Dispatcher: events.NewDispatcher(pipeline),
		Sweeper:    sweeper,
	})
	commands.RegisterAll(discordClient, commands.Deps{
		Admin: admin,
		Mod: mod.Deps{
			Platform:  plat,
			Escalator: escalator,
			Jailer:    jailer,
			Snapshots: snapshots,
		},
		Store: st,
	})

	// Initialize web server
	webServer, err := web.Init(web.Options{
		WebhookURL: cfg.LogsWebServerHook,
		AdminToken: cfg.AdminToken,
	})
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creando el servidor web: %v", err), "Main")
		os.Exit(1)
	}
	web.SetupAPIRoutes(webServer, web.API{
		Admin:   admin,
		Limiter: limiter,
		Store:   st,
		Bot:     discordClient,
		Stream:  stream,
	})
	webServer.StartAsync(cfg.Port)
	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN vacío: la API de administración y el stream están desactivados", "Main")
	}

	// Start the bot
	if err := discordClient.Start(); err != nil {
		logger.Critical(fmt.Sprintf("Error starting Discord client: %v", err), "Main")
		os.Exit(1)
	}

	logger.Success("PancyGuard iniciado correctamente!", "Main")

	// Wait for interrupt signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	logger.System("Apagando PancyGuard...", "Main")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn(fmt.Sprintf("Error cerrando el servidor web: %v", err), "Main")
	}
	stream.Shutdown()
	if err := discordClient.Stop(); err != nil {
		logger.Warn(fmt.Sprintf("Error cerrando la sesión de Discord: %v", err), "Main")
	}
}

// openStore opens the configured backend. A Mongo server that is down is not
// fatal: the driver keeps reconnecting and operations fail until it is back.
func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	if cfg.StoreBackend == config.StoreSQLite {
		logger.System("Usando SQLite en "+cfg.SQLitePath, "Main")
		st, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return st, nil
	}

	db, err := database.Init(ctx, cfg.MongoDBURL, cfg.DBName)
	if err != nil {
		logger.Error(fmt.Sprintf("Error connecting to database: %v", err), "Main")
		// Continue without database, it will attempt to reconnect
	}
	st := database.NewMongoStore(db)
	if err == nil {
		if err := st.EnsureIndexes(ctx); err != nil {
			logger.Error(fmt.Sprintf("Error creando índices: %v", err), "Main")
		}
	}
	return st, nil
}

// getCurrentDir returns the current working directory
func getCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return dir
}
