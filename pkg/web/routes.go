package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PancyStudios/PancyGuardGo/pkg/config"
	"github.com/PancyStudios/PancyGuardGo/pkg/ratelimit"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BotStatus is the part of the Discord client the status routes read.
type BotStatus interface {
	IsReady() bool
	GuildCount() int
}

// API holds the services exposed over HTTP. Nil fields disable their routes.
type API struct {
	Admin   *security.Admin
	Limiter *ratelimit.Limiter
	Store   Pinger
	Bot     BotStatus
	Stream  *Hub
}

// SetupAPIRoutes sets up the API routes
func SetupAPIRoutes(s *Server, api API) {
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := s.Group("/api")
	{
		public.GET("/status", api.statusHandler)
		public.GET("/health", healthHandler)
		public.GET("/bot", api.botInfoHandler)
	}

	admin := s.Group("/api", s.bearerAuth())
	if api.Stream != nil {
		admin.GET("/security/stream", api.Stream.ServeWS)
	}

	if api.Admin == nil {
		return
	}
	guild := admin.Group("/guilds/:guild")
	{
		guild.GET("/security", api.listConfigs)
		guild.POST("/security/setup", api.setup)
		guild.PUT("/security/logsink", api.setLogSink)
		guild.GET("/security/:category", api.getConfig)
		guild.PATCH("/security/:category", api.updateConfig)
		guild.GET("/violations/:user/:category", api.getViolations)
		guild.DELETE("/violations/:user/:category", api.resetViolations)
		guild.GET("/quota/:user/:category", api.getQuota)
	}
}

// statusHandler returns the bot and database status
func (api API) statusHandler(c *gin.Context) {
	dbStatus, dbOnline := "Sin configurar", false
	if api.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := api.Store.Ping(ctx); err != nil {
			dbStatus = "Desconectada"
		} else {
			dbStatus, dbOnline = "Conectada", true
		}
	}

	botOnline := api.Bot != nil && api.Bot.IsReady()

	streamClients := 0
	if api.Stream != nil {
		streamClients = api.Stream.Count()
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
		"streamClients": streamClients,
	})
}

// healthHandler returns a simple health check response
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "PancyGuard is running",
	})
}

// botInfoHandler returns information about the bot
func (api API) botInfoHandler(c *gin.Context) {
	if api.Bot == nil || !api.Bot.IsReady() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Bot Offline",
			"message": "El bot no está disponible en este momento.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"version":   config.Version,
		"buildTime": config.BuildTime,
		"guilds":    api.Bot.GuildCount(),
		"isReady":   true,
	})
}
