package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
)

// abortWith maps core errors to HTTP statuses.
func abortWith(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, security.ErrInvalidCategory),
		errors.Is(err, security.ErrInvalidPunishment),
		errors.Is(err, security.ErrInvalidMax),
		errors.Is(err, security.ErrInvalidID):
		status = http.StatusBadRequest
	case errors.Is(err, security.ErrConfigMissing):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		logger.Error(fmt.Sprintf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err), "WebServer")
		c.AbortWithStatusJSON(status, gin.H{"error": "Internal Server Error", "message": "Error interno del servidor."})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status), "message": err.Error()})
}

func (api API) listConfigs(c *gin.Context) {
	configs, err := api.Admin.Configs(c.Request.Context(), c.Param("guild"))
	if err != nil {
		abortWith(c, err)
		return
	}
	if configs == nil {
		configs = []models.SecurityConfig{}
	}
	c.JSON(http.StatusOK, gin.H{"configs": configs})
}

func (api API) setup(c *gin.Context) {
	guildID := c.Param("guild")
	if err := api.Admin.Setup(c.Request.Context(), guildID); err != nil {
		abortWith(c, err)
		return
	}
	logger.Info("Seguridad inicializada vía API en "+guildID, "WebServer")
	api.listConfigs(c)
}

func (api API) getConfig(c *gin.Context) {
	cfg, err := api.Admin.Config(c.Request.Context(), c.Param("guild"), c.Param("category"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (api API) updateConfig(c *gin.Context) {
	var patch models.ConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request", "message": "JSON inválido: " + err.Error()})
		return
	}
	guildID, category := c.Param("guild"), c.Param("category")
	if err := api.Admin.Update(c.Request.Context(), guildID, category, patch); err != nil {
		abortWith(c, err)
		return
	}
	logger.Info(fmt.Sprintf("Configuración %s actualizada vía API en %s", category, guildID), "WebServer")
	api.getConfig(c)
}

type logSinkRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
}

func (api API) setLogSink(c *gin.Context) {
	var req logSinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request", "message": "Se requiere channel_id."})
		return
	}
	if err := api.Admin.SetLogSink(c.Request.Context(), c.Param("guild"), req.ChannelID); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (api API) getViolations(c *gin.Context) {
	guildID, userID, category := c.Param("guild"), c.Param("user"), c.Param("category")
	n, err := api.Admin.Violations(c.Request.Context(), guildID, userID, category)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guild_id": guildID, "user_id": userID, "category": category, "count": n})
}

func (api API) resetViolations(c *gin.Context) {
	guildID, userID, category := c.Param("guild"), c.Param("user"), c.Param("category")
	if err := api.Admin.ResetViolations(c.Request.Context(), guildID, userID, category); err != nil {
		abortWith(c, err)
		return
	}
	logger.Info(fmt.Sprintf("Infracciones de %s (%s) reiniciadas vía API en %s", userID, category, guildID), "WebServer")
	c.Status(http.StatusNoContent)
}

func (api API) getQuota(c *gin.Context) {
	if api.Limiter == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not Found", "message": "Los límites diarios están desactivados."})
		return
	}
	res, err := api.Limiter.Usage(c.Request.Context(), c.Param("guild"), c.Param("user"), c.Param("category"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
