package handlers

import (
	"net/http"
	"time"

	"story-tasker-api/api/middleware"
	"story-tasker-api/internal/database"
	"story-tasker-api/internal/engine"
	"story-tasker-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	componentOK       = "ok"
	componentDisabled = "disabled"
	componentError    = "error"
)

type HealthHandler struct {
	db     *gorm.DB
	engine EngineController
	logger *logger.Logger
}

// NewHealthHandler creates a HealthHandler. A nil db means the journal runs
// in memory and no database is checked.
func NewHealthHandler(db *gorm.DB, controller EngineController, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		engine: controller,
		logger: logger,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	status := "ok"
	statusCode := http.StatusOK

	dbStatus := componentDisabled
	if h.db != nil {
		dbStatus = componentOK
		if err := database.HealthCheck(c.Request.Context(), h.db); err != nil {
			middleware.Logger(c, h.logger).Errorw("Database health check failed", "error", err)
			dbStatus = componentError
			status = "error"
			statusCode = http.StatusServiceUnavailable
		}
	}

	// an idle engine is healthy: it is built on first use
	engineStatus := h.engine.Status()
	if engineStatus.State == engine.StateFailed && status == "ok" {
		status = "degraded"
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   serviceName,
		"database":  dbStatus,
		"engine": gin.H{
			"state":      engineStatus.State,
			"model_id":   engineStatus.ModelID,
			"last_error": engineStatus.LastError,
		},
	})
}
