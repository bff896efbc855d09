package handlers

import (
	"context"
	"net/http"
	"time"

	"story-tasker-api/api/middleware"
	"story-tasker-api/internal/engine"
	"story-tasker-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// EngineHandler reports and drives the managed engine
type EngineHandler struct {
	engine        EngineController
	warmupTimeout time.Duration
	logger        *logger.Logger
}

// NewEngineHandler creates an EngineHandler. A zero warmupTimeout lets a
// warm-up run until the construction settles.
func NewEngineHandler(controller EngineController, warmupTimeout time.Duration, logger *logger.Logger) *EngineHandler {
	return &EngineHandler{
		engine:        controller,
		warmupTimeout: warmupTimeout,
		logger:        logger,
	}
}

// Status handles GET /api/v1/engine/status
func (h *EngineHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Status())
}

// Warmup handles POST /api/v1/engine/warmup. Construction continues in the
// background; callers poll Status.
func (h *EngineHandler) Warmup(c *gin.Context) {
	status := h.engine.Status()
	if status.State == engine.StateReady {
		c.JSON(http.StatusOK, status)
		return
	}

	log := middleware.Logger(c, h.logger)
	go h.warmup(log)

	c.JSON(http.StatusAccepted, gin.H{
		"state":    engine.StateInitializing,
		"model_id": status.ModelID,
	})
}

func (h *EngineHandler) warmup(log *logger.Logger) {
	ctx := context.Background()
	if h.warmupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.warmupTimeout)
		defer cancel()
	}

	if _, err := h.engine.EnsureEngine(ctx, nil); err != nil {
		log.Errorw("Engine warm-up failed", "error", err)
		return
	}
	log.Infow("Engine warm-up finished")
}
