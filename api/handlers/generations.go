package handlers

import (
	"net/http"
	"strconv"

	"story-tasker-api/api/middleware"
	"story-tasker-api/internal/journal"
	"story-tasker-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// GenerationsHandler exposes the generation journal
type GenerationsHandler struct {
	journal JournalReader
	logger  *logger.Logger
}

func NewGenerationsHandler(reader JournalReader, logger *logger.Logger) *GenerationsHandler {
	return &GenerationsHandler{
		journal: reader,
		logger:  logger,
	}
}

// List handles GET /api/v1/generations?limit=N
func (h *GenerationsHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	records, err := h.journal.ListRecent(c.Request.Context(), limit)
	if err != nil {
		middleware.Logger(c, h.logger).Errorw("Failed to list generations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list generations"})
		return
	}
	if records == nil {
		records = []journal.Record{}
	}

	c.JSON(http.StatusOK, gin.H{
		"generations": records,
		"count":       len(records),
	})
}

// Stats handles GET /api/v1/generations/stats
func (h *GenerationsHandler) Stats(c *gin.Context) {
	counts, err := h.journal.CountByStatus(c.Request.Context())
	if err != nil {
		middleware.Logger(c, h.logger).Errorw("Failed to count generations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count generations"})
		return
	}
	c.JSON(http.StatusOK, journal.NewStats(counts))
}
