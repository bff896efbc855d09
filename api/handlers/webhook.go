package handlers

import (
	"io"
	"net/http"

	"story-tasker-api/api/middleware"
	"story-tasker-api/internal/chatbot"
	"story-tasker-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// maxWebhookBody caps the size of an accepted Telegram update
const maxWebhookBody = 1 << 20

// WebhookHandler handles Telegram webhook requests
type WebhookHandler struct {
	chatbotService chatbot.ChatbotService
	logger         *logger.Logger
}

// NewWebhookHandler creates a new WebhookHandler instance
func NewWebhookHandler(chatbotService chatbot.ChatbotService, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		chatbotService: chatbotService,
		logger:         logger,
	}
}

// HandleTelegramWebhook processes incoming Telegram webhook updates.
// It always answers 200 so Telegram does not redeliver the update.
func (h *WebhookHandler) HandleTelegramWebhook(c *gin.Context) {
	log := middleware.Logger(c, h.logger)

	log.Infow("Received Telegram webhook",
		"content_length", c.Request.ContentLength,
		"content_type", c.GetHeader("Content-Type"))

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		log.Errorw("Failed to read webhook body", "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if len(body) == 0 {
		log.Warnw("Received empty webhook body")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if err := h.chatbotService.HandleWebhook(body); err != nil {
		log.Errorw("Failed to process webhook",
			"error", err,
			"body_size", len(body))
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	log.Debugw("Webhook processed successfully", "body_size", len(body))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
