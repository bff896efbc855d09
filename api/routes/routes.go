package routes

import (
	"time"

	"story-tasker-api/api/handlers"
	"story-tasker-api/api/middleware"
	"story-tasker-api/internal/chatbot"
	"story-tasker-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies are the services the HTTP API is built on.
// DB and Chatbot are optional.
type Dependencies struct {
	Logger         *logger.Logger
	DB             *gorm.DB
	Engine         handlers.EngineController
	Generator      handlers.TaskRunner
	Journal        handlers.JournalReader
	Chatbot        chatbot.ChatbotService
	RequestTimeout time.Duration
	WarmupTimeout  time.Duration
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.Use(middleware.RequestLogging(deps.Logger))
	router.Use(gin.Recovery())

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Engine, deps.Logger)
	taskHandler := handlers.NewTaskHandler(deps.Generator, deps.RequestTimeout, deps.Logger)
	engineHandler := handlers.NewEngineHandler(deps.Engine, deps.WarmupTimeout, deps.Logger)
	generationsHandler := handlers.NewGenerationsHandler(deps.Journal, deps.Logger)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Check)

		v1.POST("/tasks/generate", taskHandler.Generate)
		v1.POST("/tasks/generate/stream", taskHandler.Stream)

		v1.GET("/engine/status", engineHandler.Status)
		v1.POST("/engine/warmup", engineHandler.Warmup)

		v1.GET("/generations", generationsHandler.List)
		v1.GET("/generations/stats", generationsHandler.Stats)

		if deps.Chatbot != nil {
			webhookHandler := handlers.NewWebhookHandler(deps.Chatbot, deps.Logger)
			v1.POST("/telegram/webhook", webhookHandler.HandleTelegramWebhook)
		}
	}

	// Root health check
	router.GET("/health", healthHandler.Check)
}
