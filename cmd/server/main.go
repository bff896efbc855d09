package main

import (
	_ "github.com/joho/godotenv/autoload" // Load .env file automatically

	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"story-tasker-api/api/routes"
	"story-tasker-api/internal/chatbot"
	"story-tasker-api/internal/config"
	"story-tasker-api/internal/database"
	"story-tasker-api/internal/engine"
	"story-tasker-api/internal/events"
	"story-tasker-api/internal/generation"
	"story-tasker-api/internal/journal"
	"story-tasker-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.NewWithLevel(cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	if err := cfg.Validate(); err != nil {
		appLogger.Fatalw("Invalid configuration", "error", err)
	}

	// Get the underlying zap logger for services
	zapLogger := appLogger.Zap()

	eventBus := events.NewEventBus(zapLogger)

	// Engine manager owns the single engine for the pinned model
	factory, err := engine.NewFactory(cfg.Engine, zapLogger)
	if err != nil {
		appLogger.Fatalw("Failed to create engine factory", "error", err)
	}
	manager := engine.NewManager(factory, cfg.Engine.Model, engine.RuntimeFromConfig(cfg.Engine), zapLogger,
		engine.WithProgressPublisher(engine.NewBusProgressPublisher(eventBus, zapLogger)))

	client, err := generation.NewClient(manager, cfg.Generation, zapLogger)
	if err != nil {
		appLogger.Fatalw("Failed to create generation client", "error", err)
	}

	// Journal: postgres when enabled, in memory otherwise
	var (
		db   *gorm.DB
		repo journal.Repository
	)
	if cfg.Database.Enabled {
		db, err = database.NewPostgresConnection(cfg.Database)
		if err != nil {
			appLogger.Fatalw("Failed to connect to database", "error", err)
		}
		if err := journal.MigrateWithValidation(db); err != nil {
			appLogger.Fatalw("Failed to run journal migrations", "error", err)
		}
		repo = journal.NewGormRepository(db, zapLogger)
	} else {
		appLogger.Infow("Database disabled, keeping the generation journal in memory")
		repo = journal.NewMemoryRepository()
	}

	generationService := generation.NewService(client, eventBus, repo, zapLogger)
	if err := generationService.Start(); err != nil {
		appLogger.Fatalw("Failed to start generation service", "error", err)
	}

	var pruner *journal.Pruner
	if cfg.Journal.PrunerEnabled {
		pruner, err = journal.NewPruner(journal.PrunerConfigFromConfig(cfg.Journal), repo, zapLogger)
		if err != nil {
			appLogger.Fatalw("Failed to create journal pruner", "error", err)
		}
		if err := pruner.Start(context.Background()); err != nil {
			appLogger.Fatalw("Failed to start journal pruner", "error", err)
		}
		appLogger.Infow("Journal pruner started",
			"retention_hours", cfg.Journal.Retention,
			"prune_interval_seconds", cfg.Journal.PruneInterval)
	} else {
		appLogger.Infow("Journal pruner disabled")
	}

	var chatbotService chatbot.ChatbotService
	if cfg.Chatbot.Enabled {
		provider, err := chatbot.NewTelegramProvider(cfg.Chatbot, zapLogger)
		if err != nil {
			appLogger.Fatalw("Failed to create Telegram provider", "error", err)
		}
		chatbotService, err = chatbot.NewChatbotService(eventBus, zapLogger, provider, cfg.Chatbot)
		if err != nil {
			appLogger.Fatalw("Failed to initialize chatbot service", "error", err)
		}
	} else {
		appLogger.Infow("Telegram chatbot disabled")
	}

	appLogger.Infow("Services initialized",
		"backend", factory.Backend(),
		"model", cfg.Engine.Model,
		"extractor", cfg.Generation.Extractor,
		"database", cfg.Database.Enabled,
		"chatbot", chatbotService != nil)

	requestTimeout := time.Duration(cfg.Engine.RequestTimeout) * time.Second

	if cfg.Engine.WarmupOnStart {
		go func() {
			ctx := context.Background()
			if requestTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, requestTimeout)
				defer cancel()
			}
			appLogger.Infow("Warming up engine", "model", cfg.Engine.Model)
			if _, err := manager.EnsureEngine(ctx, nil); err != nil {
				appLogger.Errorw("Engine warm-up failed", "error", err)
				return
			}
			appLogger.Infow("Engine ready", "model", cfg.Engine.Model)
		}()
	}

	// Setup Gin router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	routes.SetupRoutes(router, routes.Dependencies{
		Logger:         appLogger,
		DB:             db,
		Engine:         manager,
		Generator:      generationService,
		Journal:        repo,
		Chatbot:        chatbotService,
		RequestTimeout: requestTimeout,
		WarmupTimeout:  requestTimeout,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLogger.Infow("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalw("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Infow("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Errorw("Server forced to shutdown", "error", err)
	}

	if pruner != nil && pruner.IsRunning() {
		if err := pruner.Stop(); err != nil {
			appLogger.Errorw("Failed to stop journal pruner gracefully", "error", err)
		}
	}

	// Close event bus with timeout
	closed := make(chan error, 1)
	go func() {
		closed <- eventBus.Close()
	}()

	select {
	case err := <-closed:
		if err != nil {
			appLogger.Errorw("Failed to close event bus", "error", err)
		}
	case <-time.After(time.Duration(cfg.Events.ShutdownTimeout) * time.Second):
		appLogger.Warnw("Event bus shutdown timed out")
	}

	if err := database.Close(db); err != nil {
		appLogger.Errorw("Failed to close database", "error", err)
	}

	appLogger.Infow("Server exited")
}
