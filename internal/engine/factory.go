package engine

import (
	"fmt"

	"story-tasker-api/internal/config"

	"go.uber.org/zap"
)

// NewFactory selects the engine factory for the configured backend
func NewFactory(cfg config.EngineConfig, logger *zap.Logger) (Factory, error) {
	switch cfg.Backend {
	case config.BackendOllama, "":
		return NewOllamaFactory(cfg, logger), nil
	case config.BackendGenAI:
		return NewGenAIFactory(cfg, logger), nil
	default:
		return nil, NewConfigurationError("backend", fmt.Sprintf("unsupported backend %q", cfg.Backend), "")
	}
}

// RuntimeFromConfig derives the fixed runtime configuration for engines
func RuntimeFromConfig(cfg config.EngineConfig) RuntimeConfig {
	return RuntimeConfig{
		KeepAlive: cfg.KeepAlive,
		JSONMode:  cfg.JSONMode,
	}
}
