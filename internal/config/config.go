package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Generation GenerationConfig `mapstructure:"generation"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Journal    JournalConfig    `mapstructure:"journal"`
	Chatbot    ChatbotConfig    `mapstructure:"chatbot"`
	Events     EventsConfig     `mapstructure:"events"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Environment  string `mapstructure:"environment"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	LogLevel     string `mapstructure:"log_level"`
}

// EngineConfig selects the inference backend and the pinned model.
// Timeouts are in seconds; a zero RequestTimeout disables the per-request deadline.
type EngineConfig struct {
	Backend        string `mapstructure:"backend"`
	Model          string `mapstructure:"model"`
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	GenAIBaseURL   string `mapstructure:"genai_base_url"`
	RequestTimeout int    `mapstructure:"request_timeout"`
	StartupTimeout int    `mapstructure:"startup_timeout"`
	KeepAlive      string `mapstructure:"keep_alive"`
	JSONMode       bool   `mapstructure:"json_mode"`
	WarmupOnStart  bool   `mapstructure:"warmup_on_start"`
}

type GenerationConfig struct {
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	Extractor   string  `mapstructure:"extractor"`
}

type DatabaseConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// JournalConfig controls retention of generation run records.
// Retention is in hours, intervals in seconds.
type JournalConfig struct {
	Retention       int  `mapstructure:"retention"`
	PruneInterval   int  `mapstructure:"prune_interval"`
	ShutdownTimeout int  `mapstructure:"shutdown_timeout"`
	PrunerEnabled   bool `mapstructure:"pruner_enabled"`
}

type ChatbotConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Token      string `mapstructure:"token"`
	Timeout    int    `mapstructure:"timeout"`
}

type EventsConfig struct {
	ShutdownTimeout int `mapstructure:"shutdown_timeout"`
}

// Supported engine backends
const (
	BackendOllama = "ollama"
	BackendGenAI  = "genai"
)

// Supported JSON extraction strategies
const (
	ExtractorGreedy   = "greedy"
	ExtractorBalanced = "balanced"
	ExtractorFenced   = "fenced"
	ExtractorRepair   = "repair"
)

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	// Enable environment variable support
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// Validate rejects settings the generation pipeline cannot run with
func (c *Config) Validate() error {
	switch c.Engine.Backend {
	case BackendOllama:
	case BackendGenAI:
		if c.Engine.APIKey == "" {
			return fmt.Errorf("engine.api_key is required for the %s backend", BackendGenAI)
		}
	default:
		return fmt.Errorf("engine.backend %q is not supported", c.Engine.Backend)
	}

	if strings.TrimSpace(c.Engine.Model) == "" {
		return fmt.Errorf("engine.model must be set")
	}
	if c.Engine.RequestTimeout < 0 {
		return fmt.Errorf("engine.request_timeout must not be negative")
	}

	switch c.Generation.Extractor {
	case ExtractorGreedy, ExtractorBalanced, ExtractorFenced, ExtractorRepair:
	default:
		return fmt.Errorf("generation.extractor %q is not supported", c.Generation.Extractor)
	}

	if c.Generation.MaxTokens <= 0 {
		return fmt.Errorf("generation.max_tokens must be greater than 0")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be within [0, 2]")
	}

	if c.Chatbot.Enabled && c.Chatbot.Token == "" {
		return fmt.Errorf("chatbot.token is required when the chatbot is enabled")
	}

	if c.Journal.PrunerEnabled {
		if c.Journal.Retention <= 0 {
			return fmt.Errorf("journal.retention must be greater than 0")
		}
		if c.Journal.PruneInterval <= 0 {
			return fmt.Errorf("journal.prune_interval must be greater than 0")
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 0) // streaming responses may outlive any fixed write deadline
	v.SetDefault("server.log_level", "info")

	v.SetDefault("engine.backend", BackendOllama)
	v.SetDefault("engine.model", "llama3.2:1b-instruct-q4_K_M")
	v.SetDefault("engine.base_url", "http://localhost:11434")
	v.SetDefault("engine.api_key", "")
	v.SetDefault("engine.genai_base_url", "")
	v.SetDefault("engine.request_timeout", 600)
	v.SetDefault("engine.startup_timeout", 60)
	v.SetDefault("engine.keep_alive", "30m")
	v.SetDefault("engine.json_mode", false)
	v.SetDefault("engine.warmup_on_start", false)

	v.SetDefault("generation.max_tokens", 512)
	v.SetDefault("generation.temperature", 0.2)
	v.SetDefault("generation.extractor", ExtractorGreedy)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "story_tasker")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 300)

	v.SetDefault("journal.retention", 168) // 7 days in hours
	v.SetDefault("journal.prune_interval", 3600)
	v.SetDefault("journal.shutdown_timeout", 10)
	v.SetDefault("journal.pruner_enabled", true)

	v.SetDefault("chatbot.enabled", false)
	v.SetDefault("chatbot.webhook_url", "")
	v.SetDefault("chatbot.token", "")
	v.SetDefault("chatbot.timeout", 30)

	v.SetDefault("events.shutdown_timeout", 30)
}
