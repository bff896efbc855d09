package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir switches into dir for the duration of the test
func chdir(t *testing.T, dir string) {
	t.Helper()
	originalWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(originalWd)
	})
}

func writeConfig(t *testing.T, content string) {
	t.Helper()
	tempDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(content), 0644))
	chdir(t, tempDir)
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, "info", cfg.Server.LogLevel)

	assert.Equal(t, BackendOllama, cfg.Engine.Backend)
	assert.Equal(t, "llama3.2:1b-instruct-q4_K_M", cfg.Engine.Model)
	assert.Equal(t, "http://localhost:11434", cfg.Engine.BaseURL)
	assert.Empty(t, cfg.Engine.GenAIBaseURL)
	assert.Equal(t, 600, cfg.Engine.RequestTimeout)
	assert.Equal(t, 60, cfg.Engine.StartupTimeout)
	assert.False(t, cfg.Engine.JSONMode)

	assert.Equal(t, 512, cfg.Generation.MaxTokens)
	assert.InDelta(t, 0.2, cfg.Generation.Temperature, 1e-9)
	assert.Equal(t, ExtractorGreedy, cfg.Generation.Extractor)

	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "story_tasker", cfg.Database.DBName)
	assert.Equal(t, 168, cfg.Journal.Retention)
	assert.True(t, cfg.Journal.PrunerEnabled)

	assert.False(t, cfg.Chatbot.Enabled)
	assert.Equal(t, 30, cfg.Events.ShutdownTimeout)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_ConfigFile(t *testing.T) {
	writeConfig(t, `
server:
  port: 9999
  environment: "test"
  log_level: "debug"

engine:
  backend: "genai"
  model: "gemma-3-1b-it"
  api_key: "test-key"
  request_timeout: 45
  json_mode: true

generation:
  max_tokens: 256
  temperature: 0.1
  extractor: "balanced"

database:
  enabled: true
  host: "test-db"
  port: 5433

chatbot:
  enabled: true
  token: "test-token"
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, BackendGenAI, cfg.Engine.Backend)
	assert.Equal(t, "gemma-3-1b-it", cfg.Engine.Model)
	assert.Equal(t, "test-key", cfg.Engine.APIKey)
	assert.Equal(t, 45, cfg.Engine.RequestTimeout)
	assert.True(t, cfg.Engine.JSONMode)
	assert.Equal(t, 256, cfg.Generation.MaxTokens)
	assert.Equal(t, ExtractorBalanced, cfg.Generation.Extractor)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "test-db", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "test-token", cfg.Chatbot.Token)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ENGINE_MODEL", "qwen2.5:0.5b")
	t.Setenv("GENERATION_EXTRACTOR", "repair")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "qwen2.5:0.5b", cfg.Engine.Model)
	assert.Equal(t, ExtractorRepair, cfg.Generation.Extractor)
}

func TestLoad_MalformedYAML(t *testing.T) {
	writeConfig(t, `
server:
  port: 8080
invalid_yaml: [
  - missing_closing_bracket
`)

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestConfig_Validate(t *testing.T) {
	base := func(t *testing.T) *Config {
		chdir(t, t.TempDir())
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{name: "unknown backend", mutate: func(c *Config) { c.Engine.Backend = "webgpu" }, errMsg: "engine.backend"},
		{name: "genai without key", mutate: func(c *Config) { c.Engine.Backend = BackendGenAI }, errMsg: "engine.api_key"},
		{name: "blank model", mutate: func(c *Config) { c.Engine.Model = " " }, errMsg: "engine.model"},
		{name: "negative timeout", mutate: func(c *Config) { c.Engine.RequestTimeout = -1 }, errMsg: "engine.request_timeout"},
		{name: "unknown extractor", mutate: func(c *Config) { c.Generation.Extractor = "regex" }, errMsg: "generation.extractor"},
		{name: "zero max tokens", mutate: func(c *Config) { c.Generation.MaxTokens = 0 }, errMsg: "generation.max_tokens"},
		{name: "temperature too high", mutate: func(c *Config) { c.Generation.Temperature = 2.5 }, errMsg: "generation.temperature"},
		{name: "chatbot without token", mutate: func(c *Config) { c.Chatbot.Enabled = true }, errMsg: "chatbot.token"},
		{name: "pruner without retention", mutate: func(c *Config) { c.Journal.Retention = 0 }, errMsg: "journal.retention"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
