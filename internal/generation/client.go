package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"story-tasker-api/internal/config"
	"story-tasker-api/internal/engine"
	"story-tasker-api/internal/prompt"
	"story-tasker-api/internal/tasks"

	"go.uber.org/zap"
)

// EngineSource hands out the ready inference engine. *engine.Manager
// satisfies it.
type EngineSource interface {
	EnsureEngine(ctx context.Context, onProgress engine.ProgressFunc) (engine.Engine, error)
	ModelInfo() engine.ModelInfo
}

// Client turns a story into a validated task list with one chat completion
type Client struct {
	source       EngineSource
	extractor    Extractor
	maxTokens    int
	temperature  float64
	systemPrompt string
	logger       *zap.Logger
}

// NewClient creates a Client using the extractor and sampling settings in cfg
func NewClient(source EngineSource, cfg config.GenerationConfig, logger *zap.Logger) (*Client, error) {
	if source == nil {
		return nil, errors.New("engine source is required")
	}
	extractor, err := NewExtractor(cfg.Extractor)
	if err != nil {
		return nil, err
	}
	if cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be greater than 0, got %d", cfg.MaxTokens)
	}

	return &Client{
		source:       source,
		extractor:    extractor,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		systemPrompt: prompt.BuildSystemPrompt(),
		logger:       logger,
	}, nil
}

// WithExtractor replaces the extraction strategy
func (c *Client) WithExtractor(extractor Extractor) *Client {
	c.extractor = extractor
	return c
}

// Model returns the pinned model the client generates with
func (c *Client) Model() engine.ModelInfo {
	return c.source.ModelInfo()
}

// Generate asks the engine for tasks describing story.
//
// The engine is constructed on first use and onProgress receives its
// initialization reports. Errors are either an *engine.EngineInitError, an
// error matching ErrInvalidFormat, or a context/transport error from the
// chat call. No partial task list is ever returned.
func (c *Client) Generate(ctx context.Context, story string, onProgress engine.ProgressFunc) ([]tasks.Task, error) {
	start := time.Now()
	model := c.source.ModelInfo()
	logger := c.logger.With(
		zap.String("correlation_id", CorrelationIDFromContext(ctx)),
		zap.String("model", model.Name))

	eng, err := c.source.EnsureEngine(ctx, onProgress)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		logger.Error("Engine initialization failed", zap.Error(err))
		return nil, engine.NewEngineInitError(model.Name, err)
	}

	resp, err := eng.ChatCompletion(ctx, engine.ChatRequest{
		Messages: []engine.Message{
			{Role: engine.RoleSystem, Content: c.systemPrompt},
			{Role: engine.RoleUser, Content: prompt.BuildUserMessage(story)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		logger.Error("Chat completion failed",
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if resp == nil {
		resp = &engine.ChatResponse{}
	}

	content := resp.FirstContent()

	value, err := c.extractor.Extract(content)
	if err != nil {
		fe := newParseError(content, err)
		logger.Warn("Model output could not be parsed",
			zap.Duration("duration", time.Since(start)),
			zap.String("detail", fe.Detail()))
		return nil, fe
	}

	batch, err := tasks.Validate(value)
	if err != nil {
		fe := newValidateError(content, err)
		logger.Warn("Model output failed validation",
			zap.Duration("duration", time.Since(start)),
			zap.String("detail", fe.Detail()))
		return nil, fe
	}

	logger.Info("Generated tasks",
		zap.Duration("duration", time.Since(start)),
		zap.Int("task_count", batch.Len()),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return batch.Tasks, nil
}

type correlationIDKey struct{}

// WithCorrelationID attaches a correlation id for log lines of a generation
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext returns the correlation id stored in ctx, if any
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}
