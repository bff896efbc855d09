package generation

import (
	"context"
	"errors"
	"time"

	"story-tasker-api/internal/engine"
	"story-tasker-api/internal/events"
	"story-tasker-api/internal/journal"
	"story-tasker-api/internal/tasks"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	journalWriteTimeout = 5 * time.Second
	journalMaxRetries   = 3
)

// Generator is the part of Client the service depends on
type Generator interface {
	Generate(ctx context.Context, story string, onProgress engine.ProgressFunc) ([]tasks.Task, error)
	Model() engine.ModelInfo
}

// Request describes one story submitted by a front end
type Request struct {
	CorrelationID string
	Source        string
	UserID        string
	ChatID        string
	Story         string
}

// Service runs generations for front ends and the event bus and keeps the
// generation journal.
type Service struct {
	generator Generator
	eventBus  events.EventBus
	journal   journal.Repository
	logger    *zap.Logger
}

// NewService creates a Service. repo may be nil when no journal is kept.
func NewService(generator Generator, eventBus events.EventBus, repo journal.Repository, logger *zap.Logger) *Service {
	return &Service{
		generator: generator,
		eventBus:  eventBus,
		journal:   repo,
		logger:    logger,
	}
}

// Start subscribes the service to submitted stories
func (s *Service) Start() error {
	// handleStoryReceived publishes from inside the handler, so it must not
	// run under the bus lock held by a synchronous publish
	return s.eventBus.SubscribeAsync(events.TopicStoryReceived, s.handleStoryReceived)
}

// Model returns the pinned model used for generations
func (s *Service) Model() engine.ModelInfo {
	return s.generator.Model()
}

// Run validates the story, generates its tasks and records the outcome
func (s *Service) Run(ctx context.Context, req Request, onProgress engine.ProgressFunc) ([]tasks.Task, error) {
	if err := ValidateStory(req.Story); err != nil {
		return nil, err
	}
	if req.CorrelationID == "" {
		req.CorrelationID = events.NewEvent().CorrelationID
	}
	ctx = WithCorrelationID(ctx, req.CorrelationID)

	start := time.Now()
	generated, err := s.generator.Generate(ctx, req.Story, onProgress)
	s.record(ctx, req, generated, err, time.Since(start))
	return generated, err
}

// JournalStatus classifies a generation outcome for the journal
func JournalStatus(err error) journal.Status {
	switch {
	case err == nil:
		return journal.StatusSucceeded
	case errors.Is(err, ErrInvalidFormat):
		return journal.StatusInvalidFormat
	case engine.IsEngineInitError(err):
		return journal.StatusEngineFailed
	default:
		return journal.StatusFailed
	}
}

// FailureReason classifies a generation error for GenerationFailed events
func FailureReason(err error) string {
	switch {
	case IsInputError(err):
		return events.ReasonInvalidInput
	case errors.Is(err, ErrInvalidFormat):
		return events.ReasonInvalidFormat
	case engine.IsEngineInitError(err):
		return events.ReasonEngineFailed
	default:
		return events.ReasonInternal
	}
}

func (s *Service) record(ctx context.Context, req Request, generated []tasks.Task, genErr error, duration time.Duration) {
	if s.journal == nil {
		return
	}

	rec := &journal.Record{
		CorrelationID: req.CorrelationID,
		Source:        req.Source,
		Model:         s.generator.Model().Name,
		StoryChars:    len([]rune(req.Story)),
		Status:        JournalStatus(genErr),
		TaskCount:     len(generated),
		DurationMs:    duration.Milliseconds(),
	}
	if genErr != nil {
		rec.ErrorMessage = genErr.Error()
	}

	// the record outlives a caller that has already gone away
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalWriteTimeout)
	defer cancel()

	operation := func() error {
		err := s.journal.Create(writeCtx, rec)
		if err != nil && !journal.IsTemporaryError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), journalMaxRetries)
	if err := backoff.Retry(operation, backoff.WithContext(policy, writeCtx)); err != nil {
		s.logger.Warn("Failed to record generation",
			zap.String("correlation_id", req.CorrelationID),
			zap.Error(err))
	}
}

// handleStoryReceived handles StoryReceived events from the front ends
func (s *Service) handleStoryReceived(event events.StoryReceived) {
	s.logger.Info("Handling StoryReceived event",
		zap.String("correlationID", event.CorrelationID),
		zap.String("source", event.Source),
		zap.String("chatID", event.ChatID),
		zap.Int("storyChars", len(event.Story)))

	req := Request{
		CorrelationID: event.CorrelationID,
		Source:        event.Source,
		UserID:        event.UserID,
		ChatID:        event.ChatID,
		Story:         event.Story,
	}

	onProgress := func(p engine.InitProgress) {
		err := s.eventBus.Publish(events.TopicGenerationProgress, events.EngineProgress{
			Event:    events.NewEventWithCorrelation(event.CorrelationID),
			ModelID:  s.generator.Model().Name,
			Text:     p.Text,
			Progress: p.Progress,
			ChatID:   event.ChatID,
		})
		if err != nil {
			s.logger.Warn("Failed to publish generation progress", zap.Error(err))
		}
	}

	generated, err := s.Run(context.Background(), req, onProgress)
	if err != nil {
		s.logger.Error("Generation failed",
			zap.String("correlationID", event.CorrelationID),
			zap.Error(err))

		failed := events.GenerationFailed{
			Event:   events.NewEventWithCorrelation(event.CorrelationID),
			Source:  event.Source,
			UserID:  event.UserID,
			ChatID:  event.ChatID,
			Reason:  FailureReason(err),
			Message: err.Error(),
		}
		if err := s.eventBus.Publish(events.TopicGenerationFailed, failed); err != nil {
			s.logger.Error("Failed to publish GenerationFailed event", zap.Error(err))
		}
		return
	}

	generatedEvent := events.TasksGenerated{
		Event:  events.NewEventWithCorrelation(event.CorrelationID),
		Source: event.Source,
		UserID: event.UserID,
		ChatID: event.ChatID,
		Model:  s.generator.Model().Name,
		Tasks:  generated,
	}
	if err := s.eventBus.Publish(events.TopicTasksGenerated, generatedEvent); err != nil {
		s.logger.Error("Failed to publish TasksGenerated event", zap.Error(err))
	}
}
