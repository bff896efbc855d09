package events

import (
	"time"

	"story-tasker-api/internal/tasks"

	"github.com/google/uuid"
)

// Event represents the base event structure with common fields
type Event struct {
	CorrelationID string    `json:"correlation_id" validate:"required"`
	Timestamp     time.Time `json:"timestamp" validate:"required"`
}

// NewEvent creates a new base event with generated correlation ID
func NewEvent() Event {
	return Event{
		CorrelationID: uuid.New().String(),
		Timestamp:     time.Now(),
	}
}

// NewEventWithCorrelation creates a base event that continues an existing flow
func NewEventWithCorrelation(correlationID string) Event {
	if correlationID == "" {
		return NewEvent()
	}
	return Event{
		CorrelationID: correlationID,
		Timestamp:     time.Now(),
	}
}

// Sources of a story
const (
	SourceHTTP     = "http"
	SourceTelegram = "telegram"
)

// StoryReceived is published when a front end accepts a story for generation
type StoryReceived struct {
	Event
	Source string `json:"source" validate:"required"`
	UserID string `json:"user_id"`
	ChatID string `json:"chat_id"`
	Story  string `json:"story" validate:"required"`
}

// EngineProgress mirrors an engine initialization progress report. It is
// published on TopicEngineProgress for diagnostics and on
// TopicGenerationProgress, with the run's correlation and chat ids, for the
// front end that started a generation.
type EngineProgress struct {
	Event
	ModelID  string  `json:"model_id"`
	Text     string  `json:"text"`
	Progress float64 `json:"progress"`
	ChatID   string  `json:"chat_id,omitempty"`
}

// TasksGenerated is published when a story produced a valid task batch
type TasksGenerated struct {
	Event
	Source string       `json:"source" validate:"required"`
	UserID string       `json:"user_id"`
	ChatID string       `json:"chat_id"`
	Model  string       `json:"model"`
	Tasks  []tasks.Task `json:"tasks"`
}

// GenerationFailed is published when a story could not be turned into tasks.
// No partial task list is ever attached.
type GenerationFailed struct {
	Event
	Source  string `json:"source" validate:"required"`
	UserID  string `json:"user_id"`
	ChatID  string `json:"chat_id"`
	Reason  string `json:"reason" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// Failure reasons carried by GenerationFailed
const (
	ReasonInvalidInput  = "invalid_input"
	ReasonInvalidFormat = "invalid_format"
	ReasonEngineFailed  = "engine_failed"
	ReasonInternal      = "internal"
)

// Event topics constants
const (
	TopicStoryReceived      = "story.received"
	TopicEngineProgress     = "engine.progress"
	TopicGenerationProgress = "generation.progress"
	TopicTasksGenerated     = "tasks.generated"
	TopicGenerationFailed   = "generation.failed"
)
