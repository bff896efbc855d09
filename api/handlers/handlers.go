package handlers

import (
	"context"
	"errors"
	"net/http"

	"story-tasker-api/internal/engine"
	"story-tasker-api/internal/generation"
	"story-tasker-api/internal/journal"
	"story-tasker-api/internal/tasks"

	"github.com/gin-gonic/gin"
)

const serviceName = "story-tasker-api"

// TaskRunner runs one generation for a story
type TaskRunner interface {
	Run(ctx context.Context, req generation.Request, onProgress engine.ProgressFunc) ([]tasks.Task, error)
	Model() engine.ModelInfo
}

// EngineController exposes the lifecycle of the managed engine
type EngineController interface {
	EnsureEngine(ctx context.Context, onProgress engine.ProgressFunc) (engine.Engine, error)
	Status() engine.Status
}

// JournalReader reads generation records
type JournalReader interface {
	ListRecent(ctx context.Context, limit int) ([]journal.Record, error)
	CountByStatus(ctx context.Context) (map[journal.Status]int64, error)
}

// StatusForError maps a generation error to an HTTP status code
func StatusForError(err error) int {
	switch {
	case generation.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, generation.ErrInvalidFormat):
		return http.StatusUnprocessableEntity
	case engine.IsEngineInitError(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(StatusForError(err), gin.H{"error": err.Error()})
}
