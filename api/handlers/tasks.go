package handlers

import (
	"context"
	"net/http"
	"time"

	"story-tasker-api/api/middleware"
	"story-tasker-api/internal/engine"
	"story-tasker-api/internal/events"
	"story-tasker-api/internal/generation"
	"story-tasker-api/internal/tasks"
	"story-tasker-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// progressBuffer bounds the progress reports queued for a slow stream reader;
// reports beyond it are dropped
const progressBuffer = 64

type generateRequest struct {
	Story string `json:"story"`
}

type streamResult struct {
	tasks []tasks.Task
	err   error
}

// TaskHandler serves story to task generation over HTTP
type TaskHandler struct {
	runner         TaskRunner
	requestTimeout time.Duration
	logger         *logger.Logger
}

// NewTaskHandler creates a TaskHandler. A zero requestTimeout disables the deadline.
func NewTaskHandler(runner TaskRunner, requestTimeout time.Duration, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		runner:         runner,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}

// Generate handles POST /api/v1/tasks/generate
func (h *TaskHandler) Generate(c *gin.Context) {
	log := middleware.Logger(c, h.logger)

	req, ok := h.bind(c, log)
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	generated, err := h.runner.Run(ctx, req, nil)
	if err != nil {
		log.Warnw("Task generation failed", "correlation_id", req.CorrelationID, "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": nonNil(generated),
		"model": h.runner.Model().Name,
	})
}

// Stream handles POST /api/v1/tasks/generate/stream. It emits "progress"
// events while the engine is prepared, then exactly one "tasks" or "error" event.
func (h *TaskHandler) Stream(c *gin.Context) {
	log := middleware.Logger(c, h.logger)

	req, ok := h.bind(c, log)
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	progress := make(chan engine.InitProgress, progressBuffer)
	done := make(chan streamResult, 1)

	go func() {
		generated, err := h.runner.Run(ctx, req, func(p engine.InitProgress) {
			select {
			case progress <- p:
			default:
			}
		})
		done <- streamResult{tasks: generated, err: err}
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for {
		select {
		case p := <-progress:
			c.SSEvent("progress", p)
			c.Writer.Flush()
		case res := <-done:
			// progress is always reported before Run returns
			for drained := false; !drained; {
				select {
				case p := <-progress:
					c.SSEvent("progress", p)
				default:
					drained = true
				}
			}
			if res.err != nil {
				log.Warnw("Streamed task generation failed", "correlation_id", req.CorrelationID, "error", res.err)
				c.SSEvent("error", gin.H{
					"error":  res.err.Error(),
					"status": StatusForError(res.err),
				})
			} else {
				c.SSEvent("tasks", gin.H{
					"tasks": nonNil(res.tasks),
					"model": h.runner.Model().Name,
				})
			}
			c.Writer.Flush()
			return
		}
	}
}

func (h *TaskHandler) bind(c *gin.Context, log *logger.Logger) (generation.Request, bool) {
	var body generateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		log.Warnw("Invalid generate request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return generation.Request{}, false
	}
	return generation.Request{
		CorrelationID: middleware.RequestID(c),
		Source:        events.SourceHTTP,
		Story:         body.Story,
	}, true
}

func (h *TaskHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.requestTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.requestTimeout)
}

func nonNil(list []tasks.Task) []tasks.Task {
	if list == nil {
		return []tasks.Task{}
	}
	return list
}
