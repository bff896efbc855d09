package engine

import (
	"math"

	"story-tasker-api/internal/events"

	"go.uber.org/zap"
)

// ProgressFunc observes engine initialization progress. Observers are
// notify-and-ignore: a panicking observer never affects construction.
type ProgressFunc func(InitProgress)

// ReadyProgress is the single report delivered to callers that find the
// engine already constructed.
var ReadyProgress = InitProgress{Text: "Ready", Progress: 1}

// Factories report within [0, LoadingProgress]; only the manager reports 1,
// once the engine is actually usable.
const (
	DownloadedProgress = 0.9
	LoadingProgress    = 0.95
)

// ProgressPublisher surfaces initialization progress on an ambient
// diagnostic channel. Failures are logged and otherwise ignored.
type ProgressPublisher interface {
	PublishProgress(modelID string, p InitProgress)
}

// ClampProgress bounds a progress fraction to [0, 1]. NaN maps to 0.
func ClampProgress(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func normalize(p InitProgress) InitProgress {
	p.Progress = ClampProgress(p.Progress)
	return p
}

// notify delivers p to fn, discarding any panic raised by the observer
func notify(logger *zap.Logger, fn ProgressFunc, p InitProgress) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Progress observer panicked",
				zap.Any("panic", r),
				zap.String("text", p.Text))
		}
	}()
	fn(p)
}

// BusProgressPublisher publishes progress reports as EngineProgress events
type BusProgressPublisher struct {
	bus    events.EventBus
	logger *zap.Logger
}

// NewBusProgressPublisher creates a publisher writing to TopicEngineProgress
func NewBusProgressPublisher(bus events.EventBus, logger *zap.Logger) *BusProgressPublisher {
	return &BusProgressPublisher{
		bus:    bus,
		logger: logger,
	}
}

// PublishProgress implements ProgressPublisher
func (p *BusProgressPublisher) PublishProgress(modelID string, progress InitProgress) {
	p.logger.Debug("Engine initialization progress",
		zap.String("model", modelID),
		zap.String("text", progress.Text),
		zap.Float64("progress", progress.Progress))

	event := events.EngineProgress{
		Event:    events.NewEvent(),
		ModelID:  modelID,
		Text:     progress.Text,
		Progress: progress.Progress,
	}
	if err := p.bus.Publish(events.TopicEngineProgress, event); err != nil {
		p.logger.Warn("Failed to publish engine progress", zap.Error(err))
	}
}

// NopProgressPublisher drops every report
type NopProgressPublisher struct{}

// PublishProgress implements ProgressPublisher
func (NopProgressPublisher) PublishProgress(string, InitProgress) {}
