package journal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"story-tasker-api/internal/common"
	"story-tasker-api/internal/config"

	"go.uber.org/zap"
)

// PrunerConfig controls the retention worker
type PrunerConfig struct {
	Interval        time.Duration
	Retention       time.Duration
	ShutdownTimeout time.Duration
}

// PrunerConfigFromConfig converts the journal section (hours and seconds)
func PrunerConfigFromConfig(cfg config.JournalConfig) PrunerConfig {
	return PrunerConfig{
		Interval:        time.Duration(cfg.PruneInterval) * time.Second,
		Retention:       time.Duration(cfg.Retention) * time.Hour,
		ShutdownTimeout: time.Duration(cfg.ShutdownTimeout) * time.Second,
	}
}

// PrunerMetrics tracks pruning activity
type PrunerMetrics struct {
	Runs           int64     `json:"runs"`
	RecordsDeleted int64     `json:"records_deleted"`
	Errors         int64     `json:"errors"`
	LastRunAt      time.Time `json:"last_run_at"`
}

// Pruner periodically deletes journal records older than the retention window
type Pruner struct {
	config     PrunerConfig
	repository Repository
	clock      common.Clock
	logger     *zap.Logger

	metricsMu sync.Mutex
	metrics   PrunerMetrics

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewPruner creates a pruner; it does nothing until Start
func NewPruner(cfg PrunerConfig, repository Repository, logger *zap.Logger) (*Pruner, error) {
	if cfg.Interval <= 0 {
		return nil, NewRecordValidationError("prune_interval", cfg.Interval, "must be greater than 0")
	}
	if cfg.Retention <= 0 {
		return nil, NewRecordValidationError("retention", cfg.Retention, "must be greater than 0")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	return &Pruner{
		config:     cfg,
		repository: repository,
		clock:      common.NewRealClock(),
		logger:     logger,
	}, nil
}

// Start launches the background worker. One pass runs immediately.
func (p *Pruner) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return PrunerStateError{ErrMessage: "pruner is already running"}
	}

	ctx, p.cancel = context.WithCancel(ctx)

	p.logger.Info("Starting journal pruner",
		zap.Duration("interval", p.config.Interval),
		zap.Duration("retention", p.config.Retention))

	p.wg.Add(1)
	go p.worker(ctx)
	return nil
}

// Stop cancels the worker and waits for it up to the shutdown timeout
func (p *Pruner) Stop() error {
	if !p.running.Load() {
		return PrunerStateError{ErrMessage: "pruner is not running"}
	}

	p.logger.Info("Stopping journal pruner...")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.config.ShutdownTimeout):
		p.logger.Warn("Journal pruner shutdown timed out")
		return PrunerStateError{ErrMessage: "shutdown timeout exceeded"}
	}

	p.running.Store(false)
	p.logger.Info("Journal pruner stopped")
	return nil
}

// IsRunning returns true while the worker is active
func (p *Pruner) IsRunning() bool {
	return p.running.Load()
}

// WithClock sets the clock used to compute the retention cutoff
func (p *Pruner) WithClock(clock common.Clock) *Pruner {
	p.clock = clock
	return p
}

// Metrics returns a snapshot of pruning activity
func (p *Pruner) Metrics() PrunerMetrics {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()
	return p.metrics
}

func (p *Pruner) recordRun(at time.Time, deleted int64, err error) {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()
	p.metrics.Runs++
	p.metrics.LastRunAt = at
	if err != nil {
		p.metrics.Errors++
		return
	}
	p.metrics.RecordsDeleted += deleted
}

// PruneOnce deletes records older than the retention window
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	now := p.clock.Now()
	deleted, err := p.repository.DeleteOlderThan(ctx, now.Add(-p.config.Retention))
	p.recordRun(now, deleted, err)
	return deleted, err
}

func (p *Pruner) worker(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.safePrune(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.safePrune(ctx)
		}
	}
}

// safePrune runs one pass, recovering a panic so the worker keeps ticking
func (p *Pruner) safePrune(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Journal pruner panic recovered", zap.Any("panic", r))
		}
	}()

	deleted, err := p.PruneOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("Failed to prune journal", zap.Error(err))
		}
		return
	}
	if deleted > 0 {
		p.logger.Info("Pruned journal records", zap.Int64("deleted", deleted))
	}
}
