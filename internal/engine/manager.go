package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"story-tasker-api/internal/common"

	"go.uber.org/zap"
)

// State describes where the managed engine is in its lifecycle
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateFailed       State = "failed"
)

// Status is a point-in-time snapshot of the managed engine
type Status struct {
	State        State        `json:"state"`
	ModelID      string       `json:"model_id"`
	Backend      string       `json:"backend"`
	LastProgress InitProgress `json:"last_progress"`
	LastError    string       `json:"last_error,omitempty"`
	ReadySince   *time.Time   `json:"ready_since,omitempty"`
	Attempts     int          `json:"attempts"`
}

// Manager owns the single engine instance for a pinned model. Concurrent
// callers share one construction; only a successful construction is kept.
type Manager struct {
	factory   Factory
	modelID   string
	runtime   RuntimeConfig
	publisher ProgressPublisher
	clock     common.Clock
	logger    *zap.Logger

	mu       sync.Mutex
	engine   Engine
	inflight *construction
	status   Status
}

type construction struct {
	done      chan struct{}
	engine    Engine
	err       error
	observers []*observer
}

type observer struct {
	fn ProgressFunc
}

// ManagerOption customizes a Manager
type ManagerOption func(*Manager)

// WithProgressPublisher sets the ambient progress channel
func WithProgressPublisher(p ProgressPublisher) ManagerOption {
	return func(m *Manager) {
		m.publisher = p
	}
}

// WithClock sets the clock used for status timestamps
func WithClock(c common.Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = c
	}
}

// NewManager creates a manager for modelID. No engine is built until the
// first EnsureEngine call.
func NewManager(factory Factory, modelID string, runtime RuntimeConfig, logger *zap.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		factory:   factory,
		modelID:   modelID,
		runtime:   runtime,
		publisher: NopProgressPublisher{},
		clock:     common.NewRealClock(),
		logger:    logger,
		status: Status{
			State:   StateIdle,
			ModelID: modelID,
			Backend: factory.Backend(),
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ModelInfo returns the pinned model and its backend
func (m *Manager) ModelInfo() ModelInfo {
	return ModelInfo{Name: m.modelID, Backend: m.factory.Backend()}
}

// EnsureEngine returns the ready engine, constructing it on first use.
//
// A caller arriving after success gets exactly one ReadyProgress report.
// A caller arriving while construction is in flight waits for it and
// receives the remaining progress reports. Construction itself is detached
// from ctx: cancelling ctx only stops this caller from waiting.
func (m *Manager) EnsureEngine(ctx context.Context, onProgress ProgressFunc) (Engine, error) {
	m.mu.Lock()
	if m.engine != nil {
		eng := m.engine
		m.mu.Unlock()
		notify(m.logger, onProgress, ReadyProgress)
		return eng, nil
	}

	c := m.inflight
	if c == nil {
		c = &construction{done: make(chan struct{})}
		m.inflight = c
		m.status.State = StateInitializing
		m.status.LastError = ""
		m.status.LastProgress = InitProgress{}
		m.status.Attempts++
		m.logger.Info("Starting engine construction",
			zap.String("model", m.modelID),
			zap.String("backend", m.factory.Backend()),
			zap.Int("attempt", m.status.Attempts))
		go m.construct(context.WithoutCancel(ctx), c)
	}

	var obs *observer
	if onProgress != nil {
		obs = &observer{fn: onProgress}
		c.observers = append(c.observers, obs)
	}
	m.mu.Unlock()

	select {
	case <-c.done:
	case <-ctx.Done():
		m.detach(c, obs)
		return nil, ctx.Err()
	}

	if c.err != nil {
		return nil, c.err
	}
	return c.engine, nil
}

// Status returns a snapshot of the engine lifecycle
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.status
	if s.ReadySince != nil {
		t := *s.ReadySince
		s.ReadySince = &t
	}
	return s
}

// Ready reports whether an engine has been constructed
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine != nil
}

func (m *Manager) construct(ctx context.Context, c *construction) {
	start := m.clock.Now()

	eng, err := m.create(ctx, c)
	if err == nil && eng == nil {
		err = errors.New("factory returned no engine")
	}
	if err != nil {
		err = NewEngineInitError(m.modelID, err)
	}

	m.mu.Lock()
	c.engine, c.err = eng, err
	m.inflight = nil
	observers := append([]*observer(nil), c.observers...)
	if err == nil {
		now := m.clock.Now()
		m.engine = eng
		m.status.State = StateReady
		m.status.ReadySince = &now
		m.status.LastProgress = ReadyProgress
	} else {
		m.status.State = StateFailed
		m.status.LastError = err.Error()
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("Engine construction failed",
			zap.String("model", m.modelID),
			zap.Duration("elapsed", m.clock.Now().Sub(start)),
			zap.Error(err))
	} else {
		m.logger.Info("Engine ready",
			zap.String("model", m.modelID),
			zap.Duration("elapsed", m.clock.Now().Sub(start)))
		for _, o := range observers {
			notify(m.logger, o.fn, ReadyProgress)
		}
		m.publish(ReadyProgress)
	}

	close(c.done)
}

// create runs the factory, converting a panic into an error so waiters are
// always released.
func (m *Manager) create(ctx context.Context, c *construction) (eng Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			eng, err = nil, fmt.Errorf("engine factory panicked: %v", r)
		}
	}()
	return m.factory.CreateEngine(ctx, m.modelID, m.runtime, func(p InitProgress) {
		m.report(c, p)
	})
}

func (m *Manager) report(c *construction, p InitProgress) {
	p = normalize(p)

	m.mu.Lock()
	m.status.LastProgress = p
	observers := append([]*observer(nil), c.observers...)
	m.mu.Unlock()

	for _, o := range observers {
		notify(m.logger, o.fn, p)
	}
	m.publish(p)
}

func (m *Manager) publish(p InitProgress) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("Progress publisher panicked", zap.Any("panic", r))
		}
	}()
	m.publisher.PublishProgress(m.modelID, p)
}

func (m *Manager) detach(c *construction, obs *observer) {
	if obs == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range c.observers {
		if o == obs {
			c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
			return
		}
	}
}
