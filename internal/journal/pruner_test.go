package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"story-tasker-api/internal/common"
	"story-tasker-api/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewPruner_Validation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	repo := NewMemoryRepository()

	tests := []struct {
		name    string
		cfg     PrunerConfig
		wantErr bool
	}{
		{"valid", PrunerConfig{Interval: time.Minute, Retention: time.Hour}, false},
		{"zero interval", PrunerConfig{Retention: time.Hour}, true},
		{"zero retention", PrunerConfig{Interval: time.Minute}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPruner(tt.cfg, repo, logger)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.False(t, p.IsRunning())
		})
	}
}

func TestPrunerConfigFromConfig(t *testing.T) {
	cfg := PrunerConfigFromConfig(config.JournalConfig{
		Retention:       168,
		PruneInterval:   3600,
		ShutdownTimeout: 5,
	})

	assert.Equal(t, 7*24*time.Hour, cfg.Retention)
	assert.Equal(t, time.Hour, cfg.Interval)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestPruner_PruneOnceUsesRetentionWindow(t *testing.T) {
	now := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord(StatusSucceeded, now.Add(-25*time.Hour))))
	require.NoError(t, repo.Create(ctx, newRecord(StatusFailed, now.Add(-23*time.Hour))))

	p, err := NewPruner(PrunerConfig{Interval: time.Hour, Retention: 24 * time.Hour}, repo, zaptest.NewLogger(t))
	require.NoError(t, err)
	p.WithClock(common.NewMockClock(now))

	deleted, err := p.PruneOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, repo.Len())

	metrics := p.Metrics()
	assert.Equal(t, int64(1), metrics.Runs)
	assert.Equal(t, int64(1), metrics.RecordsDeleted)
	assert.Equal(t, now, metrics.LastRunAt)
}

func TestPruner_PruneOnceRecordsErrors(t *testing.T) {
	repo := NewMemoryRepository()
	repo.SetDeleteError(errors.New("database unavailable"))

	p, err := NewPruner(PrunerConfig{Interval: time.Hour, Retention: time.Hour}, repo, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = p.PruneOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int64(1), p.Metrics().Errors)
}

func TestPruner_StartStop(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newRecord(StatusSucceeded, time.Now().Add(-48*time.Hour))))

	p, err := NewPruner(PrunerConfig{
		Interval:        10 * time.Millisecond,
		Retention:       24 * time.Hour,
		ShutdownTimeout: time.Second,
	}, repo, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, p.Start(ctx))
	assert.True(t, p.IsRunning())

	err = p.Start(ctx)
	var stateErr PrunerStateError
	require.ErrorAs(t, err, &stateErr)

	require.Eventually(t, func() bool {
		return p.Metrics().Runs >= 2
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, repo.Len())

	require.NoError(t, p.Stop())
	assert.False(t, p.IsRunning())
	assert.Error(t, p.Stop())
}

func TestPruner_StopsWhenParentContextCancelled(t *testing.T) {
	p, err := NewPruner(PrunerConfig{Interval: 10 * time.Millisecond, Retention: time.Hour}, NewMemoryRepository(), zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Start(ctx))
	cancel()

	// Stop still succeeds once the worker has already exited
	require.NoError(t, p.Stop())
}
