package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"story-tasker-api/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(status Status, createdAt time.Time) *Record {
	return &Record{
		CorrelationID: "corr-" + string(status),
		Source:        "http",
		Model:         "llama3.2:1b-instruct-q4_K_M",
		StoryChars:    120,
		Status:        status,
		TaskCount:     6,
		DurationMs:    850,
		CreatedAt:     createdAt,
	}
}

func TestMemoryRepository_CreateAssignsDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository().WithClock(common.NewMockClock(now))

	record := newRecord(StatusSucceeded, time.Time{})
	require.NoError(t, repo.Create(context.Background(), record))

	assert.True(t, record.ID.IsValid())
	assert.Equal(t, now, record.CreatedAt)
	assert.Equal(t, 1, repo.Len())
}

func TestMemoryRepository_CreateRejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"unknown status", func(r *Record) { r.Status = "exploded" }},
		{"missing source", func(r *Record) { r.Source = "" }},
		{"negative task count", func(r *Record) { r.TaskCount = -1 }},
		{"negative duration", func(r *Record) { r.DurationMs = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMemoryRepository()
			record := newRecord(StatusSucceeded, time.Now())
			tt.mutate(record)

			err := repo.Create(context.Background(), record)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.False(t, IsTemporaryError(err))
			assert.Zero(t, repo.Len())
		})
	}
}

func TestMemoryRepository_ListRecentNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newRecord(StatusSucceeded, base.Add(time.Duration(i)*time.Hour))))
	}

	records, err := repo.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, base.Add(4*time.Hour), records[0].CreatedAt)
	assert.Equal(t, base.Add(3*time.Hour), records[1].CreatedAt)
	assert.Equal(t, base.Add(2*time.Hour), records[2].CreatedAt)

	all, err := repo.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestMemoryRepository_CountByStatus(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now()

	for _, status := range []Status{StatusSucceeded, StatusSucceeded, StatusInvalidFormat, StatusEngineFailed} {
		require.NoError(t, repo.Create(ctx, newRecord(status, now)))
	}

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[Status]int64{
		StatusSucceeded:     2,
		StatusInvalidFormat: 1,
		StatusEngineFailed:  1,
	}, counts)

	stats := NewStats(counts)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(2), stats.ByStatus[StatusSucceeded])
}

func TestMemoryRepository_DeleteOlderThan(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	cutoff := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newRecord(StatusSucceeded, cutoff.Add(-48*time.Hour))))
	require.NoError(t, repo.Create(ctx, newRecord(StatusFailed, cutoff.Add(-time.Minute))))
	require.NoError(t, repo.Create(ctx, newRecord(StatusSucceeded, cutoff)))
	require.NoError(t, repo.Create(ctx, newRecord(StatusSucceeded, cutoff.Add(time.Hour))))

	deleted, err := repo.DeleteOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Equal(t, 2, repo.Len())
}

func TestMemoryRepository_InjectedErrors(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	boom := errors.New("boom")

	repo.SetCreateError(boom)
	assert.ErrorIs(t, repo.Create(ctx, newRecord(StatusSucceeded, time.Now())), boom)

	repo.SetListError(boom)
	_, err := repo.ListRecent(ctx, 10)
	assert.ErrorIs(t, err, boom)
	_, err = repo.CountByStatus(ctx)
	assert.ErrorIs(t, err, boom)

	repo.SetDeleteError(boom)
	_, err = repo.DeleteOlderThan(ctx, time.Now())
	assert.ErrorIs(t, err, boom)
}

func TestWrapRepositoryError(t *testing.T) {
	assert.NoError(t, WrapRepositoryError(nil, "noop"))

	cause := errors.New("connection reset")
	err := WrapRepositoryError(cause, "create record")
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsTemporaryError(err))
	assert.Contains(t, err.Error(), "create record")
}
