package journal

import (
	"context"
	"sort"
	"sync"
	"time"

	"story-tasker-api/internal/common"
)

// MemoryRepository keeps records in process memory. It backs the journal
// when the database is disabled and doubles as a test fake.
type MemoryRepository struct {
	mu          sync.RWMutex
	records     []Record
	clock       common.Clock
	createError error
	listError   error
	deleteError error
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{clock: common.NewRealClock()}
}

// WithClock sets the clock used for CreatedAt defaults
func (m *MemoryRepository) WithClock(clock common.Clock) *MemoryRepository {
	m.clock = clock
	return m
}

// SetCreateError makes every Create fail with err
func (m *MemoryRepository) SetCreateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createError = err
}

// SetListError makes ListRecent and CountByStatus fail with err
func (m *MemoryRepository) SetListError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listError = err
}

// SetDeleteError makes DeleteOlderThan fail with err
func (m *MemoryRepository) SetDeleteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteError = err
}

func (m *MemoryRepository) Create(ctx context.Context, record *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createError != nil {
		return m.createError
	}
	if err := record.prepare(m.clock.Now()); err != nil {
		return err
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *MemoryRepository) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.listError != nil {
		return nil, m.listError
	}

	out := make([]Record, len(m.records))
	copy(out, m.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if n := normalizeLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *MemoryRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.listError != nil {
		return nil, m.listError
	}

	counts := make(map[Status]int64)
	for _, r := range m.records {
		counts[r.Status]++
	}
	return counts, nil
}

func (m *MemoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteError != nil {
		return 0, m.deleteError
	}

	kept := m.records[:0]
	var deleted int64
	for _, r := range m.records {
		if r.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return deleted, nil
}

// Len returns the number of stored records
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
