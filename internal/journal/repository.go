package journal

import (
	"context"
	"time"
)

// List bounds for ListRecent
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Repository stores generation run records
type Repository interface {
	// Create stores a record, assigning ID and CreatedAt when unset
	Create(ctx context.Context, record *Record) error

	// ListRecent returns up to limit records, newest first
	ListRecent(ctx context.Context, limit int) ([]Record, error)

	// CountByStatus returns the number of records per status
	CountByStatus(ctx context.Context) (map[Status]int64, error)

	// DeleteOlderThan removes records created before cutoff and returns how many were removed
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
