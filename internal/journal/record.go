package journal

import (
	"time"

	"story-tasker-api/internal/common"
)

// Status is the outcome of one generation run
type Status string

const (
	StatusSucceeded     Status = "succeeded"
	StatusInvalidFormat Status = "invalid_format"
	StatusEngineFailed  Status = "engine_failed"
	StatusFailed        Status = "failed"
)

// IsValid checks if the Status is one of the known outcomes
func (s Status) IsValid() bool {
	switch s {
	case StatusSucceeded, StatusInvalidFormat, StatusEngineFailed, StatusFailed:
		return true
	default:
		return false
	}
}

// Record is the metadata of one generation run. Story text and task
// titles are never stored.
type Record struct {
	ID            common.ID `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CorrelationID string    `json:"correlation_id" gorm:"type:varchar(36);index"`
	Source        string    `json:"source" gorm:"type:varchar(20);not null"`
	Model         string    `json:"model" gorm:"type:varchar(255);not null"`
	StoryChars    int       `json:"story_chars" gorm:"not null"`
	Status        Status    `json:"status" gorm:"type:varchar(20);not null"`
	TaskCount     int       `json:"task_count" gorm:"not null;default:0"`
	DurationMs    int64     `json:"duration_ms" gorm:"not null"`
	ErrorMessage  string    `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at" gorm:"type:timestamp;not null"`
}

// TableName overrides the GORM table name
func (Record) TableName() string {
	return "generation_records"
}

// Stats summarizes journal records by outcome
type Stats struct {
	Total    int64            `json:"total"`
	ByStatus map[Status]int64 `json:"by_status"`
}

// NewStats builds Stats from per-status counts
func NewStats(counts map[Status]int64) Stats {
	stats := Stats{ByStatus: make(map[Status]int64, len(counts))}
	for status, n := range counts {
		stats.ByStatus[status] = n
		stats.Total += n
	}
	return stats
}

// prepare fills ID and CreatedAt and checks the fields every store requires
func (r *Record) prepare(now time.Time) error {
	if !r.Status.IsValid() {
		return NewRecordValidationError("status", r.Status, "unknown status")
	}
	if r.Source == "" {
		return NewRecordValidationError("source", r.Source, "source is required")
	}
	if r.StoryChars < 0 || r.TaskCount < 0 || r.DurationMs < 0 {
		return NewRecordValidationError("counts", r, "counts must not be negative")
	}
	if r.ID == "" {
		r.ID = common.NewID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now.UTC()
	}
	return nil
}
