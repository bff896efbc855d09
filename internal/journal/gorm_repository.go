package journal

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// gormRepository implements the Repository interface using GORM
type gormRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormRepository creates a new GORM-based journal repository
func NewGormRepository(db *gorm.DB, logger *zap.Logger) Repository {
	return &gormRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new record
func (r *gormRepository) Create(ctx context.Context, record *Record) error {
	if err := record.prepare(time.Now()); err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return WrapRepositoryError(err, "create record")
	}

	r.logger.Debug("Journal record created",
		zap.String("record_id", record.ID.String()),
		zap.String("status", string(record.Status)))
	return nil
}

// ListRecent returns the newest records first
func (r *gormRepository) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	var records []Record
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(normalizeLimit(limit)).
		Find(&records).Error
	if err != nil {
		return nil, WrapRepositoryError(err, "list recent records")
	}
	return records, nil
}

// CountByStatus groups records by outcome
func (r *gormRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	var rows []struct {
		Status Status
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&Record{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, WrapRepositoryError(err, "count records by status")
	}

	counts := make(map[Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// DeleteOlderThan removes records created before cutoff
func (r *gormRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&Record{})
	if result.Error != nil {
		return 0, WrapRepositoryError(result.Error, "delete old records")
	}

	r.logger.Info("Old journal records deleted",
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted", result.RowsAffected))
	return result.RowsAffected, nil
}
