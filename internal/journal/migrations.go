package journal

import (
	"fmt"

	"gorm.io/gorm"
)

// RunMigrations performs auto-migration for the journal tables
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("failed to auto-migrate journal tables: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_generation_records_created_at ON generation_records(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_generation_records_status ON generation_records(status)",
		"CREATE INDEX IF NOT EXISTS idx_generation_records_correlation_id ON generation_records(correlation_id)",
		"CREATE INDEX IF NOT EXISTS idx_generation_records_status_created ON generation_records(status, created_at)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create journal index: %w", err)
		}
	}
	return nil
}

// DropTables drops the journal tables (for testing cleanup)
func DropTables(db *gorm.DB) error {
	if err := db.Exec("DROP TABLE IF EXISTS generation_records CASCADE").Error; err != nil {
		return fmt.Errorf("failed to drop table generation_records: %w", err)
	}
	return nil
}

// ValidateMigrations checks that the journal table and its key indexes exist
func ValidateMigrations(db *gorm.DB) error {
	var exists bool
	err := db.Raw("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = ?)", "generation_records").Scan(&exists).Error
	if err != nil {
		return fmt.Errorf("failed to check table existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("required table generation_records does not exist")
	}

	for _, index := range []string{"idx_generation_records_created_at", "idx_generation_records_status"} {
		err := db.Raw("SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = ?)", index).Scan(&exists).Error
		if err != nil {
			return fmt.Errorf("failed to check index existence for %s: %w", index, err)
		}
		if !exists {
			return fmt.Errorf("required index %s does not exist", index)
		}
	}

	return nil
}

// MigrateWithValidation runs migrations and validates the result
func MigrateWithValidation(db *gorm.DB) error {
	if err := RunMigrations(db); err != nil {
		return err
	}
	if err := ValidateMigrations(db); err != nil {
		return fmt.Errorf("migration validation failed: %w", err)
	}
	return nil
}
