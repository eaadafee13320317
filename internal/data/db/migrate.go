package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/labreport-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&types.Report{},
		&types.HealthParameter{},
		&types.JobRun{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := EnsureParameterIndexes(db); err != nil {
		return err
	}
	return EnsureJobIndexes(db)
}

// EnsureParameterIndexes installs the store-level dedup guard: one
// non-rejected health_parameter per normalized name, across every report.
// Both Postgres and SQLite accept this partial index form.
func EnsureParameterIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_health_parameter_normalized_active
		ON health_parameter (normalized_name)
		WHERE status <> 'rejected';
	`).Error; err != nil {
		return fmt.Errorf("create idx_health_parameter_normalized_active: %w", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_health_parameter_report_normalized
		ON health_parameter (report_id, normalized_name);
	`).Error; err != nil {
		return fmt.Errorf("create idx_health_parameter_report_normalized: %w", err)
	}
	return nil
}

func EnsureJobIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_job_run_status_created
		ON job_run (status, created_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_job_run_status_created: %w", err)
	}
	return nil
}
