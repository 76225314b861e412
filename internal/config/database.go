package config

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"check-review-gateway/internal/models"
)

// InitDB opens the audit database and migrates the audit table.
func InitDB(cfg DatabaseConfig) (*gorm.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("AUDIT_DATABASE_URL is required")
	}

	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	if err := db.AutoMigrate(&models.SubmissionAudit{}); err != nil {
		return nil, fmt.Errorf("migrate audit table: %w", err)
	}
	return db, nil
}
