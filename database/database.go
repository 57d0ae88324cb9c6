package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"example.com/hospital/services/emr/config"
	"example.com/hospital/services/emr/models"
)

// Connect establishes a connection to the database. TranslateError is
// required: the event store relies on gorm.ErrDuplicatedKey to detect
// version conflicts.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// AutoMigrate creates or updates all tables the core owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Event{},
		&models.Projection{},
		&models.ProjectionFoldError{},
		&models.PatientReadModel{},
		&models.AppointmentReadModel{},
		&models.ClinicalNoteReadModel{},
		&models.BillingReadModel{},
		&models.AnalyticsReadModel{},
	)
}
