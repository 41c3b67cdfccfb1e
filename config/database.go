package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/saeed-rahimi/ss/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// ConnectDatabase opens the database named by cfg.DatabaseURL.
// URLs starting with "sqlite:" or "file:" use SQLite, everything else PostgreSQL.
func ConnectDatabase(cfg *Config) error {
	logLevel := logger.Warn
	if cfg.IsTest() {
		logLevel = logger.Silent
	}

	db, err := gorm.Open(Dialector(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	DB = db
	slog.Info("database connection established", slog.String("driver", db.Dialector.Name()))
	return nil
}

// Dialector picks the gorm driver for a database URL.
func Dialector(databaseURL string) gorm.Dialector {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite:"))
	case strings.HasPrefix(databaseURL, "file:"), databaseURL == ":memory:":
		return sqlite.Open(databaseURL)
	default:
		return postgres.Open(databaseURL)
	}
}

// Migrate creates or updates every table the API uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Job{},
		&models.Applicant{},
		&models.Message{},
		&models.Review{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// SetDB replaces the database instance (primarily for testing)
func SetDB(db *gorm.DB) {
	DB = db
}
