package config

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"krypto_store/internal/models"
)

// OpenDB connects to the configured database and migrates the tables the
// snapshot store and operator logins live in.
func OpenDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.StorageDriver {
	case "postgres":
		pg := cfg.Postgres
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
			pg.Host, pg.User, pg.Password, pg.Name, pg.Port, pg.SSLMode, pg.TimeZone,
		)
		dialector = postgres.Open(dsn)
	case "sqlite", "redis":
		// Operator logins stay in sqlite when snapshots go to redis.
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	return Open(dialector)
}

// Open opens dialector and runs the migrations.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&models.Operator{}, &models.AccountSnapshot{}, &models.Setting{}); err != nil {
		return nil, fmt.Errorf("auto-migration failed: %w", err)
	}
	return db, nil
}
