package db

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oggyb/cardlink/internal/config"
	"github.com/oggyb/cardlink/internal/logger"
)

const slowQuery = 200 * time.Millisecond

// NewDB opens the configured database, sizes the pool and migrates the schema.
// SQL traces go through log.
func NewDB(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DB.DSN)
	case "mysql", "":
		dialector = mysql.Open(cfg.DB.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DB.Driver)
	}

	level := gormlogger.Warn
	if cfg.App.ENV == "development" {
		level = gormlogger.Info
	}

	database, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGorm(log, level, slowQuery),
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.DB.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := Migrate(database); err != nil {
		return nil, err
	}
	return database, nil
}

// Migrate ensures the schema is in sync with the models.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
