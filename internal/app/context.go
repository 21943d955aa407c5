package app

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/auth"
	"github.com/oggyb/cardlink/internal/cache"
	"github.com/oggyb/cardlink/internal/config"
	"github.com/oggyb/cardlink/internal/storage"
)

// AppContext holds shared dependencies (config, DB, Redis, Logger, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Tokens     *auth.Issuer

	// Proofs is nil when object storage is not configured.
	Proofs *storage.ProofStore

	// Now is the service clock. Tests pin it; production uses UTC wall time.
	Now func() time.Time
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Tokens:     auth.NewIssuer(cfg.Auth),
		Now:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}
