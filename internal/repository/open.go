package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Clark-Hu/tutor-ratings/internal/config"
	"github.com/Clark-Hu/tutor-ratings/internal/store"
)

// Open builds the repository for the configured backend. For the postgres
// backend it also returns the underlying store, which the caller must close;
// migrations are applied when migrate is set. For the file backend the
// returned store is nil.
func Open(ctx context.Context, cfg config.Config, migrate bool, logger *log.Logger) (*Repository, *store.Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	switch cfg.StorageBackend {
	case config.BackendFile:
		logger.Printf("storage: json documents in %s", cfg.DataDir)
		return NewFile(cfg.DataDir, cfg.RatingsFile, cfg.TutorsFile), nil, nil
	case config.BackendPostgres:
		st, err := store.New(ctx, cfg.DBURL, StoreOptions(cfg, logger))
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if migrate {
			if err := st.Migrate(ctx); err != nil {
				st.Close()
				return nil, nil, err
			}
		}
		logger.Printf("storage: postgres")
		return New(st), st, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// StoreOptions maps the pool settings from cfg.
func StoreOptions(cfg config.Config, logger *log.Logger) store.Options {
	return store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}
}
