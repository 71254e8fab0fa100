package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/database/memory"
	"github.com/kozaktomas/facewatch/internal/database/postgres"
	"github.com/kozaktomas/facewatch/internal/logger"
)

// openStore registers the PostgreSQL backend when DATABASE_URL is set and the
// in-memory backend otherwise. The returned func releases the connection pool.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (database.Store, func(), error) {
	closeFn := func() {}
	if cfg.URL != "" {
		logger.Info("connecting to PostgreSQL database")
		pool, err := postgres.Initialize(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		closeFn = func() {
			if err := pool.Close(); err != nil {
				logger.Warn("failed to close database pool", "error", err)
			}
		}
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage (nothing is persisted)")
		mem := memory.New()
		database.RegisterMemoryBackend(func() database.Store { return mem })
	}

	store, err := database.GetStore()
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return store, closeFn, nil
}
