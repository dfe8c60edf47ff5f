package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/studytools/internal/config"
	"github.com/phrazzld/studytools/internal/platform/cache"
	"github.com/phrazzld/studytools/internal/platform/memory"
	"github.com/phrazzld/studytools/internal/platform/postgres"
	"github.com/phrazzld/studytools/internal/store"
)

// Stores groups the persistence ports. Tasks is the undecorated store; the
// callers wrap it with change-feed emission as their process needs.
type Stores struct {
	Tasks         store.TaskStore
	Notifications store.NotificationStore
	Documents     store.DocumentStore

	// DB is nil for the memory driver.
	DB *sql.DB
}

// OpenStores builds the stores for cfg.Database.Driver. Document reads go
// through an LRU cache when cfg.Cache.DocumentCacheSize is positive.
func OpenStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stores, error) {
	var s Stores
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("using in-memory stores; state is lost on restart")
		s.Tasks = memory.NewTaskStore()
		s.Notifications = memory.NewNotificationStore()
		s.Documents = memory.NewDocumentStore()
	case "postgres":
		db, err := SetupDatabase(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		s.DB = db
		s.Tasks = postgres.NewPostgresTaskStore(db, logger)
		s.Notifications = postgres.NewPostgresNotificationStore(db, logger)
		s.Documents = postgres.NewPostgresDocumentStore(db)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.Cache.DocumentCacheSize > 0 {
		s.Documents = cache.NewDocumentStore(s.Documents, cfg.Cache.DocumentCacheSize, cfg.Cache.DocumentCacheTTL)
	}
	return &s, nil
}

// Close releases the database pool, if any.
func (s *Stores) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
