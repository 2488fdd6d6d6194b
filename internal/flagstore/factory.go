package flagstore

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/fitvtt/attrition/internal/config"
	"github.com/fitvtt/attrition/internal/flagstore/memory"
	pgstore "github.com/fitvtt/attrition/internal/flagstore/postgres"
	sqlitestore "github.com/fitvtt/attrition/internal/flagstore/sqlite"
)

var (
	_ Backend = (*memory.Backend)(nil)
	_ Backend = (*sqlitestore.Backend)(nil)
	_ Backend = (*pgstore.Backend)(nil)
	_ Flusher = (*sqlitestore.Backend)(nil)
	_ Flusher = (*pgstore.Backend)(nil)
)

// NewBackend creates a flag backend based on configuration.
func NewBackend(cfg config.StorageConfig, log *slog.Logger, dbLog zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return pgstore.New(cfg.Sqlite, log, dbLog)
	case "sqlite":
		return sqlitestore.New(cfg.Sqlite, log, dbLog)
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
