// Package pgstore implements the flagstore.Backend interface on Postgres.
// If the server is unreachable the database manager falls back to an
// in-memory SQLite DB with periodic disk dumps, so a world hosted offline
// still keeps its flags.
package pgstore

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/zerolog"

	"github.com/fitvtt/attrition/internal/config"
	"github.com/fitvtt/attrition/internal/database"
	"github.com/fitvtt/attrition/internal/flagstore/gormstore"
)

// Backend wraps the GORM backend over a managed Postgres connection.
type Backend struct {
	*gormstore.Backend
	mgr      *database.Manager
	cfg      config.SqliteConfig
	log      *slog.Logger
	stopChan chan struct{}
}

// New connects to Postgres, falling back to local SQLite on failure.
// cfg supplies the dump path used only when the fallback engages.
func New(cfg config.SqliteConfig, log *slog.Logger, dbLog zerolog.Logger) (*Backend, error) {
	mgr := database.NewManager(dbLog)
	if err := mgr.Connect(); err != nil {
		return nil, fmt.Errorf("connecting database: %w", err)
	}
	mgr.SqliteFilePath = cfg.DumpPath

	return &Backend{
		Backend:  gormstore.New(mgr.DB, log),
		mgr:      mgr,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend. When running on the SQLite
// fallback it also starts the periodic dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.mgr.ShouldSaveLocal && b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, flushes and closes the connection.
func (b *Backend) Close() error {
	close(b.stopChan)
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.mgr.ShouldSaveLocal && b.cfg.DumpPath != "" {
		if err := b.mgr.DumpMemoryToDisk(); err != nil {
			b.log.Error("final dump", "error", err)
		}
	}
	return b.mgr.Close()
}

func (b *Backend) dumpLoop() {
	ticker := time.NewTicker(time.Duration(b.cfg.DumpInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.log.Error("flushing before dump", "error", err)
				continue
			}
			if err := b.mgr.DumpMemoryToDisk(); err != nil {
				b.log.Error("dumping to disk", "error", err)
			}
		}
	}
}
