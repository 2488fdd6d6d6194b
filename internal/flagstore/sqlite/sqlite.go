// Package sqlitestore implements the flagstore.Backend interface using an
// in-memory SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend via composition; the only SQLite-specific
// concerns are creating the in-memory DB and the dump loop.
package sqlitestore

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/zerolog"

	"github.com/fitvtt/attrition/internal/config"
	"github.com/fitvtt/attrition/internal/database"
	"github.com/fitvtt/attrition/internal/flagstore/gormstore"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstore.Backend
	mgr      *database.Manager
	cfg      config.SqliteConfig
	log      *slog.Logger
	stopChan chan struct{}
}

// New creates a new SQLite flag backend on an in-memory database.
func New(cfg config.SqliteConfig, log *slog.Logger, dbLog zerolog.Logger) (*Backend, error) {
	mgr := database.NewManager(dbLog)
	db, err := mgr.GetSqliteDB("")
	if err != nil {
		return nil, fmt.Errorf("creating in-memory SQLite DB: %w", err)
	}
	mgr.DB = db
	mgr.IsValid = true
	mgr.ShouldSaveLocal = true
	mgr.SqliteFilePath = cfg.DumpPath

	return &Backend{
		Backend:  gormstore.New(db, log),
		mgr:      mgr,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, flushes the embedded backend and writes a
// final dump so nothing sits only in memory.
func (b *Backend) Close() error {
	close(b.stopChan)
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.cfg.DumpPath != "" {
		if err := b.mgr.DumpMemoryToDisk(); err != nil {
			return fmt.Errorf("final dump: %w", err)
		}
	}
	return nil
}

// dumpLoop periodically dumps the in-memory database to disk. VACUUM INTO
// takes a point-in-time snapshot, so writes never pause.
func (b *Backend) dumpLoop() {
	ticker := time.NewTicker(time.Duration(b.cfg.DumpInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Flush(); err != nil {
				b.log.Error("flushing before dump", "error", err)
				continue
			}
			if err := b.mgr.DumpMemoryToDisk(); err != nil {
				b.log.Error("dumping to disk", "error", err)
			} else {
				b.log.Debug("dumped to disk", "took", time.Since(start).String())
			}
		}
	}
}
