// Package gormstore implements the flagstore.Backend interface on a GORM
// database. Reads are served from an in-memory table hydrated at Init;
// writes are queued and flushed in batches, so a failed flush leaves the
// queue intact and the next cycle retries.
package gormstore

import (
	"encoding/json"
	"fmt"
	"sync"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fitvtt/attrition/internal/queue"
	"github.com/fitvtt/attrition/pkg/core"
)

// ActorFlag is one persisted actor/key/value row.
type ActorFlag struct {
	ID      uint   `gorm:"primarykey"`
	ActorID string `gorm:"uniqueIndex:idx_actor_key;size:64"`
	Key     string `gorm:"uniqueIndex:idx_actor_key;size:64"`
	Value   datatypes.JSON
}

// Logger is the minimal logging surface the backend needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Backend is a GORM-backed flag store.
type Backend struct {
	db     *gorm.DB
	log    Logger
	writes *queue.Queue[flagWrite]

	mu    sync.RWMutex
	flags map[core.ActorID]map[string]any
}

type flagWrite struct {
	ActorID core.ActorID
	Key     string
	Value   any
	Unset   bool
}

// New creates a new GORM flag backend.
func New(db *gorm.DB, log Logger) *Backend {
	return &Backend{
		db:     db,
		log:    log,
		writes: queue.New[flagWrite](),
		flags:  make(map[core.ActorID]map[string]any),
	}
}

// Init migrates the schema and hydrates the in-memory table from the DB.
func (b *Backend) Init() error {
	if err := b.db.AutoMigrate(&ActorFlag{}); err != nil {
		return fmt.Errorf("migrating actor_flags: %w", err)
	}

	var rows []ActorFlag
	if err := b.db.Find(&rows).Error; err != nil {
		return fmt.Errorf("loading actor_flags: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, row := range rows {
		id := core.ActorID(row.ActorID)
		if b.flags[id] == nil {
			b.flags[id] = make(map[string]any)
		}
		var v any
		if err := json.Unmarshal(row.Value, &v); err != nil {
			b.log.Error("skipping undecodable flag", "actor", row.ActorID, "key", row.Key, "error", err)
			continue
		}
		b.flags[id][row.Key] = v
	}
	return nil
}

// Close flushes any pending writes.
func (b *Backend) Close() error {
	return b.Flush()
}

// GetFlag returns the stored value for an actor's key.
func (b *Backend) GetFlag(id core.ActorID, key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.flags[id][key]
	return v, ok
}

// SetFlag stores a value and queues the durable write.
func (b *Backend) SetFlag(id core.ActorID, key string, value any) error {
	b.mu.Lock()
	if b.flags[id] == nil {
		b.flags[id] = make(map[string]any)
	}
	b.flags[id][key] = value
	b.mu.Unlock()

	b.writes.Push(flagWrite{ActorID: id, Key: key, Value: value})
	return nil
}

// UnsetFlag removes a key and queues the durable delete.
func (b *Backend) UnsetFlag(id core.ActorID, key string) error {
	b.mu.Lock()
	delete(b.flags[id], key)
	if len(b.flags[id]) == 0 {
		delete(b.flags, id)
	}
	b.mu.Unlock()

	b.writes.Push(flagWrite{ActorID: id, Key: key, Unset: true})
	return nil
}

// ActorFlags returns a copy of all flags stored for an actor.
func (b *Backend) ActorFlags(id core.ActorID) map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(b.flags[id]))
	for k, v := range b.flags[id] {
		out[k] = v
	}
	return out
}

// ActorIDs returns every actor with at least one stored flag.
func (b *Backend) ActorIDs() []core.ActorID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]core.ActorID, 0, len(b.flags))
	for id := range b.flags {
		ids = append(ids, id)
	}
	return ids
}

// PendingWrites returns the number of queued durable writes.
func (b *Backend) PendingWrites() int {
	return b.writes.Len()
}

// Flush drains the write queue into the database. On failure the batch is
// requeued at the head so ordering is preserved for the retry.
func (b *Backend) Flush() error {
	batch := b.writes.GetAndEmpty()
	if len(batch) == 0 {
		return nil
	}

	if err := b.apply(batch); err != nil {
		b.writes.PushFront(batch...)
		return err
	}
	return nil
}

func (b *Backend) apply(batch []flagWrite) error {
	// later writes to the same key win; collapse before touching the DB
	type target struct {
		actor core.ActorID
		key   string
	}
	upserts := make(map[target]any)
	deletes := make(map[target]struct{})
	order := make([]target, 0, len(batch))

	for _, w := range batch {
		tg := target{w.ActorID, w.Key}
		if _, seen := upserts[tg]; !seen {
			if _, seen := deletes[tg]; !seen {
				order = append(order, tg)
			}
		}
		if w.Unset {
			delete(upserts, tg)
			deletes[tg] = struct{}{}
		} else {
			delete(deletes, tg)
			upserts[tg] = w.Value
		}
	}

	return b.db.Transaction(func(tx *gorm.DB) error {
		for _, tg := range order {
			if _, ok := deletes[tg]; ok {
				if err := tx.Where("actor_id = ? AND key = ?", string(tg.actor), tg.key).
					Delete(&ActorFlag{}).Error; err != nil {
					return fmt.Errorf("deleting flag %s/%s: %w", tg.actor, tg.key, err)
				}
				continue
			}

			raw, err := json.Marshal(upserts[tg])
			if err != nil {
				b.log.Error("dropping unencodable flag", "actor", tg.actor, "key", tg.key, "error", err)
				continue
			}
			row := ActorFlag{ActorID: string(tg.actor), Key: tg.key, Value: raw}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "actor_id"}, {Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("upserting flag %s/%s: %w", tg.actor, tg.key, err)
			}
		}
		return nil
	})
}
