// internal/flagstore/memory/memory.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fitvtt/attrition/internal/config"
	"github.com/fitvtt/attrition/pkg/core"
)

// Backend stores actor flags in memory and optionally exports a JSON
// snapshot on Close, for worlds that keep flags inside the host's own save.
type Backend struct {
	cfg   config.MemoryConfig
	mu    sync.RWMutex
	flags map[core.ActorID]map[string]any
}

// New creates a new memory backend.
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:   cfg,
		flags: make(map[core.ActorID]map[string]any),
	}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close exports a snapshot if an output directory is configured.
func (b *Backend) Close() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON()
}

// GetFlag returns the stored value for an actor's key.
func (b *Backend) GetFlag(id core.ActorID, key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.flags[id][key]
	return v, ok
}

// SetFlag stores a value for an actor's key.
func (b *Backend) SetFlag(id core.ActorID, key string, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.flags[id] == nil {
		b.flags[id] = make(map[string]any)
	}
	b.flags[id][key] = value
	return nil
}

// UnsetFlag removes an actor's key.
func (b *Backend) UnsetFlag(id core.ActorID, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.flags[id], key)
	if len(b.flags[id]) == 0 {
		delete(b.flags, id)
	}
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
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// exportJSON writes the flag table to a timestamped file in the output dir.
func (b *Backend) exportJSON() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	name := fmt.Sprintf("attrition_flags.%s.json", time.Now().Format("20060102_150405"))
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	path := filepath.Join(b.cfg.OutputDir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if b.cfg.CompressOutput {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		return json.NewEncoder(gz).Encode(b.flags)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(b.flags)
}
