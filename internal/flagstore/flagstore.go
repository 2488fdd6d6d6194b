// Package flagstore is the persistence adapter for per-actor tracking flags.
// The engine reads and writes small key/value pairs (anchor timestamps,
// frozen snapshots, cached levels); backends decide durability.
package flagstore

import (
	"encoding/json"

	"github.com/fitvtt/attrition/pkg/core"
)

// Backend is the interface all flag storage implementations must satisfy.
// Reads are synchronous; writes may be applied asynchronously, in which case
// a failed flush leaves the in-memory state authoritative and the write is
// retried on the next flush cycle.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// GetFlag returns the stored value for an actor's key.
	GetFlag(id core.ActorID, key string) (any, bool)

	// SetFlag stores a value for an actor's key.
	SetFlag(id core.ActorID, key string, value any) error

	// UnsetFlag removes an actor's key.
	UnsetFlag(id core.ActorID, key string) error

	// ActorFlags returns a copy of all flags stored for an actor.
	ActorFlags(id core.ActorID) map[string]any

	// ActorIDs returns every actor with at least one stored flag.
	ActorIDs() []core.ActorID
}

// Flusher is implemented by backends that buffer writes and flush them in
// batches; the worker drains them on an interval.
type Flusher interface {
	Flush() error
	PendingWrites() int
}

// GetInt64 reads a flag as int64, tolerating the numeric types JSON
// round-trips produce.
func GetInt64(b Backend, id core.ActorID, key string) (int64, bool) {
	v, ok := b.GetFlag(id, key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// GetInt reads a flag as int.
func GetInt(b Backend, id core.ActorID, key string) (int, bool) {
	n, ok := GetInt64(b, id, key)
	return int(n), ok
}
