package cache

import (
	"sync"

	"github.com/fitvtt/attrition/pkg/core"
)

// RecordCache holds the working tracking state for every known actor so the
// evaluation loop never blocks on the flag backend. The cache is the
// authoritative copy between flushes.
type RecordCache struct {
	m       sync.Mutex
	Records map[core.ActorID]map[core.ResourceKind]core.ResourceRecord
}

func NewRecordCache() *RecordCache {
	return &RecordCache{
		m:       sync.Mutex{},
		Records: make(map[core.ActorID]map[core.ResourceKind]core.ResourceRecord),
	}
}

func (c *RecordCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Records = make(map[core.ActorID]map[core.ResourceKind]core.ResourceRecord)
}

// Get returns the cached record for an actor's resource.
func (c *RecordCache) Get(id core.ActorID, kind core.ResourceKind) (core.ResourceRecord, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if r, ok := c.Records[id][kind]; ok {
		return r, true
	}
	return core.ResourceRecord{}, false
}

// Put stores a record for an actor's resource.
func (c *RecordCache) Put(id core.ActorID, kind core.ResourceKind, r core.ResourceRecord) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.Records[id] == nil {
		c.Records[id] = make(map[core.ResourceKind]core.ResourceRecord)
	}
	c.Records[id][kind] = r
}

// Drop removes one resource record for an actor.
func (c *RecordCache) Drop(id core.ActorID, kind core.ResourceKind) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.Records[id], kind)
	if len(c.Records[id]) == 0 {
		delete(c.Records, id)
	}
}

// DropActor removes every record for an actor.
func (c *RecordCache) DropActor(id core.ActorID) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.Records, id)
}

// Levels returns the cached severity level per resource for an actor.
func (c *RecordCache) Levels(id core.ActorID) map[core.ResourceKind]int {
	c.m.Lock()
	defer c.m.Unlock()
	out := make(map[core.ResourceKind]int, len(c.Records[id]))
	for kind, r := range c.Records[id] {
		out[kind] = r.Level
	}
	return out
}

// ActorIDs returns every actor with at least one cached record.
func (c *RecordCache) ActorIDs() []core.ActorID {
	c.m.Lock()
	defer c.m.Unlock()
	ids := make([]core.ActorID, 0, len(c.Records))
	for id := range c.Records {
		ids = append(ids, id)
	}
	return ids
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
