// Package exhaustion derives the single exhaustion value from per-resource
// severities. The resolver is the only writer of the actor's exhaustion
// attribute; resource trackers never touch it directly, so concurrent
// resources cannot clobber each other.
package exhaustion

import (
	"log/slog"
	"sync"

	"github.com/fitvtt/attrition/internal/bus"
	"github.com/fitvtt/attrition/internal/resource"
	"github.com/fitvtt/attrition/pkg/core"
	"github.com/fitvtt/attrition/pkg/host"
)

// Resolver recomputes exhaustion as the maximum severity across enabled
// resources. No sum and no cap beyond each resource's own saturation.
type Resolver struct {
	trackers []*resource.Tracker
	rules    host.RuleSystem
	bus      *bus.Bus
	log      *slog.Logger

	mu   sync.Mutex
	last map[core.ActorID]int
}

// NewResolver creates the exhaustion resolver.
func NewResolver(trackers []*resource.Tracker, rules host.RuleSystem, b *bus.Bus, log *slog.Logger) *Resolver {
	return &Resolver{
		trackers: trackers,
		rules:    rules,
		bus:      b,
		log:      log,
		last:     make(map[core.ActorID]int),
	}
}

// Recompute derives and commits the actor's exhaustion value. Disabled
// resources contribute nothing, so toggling a resource off immediately
// releases its share on the next recompute.
func (r *Resolver) Recompute(id core.ActorID) (int, error) {
	level := 0
	for _, t := range r.trackers {
		if !t.Enabled() {
			continue
		}
		rec, ok := t.Record(id)
		if !ok {
			continue
		}
		if rec.Level > level {
			level = rec.Level
		}
	}

	r.mu.Lock()
	prev, seen := r.last[id]
	r.last[id] = level
	r.mu.Unlock()
	if seen && prev == level {
		return level, nil
	}

	if err := r.rules.WriteExhaustion(id, level); err != nil {
		return level, err
	}
	r.rules.RefreshSheet(id)
	r.bus.Publish(bus.Event{Name: host.EventUpdateExhaustionEffect, ActorID: id, Payload: level})
	r.log.Debug("exhaustion recomputed", "actor", id, "level", level)
	return level, nil
}

// Forget drops the cached value so the next Recompute always writes.
// Called when an actor's tracking is reset or removed.
func (r *Resolver) Forget(id core.ActorID) {
	r.mu.Lock()
	delete(r.last, id)
	r.mu.Unlock()
}
