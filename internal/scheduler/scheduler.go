// Package scheduler drives attrition evaluation off the host's world-time
// ticks. Ticks arrive at whatever rate the host emits them; the scheduler
// debounces to the configured cadence, gates on session authority and scene
// state, and walks the roster one actor at a time so a bad actor record
// never aborts the cycle.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fitvtt/attrition/internal/cache"
	"github.com/fitvtt/attrition/internal/config"
	"github.com/fitvtt/attrition/internal/exhaustion"
	"github.com/fitvtt/attrition/internal/notify"
	"github.com/fitvtt/attrition/internal/resource"
	"github.com/fitvtt/attrition/pkg/core"
	"github.com/fitvtt/attrition/pkg/host"
)

// Scheduler owns the evaluation loop.
type Scheduler struct {
	clock    host.Clock
	scene    host.Scene
	actors   host.Actors
	trackers []*resource.Tracker
	gate     *notify.Gate
	resolver *exhaustion.Resolver
	recs     *cache.RecordCache
	log      *slog.Logger

	accumulated int64
	evalCount   cache.SafeCounter

	mu           sync.Mutex
	lastEvalAt   int64
	lastEvalTook time.Duration
}

// New creates a scheduler. It does nothing until Run consumes ticks.
func New(clock host.Clock, scene host.Scene, actors host.Actors,
	trackers []*resource.Tracker, gate *notify.Gate, resolver *exhaustion.Resolver,
	recs *cache.RecordCache, log *slog.Logger) *Scheduler {
	return &Scheduler{
		clock:    clock,
		scene:    scene,
		actors:   actors,
		trackers: trackers,
		gate:     gate,
		resolver: resolver,
		recs:     recs,
		log:      log,
	}
}

// Run consumes world-time ticks until the channel closes or the context is
// cancelled. Single consumer: all evaluation happens on this goroutine.
func (s *Scheduler) Run(ctx context.Context, ticks <-chan core.Tick) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-ticks:
			if !ok {
				return
			}
			s.HandleTick(t)
		}
	}
}

// HandleTick folds one world-time advance into the accumulator and runs an
// evaluation cycle once the configured cadence has elapsed.
func (s *Scheduler) HandleTick(t core.Tick) {
	if !config.Enabled() || !s.clock.IsAuthoritative() {
		return
	}

	if t.Elapsed < -int64(config.GetInt("rewindThreshold")) {
		s.log.Info("world time rewound, re-anchoring tracking", "now", t.Now, "elapsed", t.Elapsed)
		s.reanchorAll(t.Now)
		s.accumulated = 0
		return
	}

	s.accumulated += t.Elapsed
	if s.accumulated < int64(config.GetInt("evalFrequency")) {
		return
	}
	s.accumulated = 0
	s.Evaluate(t.Now)
}

// Evaluate runs one full evaluation cycle at the given world time.
func (s *Scheduler) Evaluate(now int64) {
	if !s.scene.HasActiveScene() {
		return
	}
	start := time.Now()

	onScene := s.scene.ActiveActorIDs()
	players := s.scene.ConnectedPlayers()
	skipMissing := config.GetBool("skipMissingPlayers")

	for _, id := range s.roster(onScene) {
		actor, ok := s.actors.Actor(id)
		if !ok {
			s.log.Debug("actor no longer resolves, skipping", "actor", id)
			continue
		}
		if !actor.PlayerOwned {
			continue
		}

		_, present := onScene[id]
		if present && skipMissing && !ownerConnected(actor, players) {
			present = false
		}

		if err := s.evaluateActor(actor, present, now); err != nil {
			s.log.Error("actor evaluation failed", "actor", id, "error", err)
		}
	}

	s.evalCount.Inc()
	s.mu.Lock()
	s.lastEvalAt = now
	s.lastEvalTook = time.Since(start)
	s.mu.Unlock()
}

// evaluateActor runs one actor through every enabled tracker, then the
// notification gate, then the exhaustion resolver. Order matters: the gate
// reads the levels the trackers just wrote, and the resolver commits the
// value players see.
func (s *Scheduler) evaluateActor(actor core.Actor, present bool, now int64) error {
	for _, t := range s.trackers {
		if !t.Enabled() {
			continue
		}
		if _, _, err := t.Update(actor, present, now); err != nil {
			return err
		}
	}

	if present {
		if err := s.gate.Evaluate(actor, now); err != nil {
			return err
		}
	}

	_, err := s.resolver.Recompute(actor.ID)
	return err
}

// roster is the union of actors on the active scene and actors with cached
// tracking state, so leaving the scene still produces the freeze transition.
func (s *Scheduler) roster(onScene map[core.ActorID]struct{}) []core.ActorID {
	seen := make(map[core.ActorID]struct{})
	var ids []core.ActorID
	for id := range onScene {
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, id := range s.recs.ActorIDs() {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// reanchorAll rebases every tracked actor to now after a calendar rewind,
// since existing anchors would otherwise sit in the future.
func (s *Scheduler) reanchorAll(now int64) {
	for _, id := range s.roster(s.scene.ActiveActorIDs()) {
		for _, t := range s.trackers {
			if !t.Enabled() {
				continue
			}
			if _, ok := t.Record(id); !ok {
				continue
			}
			if _, err := t.ResetTo(id, now); err != nil {
				s.log.Error("re-anchor failed", "actor", id, "error", err)
			}
		}
		s.resolver.Forget(id)
		if _, err := s.resolver.Recompute(id); err != nil {
			s.log.Error("recompute after re-anchor failed", "actor", id, "error", err)
		}
	}
}

// Stats returns the cycle counters for monitoring.
func (s *Scheduler) Stats() (count int, lastAt int64, lastTook time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evalCount.Value(), s.lastEvalAt, s.lastEvalTook
}

func ownerConnected(actor core.Actor, players map[core.UserID]struct{}) bool {
	for _, owner := range actor.Owners {
		if _, ok := players[owner]; ok {
			return true
		}
	}
	return false
}
