// Package attrition is the public face of the engine: the operations a host
// bridge or command surface calls, composed from the trackers, the
// consumption handler and the exhaustion resolver.
package attrition

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/fitvtt/attrition/internal/bus"
	"github.com/fitvtt/attrition/internal/consume"
	"github.com/fitvtt/attrition/internal/exhaustion"
	"github.com/fitvtt/attrition/internal/flagstore"
	"github.com/fitvtt/attrition/internal/resource"
	"github.com/fitvtt/attrition/internal/timeutil"
	"github.com/fitvtt/attrition/pkg/core"
	"github.com/fitvtt/attrition/pkg/host"
)

// Service exposes the engine's operations.
type Service struct {
	clock    host.Clock
	scene    host.Scene
	actors   host.Actors
	trackers []*resource.Tracker
	flags    flagstore.Backend
	consume  *consume.Handler
	resolver *exhaustion.Resolver
	rules    host.RuleSystem
	bus      *bus.Bus
	log      *slog.Logger
}

// NewService creates the facade.
func NewService(clock host.Clock, scene host.Scene, actors host.Actors,
	trackers []*resource.Tracker, flags flagstore.Backend, handler *consume.Handler,
	resolver *exhaustion.Resolver, rules host.RuleSystem,
	b *bus.Bus, log *slog.Logger) *Service {
	return &Service{
		clock:    clock,
		scene:    scene,
		actors:   actors,
		trackers: trackers,
		flags:    flags,
		consume:  handler,
		resolver: resolver,
		rules:    rules,
		bus:      b,
		log:      log,
	}
}

// InitializeActor anchors every enabled resource the actor is not yet
// tracked for. Safe to call repeatedly; actors already tracked keep their
// progress. The per-resource initialize operations force a reset instead.
func (s *Service) InitializeActor(id core.ActorID) error {
	now := s.clock.Now()
	for _, t := range s.trackers {
		if !t.Enabled() {
			continue
		}
		if _, ok := t.Record(id); ok {
			continue
		}
		if _, err := t.Initialize(id, now); err != nil {
			return fmt.Errorf("initializing %s for %s: %w", t.Kind(), id, err)
		}
	}
	_, err := s.resolver.Recompute(id)
	return err
}

// InitializeHunger anchors hunger at now for one actor, dropping any prior
// progress.
func (s *Service) InitializeHunger(id core.ActorID) error {
	return s.initializeResource(id, core.Hunger)
}

// InitializeThirst anchors thirst at now for one actor, dropping any prior
// progress.
func (s *Service) InitializeThirst(id core.ActorID) error {
	return s.initializeResource(id, core.Thirst)
}

// InitializeRest anchors rest at now for one actor, dropping any prior
// progress.
func (s *Service) InitializeRest(id core.ActorID) error {
	return s.initializeResource(id, core.Rest)
}

func (s *Service) initializeResource(id core.ActorID, kind core.ResourceKind) error {
	t := s.trackerFor(kind)
	if t == nil || !t.Enabled() {
		return nil
	}
	if _, err := t.Initialize(id, s.clock.Now()); err != nil {
		return err
	}
	_, err := s.resolver.Recompute(id)
	return err
}

// InitializeScene sweeps the active scene, starting tracking for every
// player-owned actor found there and normalizing their consumable items.
func (s *Service) InitializeScene() error {
	if !s.scene.HasActiveScene() {
		return nil
	}

	var patched []core.Actor
	for id := range s.scene.ActiveActorIDs() {
		actor, ok := s.actors.Actor(id)
		if !ok || !actor.PlayerOwned {
			continue
		}
		if err := s.InitializeActor(id); err != nil {
			s.log.Error("scene init failed for actor", "actor", id, "error", err)
			continue
		}
		patched = append(patched, actor)
	}

	if len(patched) > 0 {
		if err := s.rules.AutoPatchConsumables(patched); err != nil {
			s.log.Error("consumable patch failed", "error", err)
		}
	}
	s.log.Info("scene tracking initialized", "actors", len(patched))
	return nil
}

// ConsumeFood records an explicit ration use.
func (s *Service) ConsumeFood(id core.ActorID) error {
	return s.consume.ConsumeFood(id)
}

// ConsumeWater records an explicit drink.
func (s *Service) ConsumeWater(id core.ActorID) error {
	return s.consume.ConsumeWater(id)
}

// RestTaken records a completed long rest.
func (s *Service) RestTaken(id core.ActorID) error {
	return s.consume.RestTaken(id)
}

// HandleItemChange forwards an observed inventory change to the fallback
// consumption path.
func (s *Service) HandleItemChange(change core.ItemChange) error {
	return s.consume.HandleItemChange(change)
}

// ResetHunger wipes an actor's hunger state and starts over from now. A GM
// escape hatch for flags corrupted by other modules.
func (s *Service) ResetHunger(id core.ActorID) error {
	return s.resetResource(id, core.Hunger, host.EventResetHunger)
}

func (s *Service) resetResource(id core.ActorID, kind core.ResourceKind, event string) error {
	t := s.trackerFor(kind)
	if t == nil {
		return nil
	}
	if err := t.Unset(id); err != nil {
		return err
	}
	if _, err := t.Initialize(id, s.clock.Now()); err != nil {
		return err
	}
	s.bus.Publish(bus.Event{Name: event, ActorID: id})
	s.resolver.Forget(id)
	_, err := s.resolver.Recompute(id)
	return err
}

// UnsetActor removes every tracking flag for an actor.
func (s *Service) UnsetActor(id core.ActorID) error {
	for _, t := range s.trackers {
		if err := t.Unset(id); err != nil {
			return err
		}
	}
	s.resolver.Forget(id)
	return nil
}

// RosterLine is one actor's row in the GM roster report.
type RosterLine struct {
	ActorID core.ActorID
	Name    string
	Present bool
	Levels  map[core.ResourceKind]int
	Labels  map[core.ResourceKind]string
	Elapsed map[core.ResourceKind]string
}

// Roster reports every tracked actor, present before absent, with per
// resource levels, labels and "5h 30m" style elapsed strings.
func (s *Service) Roster() []RosterLine {
	now := s.clock.Now()
	onScene := s.scene.ActiveActorIDs()

	seen := make(map[core.ActorID]struct{})
	var lines []RosterLine
	for _, t := range s.trackers {
		for _, id := range s.trackedActorIDs(t) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}

			name := string(id)
			if actor, ok := s.actors.Actor(id); ok {
				name = actor.Name
			}
			_, present := onScene[id]
			line := RosterLine{
				ActorID: id,
				Name:    name,
				Present: present,
				Levels:  make(map[core.ResourceKind]int),
				Labels:  make(map[core.ResourceKind]string),
				Elapsed: make(map[core.ResourceKind]string),
			}
			for _, tr := range s.trackers {
				if !tr.Enabled() {
					continue
				}
				rec, ok := tr.Record(id)
				if !ok {
					continue
				}
				line.Levels[tr.Kind()] = rec.Level
				line.Labels[tr.Kind()] = tr.Label(rec.Level)
				line.Elapsed[tr.Kind()] = timeutil.FormatHours(tr.ElapsedSeconds(rec, now))
			}
			lines = append(lines, line)
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Present != lines[j].Present {
			return lines[i].Present
		}
		return lines[i].Name < lines[j].Name
	})
	return lines
}

func (s *Service) trackedActorIDs(t *resource.Tracker) []core.ActorID {
	// records may exist only in flags before first evaluation; the tracker
	// hydrates on Record, so walking scene plus flags covers everyone
	ids := make(map[core.ActorID]struct{})
	for id := range s.scene.ActiveActorIDs() {
		if _, ok := t.Record(id); ok {
			ids[id] = struct{}{}
		}
	}
	for _, id := range s.flags.ActorIDs() {
		if _, ok := t.Record(id); ok {
			ids[id] = struct{}{}
		}
	}
	out := make([]core.ActorID, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	return out
}

func (s *Service) trackerFor(kind core.ResourceKind) *resource.Tracker {
	for _, t := range s.trackers {
		if t.Kind() == kind {
			return t
		}
	}
	return nil
}
