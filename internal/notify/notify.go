// Package notify rations attrition summaries to at most one per actor per
// in-game day and owns the optional hunger debuff side effect.
package notify

import (
	"log/slog"

	"github.com/fitvtt/attrition/internal/bus"
	"github.com/fitvtt/attrition/internal/config"
	"github.com/fitvtt/attrition/internal/resource"
	"github.com/fitvtt/attrition/internal/timeutil"
	"github.com/fitvtt/attrition/pkg/core"
	"github.com/fitvtt/attrition/pkg/host"
)

// Sink receives emitted summaries. The webhook client implements it; tests
// substitute their own.
type Sink interface {
	PostSummary(s core.Summary) error
}

// Gate decides when an actor's combined summary goes out. A summary fires
// when any enabled resource has gone a full day since its last notification,
// and it always covers every enabled resource so players see the whole
// picture at once.
type Gate struct {
	trackers []*resource.Tracker
	rules    host.RuleSystem
	bus      *bus.Bus
	log      *slog.Logger
	sinks    []Sink
}

// NewGate creates the notification gate.
func NewGate(trackers []*resource.Tracker, rules host.RuleSystem, b *bus.Bus, log *slog.Logger, sinks ...Sink) *Gate {
	return &Gate{
		trackers: trackers,
		rules:    rules,
		bus:      b,
		log:      log,
		sinks:    sinks,
	}
}

// Evaluate runs the per-actor notification pass: hunger debuff upkeep first,
// then the once-per-day summary check.
func (g *Gate) Evaluate(actor core.Actor, now int64) error {
	if err := g.applyHungerEffect(actor); err != nil {
		g.log.Error("hunger effect update failed", "actor", actor.ID, "error", err)
	}
	return g.maybeNotify(actor, now)
}

// applyHungerEffect keeps the rule-system hunger debuff in sync with the
// current hunger level when the hungerEffect setting is on.
func (g *Gate) applyHungerEffect(actor core.Actor) error {
	tracker := g.trackerFor(core.Hunger)
	if tracker == nil || !tracker.Enabled() {
		return nil
	}
	if !config.GetBool("hungerEffect") {
		return g.rules.RemoveHungerDebuff(actor.ID)
	}

	rec, ok := tracker.Record(actor.ID)
	if !ok || rec.Level == 0 {
		return g.rules.RemoveHungerDebuff(actor.ID)
	}
	return g.rules.ApplyHungerDebuff(actor.ID, rec.Level)
}

func (g *Gate) maybeNotify(actor core.Actor, now int64) error {
	due := false
	var lines []core.SummaryLine

	for _, t := range g.trackers {
		if !t.Enabled() {
			continue
		}
		rec, ok := t.Record(actor.ID)
		if !ok {
			continue
		}
		if timeutil.SecondsSince(rec.LastNotifiedAt, now) >= timeutil.Day {
			due = true
		}
		lines = append(lines, core.SummaryLine{
			Kind:  t.Kind(),
			Level: rec.Level,
			Label: t.Label(rec.Level),
		})
	}

	if !due || len(lines) == 0 {
		return nil
	}

	s := core.Summary{
		ActorID:   actor.ID,
		ActorName: actor.Name,
		WorldTime: now,
		Lines:     lines,
	}
	g.bus.Publish(bus.Event{Name: host.EventEvaluateNeeds, ActorID: actor.ID, Payload: s})

	for _, sink := range g.sinks {
		if err := sink.PostSummary(s); err != nil {
			g.log.Error("summary sink failed", "actor", actor.ID, "error", err)
		}
	}

	// stamp every enabled resource so the next summary is a day out for
	// all of them, not just the one that came due
	for _, t := range g.trackers {
		if !t.Enabled() {
			continue
		}
		if err := t.SetNotified(actor.ID, now); err != nil {
			return err
		}
	}
	g.log.Debug("summary emitted", "actor", actor.ID, "lines", len(lines))
	return nil
}

func (g *Gate) trackerFor(kind core.ResourceKind) *resource.Tracker {
	for _, t := range g.trackers {
		if t.Kind() == kind {
			return t
		}
	}
	return nil
}
