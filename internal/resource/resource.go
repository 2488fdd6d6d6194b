// Package resource implements per-resource attrition tracking. One Tracker
// per resource kind owns the freeze/resume state machine, severity
// recomputation and flag persistence for that resource.
package resource

import (
	"log/slog"

	"github.com/fitvtt/attrition/internal/bus"
	"github.com/fitvtt/attrition/internal/cache"
	"github.com/fitvtt/attrition/internal/config"
	"github.com/fitvtt/attrition/internal/flagstore"
	"github.com/fitvtt/attrition/internal/severity"
	"github.com/fitvtt/attrition/internal/timeutil"
	"github.com/fitvtt/attrition/pkg/core"
	"github.com/fitvtt/attrition/pkg/host"
)

// Definition binds a resource kind to its settings keys, flag names, bus
// events and label table. All three shipped resources run through the same
// Tracker code; only the Definition differs.
type Definition struct {
	Kind         core.ResourceKind
	EnableKey    string
	ToleranceKey string

	AnchorFlag   string
	ElapsedFlag  string
	LevelFlag    string
	NotifiedFlag string

	InitEvent   string
	UpdateEvent string

	Labels []string

	// UsesAbilityBonus extends the grace period by the rule system's
	// ability modifier. Only hunger carries it.
	UsesAbilityBonus bool
}

// HungerDef returns the hunger resource definition.
func HungerDef() Definition {
	return Definition{
		Kind:             core.Hunger,
		EnableKey:        "hungerTracking",
		ToleranceKey:     "baseTolerance",
		AnchorFlag:       "lastMealAt",
		ElapsedFlag:      "hungerElapsedTime",
		LevelFlag:        "hungerLevel",
		NotifiedFlag:     "lastMealNotificationAt",
		InitEvent:        host.EventInitializeHunger,
		UpdateEvent:      host.EventUpdateHunger,
		Labels:           severity.HungerLabels,
		UsesAbilityBonus: true,
	}
}

// ThirstDef returns the thirst resource definition.
func ThirstDef() Definition {
	return Definition{
		Kind:         core.Thirst,
		EnableKey:    "thirstTracking",
		ToleranceKey: "baseThirst",
		AnchorFlag:   "lastDrinkAt",
		ElapsedFlag:  "thirstElapsedTime",
		LevelFlag:    "thirstLevel",
		NotifiedFlag: "lastDrinkNotificationAt",
		InitEvent:    host.EventInitializeThirst,
		UpdateEvent:  host.EventUpdateThirst,
		Labels:       severity.ThirstLabels,
	}
}

// RestDef returns the rest resource definition.
func RestDef() Definition {
	return Definition{
		Kind:         core.Rest,
		EnableKey:    "restTracking",
		ToleranceKey: "baseRest",
		AnchorFlag:   "lastRestAt",
		ElapsedFlag:  "restElapsedTime",
		LevelFlag:    "restLevel",
		NotifiedFlag: "lastRestNotificationAt",
		InitEvent:    host.EventInitializeRest,
		UpdateEvent:  host.EventUpdateRest,
		Labels:       severity.RestLabels,
	}
}

// Definitions returns all shipped resource definitions in evaluation order.
func Definitions() []Definition {
	return []Definition{HungerDef(), ThirstDef(), RestDef()}
}

// Tracker runs one resource's attrition state machine.
type Tracker struct {
	def   Definition
	flags flagstore.Backend
	cache *cache.RecordCache
	bus   *bus.Bus
	rules host.RuleSystem
	log   *slog.Logger
}

// NewTracker creates a tracker for one resource definition.
func NewTracker(def Definition, flags flagstore.Backend, recs *cache.RecordCache,
	b *bus.Bus, rules host.RuleSystem, log *slog.Logger) *Tracker {
	return &Tracker{
		def:   def,
		flags: flags,
		cache: recs,
		bus:   b,
		rules: rules,
		log:   log,
	}
}

// Kind returns the tracked resource kind.
func (t *Tracker) Kind() core.ResourceKind {
	return t.def.Kind
}

// Definition returns the tracker's resource definition.
func (t *Tracker) Definition() Definition {
	return t.def
}

// Enabled reports whether this resource is tracked, honoring both the
// master switch and the per-resource setting.
func (t *Tracker) Enabled() bool {
	return config.Enabled() && config.GetBool(t.def.EnableKey)
}

// Record returns the tracking record for an actor, hydrating the cache from
// the flag backend on first access. ok is false when the actor has never
// been initialized for this resource.
func (t *Tracker) Record(id core.ActorID) (core.ResourceRecord, bool) {
	if r, ok := t.cache.Get(id, t.def.Kind); ok {
		return r, true
	}

	anchor, ok := flagstore.GetInt64(t.flags, id, t.def.AnchorFlag)
	if !ok {
		return core.ResourceRecord{}, false
	}
	r := core.ResourceRecord{AnchorTime: anchor}
	if frozen, ok := flagstore.GetInt64(t.flags, id, t.def.ElapsedFlag); ok {
		r.FrozenElapsed = &frozen
	}
	if lvl, ok := flagstore.GetInt(t.flags, id, t.def.LevelFlag); ok {
		r.Level = lvl
	}
	if at, ok := flagstore.GetInt64(t.flags, id, t.def.NotifiedFlag); ok {
		r.LastNotifiedAt = at
	}
	t.cache.Put(id, t.def.Kind, r)
	return r, true
}

// Initialize anchors tracking at now, wiping any frozen snapshot and accrued
// level. Callers that must not clobber an actor already being tracked check
// Record before calling.
func (t *Tracker) Initialize(id core.ActorID, now int64) (core.ResourceRecord, error) {
	r := core.ResourceRecord{AnchorTime: now, LastNotifiedAt: now}
	if err := t.persist(id, r); err != nil {
		return core.ResourceRecord{}, err
	}
	t.cache.Put(id, t.def.Kind, r)
	t.bus.Publish(bus.Event{Name: t.def.InitEvent, ActorID: id})
	t.log.Debug("initialized tracking", "resource", t.def.Kind.String(), "actor", id, "anchor", now)
	return r, nil
}

// ElapsedSeconds returns the raw tracked seconds for a record. Frozen
// records report their snapshot regardless of now.
func (t *Tracker) ElapsedSeconds(r core.ResourceRecord, now int64) int64 {
	if r.Frozen() {
		return *r.FrozenElapsed
	}
	s := timeutil.SecondsSince(r.AnchorTime, now)
	if s < 0 {
		return 0
	}
	return s
}

// ElapsedDays returns terrain-scaled elapsed days as a fraction. The
// multiplier applies to seconds before day conversion, so four raw days in
// desert terrain count as six days of thirst.
func (t *Tracker) ElapsedDays(r core.ResourceRecord, now int64) float64 {
	mult := config.Terrain().Multiplier(t.def.Kind)
	return float64(t.ElapsedSeconds(r, now)) * mult / float64(timeutil.Day)
}

// SeverityLevel computes the current severity for an actor's record.
func (t *Tracker) SeverityLevel(actor core.Actor, r core.ResourceRecord, now int64) int {
	bonus := 0
	if t.def.UsesAbilityBonus && t.rules != nil {
		bonus = t.rules.AbilityBonus(actor, t.def.Kind)
	}
	return severity.Level(
		t.ElapsedDays(r, now),
		config.GetInt(t.def.ToleranceKey),
		bonus,
		severity.MaxLevel(t.def.Kind),
	)
}

// Label returns the display label for a severity level of this resource.
func (t *Tracker) Label(level int) string {
	return severity.Label(t.def.Labels, level)
}

// Update advances one actor through the freeze/resume state machine and
// recomputes severity. present reports whether the actor is on the active
// scene. Returns the post-transition record and whether the level changed.
func (t *Tracker) Update(actor core.Actor, present bool, now int64) (core.ResourceRecord, bool, error) {
	r, ok := t.Record(actor.ID)
	if !ok {
		var err error
		r, err = t.Initialize(actor.ID, now)
		if err != nil {
			return core.ResourceRecord{}, false, err
		}
	}

	switch {
	case !present && !r.Frozen():
		// leaving the scene: snapshot elapsed time once
		elapsed := t.ElapsedSeconds(r, now)
		r.FrozenElapsed = &elapsed
		if err := t.persist(actor.ID, r); err != nil {
			return r, false, err
		}
		t.cache.Put(actor.ID, t.def.Kind, r)
		t.log.Debug("froze tracking", "resource", t.def.Kind.String(), "actor", actor.ID, "elapsed", elapsed)

	case !present:
		// already frozen, never re-snapshot

	case r.Frozen():
		// back on scene: rebase the anchor so elapsed time resumes exactly
		r.AnchorTime = now - *r.FrozenElapsed
		r.FrozenElapsed = nil
		if err := t.persist(actor.ID, r); err != nil {
			return r, false, err
		}
		t.cache.Put(actor.ID, t.def.Kind, r)
		t.log.Debug("resumed tracking", "resource", t.def.Kind.String(), "actor", actor.ID, "anchor", r.AnchorTime)
	}

	lvl := t.SeverityLevel(actor, r, now)
	if lvl == r.Level {
		return r, false, nil
	}

	r.Level = lvl
	if err := t.persist(actor.ID, r); err != nil {
		return r, false, err
	}
	t.cache.Put(actor.ID, t.def.Kind, r)
	t.bus.Publish(bus.Event{Name: t.def.UpdateEvent, ActorID: actor.ID, Payload: lvl})
	return r, true, nil
}

// ResetTo rebases the anchor to now, clearing any frozen snapshot and the
// cached level. Called when the actor consumes or rests.
func (t *Tracker) ResetTo(id core.ActorID, now int64) (core.ResourceRecord, error) {
	r, ok := t.Record(id)
	if !ok {
		r = core.ResourceRecord{LastNotifiedAt: now}
	}
	r.AnchorTime = now
	r.FrozenElapsed = nil
	r.Level = 0

	if err := t.persist(id, r); err != nil {
		return core.ResourceRecord{}, err
	}
	t.cache.Put(id, t.def.Kind, r)
	t.bus.Publish(bus.Event{Name: t.def.UpdateEvent, ActorID: id, Payload: 0})
	return r, nil
}

// SetNotified stamps the last-notification time.
func (t *Tracker) SetNotified(id core.ActorID, now int64) error {
	r, ok := t.Record(id)
	if !ok {
		return nil
	}
	r.LastNotifiedAt = now
	if err := t.flags.SetFlag(id, t.def.NotifiedFlag, now); err != nil {
		return err
	}
	t.cache.Put(id, t.def.Kind, r)
	return nil
}

// Unset removes every flag this resource tracks for an actor.
func (t *Tracker) Unset(id core.ActorID) error {
	for _, key := range []string{t.def.AnchorFlag, t.def.ElapsedFlag, t.def.LevelFlag, t.def.NotifiedFlag} {
		if err := t.flags.UnsetFlag(id, key); err != nil {
			return err
		}
	}
	t.cache.Drop(id, t.def.Kind)
	return nil
}

// persist writes a record's fields to the flag backend. The elapsed flag is
// present exactly while the record is frozen.
func (t *Tracker) persist(id core.ActorID, r core.ResourceRecord) error {
	if err := t.flags.SetFlag(id, t.def.AnchorFlag, r.AnchorTime); err != nil {
		return err
	}
	if r.Frozen() {
		if err := t.flags.SetFlag(id, t.def.ElapsedFlag, *r.FrozenElapsed); err != nil {
			return err
		}
	} else {
		if err := t.flags.UnsetFlag(id, t.def.ElapsedFlag); err != nil {
			return err
		}
	}
	if err := t.flags.SetFlag(id, t.def.LevelFlag, r.Level); err != nil {
		return err
	}
	return t.flags.SetFlag(id, t.def.NotifiedFlag, r.LastNotifiedAt)
}
