package scheduler

import (
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitvtt/attrition/internal/bus"
	"github.com/fitvtt/attrition/internal/cache"
	"github.com/fitvtt/attrition/internal/config"
	"github.com/fitvtt/attrition/internal/exhaustion"
	"github.com/fitvtt/attrition/internal/flagstore/memory"
	"github.com/fitvtt/attrition/internal/notify"
	"github.com/fitvtt/attrition/internal/resource"
	"github.com/fitvtt/attrition/internal/timeutil"
	"github.com/fitvtt/attrition/pkg/core"
	"github.com/fitvtt/attrition/pkg/host"
)

type testLogger struct{}

func (testLogger) Debug(msg string, keysAndValues ...any) {}
func (testLogger) Info(msg string, keysAndValues ...any)  {}
func (testLogger) Error(msg string, keysAndValues ...any) {}

type fakeClock struct {
	now           int64
	authoritative bool
}

func (c *fakeClock) Now() int64            { return c.now }
func (c *fakeClock) IsAuthoritative() bool { return c.authoritative }

type fakeScene struct {
	active    bool
	actorIDs  map[core.ActorID]struct{}
	connected map[core.UserID]struct{}
}

func (s *fakeScene) HasActiveScene() bool                       { return s.active }
func (s *fakeScene) ActiveActorIDs() map[core.ActorID]struct{}  { return s.actorIDs }
func (s *fakeScene) ConnectedPlayers() map[core.UserID]struct{} { return s.connected }

type fakeActors struct {
	byID map[core.ActorID]core.Actor
}

func (a *fakeActors) Actor(id core.ActorID) (core.Actor, bool) {
	actor, ok := a.byID[id]
	return actor, ok
}

type recordingRules struct {
	exhaustion map[core.ActorID]int
}

func (r *recordingRules) AbilityBonus(actor core.Actor, kind core.ResourceKind) int { return 0 }
func (r *recordingRules) WriteExhaustion(id core.ActorID, level int) error {
	if r.exhaustion == nil {
		r.exhaustion = make(map[core.ActorID]int)
	}
	r.exhaustion[id] = level
	return nil
}
func (r *recordingRules) ApplyHungerDebuff(id core.ActorID, daysHungry int) error { return nil }
func (r *recordingRules) RemoveHungerDebuff(id core.ActorID) error                { return nil }
func (r *recordingRules) RefreshSheet(id core.ActorID)                            {}
func (r *recordingRules) AutoPatchConsumables(actors []core.Actor) error          { return nil }

type fixture struct {
	sched     *Scheduler
	clock     *fakeClock
	scene     *fakeScene
	actors    *fakeActors
	trackers  []*resource.Tracker
	rules     *recordingRules
	recs      *cache.RecordCache
	summaries *[]core.Summary
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	viper.Reset()
	config.SetDefaults()

	b, err := bus.New(testLogger{})
	require.NoError(t, err)
	var summaries []core.Summary
	b.Subscribe(host.EventEvaluateNeeds, func(e bus.Event) {
		summaries = append(summaries, e.Payload.(core.Summary))
	})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rules := &recordingRules{}
	recs := cache.NewRecordCache()
	var trackers []*resource.Tracker
	for _, def := range resource.Definitions() {
		trackers = append(trackers, resource.NewTracker(def, memory.New(config.MemoryConfig{}), recs, b, rules, log))
	}
	resolver := exhaustion.NewResolver(trackers, rules, b, log)
	gate := notify.NewGate(trackers, rules, b, log)

	clock := &fakeClock{authoritative: true}
	scene := &fakeScene{
		active:    true,
		actorIDs:  map[core.ActorID]struct{}{},
		connected: map[core.UserID]struct{}{},
	}
	actors := &fakeActors{byID: map[core.ActorID]core.Actor{}}

	return &fixture{
		sched:     New(clock, scene, actors, trackers, gate, resolver, recs, log),
		clock:     clock,
		scene:     scene,
		actors:    actors,
		trackers:  trackers,
		rules:     rules,
		recs:      recs,
		summaries: &summaries,
	}
}

func (f *fixture) addActor(t *testing.T, actor core.Actor, onScene bool) {
	t.Helper()
	f.actors.byID[actor.ID] = actor
	if onScene {
		f.scene.actorIDs[actor.ID] = struct{}{}
	}
	for _, owner := range actor.Owners {
		f.scene.connected[owner] = struct{}{}
	}
	for _, tr := range f.trackers {
		_, err := tr.Initialize(actor.ID, 0)
		require.NoError(t, err)
	}
}

func TestHandleTick_DebouncesToCadence(t *testing.T) {
	f := newFixture(t)
	f.addActor(t, core.Actor{ID: "a1", PlayerOwned: true, Owners: []core.UserID{"u1"}}, true)

	// default cadence is 30 world seconds
	for i := int64(1); i <= 2; i++ {
		f.sched.HandleTick(core.Tick{Now: i * 10, Elapsed: 10})
	}
	count, _, _ := f.sched.Stats()
	assert.Equal(t, 0, count, "under cadence, no evaluation")

	f.sched.HandleTick(core.Tick{Now: 30, Elapsed: 10})
	count, lastAt, _ := f.sched.Stats()
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(30), lastAt)

	// accumulator restarts after each evaluation
	f.sched.HandleTick(core.Tick{Now: 40, Elapsed: 10})
	count, _, _ = f.sched.Stats()
	assert.Equal(t, 1, count)
}

func TestHandleTick_NonAuthoritativeSessionIdle(t *testing.T) {
	f := newFixture(t)
	f.clock.authoritative = false
	f.addActor(t, core.Actor{ID: "a1", PlayerOwned: true}, true)

	f.sched.HandleTick(core.Tick{Now: 1000, Elapsed: 1000})
	count, _, _ := f.sched.Stats()
	assert.Equal(t, 0, count)
}

func TestHandleTick_DisabledModuleIdle(t *testing.T) {
	f := newFixture(t)
	viper.Set("enabled", false)
	f.addActor(t, core.Actor{ID: "a1", PlayerOwned: true}, true)

	f.sched.HandleTick(core.Tick{Now: 1000, Elapsed: 1000})
	count, _, _ := f.sched.Stats()
	assert.Equal(t, 0, count)
}

func TestEvaluate_NoActiveScene(t *testing.T) {
	f := newFixture(t)
	f.scene.active = false
	f.addActor(t, core.Actor{ID: "a1", PlayerOwned: true}, true)

	f.sched.Evaluate(timeutil.Day)
	count, _, _ := f.sched.Stats()
	assert.Equal(t, 0, count)
}

func TestEvaluate_AccruesAndCommitsExhaustion(t *testing.T) {
	f := newFixture(t)
	actor := core.Actor{ID: "a1", PlayerOwned: true, Owners: []core.UserID{"u1"}}
	f.addActor(t, actor, true)

	f.sched.Evaluate(3 * timeutil.Day)

	r, ok := f.trackers[0].Record(actor.ID)
	require.True(t, ok)
	assert.Equal(t, 2, r.Level)
	assert.Equal(t, 2, f.rules.exhaustion[actor.ID], "exhaustion is max severity")
}

func TestEvaluate_NonPlayerActorsIgnored(t *testing.T) {
	f := newFixture(t)
	f.addActor(t, core.Actor{ID: "npc", PlayerOwned: false}, true)

	f.sched.Evaluate(5 * timeutil.Day)

	r, _ := f.trackers[0].Record("npc")
	assert.Equal(t, 0, r.Level, "NPCs accrue nothing")
}

func TestEvaluate_OffSceneActorFreezes(t *testing.T) {
	f := newFixture(t)
	actor := core.Actor{ID: "a1", PlayerOwned: true, Owners: []core.UserID{"u1"}}
	f.addActor(t, actor, false)

	f.sched.Evaluate(2 * timeutil.Day)

	r, ok := f.trackers[0].Record(actor.ID)
	require.True(t, ok)
	require.True(t, r.Frozen())
	assert.Equal(t, 2*timeutil.Day, *r.FrozenElapsed)

	// much later, still frozen at the same snapshot
	f.sched.Evaluate(9 * timeutil.Day)
	r, _ = f.trackers[0].Record(actor.ID)
	require.True(t, r.Frozen())
	assert.Equal(t, 2*timeutil.Day, *r.FrozenElapsed)
}

func TestEvaluate_OfflineOwnerTreatedAsAbsent(t *testing.T) {
	f := newFixture(t)
	actor := core.Actor{ID: "a1", PlayerOwned: true, Owners: []core.UserID{"u1"}}
	f.addActor(t, actor, true)
	delete(f.scene.connected, "u1")

	f.sched.Evaluate(2 * timeutil.Day)

	r, _ := f.trackers[0].Record(actor.ID)
	assert.True(t, r.Frozen(), "skipMissingPlayers freezes offline owners")

	viper.Set("skipMissingPlayers", false)
	f.sched.Evaluate(3 * timeutil.Day)
	r, _ = f.trackers[0].Record(actor.ID)
	assert.False(t, r.Frozen())
}

func TestEvaluate_UnresolvableActorIsolated(t *testing.T) {
	f := newFixture(t)
	good := core.Actor{ID: "good", PlayerOwned: true, Owners: []core.UserID{"u1"}}
	f.addActor(t, good, true)
	// a stale id on the scene with no backing actor
	f.scene.actorIDs["gone"] = struct{}{}

	f.sched.Evaluate(3 * timeutil.Day)

	r, ok := f.trackers[0].Record(good.ID)
	require.True(t, ok)
	assert.Equal(t, 2, r.Level, "stale ids must not abort the cycle")
}

func TestEvaluate_DailySummary(t *testing.T) {
	f := newFixture(t)
	actor := core.Actor{ID: "a1", Name: "Mira", PlayerOwned: true, Owners: []core.UserID{"u1"}}
	f.addActor(t, actor, true)

	f.sched.Evaluate(timeutil.Day)
	require.Len(t, *f.summaries, 1)
	assert.Equal(t, "Mira", (*f.summaries)[0].ActorName)

	// repeated cycles the same day stay quiet
	f.sched.Evaluate(timeutil.Day + 600)
	f.sched.Evaluate(timeutil.Day + 1200)
	assert.Len(t, *f.summaries, 1)

	f.sched.Evaluate(2 * timeutil.Day)
	assert.Len(t, *f.summaries, 2)
}

func TestHandleTick_RewindReanchors(t *testing.T) {
	f := newFixture(t)
	actor := core.Actor{ID: "a1", PlayerOwned: true, Owners: []core.UserID{"u1"}}
	f.addActor(t, actor, true)

	f.sched.Evaluate(3 * timeutil.Day)
	r, _ := f.trackers[0].Record(actor.ID)
	require.Equal(t, 2, r.Level)

	// GM rewinds the calendar two days
	f.sched.HandleTick(core.Tick{Now: timeutil.Day, Elapsed: -2 * timeutil.Day})

	r, _ = f.trackers[0].Record(actor.ID)
	assert.Equal(t, timeutil.Day, r.AnchorTime)
	assert.Equal(t, 0, r.Level)
	assert.Equal(t, 0, f.rules.exhaustion[actor.ID])
}

func TestHandleTick_SmallRewindTolerated(t *testing.T) {
	f := newFixture(t)
	actor := core.Actor{ID: "a1", PlayerOwned: true, Owners: []core.UserID{"u1"}}
	f.addActor(t, actor, true)

	f.sched.Evaluate(3 * timeutil.Day)
	r, _ := f.trackers[0].Record(actor.ID)
	require.Equal(t, 2, r.Level)

	// a 60 second nudge backward is under the default 300s threshold
	f.sched.HandleTick(core.Tick{Now: 3*timeutil.Day - 60, Elapsed: -60})

	r, _ = f.trackers[0].Record(actor.ID)
	assert.Equal(t, int64(0), r.AnchorTime, "anchors survive small rewinds")
	assert.Equal(t, 2, r.Level)
}
