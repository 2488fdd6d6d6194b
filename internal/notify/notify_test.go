package notify

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
	"github.com/fitvtt/attrition/internal/flagstore/memory"
	"github.com/fitvtt/attrition/internal/resource"
	"github.com/fitvtt/attrition/internal/timeutil"
	"github.com/fitvtt/attrition/pkg/core"
	"github.com/fitvtt/attrition/pkg/host"
)

type testLogger struct{}

func (testLogger) Debug(msg string, keysAndValues ...any) {}
func (testLogger) Info(msg string, keysAndValues ...any)  {}
func (testLogger) Error(msg string, keysAndValues ...any) {}

type debuffRules struct {
	applied map[core.ActorID]int
	removed map[core.ActorID]int
}

func newDebuffRules() *debuffRules {
	return &debuffRules{applied: map[core.ActorID]int{}, removed: map[core.ActorID]int{}}
}

func (r *debuffRules) AbilityBonus(actor core.Actor, kind core.ResourceKind) int { return 0 }
func (r *debuffRules) WriteExhaustion(id core.ActorID, level int) error          { return nil }
func (r *debuffRules) ApplyHungerDebuff(id core.ActorID, daysHungry int) error {
	r.applied[id] = daysHungry
	return nil
}
func (r *debuffRules) RemoveHungerDebuff(id core.ActorID) error {
	r.removed[id]++
	return nil
}
func (r *debuffRules) RefreshSheet(id core.ActorID)                   {}
func (r *debuffRules) AutoPatchConsumables(actors []core.Actor) error { return nil }

type captureSink struct {
	summaries []core.Summary
}

func (s *captureSink) PostSummary(sum core.Summary) error {
	s.summaries = append(s.summaries, sum)
	return nil
}

type fixture struct {
	gate     *Gate
	trackers []*resource.Tracker
	rules    *debuffRules
	sink     *captureSink
	events   *[]bus.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	viper.Reset()
	config.SetDefaults()

	b, err := bus.New(testLogger{})
	require.NoError(t, err)
	var events []bus.Event
	b.Subscribe(host.EventEvaluateNeeds, func(e bus.Event) {
		events = append(events, e)
	})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rules := newDebuffRules()
	recs := cache.NewRecordCache()

	var trackers []*resource.Tracker
	for _, def := range resource.Definitions() {
		trackers = append(trackers, resource.NewTracker(def, memory.New(config.MemoryConfig{}), recs, b, rules, log))
	}
	sink := &captureSink{}
	return &fixture{
		gate:     NewGate(trackers, rules, b, log, sink),
		trackers: trackers,
		rules:    rules,
		sink:     sink,
		events:   &events,
	}
}

func (f *fixture) initAll(t *testing.T, id core.ActorID, now int64) {
	t.Helper()
	for _, tr := range f.trackers {
		_, err := tr.Initialize(id, now)
		require.NoError(t, err)
	}
}

func TestMaybeNotify_OncePerDay(t *testing.T) {
	f := newFixture(t)
	actor := core.Actor{ID: "actor-1", Name: "Mira"}
	f.initAll(t, actor.ID, 0)

	// half a day in: nothing due yet
	require.NoError(t, f.gate.Evaluate(actor, timeutil.Day/2))
	assert.Empty(t, *f.events)

	// a full day in: one combined summary
	require.NoError(t, f.gate.Evaluate(actor, timeutil.Day))
	require.Len(t, *f.events, 1)
	sum := (*f.events)[0].Payload.(core.Summary)
	assert.Equal(t, "Mira", sum.ActorName)
	assert.Len(t, sum.Lines, 3, "summary covers every enabled resource")

	// immediately re-evaluating must not emit again
	require.NoError(t, f.gate.Evaluate(actor, timeutil.Day+60))
	assert.Len(t, *f.events, 1)

	// the next day it fires again
	require.NoError(t, f.gate.Evaluate(actor, 2*timeutil.Day))
	assert.Len(t, *f.events, 2)
}

func TestMaybeNotify_SinkReceivesSummary(t *testing.T) {
	f := newFixture(t)
	actor := core.Actor{ID: "actor-1", Name: "Mira"}
	f.initAll(t, actor.ID, 0)

	require.NoError(t, f.gate.Evaluate(actor, timeutil.Day))
	require.Len(t, f.sink.summaries, 1)
	assert.Equal(t, core.ActorID("actor-1"), f.sink.summaries[0].ActorID)
}

func TestMaybeNotify_DisabledResourceExcluded(t *testing.T) {
	f := newFixture(t)
	actor := core.Actor{ID: "actor-1"}
	f.initAll(t, actor.ID, 0)
	viper.Set("restTracking", false)

	require.NoError(t, f.gate.Evaluate(actor, timeutil.Day))
	require.Len(t, *f.events, 1)
	sum := (*f.events)[0].Payload.(core.Summary)
	assert.Len(t, sum.Lines, 2)
	for _, line := range sum.Lines {
		assert.NotEqual(t, core.Rest, line.Kind)
	}
}

func TestMaybeNotify_NoRecordsNoSummary(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.gate.Evaluate(core.Actor{ID: "ghost"}, 10*timeutil.Day))
	assert.Empty(t, *f.events)
}

func TestHungerEffect_AppliedAndRemoved(t *testing.T) {
	f := newFixture(t)
	actor := core.Actor{ID: "actor-1"}
	f.initAll(t, actor.ID, 0)
	viper.Set("hungerEffect", true)

	// drive hunger to level 2
	_, _, err := f.trackers[0].Update(actor, true, 3*timeutil.Day)
	require.NoError(t, err)

	require.NoError(t, f.gate.Evaluate(actor, 3*timeutil.Day))
	assert.Equal(t, 2, f.rules.applied[actor.ID])

	// a meal clears the debuff on the next evaluation
	_, err = f.trackers[0].ResetTo(actor.ID, 3*timeutil.Day)
	require.NoError(t, err)
	require.NoError(t, f.gate.Evaluate(actor, 3*timeutil.Day+60))
	assert.GreaterOrEqual(t, f.rules.removed[actor.ID], 1)
}

func TestHungerEffect_DisabledSettingRemoves(t *testing.T) {
	f := newFixture(t)
	actor := core.Actor{ID: "actor-1"}
	f.initAll(t, actor.ID, 0)

	require.NoError(t, f.gate.Evaluate(actor, timeutil.Day/4))
	assert.Empty(t, f.rules.applied)
	assert.GreaterOrEqual(t, f.rules.removed[actor.ID], 1)
}
