package exhaustion

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
	"github.com/fitvtt/attrition/pkg/core"
)

type testLogger struct{}

func (testLogger) Debug(msg string, keysAndValues ...any) {}
func (testLogger) Info(msg string, keysAndValues ...any)  {}
func (testLogger) Error(msg string, keysAndValues ...any) {}

type recordingRules struct {
	exhaustion map[core.ActorID]int
	writes     int
}

func (r *recordingRules) AbilityBonus(actor core.Actor, kind core.ResourceKind) int { return 0 }
func (r *recordingRules) WriteExhaustion(id core.ActorID, level int) error {
	if r.exhaustion == nil {
		r.exhaustion = make(map[core.ActorID]int)
	}
	r.exhaustion[id] = level
	r.writes++
	return nil
}
func (r *recordingRules) ApplyHungerDebuff(id core.ActorID, daysHungry int) error { return nil }
func (r *recordingRules) RemoveHungerDebuff(id core.ActorID) error                { return nil }
func (r *recordingRules) RefreshSheet(id core.ActorID)                            {}
func (r *recordingRules) AutoPatchConsumables(actors []core.Actor) error          { return nil }

func newFixture(t *testing.T) (*Resolver, []*resource.Tracker, *recordingRules, *cache.RecordCache) {
	t.Helper()
	viper.Reset()
	config.SetDefaults()

	b, err := bus.New(testLogger{})
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rules := &recordingRules{}
	recs := cache.NewRecordCache()

	var trackers []*resource.Tracker
	for _, def := range resource.Definitions() {
		trackers = append(trackers, resource.NewTracker(def, memory.New(config.MemoryConfig{}), recs, b, rules, log))
	}
	return NewResolver(trackers, rules, b, log), trackers, rules, recs
}

func TestRecompute_MaxOfSeverities(t *testing.T) {
	resolver, _, rules, recs := newFixture(t)

	recs.Put("actor-1", core.Hunger, core.ResourceRecord{Level: 2})
	recs.Put("actor-1", core.Thirst, core.ResourceRecord{Level: 5})
	recs.Put("actor-1", core.Rest, core.ResourceRecord{Level: 1})

	level, err := resolver.Recompute("actor-1")
	require.NoError(t, err)
	assert.Equal(t, 5, level, "max, not sum")
	assert.Equal(t, 5, rules.exhaustion["actor-1"])
}

func TestRecompute_DisabledResourceIgnored(t *testing.T) {
	resolver, _, rules, recs := newFixture(t)

	recs.Put("actor-1", core.Hunger, core.ResourceRecord{Level: 2})
	recs.Put("actor-1", core.Thirst, core.ResourceRecord{Level: 6})
	viper.Set("thirstTracking", false)

	level, err := resolver.Recompute("actor-1")
	require.NoError(t, err)
	assert.Equal(t, 2, level, "disabled thirst must not contribute")
	assert.Equal(t, 2, rules.exhaustion["actor-1"])
}

func TestRecompute_NoRecordsWritesZero(t *testing.T) {
	resolver, _, rules, _ := newFixture(t)

	level, err := resolver.Recompute("actor-1")
	require.NoError(t, err)
	assert.Equal(t, 0, level)
	assert.Equal(t, 0, rules.exhaustion["actor-1"])
}

func TestRecompute_SkipsUnchangedWrites(t *testing.T) {
	resolver, _, rules, recs := newFixture(t)

	recs.Put("actor-1", core.Hunger, core.ResourceRecord{Level: 3})
	_, err := resolver.Recompute("actor-1")
	require.NoError(t, err)
	_, err = resolver.Recompute("actor-1")
	require.NoError(t, err)

	assert.Equal(t, 1, rules.writes)

	resolver.Forget("actor-1")
	_, err = resolver.Recompute("actor-1")
	require.NoError(t, err)
	assert.Equal(t, 2, rules.writes)
}
