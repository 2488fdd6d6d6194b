package severity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fitvtt/attrition/pkg/core"
)

func TestLevel_Monotonic(t *testing.T) {
	prev := 0
	for days := 0.0; days <= 20; days += 0.25 {
		lvl := Level(days, 1, 0, MaxLevel(core.Hunger))
		assert.GreaterOrEqual(t, lvl, prev, "level must not decrease at %v days", days)
		prev = lvl
	}
	assert.Equal(t, MaxLevel(core.Hunger), prev, "level must saturate")
}

func TestLevel_ToleranceBoundary(t *testing.T) {
	const tolerance = 2
	assert.Equal(t, 0, Level(float64(tolerance), tolerance, 0, 6))
	assert.Equal(t, 1, Level(float64(tolerance+1), tolerance, 0, 6))
	assert.Equal(t, 2, Level(float64(tolerance+2), tolerance, 0, 6))
}

func TestLevel_ConstitutionBonus(t *testing.T) {
	// baseTolerance=1, con mod +2, elapsed 4 days -> clamp(4-(1+2)) = 1
	assert.Equal(t, 1, Level(4, 1, 2, MaxLevel(core.Hunger)))
	assert.Equal(t, "peckish", Label(HungerLabels, 1))
}

func TestLevel_FloorsBeforeSubtracting(t *testing.T) {
	assert.Equal(t, 0, Level(1.9, 1, 0, 6))
	assert.Equal(t, 1, Level(2.0, 1, 0, 6))
}

func TestLevel_NegativeToleranceClamped(t *testing.T) {
	assert.Equal(t, 3, Level(3, -5, 0, 6))
}

func TestLevel_NegativeElapsedClampsToZero(t *testing.T) {
	assert.Equal(t, 0, Level(-4, 0, 0, 6))
}

func TestLabel_OutOfRange(t *testing.T) {
	assert.Equal(t, "unknown", Label(HungerLabels, -1))
	assert.Equal(t, "unknown", Label(HungerLabels, len(HungerLabels)))
	assert.Equal(t, "satisfied", Label(HungerLabels, 0))
	assert.Equal(t, "unconscious", Label(RestLabels, MaxLevel(core.Rest)))
}

func TestLabels_PerKind(t *testing.T) {
	for _, kind := range core.Kinds() {
		assert.NotEmpty(t, Labels(kind), kind.String())
		assert.Equal(t, len(Labels(kind))-1, MaxLevel(kind))
	}
	assert.Nil(t, Labels(core.ResourceKind(99)))
}
