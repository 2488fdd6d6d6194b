// Package severity maps elapsed attrition time to bounded severity levels.
// One canonical formula for all three resources: whole elapsed days, minus
// the tolerance grace period, clamped to the resource's label range.
package severity

import (
	"math"

	"github.com/fitvtt/attrition/pkg/core"
)

// Label tables per resource, indexed by severity level. Index 0 is always
// the no-severity state.
var (
	HungerLabels = []string{
		"satisfied",
		"peckish",
		"hungry",
		"ravenous",
		"famished",
		"starving",
		"unconscious",
	}

	ThirstLabels = []string{
		"quenched",
		"parched",
		"thirsty",
		"dry",
		"dehydrated",
		"desiccated",
		"unconscious",
	}

	RestLabels = []string{
		"rested",
		"weary",
		"tired",
		"fatigued",
		"exhausted",
		"drained",
		"unconscious",
	}
)

// Labels returns the label table for a resource kind.
func Labels(kind core.ResourceKind) []string {
	switch kind {
	case core.Hunger:
		return HungerLabels
	case core.Thirst:
		return ThirstLabels
	case core.Rest:
		return RestLabels
	default:
		return nil
	}
}

// MaxLevel returns the saturation level for a resource kind.
func MaxLevel(kind core.ResourceKind) int {
	return len(Labels(kind)) - 1
}

// Level computes the severity level from raw elapsed days. The terrain
// multiplier has already been applied to elapsedDays by the caller; the day
// count floors before the tolerance is subtracted. A negative tolerance is
// treated as zero so the result is always defined.
func Level(elapsedDays float64, baseTolerance, bonus, maxLevel int) int {
	if baseTolerance < 0 {
		baseTolerance = 0
	}
	lvl := int(math.Floor(elapsedDays)) - (baseTolerance + bonus)
	if lvl < 0 {
		return 0
	}
	if lvl > maxLevel {
		return maxLevel
	}
	return lvl
}

// Label looks up a level in a label table. Out-of-range indices fall back to
// "unknown" rather than panicking.
func Label(table []string, level int) string {
	if level < 0 || level >= len(table) {
		return "unknown"
	}
	return table[level]
}
