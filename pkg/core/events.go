// pkg/core/events.go
package core

// Tick is one world-time advance emitted by the host clock.
// Elapsed may be negative when a GM rewinds the calendar.
type Tick struct {
	Now     int64 // world time in seconds
	Elapsed int64 // seconds advanced since the previous tick
}

// ItemChange describes an inventory mutation observed on the host side.
// Negative deltas mean the item was consumed.
type ItemChange struct {
	ActorID       ActorID
	ItemName      string
	QuantityDelta int
	ChargesDelta  int
}

// ResourceRecord is the persisted tracking state for one actor/resource pair.
// Exactly one of AnchorTime or FrozenElapsed is authoritative at any time:
// FrozenElapsed is set only while the actor is absent from the active scene.
type ResourceRecord struct {
	AnchorTime     int64  // world time of the last reset (meal/drink/rest)
	FrozenElapsed  *int64 // elapsed seconds snapshotted when the actor left the scene
	LastNotifiedAt int64  // world time of the last summary notification
	Level          int    // last computed severity level
}

// Frozen reports whether the record currently holds a frozen snapshot.
func (r ResourceRecord) Frozen() bool {
	return r.FrozenElapsed != nil
}

// SummaryLine is one resource's contribution to a daily summary.
type SummaryLine struct {
	Kind  ResourceKind
	Level int
	Label string
}

// Summary is the combined per-actor notification covering every enabled
// resource, emitted at most once per in-game day.
type Summary struct {
	ActorID   ActorID
	ActorName string
	WorldTime int64
	Lines     []SummaryLine
}
