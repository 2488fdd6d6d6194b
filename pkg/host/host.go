// Package host defines the interfaces the embedding environment must supply.
// The engine treats the host as a passive event source plus a handful of
// lookups; concrete implementations are injected at startup rather than
// resolved by name at runtime.
package host

import "github.com/fitvtt/attrition/pkg/core"

// Clock supplies monotonic world time. Only one connected session is
// authoritative; everyone else observes and must not evaluate attrition.
type Clock interface {
	// Now returns the current world time in seconds.
	Now() int64

	// IsAuthoritative reports whether this session performs evaluation
	// (conventionally the GM session).
	IsAuthoritative() bool
}

// Scene exposes presence: which actors are on the active scene and which
// users are connected.
type Scene interface {
	// HasActiveScene reports whether any scene is currently active.
	HasActiveScene() bool

	// ActiveActorIDs returns the ids of actors with a token on the active scene.
	ActiveActorIDs() map[core.ActorID]struct{}

	// ConnectedPlayers returns the currently connected non-GM users.
	ConnectedPlayers() map[core.UserID]struct{}
}

// Actors resolves actor ids to boundary snapshots.
type Actors interface {
	// Actor returns the snapshot for id, or false if the id no longer resolves.
	Actor(id core.ActorID) (core.Actor, bool)
}

// RuleSystem is the pluggable adapter a concrete rule system implements.
// It owns the ability-modifier lookup and the exhaustion attribute; the
// engine's exhaustion resolver is the only caller of WriteExhaustion.
type RuleSystem interface {
	// AbilityBonus returns the actor's tolerance bonus for a resource.
	// Only hunger carries an ability bonus in the shipped dnd5e adapter.
	AbilityBonus(actor core.Actor, kind core.ResourceKind) int

	// WriteExhaustion writes the derived exhaustion value to the actor's
	// exhaustion attribute.
	WriteExhaustion(id core.ActorID, level int) error

	// ApplyHungerDebuff applies or updates the per-actor hunger effect
	// (a temp-max-HP penalty of -daysHungry in the dnd5e adapter).
	ApplyHungerDebuff(id core.ActorID, daysHungry int) error

	// RemoveHungerDebuff removes the hunger effect if present.
	RemoveHungerDebuff(id core.ActorID) error

	// RefreshSheet requests a presentation refresh for the actor.
	// No-op when no view is open.
	RefreshSheet(id core.ActorID)

	// AutoPatchConsumables normalizes activation/consumption metadata on
	// the tracked consumable items so explicit use works. Optional
	// bookkeeping; implementations may no-op.
	AutoPatchConsumables(actors []core.Actor) error
}
