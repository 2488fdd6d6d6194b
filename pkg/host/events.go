// pkg/host/events.go
package host

// Event names published on the engine's bus. Other components (sheets,
// tables, external sinks) subscribe to these; the engine guarantees the
// payload is the affected actor's id unless noted.
const (
	EventInitializeHunger = "initializeHunger"
	EventInitializeThirst = "initializeThirst"
	EventInitializeRest   = "initializeRest"

	EventUpdateHunger = "updateHunger"
	EventUpdateThirst = "updateThirst"
	EventUpdateRest   = "updateRest"

	EventConsumeFood  = "consumeFood"
	EventConsumeWater = "consumeWater"
	EventRestTaken    = "restTaken"
	EventResetHunger  = "resetHunger"

	// EventConsumeConfirmation carries the consumed resource's kind as a
	// string. Unlike the consumption events above it only fires when the
	// chat confirmation setting is on; chat sinks subscribe to this one.
	EventConsumeConfirmation = "consumeConfirmation"

	// EventEvaluateNeeds carries a core.Summary payload.
	EventEvaluateNeeds = "evaluateNeeds"

	// EventUpdateExhaustionEffect fires after the resolver commits a new
	// exhaustion value.
	EventUpdateExhaustionEffect = "updateExhaustionEffect"
)
