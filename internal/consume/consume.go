// Package consume translates consumption into attrition resets. Explicit
// item use through the API is authoritative; the inventory-change observer
// is a fallback for hosts that only surface item updates, deduplicated so a
// single meal never resets twice.
package consume

import (
	"log/slog"
	"sync"

	"github.com/fitvtt/attrition/internal/bus"
	"github.com/fitvtt/attrition/internal/config"
	"github.com/fitvtt/attrition/internal/exhaustion"
	"github.com/fitvtt/attrition/internal/resource"
	"github.com/fitvtt/attrition/pkg/core"
	"github.com/fitvtt/attrition/pkg/host"
)

// dedupeWindow is how long, in world seconds, an observed inventory change
// is attributed to a preceding explicit use of the same item.
const dedupeWindow int64 = 10

type dedupeKey struct {
	actor core.ActorID
	kind  core.ResourceKind
}

// Handler applies consumption to the matching resource tracker.
type Handler struct {
	trackers map[core.ResourceKind]*resource.Tracker
	resolver *exhaustion.Resolver
	bus      *bus.Bus
	clock    host.Clock
	log      *slog.Logger

	mu           sync.Mutex
	lastExplicit map[dedupeKey]int64
}

// NewHandler creates the consumption handler.
func NewHandler(trackers []*resource.Tracker, resolver *exhaustion.Resolver,
	b *bus.Bus, clock host.Clock, log *slog.Logger) *Handler {
	byKind := make(map[core.ResourceKind]*resource.Tracker, len(trackers))
	for _, t := range trackers {
		byKind[t.Kind()] = t
	}
	return &Handler{
		trackers:     byKind,
		resolver:     resolver,
		bus:          b,
		clock:        clock,
		log:          log,
		lastExplicit: make(map[dedupeKey]int64),
	}
}

// ConsumeFood resets hunger tracking for an actor eating a ration.
func (h *Handler) ConsumeFood(id core.ActorID) error {
	return h.explicit(id, core.Hunger, host.EventConsumeFood)
}

// ConsumeWater resets thirst tracking for an actor drinking.
func (h *Handler) ConsumeWater(id core.ActorID) error {
	return h.explicit(id, core.Thirst, host.EventConsumeWater)
}

// RestTaken resets rest tracking after a completed long rest.
func (h *Handler) RestTaken(id core.ActorID) error {
	return h.explicit(id, core.Rest, host.EventRestTaken)
}

func (h *Handler) explicit(id core.ActorID, kind core.ResourceKind, event string) error {
	t, ok := h.trackers[kind]
	if !ok || !t.Enabled() {
		return nil
	}
	now := h.clock.Now()

	h.mu.Lock()
	h.lastExplicit[dedupeKey{id, kind}] = now
	h.mu.Unlock()

	if _, err := t.ResetTo(id, now); err != nil {
		return err
	}
	h.bus.Publish(bus.Event{Name: event, ActorID: id})
	h.confirm(id, kind)
	if _, err := h.resolver.Recompute(id); err != nil {
		return err
	}
	h.log.Debug("consumption applied", "actor", id, "resource", kind.String())
	return nil
}

// HandleItemChange is the observer fallback. Only decrements of the tracked
// consumables count, and a change arriving inside the dedupe window of an
// explicit use for the same actor and resource is dropped as its echo.
func (h *Handler) HandleItemChange(change core.ItemChange) error {
	if change.QuantityDelta >= 0 && change.ChargesDelta >= 0 {
		return nil
	}

	kind, ok := h.kindForItem(change.ItemName)
	if !ok {
		return nil
	}
	t := h.trackers[kind]
	if t == nil || !t.Enabled() {
		return nil
	}

	now := h.clock.Now()
	h.mu.Lock()
	at, seen := h.lastExplicit[dedupeKey{change.ActorID, kind}]
	h.mu.Unlock()
	if seen && now-at <= dedupeWindow {
		h.log.Debug("inventory echo dropped", "actor", change.ActorID, "item", change.ItemName)
		return nil
	}

	h.mu.Lock()
	h.lastExplicit[dedupeKey{change.ActorID, kind}] = now
	h.mu.Unlock()

	if _, err := t.ResetTo(change.ActorID, now); err != nil {
		return err
	}
	event := host.EventConsumeFood
	if kind == core.Thirst {
		event = host.EventConsumeWater
	}
	h.bus.Publish(bus.Event{Name: event, ActorID: change.ActorID})
	h.confirm(change.ActorID, kind)
	if _, err := h.resolver.Recompute(change.ActorID); err != nil {
		return err
	}
	h.log.Debug("observed consumption applied", "actor", change.ActorID, "item", change.ItemName)
	return nil
}

// confirm emits the chat confirmation for a consumption. The confirmChat
// setting gates only this; the consumption event itself always fires.
func (h *Handler) confirm(id core.ActorID, kind core.ResourceKind) {
	if !config.GetBool("confirmChat") {
		return
	}
	h.bus.Publish(bus.Event{Name: host.EventConsumeConfirmation, ActorID: id, Payload: kind.String()})
}

func (h *Handler) kindForItem(name string) (core.ResourceKind, bool) {
	switch name {
	case config.TrackedItemName(core.Hunger):
		return core.Hunger, true
	case config.TrackedItemName(core.Thirst):
		return core.Thirst, true
	default:
		return 0, false
	}
}
