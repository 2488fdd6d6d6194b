// Package dnd5e adapts the engine to the dnd5e rule system: Constitution
// feeds the hunger grace period, exhaustion lives on the sheet's exhaustion
// attribute, and prolonged hunger shaves temporary max HP.
package dnd5e

import (
	"fmt"
	"log/slog"

	"github.com/fitvtt/attrition/internal/config"
	"github.com/fitvtt/attrition/pkg/core"
	"github.com/fitvtt/attrition/pkg/host"
)

// Attribute paths and effect names on the dnd5e sheet.
const (
	exhaustionPath = "system.attributes.exhaustion"
	tempMaxHPPath  = "system.attributes.hp.tempmax"
	hungerEffect   = "Hunger"
)

// SheetWriter applies attribute and effect changes to the host's actors.
// The host bridge implements it; tests substitute a recorder.
type SheetWriter interface {
	SetAttribute(id core.ActorID, path string, value any) error
	ApplyEffect(id core.ActorID, name string, changes map[string]any) error
	RemoveEffect(id core.ActorID, name string) error
	UpdateItem(actorID core.ActorID, itemID string, changes map[string]any) error
	Refresh(id core.ActorID)
}

// System implements host.RuleSystem for dnd5e.
type System struct {
	sheets SheetWriter
	log    *slog.Logger
}

var _ host.RuleSystem = (*System)(nil)

// New creates the dnd5e adapter.
func New(sheets SheetWriter, log *slog.Logger) *System {
	return &System{sheets: sheets, log: log}
}

// AbilityBonus returns the Constitution modifier for hunger and zero for
// everything else. Dwarves with Con 16 go hungry three days later; a sickly
// wizard with Con 8 starts starving a day early.
func (s *System) AbilityBonus(actor core.Actor, kind core.ResourceKind) int {
	if kind != core.Hunger {
		return 0
	}
	return actor.ConModifier
}

// WriteExhaustion commits the derived exhaustion value to the sheet.
func (s *System) WriteExhaustion(id core.ActorID, level int) error {
	if err := s.sheets.SetAttribute(id, exhaustionPath, level); err != nil {
		return fmt.Errorf("writing exhaustion for %s: %w", id, err)
	}
	return nil
}

// ApplyHungerDebuff applies the hunger effect as a temp-max-HP penalty of
// one point per hungry day.
func (s *System) ApplyHungerDebuff(id core.ActorID, daysHungry int) error {
	if daysHungry <= 0 {
		return s.RemoveHungerDebuff(id)
	}
	return s.sheets.ApplyEffect(id, hungerEffect, map[string]any{
		tempMaxHPPath: -daysHungry,
	})
}

// RemoveHungerDebuff removes the hunger effect if present.
func (s *System) RemoveHungerDebuff(id core.ActorID) error {
	return s.sheets.RemoveEffect(id, hungerEffect)
}

// RefreshSheet requests a presentation refresh.
func (s *System) RefreshSheet(id core.ActorID) {
	s.sheets.Refresh(id)
}

// AutoPatchConsumables normalizes the tracked ration and waterskin items so
// an explicit "use" decrements them: items missing a use activity or a
// consumption target get one pointed at themselves.
func (s *System) AutoPatchConsumables(actors []core.Actor) error {
	for _, actor := range actors {
		for _, kind := range []core.ResourceKind{core.Hunger, core.Thirst} {
			name := config.TrackedItemName(kind)
			if name == "" {
				continue
			}
			item, ok := actor.FindItem(name)
			if !ok {
				continue
			}
			if item.UseActivity && item.ConsumeFrom != "" {
				continue
			}

			changes := map[string]any{}
			if !item.UseActivity {
				changes["useActivity"] = true
			}
			if item.ConsumeFrom == "" {
				changes["consumeFrom"] = item.ID
			}
			if err := s.sheets.UpdateItem(actor.ID, item.ID, changes); err != nil {
				return fmt.Errorf("patching %s on %s: %w", name, actor.ID, err)
			}
			s.log.Debug("patched consumable", "actor", actor.ID, "item", name)
		}
	}
	return nil
}
