package dnd5e

import (
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitvtt/attrition/internal/config"
	"github.com/fitvtt/attrition/pkg/core"
)

type recordedWrite struct {
	id    core.ActorID
	path  string
	value any
}

type fakeSheets struct {
	attrs       []recordedWrite
	effects     map[string]map[string]any
	removals    []string
	itemPatches map[string]map[string]any
	refreshed   int
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{
		effects:     map[string]map[string]any{},
		itemPatches: map[string]map[string]any{},
	}
}

func (f *fakeSheets) SetAttribute(id core.ActorID, path string, value any) error {
	f.attrs = append(f.attrs, recordedWrite{id, path, value})
	return nil
}

func (f *fakeSheets) ApplyEffect(id core.ActorID, name string, changes map[string]any) error {
	f.effects[name] = changes
	return nil
}

func (f *fakeSheets) RemoveEffect(id core.ActorID, name string) error {
	f.removals = append(f.removals, name)
	return nil
}

func (f *fakeSheets) UpdateItem(actorID core.ActorID, itemID string, changes map[string]any) error {
	f.itemPatches[itemID] = changes
	return nil
}

func (f *fakeSheets) Refresh(id core.ActorID) {
	f.refreshed++
}

func newSystem(sheets SheetWriter) *System {
	return New(sheets, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAbilityBonus_ConstitutionOnlyForHunger(t *testing.T) {
	s := newSystem(newFakeSheets())
	actor := core.Actor{ID: "a1", ConModifier: 3}

	assert.Equal(t, 3, s.AbilityBonus(actor, core.Hunger))
	assert.Equal(t, 0, s.AbilityBonus(actor, core.Thirst))
	assert.Equal(t, 0, s.AbilityBonus(actor, core.Rest))
}

func TestAbilityBonus_NegativeConShortensGrace(t *testing.T) {
	s := newSystem(newFakeSheets())
	actor := core.Actor{ID: "a1", ConModifier: -1}

	assert.Equal(t, -1, s.AbilityBonus(actor, core.Hunger))
}

func TestWriteExhaustion(t *testing.T) {
	sheets := newFakeSheets()
	s := newSystem(sheets)

	require.NoError(t, s.WriteExhaustion("a1", 4))

	require.Len(t, sheets.attrs, 1)
	assert.Equal(t, "system.attributes.exhaustion", sheets.attrs[0].path)
	assert.Equal(t, 4, sheets.attrs[0].value)
}

func TestHungerDebuff_TempMaxHPPenalty(t *testing.T) {
	sheets := newFakeSheets()
	s := newSystem(sheets)

	require.NoError(t, s.ApplyHungerDebuff("a1", 3))

	changes, ok := sheets.effects["Hunger"]
	require.True(t, ok)
	assert.Equal(t, -3, changes["system.attributes.hp.tempmax"])
}

func TestHungerDebuff_ZeroDaysRemoves(t *testing.T) {
	sheets := newFakeSheets()
	s := newSystem(sheets)

	require.NoError(t, s.ApplyHungerDebuff("a1", 0))

	assert.Empty(t, sheets.effects)
	assert.Contains(t, sheets.removals, "Hunger")
}

func TestAutoPatchConsumables(t *testing.T) {
	viper.Reset()
	config.SetDefaults()
	sheets := newFakeSheets()
	s := newSystem(sheets)

	actor := core.Actor{
		ID: "a1",
		Items: []core.Item{
			{ID: "it-rations", Name: "Rations", Quantity: 5},
			{ID: "it-water", Name: "Waterskin", UseActivity: true, ConsumeFrom: "it-water"},
			{ID: "it-sword", Name: "Longsword"},
		},
	}

	require.NoError(t, s.AutoPatchConsumables([]core.Actor{actor}))

	// rations lacked both activity and consumption target
	patch, ok := sheets.itemPatches["it-rations"]
	require.True(t, ok)
	assert.Equal(t, true, patch["useActivity"])
	assert.Equal(t, "it-rations", patch["consumeFrom"])

	// waterskin was already well formed, sword is untracked
	assert.NotContains(t, sheets.itemPatches, "it-water")
	assert.NotContains(t, sheets.itemPatches, "it-sword")
}
