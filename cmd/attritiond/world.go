package main

import (
	"log/slog"
	"sync"

	"github.com/fitvtt/attrition/pkg/core"
)

// worldState is the daemon's picture of the host world, maintained from
// bridge commands. It backs every host interface the engine consumes plus
// the dnd5e sheet writer, so one lock covers time, presence and actors.
type worldState struct {
	mu sync.RWMutex

	now           int64
	authoritative bool

	sceneActive bool
	onScene     map[core.ActorID]struct{}
	players     map[core.UserID]struct{}

	actors  map[core.ActorID]core.Actor
	attrs   map[core.ActorID]map[string]any
	effects map[core.ActorID]map[string]map[string]any

	log *slog.Logger
}

func newWorldState(log *slog.Logger) *worldState {
	return &worldState{
		onScene: make(map[core.ActorID]struct{}),
		players: make(map[core.UserID]struct{}),
		actors:  make(map[core.ActorID]core.Actor),
		attrs:   make(map[core.ActorID]map[string]any),
		effects: make(map[core.ActorID]map[string]map[string]any),
		log:     log,
	}
}

// Now returns the current world time in seconds.
func (w *worldState) Now() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.now
}

// IsAuthoritative reports whether this session evaluates attrition.
func (w *worldState) IsAuthoritative() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.authoritative
}

// HasActiveScene reports whether a scene is active.
func (w *worldState) HasActiveScene() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sceneActive
}

// ActiveActorIDs returns a copy of the on-scene actor set.
func (w *worldState) ActiveActorIDs() map[core.ActorID]struct{} {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[core.ActorID]struct{}, len(w.onScene))
	for id := range w.onScene {
		out[id] = struct{}{}
	}
	return out
}

// ConnectedPlayers returns a copy of the connected user set.
func (w *worldState) ConnectedPlayers() map[core.UserID]struct{} {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[core.UserID]struct{}, len(w.players))
	for id := range w.players {
		out[id] = struct{}{}
	}
	return out
}

// Actor returns the snapshot for id.
func (w *worldState) Actor(id core.ActorID) (core.Actor, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.actors[id]
	return a, ok
}

func (w *worldState) SetTime(now int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = now
}

func (w *worldState) SetAuthoritative(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.authoritative = v
}

func (w *worldState) UpsertActor(a core.Actor) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.actors[a.ID] = a
}

func (w *worldState) RemoveActor(id core.ActorID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.actors, id)
	delete(w.onScene, id)
	delete(w.attrs, id)
	delete(w.effects, id)
}

// SetScene replaces the on-scene actor set. An empty call deactivates the
// scene entirely, matching a GM closing the board.
func (w *worldState) SetScene(ids []core.ActorID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onScene = make(map[core.ActorID]struct{}, len(ids))
	for _, id := range ids {
		w.onScene[id] = struct{}{}
	}
	w.sceneActive = len(ids) > 0
}

func (w *worldState) SetPlayers(ids []core.UserID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.players = make(map[core.UserID]struct{}, len(ids))
	for _, id := range ids {
		w.players[id] = struct{}{}
	}
}

// SetAttribute records a sheet attribute write. The daemon has no real
// sheet; values are kept so the roster and tests can observe them and the
// write is logged for the host bridge to replay.
func (w *worldState) SetAttribute(id core.ActorID, path string, value any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.attrs[id] == nil {
		w.attrs[id] = make(map[string]any)
	}
	w.attrs[id][path] = value
	w.log.Info("sheet attribute", "actorId", id, "path", path, "value", value)
	return nil
}

// Attribute returns the last written value for an actor attribute path.
func (w *worldState) Attribute(id core.ActorID, path string) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.attrs[id][path]
	return v, ok
}

// ApplyEffect records a named effect with its attribute changes.
func (w *worldState) ApplyEffect(id core.ActorID, name string, changes map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.effects[id] == nil {
		w.effects[id] = make(map[string]map[string]any)
	}
	w.effects[id][name] = changes
	w.log.Info("sheet effect applied", "actorId", id, "effect", name)
	return nil
}

// RemoveEffect drops a named effect if present.
func (w *worldState) RemoveEffect(id core.ActorID, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.effects[id][name]; !ok {
		return nil
	}
	delete(w.effects[id], name)
	w.log.Info("sheet effect removed", "actorId", id, "effect", name)
	return nil
}

// Effect returns the changes of a named effect on an actor.
func (w *worldState) Effect(id core.ActorID, name string) (map[string]any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.effects[id][name]
	return c, ok
}

// UpdateItem patches fields on one carried item.
func (w *worldState) UpdateItem(actorID core.ActorID, itemID string, changes map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, ok := w.actors[actorID]
	if !ok {
		return nil
	}
	for i, it := range a.Items {
		if it.ID != itemID {
			continue
		}
		if v, ok := changes["useActivity"].(bool); ok {
			a.Items[i].UseActivity = v
		}
		if v, ok := changes["consumeFrom"].(string); ok {
			a.Items[i].ConsumeFrom = v
		}
		if v, ok := changes["quantity"].(int); ok {
			a.Items[i].Quantity = v
		}
		if v, ok := changes["charges"].(int); ok {
			a.Items[i].Charges = v
		}
	}
	w.actors[actorID] = a
	return nil
}

// Refresh is a no-op in the daemon; there is no sheet view to redraw.
func (w *worldState) Refresh(id core.ActorID) {
	w.log.Debug("sheet refresh requested", "actorId", id)
}
