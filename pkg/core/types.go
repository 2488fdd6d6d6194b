// pkg/core/types.go
package core

// ActorID identifies an actor in the host's world.
type ActorID string

// UserID identifies a connected user (player or GM).
type UserID string

// ResourceKind enumerates the tracked survival resources.
type ResourceKind uint8

const (
	Hunger ResourceKind = iota
	Thirst
	Rest
)

// Kinds returns all tracked resource kinds in evaluation order.
func Kinds() []ResourceKind {
	return []ResourceKind{Hunger, Thirst, Rest}
}

func (k ResourceKind) String() string {
	switch k {
	case Hunger:
		return "hunger"
	case Thirst:
		return "thirst"
	case Rest:
		return "rest"
	default:
		return "unknown"
	}
}

// Item is a consumable carried by an actor. Quantity and Charges mirror the
// host's inventory bookkeeping; either may be the unit of consumption.
type Item struct {
	ID          string
	Name        string
	Quantity    int
	Charges     int
	MaxCharges  int
	UseActivity bool   // item has a configured "use" activity
	ConsumeFrom string // item id consumption draws from
}

// Actor is the boundary snapshot of a host actor. The core never reaches into
// host-specific nested fields; everything it needs is flattened here.
type Actor struct {
	ID          ActorID
	Name        string
	PlayerOwned bool
	ConModifier int // Constitution-like modifier, hunger tolerance bonus
	Owners      []UserID
	Items       []Item
}

// FindItem returns the first carried item with the given name.
func (a Actor) FindItem(name string) (Item, bool) {
	for _, it := range a.Items {
		if it.Name == name {
			return it, true
		}
	}
	return Item{}, false
}
