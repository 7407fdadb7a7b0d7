package blueprint

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrInvalidPath     = errors.New("invalid path")
	ErrDuplicateEntity = errors.New("duplicate entity id")
)

// GlobalInputs is the ordered set of blueprint inputs. A Null default marks
// an input that must be supplied when the blueprint runs. Entries are never
// removed.
type GlobalInputs struct {
	names    []string
	defaults map[string]Value
}

// Len returns the number of inputs.
func (g *GlobalInputs) Len() int { return len(g.names) }

// Names returns input names in declaration order.
func (g *GlobalInputs) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// Has reports whether name is declared.
func (g *GlobalInputs) Has(name string) bool {
	_, ok := g.defaults[name]
	return ok
}

// Default returns the default for name; Null means required.
func (g *GlobalInputs) Default(name string) (Value, bool) {
	v, ok := g.defaults[name]
	return v, ok
}

// Set declares name or replaces its default.
func (g *GlobalInputs) Set(name string, def Value) {
	if g.defaults == nil {
		g.defaults = make(map[string]Value)
	}
	if _, ok := g.defaults[name]; !ok {
		g.names = append(g.names, name)
	}
	g.defaults[name] = def
}

// Declare adds name as a required input unless it already exists.
func (g *GlobalInputs) Declare(name string) {
	if !g.Has(name) {
		g.Set(name, Null())
	}
}

// Clone returns a deep copy.
func (g *GlobalInputs) Clone() GlobalInputs {
	out := GlobalInputs{}
	for _, name := range g.names {
		out.Set(name, g.defaults[name].Clone())
	}
	return out
}

// Graph owns the global inputs and entities of one blueprint. Entities are
// added but never removed.
type Graph struct {
	Inputs   GlobalInputs
	order    []string
	entities map[string]*Entity
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{entities: make(map[string]*Entity)}
}

// AddEntity inserts e. Ids must be unique.
func (g *Graph) AddEntity(e *Entity) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("add entity: %w", ErrInvalidPath)
	}
	if g.entities == nil {
		g.entities = make(map[string]*Entity)
	}
	if _, ok := g.entities[e.ID]; ok {
		return fmt.Errorf("add entity %q: %w", e.ID, ErrDuplicateEntity)
	}
	g.entities[e.ID] = e
	g.order = append(g.order, e.ID)
	return nil
}

// Entity returns the entity with id.
func (g *Graph) Entity(id string) (*Entity, bool) {
	e, ok := g.entities[id]
	return e, ok
}

// MustEntity returns the entity with id or ErrUnknownEntity.
func (g *Graph) MustEntity(id string) (*Entity, error) {
	e, ok := g.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %q: %w", id, ErrUnknownEntity)
	}
	return e, nil
}

// Has reports whether id exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.entities[id]
	return ok
}

// Entities returns entities in insertion order.
func (g *Graph) Entities() []*Entity {
	out := make([]*Entity, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.entities[id])
	}
	return out
}

// IDs returns entity ids in insertion order.
func (g *Graph) IDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the entity count.
func (g *Graph) Len() int { return len(g.order) }

// Clone returns a deep copy.
func (g *Graph) Clone() *Graph {
	out := NewGraph()
	out.Inputs = g.Inputs.Clone()
	for _, id := range g.order {
		out.entities[id] = g.entities[id].Clone()
		out.order = append(out.order, id)
	}
	return out
}
