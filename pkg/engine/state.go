// pkg/engine/state.go
package engine

import (
	"slices"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-rigid2d/pkg/physics"
	"github.com/opd-ai/go-rigid2d/pkg/quadtree"
)

// State is a snapshot of the simulation for renderers
type State struct {
	Step       uint64
	Paused     bool
	Diverged   bool
	Iterations int
	Bodies     []BodyState
	Contacts   []ContactState
	// QuadTree holds the broad-phase node boundaries of the last step, if
	// the quadtree broad phase is in use
	QuadTree []quadtree.Rect
	// QuadTreePoints holds the body centers indexed by that quadtree
	QuadTreePoints []physics.Vector2D
}

// BodyState represents a snapshot of a body
type BodyState struct {
	ID        physics.BodyID
	Kind      string
	Position  physics.Vector2D
	Rotation  float64
	Velocity  physics.Vector2D
	Radius    float64
	Vertices  []physics.Vector2D
	Local     []physics.Vector2D
	Static    bool
	Colliding bool
}

// ContactState represents a snapshot of a contact
type ContactState struct {
	A, B   physics.BodyID
	Start  physics.Vector2D
	End    physics.Vector2D
	Normal physics.Vector2D
	Depth  float64
}

// GetState returns a snapshot of the current simulation state
func (s *Simulation) GetState() *State {
	s.Lock.RLock()
	defer s.Lock.RUnlock()

	return s.createStateSnapshot()
}

func (s *Simulation) createStateSnapshot() *State {
	state := &State{
		Step:       s.CurrentStep,
		Paused:     s.Paused,
		Diverged:   s.breaker.State() == gobreaker.StateOpen,
		Iterations: s.World.Settings().Iterations,
		Bodies:     s.getBodyStates(),
		Contacts:   s.getContactStates(),
	}
	if tree := s.World.QuadTree(); tree != nil {
		state.QuadTree = tree.Boundaries()
		for _, p := range tree.Points() {
			state.QuadTreePoints = append(state.QuadTreePoints, physics.Vec(p.X, p.Y))
		}
	}
	return state
}

func (s *Simulation) getBodyStates() []BodyState {
	bodies := s.World.Bodies()
	states := make([]BodyState, 0, len(bodies))
	for _, b := range bodies {
		bs := BodyState{
			ID:        b.ID,
			Kind:      s.kinds[b.ID],
			Position:  b.Position,
			Rotation:  b.Rotation,
			Velocity:  b.Velocity,
			Static:    b.IsStatic(),
			Colliding: b.IsColliding,
		}
		switch shape := b.Shape.(type) {
		case *physics.CircleShape:
			bs.Radius = shape.Radius
		case *physics.PolygonShape:
			bs.Vertices = slices.Clone(shape.WorldVertices)
			bs.Local = slices.Clone(shape.LocalVertices)
		}
		states = append(states, bs)
	}
	return states
}

func (s *Simulation) getContactStates() []ContactState {
	contacts := s.World.Contacts()
	states := make([]ContactState, 0, len(contacts))
	for _, c := range contacts {
		states = append(states, ContactState{
			A:      c.A.ID,
			B:      c.B.ID,
			Start:  c.Start,
			End:    c.End,
			Normal: c.Normal,
			Depth:  c.Depth,
		})
	}
	return states
}
