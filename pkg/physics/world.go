package physics

import (
	"math"
	"slices"

	"github.com/opd-ai/go-rigid2d/pkg/quadtree"
)

const (
	// DefaultGravity is the downward acceleration in meters per second squared.
	DefaultGravity = 9.8
	// DefaultPixelsPerMeter converts meters to world units.
	DefaultPixelsPerMeter = 50.0
	// DefaultIterations is the number of solver passes per step.
	DefaultIterations = 10
)

// SolverMode selects how contacts are resolved.
type SolverMode int

const (
	// SolverConstraints turns each contact into a PenetrationConstraint.
	SolverConstraints SolverMode = iota
	// SolverDirect resolves each contact immediately with a single impulse.
	SolverDirect
)

// String implements fmt.Stringer
func (m SolverMode) String() string {
	switch m {
	case SolverConstraints:
		return "constraints"
	case SolverDirect:
		return "direct"
	default:
		return "unknown"
	}
}

// BroadPhase selects how candidate pairs are found.
type BroadPhase int

const (
	// BroadPhaseAllPairs tests every pair of bodies.
	BroadPhaseAllPairs BroadPhase = iota
	// BroadPhaseQuadTree rebuilds a quadtree each step and tests only
	// neighbours.
	BroadPhaseQuadTree
)

// String implements fmt.Stringer
func (p BroadPhase) String() string {
	switch p {
	case BroadPhaseAllPairs:
		return "all-pairs"
	case BroadPhaseQuadTree:
		return "quadtree"
	default:
		return "unknown"
	}
}

// WorldSettings tunes a World.
type WorldSettings struct {
	Gravity          float64
	PixelsPerMeter   float64
	Iterations       int
	BroadPhase       BroadPhase
	QuadTreeCapacity int
	Solver           SolverMode
}

// DefaultWorldSettings returns the settings used by NewWorld callers that do
// not care.
func DefaultWorldSettings() WorldSettings {
	return WorldSettings{
		Gravity:          DefaultGravity,
		PixelsPerMeter:   DefaultPixelsPerMeter,
		Iterations:       DefaultIterations,
		BroadPhase:       BroadPhaseAllPairs,
		QuadTreeCapacity: quadtree.DefaultCapacity,
		Solver:           SolverConstraints,
	}
}

// World owns the bodies and persistent constraints of a simulation and
// advances them with Update. A World is not safe for concurrent use.
type World struct {
	settings WorldSettings

	bodies      []*Body
	constraints []Constraint
	generators  []ForceGenerator
	nextID      BodyID

	// one-shot forces, cleared at the end of every Update
	forces  []Vector2D
	torques []float64

	// results of the last Update
	contacts     []Contact
	penetrations []*PenetrationConstraint
	tree         *quadtree.QuadTree[int]
}

// NewWorld creates an empty world.
func NewWorld(settings WorldSettings) *World {
	return &World{settings: settings}
}

// Settings returns the world's settings
func (w *World) Settings() WorldSettings {
	return w.settings
}

// SetIterations changes the number of solver passes per step.
func (w *World) SetIterations(n int) {
	w.settings.Iterations = n
}

// AddBody adds b to the world, assigning it an ID if it has none.
func (w *World) AddBody(b *Body) {
	if b.ID == 0 {
		w.nextID++
		b.ID = w.nextID
	}
	w.bodies = append(w.bodies, b)
}

// RemoveBody removes b and every constraint that references it. It returns
// false if b is not in the world.
func (w *World) RemoveBody(b *Body) bool {
	idx := slices.Index(w.bodies, b)
	if idx < 0 {
		return false
	}
	w.bodies = slices.Delete(w.bodies, idx, idx+1)
	w.constraints = slices.DeleteFunc(w.constraints, func(c Constraint) bool {
		a, other := c.Bodies()
		return a == b || other == b
	})
	return true
}

// Body returns the body with the given ID, or nil.
func (w *World) Body(id BodyID) *Body {
	for _, b := range w.bodies {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Bodies returns the bodies in insertion order. The slice must not be
// modified.
func (w *World) Bodies() []*Body {
	return w.bodies
}

// AddConstraint adds a persistent constraint
func (w *World) AddConstraint(c Constraint) {
	w.constraints = append(w.constraints, c)
}

// RemoveConstraint removes c, reporting whether it was present.
func (w *World) RemoveConstraint(c Constraint) bool {
	idx := slices.Index(w.constraints, c)
	if idx < 0 {
		return false
	}
	w.constraints = slices.Delete(w.constraints, idx, idx+1)
	return true
}

// Constraints returns the persistent constraints. The slice must not be
// modified.
func (w *World) Constraints() []Constraint {
	return w.constraints
}

// AddForceGenerator adds a force applied to every dynamic body each step.
func (w *World) AddForceGenerator(g ForceGenerator) {
	w.generators = append(w.generators, g)
}

// AddForce queues a force applied to every dynamic body during the next
// Update only.
func (w *World) AddForce(force Vector2D) {
	w.forces = append(w.forces, force)
}

// AddTorque queues a torque applied to every dynamic body during the next
// Update only.
func (w *World) AddTorque(torque float64) {
	w.torques = append(w.torques, torque)
}

// Contacts returns the contacts found by the last Update.
func (w *World) Contacts() []Contact {
	return w.contacts
}

// PenetrationConstraints returns the contact constraints solved by the last
// Update.
func (w *World) PenetrationConstraints() []*PenetrationConstraint {
	return w.penetrations
}

// QuadTree returns the broad-phase tree of the last Update, or nil when the
// all-pairs broad phase is in use.
func (w *World) QuadTree() *quadtree.QuadTree[int] {
	return w.tree
}

// Update advances the world by dt seconds.
func (w *World) Update(dt float64) {
	w.applyForces()

	for _, b := range w.bodies {
		b.IntegrateForces(dt)
	}

	w.detectCollisions()

	if w.settings.Solver == SolverDirect {
		for i := range w.contacts {
			w.contacts[i].ResolveCollision()
		}
	}

	constraints := make([]Constraint, 0, len(w.constraints)+len(w.penetrations))
	constraints = append(constraints, w.constraints...)
	for _, p := range w.penetrations {
		constraints = append(constraints, p)
	}

	for _, c := range constraints {
		c.PreSolve(dt)
	}
	for i := 0; i < w.settings.Iterations; i++ {
		for _, c := range constraints {
			c.Solve()
		}
	}
	for _, c := range constraints {
		c.PostSolve()
	}

	for _, b := range w.bodies {
		b.IntegrateVelocities(dt)
	}

	w.forces = w.forces[:0]
	w.torques = w.torques[:0]
}

func (w *World) applyForces() {
	for _, b := range w.bodies {
		if b.IsStatic() {
			continue
		}

		weight := Vector2D{
			X: 0,
			Y: b.GravityScale * w.settings.Gravity * b.Mass * w.settings.PixelsPerMeter,
		}
		b.AddForce(weight)

		for _, g := range w.generators {
			g.Apply(b)
		}
		for _, f := range w.forces {
			b.AddForce(f)
		}
		for _, t := range w.torques {
			b.AddTorque(t)
		}
	}
}

// detectCollisions rebuilds contacts, collision flags and, in constraint
// mode, the penetration constraints.
func (w *World) detectCollisions() {
	w.contacts = w.contacts[:0]
	w.penetrations = w.penetrations[:0]
	w.tree = nil

	for _, b := range w.bodies {
		b.IsColliding = false
	}

	test := func(i, j int) {
		a, b := w.bodies[i], w.bodies[j]
		if a.IsStatic() && b.IsStatic() {
			return
		}
		contacts, ok := IsColliding(a, b)
		if !ok {
			return
		}
		a.IsColliding = true
		b.IsColliding = true
		w.contacts = append(w.contacts, contacts...)
	}

	if w.settings.BroadPhase == BroadPhaseQuadTree {
		w.quadTreePairs(test)
	} else {
		for i := range w.bodies {
			for j := i + 1; j < len(w.bodies); j++ {
				test(i, j)
			}
		}
	}

	if w.settings.Solver == SolverConstraints {
		for _, c := range w.contacts {
			w.penetrations = append(w.penetrations, NewPenetrationConstraint(c))
		}
	}
}

// quadTreePairs indexes body centers in a fresh quadtree and calls test for
// every pair (i, j), i < j, whose bounding boxes could overlap. Pairs are
// visited in the same order as the all-pairs loop.
func (w *World) quadTreePairs(test func(i, j int)) {
	if len(w.bodies) == 0 {
		return
	}

	bounds := make([]AABB, len(w.bodies))
	all := w.bodies[0].Bounds()
	var maxHalf Vector2D
	for i, b := range w.bodies {
		bounds[i] = b.Bounds()
		all.Min.X = math.Min(all.Min.X, bounds[i].Min.X)
		all.Min.Y = math.Min(all.Min.Y, bounds[i].Min.Y)
		all.Max.X = math.Max(all.Max.X, bounds[i].Max.X)
		all.Max.Y = math.Max(all.Max.Y, bounds[i].Max.Y)

		half := bounds[i].HalfExtents()
		maxHalf.X = math.Max(maxHalf.X, half.X)
		maxHalf.Y = math.Max(maxHalf.Y, half.Y)
	}

	if !all.Min.IsFinite() || !all.Max.IsFinite() {
		for i := range w.bodies {
			for j := i + 1; j < len(w.bodies); j++ {
				test(i, j)
			}
		}
		return
	}

	// pad so the max edge is inside the half-open root boundary
	center := all.Center()
	half := all.HalfExtents()
	tree := quadtree.New[int](quadtree.NewRect(center.X, center.Y, half.X+1, half.Y+1), w.settings.QuadTreeCapacity)
	for i := range w.bodies {
		c := bounds[i].Center()
		tree.Insert(quadtree.Point[int]{X: c.X, Y: c.Y, Data: i})
	}
	w.tree = tree

	var found []quadtree.Point[int]
	var candidates []int
	for i := range w.bodies {
		c := bounds[i].Center()
		h := bounds[i].HalfExtents()
		area := quadtree.NewRect(c.X, c.Y, h.X+maxHalf.X+1, h.Y+maxHalf.Y+1)

		found = tree.Query(area, found[:0])
		candidates = candidates[:0]
		for _, p := range found {
			if p.Data > i {
				candidates = append(candidates, p.Data)
			}
		}
		slices.Sort(candidates)
		for _, j := range candidates {
			test(i, j)
		}
	}
}
