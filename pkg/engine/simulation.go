// pkg/engine/simulation.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-rigid2d/pkg/config"
	"github.com/opd-ai/go-rigid2d/pkg/event"
	"github.com/opd-ai/go-rigid2d/pkg/logging"
	"github.com/opd-ai/go-rigid2d/pkg/physics"
	"github.com/opd-ai/go-rigid2d/pkg/quadtree"
)

// ErrDiverged is returned once too many consecutive steps produced
// non-finite body state. The simulation refuses to step until Reset.
var ErrDiverged = errors.New("simulation diverged")

// ErrBodyNotFound is returned by operations addressing a missing body.
var ErrBodyNotFound = errors.New("body not found")

var errNonFinite = errors.New("non-finite body state")

// maxFrameTime caps the wall-clock time Advance will simulate at once.
const maxFrameTime = 0.1

// breakerTimeout keeps a tripped breaker open for the life of a run.
const breakerTimeout = 24 * time.Hour

// Simulation drives a physics.World built from a SimulationConfig. It owns
// stepping, culling, divergence detection and event publication, and is
// safe for concurrent use. Event handlers run with Lock held and must not
// call back into the Simulation.
type Simulation struct {
	Config      *config.SimulationConfig
	World       *physics.World
	EventBus    *event.Bus
	Lock        sync.RWMutex
	CurrentStep uint64
	Paused      bool

	names   map[string]*physics.Body
	kinds   map[physics.BodyID]string
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger

	accumulator float64
}

// NewSimulation validates cfg and builds its scene from a private copy of it.
// A nil logger falls back to logging.NewLogger.
func NewSimulation(cfg *config.SimulationConfig, logger *logging.Logger) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, logging.WrapError(err, "invalid simulation config")
	}
	if logger == nil {
		logger = logging.NewLogger()
	}
	own, err := cfg.Clone()
	if err != nil {
		return nil, logging.WrapError(err, "copying simulation config")
	}

	s := &Simulation{
		Config:   own,
		EventBus: event.NewEventBus(),
		logger:   logger,
	}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

// build creates the world, scene and breaker from the config.
func (s *Simulation) build() error {
	s.World = physics.NewWorld(worldSettings(s.Config.Physics))
	s.names = make(map[string]*physics.Body)
	s.kinds = make(map[physics.BodyID]string)
	s.CurrentStep = 0
	s.accumulator = 0
	s.breaker = s.newBreaker()

	for i, bc := range s.Config.Bodies {
		body, err := NewBodyFromConfig(bc)
		if err != nil {
			return logging.WrapError(err, "building body %d", i)
		}
		s.addBody(body, bc.Shape)
		if bc.Name != "" {
			s.names[bc.Name] = body
		}
	}

	for _, jc := range s.Config.Joints {
		a, b := s.names[jc.A], s.names[jc.B]
		anchor := physics.Vec(jc.AnchorX, jc.AnchorY)
		s.World.AddConstraint(physics.NewJointConstraint(a, b, anchor))
	}

	for _, g := range forceGenerators(s.Config.Forces) {
		s.World.AddForceGenerator(g)
	}

	return nil
}

func (s *Simulation) newBreaker() *gobreaker.CircuitBreaker {
	tolerated := uint32(s.Config.Run.MaxDivergentSteps)
	settings := gobreaker.Settings{
		Name:    "rigid2d-step",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > tolerated
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn(context.Background(), "step breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	return gobreaker.NewCircuitBreaker(settings)
}

// worldSettings maps config names onto physics settings.
func worldSettings(pc config.PhysicsConfig) physics.WorldSettings {
	settings := physics.DefaultWorldSettings()
	settings.Gravity = pc.Gravity
	settings.PixelsPerMeter = pc.PixelsPerMeter
	if pc.Iterations > 0 {
		settings.Iterations = pc.Iterations
	}
	if pc.QuadTreeCapacity > 0 {
		settings.QuadTreeCapacity = pc.QuadTreeCapacity
	}
	if pc.BroadPhase == config.BroadPhaseQuadTree {
		settings.BroadPhase = physics.BroadPhaseQuadTree
	}
	if pc.Solver == config.SolverDirect {
		settings.Solver = physics.SolverDirect
	}
	return settings
}

func forceGenerators(fc config.ForcesConfig) []physics.ForceGenerator {
	var gens []physics.ForceGenerator
	if fc.Drag > 0 {
		gens = append(gens, physics.DragForce{K: fc.Drag})
	}
	if fc.Friction > 0 {
		gens = append(gens, physics.FrictionForce{K: fc.Friction})
	}
	if fc.Wind.X != 0 || fc.Wind.Y != 0 {
		gens = append(gens, physics.ConstantForce{Force: physics.Vec(fc.Wind.X, fc.Wind.Y)})
	}
	if fc.Torque != 0 {
		gens = append(gens, physics.ConstantTorque{Torque: fc.Torque})
	}
	return gens
}

// NewBodyFromConfig builds a body from its description. Polygon vertices
// given in the opposite winding are reversed.
func NewBodyFromConfig(bc config.BodyConfig) (*physics.Body, error) {
	var shape physics.Shape
	switch bc.Shape {
	case config.ShapeCircle:
		shape = physics.NewCircleShape(bc.Radius)
	case config.ShapeBox:
		shape = physics.NewBoxShape(bc.Width, bc.Height)
	case config.ShapePolygon:
		if len(bc.Vertices) < 3 {
			return nil, fmt.Errorf("polygon needs at least 3 vertices, got %d", len(bc.Vertices))
		}
		vertices := make([]physics.Vector2D, len(bc.Vertices))
		for i, v := range bc.Vertices {
			vertices[i] = physics.Vec(v[0], v[1])
		}
		shape = physics.NewPolygonShape(OrientVertices(vertices))
	default:
		return nil, fmt.Errorf("unknown shape %q", bc.Shape)
	}

	body := physics.NewBody(shape, bc.X, bc.Y, bc.Mass)
	body.Restitution = materialValue(bc.Restitution, body.Restitution)
	body.Friction = materialValue(bc.Friction, body.Friction)
	body.GravityScale = materialValue(bc.GravityScale, body.GravityScale)
	if bc.Rotation != 0 {
		body.SetTransform(body.Position, bc.Rotation)
	}
	return body, nil
}

// materialValue treats zero as unset and negative as an explicit zero.
func materialValue(v, fallback float64) float64 {
	switch {
	case v > 0:
		return v
	case v < 0:
		return 0
	default:
		return fallback
	}
}

// OrientVertices returns vertices wound so that polygon edge normals point
// outward in y-down screen space, reversing them if needed.
func OrientVertices(vertices []physics.Vector2D) []physics.Vector2D {
	area := 0.0
	for i, v := range vertices {
		area += v.Cross(vertices[(i+1)%len(vertices)])
	}
	if area >= 0 {
		return vertices
	}
	out := slices.Clone(vertices)
	slices.Reverse(out)
	return out
}

func (s *Simulation) addBody(b *physics.Body, kind string) {
	s.World.AddBody(b)
	s.kinds[b.ID] = kind
	s.EventBus.Publish(event.NewBodyEvent(event.BodyAdded, s, uint64(b.ID), kind))
}

func (s *Simulation) removeBody(b *physics.Body, reason string) {
	if !s.World.RemoveBody(b) {
		return
	}
	kind := s.kinds[b.ID]
	delete(s.kinds, b.ID)
	for name, nb := range s.names {
		if nb == b {
			delete(s.names, name)
		}
	}
	ev := event.NewBodyEvent(event.BodyRemoved, s, uint64(b.ID), kind)
	ev.Reason = reason
	s.EventBus.Publish(ev)
}

// Reset rebuilds the scene from the config and closes the breaker.
func (s *Simulation) Reset() error {
	s.Lock.Lock()
	defer s.Lock.Unlock()

	for _, b := range s.World.Bodies() {
		ev := event.NewBodyEvent(event.BodyRemoved, s, uint64(b.ID), s.kinds[b.ID])
		ev.Reason = "reset"
		s.EventBus.Publish(ev)
	}
	return s.build()
}

// Step advances the simulation by one fixed time step.
func (s *Simulation) Step(ctx context.Context) error {
	s.Lock.Lock()
	defer s.Lock.Unlock()

	return s.step(ctx)
}

// step runs one World update. A step that quarantines diverged bodies is
// logged and published but only fails once the breaker opens.
func (s *Simulation) step(ctx context.Context) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		s.World.Update(s.Config.Run.TimeStep)
		return nil, s.quarantineDiverged(ctx)
	})
	if s.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("%w at step %d: %v", ErrDiverged, s.CurrentStep, err)
	}

	s.CurrentStep++
	s.publishContacts()
	s.cullOutOfBounds(ctx)

	contacts := len(s.World.Contacts())
	bodies := len(s.World.Bodies())
	s.EventBus.Publish(event.NewStepEvent(event.StepCompleted, s, s.CurrentStep, bodies, contacts))

	if every := uint64(s.Config.Run.ReportEvery); every > 0 && s.CurrentStep%every == 0 {
		s.logger.Info(ctx, "simulation progress",
			"step", s.CurrentStep,
			"bodies", bodies,
			"contacts", contacts,
		)
	}
	return nil
}

// quarantineDiverged removes every body whose state went non-finite and
// reports the step as failed if there were any.
func (s *Simulation) quarantineDiverged(ctx context.Context) error {
	var diverged []*physics.Body
	for _, b := range s.World.Bodies() {
		if !b.IsFinite() {
			diverged = append(diverged, b)
		}
	}
	if len(diverged) == 0 {
		return nil
	}

	for _, b := range diverged {
		s.logger.Warn(ctx, "removing diverged body",
			"step", s.CurrentStep,
			"body_id", uint64(b.ID),
			"x", b.Position.X,
			"y", b.Position.Y,
			"vx", b.Velocity.X,
			"vy", b.Velocity.Y,
		)
		kind := s.kinds[b.ID]
		s.removeBody(b, "diverged")
		s.EventBus.Publish(event.NewBodyEvent(event.SimulationDiverged, s, uint64(b.ID), kind))
	}
	return fmt.Errorf("%w: %d bodies", errNonFinite, len(diverged))
}

func (s *Simulation) publishContacts() {
	for _, c := range s.World.Contacts() {
		s.EventBus.Publish(event.NewCollisionEvent(s,
			uint64(c.A.ID), uint64(c.B.ID), c.Depth,
			[2]float64{c.Normal.X, c.Normal.Y},
		))
	}
}

// cullOutOfBounds removes dynamic bodies whose bounds lie entirely outside
// the configured area grown by CullMargin.
func (s *Simulation) cullOutOfBounds(ctx context.Context) {
	bounds := s.Config.Bounds
	limit := physics.AABB{
		Min: physics.Vec(-bounds.CullMargin, -bounds.CullMargin),
		Max: physics.Vec(bounds.Width+bounds.CullMargin, bounds.Height+bounds.CullMargin),
	}

	var culled []*physics.Body
	for _, b := range s.World.Bodies() {
		if !b.IsStatic() && !b.Bounds().Overlaps(limit) {
			culled = append(culled, b)
		}
	}
	for _, b := range culled {
		s.logger.Debug(ctx, "culling body", "body_id", uint64(b.ID), "x", b.Position.X, "y", b.Position.Y)
		s.removeBody(b, "culled")
	}
}

// Run performs n steps, stopping early if ctx is cancelled or the
// simulation diverges.
func (s *Simulation) Run(ctx context.Context, n int) error {
	start := time.Now()
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("run cancelled after %d steps: %w", i, ctx.Err())
		default:
		}

		if err := s.Step(ctx); err != nil {
			s.logger.Error(ctx, "run aborted", err, "step", i)
			return err
		}
	}

	s.logger.Info(ctx, "run complete",
		"steps", n,
		"elapsed", time.Since(start).String(),
		"bodies", s.BodyCount(),
	)
	return nil
}

// Advance simulates elapsed seconds of wall-clock time in fixed steps and
// returns how many steps it took. Time that does not fill a whole step is
// carried to the next call.
func (s *Simulation) Advance(ctx context.Context, elapsed float64) (int, error) {
	s.Lock.Lock()
	defer s.Lock.Unlock()

	if s.Paused {
		return 0, nil
	}

	s.accumulator += math.Min(math.Max(elapsed, 0), maxFrameTime)
	dt := s.Config.Run.TimeStep
	steps := 0
	for s.accumulator >= dt {
		if err := s.step(ctx); err != nil {
			s.accumulator = 0
			return steps, err
		}
		s.accumulator -= dt
		steps++
	}
	return steps, nil
}

// TogglePause flips Paused and returns the new value.
func (s *Simulation) TogglePause() bool {
	s.Lock.Lock()
	defer s.Lock.Unlock()

	s.Paused = !s.Paused
	return s.Paused
}

// Diverged reports whether the breaker has tripped.
func (s *Simulation) Diverged() bool {
	return s.BreakerState() == gobreaker.StateOpen
}

// BreakerState returns the step breaker's state.
func (s *Simulation) BreakerState() gobreaker.State {
	s.Lock.RLock()
	defer s.Lock.RUnlock()

	return s.breaker.State()
}

// BodyCount returns the number of bodies in the world.
func (s *Simulation) BodyCount() int {
	s.Lock.RLock()
	defer s.Lock.RUnlock()

	return len(s.World.Bodies())
}

// Spawn adds a body described by bc and returns its ID.
func (s *Simulation) Spawn(bc config.BodyConfig) (physics.BodyID, error) {
	body, err := NewBodyFromConfig(bc)
	if err != nil {
		return 0, err
	}

	s.Lock.Lock()
	defer s.Lock.Unlock()

	if bc.Name != "" {
		if _, exists := s.names[bc.Name]; exists {
			return 0, fmt.Errorf("body name %q already in use", bc.Name)
		}
		s.names[bc.Name] = body
	}
	s.addBody(body, bc.Shape)
	return body.ID, nil
}

// SpawnCircle adds a dynamic circle at (x, y).
func (s *Simulation) SpawnCircle(x, y, radius, mass float64) (physics.BodyID, error) {
	return s.Spawn(config.BodyConfig{Shape: config.ShapeCircle, Radius: radius, X: x, Y: y, Mass: mass})
}

// SpawnBox adds a dynamic box at (x, y).
func (s *Simulation) SpawnBox(x, y, width, height, mass float64) (physics.BodyID, error) {
	return s.Spawn(config.BodyConfig{Shape: config.ShapeBox, Width: width, Height: height, X: x, Y: y, Mass: mass})
}

// RemoveBody removes the body with the given ID.
func (s *Simulation) RemoveBody(id physics.BodyID) error {
	s.Lock.Lock()
	defer s.Lock.Unlock()

	b := s.World.Body(id)
	if b == nil {
		return fmt.Errorf("%w: %d", ErrBodyNotFound, id)
	}
	s.removeBody(b, "removed")
	return nil
}

// ApplyImpulse applies a linear impulse at the body's center.
func (s *Simulation) ApplyImpulse(id physics.BodyID, j physics.Vector2D) error {
	s.Lock.Lock()
	defer s.Lock.Unlock()

	b := s.World.Body(id)
	if b == nil {
		return fmt.Errorf("%w: %d", ErrBodyNotFound, id)
	}
	b.ApplyImpulseLinear(j)
	return nil
}

// AddForce pushes every dynamic body during the next step only. It is
// ignored while paused, so input given during a pause does not pile up.
func (s *Simulation) AddForce(force physics.Vector2D) {
	s.Lock.Lock()
	defer s.Lock.Unlock()

	if s.Paused {
		return
	}
	s.World.AddForce(force)
}

// AddTorque spins every dynamic body during the next step only. Like
// AddForce, it is ignored while paused.
func (s *Simulation) AddTorque(torque float64) {
	s.Lock.Lock()
	defer s.Lock.Unlock()

	if s.Paused {
		return
	}
	s.World.AddTorque(torque)
}

// SetIterations changes the number of solver passes per step.
func (s *Simulation) SetIterations(n int) {
	s.Lock.Lock()
	defer s.Lock.Unlock()

	s.World.SetIterations(n)
}

// BodyByName returns the ID of a named body.
func (s *Simulation) BodyByName(name string) (physics.BodyID, bool) {
	s.Lock.RLock()
	defer s.Lock.RUnlock()

	b, ok := s.names[name]
	if !ok {
		return 0, false
	}
	return b.ID, true
}

// IsDynamic reports whether id names a body that responds to impulses.
func (s *Simulation) IsDynamic(id physics.BodyID) bool {
	s.Lock.RLock()
	defer s.Lock.RUnlock()

	b := s.World.Body(id)
	return b != nil && !b.IsStatic()
}

// BodyAt returns the topmost body containing point. Bodies added later are
// on top.
func (s *Simulation) BodyAt(point physics.Vector2D) (physics.BodyID, bool) {
	s.Lock.RLock()
	defer s.Lock.RUnlock()

	bodies := s.World.Bodies()
	for i := len(bodies) - 1; i >= 0; i-- {
		if bodies[i].ContainsPoint(point) {
			return bodies[i].ID, true
		}
	}
	return 0, false
}

// QueryRange returns the IDs of bodies whose centers lie in the rectangle
// centered on center with the given half extents, in ascending order.
func (s *Simulation) QueryRange(center physics.Vector2D, halfW, halfH float64) []physics.BodyID {
	s.Lock.RLock()
	defer s.Lock.RUnlock()

	bounds := s.Config.Bounds
	root := quadtree.NewRect(bounds.Width/2, bounds.Height/2,
		bounds.Width/2+bounds.CullMargin+1, bounds.Height/2+bounds.CullMargin+1)
	tree := quadtree.New[physics.BodyID](root, s.Config.Physics.QuadTreeCapacity)
	for _, b := range s.World.Bodies() {
		tree.Insert(quadtree.Point[physics.BodyID]{X: b.Position.X, Y: b.Position.Y, Data: b.ID})
	}

	found := tree.Query(quadtree.NewRect(center.X, center.Y, halfW, halfH), nil)
	ids := make([]physics.BodyID, 0, len(found))
	for _, p := range found {
		ids = append(ids, p.Data)
	}
	slices.Sort(ids)
	return ids
}
