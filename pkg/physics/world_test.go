package physics

import (
	"math"
	"math/rand"
	"testing"
)

const frame = 1.0 / 60

func TestWorld_AddRemoveBodies(t *testing.T) {
	w := NewWorld(DefaultWorldSettings())
	a := NewBody(NewCircleShape(1), 0, 0, 1)
	b := NewBody(NewCircleShape(1), 5, 0, 1)
	c := NewBody(NewCircleShape(1), 10, 0, 1)
	w.AddBody(a)
	w.AddBody(b)
	w.AddBody(c)

	if a.ID == 0 || a.ID == b.ID || b.ID == c.ID {
		t.Fatalf("expected distinct non-zero IDs, got %d %d %d", a.ID, b.ID, c.ID)
	}
	if w.Body(b.ID) != b {
		t.Error("Body() did not find the body by ID")
	}

	ab := NewJointConstraint(a, b, Vec(2.5, 0))
	bc := NewJointConstraint(b, c, Vec(7.5, 0))
	ac := NewJointConstraint(a, c, Vec(5, 0))
	w.AddConstraint(ab)
	w.AddConstraint(bc)
	w.AddConstraint(ac)

	if !w.RemoveBody(b) {
		t.Fatal("RemoveBody returned false for a known body")
	}
	if w.RemoveBody(b) {
		t.Error("RemoveBody returned true for a body already removed")
	}
	if len(w.Bodies()) != 2 || w.Body(b.ID) != nil {
		t.Errorf("expected 2 bodies without b, got %d", len(w.Bodies()))
	}
	if cs := w.Constraints(); len(cs) != 1 || cs[0] != Constraint(ac) {
		t.Errorf("expected only the a-c joint to survive, got %d constraints", len(cs))
	}

	if !w.RemoveConstraint(ac) || len(w.Constraints()) != 0 {
		t.Error("RemoveConstraint did not remove the joint")
	}
	if w.RemoveConstraint(ac) {
		t.Error("RemoveConstraint returned true for a missing joint")
	}
}

func TestWorld_GravityAndStaticBodies(t *testing.T) {
	w := NewWorld(DefaultWorldSettings())
	ball := NewBody(NewCircleShape(1), 0, 0, 2)
	wall := NewBody(NewBoxShape(10, 10), 100, 100, 0)
	half := NewBody(NewCircleShape(1), 50, 0, 1)
	half.GravityScale = 0.5
	w.AddBody(ball)
	w.AddBody(wall)
	w.AddBody(half)
	w.AddForceGenerator(ConstantForce{Force: Vec(100, 0)})
	w.AddForceGenerator(ConstantTorque{Torque: 5})

	w.Update(frame)

	// weight = m * 9.8 * 50, so the acceleration is independent of mass
	wantVY := DefaultGravity * DefaultPixelsPerMeter * frame
	if math.Abs(ball.Velocity.Y-wantVY) > 1e-9 {
		t.Errorf("ball velocity Y = %v, expected %v", ball.Velocity.Y, wantVY)
	}
	if math.Abs(half.Velocity.Y-wantVY/2) > 1e-9 {
		t.Errorf("half-gravity velocity Y = %v, expected %v", half.Velocity.Y, wantVY/2)
	}
	if wall.Position != Vec(100, 100) || wall.Velocity != (Vector2D{}) {
		t.Errorf("static wall moved to %v with velocity %v", wall.Position, wall.Velocity)
	}
	if ball.AngularVelocity <= 0 {
		t.Error("constant torque generator did not spin the ball")
	}
}

func TestWorld_OneShotForcesAreCleared(t *testing.T) {
	settings := DefaultWorldSettings()
	settings.Gravity = 0
	w := NewWorld(settings)
	b := NewBody(NewCircleShape(1), 0, 0, 2)
	w.AddBody(b)

	w.AddForce(Vec(120, 0))
	w.AddTorque(3)
	w.Update(frame)

	wantVX := 120.0 / 2 * frame
	if math.Abs(b.Velocity.X-wantVX) > 1e-9 {
		t.Fatalf("velocity X = %v, expected %v", b.Velocity.X, wantVX)
	}
	spin := b.AngularVelocity
	if spin <= 0 {
		t.Fatal("one-shot torque did not spin the body")
	}

	w.Update(frame)
	if math.Abs(b.Velocity.X-wantVX) > 1e-9 {
		t.Errorf("one-shot force applied twice: velocity X = %v", b.Velocity.X)
	}
	if b.AngularVelocity != spin {
		t.Errorf("one-shot torque applied twice: angular velocity %v", b.AngularVelocity)
	}
}

func TestForceGenerators(t *testing.T) {
	tests := []struct {
		name      string
		generator ForceGenerator
		velocity  Vector2D
		force     Vector2D
		torque    float64
	}{
		{name: "drag", generator: DragForce{K: 0.5}, velocity: Vec(0, 4), force: Vec(0, -8)},
		{name: "drag_at_rest", generator: DragForce{K: 0.5}, velocity: Vec(0, 0), force: Vec(0, 0)},
		{name: "friction", generator: FrictionForce{K: 3}, velocity: Vec(-10, 0), force: Vec(3, 0)},
		{name: "friction_at_rest", generator: FrictionForce{K: 3}, velocity: Vec(0, 0), force: Vec(0, 0)},
		{name: "constant_force", generator: ConstantForce{Force: Vec(1, 2)}, force: Vec(1, 2)},
		{name: "constant_torque", generator: ConstantTorque{Torque: 7}, torque: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBody(NewCircleShape(1), 0, 0, 1)
			b.Velocity = tt.velocity
			tt.generator.Apply(b)

			if !vecNear(b.NetForce, tt.force, 1e-9) {
				t.Errorf("NetForce = %v, expected %v", b.NetForce, tt.force)
			}
			if b.NetTorque != tt.torque {
				t.Errorf("NetTorque = %v, expected %v", b.NetTorque, tt.torque)
			}
		})
	}
}

func TestWorld_CollisionFlags(t *testing.T) {
	settings := DefaultWorldSettings()
	settings.Gravity = 0
	w := NewWorld(settings)

	a := NewBody(NewCircleShape(5), 0, 0, 1)
	b := NewBody(NewCircleShape(5), 8, 0, 1)
	c := NewBody(NewCircleShape(5), 100, 0, 1)
	w.AddBody(a)
	w.AddBody(b)
	w.AddBody(c)

	w.Update(frame)

	if !a.IsColliding || !b.IsColliding {
		t.Error("overlapping circles should be flagged as colliding")
	}
	if c.IsColliding {
		t.Error("isolated circle should not be flagged")
	}
	if len(w.Contacts()) != 1 || len(w.PenetrationConstraints()) != 1 {
		t.Errorf("expected 1 contact and 1 penetration constraint, got %d and %d",
			len(w.Contacts()), len(w.PenetrationConstraints()))
	}

	// the constraint pushes the pair apart
	if a.Velocity.X >= 0 || b.Velocity.X <= 0 {
		t.Errorf("expected the circles to separate, velocities a %v b %v", a.Velocity, b.Velocity)
	}

	c.SetTransform(Vec(1000, 1000), 0)
	a.SetTransform(Vec(-500, 0), 0)
	w.Update(frame)
	if a.IsColliding || b.IsColliding {
		t.Error("collision flags should be recomputed every step")
	}
}

func TestWorld_StaticPairsAreSkipped(t *testing.T) {
	w := NewWorld(DefaultWorldSettings())
	w.AddBody(NewBody(NewBoxShape(10, 10), 0, 0, 0))
	w.AddBody(NewBody(NewBoxShape(10, 10), 5, 0, 0))

	w.Update(frame)
	if len(w.Contacts()) != 0 {
		t.Errorf("static bodies produced %d contacts", len(w.Contacts()))
	}
}

// newFloorScene builds a static floor whose top face sits at y = 550 and a
// ball of radius 20 resting center at y = 530 once settled.
func newFloorScene(settings WorldSettings, ballY float64) (*World, *Body, *Body) {
	w := NewWorld(settings)
	floor := NewBody(NewBoxShape(800, 50), 400, 575, 0)
	ball := NewBody(NewCircleShape(20), 400, ballY, 1)
	ball.Restitution = 0.2
	w.AddBody(floor)
	w.AddBody(ball)
	return w, floor, ball
}

func TestWorld_BallSettlesOnFloor(t *testing.T) {
	// restingSpeed is far below the 8.2 px/s one frame of gravity adds, so
	// a ball under it is held by the floor rather than bouncing on it
	const restingSpeed = 0.5

	for _, broad := range []BroadPhase{BroadPhaseAllPairs, BroadPhaseQuadTree} {
		t.Run(broad.String(), func(t *testing.T) {
			settings := DefaultWorldSettings()
			settings.Iterations = 10
			settings.BroadPhase = broad
			w, floor, ball := newFloorScene(settings, 450)

			for step := 0; step < 300; step++ {
				w.Update(frame)

				if !ball.IsFinite() {
					t.Fatalf("step %d: ball state diverged: %+v", step, ball)
				}
				// impact peaks a little over 1 px deep
				if ball.Position.Y > 532 {
					t.Fatalf("step %d: ball sank into the floor to y = %v", step, ball.Position.Y)
				}
				for _, p := range w.PenetrationConstraints() {
					if p.NormalLambda() < 0 {
						t.Fatalf("step %d: normal lambda %v < 0", step, p.NormalLambda())
					}
					if limit := p.Friction() * p.NormalLambda(); math.Abs(p.TangentLambda()) > limit+1e-9 {
						t.Fatalf("step %d: tangent lambda %v outside +-%v", step, p.TangentLambda(), limit)
					}
				}

				if step >= 200 {
					if math.Abs(ball.Position.Y-530) > 0.5 {
						t.Fatalf("step %d: ball at y = %v, expected to rest near 530", step, ball.Position.Y)
					}
					if speed := ball.Velocity.Length(); speed > restingSpeed {
						t.Fatalf("step %d: resting ball still moving at %v px/s", step, speed)
					}
					if !ball.IsColliding {
						t.Fatalf("step %d: resting ball lost contact with the floor", step)
					}
				}
			}

			if floor.Position != Vec(400, 575) {
				t.Errorf("floor moved to %v", floor.Position)
			}
		})
	}
}

func TestWorld_BoxStackFrictionCone(t *testing.T) {
	settings := DefaultWorldSettings()
	w := NewWorld(settings)
	w.AddBody(NewBody(NewBoxShape(800, 50), 400, 575, 0))

	box := NewBody(NewBoxShape(40, 40), 400, 520, 1)
	box.Friction = 0.3
	box.Velocity = Vec(150, 0)
	w.AddBody(box)

	for step := 0; step < 120; step++ {
		w.Update(frame)
		for _, p := range w.PenetrationConstraints() {
			if p.NormalLambda() < 0 {
				t.Fatalf("step %d: normal lambda %v < 0", step, p.NormalLambda())
			}
			if limit := p.Friction() * p.NormalLambda(); math.Abs(p.TangentLambda()) > limit+1e-9 {
				t.Fatalf("step %d: tangent lambda %v outside +-%v", step, p.TangentLambda(), limit)
			}
		}
	}

	if !box.IsFinite() {
		t.Fatalf("box diverged: %+v", box)
	}
	if box.Velocity.X >= 150 {
		t.Errorf("friction did not slow the sliding box: %v", box.Velocity)
	}
}

func TestWorld_JointKeepsFreeBodiesTogether(t *testing.T) {
	w := NewWorld(DefaultWorldSettings())
	a := NewBody(NewCircleShape(10), 100, 100, 1)
	b := NewBody(NewBoxShape(20, 20), 140, 100, 2)
	w.AddBody(a)
	w.AddBody(b)
	joint := NewJointConstraint(a, b, Vec(120, 100))
	w.AddConstraint(joint)

	for step := 0; step < 120; step++ {
		w.Update(frame)

		pa := a.WorldPoint(joint.APoint)
		pb := b.WorldPoint(joint.BPoint)
		if d := pa.Distance(pb); d > 1e-6 {
			t.Fatalf("step %d: anchors drifted %v apart", step, d)
		}
	}

	if a.Position.Y <= 100 {
		t.Error("joined bodies should fall under gravity")
	}
}

// The joint's positional error is the squared anchor distance, so its
// Jacobian shrinks with the gap and only resists motion along it. A swinging
// pendulum therefore drifts, but the drift stays bounded.
func TestWorld_PendulumJointDriftIsBounded(t *testing.T) {
	w := NewWorld(DefaultWorldSettings())
	pivot := NewBody(NewCircleShape(5), 400, 100, 0)
	bob := NewBody(NewCircleShape(10), 500, 100, 1)
	w.AddBody(pivot)
	w.AddBody(bob)
	joint := NewJointConstraint(pivot, bob, pivot.Position)
	w.AddConstraint(joint)

	const length = 100.0
	maxY := bob.Position.Y
	for step := 0; step < 600; step++ {
		w.Update(frame)
		maxY = math.Max(maxY, bob.Position.Y)

		if !bob.IsFinite() {
			t.Fatalf("step %d: bob diverged", step)
		}
		pa := pivot.WorldPoint(joint.APoint)
		pb := bob.WorldPoint(joint.BPoint)
		if d := pa.Distance(pb); d > 0.6*length {
			t.Fatalf("step %d: anchors drifted %v apart", step, d)
		}
	}

	if maxY < 100+0.5*length {
		t.Errorf("pendulum bob only swung down to y = %v", maxY)
	}
	if pivot.Position != Vec(400, 100) {
		t.Errorf("static pivot moved to %v", pivot.Position)
	}
}

func TestWorld_HangingJointHolds(t *testing.T) {
	w := NewWorld(DefaultWorldSettings())
	pivot := NewBody(NewCircleShape(5), 400, 100, 0)
	bob := NewBody(NewCircleShape(10), 400, 180, 1)
	w.AddBody(pivot)
	w.AddBody(bob)
	joint := NewJointConstraint(pivot, bob, pivot.Position)
	w.AddConstraint(joint)

	for step := 0; step < 300; step++ {
		w.Update(frame)

		pa := pivot.WorldPoint(joint.APoint)
		pb := bob.WorldPoint(joint.BPoint)
		if d := pa.Distance(pb); d > 0.5 {
			t.Fatalf("step %d: anchors drifted %v apart", step, d)
		}
	}

	if math.Abs(bob.Position.X-400) > 1e-9 || math.Abs(bob.Position.Y-180) > 0.5 {
		t.Errorf("hanging bob moved to %v", bob.Position)
	}
}

func TestWorld_DirectSolver(t *testing.T) {
	settings := DefaultWorldSettings()
	settings.Solver = SolverDirect
	w, _, ball := newFloorScene(settings, 450)
	ball.Restitution = 1

	bounced := false
	for step := 0; step < 120; step++ {
		w.Update(frame)
		if len(w.PenetrationConstraints()) != 0 {
			t.Fatal("direct mode should not build penetration constraints")
		}
		if len(w.Contacts()) > 0 && ball.Velocity.Y < 0 {
			bounced = true
		}
		if ball.Position.Y > 545 {
			t.Fatalf("step %d: ball sank through the floor to y = %v", step, ball.Position.Y)
		}
	}
	if !bounced {
		t.Error("ball never bounced off the floor")
	}
}

// newScatteredWorld fills a world with a reproducible mix of shapes, many of
// them overlapping.
func newScatteredWorld(settings WorldSettings) *World {
	w := NewWorld(settings)
	rng := rand.New(rand.NewSource(3))

	w.AddBody(NewBody(NewBoxShape(1000, 40), 500, 780, 0))
	for i := 0; i < 120; i++ {
		x := rng.Float64() * 1000
		y := rng.Float64() * 760
		var b *Body
		switch i % 3 {
		case 0:
			b = NewBody(NewCircleShape(5+rng.Float64()*25), x, y, 1+rng.Float64())
		case 1:
			b = NewBody(NewBoxShape(10+rng.Float64()*40, 10+rng.Float64()*40), x, y, 1+rng.Float64())
		default:
			b = NewBody(NewPolygonShape([]Vector2D{{X: -15, Y: 10}, {X: 0, Y: -20}, {X: 15, Y: 10}}), x, y, 1)
		}
		b.SetTransform(b.Position, rng.Float64()*2*math.Pi)
		w.AddBody(b)
	}
	return w
}

func TestWorld_QuadTreeBroadPhaseMatchesAllPairs(t *testing.T) {
	allPairs := DefaultWorldSettings()
	allPairs.BroadPhase = BroadPhaseAllPairs

	tree := DefaultWorldSettings()
	tree.BroadPhase = BroadPhaseQuadTree
	tree.QuadTreeCapacity = 2

	w1 := newScatteredWorld(allPairs)
	w2 := newScatteredWorld(tree)

	for step := 0; step < 5; step++ {
		w1.Update(frame)
		w2.Update(frame)

		c1, c2 := w1.Contacts(), w2.Contacts()
		if step == 0 && len(c1) == 0 {
			t.Fatal("scene produced no contacts")
		}
		if len(c1) != len(c2) {
			t.Fatalf("step %d: all-pairs found %d contacts, quadtree %d", step, len(c1), len(c2))
		}
		for i := range c1 {
			if c1[i].A.ID != c2[i].A.ID || c1[i].B.ID != c2[i].B.ID ||
				c1[i].Depth != c2[i].Depth || c1[i].Normal != c2[i].Normal {
				t.Fatalf("step %d: contact %d differs: %+v vs %+v", step, i, c1[i], c2[i])
			}
		}
	}

	qt := w2.QuadTree()
	if qt == nil {
		t.Fatal("quadtree broad phase should expose its tree")
	}
	if qt.Len() != len(w2.Bodies()) {
		t.Errorf("tree holds %d points, expected %d", qt.Len(), len(w2.Bodies()))
	}
	if w1.QuadTree() != nil {
		t.Error("all-pairs broad phase should not build a tree")
	}
}

func TestWorld_IterationsTunable(t *testing.T) {
	w := NewWorld(DefaultWorldSettings())
	if w.Settings().Iterations != DefaultIterations {
		t.Errorf("Iterations = %d, expected %d", w.Settings().Iterations, DefaultIterations)
	}
	w.SetIterations(3)
	if w.Settings().Iterations != 3 {
		t.Errorf("SetIterations did not apply, got %d", w.Settings().Iterations)
	}
}

func TestSettingsStrings(t *testing.T) {
	if SolverConstraints.String() != "constraints" || SolverDirect.String() != "direct" {
		t.Error("unexpected SolverMode strings")
	}
	if BroadPhaseAllPairs.String() != "all-pairs" || BroadPhaseQuadTree.String() != "quadtree" {
		t.Error("unexpected BroadPhase strings")
	}
}
