package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-rigid2d/pkg/linalg"
)

const (
	// jointBeta is the Baumgarte factor pulling joint anchors back together.
	jointBeta = 0.1
	// penetrationBeta is the Baumgarte factor for contact position error.
	penetrationBeta = 0.2
	// penetrationSlop is the overlap tolerated before positional correction.
	penetrationSlop = 0.01
	// restitutionThreshold is the approach speed, in pixels per second,
	// below which contacts are inelastic. Resting contacts gain about one
	// step of gravity per frame and must not bounce on it.
	restitutionThreshold = 20.0
)

// Constraint is solved by the World's sequential impulse loop. PreSolve runs
// once per step, Solve once per iteration, PostSolve once after the loop.
type Constraint interface {
	PreSolve(dt float64)
	Solve()
	PostSolve()
	Bodies() (a, b *Body)
}

// constraintBase holds the bodies and their local anchor points.
type constraintBase struct {
	A, B *Body

	// APoint and BPoint are anchors in the local space of A and B.
	APoint Vector2D
	BPoint Vector2D
}

// Bodies returns the two constrained bodies
func (c *constraintBase) Bodies() (a, b *Body) {
	return c.A, c.B
}

// InvMassMatrix returns diag(1/ma, 1/ma, 1/Ia, 1/mb, 1/mb, 1/Ib).
func (c *constraintBase) InvMassMatrix() *mgl64.MatMxN {
	return linalg.Diag(
		c.A.InverseMass, c.A.InverseMass, c.A.InverseI,
		c.B.InverseMass, c.B.InverseMass, c.B.InverseI,
	)
}

// Velocities returns [va.x, va.y, wa, vb.x, vb.y, wb].
func (c *constraintBase) Velocities() *mgl64.VecN {
	return linalg.NewVec(
		c.A.Velocity.X, c.A.Velocity.Y, c.A.AngularVelocity,
		c.B.Velocity.X, c.B.Velocity.Y, c.B.AngularVelocity,
	)
}

// applyImpulses applies the 6-vector of generalized impulses to A and B.
func (c *constraintBase) applyImpulses(impulses *mgl64.VecN) {
	if impulses == nil {
		return
	}
	i := impulses.Raw()
	c.A.ApplyImpulseLinear(Vector2D{X: i[0], Y: i[1]})
	c.A.ApplyImpulseAngular(i[2])
	c.B.ApplyImpulseLinear(Vector2D{X: i[3], Y: i[4]})
	c.B.ApplyImpulseAngular(i[5])
}

// setRow writes a Jacobian row for the linear and angular terms of A and B.
func setRow(j *mgl64.MatMxN, row int, linA Vector2D, angA float64, linB Vector2D, angB float64) {
	j.Set(row, 0, linA.X)
	j.Set(row, 1, linA.Y)
	j.Set(row, 2, angA)
	j.Set(row, 3, linB.X)
	j.Set(row, 4, linB.Y)
	j.Set(row, 5, angB)
}

// JointConstraint pins a point of A to a point of B, like a pin joint. It is
// persistent and warm starts from the impulse accumulated in earlier steps.
type JointConstraint struct {
	constraintBase

	jacobian     *mgl64.MatMxN
	cachedLambda *mgl64.VecN
	bias         float64
}

// NewJointConstraint joins a and b at the world-space anchor.
func NewJointConstraint(a, b *Body, anchor Vector2D) *JointConstraint {
	return &JointConstraint{
		constraintBase: constraintBase{
			A:      a,
			B:      b,
			APoint: a.LocalPoint(anchor),
			BPoint: b.LocalPoint(anchor),
		},
		jacobian:     linalg.ZeroMat(1, 6),
		cachedLambda: linalg.ZeroVec(1),
	}
}

// CachedLambda returns the impulse accumulated across steps.
func (c *JointConstraint) CachedLambda() float64 {
	return c.cachedLambda.Raw()[0]
}

// PreSolve rebuilds the Jacobian, warm starts and computes the bias.
func (c *JointConstraint) PreSolve(dt float64) {
	pa := c.A.WorldPoint(c.APoint)
	pb := c.B.WorldPoint(c.BPoint)
	ra := pa.Sub(c.A.Position)
	rb := pb.Sub(c.B.Position)

	ab := pa.Sub(pb)
	ba := pb.Sub(pa)
	setRow(c.jacobian, 0,
		ab.Scale(2), ra.Cross(ab)*2,
		ba.Scale(2), rb.Cross(ba)*2,
	)

	c.applyImpulses(c.jacobian.Transpose(nil).MulNx1(nil, c.cachedLambda))

	if dt > 0 {
		c.bias = (jointBeta / dt) * ba.LengthSquared()
	} else {
		c.bias = 0
	}
}

// Solve applies one Gauss-Seidel correction of the joint impulse.
func (c *JointConstraint) Solve() {
	jt := c.jacobian.Transpose(nil)
	lhs := linalg.Mul(c.jacobian, c.InvMassMatrix(), jt)

	rhs := c.jacobian.MulNx1(nil, c.Velocities()).Mul(nil, -1)
	rhs.Raw()[0] -= c.bias

	lambda := linalg.SolveGaussSeidel(lhs, rhs)
	c.cachedLambda = c.cachedLambda.Add(nil, lambda)

	c.applyImpulses(jt.MulNx1(nil, lambda))
}

// PostSolve implements Constraint
func (c *JointConstraint) PostSolve() {}

// PenetrationConstraint keeps two bodies from sinking into each other at a
// contact point, with Coulomb friction along the tangent. One is built per
// contact per step.
type PenetrationConstraint struct {
	constraintBase

	jacobian     *mgl64.MatMxN
	cachedLambda *mgl64.VecN
	bias         float64

	// Normal is the world-space contact normal from A to B.
	Normal   Vector2D
	friction float64
}

// NewPenetrationConstraint builds the constraint for a contact.
func NewPenetrationConstraint(c Contact) *PenetrationConstraint {
	return &PenetrationConstraint{
		constraintBase: constraintBase{
			A:      c.A,
			B:      c.B,
			APoint: c.A.LocalPoint(c.Start),
			BPoint: c.B.LocalPoint(c.End),
		},
		jacobian:     linalg.ZeroMat(2, 6),
		cachedLambda: linalg.ZeroVec(2),
		Normal:       c.Normal,
	}
}

// NormalLambda returns the accumulated normal impulse, never negative.
func (c *PenetrationConstraint) NormalLambda() float64 {
	return c.cachedLambda.Raw()[0]
}

// TangentLambda returns the accumulated friction impulse.
func (c *PenetrationConstraint) TangentLambda() float64 {
	return c.cachedLambda.Raw()[1]
}

// Friction returns the combined friction coefficient of the last PreSolve.
func (c *PenetrationConstraint) Friction() float64 {
	return c.friction
}

// PreSolve rebuilds the Jacobian and computes the position and restitution
// bias.
func (c *PenetrationConstraint) PreSolve(dt float64) {
	pa := c.A.WorldPoint(c.APoint)
	pb := c.B.WorldPoint(c.BPoint)
	ra := pa.Sub(c.A.Position)
	rb := pb.Sub(c.B.Position)
	n := c.Normal

	setRow(c.jacobian, 0,
		n.Negate(), -ra.Cross(n),
		n, rb.Cross(n),
	)

	c.friction = math.Min(c.A.Friction, c.B.Friction)
	if c.friction > 0 {
		t := n.Normal()
		setRow(c.jacobian, 1,
			t.Negate(), -ra.Cross(t),
			t, rb.Cross(t),
		)
	} else {
		setRow(c.jacobian, 1, Vector2D{}, 0, Vector2D{}, 0)
	}

	c.applyImpulses(c.jacobian.Transpose(nil).MulNx1(nil, c.cachedLambda))

	// relative normal velocity, negative while approaching
	vn := c.B.PointVelocity(rb).Sub(c.A.PointVelocity(ra)).Dot(n)
	e := math.Min(c.A.Restitution, c.B.Restitution)

	position := pb.Sub(pa).Dot(n.Negate())
	position = math.Min(0, position+penetrationSlop)

	c.bias = 0
	if vn < -restitutionThreshold {
		c.bias = e * vn
	}
	if dt > 0 {
		c.bias += (penetrationBeta / dt) * position
	}
}

// Solve applies one clamped Gauss-Seidel correction of the contact impulses.
func (c *PenetrationConstraint) Solve() {
	jt := c.jacobian.Transpose(nil)
	lhs := linalg.Mul(c.jacobian, c.InvMassMatrix(), jt)

	rhs := c.jacobian.MulNx1(nil, c.Velocities()).Mul(nil, -1)
	rhs.Raw()[0] -= c.bias

	lambda := linalg.SolveGaussSeidel(lhs, rhs).Raw()
	old := c.cachedLambda.Raw()

	normal := math.Max(0, old[0]+lambda[0])
	tangent := 0.0
	if c.friction > 0 {
		limit := normal * c.friction
		tangent = math.Max(-limit, math.Min(limit, old[1]+lambda[1]))
	}

	delta := linalg.NewVec(normal-old[0], tangent-old[1])
	c.cachedLambda = linalg.NewVec(normal, tangent)

	c.applyImpulses(jt.MulNx1(nil, delta))
}

// PostSolve implements Constraint
func (c *PenetrationConstraint) PostSolve() {}
