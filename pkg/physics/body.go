package physics

import "math"

// BodyID identifies a body within a World. Zero means unassigned.
type BodyID uint64

// Body is a rigid body with exactly one Shape.
type Body struct {
	ID BodyID

	// Linear motion
	Position     Vector2D
	Velocity     Vector2D
	Acceleration Vector2D

	// Angular motion, radians
	Rotation            float64
	AngularVelocity     float64
	AngularAcceleration float64

	// Accumulated since the last IntegrateForces
	NetForce  Vector2D
	NetTorque float64

	Mass        float64
	InverseMass float64
	I           float64
	InverseI    float64

	Restitution  float64
	Friction     float64
	GravityScale float64

	// IsColliding is recomputed by the world every step
	IsColliding bool

	Shape Shape
}

// NewBody creates a body at (x, y) owning a copy of shape. A mass of zero or
// less makes the body static.
func NewBody(shape Shape, x, y, mass float64) *Body {
	b := &Body{
		Position:     Vector2D{X: x, Y: y},
		Restitution:  1.0,
		Friction:     1.0,
		GravityScale: 1.0,
		Shape:        shape.Clone(),
	}

	if mass > 0 {
		b.Mass = mass
		b.InverseMass = 1 / mass
	}

	b.I = b.Shape.MomentOfInertia() * b.Mass
	if b.I > 0 && !math.IsInf(b.I, 0) {
		b.InverseI = 1 / b.I
	}

	b.Shape.UpdateVertices(b.Rotation, b.Position)
	return b
}

// IsStatic reports whether the body has infinite mass.
func (b *Body) IsStatic() bool {
	return b.InverseMass == 0
}

// AddForce accumulates a force applied at the center of mass
func (b *Body) AddForce(force Vector2D) {
	b.NetForce = b.NetForce.Add(force)
}

// AddTorque accumulates a torque
func (b *Body) AddTorque(torque float64) {
	b.NetTorque += torque
}

// ApplyImpulseLinear changes the linear velocity by j/m.
func (b *Body) ApplyImpulseLinear(j Vector2D) {
	if b.IsStatic() {
		return
	}
	b.Velocity = b.Velocity.Add(j.Scale(b.InverseMass))
}

// ApplyImpulseAngular changes the angular velocity by j/I.
func (b *Body) ApplyImpulseAngular(j float64) {
	if b.IsStatic() {
		return
	}
	b.AngularVelocity += j * b.InverseI
}

// ApplyImpulseAtPoint applies impulse j at offset r from the center of mass.
func (b *Body) ApplyImpulseAtPoint(j, r Vector2D) {
	if b.IsStatic() {
		return
	}
	b.Velocity = b.Velocity.Add(j.Scale(b.InverseMass))
	b.AngularVelocity += b.InverseI * r.Cross(j)
}

// IntegrateForces turns the accumulated force and torque into velocity and
// clears them.
func (b *Body) IntegrateForces(dt float64) {
	if b.IsStatic() {
		return
	}

	b.Acceleration = b.NetForce.Scale(b.InverseMass)
	b.Velocity = b.Velocity.Add(b.Acceleration.Scale(dt))

	b.AngularAcceleration = b.NetTorque * b.InverseI
	b.AngularVelocity += b.AngularAcceleration * dt

	b.NetForce = Vector2D{}
	b.NetTorque = 0
}

// IntegrateVelocities moves the body along its velocity and refreshes the
// world-space geometry.
func (b *Body) IntegrateVelocities(dt float64) {
	if b.IsStatic() {
		return
	}

	b.Position = b.Position.Add(b.Velocity.Scale(dt))
	b.Rotation += b.AngularVelocity * dt

	b.Shape.UpdateVertices(b.Rotation, b.Position)
}

// SetTransform places the body directly, for bodies driven by the caller.
func (b *Body) SetTransform(position Vector2D, rotation float64) {
	b.Position = position
	b.Rotation = rotation
	b.Shape.UpdateVertices(b.Rotation, b.Position)
}

// WorldPoint converts a point from body space to world space.
func (b *Body) WorldPoint(local Vector2D) Vector2D {
	return local.Rotate(b.Rotation).Add(b.Position)
}

// LocalPoint converts a point from world space to body space.
func (b *Body) LocalPoint(world Vector2D) Vector2D {
	return world.Sub(b.Position).Rotate(-b.Rotation)
}

// PointVelocity returns the velocity of the body-attached point at offset r.
func (b *Body) PointVelocity(r Vector2D) Vector2D {
	return b.Velocity.Add(CrossScalar(b.AngularVelocity, r))
}

// Bounds returns the body's world-space bounding box.
func (b *Body) Bounds() AABB {
	return b.Shape.Bounds(b.Position)
}

// ContainsPoint reports whether a world point lies inside the body.
func (b *Body) ContainsPoint(point Vector2D) bool {
	return b.Shape.ContainsPoint(b.Position, point)
}

// IsFinite reports whether the body's state is free of NaN and Inf.
func (b *Body) IsFinite() bool {
	return b.Position.IsFinite() && b.Velocity.IsFinite() &&
		!math.IsNaN(b.Rotation) && !math.IsInf(b.Rotation, 0) &&
		!math.IsNaN(b.AngularVelocity) && !math.IsInf(b.AngularVelocity, 0)
}
