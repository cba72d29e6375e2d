package physics

import "math"

// Contact describes one point of overlap between two bodies. Start lies on
// B's side of the overlap, End on A's side, and Normal points from A to B.
type Contact struct {
	A, B *Body

	Start  Vector2D
	End    Vector2D
	Normal Vector2D
	Depth  float64
}

// flipped returns the same contact seen from the other body.
func (c Contact) flipped() Contact {
	return Contact{
		A:      c.B,
		B:      c.A,
		Start:  c.End,
		End:    c.Start,
		Normal: c.Normal.Negate(),
		Depth:  c.Depth,
	}
}

// ResolvePenetration pushes the bodies apart along the normal, splitting
// the depth by inverse mass.
func (c *Contact) ResolvePenetration() {
	a, b := c.A, c.B
	if a.IsStatic() && b.IsStatic() {
		return
	}

	totalInverseMass := a.InverseMass + b.InverseMass
	da := c.Depth / totalInverseMass * a.InverseMass
	db := c.Depth / totalInverseMass * b.InverseMass

	if da != 0 {
		a.Position = a.Position.Sub(c.Normal.Scale(da))
		a.Shape.UpdateVertices(a.Rotation, a.Position)
	}
	if db != 0 {
		b.Position = b.Position.Add(c.Normal.Scale(db))
		b.Shape.UpdateVertices(b.Rotation, b.Position)
	}
}

// ResolveCollision separates the bodies and applies the restitution and
// friction impulses at the contact.
func (c *Contact) ResolveCollision() {
	c.ResolvePenetration()

	a, b := c.A, c.B
	if a.IsStatic() && b.IsStatic() {
		return
	}

	e := math.Min(a.Restitution, b.Restitution)
	f := math.Min(a.Friction, b.Friction)

	ra := c.End.Sub(a.Position)
	rb := c.Start.Sub(b.Position)
	relative := a.PointVelocity(ra).Sub(b.PointVelocity(rb))

	vn := relative.Dot(c.Normal)
	if vn < 0 {
		// already separating
		return
	}

	n := c.Normal
	raN, rbN := ra.Cross(n), rb.Cross(n)
	normalMass := a.InverseMass + b.InverseMass +
		raN*raN*a.InverseI + rbN*rbN*b.InverseI
	if normalMass == 0 {
		return
	}
	jn := n.Scale(-(1 + e) * vn / normalMass)

	t := n.Normal()
	raT, rbT := ra.Cross(t), rb.Cross(t)
	tangentMass := a.InverseMass + b.InverseMass +
		raT*raT*a.InverseI + rbT*rbT*b.InverseI
	var jt Vector2D
	if tangentMass > 0 {
		jt = t.Scale(f * -(1 + e) * relative.Dot(t) / tangentMass)
	}

	j := jn.Add(jt)
	a.ApplyImpulseAtPoint(j, ra)
	b.ApplyImpulseAtPoint(j.Negate(), rb)
}
