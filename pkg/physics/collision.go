// pkg/physics/collision.go
package physics

import "math"

// IsColliding runs the narrow phase for a pair of bodies. It returns the
// contacts found, oriented from a to b, and whether the bodies overlap.
func IsColliding(a, b *Body) ([]Contact, bool) {
	switch sa := a.Shape.(type) {
	case *CircleShape:
		switch sb := b.Shape.(type) {
		case *CircleShape:
			return collideCircles(a, b, sa, sb)
		case *PolygonShape:
			return collideCirclePolygon(a, b, sa, sb)
		}
	case *PolygonShape:
		switch sb := b.Shape.(type) {
		case *CircleShape:
			return collidePolygonCircle(a, b, sa, sb)
		case *PolygonShape:
			return collidePolygons(a, b, sa, sb)
		}
	}
	return nil, false
}

// collideCircles reports overlapping discs. Discs that exactly touch are not
// colliding.
func collideCircles(a, b *Body, ca, cb *CircleShape) ([]Contact, bool) {
	distance := b.Position.Sub(a.Position)
	radiusSum := ca.Radius + cb.Radius

	if distance.LengthSquared() >= radiusSum*radiusSum {
		return nil, false
	}

	normal := distance.Normalize()
	if normal == (Vector2D{}) {
		normal = Vector2D{X: 0, Y: 1}
	}

	c := Contact{
		A:      a,
		B:      b,
		Normal: normal,
		Start:  b.Position.Sub(normal.Scale(cb.Radius)),
		End:    a.Position.Add(normal.Scale(ca.Radius)),
	}
	c.Depth = c.End.Sub(c.Start).Length()
	return []Contact{c}, true
}

// collidePolygons uses the separating axis test to find the reference face
// and clips the incident edge against it.
func collidePolygons(a, b *Body, pa, pb *PolygonShape) ([]Contact, bool) {
	if len(pa.WorldVertices) < 3 || len(pb.WorldVertices) < 3 {
		return nil, false
	}

	abSeparation, aEdge := pa.findMinSeparation(pb)
	if abSeparation >= 0 {
		return nil, false
	}
	baSeparation, bEdge := pb.findMinSeparation(pa)
	if baSeparation >= 0 {
		return nil, false
	}

	reference, incident, refEdge := pa, pb, aEdge
	flip := false
	if baSeparation >= abSeparation {
		reference, incident, refEdge = pb, pa, bEdge
		flip = true
	}

	n := len(reference.WorldVertices)
	refNormal := reference.EdgeNormal(refEdge)
	refStart := reference.WorldVertices[refEdge]

	incEdge := incident.findIncidentEdge(refNormal)
	m := len(incident.WorldVertices)
	points := []Vector2D{
		incident.WorldVertices[incEdge],
		incident.WorldVertices[(incEdge+1)%m],
	}

	// side planes: the edges before and after the reference edge
	sides := [2][2]Vector2D{
		{reference.WorldVertices[(refEdge+n-1)%n], refStart},
		{reference.WorldVertices[(refEdge+1)%n], reference.WorldVertices[(refEdge+2)%n]},
	}
	for _, side := range sides {
		if len(points) < 2 {
			break
		}
		points = clipSegmentToLine([2]Vector2D{points[0], points[1]}, side[0], side[1])
	}

	var contacts []Contact
	for _, p := range points {
		separation := p.Sub(refStart).Dot(refNormal)
		if separation >= 0 {
			continue
		}

		c := Contact{
			A:      a,
			B:      b,
			Normal: refNormal,
			Start:  p,
			End:    p.Add(refNormal.Scale(-separation)),
			Depth:  -separation,
		}
		if flip {
			c.Start, c.End = c.End, c.Start
			c.Normal = c.Normal.Negate()
		}
		contacts = append(contacts, c)
	}

	return contacts, len(contacts) > 0
}

// collidePolygonCircle tests a polygon a against a circle b.
func collidePolygonCircle(a, b *Body, poly *PolygonShape, circle *CircleShape) ([]Contact, bool) {
	vertices := poly.WorldVertices
	n := len(vertices)
	if n < 3 {
		return nil, false
	}

	center := b.Position
	radius := circle.Radius

	outside := false
	nearest := -math.MaxFloat64
	var curr, next Vector2D

	for i := 0; i < n; i++ {
		projection := center.Sub(vertices[i]).Dot(poly.EdgeNormal(i))
		if projection > 0 {
			nearest = projection
			curr, next = vertices[i], vertices[(i+1)%n]
			outside = true
			break
		}
		if projection > nearest {
			nearest = projection
			curr, next = vertices[i], vertices[(i+1)%n]
		}
	}

	var normal Vector2D
	var depth float64

	if outside {
		toCenter := center.Sub(curr)
		edge := next.Sub(curr)
		switch {
		case toCenter.Dot(edge) < 0:
			// vertex region of curr
			if toCenter.LengthSquared() > radius*radius {
				return nil, false
			}
			length := toCenter.Length()
			normal = toCenter.Normalize()
			depth = radius - length
		case center.Sub(next).Dot(curr.Sub(next)) < 0:
			// vertex region of next
			toCenter = center.Sub(next)
			if toCenter.LengthSquared() > radius*radius {
				return nil, false
			}
			length := toCenter.Length()
			normal = toCenter.Normalize()
			depth = radius - length
		default:
			// face region
			if nearest > radius {
				return nil, false
			}
			normal = edge.Normal()
			depth = radius - nearest
		}
	} else {
		normal = next.Sub(curr).Normal()
		depth = radius - nearest
	}

	if normal == (Vector2D{}) {
		normal = next.Sub(curr).Normal()
	}

	start := center.Sub(normal.Scale(radius))
	return []Contact{{
		A:      a,
		B:      b,
		Normal: normal,
		Start:  start,
		End:    start.Add(normal.Scale(depth)),
		Depth:  depth,
	}}, true
}

// collideCirclePolygon mirrors collidePolygonCircle so the contact runs from
// the circle a to the polygon b.
func collideCirclePolygon(a, b *Body, circle *CircleShape, poly *PolygonShape) ([]Contact, bool) {
	contacts, ok := collidePolygonCircle(b, a, poly, circle)
	if !ok {
		return nil, false
	}
	for i := range contacts {
		contacts[i] = contacts[i].flipped()
	}
	return contacts, true
}
