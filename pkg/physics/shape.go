package physics

import "math"

// ShapeKind identifies the variant behind a Shape.
type ShapeKind int

const (
	ShapeCircle ShapeKind = iota
	ShapePolygon
)

// String implements fmt.Stringer
func (k ShapeKind) String() string {
	switch k {
	case ShapeCircle:
		return "circle"
	case ShapePolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// Shape is the geometry owned by a Body. The set of implementations is
// closed: *CircleShape and *PolygonShape. Boxes are polygons built by
// NewBoxShape.
type Shape interface {
	Kind() ShapeKind
	// MomentOfInertia returns the moment of inertia per unit mass.
	MomentOfInertia() float64
	// UpdateVertices moves the world-space geometry to the given pose.
	UpdateVertices(angle float64, position Vector2D)
	// Bounds returns the world-space bounding box for a body at position.
	Bounds(position Vector2D) AABB
	// ContainsPoint reports whether a world point lies inside the shape of a
	// body at position.
	ContainsPoint(position, point Vector2D) bool
	Clone() Shape

	sealed()
}

// AABB is an axis-aligned bounding box
type AABB struct {
	Min, Max Vector2D
}

// Center returns the middle of the box
func (b AABB) Center() Vector2D {
	return b.Min.Add(b.Max).Scale(0.5)
}

// HalfExtents returns half the width and height of the box
func (b AABB) HalfExtents() Vector2D {
	return b.Max.Sub(b.Min).Scale(0.5)
}

// Overlaps reports whether two boxes intersect
func (b AABB) Overlaps(other AABB) bool {
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y
}

// CircleShape is a disc centered on its body.
type CircleShape struct {
	Radius float64
}

// NewCircleShape creates a circle of the given radius
func NewCircleShape(radius float64) *CircleShape {
	return &CircleShape{Radius: radius}
}

func (c *CircleShape) sealed() {}

// Kind implements Shape
func (c *CircleShape) Kind() ShapeKind { return ShapeCircle }

// MomentOfInertia implements Shape
func (c *CircleShape) MomentOfInertia() float64 {
	return 0.5 * c.Radius * c.Radius
}

// UpdateVertices implements Shape. Circles have no vertices.
func (c *CircleShape) UpdateVertices(float64, Vector2D) {}

// Bounds implements Shape
func (c *CircleShape) Bounds(position Vector2D) AABB {
	r := Vector2D{X: c.Radius, Y: c.Radius}
	return AABB{Min: position.Sub(r), Max: position.Add(r)}
}

// ContainsPoint implements Shape
func (c *CircleShape) ContainsPoint(position, point Vector2D) bool {
	return position.DistanceSquared(point) <= c.Radius*c.Radius
}

// Clone implements Shape
func (c *CircleShape) Clone() Shape {
	clone := *c
	return &clone
}

// PolygonShape is a convex polygon. LocalVertices are relative to the body's
// center of mass and wound so that Edge(i).Normal() points outward.
type PolygonShape struct {
	LocalVertices []Vector2D
	WorldVertices []Vector2D
}

// NewPolygonShape creates a polygon from local-space vertices. The slice is
// copied.
func NewPolygonShape(vertices []Vector2D) *PolygonShape {
	local := make([]Vector2D, len(vertices))
	copy(local, vertices)
	world := make([]Vector2D, len(vertices))
	copy(world, vertices)
	return &PolygonShape{LocalVertices: local, WorldVertices: world}
}

// NewBoxShape creates a width x height rectangle centered on its body.
func NewBoxShape(width, height float64) *PolygonShape {
	hw, hh := width/2, height/2
	return NewPolygonShape([]Vector2D{
		{X: -hw, Y: -hh},
		{X: +hw, Y: -hh},
		{X: +hw, Y: +hh},
		{X: -hw, Y: +hh},
	})
}

func (p *PolygonShape) sealed() {}

// Kind implements Shape
func (p *PolygonShape) Kind() ShapeKind { return ShapePolygon }

// MomentOfInertia implements Shape using the vertex-sum formula for a
// polygon whose local origin is its centroid.
func (p *PolygonShape) MomentOfInertia() float64 {
	n := len(p.LocalVertices)
	if n < 3 {
		return 0
	}
	var numerator, denominator float64
	for i := 0; i < n; i++ {
		a := p.LocalVertices[i]
		b := p.LocalVertices[(i+1)%n]
		cross := a.Cross(b)
		numerator += cross * (a.Dot(b) + a.Dot(a) + b.Dot(b))
		denominator += cross
	}
	if denominator == 0 {
		return 0
	}
	return numerator / (6 * denominator)
}

// UpdateVertices implements Shape: rotate first, then translate.
func (p *PolygonShape) UpdateVertices(angle float64, position Vector2D) {
	if len(p.WorldVertices) != len(p.LocalVertices) {
		p.WorldVertices = make([]Vector2D, len(p.LocalVertices))
	}
	sin, cos := math.Sincos(angle)
	for i, v := range p.LocalVertices {
		p.WorldVertices[i] = Vector2D{
			X: v.X*cos - v.Y*sin + position.X,
			Y: v.X*sin + v.Y*cos + position.Y,
		}
	}
}

// Bounds implements Shape. It reads the world vertices, so position is only
// used for an empty polygon.
func (p *PolygonShape) Bounds(position Vector2D) AABB {
	if len(p.WorldVertices) == 0 {
		return AABB{Min: position, Max: position}
	}
	box := AABB{Min: p.WorldVertices[0], Max: p.WorldVertices[0]}
	for _, v := range p.WorldVertices[1:] {
		box.Min.X = math.Min(box.Min.X, v.X)
		box.Min.Y = math.Min(box.Min.Y, v.Y)
		box.Max.X = math.Max(box.Max.X, v.X)
		box.Max.Y = math.Max(box.Max.Y, v.Y)
	}
	return box
}

// ContainsPoint implements Shape
func (p *PolygonShape) ContainsPoint(_ Vector2D, point Vector2D) bool {
	n := len(p.WorldVertices)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		if point.Sub(p.WorldVertices[i]).Dot(p.EdgeNormal(i)) > 0 {
			return false
		}
	}
	return true
}

// Clone implements Shape
func (p *PolygonShape) Clone() Shape {
	return &PolygonShape{
		LocalVertices: append([]Vector2D(nil), p.LocalVertices...),
		WorldVertices: append([]Vector2D(nil), p.WorldVertices...),
	}
}

// Edge returns the world-space edge from vertex i to vertex i+1.
func (p *PolygonShape) Edge(i int) Vector2D {
	n := len(p.WorldVertices)
	return p.WorldVertices[(i+1)%n].Sub(p.WorldVertices[i])
}

// EdgeNormal returns the outward unit normal of edge i.
func (p *PolygonShape) EdgeNormal(i int) Vector2D {
	return p.Edge(i).Normal()
}

// findMinSeparation returns the best separating edge of p against other: the
// edge whose minimum vertex projection is the largest. A non-negative result
// means the edge is a separating axis.
func (p *PolygonShape) findMinSeparation(other *PolygonShape) (separation float64, edge int) {
	separation = -math.MaxFloat64
	for i, va := range p.WorldVertices {
		normal := p.EdgeNormal(i)
		minSep := math.MaxFloat64
		for _, vb := range other.WorldVertices {
			minSep = math.Min(minSep, vb.Sub(va).Dot(normal))
		}
		if minSep > separation {
			separation = minSep
			edge = i
		}
	}
	return separation, edge
}

// findIncidentEdge returns the edge whose normal is most anti-parallel to
// normal.
func (p *PolygonShape) findIncidentEdge(normal Vector2D) int {
	incident := 0
	minDot := math.MaxFloat64
	for i := range p.WorldVertices {
		if d := p.EdgeNormal(i).Dot(normal); d < minDot {
			minDot = d
			incident = i
		}
	}
	return incident
}

// clipSegmentToLine keeps the part of the segment in that lies on the inner
// side of the line through c0 and c1. It returns the surviving points.
func clipSegmentToLine(in [2]Vector2D, c0, c1 Vector2D) []Vector2D {
	out := make([]Vector2D, 0, 2)

	dir := c1.Sub(c0).Normalize()
	dist0 := in[0].Sub(c0).Cross(dir)
	dist1 := in[1].Sub(c0).Cross(dir)

	if dist0 <= 0 {
		out = append(out, in[0])
	}
	if dist1 <= 0 {
		out = append(out, in[1])
	}

	// endpoints straddle the line
	if dist0*dist1 < 0 {
		t := dist0 / (dist0 - dist1)
		out = append(out, in[0].Add(in[1].Sub(in[0]).Scale(t)))
	}
	return out
}
