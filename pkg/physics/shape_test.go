package physics

import (
	"math"
	"testing"
)

func TestShape_MomentOfInertia(t *testing.T) {
	tests := []struct {
		name     string
		shape    Shape
		expected float64
	}{
		{name: "circle", shape: NewCircleShape(2), expected: 2},
		{name: "square", shape: NewBoxShape(2, 2), expected: 8.0 / 12},
		{name: "rectangle", shape: NewBoxShape(4, 2), expected: 20.0 / 12},
		{name: "degenerate_polygon", shape: NewPolygonShape([]Vector2D{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}), expected: 0},
		{name: "too_few_vertices", shape: NewPolygonShape([]Vector2D{{X: 0, Y: 0}, {X: 1, Y: 0}}), expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.shape.MomentOfInertia(); math.Abs(got-tt.expected) > epsilon {
				t.Errorf("MomentOfInertia() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestShape_Kind(t *testing.T) {
	if k := NewCircleShape(1).Kind(); k != ShapeCircle || k.String() != "circle" {
		t.Errorf("circle kind = %v", k)
	}
	if k := NewBoxShape(1, 1).Kind(); k != ShapePolygon || k.String() != "polygon" {
		t.Errorf("box kind = %v", k)
	}
}

func TestPolygonShape_UpdateVertices(t *testing.T) {
	box := NewBoxShape(2, 4)
	box.UpdateVertices(math.Pi/2, Vec(10, 20))

	// rotated a quarter turn, then moved to (10, 20)
	expected := []Vector2D{
		{X: 12, Y: 19},
		{X: 12, Y: 21},
		{X: 8, Y: 21},
		{X: 8, Y: 19},
	}
	for i, v := range box.WorldVertices {
		if !vecNear(v, expected[i], 1e-9) {
			t.Errorf("vertex %d = %v, expected %v", i, v, expected[i])
		}
	}
	if box.LocalVertices[0] != Vec(-1, -2) {
		t.Errorf("UpdateVertices modified local vertices: %v", box.LocalVertices[0])
	}
}

func TestPolygonShape_EdgeNormalsPointOutward(t *testing.T) {
	box := NewBoxShape(2, 2)
	box.UpdateVertices(0.3, Vec(5, 5))

	for i := range box.WorldVertices {
		mid := box.WorldVertices[i].Add(box.Edge(i).Scale(0.5))
		outward := mid.Sub(Vec(5, 5))
		if box.EdgeNormal(i).Dot(outward) <= 0 {
			t.Errorf("edge %d normal %v points inward", i, box.EdgeNormal(i))
		}
	}
}

func TestShape_Clone(t *testing.T) {
	box := NewBoxShape(2, 2)
	clone := box.Clone().(*PolygonShape)
	clone.LocalVertices[0] = Vec(100, 100)
	clone.WorldVertices[0] = Vec(100, 100)

	if box.LocalVertices[0] == clone.LocalVertices[0] || box.WorldVertices[0] == clone.WorldVertices[0] {
		t.Error("Clone() shares vertex storage with the original")
	}

	circle := NewCircleShape(3)
	cc := circle.Clone().(*CircleShape)
	cc.Radius = 10
	if circle.Radius != 3 {
		t.Error("Clone() shares the circle with the original")
	}
}

func TestNewPolygonShape_CopiesInput(t *testing.T) {
	vertices := []Vector2D{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}
	poly := NewPolygonShape(vertices)
	vertices[0] = Vec(9, 9)
	if poly.LocalVertices[0] != (Vector2D{}) {
		t.Error("NewPolygonShape kept a reference to the caller's slice")
	}
}

func TestShape_Bounds(t *testing.T) {
	circle := NewCircleShape(2)
	box := circle.Bounds(Vec(1, 1))
	if box.Min != Vec(-1, -1) || box.Max != Vec(3, 3) {
		t.Errorf("circle Bounds() = %+v", box)
	}

	poly := NewBoxShape(4, 2)
	poly.UpdateVertices(0, Vec(10, 0))
	box = poly.Bounds(Vec(10, 0))
	if box.Min != Vec(8, -1) || box.Max != Vec(12, 1) {
		t.Errorf("box Bounds() = %+v", box)
	}
	if box.Center() != Vec(10, 0) || box.HalfExtents() != Vec(2, 1) {
		t.Errorf("Center() = %v, HalfExtents() = %v", box.Center(), box.HalfExtents())
	}
	if !box.Overlaps(AABB{Min: Vec(11, 0), Max: Vec(20, 5)}) {
		t.Error("Overlaps() missed an overlapping box")
	}
	if box.Overlaps(AABB{Min: Vec(13, 0), Max: Vec(20, 5)}) {
		t.Error("Overlaps() reported a disjoint box")
	}
}

func TestShape_ContainsPoint(t *testing.T) {
	circle := NewCircleShape(2)
	box := NewBoxShape(2, 2)
	box.UpdateVertices(0, Vec(0, 0))

	tests := []struct {
		name     string
		shape    Shape
		point    Vector2D
		expected bool
	}{
		{name: "circle_center", shape: circle, point: Vec(0, 0), expected: true},
		{name: "circle_rim", shape: circle, point: Vec(2, 0), expected: true},
		{name: "circle_outside", shape: circle, point: Vec(2, 2), expected: false},
		{name: "box_inside", shape: box, point: Vec(0.5, -0.5), expected: true},
		{name: "box_outside", shape: box, point: Vec(1.5, 0), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.shape.ContainsPoint(Vec(0, 0), tt.point); got != tt.expected {
				t.Errorf("ContainsPoint(%v) = %v, expected %v", tt.point, got, tt.expected)
			}
		})
	}
}

func TestClipSegmentToLine(t *testing.T) {
	// keep the part of the segment left of x = 0 (the line runs downward)
	c0, c1 := Vec(0, -10), Vec(0, 10)

	t.Run("straddling", func(t *testing.T) {
		out := clipSegmentToLine([2]Vector2D{Vec(-2, 0), Vec(2, 0)}, c0, c1)
		if len(out) != 2 {
			t.Fatalf("expected 2 points, got %v", out)
		}
		if out[0] != Vec(-2, 0) || !vecNear(out[1], Vec(0, 0), epsilon) {
			t.Errorf("clipped to %v", out)
		}
	})

	t.Run("fully_inside", func(t *testing.T) {
		out := clipSegmentToLine([2]Vector2D{Vec(-2, 0), Vec(-1, 3)}, c0, c1)
		if len(out) != 2 {
			t.Errorf("expected both points kept, got %v", out)
		}
	})

	t.Run("fully_outside", func(t *testing.T) {
		out := clipSegmentToLine([2]Vector2D{Vec(2, 0), Vec(1, 3)}, c0, c1)
		if len(out) != 0 {
			t.Errorf("expected no points, got %v", out)
		}
	})
}
