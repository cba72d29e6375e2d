// Package quadtree provides a generic point quadtree for spatial partitioning.
//
// The tree is meant to be rebuilt from scratch whenever the indexed points
// move; there is no removal or relocation API.
package quadtree

// DefaultCapacity is the number of points a node holds before subdividing.
const DefaultCapacity = 4

// maxDepth bounds subdivision so coincident points cannot recurse forever.
const maxDepth = 24

// Rect is an axis-aligned rectangle described by its center and half extents.
type Rect struct {
	X, Y         float64
	HalfW, HalfH float64
}

// NewRect creates a rectangle from its center and half extents.
func NewRect(x, y, halfW, halfH float64) Rect {
	return Rect{X: x, Y: y, HalfW: halfW, HalfH: halfH}
}

// Contains reports whether (x, y) lies inside the half-open range
// [X-HalfW, X+HalfW) x [Y-HalfH, Y+HalfH).
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X-r.HalfW &&
		x < r.X+r.HalfW &&
		y >= r.Y-r.HalfH &&
		y < r.Y+r.HalfH
}

// Intersects reports whether the two rectangles overlap.
func (r Rect) Intersects(other Rect) bool {
	return !(other.X-other.HalfW > r.X+r.HalfW ||
		other.X+other.HalfW < r.X-r.HalfW ||
		other.Y-other.HalfH > r.Y+r.HalfH ||
		other.Y+other.HalfH < r.Y-r.HalfH)
}

// Point is a position carrying an arbitrary payload.
type Point[T any] struct {
	X, Y float64
	Data T
}

// QuadTree indexes points for rectangular range queries.
type QuadTree[T any] struct {
	root *node[T]
	size int
}

type node[T any] struct {
	boundary Rect
	capacity int
	depth    int
	points   []Point[T]
	divided  bool

	northEast, northWest, southEast, southWest *node[T]
}

// New creates an empty quadtree covering boundary. A capacity below one
// falls back to DefaultCapacity.
func New[T any](boundary Rect, capacity int) *QuadTree[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &QuadTree[T]{root: newNode[T](boundary, capacity, 0)}
}

func newNode[T any](boundary Rect, capacity, depth int) *node[T] {
	return &node[T]{
		boundary: boundary,
		capacity: capacity,
		depth:    depth,
		points:   make([]Point[T], 0, capacity),
	}
}

// Boundary returns the rectangle covered by the root node.
func (qt *QuadTree[T]) Boundary() Rect {
	return qt.root.boundary
}

// Len returns the number of points stored in the tree.
func (qt *QuadTree[T]) Len() int {
	return qt.size
}

// Insert adds p to the tree. It returns false if p lies outside the root
// boundary, in which case the tree is unchanged.
func (qt *QuadTree[T]) Insert(p Point[T]) bool {
	if !qt.root.insert(p) {
		return false
	}
	qt.size++
	return true
}

// Query appends every point inside area to found and returns the result.
func (qt *QuadTree[T]) Query(area Rect, found []Point[T]) []Point[T] {
	return qt.root.query(area, found)
}

// Points returns all stored points in no particular order.
func (qt *QuadTree[T]) Points() []Point[T] {
	all := make([]Point[T], 0, qt.size)
	qt.walk(func(n *node[T]) {
		all = append(all, n.points...)
	})
	return all
}

// Boundaries returns the boundary of every node, root first.
func (qt *QuadTree[T]) Boundaries() []Rect {
	var rects []Rect
	qt.walk(func(n *node[T]) {
		rects = append(rects, n.boundary)
	})
	return rects
}

func (qt *QuadTree[T]) walk(visit func(*node[T])) {
	stack := []*node[T]{qt.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(n)
		if n.divided {
			stack = append(stack, n.southWest, n.southEast, n.northWest, n.northEast)
		}
	}
}

func (n *node[T]) insert(p Point[T]) bool {
	if !n.boundary.Contains(p.X, p.Y) {
		return false
	}

	if len(n.points) < n.capacity || n.depth >= maxDepth {
		n.points = append(n.points, p)
		return true
	}

	if !n.divided {
		n.subdivide()
	}

	if n.northEast.insert(p) ||
		n.northWest.insert(p) ||
		n.southEast.insert(p) ||
		n.southWest.insert(p) {
		return true
	}

	// rounding in the child boundaries can leave a sliver no child covers
	n.points = append(n.points, p)
	return true
}

// subdivide splits the node into four quadrants. North is toward negative Y.
func (n *node[T]) subdivide() {
	x := n.boundary.X
	y := n.boundary.Y
	w := n.boundary.HalfW / 2
	h := n.boundary.HalfH / 2
	depth := n.depth + 1

	n.northEast = newNode[T](NewRect(x+w, y-h, w, h), n.capacity, depth)
	n.northWest = newNode[T](NewRect(x-w, y-h, w, h), n.capacity, depth)
	n.southEast = newNode[T](NewRect(x+w, y+h, w, h), n.capacity, depth)
	n.southWest = newNode[T](NewRect(x-w, y+h, w, h), n.capacity, depth)
	n.divided = true
}

func (n *node[T]) query(area Rect, found []Point[T]) []Point[T] {
	if !n.boundary.Intersects(area) {
		return found
	}

	for _, p := range n.points {
		if area.Contains(p.X, p.Y) {
			found = append(found, p)
		}
	}

	if !n.divided {
		return found
	}

	found = n.northEast.query(area, found)
	found = n.northWest.query(area, found)
	found = n.southEast.query(area, found)
	found = n.southWest.query(area, found)
	return found
}
