// pkg/render/ascii.go
package render

import (
	"bufio"
	"io"
	"math"
	"strings"

	"github.com/opd-ai/go-rigid2d/pkg/engine"
	"github.com/opd-ai/go-rigid2d/pkg/physics"
)

// Cell glyphs used by ASCIIRenderer
const (
	glyphEmpty   = ' '
	glyphStatic  = '#'
	glyphCircle  = 'o'
	glyphPolygon = '@'
	glyphHit     = 'X'
	glyphContact = '*'
)

// ASCIIRenderer draws snapshots as a character grid. Each cell covers
// scale x scale world units; the grid's top-left cell maps to origin.
type ASCIIRenderer struct {
	width  int
	height int
	buffer [][]rune
	scale  float64
	origin physics.Vector2D
	out    io.Writer
	clear  bool
}

// NewASCIIRenderer creates a width x height cell renderer writing frames to
// out.
func NewASCIIRenderer(out io.Writer, width, height int, scale float64) *ASCIIRenderer {
	buffer := make([][]rune, height)
	for i := range buffer {
		buffer[i] = make([]rune, width)
	}

	r := &ASCIIRenderer{
		width:  width,
		height: height,
		buffer: buffer,
		scale:  scale,
		out:    out,
	}
	r.Clear()
	return r
}

// SetOrigin sets the world point drawn in the top-left cell
func (r *ASCIIRenderer) SetOrigin(pos physics.Vector2D) {
	r.origin = pos
}

// SetClearScreen makes Present emit an ANSI clear before each frame
func (r *ASCIIRenderer) SetClearScreen(enabled bool) {
	r.clear = enabled
}

// worldToCell converts world coordinates to grid coordinates
func (r *ASCIIRenderer) worldToCell(pos physics.Vector2D) (int, int) {
	x := int(math.Floor((pos.X - r.origin.X) / r.scale))
	y := int(math.Floor((pos.Y - r.origin.Y) / r.scale))
	return x, y
}

func (r *ASCIIRenderer) plot(pos physics.Vector2D, glyph rune) {
	x, y := r.worldToCell(pos)
	if x >= 0 && x < r.width && y >= 0 && y < r.height {
		r.buffer[y][x] = glyph
	}
}

// Clear implements Renderer
func (r *ASCIIRenderer) Clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = glyphEmpty
		}
	}
}

// RenderBody implements Renderer. Polygons are traced along their edges,
// circles along their rim.
func (r *ASCIIRenderer) RenderBody(body engine.BodyState) {
	glyph := bodyGlyph(body)

	if len(body.Vertices) > 0 {
		for i, v := range body.Vertices {
			r.traceSegment(v, body.Vertices[(i+1)%len(body.Vertices)], glyph)
		}
		return
	}

	steps := max(8, int(2*math.Pi*body.Radius/r.scale)+1)
	for i := 0; i < steps; i++ {
		angle := 2 * math.Pi * float64(i) / float64(steps)
		r.plot(body.Position.Add(physics.FromAngle(angle, body.Radius)), glyph)
	}
	r.plot(body.Position, glyph)
}

// RenderContact implements Renderer
func (r *ASCIIRenderer) RenderContact(contact engine.ContactState) {
	r.plot(contact.Start, glyphContact)
	r.plot(contact.End, glyphContact)
}

// Present implements Renderer
func (r *ASCIIRenderer) Present() {
	w := bufio.NewWriter(r.out)
	if r.clear {
		w.WriteString("\033[H\033[2J")
	}

	border := "+" + strings.Repeat("-", r.width) + "+\n"
	w.WriteString(border)
	for y := range r.buffer {
		w.WriteByte('|')
		w.WriteString(string(r.buffer[y]))
		w.WriteString("|\n")
	}
	w.WriteString(border)
	w.Flush()
}

// String returns the current grid without borders, one line per row
func (r *ASCIIRenderer) String() string {
	var sb strings.Builder
	for _, row := range r.buffer {
		sb.WriteString(string(row))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (r *ASCIIRenderer) traceSegment(a, b physics.Vector2D, glyph rune) {
	steps := max(1, int(a.Distance(b)/(r.scale/2)))
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		r.plot(a.Add(b.Sub(a).Scale(t)), glyph)
	}
}

func bodyGlyph(body engine.BodyState) rune {
	switch {
	case body.Static:
		return glyphStatic
	case body.Colliding:
		return glyphHit
	case len(body.Vertices) > 0:
		return glyphPolygon
	default:
		return glyphCircle
	}
}
