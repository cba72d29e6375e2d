// pkg/render/engo/palette.go
package engo

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/opd-ai/go-rigid2d/pkg/engine"
	"github.com/opd-ai/go-rigid2d/pkg/physics"
)

// fontURL is the virtual file the embedded HUD font is registered under
const fontURL = "rigid2d/goregular.ttf"

// Palette holds the colors the sandbox draws with
type Palette struct {
	Background  color.Color
	Static      color.Color
	Circle      color.Color
	Box         color.Color
	Polygon     color.Color
	Colliding   color.Color
	Highlighted color.Color
	Contact     color.Color
	QuadTree    color.Color
	QueryRange  color.Color
	Text        color.Color
}

// DefaultPalette returns the sandbox colors
func DefaultPalette() *Palette {
	return &Palette{
		Background:  color.RGBA{20, 20, 28, 255},
		Static:      color.RGBA{110, 110, 120, 255},
		Circle:      color.RGBA{80, 170, 255, 255},
		Box:         color.RGBA{120, 220, 120, 255},
		Polygon:     color.RGBA{230, 170, 60, 255},
		Colliding:   color.RGBA{240, 80, 80, 255},
		Highlighted: color.RGBA{255, 255, 120, 255},
		Contact:     color.RGBA{255, 0, 255, 255},
		QuadTree:    color.RGBA{60, 200, 200, 255},
		QueryRange:  color.RGBA{255, 255, 255, 255},
		Text:        color.RGBA{230, 230, 230, 255},
	}
}

// BodyColor picks a body's fill. Highlighting wins over collision, which
// wins over the shape color.
func (p *Palette) BodyColor(body engine.BodyState, highlighted bool) color.Color {
	switch {
	case highlighted:
		return p.Highlighted
	case body.Static:
		return p.Static
	case body.Colliding:
		return p.Colliding
	}

	switch body.Kind {
	case "circle":
		return p.Circle
	case "box":
		return p.Box
	default:
		return p.Polygon
	}
}

// LoadFont registers the embedded Go font with engo and builds a HUD font
// from it. It must run after engo has started, in Preload or Setup.
func LoadFont(size float64, fg color.Color) (*common.Font, error) {
	if err := engo.Files.LoadReaderData(fontURL, bytes.NewReader(goregular.TTF)); err != nil {
		return nil, fmt.Errorf("failed to load HUD font: %w", err)
	}

	font := &common.Font{
		URL:  fontURL,
		FG:   fg,
		Size: size,
	}
	if err := font.CreatePreloaded(); err != nil {
		return nil, fmt.Errorf("failed to create HUD font: %w", err)
	}
	return font, nil
}

// shapeGeometry describes how a body maps onto an engo SpaceComponent: the
// body-space corner the drawable's top-left sits on, and its size.
type shapeGeometry struct {
	min    physics.Vector2D
	width  float64
	height float64
}

// geometryFor measures a body in its own space
func geometryFor(body engine.BodyState) shapeGeometry {
	if len(body.Local) == 0 {
		r := body.Radius
		return shapeGeometry{min: physics.Vec(-r, -r), width: 2 * r, height: 2 * r}
	}

	minV, maxV := body.Local[0], body.Local[0]
	for _, v := range body.Local[1:] {
		minV.X = math.Min(minV.X, v.X)
		minV.Y = math.Min(minV.Y, v.Y)
		maxV.X = math.Max(maxV.X, v.X)
		maxV.Y = math.Max(maxV.Y, v.Y)
	}
	return shapeGeometry{min: minV, width: maxV.X - minV.X, height: maxV.Y - minV.Y}
}

// drawableFor builds the engo drawable for a body. Boxes and circles use the
// built-in shapes; other polygons are fan-triangulated.
func drawableFor(body engine.BodyState, g shapeGeometry) common.Drawable {
	switch {
	case len(body.Local) == 0:
		return common.Circle{}
	case body.Kind == "box":
		return common.Rectangle{}
	default:
		return common.ComplexTriangles{Points: fanTriangles(body.Local, g)}
	}
}

// fanTriangles triangulates a convex polygon from its first vertex, with
// points scaled to the unit square engo expects.
func fanTriangles(local []physics.Vector2D, g shapeGeometry) []engo.Point {
	if len(local) < 3 || g.width == 0 || g.height == 0 {
		return nil
	}

	unit := func(v physics.Vector2D) engo.Point {
		return engo.Point{
			X: float32((v.X - g.min.X) / g.width),
			Y: float32((v.Y - g.min.Y) / g.height),
		}
	}

	points := make([]engo.Point, 0, 3*(len(local)-2))
	for i := 1; i < len(local)-1; i++ {
		points = append(points, unit(local[0]), unit(local[i]), unit(local[i+1]))
	}
	return points
}

// topLeft returns where engo must place a drawable so that body-space point
// g.min lands on the body's pose. Engo rotates drawables about their
// top-left corner.
func topLeft(position physics.Vector2D, rotation float64, g shapeGeometry) engo.Point {
	corner := position.Add(g.min.Rotate(rotation))
	return engo.Point{X: float32(corner.X), Y: float32(corner.Y)}
}

// degrees converts a body rotation to engo's convention
func degrees(radians float64) float32 {
	return float32(radians * 180 / math.Pi)
}
