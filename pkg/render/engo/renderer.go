// pkg/render/engo/renderer.go
package engo

import (
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-rigid2d/pkg/engine"
	"github.com/opd-ai/go-rigid2d/pkg/physics"
	"github.com/opd-ai/go-rigid2d/pkg/quadtree"
)

// Z layers
const (
	bodyLayer    = 1
	overlayLayer = 2
	hudLayer     = 10
)

// Side of the squares drawn on contact points and quadtree points
const (
	contactMarkerSize = 4
	quadTreePointSize = 2
)

// sprite bundles the components the engo render system draws
type sprite struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

func newSprite(drawable common.Drawable, c color.Color, layer float32) *sprite {
	s := &sprite{BasicEntity: ecs.NewBasic()}
	s.RenderComponent = common.RenderComponent{Drawable: drawable, Color: c}
	s.RenderComponent.SetZIndex(layer)
	return s
}

// BodyRenderer implements render.Renderer on top of an engo RenderSystem.
// Each body gets a sprite that lives as long as the body appears in frames.
type BodyRenderer struct {
	renderSystem *common.RenderSystem
	palette      *Palette

	sprites     map[physics.BodyID]*sprite
	seen        map[physics.BodyID]bool
	highlighted map[physics.BodyID]bool

	overlay    *overlayPool
	boundaries []quadtree.Rect
	points     []physics.Vector2D
	query      quadtree.Rect
	debug      bool
}

// NewBodyRenderer creates a renderer adding its sprites to rs
func NewBodyRenderer(rs *common.RenderSystem, palette *Palette) *BodyRenderer {
	return &BodyRenderer{
		renderSystem: rs,
		palette:      palette,
		sprites:      make(map[physics.BodyID]*sprite),
		seen:         make(map[physics.BodyID]bool),
		highlighted:  make(map[physics.BodyID]bool),
		overlay:      newOverlayPool(rs),
	}
}

// SetDebug enables the contact, quadtree and query range overlay
func (r *BodyRenderer) SetDebug(enabled bool) {
	r.debug = enabled
}

// SetHighlighted marks the bodies drawn in the highlight color
func (r *BodyRenderer) SetHighlighted(ids []physics.BodyID) {
	clear(r.highlighted)
	for _, id := range ids {
		r.highlighted[id] = true
	}
}

// Clear implements render.Renderer
func (r *BodyRenderer) Clear() {
	clear(r.seen)
	r.overlay.reset()
}

// RenderBody implements render.Renderer
func (r *BodyRenderer) RenderBody(body engine.BodyState) {
	r.seen[body.ID] = true
	g := geometryFor(body)

	c := r.palette.BodyColor(body, r.highlighted[body.ID])
	s, exists := r.sprites[body.ID]
	if !exists {
		s = newSprite(drawableFor(body, g), c, bodyLayer)
		s.SpaceComponent.Width = float32(g.width)
		s.SpaceComponent.Height = float32(g.height)
	}

	s.SpaceComponent.Position = topLeft(body.Position, body.Rotation, g)
	s.SpaceComponent.Rotation = degrees(body.Rotation)
	s.RenderComponent.Color = c

	if !exists {
		r.sprites[body.ID] = s
		r.renderSystem.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
	}
}

// RenderContact implements render.Renderer. Contacts are only drawn in
// debug mode.
func (r *BodyRenderer) RenderContact(contact engine.ContactState) {
	if !r.debug {
		return
	}
	for _, p := range []physics.Vector2D{contact.Start, contact.End} {
		r.overlay.fill(p.X-contactMarkerSize/2, p.Y-contactMarkerSize/2,
			contactMarkerSize, contactMarkerSize, r.palette.Contact)
	}
}

// SetOverlay sets the broad-phase nodes, their indexed points and the query
// rectangle drawn by the next Present in debug mode.
func (r *BodyRenderer) SetOverlay(boundaries []quadtree.Rect, points []physics.Vector2D, query quadtree.Rect) {
	r.boundaries = boundaries
	r.points = points
	r.query = query
}

// Forget drops the sprite of a body that left the world. Body IDs are reused
// after a reset, so stale sprites must not survive until the next Present.
func (r *BodyRenderer) Forget(id physics.BodyID) {
	if s, ok := r.sprites[id]; ok {
		r.renderSystem.Remove(s.BasicEntity)
		delete(r.sprites, id)
	}
}

// Present implements render.Renderer. Sprites of bodies missing from the
// frame are removed.
func (r *BodyRenderer) Present() {
	for id := range r.sprites {
		if !r.seen[id] {
			r.Forget(id)
		}
	}

	if r.debug {
		for _, b := range r.boundaries {
			r.overlay.outline(b, r.palette.QuadTree)
		}
		for _, p := range r.points {
			r.overlay.fill(p.X-quadTreePointSize/2, p.Y-quadTreePointSize/2,
				quadTreePointSize, quadTreePointSize, r.palette.QuadTree)
		}
		r.overlay.outline(r.query, r.palette.QueryRange)
	}
	r.overlay.hideUnused()
}

// SpriteCount returns the number of live body sprites
func (r *BodyRenderer) SpriteCount() int {
	return len(r.sprites)
}

// overlayPool recycles rectangle sprites for per-frame debug drawing
type overlayPool struct {
	renderSystem *common.RenderSystem
	sprites      []*sprite
	used         int
}

func newOverlayPool(rs *common.RenderSystem) *overlayPool {
	return &overlayPool{renderSystem: rs}
}

func (p *overlayPool) reset() {
	p.used = 0
}

func (p *overlayPool) next() *sprite {
	if p.used == len(p.sprites) {
		s := newSprite(common.Rectangle{}, color.Transparent, overlayLayer)
		p.sprites = append(p.sprites, s)
		p.renderSystem.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
	}
	s := p.sprites[p.used]
	p.used++
	s.RenderComponent.Hidden = false
	return s
}

func (p *overlayPool) fill(x, y, w, h float64, c color.Color) {
	s := p.next()
	s.RenderComponent.Drawable = common.Rectangle{}
	s.RenderComponent.Color = c
	s.SpaceComponent.Position = engo.Point{X: float32(x), Y: float32(y)}
	s.SpaceComponent.Width = float32(w)
	s.SpaceComponent.Height = float32(h)
}

func (p *overlayPool) outline(area quadtree.Rect, c color.Color) {
	s := p.next()
	s.RenderComponent.Drawable = common.Rectangle{BorderWidth: 1, BorderColor: c}
	s.RenderComponent.Color = color.Transparent
	s.SpaceComponent.Position = engo.Point{X: float32(area.X - area.HalfW), Y: float32(area.Y - area.HalfH)}
	s.SpaceComponent.Width = float32(2 * area.HalfW)
	s.SpaceComponent.Height = float32(2 * area.HalfH)
}

func (p *overlayPool) hideUnused() {
	for _, s := range p.sprites[p.used:] {
		s.RenderComponent.Hidden = true
	}
}
