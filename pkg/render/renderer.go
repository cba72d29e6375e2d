// pkg/render/renderer.go
package render

import (
	"context"

	"github.com/opd-ai/go-rigid2d/pkg/engine"
	"github.com/opd-ai/go-rigid2d/pkg/logging"
)

// Renderer draws simulation snapshots. Draw calls Clear, then RenderBody for
// every body and RenderContact for every contact, then Present.
type Renderer interface {
	Clear()
	RenderBody(body engine.BodyState)
	RenderContact(contact engine.ContactState)
	Present()
}

// Draw renders one snapshot. Contacts are drawn after bodies so they stay
// visible.
func Draw(r Renderer, state *engine.State) {
	r.Clear()
	if state != nil {
		for _, b := range state.Bodies {
			r.RenderBody(b)
		}
		for _, c := range state.Contacts {
			r.RenderContact(c)
		}
	}
	r.Present()
}

// NullRenderer is a Renderer that only logs at debug level.
type NullRenderer struct {
	logger *logging.Logger
}

// NewNullRenderer creates a new NullRenderer. A nil logger falls back to
// logging.NewLogger.
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &NullRenderer{logger: logger}
}

// Clear implements Renderer.
func (d *NullRenderer) Clear() {
	d.logger.Debug(context.Background(), "Clear called")
}

// Present implements Renderer.
func (d *NullRenderer) Present() {
	d.logger.Debug(context.Background(), "Present called")
}

// RenderBody implements Renderer.
func (d *NullRenderer) RenderBody(body engine.BodyState) {
	d.logger.Debug(context.Background(), "RenderBody called",
		"body_id", uint64(body.ID),
		"kind", body.Kind,
		"x", body.Position.X,
		"y", body.Position.Y,
		"colliding", body.Colliding,
	)
}

// RenderContact implements Renderer.
func (d *NullRenderer) RenderContact(contact engine.ContactState) {
	d.logger.Debug(context.Background(), "RenderContact called",
		"body_a", uint64(contact.A),
		"body_b", uint64(contact.B),
		"depth", contact.Depth,
	)
}
