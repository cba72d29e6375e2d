// pkg/render/engo/run.go
package engo

import (
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-rigid2d/pkg/engine"
	"github.com/opd-ai/go-rigid2d/pkg/logging"
)

// Options configures the sandbox window
type Options struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
}

// Run opens the sandbox window and blocks until it is closed
func Run(sim *engine.Simulation, logger *logging.Logger, opts Options) {
	scene := NewSandboxScene(sim, logger)

	engo.Run(engo.RunOptions{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Fullscreen: opts.Fullscreen,
		VSync:      true,
	}, scene)
}
