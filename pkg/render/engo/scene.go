// pkg/render/engo/scene.go
package engo

import (
	"context"
	"errors"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-rigid2d/pkg/engine"
	"github.com/opd-ai/go-rigid2d/pkg/event"
	"github.com/opd-ai/go-rigid2d/pkg/logging"
	"github.com/opd-ai/go-rigid2d/pkg/physics"
	"github.com/opd-ai/go-rigid2d/pkg/quadtree"
	"github.com/opd-ai/go-rigid2d/pkg/render"
)

const hudFontSize = 16

// SandboxScene is the interactive engo scene around a Simulation
type SandboxScene struct {
	sim     *engine.Simulation
	logger  *logging.Logger
	palette *Palette

	renderer *BodyRenderer
	input    *InputSystem
	hud      *HUDSystem
	removals *event.Subscription
}

// NewSandboxScene creates a scene driving sim
func NewSandboxScene(sim *engine.Simulation, logger *logging.Logger) *SandboxScene {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &SandboxScene{
		sim:     sim,
		logger:  logger,
		palette: DefaultPalette(),
	}
}

// Type returns the scene type (required by Engo)
func (scene *SandboxScene) Type() string {
	return "SandboxScene"
}

// Preload is called before the scene starts (required by Engo). The only
// asset is the embedded font, loaded in Setup.
func (scene *SandboxScene) Preload() {}

// Setup is called when the scene starts (required by Engo)
func (scene *SandboxScene) Setup(u engo.Updater) {
	ctx := context.Background()
	world, ok := u.(*ecs.World)
	if !ok {
		scene.logger.Error(ctx, "unexpected updater", errors.New("engo updater is not an *ecs.World"))
		return
	}

	common.SetBackground(scene.palette.Background)
	SetupInputBindings()

	rs := &common.RenderSystem{}
	world.AddSystem(rs)

	font, err := LoadFont(hudFontSize, scene.palette.Text)
	if err != nil {
		scene.logger.Warn(ctx, "HUD disabled", "error", err)
		font = nil
	}

	scene.renderer = NewBodyRenderer(rs, scene.palette)
	scene.input = NewInputSystem(scene.sim, scene.logger)
	scene.hud = NewHUDSystem(rs, font)

	world.AddSystem(scene.input)
	world.AddSystem(&simulationSystem{
		sim:      scene.sim,
		logger:   scene.logger,
		renderer: scene.renderer,
		input:    scene.input,
		hud:      scene.hud,
	})
	world.AddSystem(scene.hud)

	scene.subscribeToEvents()
	scene.logger.Info(ctx, "sandbox scene ready", "bodies", scene.sim.BodyCount())
}

// subscribeToEvents drops sprites as bodies leave the world
func (scene *SandboxScene) subscribeToEvents() {
	scene.removals = scene.sim.EventBus.Subscribe(event.BodyRemoved, func(e event.Event) {
		if ev, ok := e.(*event.BodyEvent); ok {
			scene.renderer.Forget(physics.BodyID(ev.BodyID))
		}
	})
}

// Exit is called when the window closes
func (scene *SandboxScene) Exit() {
	if scene.removals != nil {
		scene.removals.Cancel()
	}
	scene.logger.Info(context.Background(), "sandbox scene closed", "step", scene.sim.GetState().Step)
}

// simulationSystem advances the simulation by engo's frame time and draws
// the result
type simulationSystem struct {
	sim      *engine.Simulation
	logger   *logging.Logger
	renderer *BodyRenderer
	input    *InputSystem
	hud      *HUDSystem

	divergenceReported bool
}

// Priority places the simulation between input and the HUD
func (ss *simulationSystem) Priority() int {
	return 5
}

// Remove satisfies the ecs.System interface
func (ss *simulationSystem) Remove(basic ecs.BasicEntity) {}

// Update steps the world and redraws it
func (ss *simulationSystem) Update(dt float32) {
	ctx := context.Background()
	if _, err := ss.sim.Advance(ctx, float64(dt)); err != nil {
		if !errors.Is(err, engine.ErrDiverged) {
			ss.logger.Error(ctx, "advance failed", err)
		} else if !ss.divergenceReported {
			ss.logger.Error(ctx, "simulation halted", err)
			ss.divergenceReported = true
		}
	} else {
		ss.divergenceReported = false
	}

	state := ss.sim.GetState()
	cursor, half := ss.input.QueryArea()
	inRange := ss.sim.QueryRange(cursor, half, half)

	ss.renderer.SetDebug(ss.input.Debug())
	ss.renderer.SetHighlighted(inRange)
	ss.renderer.SetOverlay(state.QuadTree, state.QuadTreePoints, quadtree.NewRect(cursor.X, cursor.Y, half, half))
	render.Draw(ss.renderer, state)

	ss.hud.SetStatus(HUDStatus{
		Step:        state.Step,
		Bodies:      len(state.Bodies),
		Contacts:    len(state.Contacts),
		Highlighted: len(inRange),
		Iterations:  state.Iterations,
		Paused:      state.Paused,
		Diverged:    state.Diverged,
		Debug:       ss.input.Debug(),
	})
}
