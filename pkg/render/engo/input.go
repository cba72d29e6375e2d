// pkg/render/engo/input.go
package engo

import (
	"context"
	"math"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-rigid2d/pkg/engine"
	"github.com/opd-ai/go-rigid2d/pkg/logging"
	"github.com/opd-ai/go-rigid2d/pkg/physics"
)

// Button names registered by SetupInputBindings
const (
	buttonDebug = "debug"
	buttonPause = "pause"
	buttonReset = "reset"
	buttonKick  = "kick"
	buttonSpin  = "spin"
	buttonMore  = "more-iterations"
	buttonFewer = "fewer-iterations"
)

// Spawn and control tuning
const (
	spawnRadius       = 25.0
	spawnBoxSize      = 50.0
	spawnMass         = 1.0
	kickForce         = 4000.0
	spinTorque        = 20000.0
	slingshotStrength = 5.0
	queryRangeStep    = 5.0
	minQueryRange     = 10.0
	maxQueryRange     = 300.0
	defaultQueryRange = 60.0
	maxIterations     = 50
)

// SetupInputBindings registers the sandbox keys with engo
func SetupInputBindings() {
	engo.Input.RegisterButton(buttonDebug, engo.KeyD)
	engo.Input.RegisterButton(buttonPause, engo.KeyP)
	engo.Input.RegisterButton(buttonReset, engo.KeyR)
	engo.Input.RegisterButton(buttonKick, engo.KeySpace)
	engo.Input.RegisterButton(buttonSpin, engo.KeyT)
	engo.Input.RegisterButton(buttonMore, engo.KeyEquals)
	engo.Input.RegisterButton(buttonFewer, engo.KeyDash)
}

// InputSystem turns keyboard and mouse input into simulation commands.
// Dragging from a dynamic body and releasing flings it; clicking empty space
// spawns a circle (left) or a box (right).
type InputSystem struct {
	sim    *engine.Simulation
	logger *logging.Logger

	debug      bool
	cursor     physics.Vector2D
	queryRange float64

	dragging  bool
	dragBody  physics.BodyID
	dragStart physics.Vector2D
}

// NewInputSystem creates an input system driving sim
func NewInputSystem(sim *engine.Simulation, logger *logging.Logger) *InputSystem {
	return &InputSystem{
		sim:        sim,
		logger:     logger,
		queryRange: defaultQueryRange,
	}
}

// Priority makes input run before the simulation system
func (is *InputSystem) Priority() int {
	return 10
}

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(basic ecs.BasicEntity) {}

// Update processes this frame's input
func (is *InputSystem) Update(dt float32) {
	ctx := context.Background()
	is.cursor = physics.Vec(float64(engo.Input.Mouse.X), float64(engo.Input.Mouse.Y))

	is.handleKeys(ctx)
	is.handleMouse(ctx)

	if scroll := engo.Input.Mouse.ScrollY; scroll != 0 {
		is.queryRange = ResizeQueryRange(is.queryRange, scroll, minQueryRange, maxQueryRange)
	}
}

func (is *InputSystem) handleKeys(ctx context.Context) {
	if engo.Input.Button(buttonDebug).JustPressed() {
		is.debug = !is.debug
	}
	if engo.Input.Button(buttonPause).JustPressed() {
		paused := is.sim.TogglePause()
		is.logger.Info(ctx, "pause toggled", "paused", paused)
	}
	if engo.Input.Button(buttonReset).JustPressed() {
		is.dragging = false
		if err := is.sim.Reset(); err != nil {
			is.logger.Error(ctx, "reset failed", err)
		} else {
			is.logger.Info(ctx, "simulation reset")
		}
	}
	if engo.Input.Button(buttonKick).JustPressed() {
		is.sim.AddForce(physics.Vec(0, -kickForce))
	}
	if engo.Input.Button(buttonSpin).JustPressed() {
		is.sim.AddTorque(spinTorque)
	}
	if engo.Input.Button(buttonMore).JustPressed() {
		is.changeIterations(ctx, 1)
	}
	if engo.Input.Button(buttonFewer).JustPressed() {
		is.changeIterations(ctx, -1)
	}
}

func (is *InputSystem) changeIterations(ctx context.Context, delta int) {
	n := StepIterations(is.sim.GetState().Iterations, delta, maxIterations)
	is.sim.SetIterations(n)
	is.logger.Info(ctx, "solver iterations changed", "iterations", n)
}

func (is *InputSystem) handleMouse(ctx context.Context) {
	switch engo.Input.Mouse.Action {
	case engo.Press:
		switch engo.Input.Mouse.Button {
		case engo.MouseButtonLeft:
			is.leftPress(ctx)
		case engo.MouseButtonRight:
			if _, err := is.sim.SpawnBox(is.cursor.X, is.cursor.Y, spawnBoxSize, spawnBoxSize, spawnMass); err != nil {
				is.logger.Error(ctx, "spawn box failed", err)
			}
		}
	case engo.Release:
		if is.dragging && engo.Input.Mouse.Button == engo.MouseButtonLeft {
			is.release(ctx)
		}
	}
}

func (is *InputSystem) leftPress(ctx context.Context) {
	if id, ok := is.sim.BodyAt(is.cursor); ok && is.sim.IsDynamic(id) {
		is.dragging = true
		is.dragBody = id
		is.dragStart = is.cursor
		return
	}
	if _, err := is.sim.SpawnCircle(is.cursor.X, is.cursor.Y, spawnRadius, spawnMass); err != nil {
		is.logger.Error(ctx, "spawn circle failed", err)
	}
}

func (is *InputSystem) release(ctx context.Context) {
	is.dragging = false
	j := SlingshotImpulse(is.dragStart, is.cursor, slingshotStrength)
	if err := is.sim.ApplyImpulse(is.dragBody, j); err != nil {
		// the body may have been culled mid-drag
		is.logger.Debug(ctx, "slingshot target gone", "body_id", uint64(is.dragBody), "error", err)
	}
}

// Debug reports whether the debug overlay is on
func (is *InputSystem) Debug() bool {
	return is.debug
}

// QueryArea returns the square around the cursor whose bodies are
// highlighted
func (is *InputSystem) QueryArea() (physics.Vector2D, float64) {
	return is.cursor, is.queryRange
}

// SlingshotImpulse returns the impulse for a drag from start to end. The body
// flies away from the release point, harder the further it was pulled.
func SlingshotImpulse(start, end physics.Vector2D, strength float64) physics.Vector2D {
	return start.Sub(end).Scale(strength)
}

// StepIterations moves a solver pass count by delta within [0, maxN]
func StepIterations(n, delta, maxN int) int {
	return max(0, min(maxN, n+delta))
}

// ResizeQueryRange grows or shrinks a half extent by one step per scroll
// notch, clamped to [minHalf, maxHalf].
func ResizeQueryRange(half float64, scroll float32, minHalf, maxHalf float64) float64 {
	half += float64(scroll) * queryRangeStep
	return math.Max(minHalf, math.Min(maxHalf, half))
}
