// cmd/sandbox/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/go-rigid2d/pkg/config"
	"github.com/opd-ai/go-rigid2d/pkg/engine"
	"github.com/opd-ai/go-rigid2d/pkg/event"
	"github.com/opd-ai/go-rigid2d/pkg/health"
	"github.com/opd-ai/go-rigid2d/pkg/logging"
	"github.com/opd-ai/go-rigid2d/pkg/render"
	engorender "github.com/opd-ai/go-rigid2d/pkg/render/engo"
)

// stallTimeout is how long a headless run may go without a step before the
// readiness probe fails
const stallTimeout = 10 * time.Second

func main() {
	logger := logging.NewLogger()
	ctx := logging.WithRunID(context.Background(), "")

	configPath := flag.String("config", "", "Path to a JSON or YAML scene file (default scene if empty)")
	createDefault := flag.Bool("default", false, "Write the default scene to -config and exit")
	renderer := flag.String("renderer", "engo", "Renderer: 'headless', 'ascii' or 'engo'")
	steps := flag.Int("steps", -1, "Steps to run headless or ascii (overrides config)")
	scale := flag.Float64("scale", 15, "World units per character cell (ascii only)")
	healthAddr := flag.String("health-addr", "", "Serve /healthz and /readyz on this address (headless and ascii)")
	width := flag.Int("width", 0, "Window width (engo only, defaults to scene width)")
	height := flag.Int("height", 0, "Window height (engo only, defaults to scene height)")
	fullscreen := flag.Bool("fullscreen", false, "Run in fullscreen mode (engo only)")
	flag.Parse()

	if *createDefault {
		if *configPath == "" {
			logger.Error(ctx, "No configuration path given", nil, "flag", "-config")
			os.Exit(1)
		}
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", *configPath,
		)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err,
			"config_path", *configPath,
		)
		os.Exit(1)
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		logger.Error(ctx, "Failed to apply environment configuration", err)
		os.Exit(1)
	}
	if *steps >= 0 {
		cfg.Run.Steps = *steps
	}

	sim, err := engine.NewSimulation(cfg, logger)
	if err != nil {
		logger.Error(ctx, "Failed to create simulation", err)
		os.Exit(1)
	}
	logRemovals(ctx, sim, logger)

	logger.Info(ctx, "Starting simulation",
		"renderer", *renderer,
		"bodies", sim.BodyCount(),
		"joints", len(cfg.Joints),
		"broad_phase", cfg.Physics.BroadPhase,
		"iterations", cfg.Physics.Iterations,
	)

	switch *renderer {
	case "engo":
		opts := engorender.Options{
			Title:      "rigid2d sandbox",
			Width:      pick(*width, int(cfg.Bounds.Width)),
			Height:     pick(*height, int(cfg.Bounds.Height)),
			Fullscreen: *fullscreen,
		}
		engorender.Run(sim, logger, opts)
		return
	case "headless", "ascii":
	default:
		logger.Error(ctx, "Unknown renderer", nil, "renderer", *renderer)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *healthAddr != "" {
		go serveHealth(ctx, sim, logger, *healthAddr)
	}

	if *renderer == "ascii" {
		err = runASCII(ctx, sim, *scale)
	} else {
		err = sim.Run(ctx, cfg.Run.Steps)
	}

	state := sim.GetState()
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info(ctx, "Simulation interrupted", "step", state.Step)
	case err != nil:
		logger.Error(ctx, "Simulation stopped", err, "step", state.Step)
		os.Exit(1)
	default:
		logger.Info(ctx, "Simulation finished",
			"step", state.Step,
			"bodies", len(state.Bodies),
			"contacts", len(state.Contacts),
		)
	}
}

// loadConfig reads path, or returns the default scene when path is empty
func loadConfig(path string) (*config.SimulationConfig, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(path)
}

// logRemovals reports every body that leaves the world other than by reset
func logRemovals(ctx context.Context, sim *engine.Simulation, logger *logging.Logger) {
	sim.EventBus.Subscribe(event.BodyRemoved, func(e event.Event) {
		ev, ok := e.(*event.BodyEvent)
		if !ok || ev.Reason == "reset" {
			return
		}
		logger.Info(ctx, "Body removed",
			"body_id", ev.BodyID,
			"kind", ev.Kind,
			"reason", ev.Reason,
		)
	})
}

// serveHealth exposes divergence and stall probes for long runs
func serveHealth(ctx context.Context, sim *engine.Simulation, logger *logging.Logger, addr string) {
	checker := health.NewHealthChecker()
	checker.AddCheck(health.NewDivergenceCheck(sim.Diverged))
	checker.AddCheck(health.NewProgressCheck(stallTimeout, func() (uint64, bool) {
		state := sim.GetState()
		return state.Step, state.Paused
	}))

	logger.Info(ctx, "Starting health check server", "address", addr)
	if err := checker.Serve(ctx, addr); err != nil {
		logger.Error(ctx, "Health check server failed", err, "address", addr)
	}
}

// runASCII steps in real time and draws every step to the terminal
func runASCII(ctx context.Context, sim *engine.Simulation, scale float64) error {
	bounds := sim.Config.Bounds
	r := render.NewASCIIRenderer(os.Stdout, int(bounds.Width/scale), int(bounds.Height/scale), scale)
	r.SetClearScreen(true)

	ticker := time.NewTicker(time.Duration(sim.Config.Run.TimeStep * float64(time.Second)))
	defer ticker.Stop()

	for i := 0; i < sim.Config.Run.Steps; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("ascii run stopped: %w", ctx.Err())
		case <-ticker.C:
		}

		if err := sim.Step(ctx); err != nil {
			return err
		}
		render.Draw(r, sim.GetState())
	}
	return nil
}

func pick(flagValue, fallback int) int {
	if flagValue > 0 {
		return flagValue
	}
	return fallback
}
