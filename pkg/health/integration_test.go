package health

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opd-ai/go-rigid2d/pkg/config"
	"github.com/opd-ai/go-rigid2d/pkg/engine"
	"github.com/opd-ai/go-rigid2d/pkg/logging"
	"github.com/opd-ai/go-rigid2d/pkg/physics"
)

// TestHealthCheckIntegration probes a real simulation through divergence
// and reset.
func TestHealthCheckIntegration(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Run.ReportEvery = 0
	cfg.Run.MaxDivergentSteps = 0

	sim, err := engine.NewSimulation(cfg, logging.NewLoggerWithWriter(io.Discard, slog.LevelError))
	if err != nil {
		t.Fatalf("NewSimulation failed: %v", err)
	}

	checker := NewHealthChecker()
	checker.AddCheck(NewDivergenceCheck(sim.Diverged))
	checker.AddCheck(NewProgressCheck(time.Hour, func() (uint64, bool) {
		state := sim.GetState()
		return state.Step, state.Paused
	}))

	ready := func() (int, HealthStatus) {
		w := httptest.NewRecorder()
		checker.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/readyz", nil))
		var report HealthStatus
		if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
			t.Fatalf("failed to decode readiness report: %v", err)
		}
		return w.Code, report
	}

	ctx := context.Background()
	if err := sim.Run(ctx, 5); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	t.Run("healthy while stepping", func(t *testing.T) {
		code, report := ready()
		if code != http.StatusOK || report.Status != StatusHealthy {
			t.Errorf("readiness = %d %+v, want 200 healthy", code, report)
		}
	})

	t.Run("unhealthy after divergence", func(t *testing.T) {
		ball, ok := sim.BodyByName("ball")
		if !ok {
			t.Fatal("default scene has no ball")
		}
		sim.Lock.Lock()
		sim.World.Body(ball).Velocity = physics.Vec(math.NaN(), 0)
		sim.Lock.Unlock()

		if err := sim.Step(ctx); err == nil {
			t.Fatal("expected the step to report divergence")
		}

		code, report := ready()
		if code != http.StatusServiceUnavailable {
			t.Errorf("readiness code = %d, want 503", code)
		}
		if report.Checks["divergence"].Status != StatusUnhealthy {
			t.Errorf("divergence check = %+v, want unhealthy", report.Checks["divergence"])
		}
	})

	t.Run("healthy after reset", func(t *testing.T) {
		if err := sim.Reset(); err != nil {
			t.Fatalf("Reset failed: %v", err)
		}
		if code, report := ready(); code != http.StatusOK {
			t.Errorf("readiness after reset = %d %+v, want 200", code, report)
		}
	})
}
