// Package health reports whether a long-running simulation is still
// producing usable results. It serves liveness and readiness probes over
// HTTP for headless runs.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Status strings used in reports
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// readinessTimeout bounds one readiness probe
const readinessTimeout = 5 * time.Second

// HealthCheck is one named probe
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus is the aggregated result of all checks
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth is the result of one check
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker runs a set of checks. Registering a name twice replaces the
// earlier check.
type HealthChecker struct {
	checks map[string]HealthCheck
	mu     sync.RWMutex
}

// NewHealthChecker creates an empty checker
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck registers check under its name
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck unregisters a check
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// CheckHealth runs every check. The result is healthy only if all pass.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: StatusHealthy,
		Checks: make(map[string]ComponentHealth, len(hc.checks)),
	}
	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = StatusUnhealthy
			status.Checks[name] = ComponentHealth{Status: StatusUnhealthy, Message: err.Error()}
			continue
		}
		status.Checks[name] = ComponentHealth{Status: StatusHealthy}
	}
	return status
}

// LivenessHandler answers 200 while the process can serve requests
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// ReadinessHandler runs all checks and answers 200 or 503 with the report
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	report := hc.CheckHealth(ctx)

	w.Header().Set("Content-Type", "application/json")
	if report.Status == StatusHealthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(report)
}

// Handler routes /healthz to liveness and /readyz to readiness
func (hc *HealthChecker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", hc.LivenessHandler)
	mux.HandleFunc("/readyz", hc.ReadinessHandler)
	return mux
}

// Serve listens on addr until ctx is done
func (hc *HealthChecker) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           hc.Handler(),
		ReadHeaderTimeout: readinessTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("health server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server shutdown failed: %w", err)
		}
		return nil
	}
}

// DivergenceCheck fails once the simulation has stopped stepping because its
// state went non-finite.
type DivergenceCheck struct {
	diverged func() bool
}

// NewDivergenceCheck creates a check backed by diverged
func NewDivergenceCheck(diverged func() bool) *DivergenceCheck {
	return &DivergenceCheck{diverged: diverged}
}

// Name implements HealthCheck
func (d *DivergenceCheck) Name() string {
	return "divergence"
}

// Check implements HealthCheck
func (d *DivergenceCheck) Check(ctx context.Context) error {
	if d.diverged() {
		return errors.New("simulation diverged and is halted")
	}
	return nil
}

// ProgressCheck fails when an unpaused simulation has not advanced a step
// for longer than maxIdle.
type ProgressCheck struct {
	progress func() (step uint64, paused bool)
	maxIdle  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastStep uint64
	lastMove time.Time
}

// NewProgressCheck creates a check polling progress
func NewProgressCheck(maxIdle time.Duration, progress func() (uint64, bool)) *ProgressCheck {
	return &ProgressCheck{
		progress: progress,
		maxIdle:  maxIdle,
		now:      time.Now,
		lastMove: time.Now(),
	}
}

// Name implements HealthCheck
func (p *ProgressCheck) Name() string {
	return "progress"
}

// Check implements HealthCheck
func (p *ProgressCheck) Check(ctx context.Context) error {
	step, paused := p.progress()

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if paused || step != p.lastStep {
		p.lastStep = step
		p.lastMove = now
		return nil
	}
	if idle := now.Sub(p.lastMove); idle > p.maxIdle {
		return fmt.Errorf("no step for %s (stuck at step %d)", idle.Round(time.Millisecond), step)
	}
	return nil
}
