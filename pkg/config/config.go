// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jinzhu/copier"
	"gopkg.in/yaml.v3"
)

// Shape names accepted in BodyConfig.Shape
const (
	ShapeCircle  = "circle"
	ShapeBox     = "box"
	ShapePolygon = "polygon"
)

// Broad phase names accepted in PhysicsConfig.BroadPhase
const (
	BroadPhaseAllPairs = "all-pairs"
	BroadPhaseQuadTree = "quadtree"
)

// Solver names accepted in PhysicsConfig.Solver
const (
	SolverConstraints = "constraints"
	SolverDirect      = "direct"
)

// Environment variables read by ApplyEnvOverrides
const (
	EnvGravity    = "RIGID2D_GRAVITY"
	EnvIterations = "RIGID2D_ITERATIONS"
	EnvBroadPhase = "RIGID2D_BROADPHASE"
	EnvTimeStep   = "RIGID2D_TIMESTEP"
	EnvSteps      = "RIGID2D_STEPS"
)

// SimulationConfig describes a scene and how to run it
type SimulationConfig struct {
	Physics PhysicsConfig `json:"physics" yaml:"physics"`
	Run     RunConfig     `json:"run" yaml:"run"`
	Bounds  BoundsConfig  `json:"bounds" yaml:"bounds"`
	Bodies  []BodyConfig  `json:"bodies" yaml:"bodies"`
	Joints  []JointConfig `json:"joints" yaml:"joints"`
	Forces  ForcesConfig  `json:"forces" yaml:"forces"`
}

// DefaultIterations is the solver pass count used when a config leaves
// physics.iterations unset
const DefaultIterations = 10

// PhysicsConfig contains world tuning. Iterations of 0 means
// DefaultIterations.
type PhysicsConfig struct {
	Gravity          float64 `json:"gravity" yaml:"gravity"`
	PixelsPerMeter   float64 `json:"pixelsPerMeter" yaml:"pixelsPerMeter"`
	Iterations       int     `json:"iterations" yaml:"iterations"`
	BroadPhase       string  `json:"broadPhase" yaml:"broadPhase"`
	QuadTreeCapacity int     `json:"quadTreeCapacity" yaml:"quadTreeCapacity"`
	Solver           string  `json:"solver" yaml:"solver"`
}

// RunConfig controls stepping
type RunConfig struct {
	// TimeStep is the fixed step in seconds
	TimeStep float64 `json:"timeStep" yaml:"timeStep"`
	// Steps is the number of steps a headless run performs
	Steps int `json:"steps" yaml:"steps"`
	// MaxDivergentSteps is how many consecutive non-finite steps are
	// tolerated before the run is aborted
	MaxDivergentSteps int `json:"maxDivergentSteps" yaml:"maxDivergentSteps"`
	// ReportEvery logs a summary every N steps; zero disables it
	ReportEvery int `json:"reportEvery" yaml:"reportEvery"`
}

// BoundsConfig is the visible area. Bodies that leave it by more than
// CullMargin are removed.
type BoundsConfig struct {
	Width      float64 `json:"width" yaml:"width"`
	Height     float64 `json:"height" yaml:"height"`
	CullMargin float64 `json:"cullMargin" yaml:"cullMargin"`
}

// BodyConfig describes one body. Zero Restitution, Friction and
// GravityScale mean "use the default of 1"; use a negative value to ask for
// an explicit zero.
type BodyConfig struct {
	Name         string       `json:"name" yaml:"name"`
	Shape        string       `json:"shape" yaml:"shape"`
	Radius       float64      `json:"radius,omitempty" yaml:"radius,omitempty"`
	Width        float64      `json:"width,omitempty" yaml:"width,omitempty"`
	Height       float64      `json:"height,omitempty" yaml:"height,omitempty"`
	Vertices     [][2]float64 `json:"vertices,omitempty" yaml:"vertices,omitempty"`
	X            float64      `json:"x" yaml:"x"`
	Y            float64      `json:"y" yaml:"y"`
	Rotation     float64      `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Mass         float64      `json:"mass" yaml:"mass"`
	Restitution  float64      `json:"restitution,omitempty" yaml:"restitution,omitempty"`
	Friction     float64      `json:"friction,omitempty" yaml:"friction,omitempty"`
	GravityScale float64      `json:"gravityScale,omitempty" yaml:"gravityScale,omitempty"`
}

// JointConfig pins two named bodies together at a world-space anchor
type JointConfig struct {
	A       string  `json:"a" yaml:"a"`
	B       string  `json:"b" yaml:"b"`
	AnchorX float64 `json:"anchorX" yaml:"anchorX"`
	AnchorY float64 `json:"anchorY" yaml:"anchorY"`
}

// ForcesConfig lists global force generators
type ForcesConfig struct {
	Drag     float64    `json:"drag,omitempty" yaml:"drag,omitempty"`
	Friction float64    `json:"friction,omitempty" yaml:"friction,omitempty"`
	Wind     WindConfig `json:"wind" yaml:"wind"`
	Torque   float64    `json:"torque,omitempty" yaml:"torque,omitempty"`
}

// WindConfig is a constant force applied to every dynamic body
type WindConfig struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// LoadConfig loads a configuration from a file. Files ending in .yaml or
// .yml are read as YAML, anything else as JSON.
func LoadConfig(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config SimulationConfig
	if isYAML(path) {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyDefaults()

	return &config, nil
}

// applyDefaults fills in settings a scene file may omit
func (c *SimulationConfig) applyDefaults() {
	if c.Physics.Iterations == 0 {
		c.Physics.Iterations = DefaultIterations
	}
}

// SaveConfig saves a configuration to a file, in YAML or JSON by extension
func SaveConfig(config *SimulationConfig, path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Clone returns a deep copy, so a running simulation is not affected by
// later edits to the caller's config.
func (c *SimulationConfig) Clone() (*SimulationConfig, error) {
	var out SimulationConfig
	if err := copier.CopyWithOption(&out, c, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("failed to copy config: %w", err)
	}
	return &out, nil
}

// DefaultConfig returns the sandbox scene: a floor and two walls framing an
// 800x600 window, a central obstacle, a few loose bodies and a pendulum
// hanging at rest below its pivot.
func DefaultConfig() *SimulationConfig {
	const width, height = 800.0, 600.0

	return &SimulationConfig{
		Physics: PhysicsConfig{
			Gravity:          9.8,
			PixelsPerMeter:   50,
			Iterations:       DefaultIterations,
			BroadPhase:       BroadPhaseQuadTree,
			QuadTreeCapacity: 4,
			Solver:           SolverConstraints,
		},
		Run: RunConfig{
			TimeStep:          1.0 / 60,
			Steps:             600,
			MaxDivergentSteps: 3,
			ReportEvery:       60,
		},
		Bounds: BoundsConfig{
			Width:      width,
			Height:     height,
			CullMargin: 200,
		},
		Bodies: []BodyConfig{
			{Name: "floor", Shape: ShapeBox, Width: width - 50, Height: 50, X: width / 2, Y: height - 50, Restitution: 0.2},
			{Name: "left-wall", Shape: ShapeBox, Width: 50, Height: height - 100, X: 50, Y: height/2 - 25, Restitution: 0.2},
			{Name: "right-wall", Shape: ShapeBox, Width: 50, Height: height - 100, X: width - 50, Y: height/2 - 25, Restitution: 0.2},
			{Name: "obstacle", Shape: ShapeBox, Width: 100, Height: 100, X: width / 2, Y: height / 2, Rotation: 0.3, Restitution: 0.1},
			{Name: "ball", Shape: ShapeCircle, Radius: 25, X: 330, Y: 100, Mass: 1, Restitution: 0.5},
			{Name: "crate", Shape: ShapeBox, Width: 50, Height: 50, X: 550, Y: 120, Mass: 1, Friction: 0.6},
			{
				Name:  "pentagon",
				Shape: ShapePolygon,
				Vertices: [][2]float64{
					{0, -40}, {38, -12}, {24, 32}, {-24, 32}, {-38, -12},
				},
				X: 420, Y: 80, Mass: 2, Restitution: 0.3,
			},
			{Name: "pivot", Shape: ShapeCircle, Radius: 5, X: 200, Y: 60},
			{Name: "bob", Shape: ShapeCircle, Radius: 15, X: 200, Y: 140, Mass: 1},
		},
		Joints: []JointConfig{
			{A: "pivot", B: "bob", AnchorX: 200, AnchorY: 60},
		},
	}
}

// Validate returns the first problem found in the configuration
func (c *SimulationConfig) Validate() error {
	if c.Physics.PixelsPerMeter <= 0 {
		return errors.New("physics.pixelsPerMeter must be positive")
	}
	if c.Physics.Iterations < 0 {
		return fmt.Errorf("physics.iterations must not be negative, got %d", c.Physics.Iterations)
	}
	switch c.Physics.BroadPhase {
	case "", BroadPhaseAllPairs, BroadPhaseQuadTree:
	default:
		return fmt.Errorf("physics.broadPhase %q is not one of %q, %q", c.Physics.BroadPhase, BroadPhaseAllPairs, BroadPhaseQuadTree)
	}
	switch c.Physics.Solver {
	case "", SolverConstraints, SolverDirect:
	default:
		return fmt.Errorf("physics.solver %q is not one of %q, %q", c.Physics.Solver, SolverConstraints, SolverDirect)
	}
	if c.Run.TimeStep <= 0 {
		return fmt.Errorf("run.timeStep must be positive, got %v", c.Run.TimeStep)
	}
	if c.Run.Steps < 0 {
		return fmt.Errorf("run.steps must not be negative, got %d", c.Run.Steps)
	}
	if c.Run.MaxDivergentSteps < 0 {
		return fmt.Errorf("run.maxDivergentSteps must not be negative, got %d", c.Run.MaxDivergentSteps)
	}
	if c.Bounds.Width <= 0 || c.Bounds.Height <= 0 {
		return fmt.Errorf("bounds must be positive, got %vx%v", c.Bounds.Width, c.Bounds.Height)
	}

	names := make(map[string]bool, len(c.Bodies))
	for i, b := range c.Bodies {
		if err := b.validate(); err != nil {
			return fmt.Errorf("bodies[%d]: %w", i, err)
		}
		if b.Name == "" {
			continue
		}
		if names[b.Name] {
			return fmt.Errorf("bodies[%d]: duplicate name %q", i, b.Name)
		}
		names[b.Name] = true
	}

	for i, j := range c.Joints {
		if !names[j.A] {
			return fmt.Errorf("joints[%d]: unknown body %q", i, j.A)
		}
		if !names[j.B] {
			return fmt.Errorf("joints[%d]: unknown body %q", i, j.B)
		}
		if j.A == j.B {
			return fmt.Errorf("joints[%d]: body %q joined to itself", i, j.A)
		}
	}

	return nil
}

func (b BodyConfig) validate() error {
	switch b.Shape {
	case ShapeCircle:
		if b.Radius <= 0 {
			return fmt.Errorf("circle radius must be positive, got %v", b.Radius)
		}
	case ShapeBox:
		if b.Width <= 0 || b.Height <= 0 {
			return fmt.Errorf("box size must be positive, got %vx%v", b.Width, b.Height)
		}
	case ShapePolygon:
		if len(b.Vertices) < 3 {
			return fmt.Errorf("polygon needs at least 3 vertices, got %d", len(b.Vertices))
		}
	default:
		return fmt.Errorf("unknown shape %q", b.Shape)
	}
	if b.Mass < 0 {
		return fmt.Errorf("mass must not be negative, got %v", b.Mass)
	}
	return nil
}

// ApplyEnvOverrides replaces fields with values from RIGID2D_* environment
// variables. Unset variables leave the field alone.
func (c *SimulationConfig) ApplyEnvOverrides() error {
	var err error

	if c.Physics.Gravity, err = getEnvFloat(EnvGravity, c.Physics.Gravity); err != nil {
		return err
	}
	if c.Physics.Iterations, err = getEnvInt(EnvIterations, c.Physics.Iterations); err != nil {
		return err
	}
	if v := strings.TrimSpace(os.Getenv(EnvBroadPhase)); v != "" {
		c.Physics.BroadPhase = strings.ToLower(v)
	}
	if c.Run.TimeStep, err = getEnvFloat(EnvTimeStep, c.Run.TimeStep); err != nil {
		return err
	}
	if c.Run.Steps, err = getEnvInt(EnvSteps, c.Run.Steps); err != nil {
		return err
	}

	return nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
