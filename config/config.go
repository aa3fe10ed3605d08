// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

//go:embed schema.json
var schemaJSON string

// Player policies.
const (
	PolicyFollow = "follow"
	PolicyAvoid  = "avoid"
)

// Neighbor query modes.
const (
	QueryRadius   = "radius"
	QueryKNearest = "k_nearest"
)

// Spatial index backends.
const (
	IndexKDTree = "kdtree"
	IndexGrid   = "grid"
)

// Numeric fault policies.
const (
	FaultHalt  = "halt"
	FaultReset = "reset"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Screen      ScreenConfig      `yaml:"screen"`
	Physics     PhysicsConfig     `yaml:"physics"`
	Population  PopulationConfig  `yaml:"population"`
	Steering    SteeringConfig    `yaml:"steering"`
	Integration IntegrationConfig `yaml:"integration"`
	Index       IndexConfig       `yaml:"index"`
	Parallel    ParallelConfig    `yaml:"parallel"`
	Faults      FaultsConfig      `yaml:"faults"`
	Player      PlayerConfig      `yaml:"player"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	TargetFPS   int     `yaml:"target_fps"`
	WorldHeight float64 `yaml:"world_height"` // Visible world units along the vertical axis
}

// PhysicsConfig holds the fixed-step settings used in headless runs.
type PhysicsConfig struct {
	DT             float64 `yaml:"dt"`
	SpeedScale     float64 `yaml:"speed_scale"` // Position step multiplier
	StepsPerUpdate int     `yaml:"steps_per_update"`
}

// PopulationConfig holds initial spawn parameters.
type PopulationConfig struct {
	Count     int     `yaml:"count"`
	HalfWidth float64 `yaml:"half_width"` // Spawn square is [-half_width, half_width]^2
	Seed      int64   `yaml:"seed"`
}

// SteeringConfig holds force composition constants and policy switches.
type SteeringConfig struct {
	PlayerPolicy  string `yaml:"player_policy"`  // follow | avoid
	NeighborQuery string `yaml:"neighbor_query"` // radius | k_nearest
	Cohesion      bool   `yaml:"cohesion"`
	Centering     bool   `yaml:"centering"`
	SortNeighbors bool   `yaml:"sort_neighbors"`

	QueryRadius float64 `yaml:"query_radius"`
	K           int     `yaml:"k"`

	MinDistance float64 `yaml:"min_distance"` // Floor for distances used as divisors

	FollowFactor  float64 `yaml:"follow_factor"`
	FollowRange   float64 `yaml:"follow_range"`   // Distance clamp of the follow curve
	FollowFalloff float64 `yaml:"follow_falloff"` // Exponential falloff of the follow curve

	AvoidFactor      float64 `yaml:"avoid_factor"`
	MinAvoidDistance float64 `yaml:"min_avoid_distance"`
	MaxAvoidDistance float64 `yaml:"max_avoid_distance"`

	CenterFactor      float64 `yaml:"center_factor"`
	MinCenterDistance float64 `yaml:"min_center_distance"`
	MaxCenterDistance float64 `yaml:"max_center_distance"`

	SeparationFactor float64 `yaml:"separation_factor"`
	AlignmentFactor  float64 `yaml:"alignment_factor"`
	CohesionFactor   float64 `yaml:"cohesion_factor"`
}

// IntegrationConfig holds velocity and force clamps.
type IntegrationConfig struct {
	MinVelocity      float64 `yaml:"min_velocity"`
	MaxVelocity      float64 `yaml:"max_velocity"`
	MaxSteeringForce float64 `yaml:"max_steering_force"`
}

// IndexConfig selects the spatial index backend.
type IndexConfig struct {
	Kind     string  `yaml:"kind"`      // kdtree | grid
	CellSize float64 `yaml:"cell_size"` // grid backend only
}

// ParallelConfig controls the evaluation worker pool.
type ParallelConfig struct {
	Enabled   bool `yaml:"enabled"`
	Threshold int  `yaml:"threshold"` // Minimum population before workers are used
	Workers   int  `yaml:"workers"`   // 0 = GOMAXPROCS
}

// FaultsConfig selects the numeric fault policy.
type FaultsConfig struct {
	Policy string `yaml:"policy"` // halt | reset
}

// PlayerConfig drives the scripted player used without a window.
type PlayerConfig struct {
	OrbitRadius float64 `yaml:"orbit_radius"` // 0 = hold at origin
	OrbitSpeed  float64 `yaml:"orbit_speed"`  // radians per second
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`     // seconds of sim time
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	TrajectoryEvery     int     `yaml:"trajectory_every"` // ticks between trajectory rows, 0 = off
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse overlays a YAML document on the embedded defaults, checks it against the
// schema and validates the result.
func Parse(data []byte) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if len(data) > 0 {
		if err := checkSchema(data); err != nil {
			return nil, err
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// checkSchema validates a user document against the embedded JSON schema.
func checkSchema(data []byte) error {
	sch, err := jsonschema.CompileString("schema.json", schemaJSON)
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	if doc == nil {
		return nil
	}

	// Round-trip through JSON so the validator sees plain JSON values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("converting config for validation: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("converting config for validation: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Validate checks cross-field constraints the schema cannot express.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	s := &c.Steering
	in := &c.Integration

	check(c.Physics.DT > 0, "physics.dt must be positive, got %v", c.Physics.DT)
	check(c.Physics.StepsPerUpdate >= 1, "physics.steps_per_update must be >= 1")
	check(c.Population.Count >= 0, "population.count must be >= 0")
	check(c.Population.HalfWidth >= 0, "population.half_width must be >= 0")

	check(s.PlayerPolicy == PolicyFollow || s.PlayerPolicy == PolicyAvoid,
		"steering.player_policy must be %q or %q, got %q", PolicyFollow, PolicyAvoid, s.PlayerPolicy)
	check(s.NeighborQuery == QueryRadius || s.NeighborQuery == QueryKNearest,
		"steering.neighbor_query must be %q or %q, got %q", QueryRadius, QueryKNearest, s.NeighborQuery)
	check(s.QueryRadius > 0, "steering.query_radius must be positive")
	check(s.K >= 1, "steering.k must be >= 1")
	check(s.MinDistance > 0, "steering.min_distance must be positive")
	check(s.FollowFalloff > 0, "steering.follow_falloff must be positive")
	check(s.MinAvoidDistance <= s.MaxAvoidDistance, "steering.min_avoid_distance exceeds max_avoid_distance")
	check(s.MinCenterDistance <= s.MaxCenterDistance, "steering.min_center_distance exceeds max_center_distance")

	check(in.MinVelocity >= 0, "integration.min_velocity must be >= 0")
	check(in.MinVelocity <= in.MaxVelocity, "integration.min_velocity exceeds max_velocity")
	check(in.MaxSteeringForce >= 0, "integration.max_steering_force must be >= 0")

	check(c.Index.Kind == IndexKDTree || c.Index.Kind == IndexGrid,
		"index.kind must be %q or %q, got %q", IndexKDTree, IndexGrid, c.Index.Kind)
	check(c.Index.Kind != IndexGrid || c.Index.CellSize > 0, "index.cell_size must be positive for the grid index")
	check(c.Faults.Policy == FaultHalt || c.Faults.Policy == FaultReset,
		"faults.policy must be %q or %q, got %q", FaultHalt, FaultReset, c.Faults.Policy)

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Scenarios lists the presets accepted by ApplyScenario.
func Scenarios() []string {
	return []string{"simple", "flocking"}
}

// ApplyScenario switches the policy knobs to one of the named presets.
// Tunable magnitudes are left as loaded.
func (c *Config) ApplyScenario(name string) error {
	switch strings.ToLower(name) {
	case "", "default":
		return nil
	case "simple":
		// Early variant: a handful of birds chasing the cursor.
		c.Population.Count = 10
		c.Steering.PlayerPolicy = PolicyFollow
		c.Steering.NeighborQuery = QueryRadius
		c.Steering.Cohesion = false
		c.Steering.Centering = false
	case "flocking":
		c.Population.Count = 1000
		c.Steering.PlayerPolicy = PolicyAvoid
		c.Steering.NeighborQuery = QueryKNearest
		c.Steering.K = 10
		c.Steering.QueryRadius = 5
		c.Steering.Cohesion = true
		c.Steering.Centering = true
	default:
		return fmt.Errorf("unknown scenario %q (want one of %v)", name, Scenarios())
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
