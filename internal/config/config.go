package config

import (
	"fmt"
	"os"

	"github.com/san-kum/kilosim/internal/dynamo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt          = 0.1
	DefaultDuration    = 120.0
	DefaultKilobots    = 10
	DefaultSpacing     = 0.05
	DefaultArenaWidth  = 1.0
	DefaultArenaHeight = 1.0
	DefaultKp          = 1.0
	DefaultKi          = 0.0
	DefaultKd          = 0.1
)

// Config describes one experiment: arena, light, swarm and light policy.
type Config struct {
	Name     string         `yaml:"name,omitempty"`
	Dt       float64        `yaml:"dt"`
	Duration float64        `yaml:"duration"`
	Seed     int64          `yaml:"seed"`
	Substeps int            `yaml:"substeps,omitempty"`
	Arena    ArenaConfig    `yaml:"arena"`
	Light    LightSpec      `yaml:"light"`
	Kilobots KilobotConfig  `yaml:"kilobots"`
	Policy   PolicyConfig   `yaml:"policy"`
	Objects  []ObjectConfig `yaml:"objects,omitempty"`
	Metrics  []string       `yaml:"metrics,omitempty"`
}

// ArenaConfig is a rectangle centred on the origin.
type ArenaConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Walls  bool    `yaml:"walls"`
}

// LightSpec describes a light. Composite lights nest their children.
type LightSpec struct {
	Type        string      `yaml:"type"`
	Position    []float64   `yaml:"position,omitempty"`
	Radius      float64     `yaml:"radius,omitempty"`
	Angle       float64     `yaml:"angle,omitempty"`
	Absolute    bool        `yaml:"absolute,omitempty"`
	Relative    bool        `yaml:"relative,omitempty"`
	Velocity    []float64   `yaml:"velocity,omitempty"`
	MaxVelocity float64     `yaml:"max_velocity,omitempty"`
	ActionBound float64     `yaml:"action_bound,omitempty"`
	Reducer     string      `yaml:"reducer,omitempty"`
	Children    []LightSpec `yaml:"children,omitempty"`
}

type KilobotConfig struct {
	Count     int                `yaml:"count"`
	Behavior  string             `yaml:"behavior"`
	Params    map[string]float64 `yaml:"params,omitempty"`
	Placement string             `yaml:"placement"`
	Spacing   float64            `yaml:"spacing,omitempty"`
	Center    []float64          `yaml:"center,omitempty"`
	Poses     []PoseConfig       `yaml:"poses,omitempty"`
}

type PoseConfig struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Theta float64 `yaml:"theta"`
}

type PolicyConfig struct {
	Type   string    `yaml:"type"`
	Action []float64 `yaml:"action,omitempty"`
	Target []float64 `yaml:"target,omitempty"`
	Kp     float64   `yaml:"kp,omitempty"`
	Ki     float64   `yaml:"ki,omitempty"`
	Kd     float64   `yaml:"kd,omitempty"`
}

type ObjectConfig struct {
	Shape  string  `yaml:"shape"`
	Width  float64 `yaml:"width,omitempty"`
	Height float64 `yaml:"height,omitempty"`
	Radius float64 `yaml:"radius,omitempty"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Theta  float64 `yaml:"theta,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Arena: ArenaConfig{
			Width:  DefaultArenaWidth,
			Height: DefaultArenaHeight,
			Walls:  true,
		},
		Light: LightSpec{
			Type:     "circular",
			Position: []float64{0.25, 0.25},
			Radius:   0.5,
		},
		Kilobots: KilobotConfig{
			Count:     DefaultKilobots,
			Behavior:  "threshold",
			Placement: "grid",
			Spacing:   DefaultSpacing,
		},
		Policy: PolicyConfig{
			Type: "none",
			Kp:   DefaultKp,
			Ki:   DefaultKi,
			Kd:   DefaultKd,
		},
	}
}

// Load reads a YAML file, validates it against the embedded schema and
// decodes it over DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks what the schema cannot express.
func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", dynamo.ErrInvalidConfig, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %g", dynamo.ErrInvalidConfig, c.Duration)
	}
	if c.Arena.Width <= 0 || c.Arena.Height <= 0 {
		return fmt.Errorf("%w: arena must have a positive size", dynamo.ErrInvalidConfig)
	}
	if c.Kilobots.Count < 0 {
		return fmt.Errorf("%w: kilobot count must not be negative", dynamo.ErrInvalidConfig)
	}
	return c.Light.validate("light")
}

func (s LightSpec) validate(path string) error {
	if s.Type == "composite" {
		if len(s.Children) == 0 {
			return fmt.Errorf("%w: %s: composite light needs children", dynamo.ErrInvalidConfig, path)
		}
		for i, ch := range s.Children {
			if err := ch.validate(fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	if len(s.Position) != 0 && len(s.Position) != 2 {
		return fmt.Errorf("%w: %s: position needs 2 components", dynamo.ErrDimensionMismatch, path)
	}
	if len(s.Velocity) != 0 && len(s.Velocity) != 2 {
		return fmt.Errorf("%w: %s: velocity needs 2 components", dynamo.ErrDimensionMismatch, path)
	}
	return nil
}

// SimConfig is the run configuration for the simulator.
func (c *Config) SimConfig() dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.Dt = c.Dt
	cfg.Duration = c.Duration
	cfg.Seed = c.Seed
	if c.Substeps > 0 {
		cfg.Substeps = c.Substeps
	}
	return cfg
}

// ArenaBox is the arena as a 2D box centred on the origin.
func (c *Config) ArenaBox() dynamo.Box {
	w, h := c.Arena.Width/2, c.Arena.Height/2
	return dynamo.Box{Low: []float64{-w, -h}, High: []float64{w, h}}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Light = c.Light.clone()
	out.Kilobots.Params = make(map[string]float64, len(c.Kilobots.Params))
	for k, v := range c.Kilobots.Params {
		out.Kilobots.Params[k] = v
	}
	out.Kilobots.Center = append([]float64(nil), c.Kilobots.Center...)
	out.Kilobots.Poses = append([]PoseConfig(nil), c.Kilobots.Poses...)
	out.Policy.Action = append([]float64(nil), c.Policy.Action...)
	out.Policy.Target = append([]float64(nil), c.Policy.Target...)
	out.Objects = append([]ObjectConfig(nil), c.Objects...)
	out.Metrics = append([]string(nil), c.Metrics...)
	return &out
}

func (s LightSpec) clone() LightSpec {
	out := s
	out.Position = append([]float64(nil), s.Position...)
	out.Velocity = append([]float64(nil), s.Velocity...)
	if s.Children != nil {
		out.Children = make([]LightSpec, len(s.Children))
		for i, ch := range s.Children {
			out.Children[i] = ch.clone()
		}
	}
	return out
}
