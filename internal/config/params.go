package config

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/kilosim/internal/dynamo"
)

// BehaviorPrefix marks parameters forwarded to the kilobot behavior.
const BehaviorPrefix = "behavior."

// scalar parameters reachable through SetParam, by dotted name.
var scalars = map[string]func(c *Config) *float64{
	"dt":                 func(c *Config) *float64 { return &c.Dt },
	"duration":           func(c *Config) *float64 { return &c.Duration },
	"kilobots.spacing":   func(c *Config) *float64 { return &c.Kilobots.Spacing },
	"light.radius":       func(c *Config) *float64 { return &c.Light.Radius },
	"light.angle":        func(c *Config) *float64 { return &c.Light.Angle },
	"light.max_velocity": func(c *Config) *float64 { return &c.Light.MaxVelocity },
	"light.action_bound": func(c *Config) *float64 { return &c.Light.ActionBound },
	"policy.kp":          func(c *Config) *float64 { return &c.Policy.Kp },
	"policy.ki":          func(c *Config) *float64 { return &c.Policy.Ki },
	"policy.kd":          func(c *Config) *float64 { return &c.Policy.Kd },
}

// GetParams lists every tunable value, including behavior parameters.
func (c *Config) GetParams() map[string]float64 {
	out := make(map[string]float64, len(scalars)+len(c.Kilobots.Params)+3)
	for name, field := range scalars {
		out[name] = *field(c)
	}
	out["seed"] = float64(c.Seed)
	out["substeps"] = float64(c.Substeps)
	out["kilobots.count"] = float64(c.Kilobots.Count)
	for name, v := range c.Kilobots.Params {
		out[BehaviorPrefix+name] = v
	}
	return out
}

// SetParam sets one value by the names GetParams reports. Any name under
// BehaviorPrefix is accepted and checked when the behavior is built.
func (c *Config) SetParam(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s must be finite", dynamo.ErrInvalidConfig, name)
	}
	if field, ok := scalars[name]; ok {
		*field(c) = value
		return nil
	}

	switch name {
	case "seed":
		c.Seed = int64(value)
		return nil
	case "substeps", "kilobots.count":
		if value != math.Trunc(value) || value < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer, got %g", dynamo.ErrInvalidConfig, name, value)
		}
		if name == "substeps" {
			c.Substeps = int(value)
		} else {
			c.Kilobots.Count = int(value)
		}
		return nil
	}

	if p, ok := strings.CutPrefix(name, BehaviorPrefix); ok && p != "" {
		if c.Kilobots.Params == nil {
			c.Kilobots.Params = make(map[string]float64)
		}
		c.Kilobots.Params[p] = value
		return nil
	}
	return fmt.Errorf("%w: parameter %q (available: %s)", dynamo.ErrUnknownVariant, name, strings.Join(ParamNames(), ", "))
}

// ParamNames lists the fixed parameter names in order.
func ParamNames() []string {
	names := []string{"seed", "substeps", "kilobots.count"}
	for name := range scalars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ dynamo.Configurable = (*Config)(nil)
