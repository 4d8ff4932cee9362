package config

import "sort"

var Presets = map[string]*Config{
	"phototaxis": {
		Name: "phototaxis", Dt: 0.1, Duration: 300.0, Seed: 1,
		Arena:    ArenaConfig{Width: 1.0, Height: 1.0, Walls: true},
		Light:    LightSpec{Type: "circular", Position: []float64{0.3, 0.3}, Radius: 0.6},
		Kilobots: KilobotConfig{Count: 10, Behavior: "threshold", Placement: "grid", Spacing: 0.05},
		Policy:   PolicyConfig{Type: "none"},
	},
	"switching": {
		Name: "switching", Dt: 0.1, Duration: 120.0, Seed: 1,
		Arena:    ArenaConfig{Width: 1.0, Height: 1.0, Walls: true},
		Light:    LightSpec{Type: "single_position", Position: []float64{0.0, 0.0}},
		Kilobots: KilobotConfig{Count: 6, Behavior: "switching", Placement: "circle", Spacing: 0.25},
		Policy:   PolicyConfig{Type: "pid", Target: []float64{0.2, -0.2}, Kp: 0.5, Kd: 0.05},
	},
	"gradient": {
		Name: "gradient", Dt: 0.1, Duration: 200.0, Seed: 1,
		Arena:    ArenaConfig{Width: 1.0, Height: 1.0, Walls: true},
		Light:    LightSpec{Type: "gradient", Angle: 0.0, Relative: true},
		Kilobots: KilobotConfig{Count: 8, Behavior: "threshold", Placement: "grid", Spacing: 0.06},
		Policy:   PolicyConfig{Type: "constant", Action: []float64{0.05}},
	},
	"momentum": {
		Name: "momentum", Dt: 0.1, Duration: 200.0, Seed: 1,
		Arena: ArenaConfig{Width: 1.0, Height: 1.0, Walls: true},
		Light: LightSpec{
			Type: "momentum", Position: []float64{-0.3, 0.0}, Radius: 0.5,
			Velocity: []float64{0.002, 0.0}, MaxVelocity: 0.005,
		},
		Kilobots: KilobotConfig{Count: 10, Behavior: "threshold", Placement: "random", Spacing: 0.3},
		Policy:   PolicyConfig{Type: "lqr", Target: []float64{0.3, 0.2}, Kp: 0.01, Kd: 0.2},
	},
	"composite": {
		Name: "composite", Dt: 0.1, Duration: 200.0, Seed: 7,
		Arena: ArenaConfig{Width: 1.2, Height: 1.2, Walls: true},
		Light: LightSpec{
			Type: "composite", Reducer: "max",
			Children: []LightSpec{
				{Type: "circular", Position: []float64{-0.3, 0.3}, Radius: 0.4},
				{Type: "circular", Position: []float64{0.3, -0.3}, Radius: 0.4},
			},
		},
		Kilobots: KilobotConfig{Count: 12, Behavior: "threshold", Placement: "random", Spacing: 0.4},
		Policy:   PolicyConfig{Type: "random"},
	},
	"obstacles": {
		Name: "obstacles", Dt: 0.1, Duration: 300.0, Seed: 3,
		Arena:    ArenaConfig{Width: 1.0, Height: 1.0, Walls: true},
		Light:    LightSpec{Type: "circular", Position: []float64{0.0, 0.35}, Radius: 0.7},
		Kilobots: KilobotConfig{Count: 8, Behavior: "threshold", Placement: "grid", Spacing: 0.05, Center: []float64{0.0, -0.3}},
		Policy:   PolicyConfig{Type: "none"},
		Objects: []ObjectConfig{
			{Shape: "t", Width: 0.15, Height: 0.15, X: -0.15, Y: 0.05},
			{Shape: "corner_quad", Width: 0.1, Height: 0.1, X: 0.2, Y: 0.0, Theta: 0.5},
		},
	},
	"fixed": {
		Name: "fixed", Dt: 0.1, Duration: 60.0,
		Arena:    ArenaConfig{Width: 1.0, Height: 1.0, Walls: true},
		Light:    LightSpec{Type: "circular", Position: []float64{0.0, 0.0}, Radius: 0.5},
		Kilobots: KilobotConfig{Count: 4, Behavior: "fixed", Params: map[string]float64{"left": 255, "right": 200}, Placement: "grid", Spacing: 0.1},
		Policy:   PolicyConfig{Type: "none"},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
