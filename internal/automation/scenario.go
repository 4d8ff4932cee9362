// Package automation runs scripted sequences of experiments described in
// YAML scenario files.
package automation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/san-kum/kilosim/internal/config"
	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/experiment"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset or a config file and applies overrides.
// Params use the names reported by config.Config.GetParams.
type ScenarioStep struct {
	Name     string             `yaml:"name,omitempty"`
	Preset   string             `yaml:"preset,omitempty"`
	Config   string             `yaml:"config,omitempty"`
	Duration float64            `yaml:"duration,omitempty"`
	Dt       float64            `yaml:"dt,omitempty"`
	Seed     *int64             `yaml:"seed,omitempty"`
	Params   map[string]float64 `yaml:"params,omitempty"`
	SaveAs   string             `yaml:"save_as,omitempty"`
}

// StepResult pairs a finished step with the config it ran.
type StepResult struct {
	Name   string
	Config *config.Config
	Result *dynamo.Result
	RunID  string
}

// Saver persists a finished run and returns its id.
type Saver interface {
	Save(cfg *config.Config, result *dynamo.Result) (string, error)
}

// Runner executes scenarios. Relative config paths resolve against baseDir.
type Runner struct {
	baseDir string
	saver   Saver
	opts    []experiment.Option
	logger  *zap.Logger
}

type Option func(*Runner)

func WithBaseDir(dir string) Option {
	return func(r *Runner) { r.baseDir = dir }
}

// WithSaver stores every step that names save_as.
func WithSaver(s Saver) Option {
	return func(r *Runner) { r.saver = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
			r.opts = append(r.opts, experiment.WithLogger(l))
		}
	}
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: scenario: %v", dynamo.ErrInvalidConfig, err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("%w: scenario %q has no steps", dynamo.ErrInvalidConfig, sc.Name)
	}
	for i, st := range sc.Steps {
		if (st.Preset == "") == (st.Config == "") {
			return nil, fmt.Errorf("%w: step %d needs exactly one of preset or config", dynamo.ErrInvalidConfig, i+1)
		}
	}
	return &sc, nil
}

// StepConfig resolves the config a step runs with.
func (r *Runner) StepConfig(st ScenarioStep) (*config.Config, error) {
	var cfg *config.Config
	if st.Preset != "" {
		cfg = config.GetPreset(st.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("%w: preset %q (available: %v)", dynamo.ErrUnknownVariant, st.Preset, config.ListPresets())
		}
	} else {
		path := st.Config
		if !filepath.IsAbs(path) && r.baseDir != "" {
			path = filepath.Join(r.baseDir, path)
		}
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if st.Duration > 0 {
		cfg.Duration = st.Duration
	}
	if st.Dt > 0 {
		cfg.Dt = st.Dt
	}
	if st.Seed != nil {
		cfg.Seed = *st.Seed
	}
	for name, v := range st.Params {
		if err := cfg.SetParam(name, v); err != nil {
			return nil, err
		}
	}
	if st.SaveAs != "" {
		cfg.Name = st.SaveAs
	}
	return cfg, nil
}

// Run executes the steps in order and stops at the first failure, returning
// the steps finished so far.
func (r *Runner) Run(ctx context.Context, sc *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(sc.Steps))

	for i, st := range sc.Steps {
		cfg, err := r.StepConfig(st)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		name := st.Name
		if name == "" {
			name = cfg.Name
		}
		r.logger.Info("scenario step",
			zap.String("scenario", sc.Name),
			zap.Int("step", i+1),
			zap.Int("of", len(sc.Steps)),
			zap.String("name", name))

		exp := experiment.New(cfg, r.opts...)
		if err := exp.Setup(); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Name: name, Config: cfg, Result: res}
		if st.SaveAs != "" && r.saver != nil {
			if sr.RunID, err = r.saver.Save(cfg, res); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, sr)
	}

	return results, nil
}
