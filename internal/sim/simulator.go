// Package sim drives a kilobot swarm under a light field.
//
// One tick of [Simulator.Step] steps the light with the action, runs every
// kilobot's behavior and kinematics, then integrates the physics world.
// [Simulator.Run] repeats this under a [dynamo.Policy] and records a
// [dynamo.Snapshot] per tick.
package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/kilobot"
	"github.com/san-kum/kilosim/internal/light"
	"github.com/san-kum/kilosim/internal/physics"
	"go.uber.org/zap"
)

type Simulator struct {
	world     *physics.World
	light     light.Light
	kilobots  []*kilobot.Kilobot
	objects   []*physics.Object
	metrics   []dynamo.Metric
	observers []dynamo.Observer
	logger    *zap.Logger

	velocityIterations int
	positionIterations int
	substeps           int

	steps      int
	time       float64
	lastAction dynamo.Action
}

// New creates a simulator around world. A nil world gets a fresh one and a
// nil light leaves every kilobot in the dark.
func New(world *physics.World, l light.Light, opts ...Option) *Simulator {
	if world == nil {
		world = physics.NewWorld()
	}
	def := dynamo.DefaultConfig()
	s := &Simulator{
		world:              world,
		light:              l,
		logger:             zap.NewNop(),
		velocityIterations: def.VelocityIterations,
		positionIterations: def.PositionIterations,
		substeps:           def.Substeps,
		metrics:            make([]dynamo.Metric, 0),
		observers:          make([]dynamo.Observer, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }
func (s *Simulator) AddKilobot(k *kilobot.Kilobot) { s.kilobots = append(s.kilobots, k) }
func (s *Simulator) AddObject(o *physics.Object)   { s.objects = append(s.objects, o) }

// NewKilobot creates a kilobot in the simulator's world, attached to its
// light and logger, and adds it to the swarm.
func (s *Simulator) NewKilobot(pose dynamo.Pose, b kilobot.Behavior, opts ...kilobot.Option) (*kilobot.Kilobot, error) {
	opts = append([]kilobot.Option{kilobot.WithLogger(s.logger)}, opts...)
	k, err := kilobot.New(s.world, pose, s.light, b, opts...)
	if err != nil {
		return nil, err
	}
	s.AddKilobot(k)
	return k, nil
}

func (s *Simulator) World() *physics.World        { return s.world }
func (s *Simulator) Light() light.Light           { return s.light }
func (s *Simulator) Kilobots() []*kilobot.Kilobot { return s.kilobots }
func (s *Simulator) Objects() []*physics.Object   { return s.objects }
func (s *Simulator) Time() float64                { return s.time }
func (s *Simulator) Steps() int                   { return s.steps }
func (s *Simulator) Logger() *zap.Logger          { return s.logger }
func (s *Simulator) Metrics() []dynamo.Metric     { return s.metrics }
func (s *Simulator) LastAction() dynamo.Action    { return s.lastAction.Clone() }

// Observation is the light state a policy sees.
func (s *Simulator) Observation() dynamo.State {
	if s.light == nil {
		return dynamo.State{}
	}
	return dynamo.State(s.light.State())
}

// Step advances the swarm by dt. A nil action leaves the light alone.
func (s *Simulator) Step(action dynamo.Action, dt float64) {
	if s.light != nil {
		s.light.Step(action, dt)
	}
	for _, k := range s.kilobots {
		if k.Destroyed() {
			continue
		}
		k.Step(dt)
	}

	h := dt / float64(s.substeps)
	for i := 0; i < s.substeps; i++ {
		s.world.Step(h, s.velocityIterations, s.positionIterations)
	}

	s.steps++
	s.time += dt
	s.lastAction = action.Clone()
}

// Snapshot captures the current swarm and light.
func (s *Simulator) Snapshot() dynamo.Snapshot {
	states := make([]dynamo.KilobotState, 0, len(s.kilobots))
	for _, k := range s.kilobots {
		if !k.Destroyed() {
			states = append(states, k.State())
		}
	}
	snap := dynamo.Snapshot{}
	s.fill(&snap, states)
	return snap
}

func (s *Simulator) fill(snap *dynamo.Snapshot, states []dynamo.KilobotState) {
	snap.Step = s.steps
	snap.Time = s.time
	snap.Kilobots = states
	snap.Light = s.Observation().Clone()
	snap.Action = s.lastAction.Clone()
	snap.HasTarget = false
	if p, ok := s.light.(light.Positioner); ok {
		pos := p.Position()
		snap.Target = [2]float64{pos[0], pos[1]}
		snap.HasTarget = true
	}
}

func (s *Simulator) Run(ctx context.Context, policy dynamo.Policy, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := s.configure(cfg); err != nil {
		return nil, err
	}
	if policy == nil {
		policy = noPolicy{}
	}

	steps := stepCount(cfg)
	result := &dynamo.Result{
		Snapshots: make([]dynamo.Snapshot, 0, steps+1),
		Metrics:   make(map[string]float64),
		Errors:    make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	s.logger.Debug("run started",
		zap.Int("kilobots", len(s.kilobots)),
		zap.Int("steps", steps),
		zap.Float64("dt", cfg.Dt))

	result.Snapshots = append(result.Snapshots, s.Snapshot())

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		u := policy.Act(s.Observation(), s.time)
		s.Step(u, cfg.Dt)
		snap := s.Snapshot()

		if cfg.ValidateState && !snapshotValid(&snap) {
			err := &dynamo.SimulationError{Step: s.steps, Time: s.time, Wrapped: dynamo.ErrInvalidState}
			result.Errors = append(result.Errors, err)
			s.logger.Warn("run aborted", zap.Error(err))
			break
		}

		for _, m := range s.metrics {
			m.Observe(&snap)
		}
		for _, obs := range s.observers {
			obs.OnStep(&snap)
		}

		result.StepsTaken++
		result.Snapshots = append(result.Snapshots, snap)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	s.logger.Debug("run finished",
		zap.Int("steps_taken", result.StepsTaken),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}

// RunWithCallback runs like Run but keeps no history. Metrics and observers
// are not consulted.
func (s *Simulator) RunWithCallback(ctx context.Context, policy dynamo.Policy, cfg dynamo.Config, callback StepFunc) error {
	if err := s.configure(cfg); err != nil {
		return err
	}
	if policy == nil {
		policy = noPolicy{}
	}

	pool := newStatePool(len(s.kilobots))
	steps := stepCount(cfg)
	var snap dynamo.Snapshot

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		s.Step(policy.Act(s.Observation(), s.time), cfg.Dt)

		states := pool.Get()[:0]
		for _, k := range s.kilobots {
			if !k.Destroyed() {
				states = append(states, k.State())
			}
		}
		s.fill(&snap, states)

		if cfg.ValidateState && !snapshotValid(&snap) {
			return &dynamo.SimulationError{Step: s.steps, Time: s.time, Wrapped: dynamo.ErrInvalidState}
		}

		cont := callback(&snap)
		pool.Put(states[:cap(states)])
		if !cont {
			return nil
		}
	}

	return nil
}

func (s *Simulator) configure(cfg dynamo.Config) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	if cfg.Substeps > 0 {
		s.substeps = cfg.Substeps
	}
	if cfg.VelocityIterations > 0 {
		s.velocityIterations = cfg.VelocityIterations
	}
	if cfg.PositionIterations > 0 {
		s.positionIterations = cfg.PositionIterations
	}
	return nil
}

func validateConfig(cfg dynamo.Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", dynamo.ErrInvalidConfig, cfg.Duration)
	}
	if cfg.Substeps < 0 {
		return fmt.Errorf("%w: substeps must not be negative, got %d", dynamo.ErrInvalidConfig, cfg.Substeps)
	}
	return nil
}

func stepCount(cfg dynamo.Config) int {
	return int(math.Round(cfg.Duration / cfg.Dt))
}

func snapshotValid(snap *dynamo.Snapshot) bool {
	if !snap.Light.IsValid() {
		return false
	}
	for _, k := range snap.Kilobots {
		if !(dynamo.State{k.Pose.X, k.Pose.Y, k.Pose.Theta, k.Ambient}).IsValid() {
			return false
		}
	}
	return true
}

type noPolicy struct{}

func (noPolicy) Act(dynamo.State, float64) dynamo.Action { return nil }
