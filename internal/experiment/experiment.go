// Package experiment turns a config.Config into a ready simulator: world,
// walls, light, obstacles, a placed swarm, a light policy and metrics.
package experiment

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/kilosim/internal/config"
	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/kilobot"
	"github.com/san-kum/kilosim/internal/physics"
	"github.com/san-kum/kilosim/internal/sim"
	"go.uber.org/zap"
)

const maxPlacementTries = 1000

type Option func(*Experiment)

func WithLogger(l *zap.Logger) Option {
	return func(e *Experiment) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) {
		if r != nil {
			e.registry = r
		}
	}
}

type Experiment struct {
	cfg        *config.Config
	registry   *Registry
	logger     *zap.Logger
	simulator  *sim.Simulator
	policy     dynamo.Policy
	randSource *rand.Rand
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{
		cfg:        cfg,
		registry:   NewRegistry(),
		logger:     zap.NewNop(),
		randSource: rand.New(rand.NewSource(cfg.Seed)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Setup builds the world and everything in it. It can be called again to
// start over from the same seed.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	e.randSource = rand.New(rand.NewSource(e.cfg.Seed))
	arena := e.cfg.ArenaBox()

	world := physics.NewWorld()
	if e.cfg.Arena.Walls {
		if err := world.AddWalls(arena.Low[0], arena.Low[1], arena.High[0], arena.High[1]); err != nil {
			return fmt.Errorf("arena walls: %w", err)
		}
	}

	l, err := e.registry.BuildLight(e.cfg.Light, arena)
	if err != nil {
		return fmt.Errorf("light: %w", err)
	}

	s := sim.New(world, l, sim.WithLogger(e.logger))

	for i, oc := range e.cfg.Objects {
		obj, err := buildObject(world, oc)
		if err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
		s.AddObject(obj)
	}

	poses, err := e.placeKilobots()
	if err != nil {
		return err
	}
	for i, p := range poses {
		b, err := e.registry.GetBehavior(e.cfg.Kilobots.Behavior, e.cfg.Kilobots.Params)
		if err != nil {
			return fmt.Errorf("kilobot %d: %w", i, err)
		}
		if _, err := s.NewKilobot(p, b); err != nil {
			return fmt.Errorf("kilobot %d: %w", i, err)
		}
	}

	policy, err := e.registry.GetPolicy(e.cfg.Policy, l, e.cfg.Seed)
	if err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	ms, err := e.registry.Metrics(e.cfg.Metrics, arena)
	if err != nil {
		return err
	}
	for _, m := range ms {
		s.AddMetric(m)
	}

	e.simulator = s
	e.policy = policy

	e.logger.Debug("experiment ready",
		zap.String("name", e.cfg.Name),
		zap.String("light", e.cfg.Light.Type),
		zap.String("behavior", e.cfg.Kilobots.Behavior),
		zap.String("policy", e.cfg.Policy.Type),
		zap.Int("kilobots", len(poses)),
		zap.Int("objects", len(e.cfg.Objects)))
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("%w: experiment not set up", dynamo.ErrInvalidConfig)
	}
	return e.simulator.Run(ctx, e.policy, e.cfg.SimConfig())
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Policy() dynamo.Policy {
	return e.policy
}

func (e *Experiment) Config() *config.Config {
	return e.cfg
}

func buildObject(world *physics.World, oc config.ObjectConfig) (*physics.Object, error) {
	kind, err := physics.ParseShapeKind(oc.Shape)
	if err != nil {
		return nil, err
	}
	shape, err := physics.NewShape(kind, oc.Width, oc.Height, oc.Radius)
	if err != nil {
		return nil, err
	}
	return world.NewObject(shape, dynamo.Pose{X: oc.X, Y: oc.Y, Theta: oc.Theta}, physics.DefaultMaterial())
}

func (e *Experiment) placeKilobots() ([]dynamo.Pose, error) {
	kc := e.cfg.Kilobots
	n := kc.Count
	var cx, cy float64
	if len(kc.Center) == 2 {
		cx, cy = kc.Center[0], kc.Center[1]
	}
	spacing := kc.Spacing
	if spacing <= 0 {
		spacing = config.DefaultSpacing
	}
	heading := func() float64 { return (e.randSource.Float64()*2 - 1) * math.Pi }

	poses := make([]dynamo.Pose, 0, n)
	switch kc.Placement {
	case "", "grid":
		cols := int(math.Ceil(math.Sqrt(float64(n))))
		rows := 0
		if cols > 0 {
			rows = (n + cols - 1) / cols
		}
		x0 := cx - float64(cols-1)*spacing/2
		y0 := cy - float64(rows-1)*spacing/2
		for i := 0; i < n; i++ {
			poses = append(poses, dynamo.Pose{
				X:     x0 + float64(i%cols)*spacing,
				Y:     y0 + float64(i/cols)*spacing,
				Theta: heading(),
			})
		}

	case "circle":
		for i := 0; i < n; i++ {
			a := 2 * math.Pi * float64(i) / float64(n)
			poses = append(poses, dynamo.Pose{X: cx + spacing*math.Cos(a), Y: cy + spacing*math.Sin(a), Theta: heading()})
		}

	case "random":
		// uniform in a disc of radius spacing, without overlaps
		minDist := 2 * kilobot.DefaultGeometry().Radius
		for i := 0; i < n; i++ {
			placed := false
			for try := 0; try < maxPlacementTries && !placed; try++ {
				r := spacing * math.Sqrt(e.randSource.Float64())
				a := 2 * math.Pi * e.randSource.Float64()
				p := dynamo.Pose{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
				if overlaps(poses, p, minDist) {
					continue
				}
				p.Theta = heading()
				poses = append(poses, p)
				placed = true
			}
			if !placed {
				return nil, fmt.Errorf("%w: no room for kilobot %d within radius %g", dynamo.ErrInvalidConfig, i, spacing)
			}
		}

	case "poses":
		for _, p := range kc.Poses {
			poses = append(poses, dynamo.Pose{X: p.X, Y: p.Y, Theta: p.Theta})
		}

	default:
		return nil, fmt.Errorf("%w: placement %q", dynamo.ErrUnknownVariant, kc.Placement)
	}

	return poses, nil
}

func overlaps(poses []dynamo.Pose, p dynamo.Pose, minDist float64) bool {
	for _, q := range poses {
		if math.Hypot(p.X-q.X, p.Y-q.Y) < minDist {
			return true
		}
	}
	return false
}
