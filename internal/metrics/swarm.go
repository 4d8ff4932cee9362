package metrics

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/dynamo"
)

func position(k dynamo.KilobotState) mgl64.Vec2 {
	return mgl64.Vec2{k.Pose.X, k.Pose.Y}
}

// mean averages a per-tick swarm statistic over the run.
type mean struct {
	sum     float64
	samples int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.samples++
}

func (m *mean) value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *mean) reset() { *m = mean{} }

// MeanAmbient is the swarm's average sensor reading over the run.
type MeanAmbient struct{ mean }

func NewMeanAmbient() *MeanAmbient { return &MeanAmbient{} }

func (m *MeanAmbient) Name() string   { return "mean_ambient" }
func (m *MeanAmbient) Value() float64 { return m.value() }
func (m *MeanAmbient) Reset()         { m.reset() }

func (m *MeanAmbient) Observe(s *dynamo.Snapshot) {
	if len(s.Kilobots) == 0 {
		return
	}
	m.add(SwarmAmbient(s))
}

// SwarmAmbient is the mean ambient reading of one snapshot.
func SwarmAmbient(s *dynamo.Snapshot) float64 {
	if len(s.Kilobots) == 0 {
		return 0
	}
	sum := 0.0
	for _, k := range s.Kilobots {
		sum += k.Ambient
	}
	return sum / float64(len(s.Kilobots))
}

// MeanLightDistance averages the distance from every kilobot to the light
// source. Ticks where the light has no position are skipped.
type MeanLightDistance struct{ mean }

func NewMeanLightDistance() *MeanLightDistance { return &MeanLightDistance{} }

func (m *MeanLightDistance) Name() string   { return "mean_light_distance" }
func (m *MeanLightDistance) Value() float64 { return m.value() }
func (m *MeanLightDistance) Reset()         { m.reset() }

func (m *MeanLightDistance) Observe(s *dynamo.Snapshot) {
	if !s.HasTarget || len(s.Kilobots) == 0 {
		return
	}
	m.add(SwarmLightDistance(s))
}

// SwarmLightDistance is the mean kilobot distance to the light in one
// snapshot, or 0 when the light has no position.
func SwarmLightDistance(s *dynamo.Snapshot) float64 {
	if !s.HasTarget || len(s.Kilobots) == 0 {
		return 0
	}
	target := mgl64.Vec2{s.Target[0], s.Target[1]}
	sum := 0.0
	for _, k := range s.Kilobots {
		sum += position(k).Sub(target).Len()
	}
	return sum / float64(len(s.Kilobots))
}

// Spread is the mean distance of the kilobots to their centroid, averaged
// over the run.
type Spread struct{ mean }

func NewSpread() *Spread { return &Spread{} }

func (m *Spread) Name() string   { return "spread" }
func (m *Spread) Value() float64 { return m.value() }
func (m *Spread) Reset()         { m.reset() }

func (m *Spread) Observe(s *dynamo.Snapshot) {
	if len(s.Kilobots) == 0 {
		return
	}
	m.add(SwarmSpread(s))
}

func SwarmSpread(s *dynamo.Snapshot) float64 {
	n := float64(len(s.Kilobots))
	if n == 0 {
		return 0
	}
	var c mgl64.Vec2
	for _, k := range s.Kilobots {
		c = c.Add(position(k))
	}
	c = c.Mul(1 / n)

	sum := 0.0
	for _, k := range s.Kilobots {
		sum += position(k).Sub(c).Len()
	}
	return sum / n
}

// PathLength is the total distance travelled by the swarm. Kilobots are
// matched by index between consecutive snapshots.
type PathLength struct {
	last  []mgl64.Vec2
	total float64
}

func NewPathLength() *PathLength { return &PathLength{} }

func (m *PathLength) Name() string   { return "path_length" }
func (m *PathLength) Value() float64 { return m.total }

func (m *PathLength) Reset() {
	m.last = nil
	m.total = 0
}

func (m *PathLength) Observe(s *dynamo.Snapshot) {
	if len(m.last) == len(s.Kilobots) {
		for i, k := range s.Kilobots {
			m.total += position(k).Sub(m.last[i]).Len()
		}
	}
	m.last = m.last[:0]
	for _, k := range s.Kilobots {
		m.last = append(m.last, position(k))
	}
}

var constructors = map[string]func() dynamo.Metric{
	"action_effort":       func() dynamo.Metric { return NewActionEffort() },
	"mean_ambient":        func() dynamo.Metric { return NewMeanAmbient() },
	"mean_light_distance": func() dynamo.Metric { return NewMeanLightDistance() },
	"spread":              func() dynamo.Metric { return NewSpread() },
	"path_length":         func() dynamo.Metric { return NewPathLength() },
}

// ByName builds a fresh metric. Containment needs the arena and is built
// with NewContainment instead.
func ByName(name string) (dynamo.Metric, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: metric %q (available: %v)", dynamo.ErrUnknownVariant, name, Names())
	}
	return ctor(), nil
}

func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Default is the metric set recorded for every run.
func Default() []dynamo.Metric {
	out := make([]dynamo.Metric, 0, len(constructors))
	for _, n := range Names() {
		m, _ := ByName(n)
		out = append(out, m)
	}
	return out
}
