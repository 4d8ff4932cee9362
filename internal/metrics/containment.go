package metrics

import (
	"github.com/san-kum/kilosim/internal/dynamo"
)

// Containment is the fraction of ticks in which every kilobot stayed inside
// the arena box.
type Containment struct {
	name       string
	arena      dynamo.Box
	violations int
	samples    int
}

func NewContainment(arena dynamo.Box) *Containment {
	return &Containment{
		name:  "containment",
		arena: arena,
	}
}

func (c *Containment) Name() string {
	return c.name
}

func (c *Containment) Observe(s *dynamo.Snapshot) {
	c.samples++
	for _, k := range s.Kilobots {
		if !c.arena.Contains([]float64{k.Pose.X, k.Pose.Y}) {
			c.violations++
			break
		}
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.violations = 0
	c.samples = 0
}
