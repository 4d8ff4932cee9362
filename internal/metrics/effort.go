package metrics

import (
	"math"

	"github.com/san-kum/kilosim/internal/dynamo"
)

// ActionEffort is the mean L1 norm of the light action per tick. Ticks
// without an action count as zero effort.
type ActionEffort struct {
	name    string
	sum     float64
	samples int
}

func NewActionEffort() *ActionEffort {
	return &ActionEffort{
		name: "action_effort",
	}
}

func (c *ActionEffort) Name() string {
	return c.name
}

func (c *ActionEffort) Observe(s *dynamo.Snapshot) {
	for _, val := range s.Action {
		c.sum += math.Abs(val)
	}
	c.samples++
}

func (c *ActionEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ActionEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
