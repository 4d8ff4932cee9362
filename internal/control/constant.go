package control

import (
	"sync"

	"github.com/san-kum/kilosim/internal/dynamo"
)

// Constant replays the same action every tick. The live view changes it
// from the UI goroutine through Set.
type Constant struct {
	mu sync.RWMutex
	u  dynamo.Action
}

func NewConstant(u []float64) *Constant {
	return &Constant{u: dynamo.Action(u).Clone()}
}

// Set replaces the action. A nil u makes the policy act like None.
func (c *Constant) Set(u []float64) {
	c.mu.Lock()
	c.u = dynamo.Action(u).Clone()
	c.mu.Unlock()
}

func (c *Constant) Act(obs dynamo.State, t float64) dynamo.Action {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.u.Clone()
}
