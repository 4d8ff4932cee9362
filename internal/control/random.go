package control

import (
	"math"
	"math/rand"

	"github.com/san-kum/kilosim/internal/dynamo"
)

// Random samples every component uniformly from the action box. Components
// with an infinite bound are sampled from [-1, 1] intersected with the box.
type Random struct {
	space dynamo.Box
	seed  int64
	rng   *rand.Rand
}

func NewRandom(space dynamo.Box, seed int64) *Random {
	return &Random{space: space, seed: seed, rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Act(obs dynamo.State, t float64) dynamo.Action {
	u := make(dynamo.Action, r.space.Dim())
	for i := range u {
		lo, hi := r.space.Low[i], r.space.High[i]
		if math.IsInf(lo, 0) {
			lo = math.Min(-1, hi)
		}
		if math.IsInf(hi, 0) {
			hi = math.Max(1, lo)
		}
		u[i] = lo + r.rng.Float64()*(hi-lo)
	}
	return u
}

// Reset restarts the sequence from the seed.
func (r *Random) Reset() {
	r.rng = rand.New(rand.NewSource(r.seed))
}
