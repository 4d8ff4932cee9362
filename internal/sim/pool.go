package sim

import (
	"sync"

	"github.com/san-kum/kilosim/internal/dynamo"
)

// statePool recycles the per-tick kilobot slices of transient snapshots.
type statePool struct {
	pool sync.Pool
	size int
}

func newStatePool(size int) *statePool {
	return &statePool{
		size: size,
		pool: sync.Pool{
			New: func() interface{} {
				s := make([]dynamo.KilobotState, size)
				return &s
			},
		},
	}
}

func (p *statePool) Get() []dynamo.KilobotState {
	return *p.pool.Get().(*[]dynamo.KilobotState)
}

func (p *statePool) Put(s []dynamo.KilobotState) {
	if len(s) == p.size {
		for i := range s {
			s[i] = dynamo.KilobotState{}
		}
		p.pool.Put(&s)
	}
}
