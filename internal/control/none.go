package control

import "github.com/san-kum/kilosim/internal/dynamo"

// None never acts; lights keep their state (momentum lights keep coasting).
type None struct{}

func NewNone() *None {
	return &None{}
}

func (n *None) Act(obs dynamo.State, t float64) dynamo.Action {
	return nil
}
