package dynamo

import (
	"fmt"
	"math"
)

// Box declares per-component lower and upper bounds of an action or
// observation vector. Infinite bounds are allowed.
type Box struct {
	Low  []float64
	High []float64
}

func NewBox(low, high []float64) (Box, error) {
	if len(low) != len(high) {
		return Box{}, fmt.Errorf("%w: box low has %d components, high has %d", ErrDimensionMismatch, len(low), len(high))
	}
	for i := range low {
		if low[i] > high[i] {
			return Box{}, fmt.Errorf("%w: box component %d has low %g > high %g", ErrInvalidConfig, i, low[i], high[i])
		}
	}
	return Box{Low: append([]float64(nil), low...), High: append([]float64(nil), high...)}, nil
}

// Unbounded returns a box of dimension n with infinite bounds.
func Unbounded(n int) Box {
	return Uniform(n, math.Inf(-1), math.Inf(1))
}

// Uniform returns a box of dimension n where every component shares the same bounds.
func Uniform(n int, low, high float64) Box {
	b := Box{Low: make([]float64, n), High: make([]float64, n)}
	for i := 0; i < n; i++ {
		b.Low[i] = low
		b.High[i] = high
	}
	return b
}

func (b Box) Dim() int { return len(b.Low) }

// Clip returns a copy of v with every component clamped into the box.
// Components beyond the box dimension are dropped.
func (b Box) Clip(v []float64) []float64 {
	n := len(v)
	if n > b.Dim() {
		n = b.Dim()
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Min(math.Max(v[i], b.Low[i]), b.High[i])
	}
	return out
}

func (b Box) Contains(v []float64) bool {
	if len(v) != b.Dim() {
		return false
	}
	for i, x := range v {
		if x < b.Low[i] || x > b.High[i] {
			return false
		}
	}
	return true
}

// Concat joins boxes in order.
func Concat(boxes ...Box) Box {
	out := Box{}
	for _, b := range boxes {
		out.Low = append(out.Low, b.Low...)
		out.High = append(out.High, b.High...)
	}
	return out
}
