package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/metrics"
)

const (
	Ambient       = "ambient"
	Spread        = "spread"
	LightDistance = "light_distance"
)

var seriesFuncs = map[string]func(*dynamo.Snapshot) float64{
	Ambient:       metrics.SwarmAmbient,
	Spread:        metrics.SwarmSpread,
	LightDistance: metrics.SwarmLightDistance,
}

func SeriesNames() []string {
	return []string{Ambient, LightDistance, Spread}
}

// Series evaluates one swarm statistic per snapshot. Light distance is NaN
// on steps without a light target.
func Series(snaps []dynamo.Snapshot, name string) ([]float64, error) {
	f, ok := seriesFuncs[name]
	if !ok {
		return nil, fmt.Errorf("%w: series %q (available: %v)", dynamo.ErrUnknownVariant, name, SeriesNames())
	}
	out := make([]float64, len(snaps))
	for i := range snaps {
		if name == LightDistance && !snaps[i].HasTarget {
			out[i] = math.NaN()
			continue
		}
		out[i] = f(&snaps[i])
	}
	return out, nil
}

// Finite drops NaN and Inf samples.
func Finite(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// FirstCrossing returns the fractional index where data first passes
// threshold, upward when rising is set and downward otherwise.
func FirstCrossing(data []float64, threshold float64, rising bool) (float64, bool) {
	for i := 1; i < len(data); i++ {
		prev, curr := data[i-1], data[i]
		if math.IsNaN(prev) || math.IsNaN(curr) {
			continue
		}
		crossed := prev < threshold && curr >= threshold
		if !rising {
			crossed = prev > threshold && curr <= threshold
		}
		if !crossed {
			continue
		}
		frac := (threshold - prev) / (curr - prev)
		if math.IsNaN(frac) || math.IsInf(frac, 0) {
			frac = 1
		}
		return float64(i-1) + frac, true
	}
	return 0, false
}
