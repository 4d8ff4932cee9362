// Package analysis inspects recorded swarm runs.
//
// The package works on the snapshots a run produces:
//
//   - [Series]: a per-step swarm statistic (ambient, spread, light distance)
//   - [PowerSpectrum] and [DominantPeriod]: oscillation in a series
//   - [FirstCrossing]: when a series first passes a threshold
//   - [Path] and [PathToASCII]: one kilobot's trajectory
//
// # Oscillation
//
// Switching behaviors make the mean ambient reading oscillate:
//
//	ambient, _ := analysis.Series(snaps, analysis.Ambient)
//	if period, ok := analysis.DominantPeriod(ambient, dt); ok {
//	    fmt.Printf("swarm oscillates every %.1fs\n", period)
//	}
package analysis
