// Package dynamo provides the shared value types of the kilobot simulation.
//
// Every other package speaks in these types:
//
//   - [Pose]: position and orientation of a rigid body
//   - [Box]: bounded action/observation space declaration
//   - [Snapshot]: everything observable about one simulation tick
//   - [Policy]: source of light actions for the driver loop
//   - [Metric]: aggregates snapshots into a scalar
//   - [Config] and [Result]: simulation run input and output
//
// # Example
//
//	cfg := dynamo.DefaultConfig()
//	res, err := simulator.Run(ctx, control.NewNone(), cfg)
//	last := res.Snapshots[len(res.Snapshots)-1]
//
// # Thread Safety
//
// Values here are plain data. A Snapshot shares nothing with the simulator
// that produced it, so it can be handed to another goroutine.
package dynamo
