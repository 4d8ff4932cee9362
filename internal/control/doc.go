// Package control provides light policies: functions from the observed light
// state to the next light action.
//
// Policies implement [dynamo.Policy]:
//
//   - [None]: the absent action, the light is left alone
//   - [Constant]: a fixed action vector, settable at runtime
//   - [Random]: seeded uniform samples from the action box
//   - [PID]: per-axis PID driving a point light towards a target
//   - [LQR]: linear state feedback, e.g. steering a momentum light
//
// # Usage
//
//	pid := control.NewPID(2.0, 0.0, 0.1, []float64{0.2, -0.1})
//	res, err := simulator.Run(ctx, pid, cfg)
//
// Policies implementing [dynamo.Configurable] support live tuning.
package control
