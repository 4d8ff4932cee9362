// Package physics wraps the Box2D rigid-body engine for the kilobot arena.
//
// The engine owns poses, collisions and velocity integration. Everything
// above it talks to bodies through the [Body] interface:
//
//   - [World]: zero-gravity, top-down Box2D world with optional arena walls
//   - [RigidBody]: Box2D body implementing [Body]
//   - [Shape]: descriptive fixture geometry (circle, quad, letter forms)
//   - [Object]: a passive body carrying a [Shape], e.g. a pushable box
//
// # Units
//
// All values are SI: meters, radians, seconds. Kilobots are 3.3cm wide, so
// arenas are typically below one meter across.
//
//	w := physics.NewWorld()
//	w.AddWalls(-0.5, -0.5, 0.5, 0.5)
//	box, _ := w.NewObject(physics.Quad(0.1, 0.1), dynamo.Pose{}, physics.DefaultMaterial())
//	w.Step(0.1, 8, 3)
package physics
