// Package viz draws kilobot swarms in the terminal.
//
// Frames are rendered onto a [Canvas] of braille cells: the arena walls,
// obstacle outlines, each kilobot as a circle with a heading tick tinted by
// its LED color, and a cross at the light position when the light has one.
// [Model] is a Bubble Tea program that steps a simulator live next to a
// panel with a mean-ambient chart and swarm statistics.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Rebuild and restart
//	+/-   - Change steps per frame
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
//	[]    - Time travel (rewind/forward)
package viz
