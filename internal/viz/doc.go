// Package viz is the terminal presenter for a running simulation.
//
// The live [Model] is a Bubble Tea program that polls a
// snapshot.Publisher at a fixed frame rate and draws bodies on a
// Braille [Canvas]. It never touches the engine; pause and quit go
// through a [Controller], normally a *sim.Runner.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	+/-   - Zoom
//	F     - Toggle follow camera
//	P     - Toggle trails
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
//
// [PickPreset] is a small menu for choosing and tuning a preset before a
// live run starts.
package viz
