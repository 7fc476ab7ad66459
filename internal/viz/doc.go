// Package viz provides the terminal visualization for collisional
// runs on the ellipse.
//
// The package implements a live TUI using the Bubble Tea framework:
//
//   - [Model]: live view stepping the system at the frame rate
//   - [Canvas]: Braille-based pixel canvas for the embedded orbit
//   - [ConservationChart]: asciigraph rendering of stored drift series
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset to the initial state
//	+/-   - Speed up / slow down (sub-steps per frame)
//	Q     - Quit
package viz
