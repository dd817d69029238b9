package main

import "drumpad/pad"

// EventSink abstracts the display layer so both the Bubble Tea TUI
// and the Fyne GUI can show the same board.
type EventSink interface {
	// Attach hands over the board before it mounts. typing says whether
	// keys typed into the surface should be dispatched as triggers.
	Attach(b *pad.Board, typing bool)
	PadChanged(s pad.Snapshot)
	Status(text string)
}
