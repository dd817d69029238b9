//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	// Set up crash logging early, before any CGO code runs
	initCrashLog()

	// Fyne needs the main thread for itself; run() goes to a goroutine.
	if hasFlag("gui") {
		initGUI()
		return
	}
	// Global hotkeys on macOS are delivered on the main thread.
	mainthread.Init(run)
}
