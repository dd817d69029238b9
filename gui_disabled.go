//go:build !gui

package main

func initGUI() {
	panic("drumpad: built without GUI support (rebuild with -tags gui)")
}
