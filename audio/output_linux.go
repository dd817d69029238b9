//go:build linux

package audio

const defaultOutput = "pulse"
