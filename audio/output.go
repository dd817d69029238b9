package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Renderer is what an Output pulls mixed stereo frames from.
type Renderer interface {
	Stream(samples [][2]float64) (int, bool)
}

// Output drives a playback device from a Renderer.
type Output interface {
	Name() string
	Start(r Renderer, cfg Config) error
	Close()
}

// DeviceInfo identifies a playback device of one backend.
type DeviceInfo struct {
	ID   string // opaque backend-specific identifier
	Name string
}

// Outputs lists the backend names accepted by OpenOutput.
func Outputs() []string {
	return []string{"pulse", "malgo", "oto", "null"}
}

func DefaultOutput() string { return defaultOutput }

// OpenOutput returns the named backend bound to device (empty for the
// system default). An empty name picks the platform default.
func OpenOutput(name string, device *DeviceInfo) (Output, error) {
	if name == "" {
		name = defaultOutput
	}
	switch strings.ToLower(name) {
	case "pulse":
		return &pulseOutput{device: device}, nil
	case "malgo":
		return &malgoOutput{device: device}, nil
	case "oto":
		if device != nil {
			return nil, fmt.Errorf("oto output does not support device selection")
		}
		return &otoOutput{}, nil
	case "null":
		return NewNullOutput(true), nil
	}
	return nil, fmt.Errorf("unknown output %q (use %s)", name, strings.Join(Outputs(), ", "))
}

// Devices enumerates playback devices for the named backend.
func Devices(name string) ([]DeviceInfo, error) {
	if name == "" {
		name = defaultOutput
	}
	switch strings.ToLower(name) {
	case "pulse":
		return pulseDevices()
	case "malgo":
		return malgoDevices()
	}
	return nil, fmt.Errorf("output %q has no device list", name)
}

// FindDevice returns the device of backend name whose Name matches.
func FindDevice(name, device string) (*DeviceInfo, error) {
	devices, err := Devices(name)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].Name == device {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("no %s device named %q", name, device)
}

// mixBuf renders into a reusable frame slice.
type mixBuf struct {
	frames [][2]float64
}

func (m *mixBuf) render(r Renderer, n int) [][2]float64 {
	if cap(m.frames) < n {
		m.frames = make([][2]float64, n)
	}
	frames := m.frames[:n]
	got, ok := r.Stream(frames)
	if !ok {
		got = 0
	}
	clear(frames[got:])
	return frames
}

// float32s fills dst with interleaved stereo samples.
func (m *mixBuf) float32s(r Renderer, dst []float32) {
	frames := m.render(r, len(dst)/2)
	for i, f := range frames {
		dst[i*2] = clampSample(f[0])
		dst[i*2+1] = clampSample(f[1])
	}
}

// float32LE fills dst with interleaved little-endian float32 stereo.
func (m *mixBuf) float32LE(r Renderer, dst []byte) {
	frames := m.render(r, len(dst)/8)
	for i, f := range frames {
		binary.LittleEndian.PutUint32(dst[i*8:], math.Float32bits(clampSample(f[0])))
		binary.LittleEndian.PutUint32(dst[i*8+4:], math.Float32bits(clampSample(f[1])))
	}
	clear(dst[len(frames)*8:])
}

func clampSample(v float64) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return float32(v)
}
