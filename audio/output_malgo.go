package audio

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

type malgoOutput struct {
	device *DeviceInfo

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	player *malgo.Device
}

func (m *malgoOutput) Name() string { return "malgo" }

func (m *malgoOutput) Start(r Renderer, cfg Config) error {
	cfg = cfg.withDefaults()
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 2
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = uint32(cfg.Latency.Milliseconds())

	if m.device != nil {
		devID, err := parseDeviceID(m.device.ID)
		if err != nil {
			freeMalgo(ctx)
			return err
		}
		deviceConfig.Playback.DeviceID = devID.Pointer()
	}

	var buf mixBuf
	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			buf.float32LE(r, out)
		},
	}

	dev, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		freeMalgo(ctx)
		return fmt.Errorf("malgo device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		freeMalgo(ctx)
		return fmt.Errorf("malgo start: %w", err)
	}

	m.ctx = ctx
	m.player = dev
	return nil
}

func (m *malgoOutput) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.player != nil {
		m.player.Uninit()
		m.player = nil
	}
	if m.ctx != nil {
		freeMalgo(m.ctx)
		m.ctx = nil
	}
}

func freeMalgo(ctx *malgo.AllocatedContext) {
	_ = ctx.Uninit()
	ctx.Free()
}

func malgoDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	defer freeMalgo(ctx)

	devices, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	var result []DeviceInfo
	for _, d := range devices {
		result = append(result, DeviceInfo{
			ID:   formatDeviceID(d.ID),
			Name: d.Name(),
		})
	}
	return result, nil
}

func formatDeviceID(id malgo.DeviceID) string {
	return hex.EncodeToString(id[:])
}

func parseDeviceID(s string) (malgo.DeviceID, error) {
	var id malgo.DeviceID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid device ID: %w", err)
	}
	if len(b) > len(id) {
		return id, fmt.Errorf("invalid device ID: %d bytes", len(b))
	}
	copy(id[:], b)
	return id, nil
}
