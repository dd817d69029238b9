package audio

import (
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

type pulseOutput struct {
	device *DeviceInfo

	mu     sync.Mutex
	client *pulse.Client
	stream *pulse.PlaybackStream
}

func (p *pulseOutput) Name() string { return "pulse" }

func (p *pulseOutput) Start(r Renderer, cfg Config) error {
	cfg = cfg.withDefaults()
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := pulse.NewClient(pulse.ClientApplicationName("drumpad"))
	if err != nil {
		return fmt.Errorf("pulse: %w", err)
	}

	var buf mixBuf
	reader := pulse.Float32Reader(func(out []float32) (int, error) {
		buf.float32s(r, out)
		return len(out), nil
	})

	opts := []pulse.PlaybackOption{
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(cfg.SampleRate),
		pulse.PlaybackLatency(cfg.Latency.Seconds()),
		pulse.PlaybackRawOption(func(s *proto.CreatePlaybackStream) {
			s.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	}
	if p.device != nil {
		sink, err := c.SinkByID(p.device.ID)
		if err == nil && sink != nil {
			opts = append(opts, pulse.PlaybackSink(sink))
		}
	}

	stream, err := c.NewPlayback(reader, opts...)
	if err != nil {
		c.Close()
		return fmt.Errorf("pulse playback: %w", err)
	}
	stream.Start()

	p.client = c
	p.stream = stream
	return nil
}

func (p *pulseOutput) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream != nil {
		p.stream.Stop()
		p.stream.Close()
		p.stream = nil
	}
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}

func pulseDevices() ([]DeviceInfo, error) {
	c, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	defer c.Close()

	sinks, err := c.ListSinks()
	if err != nil {
		return nil, fmt.Errorf("pulse list sinks: %w", err)
	}
	var devices []DeviceInfo
	for _, s := range sinks {
		devices = append(devices, DeviceInfo{
			ID:   s.ID(),
			Name: s.Name(),
		})
	}
	return devices, nil
}
