package audio

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process; it is created on first Start
// and suspended rather than destroyed on Close.
var (
	otoMu  sync.Mutex
	otoCtx *oto.Context
	otoCfg Config
)

type otoOutput struct {
	mu     sync.Mutex
	player *oto.Player
}

func (o *otoOutput) Name() string { return "oto" }

type otoReader struct {
	r   Renderer
	buf mixBuf
}

func (rd *otoReader) Read(p []byte) (int, error) {
	rd.buf.float32LE(rd.r, p)
	return len(p), nil
}

func (o *otoOutput) Start(r Renderer, cfg Config) error {
	cfg = cfg.withDefaults()
	ctx, err := otoContext(cfg)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.player = ctx.NewPlayer(&otoReader{r: r})
	o.player.SetBufferSize(int(cfg.Latency.Seconds()*float64(cfg.SampleRate)) * 8)
	o.player.Play()
	return nil
}

func otoContext(cfg Config) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()
	if otoCtx != nil {
		if otoCfg.SampleRate != cfg.SampleRate {
			return nil, fmt.Errorf("oto: already running at %d Hz", otoCfg.SampleRate)
		}
		if err := otoCtx.Resume(); err != nil {
			return nil, fmt.Errorf("oto resume: %w", err)
		}
		return otoCtx, nil
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   cfg.Latency,
	})
	if err != nil {
		return nil, fmt.Errorf("oto: %w", err)
	}
	<-ready
	otoCtx, otoCfg = ctx, cfg
	return ctx, nil
}

func (o *otoOutput) Close() {
	o.mu.Lock()
	p := o.player
	o.player = nil
	o.mu.Unlock()
	if p == nil {
		return
	}
	_ = p.Close()

	otoMu.Lock()
	defer otoMu.Unlock()
	if otoCtx != nil {
		_ = otoCtx.Suspend()
	}
}
