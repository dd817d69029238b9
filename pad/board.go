package pad

import (
	"context"
	"errors"
	"time"

	"drumpad/asset"
	"drumpad/audio"
	"drumpad/engine"
	"drumpad/kit"
	"drumpad/log"
	"drumpad/trigger"
)

var errNoLoader = errors.New("no asset loader configured")

type Options struct {
	Fetcher      asset.Fetcher
	FetchTimeout time.Duration
	// Open creates the shared audio context on first decode. Nil means
	// a context with no output device.
	Open     func() (*audio.Context, error)
	Surface  *trigger.Surface
	Listener Listener
}

// Board owns the pads of one kit and the audio context they share.
type Board struct {
	pads    []*Pad
	byID    map[string]*Pad
	lazy    *audio.Lazy
	engine  *engine.Engine
	surface *trigger.Surface
}

func NewBoard(descs []kit.Descriptor, opts Options) *Board {
	surface := opts.Surface
	if surface == nil {
		surface = trigger.NewSurface()
	}
	open := opts.Open
	if open == nil {
		open = func() (*audio.Context, error) {
			return audio.NewContext(audio.Config{}, nil)
		}
	}
	lazy := audio.NewLazy(open)
	eng := engine.New(lazy)
	decoder := func() (asset.Decoder, error) {
		ctx, err := lazy.Get()
		if err != nil {
			return nil, err
		}
		return ctx, nil
	}
	deps := Deps{
		Player:   eng,
		Surface:  surface,
		Listener: opts.Listener,
	}
	if opts.Fetcher != nil {
		deps.Loader = asset.NewLoader(opts.Fetcher, decoder, opts.FetchTimeout)
	}

	b := &Board{
		byID:    make(map[string]*Pad, len(descs)),
		lazy:    lazy,
		engine:  eng,
		surface: surface,
	}
	for _, d := range descs {
		p := New(d, deps)
		b.pads = append(b.pads, p)
		b.byID[d.ID] = p
	}
	return b
}

// Mount starts every pad loading. Loads run concurrently and finish in
// no particular order.
func (b *Board) Mount() {
	for _, p := range b.pads {
		p.Mount()
	}
}

// Wait blocks until every mounted pad has finished loading or ctx ends.
func (b *Board) Wait(ctx context.Context) error {
	for _, p := range b.pads {
		if err := p.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (b *Board) Pads() []*Pad {
	return append([]*Pad(nil), b.pads...)
}

func (b *Board) Pad(id string) *Pad {
	return b.byID[id]
}

func (b *Board) Surface() *trigger.Surface { return b.surface }

// Context returns the audio context if a load has created it.
func (b *Board) Context() *audio.Context { return b.lazy.Current() }

func (b *Board) Active() int { return b.engine.Active() }

func (b *Board) Hits() int {
	n := 0
	for _, p := range b.pads {
		n += p.Hits()
	}
	return n
}

// Close unmounts every pad and releases the audio context.
func (b *Board) Close() {
	for _, p := range b.pads {
		p.Unmount()
	}
	b.lazy.Close()
	log.SessionEnd(b.Hits())
}
