// Package engine plays decoded samples through the shared audio context.
package engine

import (
	"drumpad/audio"
	"drumpad/log"
)

// Provider hands out the current audio context without creating one.
// *audio.Lazy implements it.
type Provider interface {
	Current() *audio.Context
}

type Engine struct {
	contexts Provider
}

func New(p Provider) *Engine {
	return &Engine{contexts: p}
}

// Play starts one independent session of buf at gain. Later changes to
// the caller's gain do not reach a session that already started. With no
// context, a closed context or a nil buffer it does nothing.
func (e *Engine) Play(buf *audio.Buffer, gain float64) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("play panic: %v", r)
		}
	}()

	if e == nil || e.contexts == nil || buf == nil {
		return
	}
	ctx := e.contexts.Current()
	if ctx == nil || ctx.Closed() {
		return
	}

	src := ctx.NewSource(buf)
	g := ctx.NewGain(gain)
	src.Connect(g)
	g.Connect(ctx.Destination())
	src.Start()
}

// Active reports sessions in flight, or 0 without a context.
func (e *Engine) Active() int {
	if e == nil || e.contexts == nil {
		return 0
	}
	if ctx := e.contexts.Current(); ctx != nil {
		return ctx.Active()
	}
	return 0
}
