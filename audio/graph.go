package audio

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2/effects"
)

// Source plays one Buffer once. It is single use: Start after the first
// call does nothing.
type Source struct {
	ctx     *Context
	buf     *Buffer
	next    *Gain
	started atomic.Bool
}

// Gain scales its input by a fixed linear level.
type Gain struct {
	level float64
	dest  *Destination
}

// Destination is the context's output sink.
type Destination struct {
	ctx *Context
}

func (c *Context) NewSource(buf *Buffer) *Source {
	return &Source{ctx: c, buf: buf}
}

// NewGain returns a gain stage at level, clamped to [0, 1].
func (c *Context) NewGain(level float64) *Gain {
	return &Gain{level: clampGain(level)}
}

func (c *Context) Destination() *Destination { return c.dest }

func (s *Source) Connect(g *Gain) { s.next = g }

func (g *Gain) Connect(d *Destination) { g.dest = d }

func (g *Gain) Level() float64 { return g.level }

// Start schedules the source immediately. An unconnected source, an empty
// buffer or a closed context makes it a no-op.
func (s *Source) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	if s.buf == nil || s.buf.pcm == nil || s.buf.Frames() == 0 {
		return
	}
	g := s.next
	if g == nil || g.dest == nil || g.dest.ctx != s.ctx {
		return
	}

	stream := &effects.Gain{
		Streamer: s.buf.pcm.Streamer(0, s.buf.Frames()),
		Gain:     g.level - 1,
	}
	sess := Session{
		ID:      s.ctx.nextID.Add(1),
		Sample:  s.buf.ID,
		Gain:    g.level,
		Started: time.Now(),
	}
	s.ctx.begin(sess, stream)
}

func clampGain(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
