package audio

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
)

const (
	DefaultSampleRate = 44100
	DefaultLatency    = 20 * time.Millisecond
)

var ErrClosed = errors.New("audio context closed")

type Config struct {
	SampleRate int
	Latency    time.Duration
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Latency <= 0 {
		c.Latency = DefaultLatency
	}
	return c
}

// Buffer is decoded PCM ready for playback in the format of the context
// that decoded it. It is never mutated after Decode returns.
type Buffer struct {
	ID  string
	pcm *beep.Buffer
}

func (b *Buffer) Frames() int { return b.pcm.Len() }

func (b *Buffer) Format() beep.Format { return b.pcm.Format() }

func (b *Buffer) Duration() time.Duration {
	return b.pcm.Format().SampleRate.D(b.pcm.Len())
}

// Session describes one playing source → gain → destination path.
type Session struct {
	ID      uint64
	Sample  string
	Gain    float64
	Started time.Time
}

// Context is the shared playback graph: it decodes samples, hands out
// nodes and mixes every started session into one output device.
type Context struct {
	format beep.Format
	out    Output
	dest   *Destination

	mu     sync.Mutex
	mixer  beep.Mixer
	closed bool

	nextID   atomic.Uint64
	sessMu   sync.Mutex
	sessions map[uint64]Session

	// OnSessionEnd, if set before the first Start, is called from the
	// render path when a session drains.
	OnSessionEnd func(Session)
}

// NewContext builds a context and starts out pulling from it. A nil out
// leaves rendering to the caller via Stream.
func NewContext(cfg Config, out Output) (*Context, error) {
	cfg = cfg.withDefaults()
	c := &Context{
		format: beep.Format{
			SampleRate:  beep.SampleRate(cfg.SampleRate),
			NumChannels: 2,
			Precision:   3,
		},
		sessions: make(map[uint64]Session),
	}
	c.dest = &Destination{ctx: c}
	if out != nil {
		if err := out.Start(c, cfg); err != nil {
			return nil, fmt.Errorf("starting %s output: %w", out.Name(), err)
		}
		c.out = out
	}
	return c, nil
}

func (c *Context) Format() beep.Format { return c.format }

func (c *Context) SampleRate() int { return int(c.format.SampleRate) }

// OutputName reports the backend in use, or "none".
func (c *Context) OutputName() string {
	if c.out == nil {
		return "none"
	}
	return c.out.Name()
}

func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Stream renders the current mix. It always fills samples, with silence
// when nothing is playing.
func (c *Context) Stream(samples [][2]float64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.mixer.Len() == 0 {
		clear(samples)
		return len(samples), true
	}
	n, ok := c.mixer.Stream(samples)
	if !ok {
		n = 0
	}
	clear(samples[n:])
	return len(samples), true
}

// Active returns the number of sessions still playing.
func (c *Context) Active() int {
	c.sessMu.Lock()
	defer c.sessMu.Unlock()
	return len(c.sessions)
}

// Sessions returns the sessions in flight, oldest first.
func (c *Context) Sessions() []Session {
	c.sessMu.Lock()
	out := make([]Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, s)
	}
	c.sessMu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Context) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	// The output may block until its render callback returns, so it is
	// closed without holding mu.
	if c.out != nil {
		c.out.Close()
	}

	c.mu.Lock()
	c.mixer.Clear()
	c.mu.Unlock()

	c.sessMu.Lock()
	clear(c.sessions)
	c.sessMu.Unlock()
}

func (c *Context) begin(s Session, stream beep.Streamer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.sessMu.Lock()
	c.sessions[s.ID] = s
	c.sessMu.Unlock()

	done := beep.Callback(func() { c.end(s.ID) })
	c.mixer.Add(beep.Seq(stream, done))
	return true
}

// end runs inside Stream with mu held.
func (c *Context) end(id uint64) {
	c.sessMu.Lock()
	s, ok := c.sessions[id]
	delete(c.sessions, id)
	c.sessMu.Unlock()
	if ok && c.OnSessionEnd != nil {
		c.OnSessionEnd(s)
	}
}

// Lazy creates a Context on first use and shares it until Close.
type Lazy struct {
	open func() (*Context, error)

	mu     sync.Mutex
	ctx    *Context
	closed bool
}

func NewLazy(open func() (*Context, error)) *Lazy {
	return &Lazy{open: open}
}

// Get returns the shared context, creating it if needed.
func (l *Lazy) Get() (*Context, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	if l.ctx == nil {
		ctx, err := l.open()
		if err != nil {
			return nil, err
		}
		l.ctx = ctx
	}
	return l.ctx, nil
}

// Current returns the context if one was created, without creating it.
func (l *Lazy) Current() *Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ctx
}

func (l *Lazy) Close() {
	l.mu.Lock()
	ctx := l.ctx
	l.ctx = nil
	l.closed = true
	l.mu.Unlock()
	if ctx != nil {
		ctx.Close()
	}
}
