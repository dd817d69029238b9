// Package pad holds the per-pad state machine: it loads one sample,
// keeps its gain, and plays it when its key or pointer fires.
package pad

import (
	"context"
	"math"
	"sync"

	"drumpad/audio"
	"drumpad/kit"
	"drumpad/log"
	"drumpad/trigger"
)

type State int

const (
	Idle State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

const DefaultGain = 1.0

// Loader fetches and decodes one sample. *asset.Loader implements it.
type Loader interface {
	Load(ctx context.Context, desc kit.Descriptor) (*audio.Buffer, error)
}

// Player starts a playback session. *engine.Engine implements it.
type Player interface {
	Play(buf *audio.Buffer, gain float64)
	Active() int
}

// Listener receives a snapshot after every state or gain change. It is
// called without the pad lock held, possibly from a load goroutine, but
// never concurrently for one pad: snapshots of a pad arrive in order.
type Listener func(Snapshot)

type Deps struct {
	Loader   Loader
	Player   Player
	Surface  *trigger.Surface
	Listener Listener
}

// Snapshot is what a surface needs to draw a pad.
type Snapshot struct {
	ID      string
	Key     string
	State   State
	Err     string
	Gain    float64
	Enabled bool
}

type Pad struct {
	desc   kit.Descriptor
	deps   Deps
	binder *trigger.Binder

	// notifyMu serializes taking and delivering snapshots.
	notifyMu sync.Mutex

	mu       sync.Mutex
	state    State
	err      string
	gain     float64
	buf      *audio.Buffer
	gen      uint64
	disposed bool
	cancel   context.CancelFunc
	loadDone chan struct{}
	hits     int
}

func New(desc kit.Descriptor, deps Deps) *Pad {
	p := &Pad{
		desc: desc,
		deps: deps,
		gain: DefaultGain,
	}
	if deps.Surface != nil {
		p.binder = trigger.NewBinder(deps.Surface)
	}
	return p
}

func (p *Pad) ID() string { return p.desc.ID }

func (p *Pad) Key() string { return p.desc.Key }

// Mount binds the pad's key and starts loading its sample. Only the
// first call on a pad does anything; a pad loads at most once.
func (p *Pad) Mount() {
	p.mu.Lock()
	if p.disposed || p.state != Idle {
		p.mu.Unlock()
		return
	}
	p.state = Loading
	p.gen++
	gen := p.gen
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.loadDone = make(chan struct{})
	done := p.loadDone
	p.mu.Unlock()

	if p.binder != nil {
		p.binder.Bind(p.desc.Key, p)
	}
	p.publish()

	go p.load(ctx, gen, done)
}

func (p *Pad) load(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	var (
		buf *audio.Buffer
		err error
	)
	if p.deps.Loader == nil {
		err = errNoLoader
	} else {
		buf, err = p.deps.Loader.Load(ctx, p.desc)
	}

	p.mu.Lock()
	if p.disposed || p.gen != gen {
		p.mu.Unlock()
		return
	}
	p.cancel = nil
	if err != nil {
		p.state = Failed
		p.err = err.Error()
	} else {
		p.state = Ready
		p.buf = buf
	}
	p.mu.Unlock()

	if err != nil {
		log.SampleFailed(p.desc.ID, err)
	}
	p.publish()
}

// Wait blocks until the pad's load goroutine has finished or ctx ends.
// A pad that was never mounted has nothing to wait for.
func (p *Pad) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.loadDone
	p.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unmount releases the key binding and the buffer. A load still in
// flight is abandoned and its result dropped. The pad cannot be mounted
// again.
func (p *Pad) Unmount() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	p.gen++
	p.buf = nil
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if p.binder != nil {
		p.binder.Unbind()
	}
}

// SetGain clamps g to [0, 1]. It never changes the load state and does
// not affect sessions already playing.
func (p *Pad) SetGain(g float64) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.gain = clamp(g)
	p.mu.Unlock()
	p.publish()
}

func (p *Pad) Gain() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gain
}

// Trigger plays the sample at the current gain. It does nothing unless
// the pad is Ready.
func (p *Pad) Trigger(source string) {
	p.mu.Lock()
	if p.disposed || p.state != Ready || p.deps.Player == nil {
		p.mu.Unlock()
		return
	}
	buf, gain := p.buf, p.gain
	p.hits++
	p.mu.Unlock()

	p.deps.Player.Play(buf, gain)
	log.Triggered(p.desc.ID, source, gain, p.deps.Player.Active())
}

// Press is the pointer path. It fires through the pad's key binding, so
// a pad that is not mounted ignores it.
func (p *Pad) Press() {
	if p.binder != nil {
		p.binder.Press()
		return
	}
	p.Trigger(trigger.SourcePointer)
}

func (p *Pad) Hits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits
}

func (p *Pad) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Pad) snapshotLocked() Snapshot {
	return Snapshot{
		ID:      p.desc.ID,
		Key:     p.desc.Key,
		State:   p.state,
		Err:     p.err,
		Gain:    p.gain,
		Enabled: p.state == Ready && !p.disposed,
	}
}

// publish hands the listener the pad's state as of now. Taking the
// snapshot under notifyMu means a slow delivery cannot overtake a newer
// one.
func (p *Pad) publish() {
	if p.deps.Listener == nil {
		return
	}
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	p.mu.Lock()
	snap, disposed := p.snapshotLocked(), p.disposed
	p.mu.Unlock()
	if disposed {
		return
	}
	p.deps.Listener(snap)
}

func clamp(g float64) float64 {
	switch {
	case math.IsNaN(g), g < 0:
		return 0
	case g > 1:
		return 1
	}
	return g
}
