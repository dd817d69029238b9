package audio

import (
	"sync"
	"time"
)

const nullFrames = 512

// NullOutput pulls from the renderer and discards the result. In realtime
// mode it paces itself like a device so sessions drain on schedule.
type NullOutput struct {
	realtime bool

	mu       sync.Mutex
	stopCh   chan struct{}
	feedDone chan struct{}
	rendered uint64

	closeOnce sync.Once
}

func NewNullOutput(realtime bool) *NullOutput {
	return &NullOutput{realtime: realtime}
}

func (n *NullOutput) Name() string { return "null" }

func (n *NullOutput) Start(r Renderer, cfg Config) error {
	cfg = cfg.withDefaults()
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopCh != nil {
		return nil
	}
	n.stopCh = make(chan struct{})
	n.feedDone = make(chan struct{})

	interval := time.Duration(nullFrames) * time.Second / time.Duration(cfg.SampleRate)
	if !n.realtime {
		interval = time.Millisecond
	}
	stop, done := n.stopCh, n.feedDone
	go func() {
		defer close(done)
		var buf mixBuf
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
			buf.render(r, nullFrames)
			n.mu.Lock()
			n.rendered += nullFrames
			n.mu.Unlock()
		}
	}()
	return nil
}

// Rendered returns the number of frames pulled so far.
func (n *NullOutput) Rendered() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rendered
}

func (n *NullOutput) Close() {
	n.mu.Lock()
	stop, done := n.stopCh, n.feedDone
	n.mu.Unlock()
	if stop == nil {
		return
	}
	n.closeOnce.Do(func() { close(stop) })
	<-done
}
