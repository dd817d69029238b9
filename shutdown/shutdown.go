package shutdown

import (
	"os"
	"os/signal"
	"sync"
)

func Notify(ch chan os.Signal) {
	signal.Notify(ch, signals...)
}

// OnSignal calls fn once when the process is asked to stop. The returned
// function stops watching without calling fn.
func OnSignal(fn func()) (stop func()) {
	ch := make(chan os.Signal, 1)
	Notify(ch)
	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			fn()
		case <-done:
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}
