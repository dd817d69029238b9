package shutdown

import (
	"os"
	"testing"
	"time"
)

func TestOnSignal(t *testing.T) {
	fired := make(chan struct{})
	stop := OnSignal(func() { close(fired) })
	defer stop()

	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Signal(os.Interrupt); err != nil {
		t.Skipf("cannot signal self: %v", err)
	}
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
}

func TestOnSignalStop(t *testing.T) {
	stop := OnSignal(func() { t.Error("handler called after stop") })
	stop()
	stop()
}
