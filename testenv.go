package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"drumpad/kit"
	"drumpad/log"
	"drumpad/pad"
	"drumpad/trigger"
)

const testWaitTimeout = 10 * time.Second

// testSession drives a board from line commands and reports what
// happened, one event per line.
type testSession struct {
	board *pad.Board
	mu    sync.Mutex
	out   io.Writer
}

func (t *testSession) emit(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format+"\n", args...)
}

func (t *testSession) padChanged(s pad.Snapshot) {
	if s.State == pad.Failed {
		t.emit("pad %s failed: %s", s.ID, s.Err)
		return
	}
	t.emit("pad %s %s gain=%.2f", s.ID, s.State, s.Gain)
}

func (t *testSession) played() {
	t.emit("hits %d active %d", t.board.Hits(), t.board.Active())
}

// settle waits until every load has finished or the timeout passes,
// then reports the outcome.
func (t *testSession) settle(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_ = t.board.Wait(ctx)

	ready, failed, pending := 0, 0, 0
	for _, p := range t.board.Pads() {
		switch p.Snapshot().State {
		case pad.Ready:
			ready++
		case pad.Failed:
			failed++
		default:
			pending++
		}
	}
	t.emit("settled ready=%d failed=%d pending=%d", ready, failed, pending)
}

// exec runs one command line. It returns false on quit.
func (t *testSession) exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	switch fields[0] {
	case "quit":
		return false
	case "wait":
		timeout := testWaitTimeout
		if d, err := time.ParseDuration(arg(1)); err == nil {
			timeout = d
		}
		t.settle(timeout)
	case "key":
		t.board.Surface().Dispatch(trigger.KeyEvent{Code: arg(1)})
		t.played()
	case "type":
		for _, r := range strings.TrimPrefix(line, "type ") {
			t.board.Surface().DispatchRune(r)
		}
		t.played()
	case "press":
		p := t.board.Pad(arg(1))
		if p == nil {
			t.emit("error: no pad %q", arg(1))
			return true
		}
		p.Press()
		t.played()
	case "gain":
		p := t.board.Pad(arg(1))
		if p == nil {
			t.emit("error: no pad %q", arg(1))
			return true
		}
		g, err := strconv.ParseFloat(arg(2), 64)
		if err != nil {
			t.emit("error: bad gain %q", arg(2))
			return true
		}
		p.SetGain(g)
	case "state":
		for _, p := range t.board.Pads() {
			s := p.Snapshot()
			t.emit("state %s key=%q %s gain=%.2f hits=%d", s.ID, s.Key, s.State, s.Gain, p.Hits())
		}
	case "sleep":
		if d, err := time.ParseDuration(arg(1)); err == nil {
			time.Sleep(d)
		}
	default:
		t.emit("error: unknown command %q", fields[0])
	}
	return true
}

func runTestMode(samples []kit.Descriptor, opts pad.Options) {
	t := &testSession{out: os.Stdout}
	opts.Listener = t.padChanged
	t.board = pad.NewBoard(samples, opts)
	defer func() {
		t.board.Close()
		log.Close()
	}()

	log.Info("test_mode_start")
	t.board.Mount()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if !t.exec(scanner.Text()) {
			break
		}
	}
	t.emit("bye")
}
