package main

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"drumpad/pad"
)

func readyBoard(t *testing.T) *pad.Board {
	t.Helper()
	b, _ := testBoard(t, nil)
	b.Mount()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.Wait(ctx); err != nil {
		t.Fatalf("loads did not finish: %v", err)
	}
	for _, p := range b.Pads() {
		if p.Snapshot().State != pad.Ready {
			t.Fatalf("%s not ready: %+v", p.ID(), p.Snapshot())
		}
	}
	return b
}

func update(m tuiModel, msg tea.Msg) tuiModel {
	next, _ := m.Update(msg)
	return next.(tuiModel)
}

func TestTUICursorWraps(t *testing.T) {
	m := newTUIModel(readyBoard(t), true, "")

	m = update(m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.cursor != 7 {
		t.Fatalf("cursor = %d after left from 0, want 7", m.cursor)
	}
	m = update(m, tea.KeyMsg{Type: tea.KeyRight})
	m = update(m, tea.KeyMsg{Type: tea.KeyRight})
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}
}

func TestTUIGainKeys(t *testing.T) {
	b := readyBoard(t)
	m := newTUIModel(b, true, "")

	m = update(m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(m, tea.KeyMsg{Type: tea.KeyShiftDown})
	clap := b.Pad("clap")
	if g := clap.Gain(); g < 0.889 || g > 0.891 {
		t.Fatalf("gain = %v, want 0.89", g)
	}
	m = update(m, tea.KeyMsg{Type: tea.KeyShiftUp})
	m = update(m, tea.KeyMsg{Type: tea.KeyShiftUp})
	if g := clap.Gain(); g != 1 {
		t.Fatalf("gain = %v, want clamped 1", g)
	}
	if b.Pad("kick").Gain() != 1 {
		t.Fatal("unselected pad changed")
	}
}

func TestTUITypingTriggers(t *testing.T) {
	b := readyBoard(t)
	m := newTUIModel(b, true, "")

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{','}})
	if b.Pad("kick").Hits() != 1 || b.Pad("rimshot").Hits() != 1 {
		t.Fatalf("hits kick=%d rimshot=%d", b.Pad("kick").Hits(), b.Pad("rimshot").Hits())
	}
	if m.flash["kick"] == 0 || m.flash["rimshot"] == 0 {
		t.Fatalf("flash = %v", m.flash)
	}
}

func TestTUIGlobalIgnoresTyping(t *testing.T) {
	b := readyBoard(t)
	m := newTUIModel(b, false, "")

	update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	if b.Hits() != 0 {
		t.Fatalf("typing with global keys fired %d hits", b.Hits())
	}
	update(m, tea.KeyMsg{Type: tea.KeyEnter})
	if b.Pad("clap").Hits() != 1 {
		t.Fatal("enter did not press the selected pad")
	}
}

func TestTUIMouse(t *testing.T) {
	b := readyBoard(t)
	m := newTUIModel(b, true, "")

	// second row, second column: snare
	x := (cellWidth + 2) + 3
	y := headerLines + (cellLines + 2) + 1
	m = update(m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if m.cursor != 5 || b.Pad("snare").Hits() != 1 {
		t.Fatalf("cursor=%d snare hits=%d", m.cursor, b.Pad("snare").Hits())
	}

	update(m, tea.MouseMsg{X: x, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if b.Hits() != 1 {
		t.Fatal("click on header pressed a pad")
	}
}

func TestPadAt(t *testing.T) {
	tests := []struct {
		x, y, n, want int
	}{
		{0, 0, 8, -1},
		{0, headerLines, 8, 0},
		{cellWidth + 2, headerLines, 8, 1},
		{4 * (cellWidth + 2), headerLines, 8, -1},
		{0, headerLines + 2*(cellLines+2), 8, -1},
		{3 * (cellWidth + 2), headerLines + cellLines + 2, 8, 7},
		{3 * (cellWidth + 2), headerLines + cellLines + 2, 6, -1},
	}
	for _, tt := range tests {
		if got := padAt(tt.x, tt.y, tt.n); got != tt.want {
			t.Errorf("padAt(%d, %d, %d) = %d, want %d", tt.x, tt.y, tt.n, got, tt.want)
		}
	}
}

func TestTUIView(t *testing.T) {
	b := readyBoard(t)
	m := newTUIModel(b, true, "null: system default @ 44100Hz")
	b.Pad("snare").SetGain(0.25)

	view := m.View()
	for _, want := range []string{"drumpad", "null: system default", "kick", "hatOpen", "key '", "ready", "0.25"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestTUIStatusAndQuit(t *testing.T) {
	m := newTUIModel(readyBoard(t), true, "")
	m = update(m, StatusMsg{Text: "pulse: Speakers"})
	if m.status != "pulse: Speakers" {
		t.Fatalf("status = %q", m.status)
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("ctrl+c did not quit")
	}
}

func TestGainBar(t *testing.T) {
	if got := gainBar(1, 4); got != "████" {
		t.Errorf("gainBar(1) = %q", got)
	}
	if got := gainBar(0, 4); got != "░░░░" {
		t.Errorf("gainBar(0) = %q", got)
	}
	if got := gainBar(0.5, 4); got != "██░░" {
		t.Errorf("gainBar(0.5) = %q", got)
	}
}

func TestTUIAttachWhileRead(t *testing.T) {
	t.Cleanup(func() {
		tuiMu.Lock()
		tuiProgram = nil
		tuiMu.Unlock()
	})
	b := readyBoard(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			currentTUI()
		}
	}()
	sink := &tuiSink{}
	sink.Status("ready")
	sink.Attach(b, true)
	<-done

	if currentTUI() == nil {
		t.Fatal("no program after Attach")
	}
}
