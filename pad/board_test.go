package pad

import (
	"errors"
	"testing"

	"drumpad/asset"
	"drumpad/audio"
	"drumpad/internal/wavfile"
	"drumpad/kit"
	"drumpad/trigger"
)

func presetFake() *asset.FakeFetcher {
	fake := asset.NewFake()
	for _, d := range kit.Samples() {
		fake.Set(d.Path, wavfile.Constant(400, 8000))
	}
	return fake
}

func mountAll(t *testing.T, b *Board) {
	t.Helper()
	b.Mount()
	for _, p := range b.Pads() {
		waitLoad(t, p)
	}
}

func TestBoardEndToEnd(t *testing.T) {
	b := NewBoard(kit.Samples(), Options{Fetcher: presetFake()})
	defer b.Close()

	if got := len(b.Pads()); got != 8 {
		t.Fatalf("pads = %d, want 8", got)
	}
	if b.Context() != nil {
		t.Fatal("context created before mount")
	}
	mountAll(t, b)
	for _, p := range b.Pads() {
		if snap := p.Snapshot(); snap.State != Ready {
			t.Fatalf("%s: %+v", snap.ID, snap)
		}
	}
	if b.Surface().Len() != 8 {
		t.Fatalf("listeners = %d, want 8", b.Surface().Len())
	}

	b.Surface().Dispatch(trigger.KeyEvent{Code: "KeyA"})

	ctx := b.Context()
	if ctx == nil {
		t.Fatal("no context after loads")
	}
	sessions := ctx.Sessions()
	if len(sessions) != 1 || sessions[0].Sample != "kick" {
		t.Fatalf("sessions = %+v, want one kick", sessions)
	}
	if b.Active() != 1 {
		t.Fatalf("Active = %d", b.Active())
	}
}

func TestBoardPunctuationKeys(t *testing.T) {
	b := NewBoard(kit.Samples(), Options{Fetcher: presetFake()})
	defer b.Close()
	mountAll(t, b)

	for _, code := range []string{"Quote", "Comma", "Period"} {
		b.Surface().Dispatch(trigger.KeyEvent{Code: code})
	}
	got := map[string]bool{}
	for _, s := range b.Context().Sessions() {
		got[s.Sample] = true
	}
	for _, id := range []string{"clap", "rimshot", "snap"} {
		if !got[id] {
			t.Errorf("%s did not play; sessions = %v", id, got)
		}
	}
}

func TestBoardPolyphony(t *testing.T) {
	b := NewBoard(kit.Samples(), Options{Fetcher: presetFake()})
	defer b.Close()
	mountAll(t, b)

	snare := b.Pad("snare")
	snare.SetGain(0.5)
	snare.Press()
	snare.SetGain(0.2)
	snare.Press()

	sessions := b.Context().Sessions()
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if sessions[0].Gain != 0.5 || sessions[1].Gain != 0.2 {
		t.Fatalf("gains = %v, %v", sessions[0].Gain, sessions[1].Gain)
	}
	if b.Hits() != 2 {
		t.Fatalf("Hits = %d", b.Hits())
	}
}

func TestBoardIsolatesFailures(t *testing.T) {
	fake := presetFake()
	fake.Fail("audio/drum/crash.wav", errors.New("404"))
	b := NewBoard(kit.Samples(), Options{Fetcher: fake})
	defer b.Close()
	mountAll(t, b)

	for _, p := range b.Pads() {
		want := Ready
		if p.ID() == "crash" {
			want = Failed
		}
		if got := p.Snapshot().State; got != want {
			t.Errorf("%s: state = %v, want %v", p.ID(), got, want)
		}
	}

	b.Surface().Dispatch(trigger.KeyEvent{Code: "KeyP"})
	if n := b.Active(); n != 0 {
		t.Fatalf("failed pad started %d sessions", n)
	}
}

func TestBoardOpenError(t *testing.T) {
	b := NewBoard(kit.Samples()[:1], Options{
		Fetcher: presetFake(),
		Open: func() (*audio.Context, error) {
			return nil, errors.New("no device")
		},
	})
	defer b.Close()
	mountAll(t, b)

	if snap := b.Pads()[0].Snapshot(); snap.State != Failed {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestBoardClose(t *testing.T) {
	b := NewBoard(kit.Samples(), Options{Fetcher: presetFake()})
	mountAll(t, b)
	ctx := b.Context()

	b.Close()
	if !ctx.Closed() {
		t.Fatal("context still open")
	}
	if b.Surface().Len() != 0 {
		t.Fatalf("listeners = %d after close", b.Surface().Len())
	}
	b.Surface().Dispatch(trigger.KeyEvent{Code: "KeyA"})
	b.Pad("kick").Press()
	if b.Hits() != 0 {
		t.Fatalf("Hits = %d after close", b.Hits())
	}
}

func TestBoardListener(t *testing.T) {
	snaps := &snapshots{}
	b := NewBoard(kit.Samples()[:2], Options{Fetcher: presetFake(), Listener: snaps.add})
	defer b.Close()
	mountAll(t, b)

	if snaps.len() != 4 {
		t.Fatalf("listener calls = %d, want 4", snaps.len())
	}
	if b.Pad("missing") != nil {
		t.Fatal("Pad(missing) != nil")
	}
}
