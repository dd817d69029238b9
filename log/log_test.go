package log

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func readDiag(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(wd, "logs")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("DRUMPAD_LOG_PATH", "/tmp/drumpad-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/drumpad-env-log" {
		t.Errorf("got %q, want /tmp/drumpad-env-log", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("DRUMPAD_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "drumpad") {
		t.Errorf("default directory %q does not mention drumpad", got)
	}
}

func TestInitCreatesFile(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(tmp, fileName)); err != nil {
		t.Errorf("%s not created: %v", fileName, err)
	}
}

func TestSampleEvents(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	SampleLoaded("kick", "audio/drum/kickG.wav", 2048, 3*time.Millisecond, time.Millisecond, 250*time.Millisecond)
	SampleFailed("clap", errors.New("connection refused"))
	FetchTimings("snare", 2*time.Millisecond, 0, 5*time.Millisecond, 9*time.Millisecond, true)

	out := readDiag(t, tmp)
	for _, want := range []string{"sample_loaded", "sample=kick", "size_kb=2", "sample_failed", "connection refused",
		"fetch_timings", "sample=snare", "dns_ms=2", "ttfb_ms=5", "total_ms=9", "conn_reused=true"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestNoopBeforeInit(t *testing.T) {
	tmp := setupLogDir(t)

	Info("dropped")
	SessionStart("null", 44100, 8)

	if _, err := os.Stat(filepath.Join(tmp, fileName)); !os.IsNotExist(err) {
		t.Errorf("log file written before Init: %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}
