//go:build integration

package test_test

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"drumpad/internal/wavfile"
)

var (
	testBinary string
	assetsDir  string
)

var drumFiles = []string{
	"clap.wav", "rimshot.wav", "snap.wav", "crash.wav",
	"kickG.wav", "snareG.wav", "hatClosed.wav", "hatOpen.wav",
}

func TestMain(m *testing.M) {
	testBinary = os.Getenv("DRUMPAD_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "DRUMPAD_TEST_BIN not set; run: go build -o /tmp/drumpad . && DRUMPAD_TEST_BIN=/tmp/drumpad go test -tags integration ./test")
		os.Exit(1)
	}

	dir, err := os.MkdirTemp("", "drumpad-assets")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create assets dir: %v\n", err)
		os.Exit(1)
	}
	assetsDir = dir
	for i, name := range drumFiles {
		path := filepath.Join(dir, "audio", "drum", name)
		if err := generateToneWAV(path, 44100, 0.2, 200+float64(i)*100); err != nil {
			fmt.Fprintf(os.Stderr, "failed to generate %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func generateToneWAV(path string, sampleRate int, durationS, freq float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	n := int(float64(sampleRate) * durationS)
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)) * 8000)
	}
	return os.WriteFile(path, wavfile.Encode(sampleRate, 1, samples), 0644)
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

func runDrumpad(t *testing.T, stdin string, args ...string) (out, logDir string) {
	t.Helper()
	logDir = t.TempDir()
	cmdArgs := append([]string{"-test", "-output", "null", "-logpath", logDir}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = os.Environ()

	b, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("drumpad exited with error: %v\noutput: %s", err, b)
	}
	return string(b), logDir
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func requireLines(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestLoadsPreset(t *testing.T) {
	out, logDir := runDrumpad(t, cmds("wait", "quit"), "-assets", assetsDir)
	requireLines(t, out, "settled ready=8 failed=0 pending=0", "bye")

	diag := readLog(t, logDir, "diagnostics_log.txt")
	if n := strings.Count(diag, "sample_loaded"); n != 8 {
		t.Errorf("expected 8 sample_loaded entries, got %d", n)
	}
	if !strings.Contains(diag, "session_start") || !strings.Contains(diag, "output=null") {
		t.Error("expected session_start with output=null in diagnostics")
	}
}

func TestKeyPlaysKick(t *testing.T) {
	out, _ := runDrumpad(t, cmds("wait", "key KeyA", "state", "quit"), "-assets", assetsDir)
	requireLines(t, out, "hits 1 active 1", `state kick key="a" ready gain=1.00 hits=1`)
}

func TestGainAndSessionEnd(t *testing.T) {
	out, logDir := runDrumpad(t,
		cmds("wait", "gain snare 0.3", "press snare", "type ',.", "sleep 400ms", "quit"),
		"-assets", assetsDir)
	requireLines(t, out, "pad snare ready gain=0.30", "hits 1 active 1", "hits 4")

	diag := readLog(t, logDir, "diagnostics_log.txt")
	if !strings.Contains(diag, "session_end") || !strings.Contains(diag, "hits=4") {
		t.Errorf("expected session_end hits=4 in diagnostics:\n%s", diag)
	}
}

func TestMissingAssetFails(t *testing.T) {
	dir := t.TempDir()
	kitPath := filepath.Join(dir, "kit.toml")
	kit := `
[[sample]]
id = "kick"
key = "a"
path = "audio/drum/kickG.wav"

[[sample]]
id = "cowbell"
key = "c"
path = "audio/drum/cowbell.wav"
`
	if err := os.WriteFile(kitPath, []byte(kit), 0644); err != nil {
		t.Fatal(err)
	}

	out, _ := runDrumpad(t, cmds("wait", "key KeyC", "key KeyA", "quit"), "-assets", assetsDir, "-kit", kitPath)
	requireLines(t, out, "pad cowbell failed", "settled ready=1 failed=1", "hits 0 active 0", "hits 1 active 1")
}
