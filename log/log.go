package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const fileName = "diagnostics_log.txt"

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		if !filepath.IsAbs(flagPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, flagPath), nil
		}
		return flagPath, nil
	}

	// Priority 2: DRUMPAD_LOG_PATH environment variable
	envPath := os.Getenv("DRUMPAD_LOG_PATH")
	if envPath != "" {
		if !filepath.IsAbs(envPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, envPath), nil
		}
		return envPath, nil
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, fileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05.000",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

func ready() bool {
	logMu.Lock()
	defer logMu.Unlock()
	return logReady
}

func Info(msg string) {
	if ready() {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if ready() {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if ready() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if ready() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if ready() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if ready() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func SampleLoaded(id, path string, size int, fetch, decode, length time.Duration) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("sample", id).
		Str("path", path).
		Float64("size_kb", float64(size)/1024).
		Float64("fetch_ms", ms(fetch)).
		Float64("decode_ms", ms(decode)).
		Float64("length_ms", ms(length)).
		Msg("sample_loaded")
}

// FetchTimings records the network breakdown of one remote sample fetch.
func FetchTimings(id string, dns, tls, ttfb, total time.Duration, connReused bool) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("sample", id).
		Bool("conn_reused", connReused).
		Float64("dns_ms", ms(dns)).
		Float64("tls_ms", ms(tls)).
		Float64("ttfb_ms", ms(ttfb)).
		Float64("total_ms", ms(total)).
		Msg("fetch_timings")
}

func SampleFailed(id string, err error) {
	if !ready() {
		return
	}
	diagLog.Error().
		Str("sample", id).
		Err(err).
		Msg("sample_failed")
}

// Triggered records one hit. source is "key" or "pointer".
func Triggered(id, source string, gain float64, active int) {
	if !ready() {
		return
	}
	diagLog.Debug().
		Str("sample", id).
		Str("source", source).
		Float64("gain", gain).
		Int("active", active).
		Msg("trigger")
}

func SessionStart(output string, sampleRate, samples int) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("output", output).
		Int("rate", sampleRate).
		Int("samples", samples).
		Msg("session_start")
}

func SessionEnd(hits int) {
	if !ready() {
		return
	}
	diagLog.Info().
		Int("hits", hits).
		Msg("session_end")
}
