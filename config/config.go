package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"drumpad/audio"
)

// Config holds all runtime configuration: flags first, then DRUMPAD_*
// environment variables, then defaults.
type Config struct {
	Assets       string        // directory or http(s) base URL holding audio/drum/*
	Kit          string        // optional TOML kit file; empty = built-in preset
	Output       string        // pulse, malgo, oto, null; empty = platform default
	Device       string        // playback device name
	Setup        bool          // pick the playback device interactively
	SampleRate   int           // context rate in Hz
	Latency      time.Duration // output buffer target
	FetchTimeout time.Duration // 0 = wait forever
	LogPath      string
	Global       bool // read keys system-wide instead of only from the terminal
	Doctor       bool
	Version      bool
	GUI          bool
	Test         bool // headless, stdin-driven
	Args         []string
}

// Parse reads flags from args (without the program name).
func Parse(args []string, stderr io.Writer) (Config, error) {
	var c Config
	fs := flag.NewFlagSet("drumpad", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&c.Assets, "assets", envStr("DRUMPAD_ASSETS", "."), "Directory or http(s) URL serving audio/drum/*.wav")
	fs.StringVar(&c.Kit, "kit", "", "TOML kit file (default: built-in 8-pad kit)")
	fs.StringVar(&c.Output, "output", envStr("DRUMPAD_OUTPUT", ""), "Audio output: pulse, malgo, oto or null (default: "+audio.DefaultOutput()+")")
	fs.StringVar(&c.Device, "device", "", "Use named playback device")
	fs.BoolVar(&c.Setup, "setup", false, "Select playback device (otherwise uses system default)")
	fs.IntVar(&c.SampleRate, "rate", envInt("DRUMPAD_RATE", audio.DefaultSampleRate), "Output sample rate in Hz")
	fs.DurationVar(&c.Latency, "latency", audio.DefaultLatency, "Output buffer latency (e.g., 20ms)")
	fs.DurationVar(&c.FetchTimeout, "fetch-timeout", 0, "Give up on a sample fetch after this long (0 = never)")
	fs.StringVar(&c.LogPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	fs.BoolVar(&c.Global, "global", false, "Trigger pads from keys pressed in any window")
	fs.BoolVar(&c.Doctor, "doctor", false, "Run system diagnostics and exit")
	fs.BoolVar(&c.Version, "version", false, "Print version and exit")
	fs.BoolVar(&c.GUI, "gui", false, "Open a desktop window instead of the terminal UI")
	fs.BoolVar(&c.Test, "test", false, "Test mode (headless, stdin-driven)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	c.Args = fs.Args()
	if c.Output == "" {
		c.Output = audio.DefaultOutput()
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if c.Assets == "" {
		return fmt.Errorf("assets: empty source")
	}
	if !slices.Contains(audio.Outputs(), c.Output) {
		return fmt.Errorf("unknown output %q (use one of %v)", c.Output, audio.Outputs())
	}
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("rate %d out of range 8000-192000", c.SampleRate)
	}
	if c.Latency <= 0 {
		return fmt.Errorf("latency must be positive, got %v", c.Latency)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch-timeout must not be negative, got %v", c.FetchTimeout)
	}
	if c.Setup && c.Device != "" {
		return fmt.Errorf("-setup and -device are mutually exclusive")
	}
	return nil
}

// AudioConfig is the output format the flags ask for.
func (c Config) AudioConfig() audio.Config {
	return audio.Config{SampleRate: c.SampleRate, Latency: c.Latency}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
