package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"drumpad/asset"
	"drumpad/audio"
	"drumpad/config"
	"drumpad/doctor"
	"drumpad/kit"
	"drumpad/log"
	"drumpad/pad"
	"drumpad/shutdown"
	"drumpad/trigger"
)

var version = "dev"

var (
	guiMode     bool
	sink        EventSink
	activeBoard *pad.Board
	boardMu     sync.Mutex
)

var shutdownOnce sync.Once

func gracefulShutdown() {
	shutdownOnce.Do(func() {
		boardMu.Lock()
		b := activeBoard
		boardMu.Unlock()
		if b != nil {
			b.Close()
		}
		log.Close()
		if p := currentTUI(); p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

// initCrashLog sends runtime crash output to crash_log.txt in the log
// directory. It runs before flags are parsed, so only DRUMPAD_LOG_PATH
// and the OS default are considered.
func initCrashLog() {
	dir, err := log.ResolveDir("")
	if err != nil {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return
	}
	crashFile, err := os.OpenFile(filepath.Join(dir, "crash_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func hasFlag(name string) bool {
	for _, arg := range os.Args[1:] {
		if arg == "-"+name || arg == "--"+name {
			return true
		}
	}
	return false
}

func loadSamples(path string) ([]kit.Descriptor, error) {
	if path == "" {
		return kit.Samples(), nil
	}
	return kit.LoadFile(path)
}

// resolveDevice turns -setup or -device into a playback device. Nil
// means the system default.
func resolveDevice(cfg config.Config) (*audio.DeviceInfo, error) {
	switch {
	case cfg.Device != "":
		return audio.FindDevice(cfg.Output, cfg.Device)
	case cfg.Setup:
		return audio.SelectDevice(cfg.Output)
	}
	return nil, nil
}

func deviceLineText(output string, dev *audio.DeviceInfo, rate int) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return fmt.Sprintf("%s: %s%s @ %dHz", output, name, suffix, rate)
}

func run() {
	cfg, err := config.Parse(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Version {
		fmt.Printf("drumpad %s\n", version)
		os.Exit(0)
	}

	logPath, err := log.ResolveDir(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	samples, err := loadSamples(cfg.Kit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fetcher := asset.New(cfg.Assets)

	if cfg.Doctor {
		os.Exit(doctor.Run(doctor.Options{
			Fetcher:      fetcher,
			Samples:      samples,
			FetchTimeout: cfg.FetchTimeout,
			Output:       cfg.Output,
			Device:       cfg.Device,
			Audio:        cfg.AudioConfig(),
			In:           os.Stdin,
		}))
	}

	dev, err := resolveDevice(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		fmt.Fprintln(os.Stderr, "Falling back to default device")
		dev = nil
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	open := func() (*audio.Context, error) {
		out, err := audio.OpenOutput(cfg.Output, dev)
		if err != nil {
			return nil, err
		}
		ctx, err := audio.NewContext(cfg.AudioConfig(), out)
		if err != nil {
			log.Errorf("audio context init error: %v", err)
			return nil, err
		}
		log.SessionStart(ctx.OutputName(), ctx.SampleRate(), len(samples))
		return ctx, nil
	}

	surface := trigger.NewSurface()
	if cfg.Test {
		runTestMode(samples, pad.Options{
			Fetcher:      fetcher,
			FetchTimeout: cfg.FetchTimeout,
			Open:         open,
			Surface:      surface,
		})
		return
	}

	if cfg.GUI && !guiMode {
		fmt.Fprintln(os.Stderr, "Error: -gui must be handled before run")
		os.Exit(1)
	}
	if !guiMode {
		sink = &tuiSink{}
	}

	board := pad.NewBoard(samples, pad.Options{
		Fetcher:      fetcher,
		FetchTimeout: cfg.FetchTimeout,
		Open:         open,
		Surface:      surface,
		Listener: func(s pad.Snapshot) {
			if sink != nil {
				sink.PadChanged(s)
			}
		},
	})
	boardMu.Lock()
	activeBoard = board
	boardMu.Unlock()

	if cfg.Global {
		keys := make([]string, len(samples))
		for i, d := range samples {
			keys[i] = d.Key
		}
		global := trigger.NewGlobal(keys)
		if skipped := global.Skipped(); len(skipped) > 0 {
			log.Infof("global keys skipped: %q", skipped)
			fmt.Fprintf(os.Stderr, "Warning: no global key for %s; use the window or pointer for those pads\n", strings.Join(skipped, " "))
		}
		if err := global.Start(surface); err != nil {
			log.Warnf("global keys unavailable: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: global keys unavailable: %v\n", err)
		} else {
			defer global.Stop()
		}
	}

	sink.Status(deviceLineText(cfg.Output, dev, cfg.SampleRate))
	sink.Attach(board, !cfg.Global)
	board.Mount()

	shutdown.OnSignal(gracefulShutdown)

	if guiMode {
		// The window owns the main thread; initGUI shuts down when it closes.
		select {}
	}

	if _, err := currentTUI().Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	gracefulShutdown()
}
