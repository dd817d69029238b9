package doctor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"drumpad/asset"
	"drumpad/audio"
	"drumpad/engine"
	"drumpad/kit"
	"drumpad/shutdown"
	"drumpad/trigger"
)

type Options struct {
	Fetcher      asset.Fetcher
	Samples      []kit.Descriptor
	FetchTimeout time.Duration
	Output       string
	Device       string
	Audio        audio.Config

	Out io.Writer // default os.Stdout
	In  io.Reader // nil skips questions that need an answer
}

type doctor struct {
	Options
	in *bufio.Reader
}

// Run executes diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(opts Options) int {
	resetTerminal()
	stop := shutdown.OnSignal(func() {
		println("\nInterrupted")
		os.Exit(1)
	})
	defer stop()

	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	d := &doctor{Options: opts}
	if opts.In != nil {
		d.in = bufio.NewReader(opts.In)
	}

	fmt.Fprintln(d.Out, "drumpad doctor - system diagnostics")
	fmt.Fprintln(d.Out, "===================================")

	allPass := true
	if !d.checkAssets(context.Background()) {
		allPass = false
	}
	if !d.checkOutput() {
		allPass = false
	}
	if !d.checkKeyboard() {
		allPass = false
	}

	fmt.Fprintln(d.Out)
	if allPass {
		fmt.Fprintln(d.Out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(d.Out, "Some checks failed. See details above.")
	return 1
}

func (d *doctor) pass(format string, args ...any) bool {
	fmt.Fprintf(d.Out, "  PASS: "+format+"\n", args...)
	return true
}

func (d *doctor) fail(format string, args ...any) bool {
	fmt.Fprintf(d.Out, "  FAIL: "+format+"\n", args...)
	return false
}

func (d *doctor) ask(question string) bool {
	if d.in == nil {
		return true
	}
	fmt.Fprintf(d.Out, "%s [y/n]: ", question)
	answer, _ := d.in.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

type assetResult struct {
	length time.Duration
	err    error
}

// checkAssets fetches and decodes every sample concurrently into a
// context with no output.
func (d *doctor) checkAssets(ctx context.Context) bool {
	fmt.Fprintln(d.Out)
	fmt.Fprintln(d.Out, "[1/3] Sample assets")

	if d.Fetcher == nil || len(d.Samples) == 0 {
		return d.fail("no samples configured")
	}

	actx, err := audio.NewContext(d.Audio, nil)
	if err != nil {
		return d.fail("cannot create decoder: %v", err)
	}
	defer actx.Close()
	loader := asset.NewLoader(d.Fetcher, func() (asset.Decoder, error) { return actx, nil }, d.FetchTimeout)

	results := make([]assetResult, len(d.Samples))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, desc := range d.Samples {
		g.Go(func() error {
			buf, err := loader.Load(gctx, desc)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].length = buf.Duration()
			return nil
		})
	}
	g.Wait()

	ok := true
	for i, desc := range d.Samples {
		r := results[i]
		if r.err != nil {
			fmt.Fprintf(d.Out, "  %-10s %-3q error: %v\n", desc.ID, desc.Key, r.err)
			ok = false
			continue
		}
		fmt.Fprintf(d.Out, "  %-10s %-3q %6dms\n", desc.ID, desc.Key, r.length.Milliseconds())
	}
	if !ok {
		return d.fail("some samples could not be loaded")
	}
	return d.pass("%d samples loaded", len(d.Samples))
}

// checkOutput plays a short tone through the configured output and waits
// for the device to consume it.
func (d *doctor) checkOutput() bool {
	fmt.Fprintln(d.Out)
	fmt.Fprintln(d.Out, "[2/3] Audio output")

	var dev *audio.DeviceInfo
	if d.Device != "" {
		var err error
		dev, err = audio.FindDevice(d.Output, d.Device)
		if err != nil {
			return d.fail("%v", err)
		}
		if audio.IsBluetooth(dev.Name) {
			fmt.Fprintf(d.Out, "  Warning: %s looks like Bluetooth; expect 100ms+ latency\n", dev.Name)
		}
	}
	out, err := audio.OpenOutput(d.Output, dev)
	if err != nil {
		return d.fail("%v", err)
	}

	lazy := audio.NewLazy(func() (*audio.Context, error) { return audio.NewContext(d.Audio, out) })
	defer lazy.Close()
	actx, err := lazy.Get()
	if err != nil {
		return d.fail("cannot open %s output: %v", d.Output, err)
	}

	tone, err := actx.Decode("tone", toneWAV(actx.SampleRate(), toneFreq, toneDuration, toneVolume, toneDecay))
	if err != nil {
		return d.fail("tone: %v", err)
	}

	start := time.Now()
	engine.New(lazy).Play(tone, 1)
	deadline := start.Add(tone.Duration() + 2*time.Second)
	for actx.Active() > 0 {
		if time.Now().After(deadline) {
			return d.fail("%s output did not consume the tone (device stalled?)", actx.OutputName())
		}
		time.Sleep(5 * time.Millisecond)
	}
	elapsed := time.Since(start)

	if !d.ask("Did you hear a short tick?") {
		return d.fail("tone not heard")
	}
	return d.pass("%s output played %dms tone in %dms", actx.OutputName(), tone.Duration().Milliseconds(), elapsed.Milliseconds())
}

// checkKeyboard verifies that a key press reaches the trigger surface
// from outside the terminal.
func (d *doctor) checkKeyboard() bool {
	fmt.Fprintln(d.Out)
	fmt.Fprintln(d.Out, "[3/3] Global keyboard")

	msg, err := trigger.Diagnose()
	if err != nil {
		return d.fail("%v", err)
	}
	fmt.Fprintf(d.Out, "  %s\n", msg)

	surface := trigger.NewSurface()
	got := make(chan struct{}, 1)
	surface.Listen(func(ev trigger.KeyEvent) {
		if trigger.Normalize(ev.Code) == "a" {
			select {
			case got <- struct{}{}:
			default:
			}
		}
	})

	global := trigger.NewGlobal(globalKeys(d.Samples))
	if skipped := global.Skipped(); len(skipped) > 0 {
		fmt.Fprintf(d.Out, "  Warning: no global key for %s\n", strings.Join(skipped, " "))
	}
	if err := global.Start(surface); err != nil {
		return d.fail("%v", err)
	}
	defer func() {
		global.Stop()
		resetTerminal()
	}()

	if err := pressA(); err != nil {
		fmt.Fprintf(d.Out, "  Warning: synthetic key press unavailable: %v\n", err)
	} else {
		select {
		case <-got:
			return d.pass("synthetic key press detected")
		case <-time.After(3 * time.Second):
			fmt.Fprintln(d.Out, "  Synthetic key press not seen")
		}
	}

	if d.in == nil {
		return d.fail("no key press detected")
	}
	fmt.Fprintln(d.Out, "Press the key at the 'a' position...")
	select {
	case <-got:
		return d.pass("key press detected")
	case <-time.After(10 * time.Second):
		return d.fail("timeout waiting for key press")
	}
}

// globalKeys returns the kit's keys plus 'a', which the self-test presses.
func globalKeys(samples []kit.Descriptor) []string {
	keys := []string{"a"}
	for _, d := range samples {
		if d.Key != "a" {
			keys = append(keys, d.Key)
		}
	}
	return keys
}
