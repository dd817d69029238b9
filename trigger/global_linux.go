//go:build linux

package trigger

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	evKey    = 1
	keyPress = 1
)

// input_event is 24 bytes on 64-bit Linux:
// timeval (16 bytes) + type (2) + code (2) + value (4)
const inputEventSize = 24

// evdevCodes maps Linux KEY_* scancodes to key codes.
var evdevCodes = map[uint16]string{
	2: "Digit1", 3: "Digit2", 4: "Digit3", 5: "Digit4", 6: "Digit5",
	7: "Digit6", 8: "Digit7", 9: "Digit8", 10: "Digit9", 11: "Digit0",
	12: "Minus", 13: "Equal",
	16: "KeyQ", 17: "KeyW", 18: "KeyE", 19: "KeyR", 20: "KeyT",
	21: "KeyY", 22: "KeyU", 23: "KeyI", 24: "KeyO", 25: "KeyP",
	26: "BracketLeft", 27: "BracketRight",
	30: "KeyA", 31: "KeyS", 32: "KeyD", 33: "KeyF", 34: "KeyG",
	35: "KeyH", 36: "KeyJ", 37: "KeyK", 38: "KeyL",
	39: "Semicolon", 40: "Quote", 41: "Backquote", 43: "Backslash",
	44: "KeyZ", 45: "KeyX", 46: "KeyC", 47: "KeyV", 48: "KeyB",
	49: "KeyN", 50: "KeyM",
	51: "Comma", 52: "Period", 53: "Slash",
	57: "Space",
}

// evdevKeys holds every key evdevCodes can produce.
var evdevKeys = func() map[string]bool {
	m := make(map[string]bool, len(evdevCodes))
	for _, code := range evdevCodes {
		m[Normalize(code)] = true
	}
	return m
}()

type evdevGlobal struct {
	skipped []string
	files   []*os.File
	stop  chan struct{}
	once  sync.Once
}

// NewGlobal reads every keyboard under /dev/input. The user must be in
// the 'input' group. Every key event is dispatched; keys only decides
// what Skipped reports.
func NewGlobal(keys []string) Global {
	g := &evdevGlobal{}
	for _, k := range keys {
		if !evdevKeys[k] {
			g.skipped = append(g.skipped, k)
		}
	}
	return g
}

func (g *evdevGlobal) Skipped() []string {
	return append([]string(nil), g.skipped...)
}

func (g *evdevGlobal) Start(s *Surface) error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	g.stop = make(chan struct{})

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		g.files = append(g.files, f)
		go g.readEvents(f, s)
	}

	if len(g.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}

	return nil
}

func (g *evdevGlobal) readEvents(f *os.File, s *Surface) {
	buf := make([]byte, inputEventSize*16)
	for {
		select {
		case <-g.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}
		for _, ev := range parseEvents(buf[:n]) {
			s.Dispatch(ev)
		}
	}
}

// parseEvents extracts key presses from raw input_event records. Key
// repeats and releases are dropped.
func parseEvents(buf []byte) []KeyEvent {
	var out []KeyEvent
	for i := 0; i+inputEventSize <= len(buf); i += inputEventSize {
		evType := binary.LittleEndian.Uint16(buf[i+16:])
		evCode := binary.LittleEndian.Uint16(buf[i+18:])
		evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

		if evType != evKey || evValue != keyPress {
			continue
		}
		if code, ok := evdevCodes[evCode]; ok {
			out = append(out, KeyEvent{Code: code})
		}
	}
	return out
}

func (g *evdevGlobal) Stop() {
	g.once.Do(func() {
		if g.stop != nil {
			close(g.stop)
		}
		for _, f := range g.files {
			f.Close()
		}
	})
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	// Real keyboards have long key capability bitmaps
	caps := strings.TrimSpace(string(data))
	return len(caps) > 10
}

// Diagnose checks evdev access and returns a status message.
func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}

	return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), opened), nil
}
