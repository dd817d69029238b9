//go:build !linux

package trigger

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

var hotkeyKeys = map[rune]hotkey.Key{
	'a': hotkey.KeyA, 'b': hotkey.KeyB, 'c': hotkey.KeyC, 'd': hotkey.KeyD,
	'e': hotkey.KeyE, 'f': hotkey.KeyF, 'g': hotkey.KeyG, 'h': hotkey.KeyH,
	'i': hotkey.KeyI, 'j': hotkey.KeyJ, 'k': hotkey.KeyK, 'l': hotkey.KeyL,
	'm': hotkey.KeyM, 'n': hotkey.KeyN, 'o': hotkey.KeyO, 'p': hotkey.KeyP,
	'q': hotkey.KeyQ, 'r': hotkey.KeyR, 's': hotkey.KeyS, 't': hotkey.KeyT,
	'u': hotkey.KeyU, 'v': hotkey.KeyV, 'w': hotkey.KeyW, 'x': hotkey.KeyX,
	'y': hotkey.KeyY, 'z': hotkey.KeyZ,
	'0': hotkey.Key0, '1': hotkey.Key1, '2': hotkey.Key2, '3': hotkey.Key3,
	'4': hotkey.Key4, '5': hotkey.Key5, '6': hotkey.Key6, '7': hotkey.Key7,
	'8': hotkey.Key8, '9': hotkey.Key9,
	' ': hotkey.KeySpace,
}

type xGlobal struct {
	keys    []rune
	skipped []string
	hks     []*hotkey.Hotkey
	stop    chan struct{}
	once    sync.Once
}

// NewGlobal registers one system hotkey per key (X11/Cocoa/Win32).
// Punctuation keys have no hotkey equivalent and are skipped.
func NewGlobal(keys []string) Global {
	g := &xGlobal{}
	for _, key := range keys {
		runes := []rune(key)
		if len(runes) != 1 {
			g.skipped = append(g.skipped, key)
			continue
		}
		if _, ok := hotkeyKeys[runes[0]]; !ok {
			g.skipped = append(g.skipped, key)
			continue
		}
		g.keys = append(g.keys, runes[0])
	}
	return g
}

func (g *xGlobal) Skipped() []string {
	return append([]string(nil), g.skipped...)
}

func (g *xGlobal) Start(s *Surface) error {
	if len(g.keys) == 0 {
		return fmt.Errorf("none of the keys %v can be registered as hotkeys", g.skipped)
	}
	g.stop = make(chan struct{})
	for _, r := range g.keys {
		hk := hotkey.New(nil, hotkeyKeys[r])
		if err := hk.Register(); err != nil {
			g.Stop()
			return fmt.Errorf("registering %q: %w", string(r), err)
		}
		g.hks = append(g.hks, hk)

		code := CodeForKey(r)
		go func() {
			for {
				select {
				case <-g.stop:
					return
				case <-hk.Keydown():
					s.Dispatch(KeyEvent{Code: code})
				}
			}
		}()
	}
	return nil
}

func (g *xGlobal) Stop() {
	g.once.Do(func() {
		if g.stop != nil {
			close(g.stop)
		}
		for _, hk := range g.hks {
			hk.Unregister()
		}
	})
}

// Diagnose registers and releases a hotkey on the 'a' key to check that
// the window system accepts global hotkeys.
func Diagnose() (string, error) {
	hk := hotkey.New(nil, hotkey.KeyA)
	if err := hk.Register(); err != nil {
		return "", fmt.Errorf("cannot register a system hotkey: %w", err)
	}
	if err := hk.Unregister(); err != nil {
		return "", fmt.Errorf("cannot release test hotkey: %w", err)
	}
	return fmt.Sprintf("system hotkeys available for %d letter, digit and space keys", len(hotkeyKeys)), nil
}
