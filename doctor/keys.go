package doctor

import (
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
)

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

// initKeys creates the virtual keyboard. On Linux it is a uinput device
// that the input layer needs a moment to pick up.
func initKeys() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
		if kbErr == nil {
			time.Sleep(2 * time.Second)
		}
	})
	return kbErr
}

// pressA sends one press and release of the key at the US 'a' position.
func pressA() error {
	if err := initKeys(); err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_A)
	return kb.Launching()
}
