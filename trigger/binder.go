package trigger

import (
	"reflect"
	"sync"
)

// Handler is what a trigger fires.
type Handler interface {
	Trigger(source string)
}

// HandlerFunc adapts a function. Function values are never equal, so
// binding one always replaces the previous listener.
type HandlerFunc func(source string)

func (f HandlerFunc) Trigger(source string) { f(source) }

const (
	SourceKey     = "key"
	SourcePointer = "pointer"
)

// Binder holds at most one key binding on a Surface for one pad.
type Binder struct {
	surface *Surface

	mu     sync.Mutex
	key    string
	h      Handler
	remove func()
}

func NewBinder(s *Surface) *Binder {
	return &Binder{surface: s}
}

// Bind listens for key on the surface and fires h. Binding the same key
// and handler again does nothing; anything else drops the previous
// listener before registering the new one.
func (b *Binder) Bind(key string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.remove != nil && b.key == key && sameHandler(b.h, h) {
		return
	}
	if b.remove != nil {
		b.remove()
		b.remove = nil
	}

	b.key, b.h = key, h
	b.remove = b.surface.Listen(func(ev KeyEvent) {
		if Normalize(ev.Code) == key {
			h.Trigger(SourceKey)
		}
	})
}

func (b *Binder) Unbind() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remove != nil {
		b.remove()
		b.remove = nil
	}
	b.h = nil
}

// Press fires the bound handler as a pointer press. It does nothing when
// unbound.
func (b *Binder) Press() {
	b.mu.Lock()
	h := b.h
	b.mu.Unlock()
	if h != nil {
		h.Trigger(SourcePointer)
	}
}

func sameHandler(a, b Handler) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
