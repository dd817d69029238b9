package trigger

import "sync"

// Surface is the process-wide key input: every listener sees every event.
type Surface struct {
	mu        sync.Mutex
	next      int
	listeners map[int]func(KeyEvent)
}

func NewSurface() *Surface {
	return &Surface{listeners: make(map[int]func(KeyEvent))}
}

// Listen registers fn and returns the function that removes it. Calling
// remove more than once is harmless.
func (s *Surface) Listen(fn func(KeyEvent)) (remove func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Dispatch delivers ev to the listeners registered when it is called,
// in registration order.
func (s *Surface) Dispatch(ev KeyEvent) {
	s.mu.Lock()
	fns := make([]func(KeyEvent), 0, len(s.listeners))
	for id := 0; id < s.next; id++ {
		if fn, ok := s.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// DispatchRune sends the key event for a printed character. Characters
// without a key code are dropped.
func (s *Surface) DispatchRune(r rune) bool {
	code := CodeForKey(r)
	if code == "" {
		return false
	}
	s.Dispatch(KeyEvent{Code: code})
	return true
}

func (s *Surface) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}
