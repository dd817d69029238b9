package asset

import (
	"context"
	"fmt"
	"sync"
)

// FakeFetcher serves assets from memory. Paths set with Hold block until
// Release is called or the request context ends.
type FakeFetcher struct {
	mu     sync.Mutex
	files  map[string][]byte
	errs   map[string]error
	gates  map[string]chan struct{}
	calls  map[string]int
	called chan string
}

func NewFake() *FakeFetcher {
	return &FakeFetcher{
		files:  make(map[string][]byte),
		errs:   make(map[string]error),
		gates:  make(map[string]chan struct{}),
		calls:  make(map[string]int),
		called: make(chan string, 64),
	}
}

func (f *FakeFetcher) Set(path string, data []byte) {
	f.mu.Lock()
	f.files[path] = data
	f.mu.Unlock()
}

func (f *FakeFetcher) Fail(path string, err error) {
	f.mu.Lock()
	f.errs[path] = err
	f.mu.Unlock()
}

func (f *FakeFetcher) Hold(path string) {
	f.mu.Lock()
	f.gates[path] = make(chan struct{})
	f.mu.Unlock()
}

func (f *FakeFetcher) Release(path string) {
	f.mu.Lock()
	gate, ok := f.gates[path]
	delete(f.gates, path)
	f.mu.Unlock()
	if ok {
		close(gate)
	}
}

// Calls returns how many times path was fetched.
func (f *FakeFetcher) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// Called receives each path as its fetch begins.
func (f *FakeFetcher) Called() <-chan string { return f.called }

func (f *FakeFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	f.calls[path]++
	gate := f.gates[path]
	f.mu.Unlock()

	select {
	case f.called <- path:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &NetworkError{Path: path, Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[path]; err != nil {
		return nil, &NetworkError{Path: path, Err: err}
	}
	data, ok := f.files[path]
	if !ok {
		return nil, &NetworkError{Path: path, Err: fmt.Errorf("not found")}
	}
	return data, nil
}
