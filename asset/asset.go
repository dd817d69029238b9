package asset

import (
	"context"
	"fmt"
	"strings"
)

// Fetcher retrieves the raw bytes of one asset path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// NetworkError reports that an asset could not be retrieved.
type NetworkError struct {
	Path string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError reports bytes that are not playable audio.
type DecodeError struct {
	ID  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// New returns a Fetcher for src: an http(s) base URL or a local directory.
func New(src string) Fetcher {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return NewHTTPFetcher(src)
	}
	return NewFileFetcher(src)
}
