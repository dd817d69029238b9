package asset

import (
	"context"
	"errors"
	"time"

	"drumpad/audio"
	"drumpad/kit"
	"drumpad/log"
)

// Decoder turns fetched bytes into a playable buffer. *audio.Context
// implements it.
type Decoder interface {
	Decode(id string, data []byte) (*audio.Buffer, error)
}

// metricsFetcher is a Fetcher that keeps per-request timings.
// *HTTPFetcher implements it.
type metricsFetcher interface {
	Metrics(path string) (FetchMetrics, bool)
}

// DecoderSource yields the decoder to use, creating it on first need.
type DecoderSource func() (Decoder, error)

// Loader runs fetch then decode for one sample. It never retries.
type Loader struct {
	fetch   Fetcher
	decoder DecoderSource
	timeout time.Duration
}

// NewLoader builds a loader. A zero timeout lets a stalled fetch wait
// forever.
func NewLoader(f Fetcher, d DecoderSource, timeout time.Duration) *Loader {
	return &Loader{fetch: f, decoder: d, timeout: timeout}
}

func (l *Loader) Load(ctx context.Context, desc kit.Descriptor) (*audio.Buffer, error) {
	start := time.Now()
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	data, err := l.fetch.Fetch(ctx, desc.Path)
	if err != nil {
		var netErr *NetworkError
		if !errors.As(err, &netErr) {
			err = &NetworkError{Path: desc.Path, Err: err}
		}
		return nil, err
	}
	fetched := time.Since(start)
	if mf, ok := l.fetch.(metricsFetcher); ok {
		if m, ok := mf.Metrics(desc.Path); ok {
			log.FetchTimings(desc.ID, m.DNS, m.TLS, m.TTFB, m.Total, m.ConnReused)
		}
	}

	dec, err := l.decoder()
	if err != nil {
		return nil, &DecodeError{ID: desc.ID, Err: err}
	}
	buf, err := dec.Decode(desc.ID, data)
	if err != nil {
		return nil, &DecodeError{ID: desc.ID, Err: err}
	}

	log.SampleLoaded(desc.ID, desc.Path, len(data), fetched, time.Since(start)-fetched, buf.Duration())
	return buf, nil
}
