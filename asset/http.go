package asset

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"sync"
	"time"
)

const maxAssetSize = 32 << 20

// FetchMetrics breaks down one HTTP asset request.
type FetchMetrics struct {
	DNS        time.Duration
	TLS        time.Duration
	TTFB       time.Duration
	Total      time.Duration
	Bytes      int
	ConnReused bool
}

// HTTPFetcher GETs asset paths relative to a base URL.
type HTTPFetcher struct {
	base   string
	client *http.Client

	mu   sync.Mutex
	last map[string]FetchMetrics
}

func NewHTTPFetcher(base string) *HTTPFetcher {
	return &HTTPFetcher{
		base: strings.TrimSuffix(base, "/") + "/",
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        8,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
		last: make(map[string]FetchMetrics),
	}
}

// Metrics returns the timings of the latest successful fetch of p.
func (h *HTTPFetcher) Metrics(p string) (FetchMetrics, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.last[p]
	return m, ok
}

func (h *HTTPFetcher) Fetch(ctx context.Context, p string) ([]byte, error) {
	url := h.base + strings.TrimPrefix(p, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{Path: p, Err: err}
	}

	var m FetchMetrics
	var dnsStart, tlsStart, wrote time.Time
	trace := &httptrace.ClientTrace{
		GotConn:           func(info httptrace.GotConnInfo) { m.ConnReused = info.Reused },
		DNSStart:          func(_ httptrace.DNSStartInfo) { dnsStart = time.Now() },
		DNSDone:           func(_ httptrace.DNSDoneInfo) { m.DNS = time.Since(dnsStart) },
		TLSHandshakeStart: func() { tlsStart = time.Now() },
		TLSHandshakeDone:  func(_ tls.ConnectionState, _ error) { m.TLS = time.Since(tlsStart) },
		WroteRequest:      func(_ httptrace.WroteRequestInfo) { wrote = time.Now() },
		GotFirstResponseByte: func() {
			m.TTFB = time.Since(wrote)
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
	start := time.Now()

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Path: p, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{Path: p, Err: fmt.Errorf("server returned %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return nil, &NetworkError{Path: p, Err: err}
	}
	if len(body) > maxAssetSize {
		return nil, &NetworkError{Path: p, Err: fmt.Errorf("asset larger than %d bytes", maxAssetSize)}
	}
	m.Total = time.Since(start)
	m.Bytes = len(body)

	h.mu.Lock()
	h.last[p] = m
	h.mu.Unlock()
	return body, nil
}
