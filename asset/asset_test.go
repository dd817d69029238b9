package asset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"drumpad/audio"
	"drumpad/internal/wavfile"
	"drumpad/kit"
	"drumpad/log"
)

func contextSource(t *testing.T) DecoderSource {
	t.Helper()
	ctx, err := audio.NewContext(audio.Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ctx.Close)
	return func() (Decoder, error) { return ctx, nil }
}

func TestFileFetcher(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "audio", "drum")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "clap.wav"), []byte("clap"), 0644); err != nil {
		t.Fatal(err)
	}

	f := NewFileFetcher(root)
	for _, p := range []string{"audio/drum/clap.wav", "/audio/drum/clap.wav"} {
		data, err := f.Fetch(context.Background(), p)
		if err != nil {
			t.Fatalf("Fetch(%q): %v", p, err)
		}
		if string(data) != "clap" {
			t.Errorf("Fetch(%q) = %q", p, data)
		}
	}

	for _, p := range []string{"audio/drum/missing.wav", "../etc/passwd"} {
		_, err := f.Fetch(context.Background(), p)
		var netErr *NetworkError
		if !errors.As(err, &netErr) {
			t.Errorf("Fetch(%q) err = %v, want NetworkError", p, err)
			continue
		}
		if netErr.Path != p {
			t.Errorf("NetworkError.Path = %q, want %q", netErr.Path, p)
		}
	}
}

func TestFileFetcherCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileFetcher(t.TempDir()).Fetch(ctx, "x.wav")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/static/audio/drum/kickG.wav" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("kick"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL + "/static")
	data, err := f.Fetch(context.Background(), "audio/drum/kickG.wav")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "kick" {
		t.Errorf("body = %q", data)
	}
	m, ok := f.Metrics("audio/drum/kickG.wav")
	if !ok {
		t.Fatal("no metrics recorded")
	}
	if m.Bytes != 4 || m.Total <= 0 {
		t.Errorf("metrics = %+v", m)
	}

	_, err = f.Fetch(context.Background(), "audio/drum/missing.wav")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
	if _, ok := f.Metrics("audio/drum/missing.wav"); ok {
		t.Error("metrics recorded for failed fetch")
	}
}

func TestNewPicksFetcher(t *testing.T) {
	if _, ok := New("https://cdn.example.com/kit").(*HTTPFetcher); !ok {
		t.Error("https source should use HTTPFetcher")
	}
	if _, ok := New("./public").(*FileFetcher); !ok {
		t.Error("directory source should use FileFetcher")
	}
}

func TestLoaderLoad(t *testing.T) {
	fake := NewFake()
	fake.Set("audio/drum/kickG.wav", wavfile.Constant(441, 8000))
	l := NewLoader(fake, contextSource(t), 0)

	buf, err := l.Load(context.Background(), kit.Descriptor{ID: "kick", Key: "a", Path: "audio/drum/kickG.wav"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if buf.ID != "kick" || buf.Frames() != 441 {
		t.Errorf("buffer = %s/%d frames", buf.ID, buf.Frames())
	}
	if fake.Calls("audio/drum/kickG.wav") != 1 {
		t.Errorf("fetched %d times", fake.Calls("audio/drum/kickG.wav"))
	}
}

func TestLoaderNetworkError(t *testing.T) {
	fake := NewFake()
	fake.Fail("audio/drum/clap.wav", errors.New("connection reset"))
	l := NewLoader(fake, contextSource(t), 0)

	_, err := l.Load(context.Background(), kit.Descriptor{ID: "clap", Path: "audio/drum/clap.wav"})
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		t.Error("network failure reported as DecodeError")
	}
}

type plainFetcher struct{}

func (plainFetcher) Fetch(context.Context, string) ([]byte, error) {
	return nil, errors.New("offline")
}

func TestLoaderWrapsForeignFetchErrors(t *testing.T) {
	l := NewLoader(plainFetcher{}, contextSource(t), 0)
	_, err := l.Load(context.Background(), kit.Descriptor{ID: "snap", Path: "snap.wav"})
	var netErr *NetworkError
	if !errors.As(err, &netErr) || netErr.Path != "snap.wav" {
		t.Errorf("err = %v, want NetworkError for snap.wav", err)
	}
}

func TestLoaderDecodeError(t *testing.T) {
	fake := NewFake()
	fake.Set("audio/drum/snap.wav", []byte("<html>404</html>"))
	l := NewLoader(fake, contextSource(t), 0)

	_, err := l.Load(context.Background(), kit.Descriptor{ID: "snap", Path: "audio/drum/snap.wav"})
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
	if decErr.ID != "snap" {
		t.Errorf("DecodeError.ID = %q", decErr.ID)
	}
	if !errors.Is(err, audio.ErrUnknownFormat) {
		t.Errorf("DecodeError does not wrap ErrUnknownFormat: %v", err)
	}
}

func TestLoaderDecoderUnavailable(t *testing.T) {
	fake := NewFake()
	fake.Set("a.wav", wavfile.Constant(10, 8000))
	l := NewLoader(fake, func() (Decoder, error) { return nil, audio.ErrClosed }, 0)

	_, err := l.Load(context.Background(), kit.Descriptor{ID: "a", Path: "a.wav"})
	if !errors.Is(err, audio.ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestLoaderTimeout(t *testing.T) {
	fake := NewFake()
	fake.Set("slow.wav", wavfile.Constant(10, 8000))
	fake.Hold("slow.wav")
	l := NewLoader(fake, contextSource(t), 20*time.Millisecond)

	_, err := l.Load(context.Background(), kit.Descriptor{ID: "slow", Path: "slow.wav"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestFakeHoldRelease(t *testing.T) {
	fake := NewFake()
	fake.Set("x.wav", []byte("x"))
	fake.Hold("x.wav")

	done := make(chan error, 1)
	go func() {
		_, err := fake.Fetch(context.Background(), "x.wav")
		done <- err
	}()

	select {
	case <-fake.Called():
	case <-time.After(time.Second):
		t.Fatal("fetch never started")
	}
	select {
	case <-done:
		t.Fatal("held fetch returned early")
	case <-time.After(20 * time.Millisecond):
	}
	fake.Release("x.wav")
	if err := <-done; err != nil {
		t.Errorf("released fetch: %v", err)
	}
}

func TestLoaderLogsFetchTimings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(wavfile.Constant(100, 8000))
	}))
	defer srv.Close()

	dir := t.TempDir()
	log.SetDir(dir)
	if err := log.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close(); log.SetDir("") })

	l := NewLoader(NewHTTPFetcher(srv.URL), contextSource(t), 0)
	if _, err := l.Load(context.Background(), kit.Descriptor{ID: "kick", Key: "a", Path: "kick.wav"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	log.Close()

	data, err := os.ReadFile(filepath.Join(dir, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{"fetch_timings", "sample=kick", "dns_ms=", "tls_ms=", "ttfb_ms=", "total_ms=", "sample_loaded"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestLoaderFileFetchHasNoTimings(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "kick.wav"), wavfile.Constant(100, 8000), 0644); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	log.SetDir(dir)
	if err := log.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close(); log.SetDir("") })

	l := NewLoader(NewFileFetcher(root), contextSource(t), 0)
	if _, err := l.Load(context.Background(), kit.Descriptor{ID: "kick", Key: "a", Path: "kick.wav"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	log.Close()

	data, err := os.ReadFile(filepath.Join(dir, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "fetch_timings") {
		t.Errorf("file fetch logged network timings:\n%s", data)
	}
}
