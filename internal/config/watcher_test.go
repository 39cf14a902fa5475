package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/camspeed/internal/camera"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func startWatcher[T any](t *testing.T, w *Watcher[T]) {
	t.Helper()
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	})
	// fsnotify needs a moment before the first event is delivered reliably.
	time.Sleep(100 * time.Millisecond)
}

func TestWatcherReloadsLiveSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camspeed.toml")
	writeFile(t, path, "[camera]\nexposure_time = 4000.0\n")

	received := make(chan camera.Settings, 1)
	w := NewWatcher(path, LoadLiveSettings, newTestLogger(), WithDebounce[camera.Settings](50*time.Millisecond))
	w.OnReload(func(s camera.Settings) { received <- s })
	startWatcher(t, w)

	writeFile(t, path, "[camera]\nexposure_time = 8000.0\npixel_format = \"Mono8\"\n")

	select {
	case s := <-received:
		if s.ExposureTime == nil || *s.ExposureTime != 8000 {
			t.Errorf("ExposureTime = %v, want 8000", s.ExposureTime)
		}
		if s.PixelFormat != nil {
			t.Errorf("PixelFormat = %q, live settings must not carry it", *s.PixelFormat)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcherDebounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camspeed.toml")
	writeFile(t, path, "[camera]\ngain = 1.0\n")

	var loads atomic.Int32
	loader := func(p string) (camera.Settings, error) {
		loads.Add(1)
		return LoadLiveSettings(p)
	}
	received := make(chan camera.Settings, 10)
	w := NewWatcher(path, loader, newTestLogger(), WithDebounce[camera.Settings](200*time.Millisecond))
	w.OnReload(func(s camera.Settings) { received <- s })
	startWatcher(t, w)

	for _, gain := range []string{"2.0", "3.0", "4.0"} {
		writeFile(t, path, "[camera]\ngain = "+gain+"\n")
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case s := <-received:
		if *s.Gain != 4 {
			t.Errorf("Gain = %v, want 4", *s.Gain)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
	time.Sleep(300 * time.Millisecond)
	if got := loads.Load(); got != 1 {
		t.Errorf("loads = %d, want 1", got)
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camspeed.toml")
	writeFile(t, path, "[camera]\n")

	var kept, removed atomic.Int32
	done := make(chan struct{}, 1)
	w := NewWatcher(path, LoadLiveSettings, newTestLogger(), WithDebounce[camera.Settings](50*time.Millisecond))
	unsub := w.OnReload(func(camera.Settings) { removed.Add(1) })
	w.OnReload(func(camera.Settings) {
		kept.Add(1)
		done <- struct{}{}
	})
	unsub()
	startWatcher(t, w)

	writeFile(t, path, "[camera]\ngain = 5.0\n")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
	if removed.Load() != 0 {
		t.Error("unsubscribed handler was called")
	}
	if kept.Load() != 1 {
		t.Errorf("kept handler calls = %d, want 1", kept.Load())
	}
}

func TestWatcherErrorHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camspeed.toml")
	writeFile(t, path, "[camera]\n")

	errs := make(chan error, 1)
	w := NewWatcher(path, LoadLiveSettings, newTestLogger(),
		WithDebounce[camera.Settings](50*time.Millisecond),
		WithErrorHandler[camera.Settings](func(err error) { errs <- err }))
	w.OnReload(func(camera.Settings) { t.Error("handler called for an invalid file") })
	startWatcher(t, w)

	writeFile(t, path, "[camera]\nshutter = 3\n")
	select {
	case err := <-errs:
		if err == nil {
			t.Error("expected error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error")
	}
}

func TestWatcherStopTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camspeed.toml")
	writeFile(t, path, "")
	w := NewWatcher(path, LoadLiveSettings, newTestLogger())
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWatcherStartMissingFile(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing.toml"), LoadLiveSettings, newTestLogger())
	err := w.Start()
	if err == nil {
		w.Stop()
		t.Fatal("Start() on a missing file should fail")
	}
}
