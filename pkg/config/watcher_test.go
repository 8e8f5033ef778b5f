package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, WithWatchInterval(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if w.Config().Log.Level != "info" {
		t.Fatalf("unexpected initial level %s", w.Config().Log.Level)
	}

	reloaded := make(chan *Config, 1)
	w.OnChange(func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Push the mtime forward in case the filesystem's resolution is coarse.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Log.Level != "debug" {
			t.Errorf("expected reloaded level debug, got %s", cfg.Log.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not reload in time")
	}
}

func TestWatcherKeepsConfigOnBrokenReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, WithWatchInterval(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("llm:\n  provider: crystal-ball\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.reload()

	if w.Config().Log.Level != "warn" {
		t.Errorf("broken reload must keep the previous config, got %+v", w.Config().Log)
	}
}
