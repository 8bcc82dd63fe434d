package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  listen_address: \":8080\"\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watcher a moment to install before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("server:\n  listen_address: \":9090\"\n"), 0o600); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Server.ListenAddress != ":9090" {
			t.Errorf("ListenAddress = %q, want :9090", cfg.Server.ListenAddress)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("reload callback was not invoked")
	}
}

func TestWatcherKeepsPreviousOnInvalidWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  listen_address: \":8080\"\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config) { reloaded <- cfg })
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	// An invalid intermediate state must not reach the callback.
	if err := os.WriteFile(path, []byte("generation: [broken"), 0o600); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		t.Errorf("callback invoked with invalid config: %+v", cfg)
	case <-time.After(1 * time.Second):
		// Expected: no callback for the broken file.
	}
}
