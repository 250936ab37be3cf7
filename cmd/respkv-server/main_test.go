package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/respkv/internal/telemetry/logger"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitLevel(l logger.Logger, want string) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if l.Level() == want {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

func TestWatchConfig_ReloadsLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "respkv.yaml")
	writeConfig(t, path, "log:\n  level: info\n")

	cfg, loader, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Output: io.Discard})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	// Connection loggers are derived before the reload happens.
	connLog := log.With("conn_id", "01HZX")

	watcher, err := watchConfig(path, loader, log)
	if err != nil {
		t.Fatalf("watchConfig() error = %v", err)
	}
	t.Cleanup(func() { _ = watcher.Stop() })

	writeConfig(t, path, "log:\n  level: debug\n")
	if !waitLevel(connLog, "debug") {
		t.Fatalf("connection logger level = %q after reload, want debug", connLog.Level())
	}

	// An invalid file keeps the current level.
	writeConfig(t, path, "log:\n  level: loud\n")
	time.Sleep(300 * time.Millisecond)
	if got := log.Level(); got != "debug" {
		t.Errorf("level = %q after invalid reload, want debug", got)
	}
}

func TestWatchConfig_MissingDirectory(t *testing.T) {
	_, loader, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	log, err := logger.New(logger.Config{Output: io.Discard})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}

	if _, err := watchConfig(filepath.Join(t.TempDir(), "missing", "respkv.yaml"), loader, log); err == nil {
		t.Error("watchConfig() expected error for a missing directory")
	}
}
