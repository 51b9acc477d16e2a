package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kzmacro", "config.json")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.SettleDelay() != 20*time.Millisecond {
		t.Errorf("SettleDelay = %v, want 20ms", cfg.SettleDelay())
	}
	if cfg.HookStartTimeout() != 3*time.Second {
		t.Errorf("HookStartTimeout = %v, want 3s", cfg.HookStartTimeout())
	}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("Level = %v, want info", cfg.Level())
	}
	if cfg.Path() != path {
		t.Errorf("Path = %q, want %q", cfg.Path(), path)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.LogLevel = "debug"
	cfg.ProfilesPath = "/tmp/macros.json"
	cfg.SettleDelayMS = 35
	cfg.Autoload = true
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Level() != slog.LevelDebug || got.ProfilesPath != "/tmp/macros.json" ||
		got.SettleDelayMS != 35 || !got.Autoload {
		t.Errorf("reloaded config = %+v", got)
	}
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"settle_delay_ms": -5, "autoload": true}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SettleDelayMS != DefaultSettleDelayMS {
		t.Errorf("SettleDelayMS = %d, want default", cfg.SettleDelayMS)
	}
	if cfg.HookStartTimeoutMS != DefaultHookStartTimeoutMS {
		t.Errorf("HookStartTimeoutMS = %d, want default", cfg.HookStartTimeoutMS)
	}
	if !cfg.Autoload {
		t.Error("Autoload lost")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestProfilesFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := cfg.ProfilesFile()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "macros.json"); got != want {
		t.Errorf("ProfilesFile = %q, want %q", got, want)
	}

	cfg.ProfilesPath = "/data/mine.json"
	if got, _ := cfg.ProfilesFile(); got != "/data/mine.json" {
		t.Errorf("ProfilesFile = %q, want configured path", got)
	}
}
